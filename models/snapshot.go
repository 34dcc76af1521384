package models

import "time"

// Snapshot is the complete view of a bracket pushed to viewers.
type Snapshot struct {
	TournamentID int       `json:"tournament_id"`
	BracketID    int       `json:"bracket_id"`
	Version      int64     `json:"version"`
	GeneratedAt  time.Time `json:"generated_at"`
	Courts       []Court   `json:"courts"`
	Matches      []Match   `json:"matches"`
}

func (s *Snapshot) Key() BracketKey {
	return BracketKey{TournamentID: s.TournamentID, BracketID: s.BracketID}
}

// NewSnapshot copies the state so later mutations don't leak into viewers.
func NewSnapshot(st *BracketState, at time.Time) *Snapshot {
	snap := &Snapshot{
		TournamentID: st.Bracket.TournamentID,
		BracketID:    st.Bracket.ID,
		Version:      st.Version,
		GeneratedAt:  at,
		Courts:       make([]Court, 0, len(st.Courts)),
		Matches:      make([]Match, 0, len(st.Matches)),
	}
	for _, c := range st.Courts {
		snap.Courts = append(snap.Courts, *c.Clone())
	}
	for _, m := range st.Matches {
		snap.Matches = append(snap.Matches, *m.Clone())
	}
	return snap
}

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is an ephemeral operator message; it is never persisted.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      time.Time   `json:"at"`
}

// AssignResult is the direct answer to an assignNext request.
type AssignResult struct {
	RequestID string `json:"request_id,omitempty"`
	Assigned  bool   `json:"assigned"`
	CourtID   int    `json:"court_id"`
	MatchID   *int   `json:"match_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CourtSpec is the desired court set of an upsert: either a count or names.
type CourtSpec struct {
	Count *int     `json:"count,omitempty"`
	Names []string `json:"names,omitempty"`
}
