package models

type MatchStatus string

const (
	MatchStatusPending  MatchStatus = "pending"
	MatchStatusQueued   MatchStatus = "queued"
	MatchStatusAssigned MatchStatus = "assigned"
	MatchStatusLive     MatchStatus = "live"
	MatchStatusFinished MatchStatus = "finished"
)

// Match holds the scheduling-relevant subset of a bracket match.
type Match struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	BracketID    int         `json:"bracket_id" db:"bracket_id"`
	Pool         string      `json:"pool,omitempty" db:"pool"`
	Round        int         `json:"round" db:"round"`
	RRRound      int         `json:"rr_round,omitempty" db:"rr_round"`
	Order        int         `json:"order" db:"match_order"`
	Status       MatchStatus `json:"status" db:"status"`
	QueueOrder   int         `json:"queue_order,omitempty" db:"queue_order"`
	P1ID         *int        `json:"p1_registration_id,omitempty" db:"p1_registration_id"`
	P2ID         *int        `json:"p2_registration_id,omitempty" db:"p2_registration_id"`
	DependsOn    []int       `json:"depends_on,omitempty" db:"depends_on"`
	CourtID      *int        `json:"court_id,omitempty" db:"court_id"`

	// Заполняются из справочника регистраций, в БД матча не хранятся
	P1Name string `json:"p1_name,omitempty" db:"-"`
	P2Name string `json:"p2_name,omitempty" db:"-"`
}

func (m *Match) Clone() *Match {
	if m == nil {
		return nil
	}
	out := *m
	out.P1ID = cloneIntPtr(m.P1ID)
	out.P2ID = cloneIntPtr(m.P2ID)
	out.CourtID = cloneIntPtr(m.CourtID)
	if m.DependsOn != nil {
		out.DependsOn = append([]int(nil), m.DependsOn...)
	}
	return &out
}

// Participants returns the registration ids that are set.
func (m *Match) Participants() []int {
	ids := make([]int, 0, 2)
	if m.P1ID != nil {
		ids = append(ids, *m.P1ID)
	}
	if m.P2ID != nil {
		ids = append(ids, *m.P2ID)
	}
	return ids
}

// HasBothParticipants reports whether the pairing is decided.
func (m *Match) HasBothParticipants() bool {
	return m.P1ID != nil && m.P2ID != nil
}

// Occupying reports whether the match currently holds a court and its players.
func (m *Match) Occupying() bool {
	return m.Status == MatchStatusAssigned || m.Status == MatchStatusLive
}

// RoundKey is the round used for queue ordering: the round-robin round for
// group play, the bracket round otherwise.
func (m *Match) RoundKey() int {
	if m.RRRound > 0 {
		return m.RRRound
	}
	return m.Round
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
