package models

import "fmt"

// BracketKind mirrors the bracket_kind enum in the database.
type BracketKind string

const (
	BracketKindGroup    BracketKind = "group"
	BracketKindKnockout BracketKind = "knockout"
)

// BracketKey identifies one bracket of one tournament. Every scheduling
// operation and every realtime room is keyed by it.
type BracketKey struct {
	TournamentID int `json:"tournament_id"`
	BracketID    int `json:"bracket_id"`
}

func (k BracketKey) Valid() bool {
	return k.TournamentID > 0 && k.BracketID > 0
}

func (k BracketKey) String() string {
	return fmt.Sprintf("tournament_%d_bracket_%d", k.TournamentID, k.BracketID)
}

// Bracket is read-only metadata owned by the bracket generator.
type Bracket struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	Name         string      `json:"name" db:"name"`
	Kind         BracketKind `json:"kind" db:"kind"`
}

func (b Bracket) Key() BracketKey {
	return BracketKey{TournamentID: b.TournamentID, BracketID: b.ID}
}

// BracketState is the authoritative scheduling state of a bracket: all of its
// courts and all of its matches. It is only mutated under the bracket's lock.
type BracketState struct {
	Bracket Bracket  `json:"bracket"`
	Version int64    `json:"version"`
	Courts  []*Court `json:"courts"`
	Matches []*Match `json:"matches"`
}

// Clone returns a deep copy so that a failed mutation can be discarded.
func (s *BracketState) Clone() *BracketState {
	if s == nil {
		return nil
	}
	out := &BracketState{
		Bracket: s.Bracket,
		Version: s.Version,
		Courts:  make([]*Court, 0, len(s.Courts)),
		Matches: make([]*Match, 0, len(s.Matches)),
	}
	for _, c := range s.Courts {
		out.Courts = append(out.Courts, c.Clone())
	}
	for _, m := range s.Matches {
		out.Matches = append(out.Matches, m.Clone())
	}
	return out
}

func (s *BracketState) CourtByID(id int) *Court {
	for _, c := range s.Courts {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *BracketState) MatchByID(id int) *Match {
	for _, m := range s.Matches {
		if m.ID == id {
			return m
		}
	}
	return nil
}
