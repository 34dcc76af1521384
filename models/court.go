package models

// CourtStatus is derived entirely from scheduler assignments.
type CourtStatus string

const (
	CourtStatusIdle     CourtStatus = "idle"
	CourtStatusAssigned CourtStatus = "assigned"
	CourtStatusLive     CourtStatus = "live"
)

type Court struct {
	ID           int         `json:"id" db:"id"`
	TournamentID int         `json:"tournament_id" db:"tournament_id"`
	BracketID    int         `json:"bracket_id" db:"bracket_id"`
	Name         string      `json:"name" db:"name"`
	Position     int         `json:"position" db:"position"`
	Status       CourtStatus `json:"status" db:"status"`
	MatchID      *int        `json:"match_id,omitempty" db:"match_id"`
	// Held courts are skipped by automatic filling.
	Held bool `json:"held" db:"held"`
}

func (c *Court) Clone() *Court {
	if c == nil {
		return nil
	}
	out := *c
	if c.MatchID != nil {
		id := *c.MatchID
		out.MatchID = &id
	}
	return &out
}

// Bind attaches a match to the court and mirrors the match status.
func (c *Court) Bind(m *Match) {
	id := m.ID
	c.MatchID = &id
	c.Status = CourtStatus(m.Status)
}

// Release clears the binding and returns the court to idle.
func (c *Court) Release() {
	c.MatchID = nil
	c.Status = CourtStatusIdle
}
