package brackets

import (
	"fmt"

	"github.com/Dosada05/court-scheduler/models"
)

// CheckInvariants verifies a state before it is committed or broadcast.
func CheckInvariants(st *models.BracketState) error {
	boundTo := make(map[int]int)
	for _, c := range st.Courts {
		occupied := c.Status == models.CourtStatusAssigned || c.Status == models.CourtStatusLive
		if occupied != (c.MatchID != nil) {
			return fmt.Errorf("%w: court %d has status %s and match %v", ErrInvariantViolation, c.ID, c.Status, c.MatchID)
		}
		if c.MatchID == nil {
			continue
		}
		m := st.MatchByID(*c.MatchID)
		if m == nil {
			return fmt.Errorf("%w: court %d is bound to unknown match %d", ErrInvariantViolation, c.ID, *c.MatchID)
		}
		if string(m.Status) != string(c.Status) {
			return fmt.Errorf("%w: court %d is %s but match %d is %s", ErrInvariantViolation, c.ID, c.Status, m.ID, m.Status)
		}
		if prev, dup := boundTo[m.ID]; dup {
			return fmt.Errorf("%w: match %d is bound to courts %d and %d", ErrInvariantViolation, m.ID, prev, c.ID)
		}
		boundTo[m.ID] = c.ID
	}

	orders := make(map[int]int)
	players := make(map[int]int)
	for _, m := range st.Matches {
		switch m.Status {
		case models.MatchStatusQueued:
			if m.QueueOrder <= 0 {
				return fmt.Errorf("%w: queued match %d has no queue order", ErrInvariantViolation, m.ID)
			}
			if other, dup := orders[m.QueueOrder]; dup {
				return fmt.Errorf("%w: matches %d and %d share queue order %d", ErrInvariantViolation, other, m.ID, m.QueueOrder)
			}
			orders[m.QueueOrder] = m.ID
		case models.MatchStatusAssigned, models.MatchStatusLive:
			courtID, ok := boundTo[m.ID]
			if !ok || m.CourtID == nil || *m.CourtID != courtID {
				return fmt.Errorf("%w: match %d is %s without a matching court", ErrInvariantViolation, m.ID, m.Status)
			}
			for _, p := range m.Participants() {
				if other, dup := players[p]; dup {
					return fmt.Errorf("%w: registration %d plays in matches %d and %d", ErrInvariantViolation, p, other, m.ID)
				}
				players[p] = m.ID
			}
		}
	}
	return nil
}
