package brackets

import (
	"testing"

	"github.com/Dosada05/court-scheduler/models"
)

func intPtr(v int) *int { return &v }

func groupMatch(id int, pool string, rrRound, order, p1, p2 int) *models.Match {
	return &models.Match{
		ID:      id,
		Pool:    pool,
		Round:   1,
		RRRound: rrRound,
		Order:   order,
		Status:  models.MatchStatusPending,
		P1ID:    intPtr(p1),
		P2ID:    intPtr(p2),
	}
}

func queuedMatch(id, queueOrder, p1, p2 int) *models.Match {
	m := groupMatch(id, "A", 1, id, p1, p2)
	m.Status = models.MatchStatusQueued
	m.QueueOrder = queueOrder
	return m
}

func idleCourt(id int, name string, position int) *models.Court {
	return &models.Court{ID: id, Name: name, Position: position, Status: models.CourtStatusIdle}
}

func newState(courts []*models.Court, matches ...*models.Match) *models.BracketState {
	if courts == nil {
		courts = []*models.Court{}
	}
	return &models.BracketState{
		Bracket: models.Bracket{ID: 2, TournamentID: 1, Name: "Groups", Kind: models.BracketKindGroup},
		Courts:  courts,
		Matches: matches,
	}
}

// bindLive puts a match on a court as if it had been assigned and started.
func bindLive(st *models.BracketState, courtID, matchID int) {
	m := st.MatchByID(matchID)
	c := st.CourtByID(courtID)
	m.Status = models.MatchStatusLive
	m.QueueOrder = 0
	m.CourtID = intPtr(courtID)
	c.Bind(m)
}

func queueIDs(st *models.BracketState) []int {
	out := make([]int, 0)
	for _, m := range QueuedMatches(st) {
		out = append(out, m.ID)
	}
	return out
}

func sequentialIDs() IDAllocator {
	next := 100
	return func() (int, error) {
		next++
		return next, nil
	}
}

func mustHoldInvariants(t *testing.T, st *models.BracketState) {
	t.Helper()
	if err := CheckInvariants(st); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
}
