package brackets

import (
	"sort"

	"github.com/Dosada05/court-scheduler/models"
)

// Assignment records one court/match binding made by the scheduler.
type Assignment struct {
	CourtID int `json:"court_id"`
	MatchID int `json:"match_id"`
}

// BusyParticipants maps every registration in an assigned or live match to
// that match.
func BusyParticipants(st *models.BracketState) map[int]int {
	busy := make(map[int]int)
	for _, m := range st.Matches {
		if !m.Occupying() {
			continue
		}
		for _, p := range m.Participants() {
			busy[p] = m.ID
		}
	}
	return busy
}

func hasBusyParticipant(m *models.Match, busy map[int]int) bool {
	for _, p := range m.Participants() {
		if _, ok := busy[p]; ok {
			return true
		}
	}
	return false
}

// QueuedMatches returns the queued matches in ascending queue order.
func QueuedMatches(st *models.BracketState) []*models.Match {
	queued := make([]*models.Match, 0)
	for _, m := range st.Matches {
		if m.Status == models.MatchStatusQueued {
			queued = append(queued, m)
		}
	}
	sortByQueueOrder(queued)
	return queued
}

// NextEligible returns the lowest queued match none of whose participants is
// busy, or nil.
func NextEligible(st *models.BracketState) *models.Match {
	busy := BusyParticipants(st)
	for _, m := range QueuedMatches(st) {
		if !hasBusyParticipant(m, busy) {
			return m
		}
	}
	return nil
}

// AssignNext binds the next eligible match to an idle court. A nil match with
// a nil error means nothing in the queue can be played right now.
func AssignNext(st *models.BracketState, courtID int) (*models.Match, error) {
	court := st.CourtByID(courtID)
	if court == nil {
		return nil, ErrCourtNotFound
	}
	if court.Status != models.CourtStatusIdle {
		return nil, ErrCourtNotIdle
	}

	m := NextEligible(st)
	if m == nil {
		return nil, nil
	}
	bind(court, m)
	return m, nil
}

// AssignMatch binds a specific queued match to a court, enforcing the same
// rules as AssignNext.
func AssignMatch(st *models.BracketState, courtID, matchID int) error {
	court := st.CourtByID(courtID)
	if court == nil {
		return ErrCourtNotFound
	}
	if court.Status != models.CourtStatusIdle {
		return ErrCourtNotIdle
	}
	m := st.MatchByID(matchID)
	if m == nil {
		return ErrMatchNotFound
	}
	if m.Status != models.MatchStatusQueued {
		return ErrInvalidTransition
	}
	if hasBusyParticipant(m, BusyParticipants(st)) {
		return ErrParticipantBusy
	}
	bind(court, m)
	return nil
}

func bind(court *models.Court, m *models.Match) {
	id := court.ID
	m.Status = models.MatchStatusAssigned
	m.CourtID = &id
	court.Bind(m)
}

// FillIdleCourts assigns as many queued matches as possible to idle courts
// that are not held, in court position order.
func FillIdleCourts(st *models.BracketState) []Assignment {
	courts := append([]*models.Court(nil), st.Courts...)
	sort.SliceStable(courts, func(i, j int) bool { return courts[i].Position < courts[j].Position })

	made := make([]Assignment, 0)
	for _, c := range courts {
		if c.Status != models.CourtStatusIdle || c.Held {
			continue
		}
		m, err := AssignNext(st, c.ID)
		if err != nil || m == nil {
			// eligibility does not depend on the court, so nothing else fits either
			break
		}
		made = append(made, Assignment{CourtID: c.ID, MatchID: m.ID})
	}
	return made
}

// StartMatch moves an assigned match and its court to live.
func StartMatch(st *models.BracketState, matchID int) (*models.Court, error) {
	m := st.MatchByID(matchID)
	if m == nil {
		return nil, ErrMatchNotFound
	}
	if m.Status != models.MatchStatusAssigned || m.CourtID == nil {
		return nil, ErrInvalidTransition
	}
	court := st.CourtByID(*m.CourtID)
	if court == nil {
		return nil, ErrCourtNotFound
	}
	m.Status = models.MatchStatusLive
	court.Bind(m)
	return court, nil
}

// FinishMatch records a live match as finished and frees its court.
func FinishMatch(st *models.BracketState, matchID int) (*models.Court, error) {
	m := st.MatchByID(matchID)
	if m == nil {
		return nil, ErrMatchNotFound
	}
	if m.Status != models.MatchStatusLive || m.CourtID == nil {
		return nil, ErrInvalidTransition
	}
	court := st.CourtByID(*m.CourtID)
	m.Status = models.MatchStatusFinished
	m.CourtID = nil
	if court != nil {
		court.Release()
	}
	return court, nil
}
