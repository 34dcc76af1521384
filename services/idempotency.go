package services

import (
	"sync"

	"github.com/Dosada05/court-scheduler/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultResultCacheSize = 256

type resultKey struct {
	courtID   int
	requestID string
}

// assignResults remembers the last N assignNext answers of every bracket so a
// retried request gets the original answer instead of a second assignment.
type assignResults struct {
	mu       sync.Mutex
	capacity int
	brackets map[models.BracketKey]*lru.Cache[resultKey, models.AssignResult]
}

func newAssignResults(capacity int) *assignResults {
	if capacity <= 0 {
		capacity = defaultResultCacheSize
	}
	return &assignResults{
		capacity: capacity,
		brackets: make(map[models.BracketKey]*lru.Cache[resultKey, models.AssignResult]),
	}
}

func (a *assignResults) cache(key models.BracketKey, create bool) *lru.Cache[resultKey, models.AssignResult] {
	a.mu.Lock()
	defer a.mu.Unlock()
	cache, ok := a.brackets[key]
	if ok || !create {
		return cache
	}
	// lru.New fails only for a non-positive size
	cache, _ = lru.New[resultKey, models.AssignResult](a.capacity)
	a.brackets[key] = cache
	return cache
}

func (a *assignResults) get(key models.BracketKey, courtID int, requestID string) (*models.AssignResult, bool) {
	cache := a.cache(key, false)
	if cache == nil {
		return nil, false
	}
	res, ok := cache.Get(resultKey{courtID: courtID, requestID: requestID})
	if !ok {
		return nil, false
	}
	return cloneAssignResult(&res), true
}

func (a *assignResults) put(key models.BracketKey, res *models.AssignResult) {
	a.cache(key, true).Add(resultKey{courtID: res.CourtID, requestID: res.RequestID}, *cloneAssignResult(res))
}

func cloneAssignResult(res *models.AssignResult) *models.AssignResult {
	out := *res
	if res.MatchID != nil {
		id := *res.MatchID
		out.MatchID = &id
	}
	return &out
}
