package brackets

import (
	"sort"

	"github.com/Dosada05/court-scheduler/models"
)

// BuildGroupsQueue re-derives the queue of a bracket from its current state
// and returns how many matches were queued.
//
// The queue is round-major, pool-minor: every pool's first round in pool
// order, then every pool's second round, and so on. Inside a pool-round the
// original match order is kept, except that matches with a participant who is
// currently on court are moved to the end of that pool-round.
//
// Assigned, live and finished matches are left untouched. Matches whose
// pairing is not decided yet (missing participant or unfinished dependency)
// go back to pending.
func BuildGroupsQueue(st *models.BracketState) int {
	busy := BusyParticipants(st)
	finished := make(map[int]struct{})
	for _, m := range st.Matches {
		if m.Status == models.MatchStatusFinished {
			finished[m.ID] = struct{}{}
		}
	}

	type segmentKey struct {
		round int
		pool  string
	}
	segments := make(map[segmentKey][]*models.Match)
	rounds := make(map[int]struct{})
	pools := make(map[string]struct{})

	for _, m := range st.Matches {
		if m.Status != models.MatchStatusPending && m.Status != models.MatchStatusQueued {
			continue
		}
		if !ready(m, finished) {
			m.Status = models.MatchStatusPending
			m.QueueOrder = 0
			continue
		}
		k := segmentKey{round: m.RoundKey(), pool: m.Pool}
		segments[k] = append(segments[k], m)
		rounds[k.round] = struct{}{}
		pools[k.pool] = struct{}{}
	}

	roundList := make([]int, 0, len(rounds))
	for r := range rounds {
		roundList = append(roundList, r)
	}
	sort.Ints(roundList)

	poolList := make([]string, 0, len(pools))
	for p := range pools {
		poolList = append(poolList, p)
	}
	sort.Slice(poolList, func(i, j int) bool { return PoolLess(poolList[i], poolList[j]) })

	queue := make([]*models.Match, 0)
	for _, r := range roundList {
		for _, p := range poolList {
			seg := segments[segmentKey{round: r, pool: p}]
			if len(seg) == 0 {
				continue
			}
			sort.SliceStable(seg, func(i, j int) bool {
				if seg[i].Order != seg[j].Order {
					return seg[i].Order < seg[j].Order
				}
				return seg[i].ID < seg[j].ID
			})

			deferred := make([]*models.Match, 0)
			for _, m := range seg {
				if hasBusyParticipant(m, busy) {
					deferred = append(deferred, m)
					continue
				}
				queue = append(queue, m)
			}
			queue = append(queue, deferred...)
		}
	}

	renumber(queue)
	return len(queue)
}

// PoolLess orders pool keys naturally: A, B, ..., Z, AA, AB.
func PoolLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

func ready(m *models.Match, finished map[int]struct{}) bool {
	if !m.HasBothParticipants() {
		return false
	}
	for _, dep := range m.DependsOn {
		if _, ok := finished[dep]; !ok {
			return false
		}
	}
	return true
}
