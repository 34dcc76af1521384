package brackets

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Dosada05/court-scheduler/models"
)

// DefaultCourtName names the i-th (1-based) court of a count-based upsert.
func DefaultCourtName(i int) string {
	return fmt.Sprintf("Court %d", i)
}

// IDAllocator hands out identities for newly created courts.
type IDAllocator func() (int, error)

// ReconcileResult describes what a court upsert changed.
type ReconcileResult struct {
	Added    []string `json:"added"`
	Kept     []string `json:"kept"`
	Removed  []string `json:"removed"`
	Released []int    `json:"released_match_ids"`
}

// DesiredCourtNames validates a court spec and expands it to court names.
func DesiredCourtNames(spec models.CourtSpec) ([]string, error) {
	hasCount := spec.Count != nil
	hasNames := len(spec.Names) > 0
	if hasCount == hasNames {
		return nil, ErrCourtSpecInvalid
	}

	if hasCount {
		if *spec.Count <= 0 {
			return nil, fmt.Errorf("%w: count %d", ErrCourtSpecInvalid, *spec.Count)
		}
		names := make([]string, *spec.Count)
		for i := range names {
			names[i] = DefaultCourtName(i + 1)
		}
		return names, nil
	}

	names := make([]string, len(spec.Names))
	seen := make(map[string]struct{}, len(spec.Names))
	for i, raw := range spec.Names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return nil, fmt.Errorf("%w: name at position %d is empty", ErrCourtNameInvalid, i)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q is listed twice", ErrCourtNameInvalid, name)
		}
		seen[name] = struct{}{}
		names[i] = name
	}
	return names, nil
}

// ReconcileCourts replaces the bracket's court set with the desired names.
// Courts are matched by name: a surviving court keeps its identity and its
// binding, a new name creates an idle court, and a dropped court releases its
// match back to the head of the queue.
func ReconcileCourts(st *models.BracketState, names []string, allocate IDAllocator) (*ReconcileResult, error) {
	existing := make(map[string]*models.Court, len(st.Courts))
	for _, c := range st.Courts {
		existing[c.Name] = c
	}

	res := &ReconcileResult{}
	desired := make([]*models.Court, 0, len(names))
	for i, name := range names {
		if c, ok := existing[name]; ok {
			c.Position = i
			desired = append(desired, c)
			delete(existing, name)
			res.Kept = append(res.Kept, name)
			continue
		}

		id, err := allocate()
		if err != nil {
			return nil, fmt.Errorf("allocate id for court %q: %w", name, err)
		}
		desired = append(desired, &models.Court{
			ID:           id,
			TournamentID: st.Bracket.TournamentID,
			BracketID:    st.Bracket.ID,
			Name:         name,
			Position:     i,
			Status:       models.CourtStatusIdle,
		})
		res.Added = append(res.Added, name)
	}

	var released []*models.Match
	for _, c := range st.Courts {
		if _, dropped := existing[c.Name]; !dropped {
			continue
		}
		res.Removed = append(res.Removed, c.Name)
		if c.MatchID == nil {
			continue
		}
		if m := st.MatchByID(*c.MatchID); m != nil {
			m.Status = models.MatchStatusQueued
			m.CourtID = nil
			released = append(released, m)
			res.Released = append(res.Released, m.ID)
		}
	}

	st.Courts = desired
	if len(released) > 0 {
		RequeueAtHead(st, released)
	}
	return res, nil
}

// RequeueAtHead puts the given matches in front of every other queued match,
// keeping their previous relative order, and renumbers the queue from 1.
func RequeueAtHead(st *models.BracketState, head []*models.Match) {
	inHead := make(map[int]struct{}, len(head))
	for _, m := range head {
		inHead[m.ID] = struct{}{}
	}
	sortByQueueOrder(head)

	rest := make([]*models.Match, 0)
	for _, m := range st.Matches {
		if m.Status != models.MatchStatusQueued {
			continue
		}
		if _, ok := inHead[m.ID]; ok {
			continue
		}
		rest = append(rest, m)
	}
	sortByQueueOrder(rest)

	renumber(append(append([]*models.Match{}, head...), rest...))
}

func sortByQueueOrder(ms []*models.Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].QueueOrder != ms[j].QueueOrder {
			return ms[i].QueueOrder < ms[j].QueueOrder
		}
		return ms[i].ID < ms[j].ID
	})
}

func renumber(queue []*models.Match) {
	for i, m := range queue {
		m.Status = models.MatchStatusQueued
		m.QueueOrder = i + 1
	}
}
