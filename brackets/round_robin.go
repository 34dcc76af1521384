package brackets

import (
	"errors"
	"fmt"

	"github.com/Dosada05/court-scheduler/models"
)

var ErrNotEnoughParticipants = errors.New("round robin needs at least 2 participants")

// RoundRobinParams describes one pool of a group stage.
type RoundRobinParams struct {
	Pool         string
	Participants []int // registration ids
	// FirstMatchID is the id of the first generated match; ids are sequential.
	FirstMatchID int
	// Legs is 1 for a single round robin and 2 for a double one.
	Legs int
}

// GenerateRoundRobin pairs every participant with every other one using the
// circle method, so nobody plays twice within one rr_round. With an odd
// number of participants one of them sits out each rr_round.
// The matches are pending; BuildGroupsQueue queues them.
func GenerateRoundRobin(p RoundRobinParams) ([]*models.Match, error) {
	if len(p.Participants) < 2 {
		return nil, fmt.Errorf("%w: pool %q has %d", ErrNotEnoughParticipants, p.Pool, len(p.Participants))
	}
	legs := p.Legs
	if legs != 2 {
		legs = 1
	}

	// 0 означает пропуск тура при нечетном числе участников
	ring := append([]int(nil), p.Participants...)
	if len(ring)%2 == 1 {
		ring = append(ring, 0)
	}
	n := len(ring)
	perLeg := n - 1

	matches := make([]*models.Match, 0, legs*perLeg*n/2)
	id := p.FirstMatchID
	for leg := 0; leg < legs; leg++ {
		cur := append([]int(nil), ring...)
		for r := 0; r < perLeg; r++ {
			order := 0
			for i := 0; i < n/2; i++ {
				a, b := cur[i], cur[n-1-i]
				if a == 0 || b == 0 {
					continue
				}
				if leg == 1 {
					a, b = b, a
				}
				order++
				p1, p2 := a, b
				matches = append(matches, &models.Match{
					ID:      id,
					Pool:    p.Pool,
					Round:   1,
					RRRound: leg*perLeg + r + 1,
					Order:   order,
					Status:  models.MatchStatusPending,
					P1ID:    &p1,
					P2ID:    &p2,
				})
				id++
			}
			// первый участник на месте, остальные сдвигаются по кругу
			last := cur[n-1]
			copy(cur[2:], cur[1:n-1])
			cur[1] = last
		}
	}
	return matches, nil
}
