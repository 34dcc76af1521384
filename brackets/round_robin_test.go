package brackets

import (
	"errors"
	"testing"

	"github.com/Dosada05/court-scheduler/models"
)

func TestGenerateRoundRobinPairsEveryoneOnce(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6} {
		participants := make([]int, n)
		for i := range participants {
			participants[i] = 10 + i
		}
		matches, err := GenerateRoundRobin(RoundRobinParams{Pool: "A", Participants: participants, FirstMatchID: 1})
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if want := n * (n - 1) / 2; len(matches) != want {
			t.Fatalf("n=%d: expected %d matches, got %d", n, want, len(matches))
		}

		pairs := make(map[[2]int]bool)
		perRound := make(map[int]map[int]bool)
		for i, m := range matches {
			if m.ID != i+1 || m.Status != models.MatchStatusPending || m.Pool != "A" {
				t.Fatalf("n=%d: unexpected match %+v", n, m)
			}
			a, b := *m.P1ID, *m.P2ID
			if a > b {
				a, b = b, a
			}
			if pairs[[2]int{a, b}] {
				t.Fatalf("n=%d: pair %d-%d repeated", n, a, b)
			}
			pairs[[2]int{a, b}] = true

			if perRound[m.RRRound] == nil {
				perRound[m.RRRound] = make(map[int]bool)
			}
			for _, p := range []int{a, b} {
				if perRound[m.RRRound][p] {
					t.Fatalf("n=%d: participant %d plays twice in rr_round %d", n, p, m.RRRound)
				}
				perRound[m.RRRound][p] = true
			}
		}
	}
}

func TestGenerateRoundRobinDoubleLegSwapsSides(t *testing.T) {
	matches, err := GenerateRoundRobin(RoundRobinParams{Pool: "B", Participants: []int{1, 2, 3, 4}, FirstMatchID: 100, Legs: 2})
	if err != nil {
		t.Fatalf("GenerateRoundRobin: %v", err)
	}
	if len(matches) != 12 {
		t.Fatalf("expected 12 matches, got %d", len(matches))
	}
	first, second := matches[0], matches[6]
	if *first.P1ID != *second.P2ID || *first.P2ID != *second.P1ID {
		t.Fatalf("second leg must swap sides: %+v vs %+v", first, second)
	}
	if second.RRRound != 4 || matches[11].ID != 111 {
		t.Fatalf("unexpected numbering: rr_round %d, last id %d", second.RRRound, matches[11].ID)
	}
}

func TestGenerateRoundRobinFeedsQueue(t *testing.T) {
	a, err := GenerateRoundRobin(RoundRobinParams{Pool: "A", Participants: []int{1, 2, 3, 4}, FirstMatchID: 1})
	if err != nil {
		t.Fatalf("pool A: %v", err)
	}
	b, err := GenerateRoundRobin(RoundRobinParams{Pool: "B", Participants: []int{5, 6, 7}, FirstMatchID: 7})
	if err != nil {
		t.Fatalf("pool B: %v", err)
	}
	st := newState(nil, append(a, b...)...)

	if got := BuildGroupsQueue(st); got != 9 {
		t.Fatalf("expected 9 queued matches, got %d", got)
	}
	mustHoldInvariants(t, st)
}

func TestGenerateRoundRobinRejectsTinyPool(t *testing.T) {
	if _, err := GenerateRoundRobin(RoundRobinParams{Pool: "C", Participants: []int{1}}); !errors.Is(err, ErrNotEnoughParticipants) {
		t.Fatalf("expected ErrNotEnoughParticipants, got %v", err)
	}
}
