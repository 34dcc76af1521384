package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Dosada05/court-scheduler/models"
)

func intPtr(v int) *int { return &v }

func seededStore() (*MemoryStore, models.BracketKey) {
	s := NewMemoryStore()
	b := models.Bracket{ID: 2, TournamentID: 1, Name: "Groups", Kind: models.BracketKindGroup}
	s.PutBracket(b, []*models.Match{
		{ID: 10, Pool: "A", Round: 1, P1ID: intPtr(1), P2ID: intPtr(2)},
		{ID: 11, Pool: "A", Round: 1, P1ID: intPtr(3), P2ID: intPtr(4)},
	})
	s.PutRegistration(1, "Alice")
	s.PutRegistration(2, "Bob")
	return s, b.Key()
}

func TestMemoryStoreGetUnknownBracket(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), models.BracketKey{TournamentID: 9, BracketID: 9})
	if !errors.Is(err, ErrBracketNotFound) {
		t.Fatalf("expected ErrBracketNotFound, got %v", err)
	}
	_, err = s.Update(context.Background(), models.BracketKey{TournamentID: 9, BracketID: 9}, func(*models.BracketState, func() (int, error)) error { return nil })
	if !errors.Is(err, ErrBracketNotFound) {
		t.Fatalf("expected ErrBracketNotFound from Update, got %v", err)
	}
}

func TestMemoryStorePutBracketDefaultsPending(t *testing.T) {
	s, key := seededStore()
	st, err := s.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, m := range st.Matches {
		if m.Status != models.MatchStatusPending {
			t.Fatalf("match %d: expected pending, got %s", m.ID, m.Status)
		}
		if m.TournamentID != 1 || m.BracketID != 2 {
			t.Fatalf("match %d not stamped with bracket key: %+v", m.ID, m)
		}
	}
}

func TestMemoryStoreUpdateBumpsVersion(t *testing.T) {
	s, key := seededStore()
	st, err := s.Update(context.Background(), key, func(st *models.BracketState, allocate func() (int, error)) error {
		id, err := allocate()
		if err != nil {
			return err
		}
		st.Courts = append(st.Courts, &models.Court{ID: id, Name: "Court 1", Status: models.CourtStatusIdle})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.Version != 1 {
		t.Fatalf("expected version 1, got %d", st.Version)
	}
	if len(st.Courts) != 1 || st.Courts[0].ID != 1 {
		t.Fatalf("unexpected courts: %+v", st.Courts)
	}
}

func TestMemoryStoreUpdateErrorDiscardsChanges(t *testing.T) {
	s, key := seededStore()
	boom := errors.New("boom")
	_, err := s.Update(context.Background(), key, func(st *models.BracketState, _ func() (int, error)) error {
		st.Matches[0].Status = models.MatchStatusQueued
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	st, _ := s.Get(context.Background(), key)
	if st.Version != 0 || st.Matches[0].Status != models.MatchStatusPending {
		t.Fatalf("failed mutation leaked: version=%d status=%s", st.Version, st.Matches[0].Status)
	}
}

func TestMemoryStoreNoChangeKeepsVersion(t *testing.T) {
	s, key := seededStore()
	st, err := s.Update(context.Background(), key, func(*models.BracketState, func() (int, error)) error {
		return ErrNoChange
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.Version != 0 {
		t.Fatalf("expected version to stay 0, got %d", st.Version)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	s, key := seededStore()
	st, _ := s.Get(context.Background(), key)
	st.Matches[0].Status = models.MatchStatusFinished

	again, _ := s.Get(context.Background(), key)
	if again.Matches[0].Status != models.MatchStatusPending {
		t.Fatalf("Get returned shared state")
	}
}

func TestMemoryStoreUpdatesAreSerialized(t *testing.T) {
	s, key := seededStore()
	const workers = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Update(context.Background(), key, func(st *models.BracketState, _ func() (int, error)) error {
				st.Matches[0].QueueOrder++
				return nil
			})
			if err != nil {
				t.Errorf("Update: %v", err)
			}
		}()
	}
	wg.Wait()

	st, _ := s.Get(context.Background(), key)
	if st.Version != workers || st.Matches[0].QueueOrder != workers {
		t.Fatalf("lost updates: version=%d counter=%d", st.Version, st.Matches[0].QueueOrder)
	}
}

func TestMemoryStoreNames(t *testing.T) {
	s, _ := seededStore()
	names, err := s.Names(context.Background(), []int{1, 2, 99})
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 2 || names[1] != "Alice" || names[2] != "Bob" {
		t.Fatalf("unexpected names: %v", names)
	}
}
