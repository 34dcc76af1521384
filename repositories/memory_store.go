package repositories

import (
	"context"
	"errors"
	"sync"

	"github.com/Dosada05/court-scheduler/models"
)

// MemoryStore keeps bracket states in process. It implements both
// BracketStateRepository and RegistrationDirectory and is used when no
// database is configured, and in tests.
type MemoryStore struct {
	mu            sync.RWMutex
	states        map[models.BracketKey]*models.BracketState
	locks         map[models.BracketKey]*sync.Mutex
	registrations map[int]string
	nextCourtID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:        make(map[models.BracketKey]*models.BracketState),
		locks:         make(map[models.BracketKey]*sync.Mutex),
		registrations: make(map[int]string),
	}
}

// PutBracket stores a bracket with its matches, replacing any previous
// state for the same key. It stands in for the external bracket generator.
func (s *MemoryStore) PutBracket(bracket models.Bracket, matches []*models.Match) {
	st := &models.BracketState{Bracket: bracket, Courts: []*models.Court{}, Matches: make([]*models.Match, 0, len(matches))}
	for _, m := range matches {
		cp := m.Clone()
		cp.TournamentID = bracket.TournamentID
		cp.BracketID = bracket.ID
		if cp.Status == "" {
			cp.Status = models.MatchStatusPending
		}
		st.Matches = append(st.Matches, cp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[bracket.Key()] = st
}

// PutRegistration sets the display name of a registration.
func (s *MemoryStore) PutRegistration(id int, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[id] = name
}

func (s *MemoryStore) Get(ctx context.Context, key models.BracketKey) (*models.BracketState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.states[key]
	if !ok {
		return nil, ErrBracketNotFound
	}
	return st.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, key models.BracketKey, fn Mutation) (*models.BracketState, error) {
	lock, err := s.lockFor(key)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	current := s.states[key]
	s.mu.RUnlock()

	next := current.Clone()
	if err := fn(next, s.allocateCourtID); err != nil {
		if errors.Is(err, ErrNoChange) {
			return current.Clone(), nil
		}
		return nil, err
	}
	next.Version = current.Version + 1

	s.mu.Lock()
	s.states[key] = next
	s.mu.Unlock()
	return next.Clone(), nil
}

func (s *MemoryStore) Names(ctx context.Context, ids []int) (map[int]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int]string, len(ids))
	for _, id := range ids {
		if name, ok := s.registrations[id]; ok {
			names[id] = name
		}
	}
	return names, nil
}

func (s *MemoryStore) lockFor(key models.BracketKey) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.states[key]; !ok {
		return nil, ErrBracketNotFound
	}
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock, nil
}

func (s *MemoryStore) allocateCourtID() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCourtID++
	return s.nextCourtID, nil
}
