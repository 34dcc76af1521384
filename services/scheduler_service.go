package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/court-scheduler/brackets"
	"github.com/Dosada05/court-scheduler/models"
	"github.com/Dosada05/court-scheduler/repositories"
	"github.com/Dosada05/court-scheduler/storage"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

const (
	opUpsertCourts = "upsert_courts"
	opBuildQueue   = "build_queue"
	opAssignNext   = "assign_next"
	opAssignMatch  = "assign_match"
	opStartMatch   = "start_match"
	opFinishMatch  = "finish_match"
	opSetHold      = "set_court_hold"
	opArchive      = "archive_snapshot"

	noEligibleMatch = "no eligible match"

	stateLoadTimeout = 10 * time.Second
)

// StatePublisher delivers committed snapshots and notices to viewers.
type StatePublisher interface {
	PublishState(ctx context.Context, snap *models.Snapshot)
	PublishNotice(ctx context.Context, key models.BracketKey, notice models.Notice)
}

// SnapshotArchiver stores a snapshot outside the database.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap *models.Snapshot) (*storage.UploadResult, error)
}

// Observer receives per-operation measurements.
type Observer interface {
	ObserveOperation(op, outcome string, d time.Duration)
	ObserveQueue(key models.BracketKey, queued int)
}

type SchedulerConfig struct {
	// AutoAssignOnFinish refills a court as soon as its match finishes or its
	// hold is lifted.
	AutoAssignOnFinish   bool
	IdempotencyCacheSize int
}

type UpsertCourtsResult struct {
	Changes     *brackets.ReconcileResult `json:"changes"`
	Assignments []brackets.Assignment     `json:"assignments"`
	Snapshot    *models.Snapshot          `json:"snapshot"`
}

type BuildQueueResult struct {
	TotalQueued int              `json:"total_queued"`
	Snapshot    *models.Snapshot `json:"snapshot"`
}

type SchedulerService interface {
	UpsertCourts(ctx context.Context, key models.BracketKey, spec models.CourtSpec) (*UpsertCourtsResult, error)
	BuildGroupsQueue(ctx context.Context, key models.BracketKey) (*BuildQueueResult, error)
	AssignNext(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error)
	AssignMatch(ctx context.Context, key models.BracketKey, courtID, matchID int) (*models.Snapshot, error)
	StartMatch(ctx context.Context, key models.BracketKey, matchID int) (*models.Snapshot, error)
	FinishMatch(ctx context.Context, key models.BracketKey, matchID int) (*models.Snapshot, error)
	SetCourtHold(ctx context.Context, key models.BracketKey, courtID int, held bool) (*models.Snapshot, error)
	GetState(ctx context.Context, key models.BracketKey) (*models.Snapshot, error)
	ArchiveSnapshot(ctx context.Context, key models.BracketKey) (*storage.UploadResult, error)
}

type schedulerService struct {
	store     repositories.BracketStateRepository
	directory repositories.RegistrationDirectory
	publisher StatePublisher
	archiver  SnapshotArchiver
	observer  Observer
	clock     clockwork.Clock
	logger    *slog.Logger
	cfg       SchedulerConfig

	results  *assignResults
	inflight singleflight.Group
	reads    singleflight.Group
}

// NewSchedulerService wires the scheduler. archiver and observer may be nil.
func NewSchedulerService(
	store repositories.BracketStateRepository,
	directory repositories.RegistrationDirectory,
	publisher StatePublisher,
	archiver SnapshotArchiver,
	observer Observer,
	clock clockwork.Clock,
	logger *slog.Logger,
	cfg SchedulerConfig,
) SchedulerService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &schedulerService{
		store:     store,
		directory: directory,
		publisher: publisher,
		archiver:  archiver,
		observer:  observer,
		clock:     clock,
		logger:    logger.With(slog.String("component", "scheduler")),
		cfg:       cfg,
		results:   newAssignResults(cfg.IdempotencyCacheSize),
	}
}

func (s *schedulerService) UpsertCourts(ctx context.Context, key models.BracketKey, spec models.CourtSpec) (*UpsertCourtsResult, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	names, err := brackets.DesiredCourtNames(spec)
	if err != nil {
		err = classify(err)
		s.record(opUpsertCourts, s.clock.Now(), err)
		return nil, err
	}

	var (
		changes     *brackets.ReconcileResult
		assignments []brackets.Assignment
		notices     []models.Notice
	)
	snap, err := s.mutate(ctx, opUpsertCourts, key, func(st *models.BracketState, allocate brackets.IDAllocator) error {
		positions := make(map[int]int, len(st.Courts))
		for _, c := range st.Courts {
			positions[c.ID] = c.Position
		}

		res, err := brackets.ReconcileCourts(st, names, allocate)
		if err != nil {
			return err
		}
		changes = res
		assignments = brackets.FillIdleCourts(st)

		for _, id := range res.Released {
			notices = append(notices, s.notice(models.NoticeWarn, fmt.Sprintf("match %d returned to the queue: its court was removed", id)))
		}
		notices = append(notices, s.assignmentNotices(st, assignments)...)

		if len(res.Added) == 0 && len(res.Removed) == 0 && len(assignments) == 0 && !positionsMoved(st, positions) {
			return repositories.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("courts reconciled",
		slog.Int("tournament_id", key.TournamentID),
		slog.Int("bracket_id", key.BracketID),
		slog.Int("added", len(changes.Added)),
		slog.Int("removed", len(changes.Removed)),
		slog.Int("released", len(changes.Released)),
		slog.Int("assigned", len(assignments)))
	s.publishNotices(ctx, key, notices)

	return &UpsertCourtsResult{Changes: changes, Assignments: assignments, Snapshot: snap}, nil
}

func positionsMoved(st *models.BracketState, before map[int]int) bool {
	for _, c := range st.Courts {
		if pos, ok := before[c.ID]; !ok || pos != c.Position {
			return true
		}
	}
	return false
}

func (s *schedulerService) BuildGroupsQueue(ctx context.Context, key models.BracketKey) (*BuildQueueResult, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}

	total := 0
	snap, err := s.mutate(ctx, opBuildQueue, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		total = brackets.BuildGroupsQueue(st)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("queue built",
		slog.Int("tournament_id", key.TournamentID),
		slog.Int("bracket_id", key.BracketID),
		slog.Int("total_queued", total))
	s.publishNotices(ctx, key, []models.Notice{s.notice(models.NoticeInfo, fmt.Sprintf("queue rebuilt: %d matches queued", total))})

	return &BuildQueueResult{TotalQueued: total, Snapshot: snap}, nil
}

// AssignNext answers retries of the same (court, requestID) from the result
// cache; concurrent duplicates share one execution.
func (s *schedulerService) AssignNext(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	if courtID <= 0 {
		return nil, ErrCourtIDInvalid
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	if res, ok := s.results.get(key, courtID, requestID); ok {
		s.logger.Debug("assignNext answered from cache",
			slog.Int("tournament_id", key.TournamentID),
			slog.Int("bracket_id", key.BracketID),
			slog.Int("court_id", courtID),
			slog.String("request_id", requestID))
		return res, nil
	}

	flightKey := fmt.Sprintf("%s/%d/%s", key, courtID, requestID)
	v, err, _ := s.inflight.Do(flightKey, func() (interface{}, error) {
		return s.assignOnce(ctx, key, courtID, requestID)
	})
	if err != nil {
		return nil, err
	}
	return cloneAssignResult(v.(*models.AssignResult)), nil
}

// assignOnce runs inside the flight group. The cache is checked again: a
// duplicate may arrive after the first flight finished and left the group.
func (s *schedulerService) assignOnce(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error) {
	if res, ok := s.results.get(key, courtID, requestID); ok {
		return res, nil
	}
	res, err := s.assignNext(ctx, key, courtID, requestID)
	if err != nil {
		return nil, err
	}
	s.results.put(key, res)
	return res, nil
}

func (s *schedulerService) assignNext(ctx context.Context, key models.BracketKey, courtID int, requestID string) (*models.AssignResult, error) {
	var (
		assigned  *models.Match
		courtName string
	)
	_, err := s.mutate(ctx, opAssignNext, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		if c := st.CourtByID(courtID); c != nil {
			courtName = c.Name
		}
		m, err := brackets.AssignNext(st, courtID)
		if err != nil {
			return err
		}
		if m == nil {
			return repositories.ErrNoChange
		}
		assigned = m.Clone()
		return nil
	})
	if err != nil {
		s.logger.Info("assignNext rejected",
			slog.Int("tournament_id", key.TournamentID),
			slog.Int("bracket_id", key.BracketID),
			slog.Int("court_id", courtID),
			slog.String("request_id", requestID),
			slog.Any("error", err))
		return nil, err
	}

	res := &models.AssignResult{RequestID: requestID, CourtID: courtID}
	if assigned == nil {
		res.Error = noEligibleMatch
		s.publishNotices(ctx, key, []models.Notice{s.notice(models.NoticeWarn, fmt.Sprintf("%s for %s", noEligibleMatch, courtName))})
		return res, nil
	}

	id := assigned.ID
	res.Assigned = true
	res.MatchID = &id
	s.logger.Info("match assigned",
		slog.Int("tournament_id", key.TournamentID),
		slog.Int("bracket_id", key.BracketID),
		slog.Int("court_id", courtID),
		slog.Int("match_id", id),
		slog.String("request_id", requestID))
	s.publishNotices(ctx, key, []models.Notice{s.notice(models.NoticeInfo, fmt.Sprintf("match %d assigned to %s", id, courtName))})
	return res, nil
}

// AssignMatch puts a specific queued match on an idle court, overriding the
// queue order. The busy-player rule still applies.
func (s *schedulerService) AssignMatch(ctx context.Context, key models.BracketKey, courtID, matchID int) (*models.Snapshot, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	if courtID <= 0 {
		return nil, ErrCourtIDInvalid
	}
	if matchID <= 0 {
		return nil, ErrMatchIDInvalid
	}

	var notices []models.Notice
	snap, err := s.mutate(ctx, opAssignMatch, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		if err := brackets.AssignMatch(st, courtID, matchID); err != nil {
			return err
		}
		notices = s.assignmentNotices(st, []brackets.Assignment{{CourtID: courtID, MatchID: matchID}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match assigned manually",
		slog.Int("tournament_id", key.TournamentID),
		slog.Int("bracket_id", key.BracketID),
		slog.Int("court_id", courtID),
		slog.Int("match_id", matchID))
	s.publishNotices(ctx, key, notices)
	return snap, nil
}

func (s *schedulerService) StartMatch(ctx context.Context, key models.BracketKey, matchID int) (*models.Snapshot, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	if matchID <= 0 {
		return nil, ErrMatchIDInvalid
	}
	return s.mutate(ctx, opStartMatch, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		_, err := brackets.StartMatch(st, matchID)
		return err
	})
}

// FinishMatch frees the court and, when configured, refills it in the same
// commit.
func (s *schedulerService) FinishMatch(ctx context.Context, key models.BracketKey, matchID int) (*models.Snapshot, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	if matchID <= 0 {
		return nil, ErrMatchIDInvalid
	}

	var notices []models.Notice
	snap, err := s.mutate(ctx, opFinishMatch, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		court, err := brackets.FinishMatch(st, matchID)
		if err != nil {
			return err
		}
		if court == nil || court.Held || !s.cfg.AutoAssignOnFinish {
			return nil
		}
		next, err := brackets.AssignNext(st, court.ID)
		if err != nil {
			return err
		}
		if next != nil {
			notices = s.assignmentNotices(st, []brackets.Assignment{{CourtID: court.ID, MatchID: next.ID}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishNotices(ctx, key, notices)
	return snap, nil
}

func (s *schedulerService) SetCourtHold(ctx context.Context, key models.BracketKey, courtID int, held bool) (*models.Snapshot, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	if courtID <= 0 {
		return nil, ErrCourtIDInvalid
	}

	var notices []models.Notice
	snap, err := s.mutate(ctx, opSetHold, key, func(st *models.BracketState, _ brackets.IDAllocator) error {
		court := st.CourtByID(courtID)
		if court == nil {
			return brackets.ErrCourtNotFound
		}
		if court.Held == held {
			return repositories.ErrNoChange
		}
		court.Held = held
		if held || !s.cfg.AutoAssignOnFinish || court.Status != models.CourtStatusIdle {
			return nil
		}
		next, err := brackets.AssignNext(st, court.ID)
		if err != nil {
			return err
		}
		if next != nil {
			notices = s.assignmentNotices(st, []brackets.Assignment{{CourtID: court.ID, MatchID: next.ID}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishNotices(ctx, key, notices)
	return snap, nil
}

// GetState coalesces concurrent reads of the same bracket into one load. The
// shared load is detached from the caller, so one cancelled request does not
// fail the others waiting on it.
func (s *schedulerService) GetState(ctx context.Context, key models.BracketKey) (*models.Snapshot, error) {
	if !key.Valid() {
		return nil, ErrBracketKeyInvalid
	}
	ch := s.reads.DoChan(key.String(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stateLoadTimeout)
		defer cancel()
		st, err := s.store.Get(loadCtx, key)
		if err != nil {
			return nil, classify(err)
		}
		return s.snapshot(loadCtx, st), nil
	})
	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*models.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *schedulerService) ArchiveSnapshot(ctx context.Context, key models.BracketKey) (*storage.UploadResult, error) {
	if s.archiver == nil {
		return nil, ErrArchiveDisabled
	}
	start := s.clock.Now()
	snap, err := s.GetState(ctx, key)
	if err != nil {
		s.record(opArchive, start, err)
		return nil, err
	}
	res, err := s.archiver.Archive(ctx, snap)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTransient, err)
		s.record(opArchive, start, err)
		return nil, err
	}
	s.record(opArchive, start, nil)
	s.logger.Info("snapshot archived",
		slog.Int("tournament_id", key.TournamentID),
		slog.Int("bracket_id", key.BracketID),
		slog.Int64("version", snap.Version),
		slog.String("object_key", res.Key))
	return res, nil
}

// mutate runs fn under the bracket's single-writer lock, checks the scheduler
// invariants and publishes the committed snapshot. A mutation that ends in
// repositories.ErrNoChange returns the current snapshot without publishing.
func (s *schedulerService) mutate(ctx context.Context, op string, key models.BracketKey, fn func(st *models.BracketState, allocate brackets.IDAllocator) error) (*models.Snapshot, error) {
	start := s.clock.Now()
	committed := false
	st, err := s.store.Update(ctx, key, func(st *models.BracketState, allocate func() (int, error)) error {
		committed = false
		if err := fn(st, allocate); err != nil {
			return err
		}
		if err := brackets.CheckInvariants(st); err != nil {
			return err
		}
		committed = true
		return nil
	})
	err = classify(err)
	s.record(op, start, err)
	if err != nil {
		if errors.Is(err, brackets.ErrInvariantViolation) {
			s.logger.Error("mutation rejected by invariant check",
				slog.String("operation", op),
				slog.Int("tournament_id", key.TournamentID),
				slog.Int("bracket_id", key.BracketID),
				slog.Any("error", err))
		}
		return nil, err
	}

	snap := s.snapshot(ctx, st)
	if committed {
		s.observeQueue(key, st)
		if s.publisher != nil {
			s.publisher.PublishState(ctx, snap)
		}
	}
	return snap, nil
}

// snapshot fills in participant names; a failed lookup only costs the names.
func (s *schedulerService) snapshot(ctx context.Context, st *models.BracketState) *models.Snapshot {
	snap := models.NewSnapshot(st, s.clock.Now().UTC())
	if s.directory == nil {
		return snap
	}

	ids := make([]int, 0, len(snap.Matches)*2)
	for _, m := range snap.Matches {
		ids = append(ids, m.Participants()...)
	}
	names, err := s.directory.Names(ctx, ids)
	if err != nil {
		s.logger.Warn("participant names unavailable",
			slog.Int("tournament_id", snap.TournamentID),
			slog.Int("bracket_id", snap.BracketID),
			slog.Any("error", err))
		return snap
	}
	for i := range snap.Matches {
		m := &snap.Matches[i]
		if m.P1ID != nil {
			m.P1Name = names[*m.P1ID]
		}
		if m.P2ID != nil {
			m.P2Name = names[*m.P2ID]
		}
	}
	return snap
}

func (s *schedulerService) notice(level models.NoticeLevel, msg string) models.Notice {
	return models.Notice{Level: level, Message: msg, At: s.clock.Now().UTC()}
}

func (s *schedulerService) assignmentNotices(st *models.BracketState, made []brackets.Assignment) []models.Notice {
	out := make([]models.Notice, 0, len(made))
	for _, a := range made {
		name := fmt.Sprintf("court %d", a.CourtID)
		if c := st.CourtByID(a.CourtID); c != nil {
			name = c.Name
		}
		out = append(out, s.notice(models.NoticeInfo, fmt.Sprintf("match %d assigned to %s", a.MatchID, name)))
	}
	return out
}

func (s *schedulerService) publishNotices(ctx context.Context, key models.BracketKey, notices []models.Notice) {
	if s.publisher == nil {
		return
	}
	for _, n := range notices {
		s.publisher.PublishNotice(ctx, key, n)
	}
}

func (s *schedulerService) record(op string, start time.Time, err error) {
	if s.observer == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = ErrorCode(err)
	}
	s.observer.ObserveOperation(op, outcome, s.clock.Since(start))
}

func (s *schedulerService) observeQueue(key models.BracketKey, st *models.BracketState) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveQueue(key, len(brackets.QueuedMatches(st)))
}
