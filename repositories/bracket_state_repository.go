package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/court-scheduler/models"
	"github.com/lib/pq"
	"golang.org/x/sync/errgroup"
)

var (
	ErrBracketNotFound = errors.New("bracket not found")
	ErrMatchNotFound   = errors.New("schedule match not found")
	// ErrNoChange aborts a mutation without an error: nothing is written and
	// the version is not bumped.
	ErrNoChange = errors.New("mutation left the state unchanged")
)

// Mutation edits a bracket state in place. allocate hands out ids for new
// courts. Returning an error discards every change.
type Mutation func(st *models.BracketState, allocate func() (int, error)) error

// BracketStateRepository is the single writer for each bracket's courts and
// matches. Update calls for the same bracket never overlap.
type BracketStateRepository interface {
	Get(ctx context.Context, key models.BracketKey) (*models.BracketState, error)
	Update(ctx context.Context, key models.BracketKey, fn Mutation) (*models.BracketState, error)
}

type postgresBracketStateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresBracketStateRepository(db *sql.DB, logger *slog.Logger) BracketStateRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &postgresBracketStateRepository{db: db, logger: logger}
}

const (
	selectBracketQuery = `
		SELECT id, tournament_id, name, kind, state_version
		FROM brackets
		WHERE tournament_id = $1 AND id = $2`

	selectCourtsQuery = `
		SELECT id, tournament_id, bracket_id, name, position, status, match_id, held
		FROM courts
		WHERE tournament_id = $1 AND bracket_id = $2
		ORDER BY position ASC, id ASC`

	selectMatchesQuery = `
		SELECT id, tournament_id, bracket_id, pool, round, rr_round, match_order, status,
		       queue_order, p1_registration_id, p2_registration_id, depends_on, court_id
		FROM schedule_matches
		WHERE tournament_id = $1 AND bracket_id = $2
		ORDER BY id ASC`
)

// Get reads a committed state. Courts and matches are loaded concurrently; the
// version check afterwards guards against reading across a commit.
func (r *postgresBracketStateRepository) Get(ctx context.Context, key models.BracketKey) (*models.BracketState, error) {
	for attempt := 0; attempt < 3; attempt++ {
		bracket, version, err := r.loadBracket(ctx, r.db, key)
		if err != nil {
			return nil, err
		}

		st := &models.BracketState{Bracket: *bracket, Version: version}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			courts, err := r.loadCourts(gctx, r.db, key)
			st.Courts = courts
			return err
		})
		g.Go(func() error {
			matches, err := r.loadMatches(gctx, r.db, key)
			st.Matches = matches
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		_, after, err := r.loadBracket(ctx, r.db, key)
		if err != nil {
			return nil, err
		}
		if after == version {
			return st, nil
		}
		r.logger.Debug("bracket changed while reading, retrying",
			slog.Int("tournament_id", key.TournamentID),
			slog.Int("bracket_id", key.BracketID))
	}
	return nil, fmt.Errorf("%w: bracket %s kept changing during read", ErrTransient, key)
}

func (r *postgresBracketStateRepository) Update(ctx context.Context, key models.BracketKey, fn Mutation) (st *models.BracketState, txErr error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapDBError("failed to begin transaction", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("rollback failed", slog.Any("error", rbErr), slog.Any("cause", txErr))
			}
		}
	}()

	// Один писатель на сетку, в том числе между инстансами
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, key.TournamentID, key.BracketID); err != nil {
		return nil, wrapDBError("failed to lock bracket", err)
	}

	bracket, version, err := r.loadBracket(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	courts, err := r.loadCourts(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	matches, err := r.loadMatches(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	current := &models.BracketState{Bracket: *bracket, Version: version, Courts: courts, Matches: matches}
	next := current.Clone()

	allocate := func() (int, error) {
		var id int
		if err := tx.QueryRowContext(ctx, `SELECT nextval(pg_get_serial_sequence('courts', 'id'))`).Scan(&id); err != nil {
			return 0, wrapDBError("failed to allocate court id", err)
		}
		return id, nil
	}

	if err := fn(next, allocate); err != nil {
		if errors.Is(err, ErrNoChange) {
			_ = tx.Rollback()
			return current, nil
		}
		return nil, err
	}

	next.Version = version + 1
	if err := r.save(ctx, tx, key, current, next); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapDBError("failed to commit bracket state", err)
	}
	return next, nil
}

func (r *postgresBracketStateRepository) loadBracket(ctx context.Context, exec SQLExecutor, key models.BracketKey) (*models.Bracket, int64, error) {
	b := &models.Bracket{}
	var version int64
	err := exec.QueryRowContext(ctx, selectBracketQuery, key.TournamentID, key.BracketID).
		Scan(&b.ID, &b.TournamentID, &b.Name, &b.Kind, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, ErrBracketNotFound
		}
		return nil, 0, wrapDBError(fmt.Sprintf("failed to load bracket %s", key), err)
	}
	return b, version, nil
}

func (r *postgresBracketStateRepository) loadCourts(ctx context.Context, exec SQLExecutor, key models.BracketKey) ([]*models.Court, error) {
	rows, err := exec.QueryContext(ctx, selectCourtsQuery, key.TournamentID, key.BracketID)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("failed to query courts of %s", key), err)
	}
	defer rows.Close()

	courts := make([]*models.Court, 0)
	for rows.Next() {
		c := &models.Court{}
		var matchID sql.NullInt64
		if err := rows.Scan(&c.ID, &c.TournamentID, &c.BracketID, &c.Name, &c.Position, &c.Status, &matchID, &c.Held); err != nil {
			return nil, fmt.Errorf("failed to scan court row: %w", err)
		}
		c.MatchID = nullIntPtr(matchID)
		courts = append(courts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("error iterating court rows", err)
	}
	return courts, nil
}

func (r *postgresBracketStateRepository) loadMatches(ctx context.Context, exec SQLExecutor, key models.BracketKey) ([]*models.Match, error) {
	rows, err := exec.QueryContext(ctx, selectMatchesQuery, key.TournamentID, key.BracketID)
	if err != nil {
		return nil, wrapDBError(fmt.Sprintf("failed to query matches of %s", key), err)
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m := &models.Match{}
		var p1, p2, courtID sql.NullInt64
		var deps pq.Int64Array
		if err := rows.Scan(
			&m.ID, &m.TournamentID, &m.BracketID, &m.Pool, &m.Round, &m.RRRound, &m.Order, &m.Status,
			&m.QueueOrder, &p1, &p2, &deps, &courtID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		m.P1ID = nullIntPtr(p1)
		m.P2ID = nullIntPtr(p2)
		m.CourtID = nullIntPtr(courtID)
		if len(deps) > 0 {
			m.DependsOn = make([]int, len(deps))
			for i, d := range deps {
				m.DependsOn[i] = int(d)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBError("error iterating match rows", err)
	}
	return matches, nil
}

// save writes only what changed between the loaded and the mutated state.
// Binding constraints are deferred, so the order of writes inside the
// transaction does not matter.
func (r *postgresBracketStateRepository) save(ctx context.Context, tx *sql.Tx, key models.BracketKey, before, after *models.BracketState) error {
	keep := make([]int64, 0, len(after.Courts))
	for _, c := range after.Courts {
		keep = append(keep, int64(c.ID))
		if prev := before.CourtByID(c.ID); prev != nil && !courtChanged(prev, c) {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO courts (id, tournament_id, bracket_id, name, position, status, match_id, held)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, position = EXCLUDED.position, status = EXCLUDED.status,
			    match_id = EXCLUDED.match_id, held = EXCLUDED.held`,
			c.ID, key.TournamentID, key.BracketID, c.Name, c.Position, c.Status, c.MatchID, c.Held)
		if err != nil {
			return wrapDBError(fmt.Sprintf("failed to save court %d", c.ID), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM courts WHERE tournament_id = $1 AND bracket_id = $2 AND NOT (id = ANY($3))`,
		key.TournamentID, key.BracketID, pq.Array(keep)); err != nil {
		return wrapDBError("failed to delete removed courts", err)
	}

	for _, m := range after.Matches {
		if prev := before.MatchByID(m.ID); prev != nil && !matchChanged(prev, m) {
			continue
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE schedule_matches
			SET status = $1, queue_order = $2, court_id = $3
			WHERE id = $4 AND tournament_id = $5 AND bracket_id = $6`,
			m.Status, m.QueueOrder, m.CourtID, m.ID, key.TournamentID, key.BracketID)
		if err != nil {
			return wrapDBError(fmt.Sprintf("failed to save match %d", m.ID), err)
		}
		if err := checkAffectedRows(res, fmt.Errorf("%w: id %d", ErrMatchNotFound, m.ID)); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE brackets SET state_version = $1 WHERE tournament_id = $2 AND id = $3`,
		after.Version, key.TournamentID, key.BracketID)
	if err != nil {
		return wrapDBError("failed to bump bracket version", err)
	}
	return checkAffectedRows(res, ErrBracketNotFound)
}

func courtChanged(a, b *models.Court) bool {
	return a.Name != b.Name || a.Position != b.Position || a.Status != b.Status ||
		a.Held != b.Held || !equalIntPtr(a.MatchID, b.MatchID)
}

// Only the scheduling columns are owned here.
func matchChanged(a, b *models.Match) bool {
	return a.Status != b.Status || a.QueueOrder != b.QueueOrder || !equalIntPtr(a.CourtID, b.CourtID)
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
