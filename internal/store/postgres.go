package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/pagination"
	"github.com/cerina/foundry/pkg/query"
	"github.com/cerina/foundry/pkg/repository"
)

type postgres struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewPostgres creates a PostgreSQL-backed store implementing System.
func NewPostgres(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &postgres{
		db:         db,
		logger:     logger.With("system", "store"),
		pagination: pagination,
	}
}

const insertSessionQuery = `
	INSERT INTO sessions(id, goal, status, active_role, iteration_count, force_escalated,
		safety_score, clinical_score, empathy_score, version, snapshot, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const insertCheckpointQuery = `
	INSERT INTO checkpoints(id, session_id, parent_id, snapshot, created_at)
	VALUES ($1, $2, $3, $4, $5)`

const checkpointColumns = "id, session_id, parent_id, snapshot, created_at"

func (p *postgres) Create(ctx context.Context, s *sessions.Session) (*checkpoints.Checkpoint, error) {
	root, err := checkpoints.New(s, nil)
	if err != nil {
		return nil, err
	}

	_, err = repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, insertSessionQuery, sessionArgs(s)...); err != nil {
			return struct{}{}, fmt.Errorf("insert session: %w", err)
		}
		if err := appendCheckpoint(ctx, tx, root); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("session created", "id", s.ID, "goal", s.Goal)
	return root, nil
}

func (p *postgres) Load(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	var snapshot []byte
	row := p.db.QueryRowContext(ctx, "SELECT snapshot FROM sessions WHERE id = $1", id)
	if err := row.Scan(&snapshot); err != nil {
		return nil, repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
	}

	var s sessions.Session
	if err := json.Unmarshal(snapshot, &s); err != nil {
		return nil, fmt.Errorf("%w: session %s: %w", sessions.ErrCheckpointCorrupt, id, err)
	}
	return &s, nil
}

func (p *postgres) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters sessions.Filters,
) (*pagination.PageResult[sessions.Summary], error) {
	page.Normalize(p.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Goal")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	summaries, err := repository.QueryMany(ctx, p.db, pageSQL, pageArgs, scanSummary)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}

	result := pagination.NewPageResult(summaries, total, page.Page, page.PageSize)
	return &result, nil
}

const casQuery = `
	UPDATE sessions
	SET status = $3, active_role = $4, iteration_count = $5, force_escalated = $6,
		safety_score = $7, clinical_score = $8, empathy_score = $9,
		version = $10, snapshot = $11, updated_at = $12
	WHERE id = $1 AND version = $2`

func (p *postgres) CompareAndSwap(
	ctx context.Context,
	id uuid.UUID,
	expected int64,
	updated *sessions.Session,
) (*sessions.Session, *checkpoints.Checkpoint, error) {
	committed := updated.Clone()
	committed.Version = expected + 1
	committed.UpdatedAt = time.Now().UTC()

	cp, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (*checkpoints.Checkpoint, error) {
		snapshot, err := json.Marshal(committed)
		if err != nil {
			return nil, fmt.Errorf("marshal session snapshot: %w", err)
		}

		safety, clinical, empathy := scoreColumns(committed)
		result, err := tx.ExecContext(ctx, casQuery,
			id, expected,
			committed.Status, committed.ActiveRole, committed.IterationCount, committed.ForceEscalated,
			safety, clinical, empathy,
			committed.Version, snapshot, committed.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("update session: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, casConflict(ctx, tx, id)
		}

		parent, err := latestCheckpoint(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		cp, err := checkpoints.New(committed, &parent.ID)
		if err != nil {
			return nil, err
		}
		if err := appendCheckpoint(ctx, tx, cp); err != nil {
			return nil, err
		}
		return cp, nil
	})
	if err != nil {
		return nil, nil, err
	}

	return committed, cp, nil
}

func (p *postgres) Latest(ctx context.Context, sessionID uuid.UUID) (*checkpoints.Checkpoint, error) {
	return latestCheckpoint(ctx, p.db, sessionID)
}

func (p *postgres) Find(ctx context.Context, checkpointID uuid.UUID) (*checkpoints.Checkpoint, error) {
	q := fmt.Sprintf("SELECT %s FROM checkpoints WHERE id = $1", checkpointColumns)
	c, err := repository.QueryOne(ctx, p.db, q, []any{checkpointID}, scanCheckpoint)
	if err != nil {
		return nil, repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
	}
	return &c, nil
}

// historyQuery walks the chain backward from the session's head, crossing
// into ancestor sessions through fork points, then emits oldest-first.
const historyQuery = `
	WITH RECURSIVE chain AS (
		SELECT c.id, c.session_id, c.parent_id, c.snapshot, c.created_at, c.seq
		FROM checkpoints c
		WHERE c.session_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM checkpoints x
			WHERE x.parent_id = c.id AND x.session_id = c.session_id
		  )
		UNION ALL
		SELECT p.id, p.session_id, p.parent_id, p.snapshot, p.created_at, p.seq
		FROM checkpoints p
		JOIN chain ch ON ch.parent_id = p.id
	)
	SELECT id, session_id, parent_id, snapshot, created_at
	FROM chain
	ORDER BY seq ASC`

func (p *postgres) History(ctx context.Context, sessionID uuid.UUID) iter.Seq2[*checkpoints.Checkpoint, error] {
	return func(yield func(*checkpoints.Checkpoint, error) bool) {
		rows, err := p.db.QueryContext(ctx, historyQuery, sessionID)
		if err != nil {
			yield(nil, fmt.Errorf("query history: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanCheckpoint(rows)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(&c, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (p *postgres) Fork(ctx context.Context, checkpointID uuid.UUID) (*sessions.Session, *checkpoints.Checkpoint, error) {
	source, err := p.Find(ctx, checkpointID)
	if err != nil {
		return nil, nil, err
	}

	forked, err := source.Restore()
	if err != nil {
		return nil, nil, err
	}

	forked.ID = uuid.New()
	now := time.Now().UTC()
	forked.UpdatedAt = now

	root, err := checkpoints.New(forked, &source.ID)
	if err != nil {
		return nil, nil, err
	}

	_, err = repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(ctx, insertSessionQuery, sessionArgs(forked)...); err != nil {
			return struct{}{}, fmt.Errorf("insert forked session: %w", err)
		}
		if err := appendCheckpoint(ctx, tx, root); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return nil, nil, err
	}

	p.logger.Info("session forked", "source_checkpoint", checkpointID, "id", forked.ID)
	return forked, root, nil
}

func (p *postgres) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	failed := &sessions.Session{
		ID:            id,
		Status:        sessions.StatusFailed,
		FailureReason: reason,
		UpdatedAt:     time.Now().UTC(),
	}

	_, err := repository.WithTx(ctx, p.db, func(tx *sql.Tx) (struct{}, error) {
		row := tx.QueryRowContext(ctx, "SELECT goal, version, created_at FROM sessions WHERE id = $1", id)
		if err := row.Scan(&failed.Goal, &failed.Version, &failed.CreatedAt); err != nil {
			return struct{}{}, repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
		}
		failed.Version++

		snapshot, err := json.Marshal(failed)
		if err != nil {
			return struct{}{}, err
		}

		if err := repository.ExecExpectOne(ctx, tx,
			`UPDATE sessions SET status = $2, version = $3, snapshot = $4, updated_at = $5 WHERE id = $1`,
			id, failed.Status, failed.Version, snapshot, failed.UpdatedAt,
		); err != nil {
			return struct{}{}, repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
		}

		parent, err := latestCheckpoint(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}

		cp, err := checkpoints.New(failed, &parent.ID)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, appendCheckpoint(ctx, tx, cp)
	})
	if err != nil {
		return err
	}

	p.logger.Warn("session marked failed", "id", id, "reason", reason)
	return nil
}

func sessionArgs(s *sessions.Session) []any {
	snapshot, _ := json.Marshal(s)
	safety, clinical, empathy := scoreColumns(s)
	return []any{
		s.ID, s.Goal, s.Status, s.ActiveRole, s.IterationCount, s.ForceEscalated,
		safety, clinical, empathy, s.Version, snapshot, s.CreatedAt, s.UpdatedAt,
	}
}

func appendCheckpoint(ctx context.Context, e repository.Executor, c *checkpoints.Checkpoint) error {
	if _, err := e.ExecContext(ctx, insertCheckpointQuery,
		c.ID, c.SessionID, c.ParentID, []byte(c.Snapshot), c.CreatedAt,
	); err != nil {
		return fmt.Errorf("append checkpoint: %w", err)
	}
	return nil
}

func latestCheckpoint(ctx context.Context, q repository.Querier, sessionID uuid.UUID) (*checkpoints.Checkpoint, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM checkpoints WHERE session_id = $1 ORDER BY seq DESC LIMIT 1",
		checkpointColumns,
	)
	c, err := repository.QueryOne(ctx, q, query, []any{sessionID}, scanCheckpoint)
	if err != nil {
		return nil, repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
	}
	return &c, nil
}

// casConflict distinguishes a missing session from a version conflict after
// a zero-row compare-and-swap update.
func casConflict(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	var version int64
	row := tx.QueryRowContext(ctx, "SELECT version FROM sessions WHERE id = $1", id)
	if err := row.Scan(&version); err != nil {
		return repository.MapError(err, sessions.ErrNotFound, sessions.ErrStaleState)
	}
	return fmt.Errorf("%w: stored version %d", sessions.ErrStaleState, version)
}
