// Package engine drives sessions through the review pipeline: load a
// snapshot, compute one transition on a working copy, commit through the
// store's compare-and-swap, notify observers. The engine never mutates a
// loaded session in place; a lost race surfaces as a stale-state conflict
// for the caller to retry.
package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/internal/store"
	"github.com/cerina/foundry/internal/supervisor"
	"github.com/cerina/foundry/pkg/pagination"
)

// CreateCommand carries the inputs for starting a session. When Settings is
// nil the engine's configured defaults apply; either way the settings are
// frozen into the session for its lifetime.
type CreateCommand struct {
	Goal     string             `json:"goal"`
	Context  string             `json:"context,omitempty"`
	Settings *sessions.Settings `json:"settings,omitempty"`
}

// Decision carries a human reviewer's verdict on a session awaiting review.
// Version is the caller's concurrency token: the decision applies only if
// the session has not moved since the caller observed it.
type Decision struct {
	Version  int64  `json:"version"`
	Feedback string `json:"feedback,omitempty"`
	Edits    string `json:"edits,omitempty"`
}

// StepResult is the outcome of one committed transition.
type StepResult struct {
	Session *sessions.Session `json:"session"`
	Halted  bool              `json:"halted"`
}

// ErrGoalRequired rejects session creation without a goal.
var ErrGoalRequired = errors.New("session goal is required")

// Engine coordinates the store, the supervisor, and registered observers.
type Engine struct {
	store      store.System
	supervisor *supervisor.Supervisor
	defaults   sessions.Settings
	observers  []Observer
	logger     *slog.Logger
}

// New creates an Engine with the given collaborators and default settings.
func New(
	st store.System,
	sv *supervisor.Supervisor,
	defaults sessions.Settings,
	logger *slog.Logger,
	observers ...Observer,
) *Engine {
	return &Engine{
		store:      st,
		supervisor: sv,
		defaults:   defaults,
		observers:  observers,
		logger:     logger.With("system", "engine"),
	}
}

// Create starts a new session in the drafting state and persists it with
// its root checkpoint. The session does not advance until Step or Run.
func (e *Engine) Create(ctx context.Context, cmd CreateCommand) (*sessions.Session, error) {
	if cmd.Goal == "" {
		return nil, ErrGoalRequired
	}

	settings := e.defaults
	if cmd.Settings != nil {
		settings = *cmd.Settings
	}

	s := sessions.New(cmd.Goal, cmd.Context, settings)
	if _, err := e.store.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	e.logger.Info("session created", "session", s.ID, "goal", s.Goal)
	return s, nil
}

// Get returns the session with the given id. A corrupt snapshot is marked
// failed before the error is surfaced, so the failure is durable.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	return e.load(ctx, id)
}

// List returns a page of session summaries matching the filters.
func (e *Engine) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters sessions.Filters,
) (*pagination.PageResult[sessions.Summary], error) {
	return e.store.List(ctx, page, filters)
}

// Step executes exactly one transition and commits it. Halted is true when
// the session is awaiting a human decision or reached a terminal state. A
// session already awaiting human review is returned unchanged with no new
// checkpoint; a terminal session fails with an invalid-transition error.
func (e *Engine) Step(ctx context.Context, id uuid.UUID) (*StepResult, error) {
	loaded, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if loaded.Terminal() {
		return nil, fmt.Errorf("%w: session is %s", sessions.ErrInvalidTransition, loaded.Status)
	}
	if loaded.Status == sessions.StatusPendingHumanReview {
		return &StepResult{Session: loaded, Halted: true}, nil
	}

	work := loaded.Clone()
	halted, err := e.supervisor.Transition(ctx, work)
	if err != nil {
		return nil, err
	}

	committed, cp, err := e.store.CompareAndSwap(ctx, id, loaded.Version, work)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, committed, cp, halted)
	return &StepResult{Session: committed, Halted: halted}, nil
}

// Run steps the session repeatedly until it halts or the context is
// canceled. Each intermediate state is committed and checkpointed, so an
// interrupted run resumes from the last committed transition.
func (e *Engine) Run(ctx context.Context, id uuid.UUID) (*StepResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := e.Step(ctx, id)
		if err != nil {
			return nil, err
		}
		if result.Halted {
			return result, nil
		}
	}
}

// Approve finalizes a session awaiting human review.
func (e *Engine) Approve(ctx context.Context, id uuid.UUID, d Decision) (*sessions.Session, error) {
	return e.decide(ctx, id, d, func(work *sessions.Session) error {
		return e.supervisor.Approve(work, d.Feedback, d.Edits)
	})
}

// Reject sends a session awaiting human review back to drafting with the
// reviewer's feedback.
func (e *Engine) Reject(ctx context.Context, id uuid.UUID, d Decision) (*sessions.Session, error) {
	return e.decide(ctx, id, d, func(work *sessions.Session) error {
		return e.supervisor.Reject(work, d.Feedback, d.Edits)
	})
}

// Cancel force-terminates a session to failed or rejected.
func (e *Engine) Cancel(
	ctx context.Context,
	id uuid.UUID,
	d Decision,
	target sessions.Status,
) (*sessions.Session, error) {
	return e.decide(ctx, id, d, func(work *sessions.Session) error {
		return e.supervisor.Cancel(work, target, d.Feedback)
	})
}

// History yields the session's checkpoint chain oldest-first, including
// ancestry inherited through forks.
func (e *Engine) History(ctx context.Context, id uuid.UUID) iter.Seq2[*checkpoints.Checkpoint, error] {
	return e.store.History(ctx, id)
}

// Fork creates a new session lineage from the given checkpoint; when
// checkpointID is nil the source session's chain head is used.
func (e *Engine) Fork(
	ctx context.Context,
	sessionID uuid.UUID,
	checkpointID *uuid.UUID,
) (*sessions.Session, error) {
	target := checkpointID
	if target == nil {
		head, err := e.store.Latest(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		target = &head.ID
	}

	forked, cp, err := e.store.Fork(ctx, *target)
	if err != nil {
		return nil, err
	}

	e.logger.Info("session forked",
		"source", sessionID,
		"checkpoint", *target,
		"fork", forked.ID,
	)
	e.notify(ctx, forked, cp, forked.Status == sessions.StatusPendingHumanReview || forked.Terminal())
	return forked, nil
}

func (e *Engine) decide(
	ctx context.Context,
	id uuid.UUID,
	d Decision,
	apply func(*sessions.Session) error,
) (*sessions.Session, error) {
	loaded, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if loaded.Version != d.Version {
		return nil, fmt.Errorf("%w: decision based on version %d, session is at %d",
			sessions.ErrStaleState, d.Version, loaded.Version)
	}

	work := loaded.Clone()
	if err := apply(work); err != nil {
		return nil, err
	}

	committed, cp, err := e.store.CompareAndSwap(ctx, id, loaded.Version, work)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, committed, cp, committed.Terminal() || committed.Status == sessions.StatusPendingHumanReview)
	return committed, nil
}

// load wraps store.Load with corruption handling: a snapshot that cannot be
// restored marks the session failed so the condition is durable and visible
// in listings.
func (e *Engine) load(ctx context.Context, id uuid.UUID) (*sessions.Session, error) {
	s, err := e.store.Load(ctx, id)
	if err == nil {
		return s, nil
	}

	if errors.Is(err, sessions.ErrCheckpointCorrupt) {
		e.logger.Error("checkpoint corruption detected", "session", id, "error", err)
		if markErr := e.store.MarkFailed(ctx, id, err.Error()); markErr != nil {
			e.logger.Error("failed to mark corrupt session failed", "session", id, "error", markErr)
		}
	}
	return nil, err
}

func (e *Engine) notify(
	ctx context.Context,
	s *sessions.Session,
	cp *checkpoints.Checkpoint,
	halted bool,
) {
	if len(e.observers) == 0 {
		return
	}

	event := newEvent(s, cp, halted)
	for _, o := range e.observers {
		o.StepCompleted(ctx, event)
	}
}
