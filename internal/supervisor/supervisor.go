package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cerina/foundry/internal/reviewers"
	"github.com/cerina/foundry/internal/sessions"
)

// Supervisor decides and executes workflow transitions. It operates on a
// working copy of the session: the caller loads a snapshot, hands a clone
// here, and commits the mutated clone through the store's compare-and-swap.
type Supervisor struct {
	registry *reviewers.Registry
	logger   *slog.Logger
}

// New creates a Supervisor over the given capability registry.
func New(registry *reviewers.Registry, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		registry: registry,
		logger:   logger.With("system", "supervisor"),
	}
}

// Transition executes exactly one state-machine edge against the working
// copy. Halted is true when the session is awaiting a human decision or has
// reached a terminal state. Capability calls run against the immutable
// snapshot semantics: the working copy is only read until the call returns,
// and the proposed delta is merged before the caller commits.
func (sv *Supervisor) Transition(ctx context.Context, work *sessions.Session) (halted bool, err error) {
	switch {
	case work.Terminal():
		return true, fmt.Errorf("%w: session is %s", sessions.ErrInvalidTransition, work.Status)
	case work.Status == sessions.StatusPendingHumanReview:
		return true, nil
	case work.Status == sessions.StatusEvaluate:
		return sv.evaluate(work)
	default:
		return sv.review(ctx, work)
	}
}

// review runs the capability for the current review state and advances to
// the next state in the fixed pass order.
func (sv *Supervisor) review(ctx context.Context, work *sessions.Session) (bool, error) {
	role, ok := reviewRoles[work.Status]
	if !ok {
		return true, fmt.Errorf("%w: no reviewer for status %s", sessions.ErrInvalidTransition, work.Status)
	}

	capability, err := sv.registry.Get(role)
	if err != nil {
		return true, err
	}

	rc := reviewers.RoleContext{
		Role:      role,
		Iteration: work.IterationCount,
	}
	if role == sessions.RoleDrafting {
		rc.Feedback = aggregateFeedback(work)
	}

	delta, err := capability.Evaluate(ctx, work.Clone(), rc)
	if err != nil {
		// A dead parent context is the caller shutting down, not a
		// capability verdict; surface it and leave the session untouched
		// for resume.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return true, ctxErr
		}
		// Retry bounds are exhausted by the capability layer; whatever
		// reaches this point is permanent.
		sv.fail(work, role, err)
		return true, nil
	}

	sv.merge(work, role, delta)

	next := nextReview[work.Status]
	if err := advance(work, next); err != nil {
		return true, err
	}
	work.ActiveRole = activeRoleFor(next)

	sv.logger.InfoContext(
		ctx, "review step complete",
		"session", work.ID,
		"role", role,
		"status", work.Status,
		"iteration", work.IterationCount,
	)
	return false, nil
}

// evaluate applies the threshold gate: halt for human review, loop back to
// drafting, or force escalation once iterations are exhausted.
func (sv *Supervisor) evaluate(work *sessions.Session) (bool, error) {
	gate := EvaluateGate(work)

	switch {
	case gate.Met:
		if err := advance(work, sessions.StatusPendingHumanReview); err != nil {
			return true, err
		}
		work.ActiveRole = sessions.RoleHuman
		// A prior forced escalation is history once the thresholds pass;
		// the marker always reflects the latest halt.
		work.ForceEscalated = false
		sv.record(work, "halt_for_human_review", "all thresholds met", false)
		return true, nil

	case work.IterationCount < work.Settings.MaxIterations:
		work.IterationCount++
		if err := advance(work, sessions.StatusDrafting); err != nil {
			return true, err
		}
		work.ActiveRole = sessions.RoleDrafting
		sv.record(work, "revise", strings.Join(gate.Blockers, "; "), false)
		return false, nil

	default:
		// The single permitted exception to the iteration bound: the
		// session reaches the bound and is immediately halted, visibly
		// tagged for the operator.
		if err := advance(work, sessions.StatusPendingHumanReview); err != nil {
			return true, err
		}
		work.ActiveRole = sessions.RoleHuman
		work.ForceEscalated = true
		sv.record(work, "force_escalate",
			fmt.Sprintf("max iterations (%d) exhausted: %s",
				work.Settings.MaxIterations, strings.Join(gate.Blockers, "; ")),
			true,
		)
		return true, nil
	}
}

// Approve finalizes a session awaiting human review. Optional edits replace
// the current draft as a new version without re-entering the pipeline.
func (sv *Supervisor) Approve(work *sessions.Session, feedback, edits string) error {
	if work.Status != sessions.StatusPendingHumanReview {
		return fmt.Errorf("%w: approve requires %s, session is %s",
			sessions.ErrInvalidTransition, sessions.StatusPendingHumanReview, work.Status)
	}
	if work.ForceEscalated && !work.Settings.AllowEscalatedApproval {
		return fmt.Errorf("%w: approval blocked for force-escalated session", sessions.ErrInvalidTransition)
	}

	if edits != "" {
		work.AppendDraft(edits, sessions.RoleHuman, "human edits on approval")
	}
	if feedback != "" {
		work.HumanFeedback = feedback
	}

	if err := advance(work, sessions.StatusApproved); err != nil {
		return err
	}
	work.ActiveRole = sessions.RoleHuman
	sv.record(work, "approve", feedback, false)
	return nil
}

// Reject sends a session awaiting human review back to drafting with the
// reviewer's feedback merged into the next pass. The iteration count
// increments but never exceeds the configured bound.
func (sv *Supervisor) Reject(work *sessions.Session, feedback, edits string) error {
	if work.Status != sessions.StatusPendingHumanReview {
		return fmt.Errorf("%w: reject requires %s, session is %s",
			sessions.ErrInvalidTransition, sessions.StatusPendingHumanReview, work.Status)
	}

	work.HumanFeedback = feedback
	if edits != "" {
		work.AppendDraft(edits, sessions.RoleHuman, "human edits on rejection")
	}

	if work.IterationCount < work.Settings.MaxIterations {
		work.IterationCount++
	}

	if err := advance(work, sessions.StatusDrafting); err != nil {
		return err
	}
	work.ActiveRole = sessions.RoleDrafting
	sv.record(work, "reject", feedback, false)
	return nil
}

// Cancel force-terminates a non-terminal session to failed or rejected.
func (sv *Supervisor) Cancel(work *sessions.Session, target sessions.Status, reason string) error {
	if target != sessions.StatusFailed && target != sessions.StatusRejected {
		return fmt.Errorf("%w: cancel target must be %s or %s",
			sessions.ErrInvalidTransition, sessions.StatusFailed, sessions.StatusRejected)
	}
	if err := advance(work, target); err != nil {
		return err
	}
	if target == sessions.StatusFailed {
		work.FailureReason = reason
	}
	sv.record(work, "cancel", reason, false)
	return nil
}

// merge applies a capability's proposed delta to the working copy.
func (sv *Supervisor) merge(work *sessions.Session, role sessions.Role, delta *reviewers.Delta) {
	if delta.UpdatedDraft != nil {
		work.AppendDraft(*delta.UpdatedDraft, role, delta.ChangesSummary)
	}
	if delta.Finding != nil {
		finding := *delta.Finding
		finding.Iteration = work.IterationCount
		work.RecordFinding(finding)
	}
	work.Flags = append(work.Flags, delta.Flags...)
	work.AppendDebate(role, "", delta.Debate, delta.DebateType)
}

func (sv *Supervisor) fail(work *sessions.Session, role sessions.Role, cause error) {
	work.Status = sessions.StatusFailed
	work.ActiveRole = role
	work.FailureReason = fmt.Sprintf("%s: %v", role, cause)
	sv.record(work, "fail", work.FailureReason, false)
	sv.logger.Error("capability failure aborted session", "session", work.ID, "role", role, "error", cause)
}

func (sv *Supervisor) record(work *sessions.Session, decision, reasoning string, forced bool) {
	work.Decisions = append(work.Decisions, sessions.DecisionRecord{
		Decision:  decision,
		Reasoning: reasoning,
		Iteration: work.IterationCount,
		Forced:    forced,
		Timestamp: time.Now().UTC(),
	})
}

func activeRoleFor(status sessions.Status) sessions.Role {
	if role, ok := reviewRoles[status]; ok {
		return role
	}
	return sessions.RoleSupervisor
}
