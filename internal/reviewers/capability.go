// Package reviewers implements the reviewer capability boundary: the four
// pipeline roles (drafting, clinical critic, safety guardian, empathy) as
// implementations of a single evaluate contract. Capabilities never mutate
// session state; they return a proposed delta that the supervisor applies
// at commit time.
package reviewers

import (
	"context"

	"github.com/cerina/foundry/internal/sessions"
)

// RoleContext carries the per-invocation inputs for a capability call.
type RoleContext struct {
	Role      sessions.Role
	Iteration int
	// Feedback aggregates prior findings and human feedback for the next
	// pass. Populated by the supervisor when looping back to drafting.
	Feedback string
}

// Delta is a capability's proposed contribution, applied by the supervisor
// on commit. All fields are optional except the debate message.
type Delta struct {
	UpdatedDraft   *string
	ChangesSummary string
	Finding        *sessions.ReviewFinding
	Flags          []sessions.SafetyFlag
	Debate         string
	DebateType     sessions.MessageType
}

// Capability evaluates an immutable session snapshot for one role. It must
// return within the session's configured timeout or fail with ErrTimeout.
// ErrFailure is transient and retried up to the session's retry bound;
// ErrRejected is permanent and drives the session to failed.
type Capability interface {
	Evaluate(ctx context.Context, snapshot *sessions.Session, rc RoleContext) (*Delta, error)
}
