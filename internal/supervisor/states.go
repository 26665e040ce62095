// Package supervisor implements the workflow state machine: a static
// transition table over the review pipeline, the threshold gate, and the
// human decision edges. Every legal path through a session is enumerable
// from the table; anything else fails with an invalid-transition error.
package supervisor

import (
	"fmt"
	"slices"

	"github.com/cerina/foundry/internal/sessions"
)

// edges is the static transition table. Operator cancellation to failed or
// rejected is permitted from every non-terminal state.
var edges = map[sessions.Status][]sessions.Status{
	sessions.StatusDrafting: {
		sessions.StatusClinicalReview,
		sessions.StatusFailed,
		sessions.StatusRejected,
	},
	sessions.StatusClinicalReview: {
		sessions.StatusSafetyReview,
		sessions.StatusFailed,
		sessions.StatusRejected,
	},
	sessions.StatusSafetyReview: {
		sessions.StatusEmpathyReview,
		sessions.StatusFailed,
		sessions.StatusRejected,
	},
	sessions.StatusEmpathyReview: {
		sessions.StatusEvaluate,
		sessions.StatusFailed,
		sessions.StatusRejected,
	},
	sessions.StatusEvaluate: {
		sessions.StatusPendingHumanReview,
		sessions.StatusDrafting,
		sessions.StatusFailed,
		sessions.StatusRejected,
	},
	sessions.StatusPendingHumanReview: {
		sessions.StatusApproved,
		sessions.StatusRejected,
		sessions.StatusDrafting,
		sessions.StatusFailed,
	},
	sessions.StatusApproved: {},
	sessions.StatusRejected: {},
	sessions.StatusFailed:   {},
}

// reviewRoles maps each review state to the capability it invokes.
var reviewRoles = map[sessions.Status]sessions.Role{
	sessions.StatusDrafting:       sessions.RoleDrafting,
	sessions.StatusClinicalReview: sessions.RoleClinical,
	sessions.StatusSafetyReview:   sessions.RoleSafety,
	sessions.StatusEmpathyReview:  sessions.RoleEmpathy,
}

// nextReview is the fixed linear order of one review pass.
var nextReview = map[sessions.Status]sessions.Status{
	sessions.StatusDrafting:       sessions.StatusClinicalReview,
	sessions.StatusClinicalReview: sessions.StatusSafetyReview,
	sessions.StatusSafetyReview:   sessions.StatusEmpathyReview,
	sessions.StatusEmpathyReview:  sessions.StatusEvaluate,
}

// CanTransition reports whether the table contains the edge from → to.
func CanTransition(from, to sessions.Status) bool {
	return slices.Contains(edges[from], to)
}

// advance moves the working copy along a table edge, or fails with
// sessions.ErrInvalidTransition leaving the copy untouched.
func advance(work *sessions.Session, to sessions.Status) error {
	if !CanTransition(work.Status, to) {
		return fmt.Errorf("%w: %s -> %s", sessions.ErrInvalidTransition, work.Status, to)
	}
	work.Status = to
	return nil
}
