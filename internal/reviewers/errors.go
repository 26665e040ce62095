package reviewers

import "errors"

// Capability failure taxonomy. Timeout and failure are transient and
// subject to bounded retry; rejected is permanent and aborts the session.
var (
	ErrTimeout     = errors.New("capability timed out")
	ErrFailure     = errors.New("capability call failed")
	ErrRejected    = errors.New("capability rejected")
	ErrUnknownRole = errors.New("unknown reviewer role")
)
