package sessions

import (
	"errors"
	"net/http"
)

// Domain errors for session operations.
var (
	ErrNotFound          = errors.New("session not found")
	ErrStaleState        = errors.New("session version conflict")
	ErrInvalidTransition = errors.New("operation invalid for current session status")
	ErrCheckpointCorrupt = errors.New("checkpoint snapshot unreadable")
)

// MapHTTPStatus maps session domain errors to HTTP status codes.
// Stale state maps to 409 so callers reload and retry rather than treating
// the conflict as a failure.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrStaleState) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidTransition) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
