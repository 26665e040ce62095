package reviewers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cerina/foundry/internal/sessions"
)

// retrying wraps a capability with the session's timeout and retry bounds.
// Transient failures (timeout, failure) are retried; once the bound is
// exhausted they escalate to ErrRejected. Permanent rejections pass through
// immediately.
type retrying struct {
	inner  Capability
	logger *slog.Logger
}

// WithRetry decorates a capability with bounded retry. Timeout and retry
// limits come from the session's frozen settings at evaluation time.
func WithRetry(inner Capability, logger *slog.Logger) Capability {
	return &retrying{
		inner:  inner,
		logger: logger,
	}
}

func (r *retrying) Evaluate(
	ctx context.Context,
	snapshot *sessions.Session,
	rc RoleContext,
) (*Delta, error) {
	attempts := snapshot.Settings.CapabilityRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	timeout := snapshot.Settings.CapabilityTimeoutDuration()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		delta, err := r.attempt(ctx, snapshot, rc, timeout)
		if err == nil {
			return delta, nil
		}
		if errors.Is(err, ErrRejected) {
			return nil, err
		}
		// Parent cancellation is not a capability verdict; hand it back
		// untouched so the caller can abort without failing the session.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		r.logger.Warn(
			"capability attempt failed",
			"role", rc.Role,
			"attempt", attempt,
			"max_attempts", attempts,
			"error", err,
		)
	}

	return nil, fmt.Errorf("%w: %s exhausted %d attempts: %w", ErrRejected, rc.Role, attempts, lastErr)
}

func (r *retrying) attempt(
	ctx context.Context,
	snapshot *sessions.Session,
	rc RoleContext,
	timeout time.Duration,
) (*Delta, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.inner.Evaluate(ctx, snapshot, rc)
}
