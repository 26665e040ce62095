package engine

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/pagination"
)

const resumePageSize = 100

// resumableStatuses are the states a session can be left in by an
// interrupted run. Sessions awaiting human review keep waiting; terminal
// sessions stay terminal.
var resumableStatuses = []sessions.Status{
	sessions.StatusDrafting,
	sessions.StatusClinicalReview,
	sessions.StatusSafetyReview,
	sessions.StatusEmpathyReview,
	sessions.StatusEvaluate,
}

// Resume finds every in-flight session and runs each until it halts,
// with bounded concurrency. Each session picks up from its last committed
// checkpoint, so work lost to a crash is at most one uncommitted
// transition. The first infrastructure error cancels the remaining runs.
func (e *Engine) Resume(ctx context.Context) error {
	ids, err := e.resumable(ctx)
	if err != nil {
		return fmt.Errorf("list resumable sessions: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	e.logger.Info("resuming in-flight sessions", "count", len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resumeWorkerCount(len(ids)))

	for _, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			result, err := e.Run(gctx, id)
			if err != nil {
				return fmt.Errorf("resume session %s: %w", id, err)
			}

			e.logger.Info("session resumed",
				"session", id,
				"status", result.Session.Status,
			)
			return nil
		})
	}

	return g.Wait()
}

func (e *Engine) resumable(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	for _, status := range resumableStatuses {
		filter := sessions.Filters{Status: ptr(string(status))}

		for page := 1; ; page++ {
			result, err := e.store.List(ctx, pagination.PageRequest{
				Page:     page,
				PageSize: resumePageSize,
			}, filter)
			if err != nil {
				return nil, err
			}

			for _, s := range result.Data {
				ids = append(ids, s.ID)
			}

			if page >= result.TotalPages {
				break
			}
		}
	}

	return ids, nil
}

func resumeWorkerCount(n int) int {
	return max(min(runtime.NumCPU(), n), 1)
}

func ptr[T any](v T) *T {
	return &v
}
