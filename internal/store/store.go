// Package store persists sessions and their checkpoint chains. It is the
// only shared mutable resource in the system: every mutation goes through
// CompareAndSwap on the session's version token, and each successful swap
// appends exactly one checkpoint in the same transaction, so the chain
// never diverges from the session row it projects.
package store

import (
	"context"
	"iter"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/pagination"
)

// System is the combined session and checkpoint store contract.
type System interface {
	// Create persists a new session and its root checkpoint.
	Create(ctx context.Context, s *sessions.Session) (*checkpoints.Checkpoint, error)

	// Load returns the session with the given id, or sessions.ErrNotFound.
	// Returns sessions.ErrCheckpointCorrupt when the stored snapshot is
	// unreadable.
	Load(ctx context.Context, id uuid.UUID) (*sessions.Session, error)

	// List returns a page of session summaries matching the filters.
	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters sessions.Filters,
	) (*pagination.PageResult[sessions.Summary], error)

	// CompareAndSwap commits updated only if the stored version still
	// equals expected, incrementing the version and appending a checkpoint
	// whose parent is the chain head at the expected version — all in one
	// atomic attempt. Returns sessions.ErrStaleState on a version conflict.
	// The updated session must carry Version == expected; the committed
	// copy is returned with Version == expected+1.
	CompareAndSwap(
		ctx context.Context,
		id uuid.UUID,
		expected int64,
		updated *sessions.Session,
	) (*sessions.Session, *checkpoints.Checkpoint, error)

	// Latest returns the chain head checkpoint for a session.
	Latest(ctx context.Context, sessionID uuid.UUID) (*checkpoints.Checkpoint, error)

	// Find returns a checkpoint by id.
	Find(ctx context.Context, checkpointID uuid.UUID) (*checkpoints.Checkpoint, error)

	// History yields the session's checkpoint chain oldest-first, including
	// shared ancestry inherited through forks. The sequence is lazy and
	// restartable; re-ranging re-reads the chain.
	History(ctx context.Context, sessionID uuid.UUID) iter.Seq2[*checkpoints.Checkpoint, error]

	// Fork creates a new session lineage whose state equals the snapshot at
	// the given checkpoint. The fork's root checkpoint points at the source
	// checkpoint, preserving prior history as shared ancestry.
	Fork(ctx context.Context, checkpointID uuid.UUID) (*sessions.Session, *checkpoints.Checkpoint, error)

	// MarkFailed force-writes a terminal failed state for a session whose
	// snapshot can no longer be read. It bypasses CompareAndSwap because a
	// corrupt snapshot cannot be loaded for mutation.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}
