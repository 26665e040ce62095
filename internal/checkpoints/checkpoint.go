// Package checkpoints defines the immutable session snapshot chain.
// Checkpoints form a singly-linked, append-only chain per session; the
// chain is the full audit trail and the substrate for crash recovery and
// forking. A session is a logical projection of the latest checkpoint in
// its chain.
package checkpoints

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/sessions"
)

// Checkpoint is one immutable snapshot in a session's chain. ParentID is
// nil only for the root checkpoint of a lineage; a fork's root points at
// the source checkpoint in another session's chain, preserving shared
// ancestry.
type Checkpoint struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	ParentID  *uuid.UUID      `json:"parent_id,omitempty"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates a checkpoint capturing the session's current state.
func New(s *sessions.Session, parentID *uuid.UUID) (*Checkpoint, error) {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session snapshot: %w", err)
	}

	return &Checkpoint{
		ID:        uuid.New(),
		SessionID: s.ID,
		ParentID:  parentID,
		Snapshot:  snapshot,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Restore deserializes the checkpoint's snapshot back into a session.
// Returns sessions.ErrCheckpointCorrupt when the snapshot is unreadable.
func (c *Checkpoint) Restore() (*sessions.Session, error) {
	var s sessions.Session
	if err := json.Unmarshal(c.Snapshot, &s); err != nil {
		return nil, fmt.Errorf("%w: checkpoint %s: %w", sessions.ErrCheckpointCorrupt, c.ID, err)
	}
	return &s, nil
}
