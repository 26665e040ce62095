package engine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
)

// Event describes one committed transition for observers. It is a read-only
// projection; observers never see or mutate the session itself.
type Event struct {
	SessionID      uuid.UUID           `json:"session_id"`
	CheckpointID   uuid.UUID           `json:"checkpoint_id"`
	Status         sessions.Status     `json:"status"`
	ActiveRole     sessions.Role       `json:"active_role"`
	IterationCount int                 `json:"iteration_count"`
	Version        int64               `json:"version"`
	ForceEscalated bool                `json:"force_escalated"`
	Halted         bool                `json:"halted"`
	Scores         map[string]*float64 `json:"scores"`
	DraftPreview   string              `json:"draft_preview"`
}

// Observer receives a notification after each committed transition.
// Implementations must not block; slow consumers should buffer internally.
type Observer interface {
	StepCompleted(ctx context.Context, event Event)
}

const previewRunes = 200

func newEvent(s *sessions.Session, cp *checkpoints.Checkpoint, halted bool) Event {
	scores := make(map[string]*float64, 3)
	for _, role := range []sessions.Role{sessions.RoleSafety, sessions.RoleClinical, sessions.RoleEmpathy} {
		if score, ok := s.CurrentScore(role); ok {
			v := score
			scores[string(role)] = &v
		} else {
			scores[string(role)] = nil
		}
	}

	event := Event{
		SessionID:      s.ID,
		Status:         s.Status,
		ActiveRole:     s.ActiveRole,
		IterationCount: s.IterationCount,
		Version:        s.Version,
		ForceEscalated: s.ForceEscalated,
		Halted:         halted,
		Scores:         scores,
		DraftPreview:   s.DraftPreview(previewRunes),
	}
	if cp != nil {
		event.CheckpointID = cp.ID
	}
	return event
}

// LogObserver writes each transition to the structured log.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates an observer that logs committed transitions.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger.With("system", "engine")}
}

// StepCompleted logs the transition summary.
func (o *LogObserver) StepCompleted(ctx context.Context, event Event) {
	o.logger.InfoContext(
		ctx, "transition committed",
		"session", event.SessionID,
		"checkpoint", event.CheckpointID,
		"status", event.Status,
		"role", event.ActiveRole,
		"iteration", event.IterationCount,
		"version", event.Version,
		"halted", event.Halted,
	)
}
