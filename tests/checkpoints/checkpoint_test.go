package checkpoints_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
)

func testSettings() sessions.Settings {
	return sessions.Settings{
		MinSafetyScore:    7.0,
		MinClinicalScore:  6.0,
		MinEmpathyScore:   6.0,
		MaxIterations:     5,
		CapabilityTimeout: "120s",
	}
}

func TestNewAndRestore(t *testing.T) {
	s := sessions.New("goal", "context", testSettings())
	s.AppendDraft("draft content", sessions.RoleDrafting, "initial")
	s.RecordFinding(sessions.ReviewFinding{Role: sessions.RoleClinical, Score: 7.5})
	s.AppendDebate(sessions.RoleClinical, sessions.RoleDrafting, "solid start", sessions.MessageAgreement)

	cp, err := checkpoints.New(s, nil)
	if err != nil {
		t.Fatalf("new checkpoint: %v", err)
	}

	if cp.SessionID != s.ID {
		t.Errorf("session id: got %s, want %s", cp.SessionID, s.ID)
	}
	if cp.ParentID != nil {
		t.Error("root checkpoint should have no parent")
	}

	restored, err := cp.Restore()
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.ID != s.ID {
		t.Errorf("restored id: got %s, want %s", restored.ID, s.ID)
	}
	if restored.CurrentDraft != s.CurrentDraft {
		t.Errorf("restored draft: got %q, want %q", restored.CurrentDraft, s.CurrentDraft)
	}
	if len(restored.DraftHistory) != len(s.DraftHistory) {
		t.Errorf("restored history: got %d entries, want %d", len(restored.DraftHistory), len(s.DraftHistory))
	}
	if restored.Findings[sessions.RoleClinical].Score != 7.5 {
		t.Errorf("restored finding score: got %.1f, want 7.5", restored.Findings[sessions.RoleClinical].Score)
	}
	if restored.Settings != s.Settings {
		t.Error("restored settings differ")
	}
}

func TestParentLink(t *testing.T) {
	s := sessions.New("goal", "", testSettings())
	parent := uuid.New()

	cp, err := checkpoints.New(s, &parent)
	if err != nil {
		t.Fatalf("new checkpoint: %v", err)
	}

	if cp.ParentID == nil || *cp.ParentID != parent {
		t.Error("parent link not preserved")
	}
}

func TestRestoreCorrupt(t *testing.T) {
	cp := &checkpoints.Checkpoint{
		ID:       uuid.New(),
		Snapshot: json.RawMessage(`{"id": not-json`),
	}

	_, err := cp.Restore()
	if err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
	if !errors.Is(err, sessions.ErrCheckpointCorrupt) {
		t.Errorf("error %v is not ErrCheckpointCorrupt", err)
	}
}
