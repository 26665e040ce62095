package sessions_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/sessions"
)

func testSettings() sessions.Settings {
	return sessions.Settings{
		MinSafetyScore:         7.0,
		MinClinicalScore:       6.0,
		MinEmpathyScore:        6.0,
		MaxIterations:          5,
		CapabilityTimeout:      "120s",
		CapabilityRetries:      2,
		AllowEscalatedApproval: true,
	}
}

func TestNew(t *testing.T) {
	s := sessions.New("reduce sleep anxiety", "adult client", testSettings())

	if s.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if s.Status != sessions.StatusDrafting {
		t.Errorf("status: got %s, want %s", s.Status, sessions.StatusDrafting)
	}
	if s.ActiveRole != sessions.RoleDrafting {
		t.Errorf("active role: got %s, want %s", s.ActiveRole, sessions.RoleDrafting)
	}
	if s.IterationCount != 0 {
		t.Errorf("iteration: got %d, want 0", s.IterationCount)
	}
	if s.Version != 0 {
		t.Errorf("version: got %d, want 0", s.Version)
	}
	if s.Terminal() {
		t.Error("new session should not be terminal")
	}
}

func TestAppendDraftVersions(t *testing.T) {
	s := sessions.New("goal", "", testSettings())

	if got := s.NextDraftVersion(); got != 1 {
		t.Fatalf("first version: got %d, want 1", got)
	}

	s.AppendDraft("first", sessions.RoleDrafting, "initial")
	s.AppendDraft("second", sessions.RoleDrafting, "revised")
	s.AppendDraft("third", sessions.RoleHuman, "human edits")

	if len(s.DraftHistory) != 3 {
		t.Fatalf("history length: got %d, want 3", len(s.DraftHistory))
	}
	for i, dv := range s.DraftHistory {
		if dv.Version != i+1 {
			t.Errorf("draft %d: version %d, want %d", i, dv.Version, i+1)
		}
	}
	if s.CurrentDraft != "third" {
		t.Errorf("current draft: got %q, want %q", s.CurrentDraft, "third")
	}
	if s.DraftHistory[2].Role != sessions.RoleHuman {
		t.Errorf("draft role: got %s, want %s", s.DraftHistory[2].Role, sessions.RoleHuman)
	}
}

func TestClone(t *testing.T) {
	s := sessions.New("goal", "", testSettings())
	s.AppendDraft("draft", sessions.RoleDrafting, "")
	s.RecordFinding(sessions.ReviewFinding{
		Role:        sessions.RoleClinical,
		Score:       8,
		Suggestions: []string{"tighten pacing"},
	})
	s.Flags = append(s.Flags, sessions.SafetyFlag{
		ID:       uuid.New(),
		Severity: sessions.SeverityLow,
	})
	s.AppendDebate(sessions.RoleClinical, sessions.RoleDrafting, "note", sessions.MessageCritique)

	c := s.Clone()

	c.AppendDraft("other", sessions.RoleDrafting, "")
	c.RecordFinding(sessions.ReviewFinding{Role: sessions.RoleSafety, Score: 9})
	c.Flags[0].Resolved = true
	c.Findings[sessions.RoleClinical].Suggestions[0] = "changed"
	c.DebateLog = append(c.DebateLog, sessions.DebateEntry{From: sessions.RoleSafety})

	if len(s.DraftHistory) != 1 {
		t.Error("clone draft append leaked into original")
	}
	if _, ok := s.Findings[sessions.RoleSafety]; ok {
		t.Error("clone finding leaked into original")
	}
	if s.Flags[0].Resolved {
		t.Error("clone flag mutation leaked into original")
	}
	if s.Findings[sessions.RoleClinical].Suggestions[0] != "tighten pacing" {
		t.Error("clone suggestion mutation leaked into original")
	}
	if len(s.DebateLog) != 1 {
		t.Error("clone debate append leaked into original")
	}
}

func TestCurrentScoreStaleness(t *testing.T) {
	s := sessions.New("goal", "", testSettings())

	s.RecordFinding(sessions.ReviewFinding{
		Role:      sessions.RoleClinical,
		Score:     8,
		Iteration: 0,
	})

	if score, ok := s.CurrentScore(sessions.RoleClinical); !ok || score != 8 {
		t.Errorf("current iteration score: got (%.1f, %v), want (8.0, true)", score, ok)
	}

	// A new iteration invalidates prior findings until re-reviewed.
	s.IterationCount = 1
	if _, ok := s.CurrentScore(sessions.RoleClinical); ok {
		t.Error("stale finding counted toward current iteration")
	}
	if _, ok := s.CurrentScore(sessions.RoleSafety); ok {
		t.Error("missing finding reported a score")
	}
}

func TestUnresolvedMaxSeverity(t *testing.T) {
	tests := []struct {
		name  string
		flags []sessions.SafetyFlag
		want  sessions.Severity
		found bool
	}{
		{
			name:  "no flags",
			flags: nil,
			found: false,
		},
		{
			name: "all resolved",
			flags: []sessions.SafetyFlag{
				{Severity: sessions.SeverityCritical, Resolved: true},
			},
			found: false,
		},
		{
			name: "highest unresolved wins",
			flags: []sessions.SafetyFlag{
				{Severity: sessions.SeverityLow},
				{Severity: sessions.SeverityHigh},
				{Severity: sessions.SeverityCritical, Resolved: true},
			},
			want:  sessions.SeverityHigh,
			found: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sessions.New("goal", "", testSettings())
			s.Flags = tt.flags

			got, found := s.UnresolvedMaxSeverity()
			if found != tt.found {
				t.Fatalf("found: got %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("severity: got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAppendDebateSkipsEmpty(t *testing.T) {
	s := sessions.New("goal", "", testSettings())
	s.AppendDebate(sessions.RoleClinical, "", "", sessions.MessageCritique)

	if len(s.DebateLog) != 0 {
		t.Error("empty debate message should not be recorded")
	}
}

func TestDraftPreview(t *testing.T) {
	s := sessions.New("goal", "", testSettings())
	s.CurrentDraft = "hello world"

	if got := s.DraftPreview(5); got != "hello" {
		t.Errorf("preview: got %q, want %q", got, "hello")
	}
	if got := s.DraftPreview(100); got != "hello world" {
		t.Errorf("preview beyond length: got %q", got)
	}
}

func TestCapabilityTimeoutDuration(t *testing.T) {
	settings := testSettings()
	if d := settings.CapabilityTimeoutDuration(); d != 120*time.Second {
		t.Errorf("timeout: got %v, want 120s", d)
	}
}
