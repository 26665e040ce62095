// Package sessions defines the session state model for the Foundry
// drafting pipeline: the working draft, its version history, reviewer
// findings, safety flags, and the debate log, all versioned under a single
// monotonic concurrency token.
package sessions

import (
	"time"

	"github.com/google/uuid"
)

// DraftVersion is one entry in a session's append-only draft history.
type DraftVersion struct {
	Version        int       `json:"version"`
	Content        string    `json:"content"`
	Role           Role      `json:"role"`
	ChangesSummary string    `json:"changes_summary,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReviewFinding is a reviewer's structured feedback for one iteration.
// Score is on a 0-10 scale.
type ReviewFinding struct {
	Role        Role      `json:"role"`
	Score       float64   `json:"score"`
	Narrative   string    `json:"narrative"`
	Suggestions []string  `json:"suggestions,omitempty"`
	Iteration   int       `json:"iteration"`
	CreatedAt   time.Time `json:"created_at"`
}

// SafetyFlag records a safety concern raised by the safety guardian.
type SafetyFlag struct {
	ID       uuid.UUID `json:"id"`
	FlagType string    `json:"flag_type"`
	Severity Severity  `json:"severity"`
	Details  string    `json:"details"`
	Resolved bool      `json:"resolved"`
	RaisedAt time.Time `json:"raised_at"`
}

// DebateEntry is one inter-role message. Entries are append-only and never
// mutated or deleted.
type DebateEntry struct {
	From        Role        `json:"from"`
	To          Role        `json:"to,omitempty"`
	Message     string      `json:"message"`
	MessageType MessageType `json:"message_type"`
	Iteration   int         `json:"iteration"`
	Timestamp   time.Time   `json:"timestamp"`
}

// DecisionRecord captures one supervisor routing decision for audit.
type DecisionRecord struct {
	Decision  string    `json:"decision"`
	Reasoning string    `json:"reasoning"`
	Iteration int       `json:"iteration"`
	Forced    bool      `json:"forced,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Settings carries the per-session workflow configuration. It is supplied
// at session creation and frozen for the session's lifetime.
type Settings struct {
	MinSafetyScore         float64 `json:"min_safety_score"`
	MinClinicalScore       float64 `json:"min_clinical_score"`
	MinEmpathyScore        float64 `json:"min_empathy_score"`
	MaxIterations          int     `json:"max_iterations"`
	CapabilityTimeout      string  `json:"capability_timeout"`
	CapabilityRetries      int     `json:"capability_retries"`
	AllowEscalatedApproval bool    `json:"allow_escalated_approval"`
}

// CapabilityTimeoutDuration returns CapabilityTimeout as a time.Duration.
func (s *Settings) CapabilityTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(s.CapabilityTimeout)
	return d
}

// Session is the unit of work: one end-to-end run of the drafting and
// review pipeline for a single request. Version increments on every
// persisted mutation and is the concurrency-control token; no caller may
// mutate a loaded Session in place outside the store's CompareAndSwap.
type Session struct {
	ID             uuid.UUID              `json:"id"`
	Goal           string                 `json:"goal"`
	Context        string                 `json:"context,omitempty"`
	CurrentDraft   string                 `json:"current_draft"`
	DraftHistory   []DraftVersion         `json:"draft_history"`
	Findings       map[Role]ReviewFinding `json:"findings"`
	Flags          []SafetyFlag           `json:"flags"`
	IterationCount int                    `json:"iteration_count"`
	Status         Status                 `json:"status"`
	ActiveRole     Role                   `json:"active_role"`
	DebateLog      []DebateEntry          `json:"debate_log"`
	Decisions      []DecisionRecord       `json:"decisions"`
	HumanFeedback  string                 `json:"human_feedback,omitempty"`
	ForceEscalated bool                   `json:"force_escalated"`
	FailureReason  string                 `json:"failure_reason,omitempty"`
	Settings       Settings               `json:"settings"`
	Version        int64                  `json:"version"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// New creates a session at iteration 0 in StatusDrafting with version 0.
func New(goal, context string, settings Settings) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.New(),
		Goal:         goal,
		Context:      context,
		DraftHistory: []DraftVersion{},
		Findings:     make(map[Role]ReviewFinding),
		Flags:        []SafetyFlag{},
		Status:       StatusDrafting,
		ActiveRole:   RoleDrafting,
		DebateLog:    []DebateEntry{},
		Decisions:    []DecisionRecord{},
		Settings:     settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy. Callers that compute a mutation work against
// a clone and submit it through CompareAndSwap; the loaded value is never
// modified in place.
func (s *Session) Clone() *Session {
	c := *s

	c.DraftHistory = make([]DraftVersion, len(s.DraftHistory))
	copy(c.DraftHistory, s.DraftHistory)

	c.Findings = make(map[Role]ReviewFinding, len(s.Findings))
	for role, f := range s.Findings {
		finding := f
		finding.Suggestions = append([]string(nil), f.Suggestions...)
		c.Findings[role] = finding
	}

	c.Flags = make([]SafetyFlag, len(s.Flags))
	copy(c.Flags, s.Flags)

	c.DebateLog = make([]DebateEntry, len(s.DebateLog))
	copy(c.DebateLog, s.DebateLog)

	c.Decisions = make([]DecisionRecord, len(s.Decisions))
	copy(c.Decisions, s.Decisions)

	return &c
}

// NextDraftVersion returns the version number the next draft should carry.
// Draft versions are strictly increasing with no gaps, starting at 1.
func (s *Session) NextDraftVersion() int {
	if len(s.DraftHistory) == 0 {
		return 1
	}
	return s.DraftHistory[len(s.DraftHistory)-1].Version + 1
}

// AppendDraft records content as the new current draft, tagged with the
// contributing role.
func (s *Session) AppendDraft(content string, role Role, summary string) {
	s.DraftHistory = append(s.DraftHistory, DraftVersion{
		Version:        s.NextDraftVersion(),
		Content:        content,
		Role:           role,
		ChangesSummary: summary,
		CreatedAt:      time.Now().UTC(),
	})
	s.CurrentDraft = content
}

// AppendDebate adds an entry to the debate log stamped with the current
// iteration.
func (s *Session) AppendDebate(from, to Role, message string, mt MessageType) {
	if message == "" {
		return
	}
	s.DebateLog = append(s.DebateLog, DebateEntry{
		From:        from,
		To:          to,
		Message:     message,
		MessageType: mt,
		Iteration:   s.IterationCount,
		Timestamp:   time.Now().UTC(),
	})
}

// RecordFinding stores the most recent finding for a role.
func (s *Session) RecordFinding(f ReviewFinding) {
	if s.Findings == nil {
		s.Findings = make(map[Role]ReviewFinding)
	}
	s.Findings[f.Role] = f
}

// CurrentScore returns the role's score for the current iteration.
// Findings from earlier iterations are stale and never count toward gating.
func (s *Session) CurrentScore(role Role) (float64, bool) {
	f, ok := s.Findings[role]
	if !ok || f.Iteration != s.IterationCount {
		return 0, false
	}
	return f.Score, true
}

// UnresolvedMaxSeverity returns the highest severity among unresolved
// flags, or false if every flag is resolved.
func (s *Session) UnresolvedMaxSeverity() (Severity, bool) {
	var found bool
	var max Severity
	for _, f := range s.Flags {
		if f.Resolved {
			continue
		}
		if !found || f.Severity.Rank() > max.Rank() {
			max = f.Severity
			found = true
		}
	}
	return max, found
}

// Terminal reports whether the session has reached a final state.
func (s *Session) Terminal() bool {
	return s.Status.Terminal()
}

// DraftPreview returns the first n runes of the current draft.
func (s *Session) DraftPreview(n int) string {
	runes := []rune(s.CurrentDraft)
	if len(runes) <= n {
		return s.CurrentDraft
	}
	return string(runes[:n])
}
