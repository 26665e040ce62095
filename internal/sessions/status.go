package sessions

// Status is the session's position in the review workflow.
type Status string

// Workflow states. Human editing is a presentation-layer sub-state of
// pending human review and is not persisted separately.
const (
	StatusDrafting           Status = "drafting"
	StatusClinicalReview     Status = "clinical_review"
	StatusSafetyReview       Status = "safety_review"
	StatusEmpathyReview      Status = "empathy_review"
	StatusEvaluate           Status = "evaluate"
	StatusPendingHumanReview Status = "pending_human_review"
	StatusApproved           Status = "approved"
	StatusRejected           Status = "rejected"
	StatusFailed             Status = "failed"
)

// Terminal reports whether no further mutation is permitted from this status.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	switch s {
	case StatusDrafting, StatusClinicalReview, StatusSafetyReview,
		StatusEmpathyReview, StatusEvaluate, StatusPendingHumanReview,
		StatusApproved, StatusRejected, StatusFailed:
		return true
	}
	return false
}

// Role identifies a pipeline participant.
type Role string

// The closed set of pipeline roles.
const (
	RoleDrafting   Role = "drafting"
	RoleClinical   Role = "clinical_critic"
	RoleSafety     Role = "safety_guardian"
	RoleEmpathy    Role = "empathy"
	RoleHuman      Role = "human"
	RoleSupervisor Role = "supervisor"
)

// Severity grades a safety flag.
type Severity string

// Severity levels in ascending order.
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the ordinal position of the severity; unknown values rank
// below low.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// Blocking reports whether an unresolved flag of this severity prevents the
// session from passing the threshold gate.
func (s Severity) Blocking() bool {
	return s.Rank() >= SeverityHigh.Rank()
}

// MessageType categorizes a debate entry.
type MessageType string

// Debate message types.
const (
	MessageCritique     MessageType = "critique"
	MessageSuggestion   MessageType = "suggestion"
	MessageAgreement    MessageType = "agreement"
	MessageDisagreement MessageType = "disagreement"
	MessageQuestion     MessageType = "question"
)
