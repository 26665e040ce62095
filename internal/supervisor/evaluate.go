package supervisor

import (
	"fmt"
	"strings"

	"github.com/cerina/foundry/internal/sessions"
)

// GateResult is the outcome of the threshold gate for one iteration.
type GateResult struct {
	Met      bool
	Blockers []string
}

// EvaluateGate checks whether the current iteration's findings meet every
// configured score threshold and no unresolved flag has blocking severity.
// Findings from earlier iterations are stale and never count.
func EvaluateGate(s *sessions.Session) GateResult {
	var blockers []string

	checks := []struct {
		role      sessions.Role
		threshold float64
	}{
		{sessions.RoleSafety, s.Settings.MinSafetyScore},
		{sessions.RoleClinical, s.Settings.MinClinicalScore},
		{sessions.RoleEmpathy, s.Settings.MinEmpathyScore},
	}

	for _, check := range checks {
		score, ok := s.CurrentScore(check.role)
		if !ok {
			blockers = append(blockers, fmt.Sprintf("%s has no finding for iteration %d", check.role, s.IterationCount))
			continue
		}
		if score < check.threshold {
			blockers = append(blockers, fmt.Sprintf("%s score %.1f below threshold %.1f", check.role, score, check.threshold))
		}
	}

	// The maximum severity among unresolved flags governs gating.
	if max, ok := s.UnresolvedMaxSeverity(); ok && max.Blocking() {
		blockers = append(blockers, fmt.Sprintf("unresolved %s severity flag", max))
	}

	return GateResult{
		Met:      len(blockers) == 0,
		Blockers: blockers,
	}
}

// aggregateFeedback collects the current findings, blocking flags, and any
// human feedback into the context handed to the next drafting pass.
func aggregateFeedback(s *sessions.Session) string {
	var b strings.Builder

	for _, role := range []sessions.Role{sessions.RoleClinical, sessions.RoleSafety, sessions.RoleEmpathy} {
		f, ok := s.Findings[role]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s (score %.1f): %s\n", f.Role, f.Score, f.Narrative)
		for _, suggestion := range f.Suggestions {
			fmt.Fprintf(&b, "  - %s\n", suggestion)
		}
	}

	for _, flag := range s.Flags {
		if flag.Resolved {
			continue
		}
		fmt.Fprintf(&b, "safety flag [%s] %s: %s\n", flag.Severity, flag.FlagType, flag.Details)
	}

	if s.HumanFeedback != "" {
		fmt.Fprintf(&b, "human reviewer: %s\n", s.HumanFeedback)
	}

	return b.String()
}
