package store

import (
	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/query"
	"github.com/cerina/foundry/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "sessions", "s").
	Project("id", "ID").
	Project("goal", "Goal").
	Project("status", "Status").
	Project("active_role", "ActiveRole").
	Project("iteration_count", "IterationCount").
	Project("force_escalated", "ForceEscalated").
	Project("safety_score", "SafetyScore").
	Project("clinical_score", "ClinicalScore").
	Project("empathy_score", "EmpathyScore").
	Project("version", "Version").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UpdatedAt",
	Descending: true,
}

func scanSummary(s repository.Scanner) (sessions.Summary, error) {
	var sum sessions.Summary
	err := s.Scan(
		&sum.ID,
		&sum.Goal,
		&sum.Status,
		&sum.ActiveRole,
		&sum.IterationCount,
		&sum.ForceEscalated,
		&sum.SafetyScore,
		&sum.ClinicalScore,
		&sum.EmpathyScore,
		&sum.Version,
		&sum.CreatedAt,
		&sum.UpdatedAt,
	)
	return sum, err
}

func scanCheckpoint(s repository.Scanner) (checkpoints.Checkpoint, error) {
	var c checkpoints.Checkpoint
	err := s.Scan(
		&c.ID,
		&c.SessionID,
		&c.ParentID,
		&c.Snapshot,
		&c.CreatedAt,
	)
	return c, err
}

// scoreColumns extracts the latest per-role scores for the summary columns.
// Sessions that have not completed a review pass store NULL.
func scoreColumns(s *sessions.Session) (safety, clinical, empathy *float64) {
	if f, ok := s.Findings[sessions.RoleSafety]; ok {
		v := f.Score
		safety = &v
	}
	if f, ok := s.Findings[sessions.RoleClinical]; ok {
		v := f.Score
		clinical = &v
	}
	if f, ok := s.Findings[sessions.RoleEmpathy]; ok {
		v := f.Score
		empathy = &v
	}
	return safety, clinical, empathy
}
