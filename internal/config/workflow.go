package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cerina/foundry/internal/sessions"
)

const (
	EnvWorkflowMinSafetyScore         = "FOUNDRY_WORKFLOW_MIN_SAFETY_SCORE"
	EnvWorkflowMinClinicalScore       = "FOUNDRY_WORKFLOW_MIN_CLINICAL_SCORE"
	EnvWorkflowMinEmpathyScore        = "FOUNDRY_WORKFLOW_MIN_EMPATHY_SCORE"
	EnvWorkflowMaxIterations          = "FOUNDRY_WORKFLOW_MAX_ITERATIONS"
	EnvWorkflowCapabilityTimeout      = "FOUNDRY_WORKFLOW_CAPABILITY_TIMEOUT"
	EnvWorkflowCapabilityRetries      = "FOUNDRY_WORKFLOW_CAPABILITY_RETRIES"
	EnvWorkflowAllowEscalatedApproval = "FOUNDRY_WORKFLOW_ALLOW_ESCALATED_APPROVAL"
)

// WorkflowConfig holds the default session settings: score thresholds, the
// iteration bound, and capability timeout and retry limits. Sessions freeze
// these values at creation, so changing the config never affects sessions
// already in flight.
type WorkflowConfig struct {
	MinSafetyScore         *float64 `toml:"min_safety_score"`
	MinClinicalScore       *float64 `toml:"min_clinical_score"`
	MinEmpathyScore        *float64 `toml:"min_empathy_score"`
	MaxIterations          int      `toml:"max_iterations"`
	CapabilityTimeout      string   `toml:"capability_timeout"`
	CapabilityRetries      *int     `toml:"capability_retries"`
	AllowEscalatedApproval *bool    `toml:"allow_escalated_approval"`
}

// ToSettings converts the finalized config into frozen session settings.
func (c *WorkflowConfig) ToSettings() sessions.Settings {
	return sessions.Settings{
		MinSafetyScore:         *c.MinSafetyScore,
		MinClinicalScore:       *c.MinClinicalScore,
		MinEmpathyScore:        *c.MinEmpathyScore,
		MaxIterations:          c.MaxIterations,
		CapabilityTimeout:      c.CapabilityTimeout,
		CapabilityRetries:      *c.CapabilityRetries,
		AllowEscalatedApproval: *c.AllowEscalatedApproval,
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *WorkflowConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	if overlay.MinSafetyScore != nil {
		c.MinSafetyScore = overlay.MinSafetyScore
	}
	if overlay.MinClinicalScore != nil {
		c.MinClinicalScore = overlay.MinClinicalScore
	}
	if overlay.MinEmpathyScore != nil {
		c.MinEmpathyScore = overlay.MinEmpathyScore
	}
	if overlay.MaxIterations != 0 {
		c.MaxIterations = overlay.MaxIterations
	}
	if overlay.CapabilityTimeout != "" {
		c.CapabilityTimeout = overlay.CapabilityTimeout
	}
	if overlay.CapabilityRetries != nil {
		c.CapabilityRetries = overlay.CapabilityRetries
	}
	if overlay.AllowEscalatedApproval != nil {
		c.AllowEscalatedApproval = overlay.AllowEscalatedApproval
	}
}

func (c *WorkflowConfig) loadDefaults() {
	if c.MinSafetyScore == nil {
		c.MinSafetyScore = ptr(7.0)
	}
	if c.MinClinicalScore == nil {
		c.MinClinicalScore = ptr(6.0)
	}
	if c.MinEmpathyScore == nil {
		c.MinEmpathyScore = ptr(6.0)
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = 5
	}
	if c.CapabilityTimeout == "" {
		c.CapabilityTimeout = "120s"
	}
	if c.CapabilityRetries == nil {
		c.CapabilityRetries = ptr(2)
	}
	if c.AllowEscalatedApproval == nil {
		c.AllowEscalatedApproval = ptr(true)
	}
}

func (c *WorkflowConfig) loadEnv() {
	setFloat := func(envVar string, target **float64) {
		if v := os.Getenv(envVar); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*target = &f
			}
		}
	}

	setFloat(EnvWorkflowMinSafetyScore, &c.MinSafetyScore)
	setFloat(EnvWorkflowMinClinicalScore, &c.MinClinicalScore)
	setFloat(EnvWorkflowMinEmpathyScore, &c.MinEmpathyScore)

	if v := os.Getenv(EnvWorkflowMaxIterations); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxIterations = n
		}
	}
	if v := os.Getenv(EnvWorkflowCapabilityTimeout); v != "" {
		c.CapabilityTimeout = v
	}
	if v := os.Getenv(EnvWorkflowCapabilityRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CapabilityRetries = &n
		}
	}
	if v := os.Getenv(EnvWorkflowAllowEscalatedApproval); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AllowEscalatedApproval = &b
		}
	}
}

func (c *WorkflowConfig) validate() error {
	for name, score := range map[string]*float64{
		"min_safety_score":   c.MinSafetyScore,
		"min_clinical_score": c.MinClinicalScore,
		"min_empathy_score":  c.MinEmpathyScore,
	} {
		if *score < 0 || *score > 10 {
			return fmt.Errorf("invalid %s: %.1f not in [0, 10]", name, *score)
		}
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("invalid max_iterations: %d", c.MaxIterations)
	}
	if _, err := time.ParseDuration(c.CapabilityTimeout); err != nil {
		return fmt.Errorf("invalid capability_timeout: %w", err)
	}
	if *c.CapabilityRetries < 0 {
		return fmt.Errorf("invalid capability_retries: %d", *c.CapabilityRetries)
	}
	return nil
}

func ptr[T any](v T) *T {
	return &v
}
