package reviewers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/formatting"
)

type draftingResponse struct {
	Draft          string `json:"draft"`
	ChangesSummary string `json:"changes_summary"`
	DebateMessage  string `json:"debate_message"`
}

type reviewResponse struct {
	Score         float64    `json:"score"`
	Feedback      string     `json:"feedback"`
	Suggestions   []string   `json:"suggestions"`
	Flags         []flagJSON `json:"flags"`
	DebateMessage string     `json:"debate_message"`
}

type flagJSON struct {
	FlagType string `json:"flag_type"`
	Severity string `json:"severity"`
	Details  string `json:"details"`
}

// agentCapability backs one pipeline role with an LLM agent. Each Evaluate
// creates a fresh agent, performs a single chat inference against the
// snapshot, and parses the structured reply into a Delta.
type agentCapability struct {
	role   sessions.Role
	config *gaconfig.AgentConfig
	logger *slog.Logger
}

func newAgentCapability(role sessions.Role, cfg *gaconfig.AgentConfig, logger *slog.Logger) Capability {
	return &agentCapability{
		role:   role,
		config: cfg,
		logger: logger.With("role", role),
	}
}

func (c *agentCapability) Evaluate(
	ctx context.Context,
	snapshot *sessions.Session,
	rc RoleContext,
) (*Delta, error) {
	a, err := agent.New(c.config)
	if err != nil {
		// Agent construction only fails on misconfiguration; retrying
		// cannot help.
		return nil, fmt.Errorf("%w: create agent: %w", ErrRejected, err)
	}

	prompt := buildPrompt(c.role, snapshot, rc)

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %w", ErrTimeout, c.role, err)
		}
		return nil, fmt.Errorf("%w: %s chat call: %w", ErrFailure, c.role, err)
	}

	delta, err := c.parse(resp.Text())
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "capability evaluated", "iteration", rc.Iteration)
	return delta, nil
}

func (c *agentCapability) parse(content string) (*Delta, error) {
	if c.role == sessions.RoleDrafting {
		parsed, err := formatting.Parse[draftingResponse](content)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFailure, c.role, err)
		}
		if parsed.Draft == "" {
			return nil, fmt.Errorf("%w: %s returned an empty draft", ErrFailure, c.role)
		}
		return &Delta{
			UpdatedDraft:   &parsed.Draft,
			ChangesSummary: parsed.ChangesSummary,
			Debate:         parsed.DebateMessage,
			DebateType:     sessions.MessageSuggestion,
		}, nil
	}

	parsed, err := formatting.Parse[reviewResponse](content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFailure, c.role, err)
	}

	delta := &Delta{
		Finding: &sessions.ReviewFinding{
			Role:        c.role,
			Score:       parsed.Score,
			Narrative:   parsed.Feedback,
			Suggestions: parsed.Suggestions,
			CreatedAt:   time.Now().UTC(),
		},
		Debate:     parsed.DebateMessage,
		DebateType: sessions.MessageCritique,
	}

	for _, f := range parsed.Flags {
		severity := sessions.Severity(f.Severity)
		if severity.Rank() == 0 {
			severity = sessions.SeverityMedium
		}
		delta.Flags = append(delta.Flags, sessions.SafetyFlag{
			ID:       uuid.New(),
			FlagType: f.FlagType,
			Severity: severity,
			Details:  f.Details,
			RaisedAt: time.Now().UTC(),
		})
	}

	return delta, nil
}
