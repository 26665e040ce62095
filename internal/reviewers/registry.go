package reviewers

import (
	"fmt"
	"log/slog"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/cerina/foundry/internal/sessions"
)

// Registry is the closed set of reviewer capabilities keyed by role.
// Roles outside the set are rejected; there is no runtime registration.
type Registry struct {
	caps map[sessions.Role]Capability
}

// NewRegistry builds the registry with agent-backed capabilities for each
// pipeline role, each wrapped with bounded retry.
func NewRegistry(cfg *gaconfig.AgentConfig, logger *slog.Logger) *Registry {
	logger = logger.With("system", "reviewers")

	roles := []sessions.Role{
		sessions.RoleDrafting,
		sessions.RoleClinical,
		sessions.RoleSafety,
		sessions.RoleEmpathy,
	}

	caps := make(map[sessions.Role]Capability, len(roles))
	for _, role := range roles {
		caps[role] = WithRetry(newAgentCapability(role, cfg, logger), logger)
	}

	return &Registry{caps: caps}
}

// NewRegistryWith builds a registry from explicit capabilities, wrapping
// each with bounded retry. Used by tests and alternate capability backends.
func NewRegistryWith(caps map[sessions.Role]Capability, logger *slog.Logger) *Registry {
	wrapped := make(map[sessions.Role]Capability, len(caps))
	for role, c := range caps {
		wrapped[role] = WithRetry(c, logger)
	}
	return &Registry{caps: wrapped}
}

// Get returns the capability for a role, or ErrUnknownRole.
func (r *Registry) Get(role sessions.Role) (Capability, error) {
	c, ok := r.caps[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return c, nil
}
