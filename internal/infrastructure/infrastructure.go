// Package infrastructure wires the shared backbone the review modules
// build on: lifecycle coordination, structured logging, the database
// pool, and the reviewer agent configuration.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/cerina/foundry/internal/config"
	"github.com/cerina/foundry/pkg/database"
	"github.com/cerina/foundry/pkg/lifecycle"
)

// Infrastructure carries the core systems shared across modules.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Agent     gaconfig.AgentConfig
}

// New constructs the shared systems from configuration. Nothing is
// connected yet; Start registers the lifecycle hooks that do that.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lifecycle.New(),
		Logger:    logger,
		Database:  db,
		Agent:     cfg.Agent,
	}, nil
}

// Start hooks each system into the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	return nil
}
