// Package config loads service configuration from layered TOML files.
// A base config.toml is merged with an environment-specific overlay
// (config.<env>.toml, selected by FOUNDRY_ENV), then every section runs
// the same defaults / env overrides / validate sequence. The service
// starts fine with no files at all as long as the environment supplies
// the required database settings.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/cerina/foundry/pkg/database"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvFoundryEnv             = "FOUNDRY_ENV"
	EnvFoundryShutdownTimeout = "FOUNDRY_SHUTDOWN_TIMEOUT"
	EnvFoundryVersion         = "FOUNDRY_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "FOUNDRY_DB_HOST",
	Port:            "FOUNDRY_DB_PORT",
	Name:            "FOUNDRY_DB_NAME",
	User:            "FOUNDRY_DB_USER",
	Password:        "FOUNDRY_DB_PASSWORD",
	SSLMode:         "FOUNDRY_DB_SSL_MODE",
	MaxOpenConns:    "FOUNDRY_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "FOUNDRY_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "FOUNDRY_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "FOUNDRY_DB_CONN_TIMEOUT",
}

// Config is the root configuration for the foundry service.
type Config struct {
	Server          ServerConfig         `toml:"server"`
	Database        database.Config      `toml:"database"`
	API             APIConfig            `toml:"api"`
	Agent           gaconfig.AgentConfig `toml:"agent"`
	Workflow        WorkflowConfig       `toml:"workflow"`
	ShutdownTimeout string               `toml:"shutdown_timeout"`
	Version         string               `toml:"version"`
}

// Load assembles the effective configuration: base file if present,
// environment overlay if present, then finalization of every section.
func Load() (*Config, error) {
	cfg := &Config{}

	if fileExists(BaseConfigFile) {
		base, err := parseFile(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = base
	}

	if path := overlayPath(); path != "" {
		overlay, err := parseFile(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Env reports the active environment name, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvFoundryEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
// The value is validated during finalize, so the parse cannot fail here.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Merge overlays non-zero fields from overlay across every section.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Workflow.Merge(&overlay.Workflow)
}

func (c *Config) finalize() error {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
	if v := os.Getenv(EnvFoundryShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvFoundryVersion); v != "" {
		c.Version = v
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}

	for _, section := range []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"api", c.API.Finalize},
		{"agent", func() error { return FinalizeAgent(&c.Agent) }},
		{"workflow", c.Workflow.Finalize},
	} {
		if err := section.finalize(); err != nil {
			return fmt.Errorf("%s: %w", section.name, err)
		}
	}
	return nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func overlayPath() string {
	env := os.Getenv(EnvFoundryEnv)
	if env == "" {
		return ""
	}
	path := fmt.Sprintf(OverlayConfigPattern, env)
	if !fileExists(path) {
		return ""
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
