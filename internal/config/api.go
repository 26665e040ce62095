package config

import (
	"fmt"
	"os"

	"github.com/cerina/foundry/pkg/middleware"
	"github.com/cerina/foundry/pkg/pagination"
)

const EnvAPIBasePath = "FOUNDRY_API_BASE_PATH"

var corsEnv = &middleware.CORSEnv{
	Enabled:          "FOUNDRY_CORS_ENABLED",
	Origins:          "FOUNDRY_CORS_ORIGINS",
	AllowedMethods:   "FOUNDRY_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "FOUNDRY_CORS_ALLOWED_HEADERS",
	AllowCredentials: "FOUNDRY_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "FOUNDRY_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "FOUNDRY_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "FOUNDRY_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig groups the HTTP surface settings: the mount path for the
// API module plus the nested CORS and pagination sections.
type APIConfig struct {
	BasePath   string                `toml:"base_path"`
	CORS       middleware.CORSConfig `toml:"cors"`
	Pagination pagination.Config     `toml:"pagination"`
}

// Finalize resolves the base path and delegates to the nested sections,
// each of which runs its own defaults / env / validate sequence.
func (c *APIConfig) Finalize() error {
	if c.BasePath == "" {
		c.BasePath = "/api"
	}
	if v := os.Getenv(EnvAPIBasePath); v != "" {
		c.BasePath = v
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

// Merge overlays non-zero fields, recursing into the nested sections.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.BasePath != "" {
		c.BasePath = overlay.BasePath
	}
	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}
