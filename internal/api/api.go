// Package api assembles the API module with the workflow systems and route registration.
package api

import (
	"net/http"

	"github.com/cerina/foundry/internal/config"
	"github.com/cerina/foundry/internal/infrastructure"
	"github.com/cerina/foundry/pkg/middleware"
	"github.com/cerina/foundry/pkg/module"
)

// NewModule creates the API module with the workflow handler and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)
	domain.Start(runtime.Lifecycle, runtime.Logger)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	return m, nil
}
