package api

import (
	"github.com/cerina/foundry/internal/config"
	"github.com/cerina/foundry/internal/infrastructure"
	"github.com/cerina/foundry/pkg/pagination"
)

// Runtime is the dependency bundle handed to the API module: the shared
// infrastructure rebound to a module-scoped logger, plus the pagination
// limits list endpoints enforce.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
	}
}
