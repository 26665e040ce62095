package api

import (
	"log/slog"

	"github.com/cerina/foundry/internal/config"
	"github.com/cerina/foundry/internal/engine"
	"github.com/cerina/foundry/internal/reviewers"
	"github.com/cerina/foundry/internal/store"
	"github.com/cerina/foundry/internal/supervisor"
	"github.com/cerina/foundry/pkg/lifecycle"
)

// Domain holds the workflow systems that comprise the API.
type Domain struct {
	Store  store.System
	Engine *engine.Engine
}

// NewDomain assembles the workflow pipeline from the API runtime: the
// session store, the reviewer registry, the supervisor, and the engine.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	st := store.NewPostgres(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	registry := reviewers.NewRegistry(&runtime.Agent, runtime.Logger)
	sv := supervisor.New(registry, runtime.Logger)

	eng := engine.New(
		st,
		sv,
		cfg.Workflow.ToSettings(),
		runtime.Logger,
		engine.NewLogObserver(runtime.Logger),
	)

	return &Domain{
		Store:  st,
		Engine: eng,
	}
}

// Start resumes in-flight sessions once infrastructure startup completes.
// Resume runs in the background so readiness is not gated on review loops
// that may take minutes; shutdown cancels it through the lifecycle context.
func (d *Domain) Start(lc *lifecycle.Coordinator, logger *slog.Logger) {
	go func() {
		lc.WaitForStartup()
		if err := d.Engine.Resume(lc.Context()); err != nil {
			logger.Error("session resume failed", "error", err)
		}
	}()
}
