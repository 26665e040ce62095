package main

import (
	"encoding/json"
	"net/http"

	"github.com/cerina/foundry/internal/api"
	"github.com/cerina/foundry/internal/config"
	"github.com/cerina/foundry/internal/infrastructure"
	"github.com/cerina/foundry/pkg/module"
)

// Modules collects every mountable module the server exposes. Only the
// API module exists today; the struct keeps the mounting point in one
// place as more surfaces appear.
type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}
	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

// assemble constructs the modules and returns the fully mounted root
// handler, probes included.
func assemble(infra *infrastructure.Infrastructure, cfg *config.Config) (http.Handler, error) {
	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	router := buildRouter(infra)
	modules.Mount(router)
	return router, nil
}

// buildRouter creates the root router with the probe endpoints that live
// outside any module prefix.
func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()

	router.HandleNative("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	})

	router.HandleNative("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if !infra.Lifecycle.Ready() {
			writeStatus(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})

	return router
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
