package api

import (
	"net/http"

	"github.com/cerina/foundry/internal/engine"
	"github.com/cerina/foundry/pkg/routes"
)

// registerRoutes mounts every handler group on the module mux. The
// engine handler owns the full session surface; additional groups
// register here as the API grows.
func registerRoutes(mux *http.ServeMux, domain *Domain, runtime *Runtime) {
	handler := engine.NewHandler(domain.Engine, runtime.Logger, runtime.Pagination)
	routes.Register(mux, handler.Routes())
}
