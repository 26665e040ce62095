package middleware_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cerina/foundry/pkg/middleware"
)

func serve(handler http.Handler, method, origin string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	handler.ServeHTTP(rec, req)
	return rec
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if called != nil {
			*called = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestStackOrder(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	mw := middleware.New()
	mw.Use(tag("outer"))
	mw.Use(tag("inner"))

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	serve(handler, "GET", "")

	want := []string{"outer", "inner", "handler"}
	if len(order) != len(want) {
		t.Fatalf("executions: got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order: got %v, want %v", order, want)
		}
	}
}

func TestCORSDisabledPassesThrough(t *testing.T) {
	handler := middleware.CORS(&middleware.CORSConfig{Enabled: false})(okHandler(nil))

	rec := serve(handler, "GET", "http://foundry.local")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("headers set while disabled")
	}
}

func TestCORSAllowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"http://foundry.local"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           3600,
	}
	handler := middleware.CORS(cfg)(okHandler(nil))

	rec := serve(handler, "GET", "http://foundry.local")

	checks := map[string]string{
		"Access-Control-Allow-Origin":      "http://foundry.local",
		"Access-Control-Allow-Methods":     "GET, POST",
		"Access-Control-Allow-Headers":     "Content-Type",
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Max-Age":           "3600",
	}
	for header, want := range checks {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
}

func TestCORSUnknownOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://foundry.local"},
	}
	handler := middleware.CORS(cfg)(okHandler(nil))

	rec := serve(handler, "GET", "http://elsewhere.example")
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("allow-origin set for unknown origin")
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:        true,
		Origins:        []string{"http://foundry.local"},
		AllowedMethods: []string{"GET", "POST"},
	}

	var called bool
	handler := middleware.CORS(cfg)(okHandler(&called))

	rec := serve(handler, "OPTIONS", "http://foundry.local")
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status: got %d, want 200", rec.Code)
	}
	if called {
		t.Error("inner handler ran on preflight")
	}
}

func TestLoggerCallsInnerHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var called bool
	handler := middleware.Logger(logger)(okHandler(&called))

	rec := serve(handler, "GET", "")
	if !called {
		t.Error("inner handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}
}

func TestCORSConfigDefaults(t *testing.T) {
	cfg := middleware.CORSConfig{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if len(cfg.AllowedMethods) != 5 {
		t.Errorf("allowed_methods: got %d, want 5", len(cfg.AllowedMethods))
	}
	if len(cfg.AllowedHeaders) != 2 {
		t.Errorf("allowed_headers: got %d, want 2", len(cfg.AllowedHeaders))
	}
	if cfg.MaxAge != 3600 {
		t.Errorf("max_age: got %d, want 3600", cfg.MaxAge)
	}
}

func TestCORSConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEST_CORS_ENABLED", "true")
	t.Setenv("TEST_CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("TEST_CORS_CREDS", "true")

	cfg := middleware.CORSConfig{}
	err := cfg.Finalize(&middleware.CORSEnv{
		Enabled:          "TEST_CORS_ENABLED",
		Origins:          "TEST_CORS_ORIGINS",
		AllowCredentials: "TEST_CORS_CREDS",
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	if !cfg.Enabled || !cfg.AllowCredentials {
		t.Error("boolean overrides not applied")
	}
	if len(cfg.Origins) != 2 || cfg.Origins[0] != "http://a.example" || cfg.Origins[1] != "http://b.example" {
		t.Errorf("origins: got %v", cfg.Origins)
	}
}

func TestCORSConfigMerge(t *testing.T) {
	base := middleware.CORSConfig{
		Enabled:        false,
		Origins:        []string{"http://base.example"},
		AllowedMethods: []string{"GET"},
		MaxAge:         3600,
	}
	base.Merge(&middleware.CORSConfig{
		Enabled: true,
		Origins: []string{"http://overlay.example"},
		MaxAge:  7200,
	})

	if !base.Enabled {
		t.Error("enabled not merged")
	}
	if len(base.Origins) != 1 || base.Origins[0] != "http://overlay.example" {
		t.Errorf("origins: got %v", base.Origins)
	}
	if base.MaxAge != 7200 {
		t.Errorf("max_age: got %d, want 7200", base.MaxAge)
	}
	if len(base.AllowedMethods) != 1 {
		t.Errorf("allowed_methods overwritten: got %v", base.AllowedMethods)
	}
}
