package engine

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/cerina/foundry/internal/checkpoints"
	"github.com/cerina/foundry/internal/sessions"
	"github.com/cerina/foundry/pkg/handlers"
	"github.com/cerina/foundry/pkg/pagination"
	"github.com/cerina/foundry/pkg/routes"
)

// Handler provides HTTP endpoints for session operations.
type Handler struct {
	engine     *Engine
	logger     *slog.Logger
	pagination pagination.Config
}

// ErrInvalidRequest rejects malformed request bodies and path parameters.
var ErrInvalidRequest = errors.New("invalid request")

// CancelRequest extends a decision with the cancellation target status.
type CancelRequest struct {
	Decision
	Target sessions.Status `json:"target"`
}

// ForkRequest optionally names the checkpoint to fork from; when omitted
// the session's chain head is used.
type ForkRequest struct {
	CheckpointID *uuid.UUID `json:"checkpoint_id,omitempty"`
}

// SearchRequest combines pagination and filter criteria for the search endpoint.
type SearchRequest struct {
	pagination.PageRequest
	sessions.Filters
}

// NewHandler creates a Handler with the given engine, logger, and pagination config.
func NewHandler(engine *Engine, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		engine:     engine,
		logger:     logger.With("handler", "sessions"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for session endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "POST", Pattern: "/search", Handler: h.Search},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "/{id}/step", Handler: h.Step},
			{Method: "POST", Pattern: "/{id}/run", Handler: h.Run},
			{Method: "POST", Pattern: "/{id}/approve", Handler: h.Approve},
			{Method: "POST", Pattern: "/{id}/reject", Handler: h.Reject},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
			{Method: "POST", Pattern: "/{id}/fork", Handler: h.Fork},
			{Method: "GET", Pattern: "/{id}/history", Handler: h.History},
			{Method: "GET", Pattern: "/{id}/versions", Handler: h.Versions},
		},
	}
}

// Create starts a new session from a JSON body carrying the goal, optional
// context, and optional settings overrides.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd CreateCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	s, err := h.engine.Create(r.Context(), cmd)
	if err != nil {
		if errors.Is(err, ErrGoalRequired) {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, s)
}

// List returns a paginated list of session summaries with optional query
// parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := sessions.FiltersFromQuery(r.URL.Query())

	result, err := h.engine.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Search accepts a JSON body with pagination and filter criteria and returns
// matching session summaries.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	req.PageRequest.Normalize(h.pagination)

	result, err := h.engine.List(r.Context(), req.PageRequest, req.Filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the full session state by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	s, err := h.engine.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

// Step executes one transition and returns the committed state.
func (h *Handler) Step(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Step(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Run steps the session until it halts for human review or terminates.
func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	result, err := h.engine.Run(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Approve applies a human approval decision carrying the observed version.
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Approve)
}

// Reject applies a human rejection decision, returning the session to
// drafting with the reviewer's feedback.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.engine.Reject)
}

// Cancel force-terminates the session to the requested target status.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	s, err := h.engine.Cancel(r.Context(), id, req.Decision, req.Target)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

// Fork creates a new session lineage from a checkpoint of this session.
func (h *Handler) Fork(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var req ForkRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
			return
		}
	}

	forked, err := h.engine.Fork(r.Context(), id, req.CheckpointID)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, forked)
}

// History returns the session's checkpoint chain oldest-first, including
// ancestry inherited through forks. Snapshots are included verbatim.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	chain := []*checkpoints.Checkpoint{}
	for cp, err := range h.engine.History(r.Context(), id) {
		if err != nil {
			handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
			return
		}
		chain = append(chain, cp)
	}

	handlers.RespondJSON(w, http.StatusOK, chain)
}

// Versions returns the session's draft version history.
func (h *Handler) Versions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	s, err := h.engine.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s.DraftHistory)
}

func (h *Handler) decide(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID, d Decision) (*sessions.Session, error),
) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	var d Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	s, err := apply(r.Context(), id, d)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidRequest)
		return uuid.Nil, false
	}
	return id, true
}
