package mentions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/JaimeStill/mention-analyzer/pkg/handlers"
	"github.com/JaimeStill/mention-analyzer/pkg/pagination"
	"github.com/JaimeStill/mention-analyzer/pkg/routes"
	"github.com/JaimeStill/mention-analyzer/pkg/validation"
)

// Handler provides HTTP endpoints for mention operations.
type Handler struct {
	sys         System
	dispatcher  Dispatcher
	logger      *slog.Logger
	pagination  pagination.Config
	maxBodySize int64
}

// NewHandler creates a Handler. Accepted submissions are passed to d for analysis.
func NewHandler(
	sys System,
	d Dispatcher,
	logger *slog.Logger,
	pagination pagination.Config,
	maxBodySize int64,
) *Handler {
	return &Handler{
		sys:         sys,
		dispatcher:  d,
		logger:      logger.With("handler", "mentions"),
		pagination:  pagination,
		maxBodySize: maxBodySize,
	}
}

// Routes returns the route group definition for mention endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/mentions",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Create},
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/summary", Handler: h.Summary},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
		},
	}
}

// Create persists a pending mention and schedules its analysis.
// Dispatch failures are logged; the mention stays pending for the sweeper.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, ErrBodyTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: unreadable body", ErrInvalidMention))
		return
	}

	var cmd CreateCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: malformed body", ErrInvalidMention))
		return
	}

	if err := validation.Struct(cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %v", ErrInvalidMention, err))
		return
	}

	m, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if err := h.dispatcher.Dispatch(context.WithoutCancel(r.Context()), m.ID, m.Text); err != nil {
		h.logger.Error("dispatch failed", "id", m.ID, "error", err)
	}

	handlers.RespondJSON(w, http.StatusAccepted, m)
}

// List returns a window of mentions, newest first, with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	filters, err := FiltersFromQuery(values)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	window := pagination.WindowFromQuery(values, h.pagination)

	items, err := h.sys.List(r.Context(), window, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, items)
}

// Find returns a single mention by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidID)
		return
	}

	m, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}

// Summary returns aggregate counts by status and sentiment.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.sys.Summary(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, s)
}
