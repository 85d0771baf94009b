// Package handler provides HTTP handlers for all API endpoints.
// Catalog handlers proxy the species catalog; session handlers drive one
// session's filter engine and roster workspace; roster handlers talk to the
// persistence collaborator directly.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/rosterdex/internal/api/respond"
	"github.com/albapepper/rosterdex/internal/auth"
	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/roster"
	"github.com/albapepper/rosterdex/internal/session"
)

// maxBodyBytes bounds request bodies; a full roster is a few kilobytes.
const maxBodyBytes = 1 << 20

// Pinger reports database connectivity.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Catalog  catalog.Client
	Store    roster.Store
	Sessions *session.Registry
	DB       Pinger
	Logger   *slog.Logger
	Version  string
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	catalog  catalog.Client
	store    roster.Store
	sessions *session.Registry
	db       Pinger
	logger   *slog.Logger
	version  string
}

// New creates a Handler with shared dependencies.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Version == "" {
		d.Version = "dev"
	}
	return &Handler{
		catalog:  d.Catalog,
		store:    d.Store,
		sessions: d.Sessions,
		db:       d.DB,
		logger:   d.Logger,
		version:  d.Version,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status and the docs location.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"name":    "Rosterdex API",
		"version": h.version,
		"status":  "running",
		"docs":    "/docs/",
		"metrics": "/metrics",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status, open session count and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"sessions":  h.sessions.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Description Verifies roster database connectivity.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.HealthCheck(r.Context()) != nil {
		respond.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":    "unhealthy",
			"database":  "disconnected",
			"error":     "Database connection check failed",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// writeErr maps domain errors onto HTTP statuses.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var facetErr *filter.FacetError
	detail := ""
	if errors.As(err, &facetErr) {
		detail = fmt.Sprintf("facet=%s key=%s", facetErr.Facet, facetErr.Key)
	}

	switch {
	case errors.Is(err, common.ErrValidation):
		respond.WriteErrorDetail(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), detail)
	case errors.Is(err, common.ErrNotFound):
		respond.WriteErrorDetail(w, http.StatusNotFound, "NOT_FOUND", err.Error(), detail)
	case errors.Is(err, common.ErrConflict):
		respond.WriteErrorDetail(w, http.StatusConflict, "NAME_CONFLICT", err.Error(), detail)
	case errors.Is(err, common.ErrUpstreamUnavailable):
		respond.WriteErrorDetail(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "Species catalog unavailable", detail)
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful can be written.
		h.logger.Debug("Request cancelled", "path", r.URL.Path)
	default:
		h.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respond.WriteError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

// owner returns the authenticated owner id. RequireOwner guarantees it on
// every route that calls this.
func owner(r *http.Request) string {
	o, _ := auth.OwnerFrom(r.Context())
	return o
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		respond.WriteErrorDetail(w, http.StatusBadRequest, "INVALID_BODY", "Request body must be valid JSON", err.Error())
		return false
	}
	return true
}

// pathInt64 parses a positive integer path parameter.
func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || n < 1 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_QUERY", name+" must be a non-negative integer")
		return 0, false
	}
	return n, true
}
