package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/rosterdex/internal/api/respond"
	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/session"
)

// filterView is the filter state of a session. Superseded is set when the
// request's update lost to a newer one of the same kind; the state shown is
// whatever is current.
type filterView struct {
	State        filter.State `json:"state"`
	UniverseSize int          `json:"universe_size"`
	VisibleCount int          `json:"visible_count"`
	Superseded   bool         `json:"superseded,omitempty"`
}

type speciesPage struct {
	Count   int                  `json:"count"`
	Offset  int                  `json:"offset"`
	Results []catalog.SpeciesRef `json:"results"`
}

type generationBody struct {
	Ceiling int `json:"ceiling"`
}

type facetBody struct {
	Key string `json:"key"`
}

type textBody struct {
	Query string `json:"query"`
}

// CreateSession opens a search session for the caller.
// @Summary Open session
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Success 201 {object} session.Info
// @Router /sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Create(owner(r))
	respond.WriteJSON(w, http.StatusCreated, h.sessions.Info(s))
}

// CloseSession tears a session down, cancelling its in-flight fetches.
// @Summary Close session
// @Tags sessions
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 204
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(owner(r), chi.URLParam(r, "id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteNoContent(w)
}

// GetFilter returns the session's filter state.
// @Summary Get filter state
// @Tags filter
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} filterView
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/filter [get]
func (h *Handler) GetFilter(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	respond.WriteJSON(w, http.StatusOK, viewFilter(s.Filter, false))
}

// SetGeneration sets the generation ceiling and rebuilds the universe.
// @Summary Set generation ceiling
// @Tags filter
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param body body generationBody true "Ceiling (>= 1)"
// @Success 200 {object} filterView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sessions/{id}/filter/generation [put]
func (h *Handler) SetGeneration(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body generationBody
	if !decode(w, r, &body) {
		return
	}
	h.writeFilterResult(w, r, s, s.Filter.SetGenerationCeiling(r.Context(), body.Ceiling))
}

// LoadFacet fetches and installs a facet constraint.
// @Summary Load facet
// @Description Facet is type1, type2 or ability. An empty key clears the facet.
// @Tags filter
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param facet path string true "Facet" Enums(type1, type2, ability)
// @Param body body facetBody true "Catalog key"
// @Success 200 {object} filterView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sessions/{id}/filter/facets/{facet} [put]
func (h *Handler) LoadFacet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	facet, err := filter.ParseFacet(chi.URLParam(r, "facet"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	var body facetBody
	if !decode(w, r, &body) {
		return
	}
	h.writeFilterResult(w, r, s, s.Filter.LoadFacet(r.Context(), facet, body.Key))
}

// ClearFacet removes a facet constraint.
// @Summary Clear facet
// @Tags filter
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param facet path string true "Facet" Enums(type1, type2, ability)
// @Success 200 {object} filterView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/filter/facets/{facet} [delete]
func (h *Handler) ClearFacet(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	facet, err := filter.ParseFacet(chi.URLParam(r, "facet"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeFilterResult(w, r, s, s.Filter.ClearFacet(facet))
}

// SetText sets the free-text query.
// @Summary Set text query
// @Tags filter
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param body body textBody true "Query"
// @Success 200 {object} filterView
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/filter/text [put]
func (h *Handler) SetText(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body textBody
	if !decode(w, r, &body) {
		return
	}
	s.Filter.SetTextQuery(body.Query)
	respond.WriteJSON(w, http.StatusOK, viewFilter(s.Filter, false))
}

// ListVisible returns the session's visible species, ordered by dex number.
// @Summary Visible species
// @Tags filter
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (0 = all)"
// @Success 200 {object} speciesPage
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/species [get]
func (h *Handler) ListVisible(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}

	visible := s.Filter.Visible()
	page := speciesPage{Count: len(visible), Offset: offset, Results: []catalog.SpeciesRef{}}
	if offset < len(visible) {
		end := len(visible)
		if limit > 0 && limit < end-offset {
			end = offset + limit
		}
		page.Results = visible[offset:end]
	}
	respond.WriteJSON(w, http.StatusOK, page)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(owner(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeErr(w, r, err)
		return nil, false
	}
	return s, true
}

// writeFilterResult reports a filter update. A superseded update is not an
// error: the caller gets the current state flagged as superseded.
func (h *Handler) writeFilterResult(w http.ResponseWriter, r *http.Request, s *session.Session, err error) {
	switch {
	case err == nil:
		respond.WriteJSON(w, http.StatusOK, viewFilter(s.Filter, false))
	case errors.Is(err, common.ErrCancelled):
		respond.WriteJSON(w, http.StatusOK, viewFilter(s.Filter, true))
	default:
		h.writeErr(w, r, err)
	}
}

func viewFilter(e *filter.Engine, superseded bool) filterView {
	return filterView{
		State:        e.State(),
		UniverseSize: e.UniverseSize(),
		VisibleCount: len(e.Visible()),
		Superseded:   superseded,
	}
}
