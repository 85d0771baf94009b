package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/rosterdex/internal/api/respond"
	"github.com/albapepper/rosterdex/internal/catalog"
)

type namedList struct {
	Count   int                     `json:"count"`
	Results []catalog.NamedResource `json:"results"`
}

// ListGenerations returns every generation of the catalog.
// @Summary List generations
// @Tags catalog
// @Produce json
// @Success 200 {object} namedList
// @Failure 502 {object} respond.ErrorResponse
// @Router /catalog/generations [get]
func (h *Handler) ListGenerations(w http.ResponseWriter, r *http.Request) {
	h.writeNamed(w, r, h.catalog.ListGenerations)
}

// GetGeneration returns the species introduced in one generation.
// @Summary Get generation
// @Tags catalog
// @Produce json
// @Param index path int true "Generation index (1-based)"
// @Success 200 {object} catalog.Generation
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /catalog/generations/{index} [get]
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_ID", "index must be an integer")
		return
	}
	gen, err := h.catalog.ListGeneration(r.Context(), index)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteTagged(w, r, gen)
}

// ListTypes returns every type name.
// @Summary List types
// @Tags catalog
// @Produce json
// @Success 200 {object} namedList
// @Failure 502 {object} respond.ErrorResponse
// @Router /catalog/types [get]
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	h.writeNamed(w, r, h.catalog.ListTypes)
}

// ListAbilities returns every ability name.
// @Summary List abilities
// @Tags catalog
// @Produce json
// @Success 200 {object} namedList
// @Failure 502 {object} respond.ErrorResponse
// @Router /catalog/abilities [get]
func (h *Handler) ListAbilities(w http.ResponseWriter, r *http.Request) {
	h.writeNamed(w, r, h.catalog.ListAbilities)
}

// GetSpecies returns the full record of one species. Supports If-None-Match.
// @Summary Get species detail
// @Tags catalog
// @Produce json
// @Param name path string true "Species name or dex number"
// @Success 200 {object} catalog.SpeciesDetail
// @Success 304
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /catalog/species/{name} [get]
func (h *Handler) GetSpecies(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.GetSpeciesDetail(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteTagged(w, r, detail)
}

func (h *Handler) writeNamed(w http.ResponseWriter, r *http.Request, list func(ctx context.Context) ([]catalog.NamedResource, error)) {
	items, err := list(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteTagged(w, r, namedList{Count: len(items), Results: items})
}
