package handler

import (
	"net/http"

	"github.com/albapepper/rosterdex/internal/api/respond"
	"github.com/albapepper/rosterdex/internal/roster"
)

// rosterBody is the payload of direct roster writes. Slots go through the
// same normalization as stored data, so loosely shaped entries are accepted.
type rosterBody struct {
	Name  string       `json:"name"`
	Slots roster.Slots `json:"slots"`
}

type rosterList struct {
	Count   int              `json:"count"`
	Rosters []*roster.Roster `json:"rosters"`
}

// ListRosters returns the caller's rosters, most recently updated first.
// @Summary List rosters
// @Tags rosters
// @Produce json
// @Security BearerAuth
// @Success 200 {object} rosterList
// @Router /rosters [get]
func (h *Handler) ListRosters(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.List(r.Context(), owner(r))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, rosterList{Count: len(list), Rosters: list})
}

// GetStoredRoster returns one of the caller's rosters.
// @Summary Get roster
// @Tags rosters
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roster id"
// @Success 200 {object} roster.Roster
// @Failure 404 {object} respond.ErrorResponse
// @Router /rosters/{id} [get]
func (h *Handler) GetStoredRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	ro, err := h.store.Get(r.Context(), owner(r), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteTagged(w, r, ro)
}

// CreateRoster stores a new roster.
// @Summary Create roster
// @Tags rosters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body rosterBody true "Roster"
// @Success 201 {object} roster.Roster
// @Failure 400 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /rosters [post]
func (h *Handler) CreateRoster(w http.ResponseWriter, r *http.Request) {
	var body rosterBody
	if !decode(w, r, &body) {
		return
	}
	ro, err := h.store.Create(r.Context(), owner(r), body.Name, body.Slots)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, ro)
}

// UpdateRoster replaces the name and slots of a roster.
// @Summary Update roster
// @Tags rosters
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roster id"
// @Param body body rosterBody true "Roster"
// @Success 200 {object} roster.Roster
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /rosters/{id} [put]
func (h *Handler) UpdateRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	var body rosterBody
	if !decode(w, r, &body) {
		return
	}
	ro, err := h.store.Update(r.Context(), owner(r), id, body.Name, body.Slots)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ro)
}

// DeleteRoster removes a roster and returns it.
// @Summary Delete roster
// @Tags rosters
// @Produce json
// @Security BearerAuth
// @Param id path int true "Roster id"
// @Success 200 {object} roster.Roster
// @Failure 404 {object} respond.ErrorResponse
// @Router /rosters/{id} [delete]
func (h *Handler) DeleteRoster(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt64(w, r, "id")
	if !ok {
		return
	}
	ro, err := h.store.Delete(r.Context(), owner(r), id)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, ro)
}
