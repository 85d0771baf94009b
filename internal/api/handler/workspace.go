package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/albapepper/rosterdex/internal/api/respond"
	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/roster"
	"github.com/albapepper/rosterdex/internal/session"
)

// workspaceView is the roster being edited plus the owner's roster list.
type workspaceView struct {
	Roster  *roster.Roster   `json:"roster"`
	Summary roster.Summary   `json:"summary"`
	Rosters []roster.Summary `json:"rosters"`
}

type nameBody struct {
	Name string `json:"name"`
}

type speciesBody struct {
	Species string `json:"species"`
}

type moveEdit struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// slotPatch edits one slot. Absent fields are left alone.
type slotPatch struct {
	Gender   *string     `json:"gender"`
	Shiny    *bool       `json:"shiny"`
	Ability  *string     `json:"ability"`
	Moves    []moveEdit  `json:"moves"`
	HeldItem *roster.Ref `json:"held_item"`
}

func (p slotPatch) needsDetail() bool {
	return p.Gender != nil || p.Shiny != nil || p.Ability != nil || len(p.Moves) > 0
}

// GetRoster returns the session's roster being edited.
// @Summary Current roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} workspaceView
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster [get]
func (h *Handler) GetRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeWorkspace(w, s, http.StatusOK)
}

// RenameRoster sets the name of the roster being edited. The name is
// validated when the roster is saved.
// @Summary Rename roster
// @Tags roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param body body nameBody true "New name"
// @Success 200 {object} workspaceView
// @Router /sessions/{id}/roster/name [put]
func (h *Handler) RenameRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var body nameBody
	if !decode(w, r, &body) {
		return
	}
	h.edit(w, r, s, func(ro *roster.Roster) error {
		ro.Name = body.Name
		return nil
	})
}

// PutSlot places a species into a slot, replacing whatever was there.
// @Summary Add species to slot
// @Tags roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param slot path int true "Slot index (0-5)"
// @Param body body speciesBody true "Species name or dex number"
// @Success 200 {object} workspaceView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster/slots/{slot} [put]
func (h *Handler) PutSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := slotIndex(w, r)
	if !ok {
		return
	}
	var body speciesBody
	if !decode(w, r, &body) {
		return
	}
	detail, err := h.catalog.GetSpeciesDetail(r.Context(), body.Species)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	entry := roster.FromDetail(detail)
	h.edit(w, r, s, func(ro *roster.Roster) error { return ro.SetSlot(slot, entry) })
}

// PatchSlot customises the entry in a slot: gender, shiny, ability, moves and
// held item. Ability and moves must belong to the species.
// @Summary Edit slot
// @Tags roster
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param slot path int true "Slot index (0-5)"
// @Param body body slotPatch true "Fields to change"
// @Success 200 {object} workspaceView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 502 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster/slots/{slot} [patch]
func (h *Handler) PatchSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := slotIndex(w, r)
	if !ok {
		return
	}
	var patch slotPatch
	if !decode(w, r, &patch) {
		return
	}

	entry, err := s.Roster.Current().Slot(slot)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if entry == nil {
		h.writeErr(w, r, fmt.Errorf("slot %d is empty: %w", slot, common.ErrValidation))
		return
	}

	var detail *catalog.SpeciesDetail
	if patch.needsDetail() {
		detail, err = h.catalog.GetSpeciesDetail(r.Context(), speciesKey(entry))
		if err != nil {
			h.writeErr(w, r, err)
			return
		}
	}

	updated, err := applyPatch(entry, detail, patch)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	h.edit(w, r, s, func(ro *roster.Roster) error {
		cur, err := ro.Slot(slot)
		if err != nil {
			return err
		}
		if cur == nil || speciesKey(cur) != speciesKey(entry) {
			return fmt.Errorf("slot %d changed during edit: %w", slot, common.ErrConflict)
		}
		return ro.SetSlot(slot, updated)
	})
}

// ClearSlot empties a slot. The roster keeps six positions.
// @Summary Clear slot
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param slot path int true "Slot index (0-5)"
// @Success 200 {object} workspaceView
// @Failure 400 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster/slots/{slot} [delete]
func (h *Handler) ClearSlot(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	slot, ok := slotIndex(w, r)
	if !ok {
		return
	}
	h.edit(w, r, s, func(ro *roster.Roster) error { return ro.ClearSlot(slot) })
}

// SaveRoster persists the roster being edited: create when new, update
// otherwise.
// @Summary Save roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} workspaceView
// @Failure 400 {object} respond.ErrorResponse
// @Failure 404 {object} respond.ErrorResponse
// @Failure 409 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster/save [post]
func (h *Handler) SaveRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := s.Roster.Save(r.Context()); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeWorkspace(w, s, http.StatusOK)
}

// NewRoster discards the roster being edited and starts a fresh draft.
// @Summary New roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} workspaceView
// @Router /sessions/{id}/roster/new [post]
func (h *Handler) NewRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Roster.Reset()
	h.writeWorkspace(w, s, http.StatusOK)
}

// DuplicateRoster turns the roster being edited into an unsaved copy.
// @Summary Duplicate roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Success 200 {object} workspaceView
// @Router /sessions/{id}/roster/duplicate [post]
func (h *Handler) DuplicateRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Roster.Duplicate()
	h.writeWorkspace(w, s, http.StatusOK)
}

// LoadRoster replaces the roster being edited with a stored one.
// @Summary Load roster
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param rosterID path int true "Roster id"
// @Success 200 {object} workspaceView
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/roster/load/{rosterID} [post]
func (h *Handler) LoadRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "rosterID")
	if !ok {
		return
	}
	if _, err := s.Roster.Load(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeWorkspace(w, s, http.StatusOK)
}

// DeleteSessionRoster deletes a stored roster through the workspace, which
// resets to a draft when the deleted roster is the one being edited.
// @Summary Delete roster from session
// @Tags roster
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session id"
// @Param rosterID path int true "Roster id"
// @Success 200 {object} workspaceView
// @Failure 404 {object} respond.ErrorResponse
// @Router /sessions/{id}/rosters/{rosterID} [delete]
func (h *Handler) DeleteSessionRoster(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	id, ok := pathInt64(w, r, "rosterID")
	if !ok {
		return
	}
	if _, err := s.Roster.Delete(r.Context(), id); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeWorkspace(w, s, http.StatusOK)
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func (h *Handler) edit(w http.ResponseWriter, r *http.Request, s *session.Session, fn func(*roster.Roster) error) {
	if _, err := s.Roster.Edit(fn); err != nil {
		h.writeErr(w, r, err)
		return
	}
	h.writeWorkspace(w, s, http.StatusOK)
}

func (h *Handler) writeWorkspace(w http.ResponseWriter, s *session.Session, status int) {
	cur := s.Roster.Current()
	respond.WriteJSON(w, status, workspaceView{
		Roster:  cur,
		Summary: cur.Summary(),
		Rosters: s.Roster.Rosters(),
	})
}

func slotIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, "slot"))
	if err != nil || n < 0 || n >= roster.SlotCount {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_SLOT",
			fmt.Sprintf("slot must be between 0 and %d", roster.SlotCount-1))
		return 0, false
	}
	return n, true
}

// speciesKey is the catalog key of an entry: its name, or its id when the
// name is missing.
func speciesKey(e *roster.Entry) string {
	if name := e.DisplayName(); name != "" {
		return name
	}
	if e.ID != nil {
		return strconv.Itoa(*e.ID)
	}
	return ""
}

func applyPatch(e *roster.Entry, detail *catalog.SpeciesDetail, p slotPatch) (*roster.Entry, error) {
	var sprites catalog.Sprites
	if detail != nil {
		sprites = detail.Sprites
	}
	if p.Gender != nil {
		g, err := roster.ParseGender(*p.Gender)
		if err != nil {
			return nil, err
		}
		e = roster.WithGender(e, sprites, g)
	}
	if p.Shiny != nil {
		e = roster.WithShiny(e, sprites, *p.Shiny)
	}
	if p.Ability != nil {
		var err error
		if e, err = roster.WithAbility(e, detail, *p.Ability); err != nil {
			return nil, err
		}
	}
	for _, m := range p.Moves {
		var err error
		if e, err = roster.WithMove(e, detail, m.Index, m.Name); err != nil {
			return nil, err
		}
	}
	if p.HeldItem != nil {
		e = roster.WithHeldItem(e, p.HeldItem)
	}
	return e, nil
}
