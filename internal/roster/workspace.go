package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/metrics"
)

// Store is the owner-scoped roster persistence.
//
// Create and Update fail with common.ErrConflict when the owner already has
// another roster with the same case-insensitive name. Update, Get and Delete
// fail with common.ErrNotFound when id does not belong to owner. List returns
// the most recently updated roster first.
type Store interface {
	Create(ctx context.Context, owner, name string, slots Slots) (*Roster, error)
	Update(ctx context.Context, owner string, id int64, name string, slots Slots) (*Roster, error)
	List(ctx context.Context, owner string) ([]*Roster, error)
	Get(ctx context.Context, owner string, id int64) (*Roster, error)
	Delete(ctx context.Context, owner string, id int64) (*Roster, error)
}

// Workspace is the roster being edited in one session plus the owner's
// roster list. All methods are serialized; the workspace is the single
// writer of its roster.
type Workspace struct {
	store   Store
	owner   string
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	current *Roster
	list    []*Roster
}

// NewWorkspace starts a workspace on a fresh draft.
func NewWorkspace(store Store, owner string, logger *slog.Logger, m *metrics.Metrics) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		store:   store,
		owner:   owner,
		logger:  logger.With("owner", owner),
		metrics: m,
		current: NewDraft(owner),
	}
}

// Owner returns the owner id the workspace is scoped to.
func (w *Workspace) Owner() string { return w.owner }

// Current returns a copy of the roster being edited.
func (w *Workspace) Current() *Roster {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current.Clone()
}

// Rosters returns the last fetched roster list.
func (w *Workspace) Rosters() []Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Summary, 0, len(w.list))
	for _, r := range w.list {
		out = append(out, r.Summary())
	}
	return out
}

// Save persists the current roster. A roster with a positive id is updated,
// anything else is created. On success the current roster is replaced by the
// stored copy and the roster list is re-read from the store.
func (w *Workspace) Save(ctx context.Context) (*Roster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	op := "create"
	if w.current.IsPersisted() {
		op = "update"
	}

	name, err := ValidateName(w.current.Name)
	if err != nil {
		w.metrics.RosterWrite(op, writeOutcome(err))
		return nil, err
	}
	slots := w.current.Slots.Canonical()

	var saved *Roster
	if op == "update" {
		saved, err = w.store.Update(ctx, w.owner, *w.current.ID, name, slots)
	} else {
		saved, err = w.store.Create(ctx, w.owner, name, slots)
	}
	w.metrics.RosterWrite(op, writeOutcome(err))
	if err != nil {
		return nil, fmt.Errorf("%s roster %q: %w", op, name, err)
	}
	if !saved.IsPersisted() {
		return nil, fmt.Errorf("%s roster %q: store returned no id", op, name)
	}

	w.current = saved.Clone()
	w.logger.Info("Roster saved", "operation", op, "roster_id", *saved.ID, "name", saved.Name)

	w.refreshLocked(ctx)
	return w.current.Clone(), nil
}

// Load replaces the current roster with the stored roster id.
func (w *Workspace) Load(ctx context.Context, id int64) (*Roster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	r, err := w.store.Get(ctx, w.owner, id)
	if err != nil {
		return nil, fmt.Errorf("load roster %d: %w", id, err)
	}
	w.current = r.Clone()
	return w.current.Clone(), nil
}

// Delete removes roster id. When it is the loaded roster the workspace
// resets to a fresh draft.
func (w *Workspace) Delete(ctx context.Context, id int64) (*Roster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	deleted, err := w.store.Delete(ctx, w.owner, id)
	w.metrics.RosterWrite("delete", writeOutcome(err))
	if err != nil {
		return nil, fmt.Errorf("delete roster %d: %w", id, err)
	}
	if w.current.IsPersisted() && *w.current.ID == id {
		w.current = NewDraft(w.owner)
	}
	w.logger.Info("Roster deleted", "roster_id", id)

	w.refreshLocked(ctx)
	return deleted, nil
}

// Refresh re-reads the roster list. On failure the previous list is kept.
func (w *Workspace) Refresh(ctx context.Context) ([]Summary, error) {
	w.mu.Lock()
	list, err := w.store.List(ctx, w.owner)
	if err == nil {
		w.list = list
	}
	w.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list rosters: %w", err)
	}
	return w.Rosters(), nil
}

// Reset discards the current roster and starts a fresh draft.
func (w *Workspace) Reset() *Roster {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = NewDraft(w.owner)
	return w.current.Clone()
}

// Duplicate replaces the current roster with an unsaved copy of itself.
func (w *Workspace) Duplicate() *Roster {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = w.current.Duplicate()
	return w.current.Clone()
}

// Edit applies fn to a copy of the current roster and installs the result
// when fn succeeds. Identity fields cannot be changed by fn.
func (w *Workspace) Edit(fn func(r *Roster) error) (*Roster, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	next := w.current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = w.current.Clone().ID
	next.OwnerID = w.owner
	next.UpdatedAt = w.current.UpdatedAt
	next.Slots = next.Slots.Canonical()
	w.current = next
	return w.current.Clone(), nil
}

// refreshLocked re-reads the list after a write. A failure is logged and the
// previous list stays in place.
func (w *Workspace) refreshLocked(ctx context.Context) {
	list, err := w.store.List(ctx, w.owner)
	if err != nil {
		w.logger.Warn("Roster list refresh failed", "error", err)
		return
	}
	w.list = list
}

func writeOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrNotFound):
		return "not_found"
	case errors.Is(err, common.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}
