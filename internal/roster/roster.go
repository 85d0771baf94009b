package roster

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/albapepper/rosterdex/internal/common"
)

const (
	// SlotCount is the fixed number of roster slots.
	SlotCount = 6

	// MaxNameLength bounds a roster name in characters.
	MaxNameLength = 100

	// DraftName is the name of a freshly created draft.
	DraftName = "Untitled"

	copySuffix = " (copy)"
)

// Slots is the fixed-length slot array. A nil element is an empty slot.
type Slots [SlotCount]*Entry

// Canonical returns a copy with every entry normalized.
func (s Slots) Canonical() Slots {
	var out Slots
	for i, e := range s {
		out[i] = Canonical(e)
	}
	return out
}

// MemberCount returns the number of occupied slots.
func (s Slots) MemberCount() int {
	n := 0
	for _, e := range s {
		if e != nil {
			n++
		}
	}
	return n
}

// Roster is one named roster of an owner. A nil ID marks a draft that has
// never been persisted.
type Roster struct {
	ID        *int64    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Slots     Slots     `json:"slots"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the short form of a roster used in listings.
type Summary struct {
	ID          *int64    `json:"id"`
	Name        string    `json:"name"`
	MemberCount int       `json:"member_count"`
	IsNew       bool      `json:"is_new"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewDraft returns an empty unsaved roster for owner.
func NewDraft(owner string) *Roster {
	return &Roster{OwnerID: owner, Name: DraftName}
}

// IsPersisted reports whether r carries a positive id. Only persisted
// rosters are saved as updates.
func (r *Roster) IsPersisted() bool {
	return r != nil && r.ID != nil && *r.ID > 0
}

// SetSlot places a normalized copy of e at index. Placing an entry that
// normalizes to nothing empties the slot.
func (r *Roster) SetSlot(index int, e *Entry) error {
	if err := checkSlot(index); err != nil {
		return err
	}
	r.Slots[index] = Canonical(e)
	return nil
}

// ClearSlot empties the slot at index. The slot array never shrinks.
func (r *Roster) ClearSlot(index int) error {
	if err := checkSlot(index); err != nil {
		return err
	}
	r.Slots[index] = nil
	return nil
}

// Slot returns the entry at index, or nil.
func (r *Roster) Slot(index int) (*Entry, error) {
	if err := checkSlot(index); err != nil {
		return nil, err
	}
	return r.Slots[index], nil
}

// MemberCount returns the number of occupied slots.
func (r *Roster) MemberCount() int {
	return r.Slots.MemberCount()
}

// Duplicate returns an unsaved copy of r named "<name> (copy)".
func (r *Roster) Duplicate() *Roster {
	name := r.Name + copySuffix
	if utf8.RuneCountInString(name) > MaxNameLength {
		runes := []rune(r.Name)
		name = string(runes[:MaxNameLength-utf8.RuneCountInString(copySuffix)]) + copySuffix
	}
	return &Roster{
		OwnerID: r.OwnerID,
		Name:    name,
		Slots:   r.Slots.Canonical(),
	}
}

// Clone returns a deep copy of r.
func (r *Roster) Clone() *Roster {
	if r == nil {
		return nil
	}
	out := *r
	if r.ID != nil {
		id := *r.ID
		out.ID = &id
	}
	out.Slots = r.Slots.Canonical()
	return &out
}

// Summary returns the listing form of r.
func (r *Roster) Summary() Summary {
	return Summary{
		ID:          r.ID,
		Name:        r.Name,
		MemberCount: r.MemberCount(),
		IsNew:       !r.IsPersisted(),
		UpdatedAt:   r.UpdatedAt,
	}
}

// ValidateName trims name and checks it is non-empty and at most
// MaxNameLength characters.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("roster name is required: %w", common.ErrValidation)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", fmt.Errorf("roster name longer than %d characters: %w", MaxNameLength, common.ErrValidation)
	}
	return name, nil
}

func checkSlot(index int) error {
	if index < 0 || index >= SlotCount {
		return fmt.Errorf("slot %d out of range 0-%d: %w", index, SlotCount-1, common.ErrValidation)
	}
	return nil
}
