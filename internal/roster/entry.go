// Package roster holds the roster data model and the sync protocol that
// persists it.
//
// A roster has exactly six slots. An empty slot is a nil *Entry; an entry is
// never partially filled. Every entry, whether built from a catalog record or
// decoded from stored JSON, passes through the same normalization so the
// invariants below always hold:
//
//   - Types and Stats are non-nil.
//   - Moves has exactly four positions.
//   - Gender is GenderMale or GenderFemale.
//   - Empty strings are stored as nil.
package roster

import (
	"fmt"
	"strings"

	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
)

// MoveSlots is the number of move positions of an entry.
const MoveSlots = 4

// Gender selects the sprite variant of an entry.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts "male" or "female" in any case.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g, nil
	default:
		return "", fmt.Errorf("unknown gender %q: %w", s, common.ErrValidation)
	}
}

// Ref is a named catalog resource chosen for an entry (ability, move, item).
type Ref struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatEntry is one base stat.
type StatEntry struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
}

// Entry is one occupied roster slot.
type Entry struct {
	ID       *int            `json:"id"`
	Name     *string         `json:"name"`
	Types    []string        `json:"types"`
	Stats    []StatEntry     `json:"stats"`
	Sprite   *string         `json:"sprite"`
	HeldItem *Ref            `json:"held_item"`
	Ability  *Ref            `json:"ability"`
	Moves    [MoveSlots]*Ref `json:"moves"`
	Gender   Gender          `json:"gender"`
	Shiny    bool            `json:"shiny"`
}

// DisplayName returns the species name or "" when unknown.
func (e *Entry) DisplayName() string {
	if e == nil || e.Name == nil {
		return ""
	}
	return *e.Name
}

// FromDetail builds a fresh entry for a species: default front sprite, no
// item, ability or moves, male, not shiny.
func FromDetail(d *catalog.SpeciesDetail) *Entry {
	if d == nil {
		return nil
	}
	e := &Entry{
		ID:     positiveInt(d.ID),
		Name:   nonEmpty(d.Name),
		Types:  make([]string, 0, len(d.Types)),
		Stats:  make([]StatEntry, 0, len(d.Stats)),
		Sprite: nonEmpty(d.Sprites.FrontDefault),
		Gender: GenderMale,
	}
	e.Types = append(e.Types, d.Types...)
	for _, s := range d.Stats {
		e.Stats = append(e.Stats, StatEntry{Name: s.Name, BaseStat: s.BaseStat})
	}
	return Canonical(e)
}

// Canonical returns a copy of e with every invariant enforced. It returns nil
// for a nil entry or one with neither a name nor an id. Stats without a name
// are dropped, as NormalizeEntry does.
func Canonical(e *Entry) *Entry {
	if e == nil {
		return nil
	}
	out := *e
	out.ID = positiveIntPtr(e.ID)
	out.Name = nonEmptyPtr(e.Name)
	if out.ID == nil && out.Name == nil {
		return nil
	}

	out.Types = make([]string, 0, len(e.Types))
	for _, t := range e.Types {
		if t == "" {
			t = unknownType
		}
		out.Types = append(out.Types, t)
	}
	out.Stats = make([]StatEntry, 0, len(e.Stats))
	for _, st := range e.Stats {
		if st.Name != "" {
			out.Stats = append(out.Stats, st)
		}
	}

	out.Sprite = nonEmptyPtr(e.Sprite)
	out.HeldItem = cleanRef(e.HeldItem)
	out.Ability = cleanRef(e.Ability)
	for i := range out.Moves {
		out.Moves[i] = cleanRef(e.Moves[i])
	}
	if out.Gender != GenderFemale {
		out.Gender = GenderMale
	}
	return &out
}

// SpriteFor picks the front sprite for a gender and shiny combination.
// Female art falls back to the default art and shiny art falls back to the
// plain sprite when the species has none.
func SpriteFor(s catalog.Sprites, g Gender, shiny bool) *string {
	return nonEmpty(s.Variant(false, shiny, g == GenderFemale))
}

// WithGender returns a copy of e with gender g and its sprite recomputed.
func WithGender(e *Entry, sprites catalog.Sprites, g Gender) *Entry {
	out := Canonical(e)
	if out == nil {
		return nil
	}
	out.Gender = g
	if g != GenderFemale {
		out.Gender = GenderMale
	}
	if sp := SpriteFor(sprites, out.Gender, out.Shiny); sp != nil {
		out.Sprite = sp
	}
	return out
}

// WithShiny returns a copy of e with the shiny flag set and its sprite
// recomputed.
func WithShiny(e *Entry, sprites catalog.Sprites, shiny bool) *Entry {
	out := Canonical(e)
	if out == nil {
		return nil
	}
	out.Shiny = shiny
	if sp := SpriteFor(sprites, out.Gender, out.Shiny); sp != nil {
		out.Sprite = sp
	}
	return out
}

// WithAbility returns a copy of e with ability name chosen from the species'
// abilities. An empty name clears the ability.
func WithAbility(e *Entry, d *catalog.SpeciesDetail, name string) (*Entry, error) {
	out := Canonical(e)
	if out == nil {
		return nil, fmt.Errorf("empty slot: %w", common.ErrValidation)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		out.Ability = nil
		return out, nil
	}
	a, ok := d.HasAbility(name)
	if !ok {
		return nil, fmt.Errorf("%s cannot have ability %q: %w", out.DisplayName(), name, common.ErrValidation)
	}
	out.Ability = &Ref{Name: a.Name, URL: a.URL}
	return out, nil
}

// WithMove returns a copy of e with move position index (0-3) set to name.
// The move must be learnable by the species. An empty name clears the
// position.
func WithMove(e *Entry, d *catalog.SpeciesDetail, index int, name string) (*Entry, error) {
	out := Canonical(e)
	if out == nil {
		return nil, fmt.Errorf("empty slot: %w", common.ErrValidation)
	}
	if index < 0 || index >= MoveSlots {
		return nil, fmt.Errorf("move index %d out of range: %w", index, common.ErrValidation)
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		out.Moves[index] = nil
		return out, nil
	}
	m, ok := d.HasMove(name)
	if !ok {
		return nil, fmt.Errorf("%s cannot learn %q: %w", out.DisplayName(), name, common.ErrValidation)
	}
	out.Moves[index] = &Ref{Name: m.Name, URL: m.URL}
	return out, nil
}

// WithHeldItem returns a copy of e holding item. A nil item clears it.
func WithHeldItem(e *Entry, item *Ref) *Entry {
	out := Canonical(e)
	if out == nil {
		return nil
	}
	out.HeldItem = cleanRef(item)
	return out
}

func cleanRef(r *Ref) *Ref {
	if r == nil || r.Name == "" {
		return nil
	}
	c := *r
	return &c
}

func positiveInt(n int) *int {
	if n <= 0 {
		return nil
	}
	return &n
}

func positiveIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	return positiveInt(*p)
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonEmptyPtr(p *string) *string {
	if p == nil {
		return nil
	}
	return nonEmpty(*p)
}
