// Package catalog defines the species catalog contract: the shapes the
// catalog provider normalizes into and the read-only Client interface the
// filter engine and roster editing depend on.
//
// The catalog is keyed by name. List endpoints only expose a name and a
// resource URL per species; numeric ids appear in detail records.
package catalog

import (
	"context"
	"regexp"
	"strconv"
)

// Client is the read-only species catalog.
type Client interface {
	// ListGenerations returns every generation the catalog knows about.
	ListGenerations(ctx context.Context) ([]NamedResource, error)

	// ListGeneration returns the species introduced in generation index.
	// Unknown indexes fail with common.ErrNotFound.
	ListGeneration(ctx context.Context, index int) (*Generation, error)

	// GetSpeciesDetail returns the full record for one species.
	GetSpeciesDetail(ctx context.Context, name string) (*SpeciesDetail, error)

	// ListTypes returns every type name.
	ListTypes(ctx context.Context) ([]NamedResource, error)

	// ListByType returns the membership list of a type (name or numeric id).
	ListByType(ctx context.Context, typeKey string) ([]SpeciesRef, error)

	// ListByAbility returns the membership list of an ability.
	ListByAbility(ctx context.Context, ability string) ([]SpeciesRef, error)

	// ListAbilities returns every ability name.
	ListAbilities(ctx context.Context) ([]NamedResource, error)
}

// NamedResource is a name plus the catalog URL it resolves to.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// SpeciesRef is one entry of a catalog list response.
type SpeciesRef struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	DexNumber *int   `json:"dex_number"`
}

// NewSpeciesRef builds a SpeciesRef, deriving the dex number from url.
func NewSpeciesRef(name, url string) SpeciesRef {
	return SpeciesRef{Name: name, URL: url, DexNumber: DexNumberFromURL(url)}
}

// Generation is one generation and the species it introduced.
type Generation struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Species []SpeciesRef `json:"species"`
}

// Stat is one base-stat entry.
type Stat struct {
	Name     string `json:"name"`
	BaseStat int    `json:"base_stat"`
}

// AbilitySlot is an ability a species can have.
type AbilitySlot struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	Hidden bool   `json:"is_hidden"`
	Slot   int    `json:"slot"`
}

// SpeciesDetail is the full record of one species.
type SpeciesDetail struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Types     []string        `json:"types"`
	Stats     []Stat          `json:"stats"`
	Sprites   Sprites         `json:"sprites"`
	Abilities []AbilitySlot   `json:"abilities"`
	Moves     []NamedResource `json:"moves"`
}

// HasAbility reports whether the species can have the named ability.
func (d *SpeciesDetail) HasAbility(name string) (AbilitySlot, bool) {
	for _, a := range d.Abilities {
		if a.Name == name {
			return a, true
		}
	}
	return AbilitySlot{}, false
}

// HasMove reports whether the species can learn the named move.
func (d *SpeciesDetail) HasMove(name string) (NamedResource, bool) {
	for _, m := range d.Moves {
		if m.Name == name {
			return m, true
		}
	}
	return NamedResource{}, false
}

// --------------------------------------------------------------------------
// Dex numbers
// --------------------------------------------------------------------------

var dexPattern = regexp.MustCompile(`/pokemon(?:-species)?/(\d+)/?$`)

// DexNumberFromURL extracts the national dex number from a catalog resource
// URL of the form .../pokemon/<id>/ or .../pokemon-species/<id>/.
// Returns nil when the URL does not match.
func DexNumberFromURL(url string) *int {
	m := dexPattern.FindStringSubmatch(url)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}
