// Package filter builds the visible species set from a generation range and
// independently fetched facets.
//
// The catalog cannot combine predicates server-side, so every facet is a
// plain membership list joined on species name:
//
//	visible = (type1 ∪ type2) ∩ ability ∩ universe, then text, then dex order
//
// A nil facet is absent and ignored. A non-nil empty facet is a valid
// constraint that matches nothing.
package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
)

// Facet names one independently fetched constraint.
type Facet string

const (
	FacetGeneration Facet = "generation"
	FacetType1      Facet = "type1"
	FacetType2      Facet = "type2"
	FacetAbility    Facet = "ability"
)

// MembershipFacets are the facets backed by a catalog membership list.
var MembershipFacets = []Facet{FacetType1, FacetType2, FacetAbility}

// ParseFacet validates a membership facet name.
func ParseFacet(s string) (Facet, error) {
	switch f := Facet(strings.ToLower(strings.TrimSpace(s))); f {
	case FacetType1, FacetType2, FacetAbility:
		return f, nil
	default:
		return "", fmt.Errorf("unknown facet %q: %w", s, common.ErrValidation)
	}
}

// State is a snapshot of the engine's inputs.
type State struct {
	GenerationCeiling int                  `json:"generation_ceiling"`
	Type1             []catalog.SpeciesRef `json:"type1"`
	Type2             []catalog.SpeciesRef `json:"type2"`
	Ability           []catalog.SpeciesRef `json:"ability"`
	Text              string               `json:"text"`

	// Keys records the catalog key each loaded facet was fetched with.
	Keys map[Facet]string `json:"keys,omitempty"`
}

func (s *State) setFacet(f Facet, members []catalog.SpeciesRef) {
	switch f {
	case FacetType1:
		s.Type1 = members
	case FacetType2:
		s.Type2 = members
	case FacetAbility:
		s.Ability = members
	}
}

// clone deep-copies the state so callers cannot alias engine internals.
func (s State) clone() State {
	out := s
	out.Type1 = cloneRefs(s.Type1)
	out.Type2 = cloneRefs(s.Type2)
	out.Ability = cloneRefs(s.Ability)
	if s.Keys != nil {
		out.Keys = make(map[Facet]string, len(s.Keys))
		for k, v := range s.Keys {
			out.Keys[k] = v
		}
	}
	return out
}

// FacetError reports a facet whose fetch failed. The engine keeps its previous
// state when one is returned.
type FacetError struct {
	Facet Facet
	Key   string
	Err   error
}

func (e *FacetError) Error() string {
	return fmt.Sprintf("%s facet %q unavailable: %v", e.Facet, e.Key, e.Err)
}

func (e *FacetError) Unwrap() error { return e.Err }

// --------------------------------------------------------------------------
// Compute
// --------------------------------------------------------------------------

// Compute applies st to universe. It is deterministic in its inputs: the
// result depends only on universe order and st, never on how st was reached.
func Compute(universe []catalog.SpeciesRef, st State) []catalog.SpeciesRef {
	var types map[string]struct{}
	if st.Type1 != nil || st.Type2 != nil {
		types = make(map[string]struct{}, len(st.Type1)+len(st.Type2))
		addNames(types, st.Type1)
		addNames(types, st.Type2)
	}

	var abilities map[string]struct{}
	if st.Ability != nil {
		abilities = make(map[string]struct{}, len(st.Ability))
		addNames(abilities, st.Ability)
	}

	text := strings.ToLower(strings.TrimSpace(st.Text))

	out := make([]catalog.SpeciesRef, 0, len(universe))
	for _, ref := range universe {
		if types != nil {
			if _, ok := types[ref.Name]; !ok {
				continue
			}
		}
		if abilities != nil {
			if _, ok := abilities[ref.Name]; !ok {
				continue
			}
		}
		if text != "" && !strings.Contains(strings.ToLower(ref.Name), text) {
			continue
		}
		out = append(out, ref)
	}

	SortByDex(out)
	return out
}

// SortByDex orders refs by dex number ascending. Refs without a dex number
// go last and keep their relative order.
func SortByDex(refs []catalog.SpeciesRef) {
	sort.SliceStable(refs, func(i, j int) bool {
		a, b := refs[i].DexNumber, refs[j].DexNumber
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}

// mergeGenerations unions generation species lists in generation order,
// keeping the first occurrence of each name.
func mergeGenerations(gens []*catalog.Generation) []catalog.SpeciesRef {
	seen := make(map[string]struct{})
	var out []catalog.SpeciesRef
	for _, g := range gens {
		if g == nil {
			continue
		}
		for _, ref := range g.Species {
			if _, ok := seen[ref.Name]; ok {
				continue
			}
			seen[ref.Name] = struct{}{}
			out = append(out, ref)
		}
	}
	if out == nil {
		out = []catalog.SpeciesRef{}
	}
	return out
}

func addNames(set map[string]struct{}, refs []catalog.SpeciesRef) {
	for _, r := range refs {
		set[r.Name] = struct{}{}
	}
}

func cloneRefs(refs []catalog.SpeciesRef) []catalog.SpeciesRef {
	if refs == nil {
		return nil
	}
	out := make([]catalog.SpeciesRef, len(refs))
	copy(out, refs)
	return out
}
