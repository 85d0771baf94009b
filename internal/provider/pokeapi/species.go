package pokeapi

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
)

// Compile-time check that Client satisfies the catalog contract.
var _ catalog.Client = (*Client)(nil)

// --------------------------------------------------------------------------
// Wire types (PokeAPI v2 response shapes)
// --------------------------------------------------------------------------

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type pageResponse struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results []namedResource `json:"results"`
}

type generationResponse struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	PokemonSpecies []namedResource `json:"pokemon_species"`
}

type typeResponse struct {
	Pokemon []struct {
		Slot    int           `json:"slot"`
		Pokemon namedResource `json:"pokemon"`
	} `json:"pokemon"`
}

type abilityResponse struct {
	Pokemon []struct {
		IsHidden bool          `json:"is_hidden"`
		Slot     int           `json:"slot"`
		Pokemon  namedResource `json:"pokemon"`
	} `json:"pokemon"`
}

type pokemonResponse struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Types []struct {
		Slot int           `json:"slot"`
		Type namedResource `json:"type"`
	} `json:"types"`
	Stats []struct {
		BaseStat int           `json:"base_stat"`
		Stat     namedResource `json:"stat"`
	} `json:"stats"`
	Sprites struct {
		FrontDefault     *string `json:"front_default"`
		FrontFemale      *string `json:"front_female"`
		FrontShiny       *string `json:"front_shiny"`
		FrontShinyFemale *string `json:"front_shiny_female"`
		BackDefault      *string `json:"back_default"`
		BackFemale       *string `json:"back_female"`
		BackShiny        *string `json:"back_shiny"`
		BackShinyFemale  *string `json:"back_shiny_female"`
	} `json:"sprites"`
	Abilities []struct {
		Ability  namedResource `json:"ability"`
		IsHidden bool          `json:"is_hidden"`
		Slot     int           `json:"slot"`
	} `json:"abilities"`
	Moves []struct {
		Move namedResource `json:"move"`
	} `json:"moves"`
}

// --------------------------------------------------------------------------
// catalog.Client
// --------------------------------------------------------------------------

// ListGenerations returns every generation.
func (c *Client) ListGenerations(ctx context.Context) ([]catalog.NamedResource, error) {
	items, err := c.getPaginated(ctx, "generation_list", "/generation")
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return toNamed(items), nil
}

// ListGeneration returns the species introduced in one generation.
func (c *Client) ListGeneration(ctx context.Context, index int) (*catalog.Generation, error) {
	if index < 1 {
		return nil, fmt.Errorf("generation %d: %w", index, common.ErrValidation)
	}
	var resp generationResponse
	if err := c.get(ctx, "generation", "/generation/"+strconv.Itoa(index), nil, &resp); err != nil {
		return nil, fmt.Errorf("generation %d: %w", index, err)
	}
	return &catalog.Generation{
		ID:      resp.ID,
		Name:    resp.Name,
		Species: toRefs(resp.PokemonSpecies),
	}, nil
}

// GetSpeciesDetail fetches the full record of one species.
func (c *Client) GetSpeciesDetail(ctx context.Context, name string) (*catalog.SpeciesDetail, error) {
	key := normalizeKey(name)
	if key == "" {
		return nil, fmt.Errorf("species name is required: %w", common.ErrValidation)
	}
	var resp pokemonResponse
	if err := c.get(ctx, "pokemon", "/pokemon/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, fmt.Errorf("species %q: %w", key, err)
	}
	return toDetail(&resp), nil
}

// ListTypes returns every type.
func (c *Client) ListTypes(ctx context.Context) ([]catalog.NamedResource, error) {
	items, err := c.getPaginated(ctx, "type_list", "/type")
	if err != nil {
		return nil, fmt.Errorf("list types: %w", err)
	}
	return toNamed(items), nil
}

// ListByType returns every species of a type. typeKey may be a name or id.
func (c *Client) ListByType(ctx context.Context, typeKey string) ([]catalog.SpeciesRef, error) {
	key := normalizeKey(typeKey)
	if key == "" {
		return nil, fmt.Errorf("type is required: %w", common.ErrValidation)
	}
	var resp typeResponse
	if err := c.get(ctx, "type", "/type/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, fmt.Errorf("type %q: %w", key, err)
	}
	refs := make([]catalog.SpeciesRef, 0, len(resp.Pokemon))
	for _, p := range resp.Pokemon {
		refs = append(refs, catalog.NewSpeciesRef(p.Pokemon.Name, p.Pokemon.URL))
	}
	return refs, nil
}

// ListByAbility returns every species that can have an ability.
func (c *Client) ListByAbility(ctx context.Context, ability string) ([]catalog.SpeciesRef, error) {
	key := normalizeKey(ability)
	if key == "" {
		return nil, fmt.Errorf("ability is required: %w", common.ErrValidation)
	}
	var resp abilityResponse
	if err := c.get(ctx, "ability", "/ability/"+url.PathEscape(key), nil, &resp); err != nil {
		return nil, fmt.Errorf("ability %q: %w", key, err)
	}
	refs := make([]catalog.SpeciesRef, 0, len(resp.Pokemon))
	for _, p := range resp.Pokemon {
		refs = append(refs, catalog.NewSpeciesRef(p.Pokemon.Name, p.Pokemon.URL))
	}
	return refs, nil
}

// ListAbilities returns every ability.
func (c *Client) ListAbilities(ctx context.Context) ([]catalog.NamedResource, error) {
	items, err := c.getPaginated(ctx, "ability_list", "/ability")
	if err != nil {
		return nil, fmt.Errorf("list abilities: %w", err)
	}
	return toNamed(items), nil
}

// --------------------------------------------------------------------------
// Conversion
// --------------------------------------------------------------------------

// normalizeKey lower-cases and trims a catalog key; PokeAPI names are
// lower-case and 404 on anything else.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func toNamed(items []namedResource) []catalog.NamedResource {
	out := make([]catalog.NamedResource, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.NamedResource{Name: it.Name, URL: it.URL})
	}
	return out
}

func toRefs(items []namedResource) []catalog.SpeciesRef {
	out := make([]catalog.SpeciesRef, 0, len(items))
	for _, it := range items {
		out = append(out, catalog.NewSpeciesRef(it.Name, it.URL))
	}
	return out
}

func toDetail(resp *pokemonResponse) *catalog.SpeciesDetail {
	d := &catalog.SpeciesDetail{
		ID:        resp.ID,
		Name:      resp.Name,
		Types:     make([]string, 0, len(resp.Types)),
		Stats:     make([]catalog.Stat, 0, len(resp.Stats)),
		Abilities: make([]catalog.AbilitySlot, 0, len(resp.Abilities)),
		Moves:     make([]catalog.NamedResource, 0, len(resp.Moves)),
	}

	types := resp.Types
	sort.SliceStable(types, func(i, j int) bool { return types[i].Slot < types[j].Slot })
	for _, t := range types {
		d.Types = append(d.Types, t.Type.Name)
	}
	for _, s := range resp.Stats {
		d.Stats = append(d.Stats, catalog.Stat{Name: s.Stat.Name, BaseStat: s.BaseStat})
	}
	for _, a := range resp.Abilities {
		d.Abilities = append(d.Abilities, catalog.AbilitySlot{
			Name:   a.Ability.Name,
			URL:    a.Ability.URL,
			Hidden: a.IsHidden,
			Slot:   a.Slot,
		})
	}
	for _, m := range resp.Moves {
		d.Moves = append(d.Moves, catalog.NamedResource{Name: m.Move.Name, URL: m.Move.URL})
	}

	sp := resp.Sprites
	d.Sprites = catalog.Sprites{
		FrontDefault:     deref(sp.FrontDefault),
		FrontFemale:      deref(sp.FrontFemale),
		FrontShiny:       deref(sp.FrontShiny),
		FrontShinyFemale: deref(sp.FrontShinyFemale),
		BackDefault:      deref(sp.BackDefault),
		BackFemale:       deref(sp.BackFemale),
		BackShiny:        deref(sp.BackShiny),
		BackShinyFemale:  deref(sp.BackShinyFemale),
	}
	return d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
