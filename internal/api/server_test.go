package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/rosterdex/internal/api/handler"
	"github.com/albapepper/rosterdex/internal/auth"
	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/config"
	"github.com/albapepper/rosterdex/internal/db"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/metrics"
	"github.com/albapepper/rosterdex/internal/repository/rosters"
	"github.com/albapepper/rosterdex/internal/roster"
	"github.com/albapepper/rosterdex/internal/session"
)

// -------- fake catalog --------

func ref(name string, dex int) catalog.SpeciesRef {
	return catalog.NewSpeciesRef(name, fmt.Sprintf("https://pokeapi.co/api/v2/pokemon-species/%d/", dex))
}

type fakeCatalog struct {
	mu        sync.Mutex
	gens      map[int][]catalog.SpeciesRef
	types     map[string][]catalog.SpeciesRef
	abilities map[string][]catalog.SpeciesRef
	details   map[string]*catalog.SpeciesDetail
	gates     map[string]chan struct{}
	started   chan string
	down      bool
	// stubborn gated calls ignore cancellation and wait for their gate.
	stubborn bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		gens: map[int][]catalog.SpeciesRef{
			1: {ref("bulbasaur", 1), ref("pidgey", 16), ref("pikachu", 25)},
			2: {ref("chikorita", 152)},
		},
		types: map[string][]catalog.SpeciesRef{
			"grass":    {ref("bulbasaur", 1), ref("chikorita", 152)},
			"electric": {ref("pikachu", 25)},
			"flying":   {ref("pidgey", 16)},
		},
		abilities: map[string][]catalog.SpeciesRef{
			"static": {ref("pikachu", 25)},
		},
		details: map[string]*catalog.SpeciesDetail{
			"pikachu": {
				ID:    25,
				Name:  "pikachu",
				Types: []string{"electric"},
				Stats: []catalog.Stat{{Name: "hp", BaseStat: 35}, {Name: "speed", BaseStat: 90}},
				Sprites: catalog.Sprites{
					FrontDefault: "https://img/25.png",
					FrontFemale:  "https://img/female/25.png",
					FrontShiny:   "https://img/shiny/25.png",
				},
				Abilities: []catalog.AbilitySlot{
					{Name: "static", URL: "https://pokeapi.co/api/v2/ability/9/", Slot: 1},
					{Name: "lightning-rod", URL: "https://pokeapi.co/api/v2/ability/31/", Hidden: true, Slot: 3},
				},
				Moves: []catalog.NamedResource{
					{Name: "thunderbolt", URL: "https://pokeapi.co/api/v2/move/85/"},
					{Name: "quick-attack", URL: "https://pokeapi.co/api/v2/move/98/"},
				},
			},
			"bulbasaur": {ID: 1, Name: "bulbasaur", Types: []string{"grass", "poison"},
				Sprites: catalog.Sprites{FrontDefault: "https://img/1.png"}},
		},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

func (f *fakeCatalog) wait(ctx context.Context, key string) error {
	f.mu.Lock()
	gate, down, stubborn := f.gates[key], f.down, f.stubborn
	f.mu.Unlock()
	if down {
		return fmt.Errorf("catalog: %w", common.ErrUpstreamUnavailable)
	}
	if gate == nil {
		return nil
	}
	f.started <- key
	if stubborn {
		<-gate
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCatalog) gate(key string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeCatalog) ListGenerations(ctx context.Context) ([]catalog.NamedResource, error) {
	return []catalog.NamedResource{{Name: "generation-i"}, {Name: "generation-ii"}}, f.wait(ctx, "gens")
}

func (f *fakeCatalog) ListGeneration(ctx context.Context, index int) (*catalog.Generation, error) {
	if err := f.wait(ctx, fmt.Sprintf("gen:%d", index)); err != nil {
		return nil, err
	}
	refs, ok := f.gens[index]
	if !ok {
		return nil, fmt.Errorf("generation %d: %w", index, common.ErrNotFound)
	}
	return &catalog.Generation{ID: index, Name: fmt.Sprintf("generation-%d", index), Species: refs}, nil
}

func (f *fakeCatalog) GetSpeciesDetail(ctx context.Context, name string) (*catalog.SpeciesDetail, error) {
	if err := f.wait(ctx, "detail:"+name); err != nil {
		return nil, err
	}
	d, ok := f.details[name]
	if !ok {
		return nil, fmt.Errorf("species %s: %w", name, common.ErrNotFound)
	}
	return d, nil
}

func (f *fakeCatalog) ListTypes(ctx context.Context) ([]catalog.NamedResource, error) {
	return []catalog.NamedResource{{Name: "electric"}, {Name: "flying"}, {Name: "grass"}}, f.wait(ctx, "types")
}

func (f *fakeCatalog) ListByType(ctx context.Context, key string) ([]catalog.SpeciesRef, error) {
	if err := f.wait(ctx, "type:"+key); err != nil {
		return nil, err
	}
	refs, ok := f.types[key]
	if !ok {
		return nil, fmt.Errorf("type %s: %w", key, common.ErrNotFound)
	}
	return refs, nil
}

func (f *fakeCatalog) ListByAbility(ctx context.Context, name string) ([]catalog.SpeciesRef, error) {
	if err := f.wait(ctx, "ability:"+name); err != nil {
		return nil, err
	}
	refs, ok := f.abilities[name]
	if !ok {
		return nil, fmt.Errorf("ability %s: %w", name, common.ErrNotFound)
	}
	return refs, nil
}

func (f *fakeCatalog) ListAbilities(ctx context.Context) ([]catalog.NamedResource, error) {
	return []catalog.NamedResource{{Name: "static"}}, f.wait(ctx, "abilities")
}

// -------- harness --------

type harness struct {
	t       *testing.T
	router  http.Handler
	catalog *fakeCatalog
	issuer  *auth.Issuer
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	d, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(d.Close)
	require.NoError(t, d.Migrate(ctx))

	cfg := config.Defaults()
	cfg.RateLimitEnabled = false

	fc := newFakeCatalog()
	store := rosters.FromDB(d)
	m := metrics.New()
	reg := session.NewRegistry(fc, store, session.Options{IdleTimeout: time.Hour, Logger: quiet, Metrics: m})
	t.Cleanup(reg.CloseAll)
	issuer := auth.NewIssuer([]byte("test-secret"), "rosterdex", time.Hour)

	router := NewRouter(cfg, Deps{
		Handler: handler.Deps{Catalog: fc, Store: store, Sessions: reg, DB: d, Logger: quiet},
		Auth:    issuer,
		Metrics: m,
	})
	return &harness{t: t, router: router, catalog: fc, issuer: issuer, metrics: m}
}

func (h *harness) token(owner string) string {
	tok, err := h.issuer.IssueToken(owner)
	require.NoError(h.t, err)
	return tok
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(h.t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type filterView struct {
	State struct {
		GenerationCeiling int                  `json:"generation_ceiling"`
		Type1             []catalog.SpeciesRef `json:"type1"`
		Ability           []catalog.SpeciesRef `json:"ability"`
		Text              string               `json:"text"`
	} `json:"state"`
	UniverseSize int  `json:"universe_size"`
	VisibleCount int  `json:"visible_count"`
	Superseded   bool `json:"superseded"`
}

type workspaceView struct {
	Roster  roster.Roster    `json:"roster"`
	Summary roster.Summary   `json:"summary"`
	Rosters []roster.Summary `json:"rosters"`
}

type errorBody struct {
	Error struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"error"`
}

func (h *harness) openSession(token string) string {
	rec := h.do(http.MethodPost, "/api/v1/sessions", token, nil)
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	info := decodeBody[session.Info](h.t, rec)
	require.NotEmpty(h.t, info.ID)
	return info.ID
}

// -------- tests --------

func TestHealth(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/health/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Process-Time"))

	rec = h.do(http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "connected")

	rec = h.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rosterdex_http_requests_total")
}

func TestCatalogSpeciesETag(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/catalog/species/pikachu", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)
	detail := decodeBody[catalog.SpeciesDetail](t, rec)
	assert.Equal(t, 25, detail.ID)

	rec = h.do(http.MethodGet, "/api/v1/catalog/species/pikachu", "", nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/catalog/species/missingno", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody[errorBody](t, rec).Error.Code)
}

func TestCatalogLists(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/catalog/types", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":3`)

	rec = h.do(http.MethodGet, "/api/v1/catalog/generations/2", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chikorita")

	rec = h.do(http.MethodGet, "/api/v1/catalog/generations/x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	h.catalog.down = true
	rec = h.do(http.MethodGet, "/api/v1/catalog/abilities", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNAVAILABLE", decodeBody[errorBody](t, rec).Error.Code)
}

func TestOwnerRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/api/v1/rosters", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/rosters", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/rosters", h.token("ash"), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFilterFlow(t *testing.T) {
	h := newHarness(t)
	tok := h.token("ash")
	id := h.openSession(tok)
	base := "/api/v1/sessions/" + id

	rec := h.do(http.MethodPut, base+"/filter/generation", tok, map[string]int{"ceiling": 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decodeBody[filterView](t, rec)
	assert.Equal(t, 2, view.State.GenerationCeiling)
	assert.Equal(t, 4, view.UniverseSize)
	assert.Equal(t, 4, view.VisibleCount)

	rec = h.do(http.MethodPut, base+"/filter/facets/type1", tok, map[string]string{"key": "grass"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeBody[filterView](t, rec).VisibleCount)

	rec = h.do(http.MethodPut, base+"/filter/text", tok, map[string]string{"query": "  CHIK "})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[filterView](t, rec).VisibleCount)

	rec = h.do(http.MethodGet, base+"/species", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "chikorita")
	assert.NotContains(t, rec.Body.String(), "bulbasaur")

	rec = h.do(http.MethodPut, base+"/filter/text", tok, map[string]string{"query": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, base+"/filter/facets/type1", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decodeBody[filterView](t, rec).VisibleCount)

	rec = h.do(http.MethodGet, base+"/species?offset=1&limit=2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[struct {
		Count   int                  `json:"count"`
		Results []catalog.SpeciesRef `json:"results"`
	}](t, rec)
	assert.Equal(t, 4, page.Count)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "pidgey", page.Results[0].Name)
	assert.Equal(t, "pikachu", page.Results[1].Name)

	rec = h.do(http.MethodGet, base+"/species?offset=1&limit=9223372036854775807", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, "a huge limit returns the rest of the list")
	page = decodeBody[struct {
		Count   int                  `json:"count"`
		Results []catalog.SpeciesRef `json:"results"`
	}](t, rec)
	assert.Len(t, page.Results, 3)

	rec = h.do(http.MethodGet, base+"/species?offset=9223372036854775807&limit=9223372036854775807", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"results":[]`)
}

func TestFilterErrors(t *testing.T) {
	h := newHarness(t)
	tok := h.token("ash")
	base := "/api/v1/sessions/" + h.openSession(tok)

	rec := h.do(http.MethodPut, base+"/filter/generation", tok, map[string]int{"ceiling": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, ceiling := range []int{filter.DefaultMaxGeneration + 1, 1 << 31, 1 << 62} {
		rec = h.do(http.MethodPut, base+"/filter/generation", tok, map[string]int{"ceiling": ceiling})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "ceiling %d", ceiling)
		assert.Equal(t, "VALIDATION_ERROR", decodeBody[errorBody](t, rec).Error.Code)
	}

	rec = h.do(http.MethodPut, base+"/filter/facets/color", tok, map[string]string{"key": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, base+"/filter/facets/type1", tok, map[string]string{"key": "shadow"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "facet=type1 key=shadow", decodeBody[errorBody](t, rec).Error.Detail)

	rec = h.do(http.MethodPut, base+"/filter/text", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_BODY", decodeBody[errorBody](t, rec).Error.Code)

	h.catalog.down = true
	rec = h.do(http.MethodPut, base+"/filter/facets/ability", tok, map[string]string{"key": "static"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSupersededFacetReportsCurrentState(t *testing.T) {
	h := newHarness(t)
	tok := h.token("ash")
	base := "/api/v1/sessions/" + h.openSession(tok)

	rec := h.do(http.MethodPut, base+"/filter/generation", tok, map[string]int{"ceiling": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	h.catalog.stubborn = true
	gate := h.catalog.gate("type:grass")
	slow := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		slow <- h.do(http.MethodPut, base+"/filter/facets/type1", tok, map[string]string{"key": "grass"})
	}()
	select {
	case <-h.catalog.started:
	case <-time.After(2 * time.Second):
		t.Fatal("slow facet fetch never started")
	}

	rec = h.do(http.MethodPut, base+"/filter/facets/type1", tok, map[string]string{"key": "electric"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[filterView](t, rec).Superseded)
	close(gate)

	var late *httptest.ResponseRecorder
	select {
	case late = <-slow:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request did not return")
	}
	require.Equal(t, http.StatusOK, late.Code, late.Body.String())
	view := decodeBody[filterView](t, late)
	assert.True(t, view.Superseded)
	require.Len(t, view.State.Type1, 1)
	assert.Equal(t, "pikachu", view.State.Type1[0].Name)
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	h := newHarness(t)
	ash, misty := h.token("ash"), h.token("misty")
	id := h.openSession(ash)

	rec := h.do(http.MethodGet, "/api/v1/sessions/"+id+"/filter", misty, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodDelete, "/api/v1/sessions/"+id, ash, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/sessions/"+id+"/filter", ash, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRosterEditingAndSync(t *testing.T) {
	h := newHarness(t)
	tok := h.token("ash")
	base := "/api/v1/sessions/" + h.openSession(tok)

	rec := h.do(http.MethodGet, base+"/roster", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ws := decodeBody[workspaceView](t, rec)
	assert.True(t, ws.Summary.IsNew)
	assert.Equal(t, roster.DraftName, ws.Roster.Name)

	rec = h.do(http.MethodPut, base+"/roster/slots/2", tok, map[string]string{"species": "pikachu"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ws = decodeBody[workspaceView](t, rec)
	require.NotNil(t, ws.Roster.Slots[2])
	assert.Equal(t, "https://img/25.png", *ws.Roster.Slots[2].Sprite)
	assert.Equal(t, 1, ws.Summary.MemberCount)

	patch := map[string]any{
		"gender":    "female",
		"ability":   "lightning-rod",
		"moves":     []map[string]any{{"index": 0, "name": "thunderbolt"}, {"index": 3, "name": "quick-attack"}},
		"held_item": map[string]string{"name": "light-ball", "url": "https://pokeapi.co/api/v2/item/213/"},
	}
	rec = h.do(http.MethodPatch, base+"/roster/slots/2", tok, patch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	e := decodeBody[workspaceView](t, rec).Roster.Slots[2]
	require.NotNil(t, e)
	assert.Equal(t, roster.GenderFemale, e.Gender)
	assert.Equal(t, "https://img/female/25.png", *e.Sprite)
	assert.Equal(t, "lightning-rod", e.Ability.Name)
	assert.Equal(t, "thunderbolt", e.Moves[0].Name)
	assert.Nil(t, e.Moves[1])
	assert.Equal(t, "quick-attack", e.Moves[3].Name)
	assert.Equal(t, "light-ball", e.HeldItem.Name)

	rec = h.do(http.MethodPatch, base+"/roster/slots/2", tok, map[string]any{"shiny": true})
	require.Equal(t, http.StatusOK, rec.Code)
	e = decodeBody[workspaceView](t, rec).Roster.Slots[2]
	assert.True(t, e.Shiny)
	assert.Equal(t, "https://img/shiny/25.png", *e.Sprite, "no shiny female art falls back to shiny")

	rec = h.do(http.MethodPatch, base+"/roster/slots/2", tok, map[string]any{"ability": "overgrow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPatch, base+"/roster/slots/2", tok, map[string]any{"moves": []map[string]any{{"index": 4, "name": "thunderbolt"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = h.do(http.MethodPatch, base+"/roster/slots/0", tok, map[string]any{"shiny": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty slot")
	rec = h.do(http.MethodPut, base+"/roster/slots/6", tok, map[string]string{"species": "pikachu"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPut, base+"/roster/name", tok, map[string]string{"name": "   "})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, base+"/roster/save", tok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "blank names are rejected on save")

	rec = h.do(http.MethodPut, base+"/roster/name", tok, map[string]string{"name": "Sparky"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, base+"/roster/save", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ws = decodeBody[workspaceView](t, rec)
	require.NotNil(t, ws.Roster.ID)
	firstID := *ws.Roster.ID
	require.Len(t, ws.Rosters, 1)
	assert.False(t, ws.Summary.IsNew)

	rec = h.do(http.MethodDelete, base+"/roster/slots/2", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, base+"/roster/save", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ws = decodeBody[workspaceView](t, rec)
	assert.Equal(t, firstID, *ws.Roster.ID, "second save updates in place")
	assert.Zero(t, ws.Summary.MemberCount)

	rec = h.do(http.MethodPost, base+"/roster/duplicate", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ws = decodeBody[workspaceView](t, rec)
	assert.Nil(t, ws.Roster.ID)
	assert.Equal(t, "Sparky (copy)", ws.Roster.Name)

	rec = h.do(http.MethodPut, base+"/roster/name", tok, map[string]string{"name": "SPARKY"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodPost, base+"/roster/save", tok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPost, base+"/roster/load/"+fmt.Sprint(firstID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Sparky", decodeBody[workspaceView](t, rec).Roster.Name)

	rec = h.do(http.MethodDelete, base+"/rosters/"+fmt.Sprint(firstID), tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ws = decodeBody[workspaceView](t, rec)
	assert.True(t, ws.Summary.IsNew, "deleting the loaded roster resets to a draft")
	assert.Empty(t, ws.Rosters)

	rec = h.do(http.MethodPost, base+"/roster/load/"+fmt.Sprint(firstID), tok, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDirectRosterAccess(t *testing.T) {
	h := newHarness(t)
	ash, misty := h.token("ash"), h.token("misty")

	body := map[string]any{
		"name": "Kanto",
		"slots": []any{
			map[string]any{"id": 25, "name": "pikachu", "types": []any{map[string]any{"type": map[string]any{"name": "electric"}}}, "shiny": "yes"},
			nil,
			map[string]any{"id": 0},
		},
	}
	rec := h.do(http.MethodPost, "/api/v1/rosters", ash, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[roster.Roster](t, rec)
	require.NotNil(t, created.ID)
	require.NotNil(t, created.Slots[0])
	assert.Equal(t, []string{"electric"}, created.Slots[0].Types)
	assert.True(t, created.Slots[0].Shiny)
	assert.Nil(t, created.Slots[2], "entries with neither id nor name collapse to empty slots")

	path := "/api/v1/rosters/" + fmt.Sprint(*created.ID)

	rec = h.do(http.MethodGet, path, misty, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, path, ash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	rec = h.do(http.MethodGet, path, ash, nil, "If-None-Match", etag)
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/rosters", ash, map[string]any{"name": "kanto"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = h.do(http.MethodPut, path, ash, map[string]any{"name": "Kanto Elite", "slots": []any{}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Kanto Elite", decodeBody[roster.Roster](t, rec).Name)

	rec = h.do(http.MethodGet, "/api/v1/rosters", ash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = h.do(http.MethodDelete, path, ash, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(http.MethodDelete, path, ash, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/rosters/abc", ash, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	limited := RateLimitMiddleware(2, time.Hour)(ok)

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, rec.Code)
	}
	// burst is half the window allowance
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}
