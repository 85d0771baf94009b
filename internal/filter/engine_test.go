package filter

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/metrics"
)

// fakeSource serves canned membership lists. A generation or facet key with
// a gate blocks until the gate is closed, ignoring cancellation, to model a
// slow response that arrives after it was superseded.
type fakeSource struct {
	mu          sync.Mutex
	generations map[int][]catalog.SpeciesRef
	types       map[string][]catalog.SpeciesRef
	abilities   map[string][]catalog.SpeciesRef
	failGen     map[int]error
	failKey     map[string]error
	gates       map[string]chan struct{}
	started     chan string
	calls       int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		generations: map[int][]catalog.SpeciesRef{},
		types:       map[string][]catalog.SpeciesRef{},
		abilities:   map[string][]catalog.SpeciesRef{},
		failGen:     map[int]error{},
		failKey:     map[string]error{},
		gates:       map[string]chan struct{}{},
		started:     make(chan string, 16),
	}
}

func (f *fakeSource) wait(key string) {
	f.mu.Lock()
	f.calls++
	gate := f.gates[key]
	f.mu.Unlock()
	if gate != nil {
		f.started <- key
		<-gate
	}
}

func (f *fakeSource) ListGeneration(ctx context.Context, index int) (*catalog.Generation, error) {
	f.wait(fmt.Sprintf("gen:%d", index))
	if err := f.failGen[index]; err != nil {
		return nil, err
	}
	species, ok := f.generations[index]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &catalog.Generation{ID: index, Species: species}, nil
}

func (f *fakeSource) ListByType(ctx context.Context, key string) ([]catalog.SpeciesRef, error) {
	f.wait("type:" + key)
	if err := f.failKey["type:"+key]; err != nil {
		return nil, err
	}
	return f.types[key], nil
}

func (f *fakeSource) ListByAbility(ctx context.Context, key string) ([]catalog.SpeciesRef, error) {
	f.wait("ability:" + key)
	if err := f.failKey["ability:"+key]; err != nil {
		return nil, err
	}
	return f.abilities[key], nil
}

func seededSource() *fakeSource {
	src := newFakeSource()
	src.generations[1] = []catalog.SpeciesRef{ref("bulbasaur", 1), ref("pikachu", 25), ref("pidgey", 16)}
	src.generations[2] = []catalog.SpeciesRef{ref("chikorita", 152), ref("pichu", 172)}
	src.generations[3] = []catalog.SpeciesRef{ref("treecko", 252), ref("pikachu", 25)}
	src.types["electric"] = []catalog.SpeciesRef{ref("pikachu", 25), ref("pichu", 172)}
	src.types["grass"] = []catalog.SpeciesRef{ref("bulbasaur", 1), ref("chikorita", 152), ref("treecko", 252)}
	src.types["flying"] = []catalog.SpeciesRef{ref("pidgey", 16)}
	src.abilities["static"] = []catalog.SpeciesRef{ref("pikachu", 25), ref("pichu", 172)}
	src.abilities["nothing"] = []catalog.SpeciesRef{}
	return src
}

func newTestEngine(src Source) *Engine {
	return NewEngine(src, Options{Concurrency: 2, Metrics: metrics.New()})
}

func TestGenerationCeiling(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(seededSource())

	require.NoError(t, e.SetGenerationCeiling(ctx, 1))
	gen1 := names(e.Visible())
	assert.Equal(t, []string{"bulbasaur", "pidgey", "pikachu"}, gen1)

	require.NoError(t, e.SetGenerationCeiling(ctx, 1))
	assert.Equal(t, gen1, names(e.Visible()), "repeating a ceiling must not change the result")

	require.NoError(t, e.SetGenerationCeiling(ctx, 3))
	gen3 := names(e.Visible())
	assert.Subset(t, gen3, gen1)
	assert.Equal(t, []string{"bulbasaur", "pidgey", "pikachu", "chikorita", "pichu", "treecko"}, gen3)
	assert.Equal(t, 6, e.UniverseSize())
	assert.Equal(t, 3, e.State().GenerationCeiling)
}

func TestGenerationCeilingValidation(t *testing.T) {
	e := newTestEngine(seededSource())
	err := e.SetGenerationCeiling(context.Background(), 0)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestGenerationCeilingAboveMaximum(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(seededSource(), Options{Concurrency: 2, MaxGeneration: 3})

	require.NoError(t, e.SetGenerationCeiling(ctx, 3))

	for _, n := range []int{4, DefaultMaxGeneration + 1, 1 << 31, 1 << 62, math.MaxInt} {
		err := e.SetGenerationCeiling(ctx, n)
		assert.True(t, errors.Is(err, common.ErrValidation), "ceiling %d: %v", n, err)
	}
	assert.Equal(t, 3, e.State().GenerationCeiling, "a rejected ceiling leaves the universe alone")
	assert.Equal(t, 6, e.UniverseSize())

	d := newTestEngine(seededSource())
	err := d.SetGenerationCeiling(ctx, DefaultMaxGeneration+1)
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestGenerationFailureKeepsUniverse(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	e := newTestEngine(src)
	require.NoError(t, e.SetGenerationCeiling(ctx, 1))

	src.failGen[3] = fmt.Errorf("timeout: %w", common.ErrUpstreamUnavailable)
	err := e.SetGenerationCeiling(ctx, 3)
	require.Error(t, err)

	var fe *FacetError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FacetGeneration, fe.Facet)
	assert.True(t, errors.Is(err, common.ErrUpstreamUnavailable))
	assert.Equal(t, 1, e.State().GenerationCeiling)
	assert.Equal(t, 3, e.UniverseSize())
}

func TestFacetsIntersect(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(seededSource())
	require.NoError(t, e.SetGenerationCeiling(ctx, 3))

	require.NoError(t, e.LoadFacet(ctx, FacetType1, "grass"))
	require.NoError(t, e.LoadFacet(ctx, FacetType2, "electric"))
	assert.Equal(t, []string{"bulbasaur", "pikachu", "chikorita", "pichu", "treecko"}, names(e.Visible()))

	require.NoError(t, e.LoadFacet(ctx, FacetAbility, "static"))
	assert.Equal(t, []string{"pikachu", "pichu"}, names(e.Visible()))

	e.SetTextQuery("  PICH ")
	assert.Equal(t, []string{"pichu"}, names(e.Visible()))

	st := e.State()
	assert.Equal(t, "pich", st.Text)
	assert.Equal(t, "grass", st.Keys[FacetType1])
	assert.Equal(t, "static", st.Keys[FacetAbility])
}

func TestEmptyFacetVersusCleared(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(seededSource())
	require.NoError(t, e.SetGenerationCeiling(ctx, 1))
	before := names(e.Visible())

	require.NoError(t, e.LoadFacet(ctx, FacetAbility, "nothing"))
	assert.Empty(t, e.Visible())
	assert.NotNil(t, e.State().Ability)

	require.NoError(t, e.ClearFacet(FacetAbility))
	assert.Equal(t, before, names(e.Visible()))
	assert.Nil(t, e.State().Ability)

	require.NoError(t, e.SetFacet(FacetType1, nil))
	assert.Empty(t, e.Visible(), "a nil member list installs an empty constraint")

	require.NoError(t, e.LoadFacet(ctx, FacetType1, ""))
	assert.Equal(t, before, names(e.Visible()), "an empty key clears the facet")
}

func TestFacetFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	e := newTestEngine(src)
	require.NoError(t, e.SetGenerationCeiling(ctx, 2))
	require.NoError(t, e.LoadFacet(ctx, FacetType1, "electric"))
	before := names(e.Visible())

	src.failKey["ability:static"] = fmt.Errorf("502: %w", common.ErrUpstreamUnavailable)
	err := e.LoadFacet(ctx, FacetAbility, "static")

	var fe *FacetError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, FacetAbility, fe.Facet)
	assert.Equal(t, "static", fe.Key)
	assert.Nil(t, e.State().Ability, "failed facet must not be installed")
	assert.Equal(t, before, names(e.Visible()))

	require.NoError(t, e.LoadFacet(ctx, FacetType2, "grass"))
	assert.Equal(t, []string{"bulbasaur", "pikachu", "chikorita", "pichu"}, names(e.Visible()))
}

func TestLateGenerationResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	gate := make(chan struct{})
	src.gates["gen:3"] = gate
	e := newTestEngine(src)

	errA := make(chan error, 1)
	go func() { errA <- e.SetGenerationCeiling(ctx, 3) }()

	select {
	case <-src.started:
	case <-time.After(2 * time.Second):
		t.Fatal("ceiling A never started")
	}

	require.NoError(t, e.SetGenerationCeiling(ctx, 1))
	close(gate)

	select {
	case err := <-errA:
		assert.True(t, errors.Is(err, common.ErrCancelled))
	case <-time.After(2 * time.Second):
		t.Fatal("ceiling A never returned")
	}

	assert.Equal(t, 1, e.State().GenerationCeiling)
	assert.Equal(t, []string{"bulbasaur", "pidgey", "pikachu"}, names(e.Visible()))
}

func TestLateFacetResponseIsDiscarded(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	gate := make(chan struct{})
	src.gates["type:grass"] = gate
	e := newTestEngine(src)
	require.NoError(t, e.SetGenerationCeiling(ctx, 2))

	errA := make(chan error, 1)
	go func() { errA <- e.LoadFacet(ctx, FacetType1, "grass") }()
	<-src.started

	require.NoError(t, e.LoadFacet(ctx, FacetType1, "electric"))
	close(gate)

	assert.True(t, errors.Is(<-errA, common.ErrCancelled))
	assert.Equal(t, "electric", e.State().Keys[FacetType1])
	assert.Equal(t, []string{"pikachu", "pichu"}, names(e.Visible()))
}

func TestSlowFacetDoesNotBlockOthers(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	gate := make(chan struct{})
	src.gates["type:grass"] = gate
	e := newTestEngine(src)
	require.NoError(t, e.SetGenerationCeiling(ctx, 2))

	errA := make(chan error, 1)
	go func() { errA <- e.LoadFacet(ctx, FacetType1, "grass") }()
	<-src.started

	require.NoError(t, e.LoadFacet(ctx, FacetAbility, "static"))
	assert.Equal(t, []string{"pikachu", "pichu"}, names(e.Visible()))

	close(gate)
	require.NoError(t, <-errA)
	assert.Empty(t, e.Visible(), "grass ∩ static is empty")
}

func TestCloseCancelsInFlight(t *testing.T) {
	ctx := context.Background()
	src := seededSource()
	gate := make(chan struct{})
	src.gates["ability:static"] = gate
	e := newTestEngine(src)

	errA := make(chan error, 1)
	go func() { errA <- e.LoadFacet(ctx, FacetAbility, "static") }()
	<-src.started

	e.Close()
	close(gate)

	assert.True(t, errors.Is(<-errA, common.ErrCancelled))
	assert.Nil(t, e.State().Ability)
	assert.True(t, errors.Is(e.SetGenerationCeiling(ctx, 1), common.ErrCancelled))
	assert.True(t, errors.Is(e.ClearFacet(FacetType1), common.ErrCancelled))
}

func TestCallerCancellationIsNotAFacetError(t *testing.T) {
	src := seededSource()
	src.failKey["type:grass"] = context.Canceled
	e := newTestEngine(src)

	err := e.LoadFacet(context.Background(), FacetType1, "grass")
	assert.True(t, errors.Is(err, common.ErrCancelled))
	var fe *FacetError
	assert.False(t, errors.As(err, &fe))
}
