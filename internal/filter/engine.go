package filter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/albapepper/rosterdex/internal/catalog"
	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/metrics"
)

// Source is the part of the catalog the engine fetches from.
type Source interface {
	ListGeneration(ctx context.Context, index int) (*catalog.Generation, error)
	ListByType(ctx context.Context, typeKey string) ([]catalog.SpeciesRef, error)
	ListByAbility(ctx context.Context, ability string) ([]catalog.SpeciesRef, error)
}

// DefaultMaxGeneration bounds generation ceilings when Options leaves it
// unset. The catalog has far fewer generations.
const DefaultMaxGeneration = 32

// Options configures an Engine.
type Options struct {
	// Concurrency bounds parallel generation fetches. Defaults to 4.
	Concurrency int
	// MaxGeneration is the highest accepted generation ceiling. Defaults to
	// DefaultMaxGeneration.
	MaxGeneration int
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// Engine holds one session's filter state.
//
// Each operation kind (generation, type1, type2, ability) has a single
// in-flight slot. Starting an operation cancels the previous one of the same
// kind; a completion whose token is no longer current is discarded and
// reported as common.ErrCancelled. Kinds never supersede each other.
type Engine struct {
	source      Source
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
	maxGen      int

	mu       sync.Mutex
	universe []catalog.SpeciesRef
	state    State
	visible  []catalog.SpeciesRef
	dirty    bool
	inflight map[Facet]*op
	seq      uint64
	closed   bool
}

type op struct {
	token  uint64
	cancel context.CancelFunc
}

// NewEngine creates an engine with an empty universe.
func NewEngine(source Source, opts Options) *Engine {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.MaxGeneration <= 0 {
		opts.MaxGeneration = DefaultMaxGeneration
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		source:      source,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		concurrency: opts.Concurrency,
		maxGen:      opts.MaxGeneration,
		universe:    []catalog.SpeciesRef{},
		state:       State{Keys: map[Facet]string{}},
		dirty:       true,
		inflight:    make(map[Facet]*op),
	}
}

// SetGenerationCeiling replaces the universe with the union of generations
// 1..n, where n is at most the configured maximum. All generations are
// fetched in parallel; any failure fails the whole update and the previous
// universe is kept.
func (e *Engine) SetGenerationCeiling(ctx context.Context, n int) error {
	if n < 1 || n > e.maxGen {
		return fmt.Errorf("generation ceiling %d outside 1..%d: %w", n, e.maxGen, common.ErrValidation)
	}

	opCtx, token, err := e.begin(ctx, FacetGeneration)
	if err != nil {
		return err
	}

	gens := make([]*catalog.Generation, n)
	g, gctx := errgroup.WithContext(opCtx)
	g.SetLimit(e.concurrency)
	for i := 1; i <= n; i++ {
		g.Go(func() error {
			gen, err := e.source.ListGeneration(gctx, i)
			if err != nil {
				return fmt.Errorf("generation %d: %w", i, err)
			}
			gens[i-1] = gen
			return nil
		})
	}
	fetchErr := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.finish(FacetGeneration, token); err != nil {
		return err
	}
	if fetchErr != nil {
		return e.failed(FacetGeneration, strconv.Itoa(n), fetchErr)
	}

	e.universe = mergeGenerations(gens)
	e.state.GenerationCeiling = n
	e.dirty = true
	e.metrics.FilterUpdate(string(FacetGeneration), "ok")
	e.logger.Debug("Generation ceiling applied", "ceiling", n, "universe", len(e.universe))
	return nil
}

// LoadFacet fetches the members of facet for key and installs them. An
// empty key clears the facet.
func (e *Engine) LoadFacet(ctx context.Context, facet Facet, key string) error {
	if _, err := ParseFacet(string(facet)); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return e.ClearFacet(facet)
	}

	opCtx, token, err := e.begin(ctx, facet)
	if err != nil {
		return err
	}

	var members []catalog.SpeciesRef
	var fetchErr error
	switch facet {
	case FacetAbility:
		members, fetchErr = e.source.ListByAbility(opCtx, key)
	default:
		members, fetchErr = e.source.ListByType(opCtx, key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.finish(facet, token); err != nil {
		return err
	}
	if fetchErr != nil {
		return e.failed(facet, key, fetchErr)
	}

	e.install(facet, key, members)
	e.metrics.FilterUpdate(string(facet), "ok")
	return nil
}

// SetFacet installs members as the constraint of facet directly,
// superseding any fetch in flight for it. A nil slice is installed as an
// empty constraint; use ClearFacet to remove one.
func (e *Engine) SetFacet(facet Facet, members []catalog.SpeciesRef) error {
	if _, err := ParseFacet(string(facet)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("filter engine closed: %w", common.ErrCancelled)
	}
	e.supersede(facet)
	e.install(facet, "", members)
	return nil
}

// ClearFacet removes the constraint of facet, superseding any fetch in
// flight for it.
func (e *Engine) ClearFacet(facet Facet) error {
	if _, err := ParseFacet(string(facet)); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("filter engine closed: %w", common.ErrCancelled)
	}
	e.supersede(facet)
	e.state.setFacet(facet, nil)
	delete(e.state.Keys, facet)
	e.dirty = true
	return nil
}

// SetTextQuery sets the name substring filter. Whitespace-only queries
// clear it.
func (e *Engine) SetTextQuery(q string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	q = strings.TrimSpace(q)
	if q == e.state.Text {
		return
	}
	e.state.Text = q
	e.dirty = true
}

// Visible returns the current result, recomputing it if any input changed.
func (e *Engine) Visible() []catalog.SpeciesRef {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirty {
		e.visible = Compute(e.universe, e.state)
		e.dirty = false
	}
	return cloneRefs(e.visible)
}

// State returns a snapshot of the engine inputs.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// UniverseSize returns the number of species in the base universe.
func (e *Engine) UniverseSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.universe)
}

// Close cancels every fetch in flight. Later operations fail with
// common.ErrCancelled.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for kind := range e.inflight {
		e.supersede(kind)
	}
}

// --------------------------------------------------------------------------
// In-flight bookkeeping (callers hold e.mu unless noted)
// --------------------------------------------------------------------------

// begin registers a new operation of kind, cancelling the previous one.
// It takes e.mu itself.
func (e *Engine) begin(ctx context.Context, kind Facet) (context.Context, uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, 0, fmt.Errorf("filter engine closed: %w", common.ErrCancelled)
	}
	e.supersede(kind)
	e.seq++
	opCtx, cancel := context.WithCancel(ctx)
	e.inflight[kind] = &op{token: e.seq, cancel: cancel}
	return opCtx, e.seq, nil
}

// finish releases the operation slot. It returns ErrCancelled when token has
// been superseded, in which case nothing may be applied.
func (e *Engine) finish(kind Facet, token uint64) error {
	cur, ok := e.inflight[kind]
	if !ok || cur.token != token {
		e.metrics.FilterUpdate(string(kind), "cancelled")
		return fmt.Errorf("%s update superseded: %w", kind, common.ErrCancelled)
	}
	cur.cancel()
	delete(e.inflight, kind)
	return nil
}

func (e *Engine) supersede(kind Facet) {
	if cur, ok := e.inflight[kind]; ok {
		cur.cancel()
		delete(e.inflight, kind)
	}
}

// failed classifies a fetch error. A cancelled caller context is reported as
// ErrCancelled; anything else becomes a FacetError.
func (e *Engine) failed(kind Facet, key string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, common.ErrCancelled) {
		e.metrics.FilterUpdate(string(kind), "cancelled")
		return fmt.Errorf("%s update cancelled: %w: %w", kind, common.ErrCancelled, err)
	}
	e.metrics.FilterUpdate(string(kind), "error")
	e.logger.Warn("Facet fetch failed", "facet", kind, "key", key, "error", err)
	return &FacetError{Facet: kind, Key: key, Err: err}
}

func (e *Engine) install(facet Facet, key string, members []catalog.SpeciesRef) {
	if members == nil {
		members = []catalog.SpeciesRef{}
	}
	e.state.setFacet(facet, cloneRefs(members))
	if key == "" {
		delete(e.state.Keys, facet)
	} else {
		e.state.Keys[facet] = key
	}
	e.dirty = true
}
