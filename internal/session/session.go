// Package session keeps the per-client working state of the API: one filter
// engine and one roster workspace per session, scoped to the owner that
// opened it. Sessions expire after an idle timeout.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/rosterdex/internal/common"
	"github.com/albapepper/rosterdex/internal/filter"
	"github.com/albapepper/rosterdex/internal/metrics"
	"github.com/albapepper/rosterdex/internal/roster"
)

// Session is one client's filter engine and roster workspace.
type Session struct {
	ID        string
	OwnerID   string
	CreatedAt time.Time
	Filter    *filter.Engine
	Roster    *roster.Workspace

	lastSeen time.Time
}

// Info is the JSON view of a session.
type Info struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Options configures a Registry.
type Options struct {
	IdleTimeout time.Duration
	Filter      filter.Options
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
}

// Registry owns every open session.
type Registry struct {
	source  filter.Source
	store   roster.Store
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. Engines fetch from source and
// workspaces persist through store.
func NewRegistry(source filter.Source, store roster.Store, opts Options) *Registry {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Filter.Logger == nil {
		opts.Filter.Logger = opts.Logger
	}
	if opts.Filter.Metrics == nil {
		opts.Filter.Metrics = opts.Metrics
	}
	return &Registry{
		source:   source,
		store:    store,
		opts:     opts,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a session for owner.
func (r *Registry) Create(owner string) *Session {
	now := r.now()
	s := &Session{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		CreatedAt: now,
		Filter:    filter.NewEngine(r.source, r.opts.Filter),
		Roster:    roster.NewWorkspace(r.store, owner, r.logger, r.metrics),
		lastSeen:  now,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.metrics.SessionOpened()
	r.logger.Info("Session opened", "session", s.ID, "owner", owner)
	return s
}

// Get returns session id of owner and marks it as used. Sessions of other
// owners are reported as not found.
func (r *Registry) Get(owner, id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != owner {
		return nil, fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	s.lastSeen = r.now()
	return s, nil
}

// Info returns the JSON view of s.
func (r *Registry) Info(s *Session) Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Info{ID: s.ID, OwnerID: s.OwnerID, CreatedAt: s.CreatedAt, LastSeen: s.lastSeen}
}

// Close tears down session id of owner, cancelling its in-flight fetches.
func (r *Registry) Close(owner, id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != owner {
		r.mu.Unlock()
		return fmt.Errorf("session %s: %w", id, common.ErrNotFound)
	}
	delete(r.sessions, id)
	r.mu.Unlock()

	r.teardown(s, "closed")
	return nil
}

// Sweep closes every session idle for longer than the idle timeout and
// returns how many were closed. A zero timeout disables expiry.
func (r *Registry) Sweep() int {
	if r.opts.IdleTimeout <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.opts.IdleTimeout)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.teardown(s, "expired")
	}
	return len(expired)
}

// CloseAll tears down every session. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for id, s := range r.sessions {
		all = append(all, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, s := range all {
		r.teardown(s, "shutdown")
	}
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) teardown(s *Session, reason string) {
	s.Filter.Close()
	r.metrics.SessionClosed()
	r.logger.Info("Session closed", "session", s.ID, "owner", s.OwnerID, "reason", reason)
}
