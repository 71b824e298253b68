// Package session keeps one reasoning engine per active case for long-running processes.
// Sessions are created on first use, serialized per case, and evicted after a period of
// inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dyluth/sleuth/internal/reasoning"
	"github.com/dyluth/sleuth/pkg/casefile"
)

// ErrClosed is returned by a registry after Close.
var ErrClosed = errors.New("session registry closed")

type session struct {
	mu       sync.Mutex // serializes engine access for one case
	engine   *reasoning.Engine
	loadErr  error
	lastUsed time.Time // guarded by Registry.mu
	inUse    int       // callers inside or waiting in Do; guarded by Registry.mu
}

// Registry maps case ids to engines.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	ttl           time.Duration
	sweepInterval time.Duration
	engineOpts    []reasoning.Option
	logger        *zap.Logger
	now           func() time.Time

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL evicts sessions unused for longer than ttl. Zero disables eviction.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithSweepInterval sets how often expired sessions are evicted (default ttl/2).
func WithSweepInterval(d time.Duration) Option {
	return func(r *Registry) { r.sweepInterval = d }
}

// WithEngineOptions sets the options used when building engines.
func WithEngineOptions(opts ...reasoning.Option) Option {
	return func(r *Registry) { r.engineOpts = append(r.engineOpts, opts...) }
}

// WithLogger sets the registry's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry creates a registry. If a TTL is set, a janitor goroutine runs until Close.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		sessions: make(map[string]*session),
		logger:   zap.NewNop(),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.ttl > 0 {
		if r.sweepInterval <= 0 {
			r.sweepInterval = r.ttl / 2
		}
		r.wg.Add(1)
		go r.janitor()
	}
	return r
}

// Open replaces any session for the case with a fresh engine replaying its evidence.
// A case whose history is contradictory still gets a session, in StateContradicted.
func (r *Registry) Open(c *casefile.Case) (*reasoning.Engine, error) {
	engine, err := r.replay(c)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	r.sessions[c.ID] = &session{engine: engine, lastUsed: r.now()}
	return engine, nil
}

// Do runs fn with the case's engine while holding the case's lock. If no session exists,
// the case is loaded from provider and replayed first; concurrent callers wait for
// that load instead of starting their own.
func (r *Registry) Do(ctx context.Context, provider reasoning.CaseProvider, caseID string, fn func(*reasoning.Engine) error) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	s, ok := r.sessions[caseID]
	if !ok {
		s = &session{}
		s.mu.Lock()
		r.sessions[caseID] = s
	}
	s.inUse++
	s.lastUsed = r.now()
	r.mu.Unlock()
	defer r.release(s)

	if !ok {
		defer s.mu.Unlock()
		if err := r.load(ctx, provider, caseID, s); err != nil {
			return err
		}
		return fn(s.engine)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine == nil {
		return s.loadErr
	}
	return fn(s.engine)
}

// release marks one Do call as finished and restarts the session's idle period.
func (r *Registry) release(s *session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.inUse--
	s.lastUsed = r.now()
}

// load fills a placeholder session. On failure the placeholder is removed and
// the error is kept for callers already waiting on it.
func (r *Registry) load(ctx context.Context, provider reasoning.CaseProvider, caseID string, s *session) error {
	c, err := provider.GetCase(ctx, caseID)
	if err == nil {
		s.engine, err = r.replay(c)
	} else {
		err = fmt.Errorf("failed to load case %s: %w", caseID, err)
	}
	if err == nil {
		return nil
	}

	s.loadErr = err
	r.mu.Lock()
	if r.sessions[caseID] == s {
		delete(r.sessions, caseID)
	}
	r.mu.Unlock()
	return err
}

func (r *Registry) replay(c *casefile.Case) (*reasoning.Engine, error) {
	opts := append([]reasoning.Option{reasoning.WithLogger(r.logger)}, r.engineOpts...)
	engine, err := reasoning.Replay(c, opts...)
	if engine == nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, reasoning.ErrContradiction) {
		return nil, err
	}
	r.logger.Debug("session opened", zap.String("case_id", c.ID), zap.String("state", string(engine.State())))
	return engine, nil
}

// Reset drops the session for a case. Returns false if there was none.
func (r *Registry) Reset(caseID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[caseID]
	delete(r.sessions, caseID)
	return ok
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions unused for longer than the TTL and returns how many were removed.
// Sessions with a Do call in progress are never evicted.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	evicted := 0
	for id, s := range r.sessions {
		if s.inUse == 0 && s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
			r.logger.Debug("session expired", zap.String("case_id", id))
		}
	}
	return evicted
}

// Close stops the janitor and drops every session. Safe to call more than once.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.wg.Wait()

		r.mu.Lock()
		r.closed = true
		r.sessions = make(map[string]*session)
		r.mu.Unlock()
	})
}

func (r *Registry) janitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				r.logger.Info("expired sessions evicted", zap.Int("count", n))
			}
		}
	}
}
