package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/blackjackgym/internal/env"
)

// ErrSessionNotFound is returned for unknown or reaped session ids
var ErrSessionNotFound = errors.New("session not found")

// EnvFactory builds the environment behind a new session
type EnvFactory func() (*env.Environment, error)

type session struct {
	id       string
	mu       sync.Mutex
	env      *env.Environment
	lastUsed time.Time
}

// Registry owns the environments created over HTTP. Each session has its own
// lock so different sessions step in parallel.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	newEnv   EnvFactory
	clock    quartz.Clock
	idle     time.Duration
	logger   *log.Logger
}

// NewRegistry creates a registry. Sessions unused for longer than idle are
// removed by Reap; idle <= 0 disables reaping.
func NewRegistry(newEnv EnvFactory, clock quartz.Clock, idle time.Duration, logger *log.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		newEnv:   newEnv,
		clock:    clock,
		idle:     idle,
		logger:   logger.WithPrefix("registry"),
	}
}

// Create builds a new environment and returns its session id
func (r *Registry) Create() (string, error) {
	e, err := r.newEnv()
	if err != nil {
		return "", err
	}
	s := &session{
		id:       uuid.NewString(),
		env:      e,
		lastUsed: r.clock.Now(),
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	r.logger.Debug("session created", "id", s.id, "sessions", n)
	return s.id, nil
}

// With runs fn with exclusive access to the session's environment
func (r *Registry) With(id string, fn func(e *env.Environment) error) error {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsed = r.clock.Now()
	return fn(s.env)
}

// Delete removes a session, reporting whether it existed
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Len returns the number of live sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Reap drops sessions idle for longer than the configured timeout and
// returns how many were removed
func (r *Registry) Reap() int {
	if r.idle <= 0 {
		return 0
	}
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, s := range r.sessions {
		s.mu.Lock()
		stale := now.Sub(s.lastUsed) > r.idle
		s.mu.Unlock()
		if stale {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("reaped idle sessions", "removed", removed, "remaining", len(r.sessions))
	}
	return removed
}

// StartReaper reaps on a ticker until ctx is cancelled
func (r *Registry) StartReaper(ctx context.Context) quartz.Waiter {
	interval := r.idle / 2
	if interval <= 0 {
		interval = time.Minute
	}
	return r.clock.TickerFunc(ctx, interval, func() error {
		r.Reap()
		return nil
	}, "registry", "reap")
}
