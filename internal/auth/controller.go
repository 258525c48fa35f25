// Package auth owns the dashboard's authentication lifecycle: credential
// exchange with the upstream API, the persisted session, and the route
// guards that gate admin and student views.
package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ccapconnect/dashboard/internal/session"
	"github.com/google/uuid"
)

// Backend is the slice of the upstream client the controller needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (string, error)
	Me(ctx context.Context, token string) (*session.Identity, error)
}

// MetricsRecorder is an optional sink for auth outcome counters.
type MetricsRecorder interface {
	IncAuthSuccess(flow string)
	IncAuthFailure(flow string)
}

// Controller mediates every login, logout and session restoration. Each
// browser session is one key in the session store; the controller is the
// only writer.
type Controller struct {
	store   session.Store
	backend Backend
	metrics MetricsRecorder

	mu sync.Mutex
	// generations tags each session key with a counter bumped by every
	// login and logout. A restoration result is applied only while its
	// generation still matches, so a logout racing a slow identity
	// fetch always lands anonymous.
	generations map[string]uint64
	inFlight    int
}

// NewController creates a Controller over the given store and backend.
func NewController(store session.Store, backend Backend) *Controller {
	return &Controller{
		store:       store,
		backend:     backend,
		generations: make(map[string]uint64),
	}
}

// SetMetrics sets the optional metrics recorder.
func (c *Controller) SetMetrics(m MetricsRecorder) {
	c.metrics = m
}

// NewSessionKey mints a key for a fresh browser session.
func (c *Controller) NewSessionKey() string {
	return uuid.NewString()
}

// Loading reports whether any login or restoration is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight > 0
}

func (c *Controller) begin(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight++
	return c.generations[key]
}

func (c *Controller) end() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight--
}

// bump invalidates any in-flight restoration for key.
func (c *Controller) bump(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[key]++
}

// stale reports whether gen no longer matches the current generation for
// key.
func (c *Controller) stale(key string, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[key] != gen
}

// Login exchanges credentials for a session. It reports success as a bare
// boolean and never returns an error: bad credentials, transport failures
// and malformed responses all read the same to the caller. On any failure
// no partial state is persisted.
func (c *Controller) Login(ctx context.Context, key, email, password string) bool {
	if email == "" || password == "" {
		return false
	}

	c.bump(key)
	_ = c.begin(key)
	defer c.end()

	token, err := c.backend.Login(ctx, email, password)
	if err != nil {
		slog.Info("login failed", "error", err)
		c.recordFailure("login")
		return false
	}

	identity, err := c.backend.Me(ctx, token)
	if err != nil {
		slog.Info("identity fetch after login failed", "error", err)
		c.recordFailure("login")
		return false
	}

	env := &session.Envelope{Identity: identity, Token: token}
	if err := c.store.Save(ctx, key, env); err != nil {
		slog.Error("persisting session failed", "error", err)
		c.recordFailure("login")
		return false
	}

	c.recordSuccess("login")
	return true
}

// Restore re-validates a persisted session against the upstream identity
// endpoint and returns the authoritative identity, or nil when the session
// is absent, rejected or superseded. A rejected or failed validation
// clears the persisted session silently; this runs at dashboard load, so
// the user simply lands on the login view.
func (c *Controller) Restore(ctx context.Context, key string) *session.Identity {
	env, err := c.store.Load(ctx, key)
	if err != nil {
		return nil
	}

	gen := c.begin(key)
	defer c.end()

	identity, err := c.backend.Me(ctx, env.Token)

	if c.stale(key, gen) {
		// A login or logout won the race; discard this result.
		return nil
	}

	if err != nil {
		slog.Info("session restoration rejected", "error", err)
		c.recordFailure("restore")
		_ = c.store.Clear(ctx, key)
		return nil
	}

	// The server copy is authoritative; overwrite the persisted one.
	env.Identity = identity
	if err := c.store.Save(ctx, key, env); err != nil {
		slog.Error("refreshing persisted session failed", "error", err)
	}

	c.recordSuccess("restore")
	return identity
}

// Current resolves the session for key without re-validating upstream.
// Route guards call this on every request.
func (c *Controller) Current(ctx context.Context, key string) (*session.Identity, string) {
	env, err := c.store.Load(ctx, key)
	if err != nil {
		return nil, ""
	}
	return env.Identity, env.Token
}

// Refresh re-fetches the identity for an authenticated session and
// persists it, e.g. after the student edits their profile. Unlike Restore
// a failure leaves the session untouched.
func (c *Controller) Refresh(ctx context.Context, key string) *session.Identity {
	env, err := c.store.Load(ctx, key)
	if err != nil {
		return nil
	}

	identity, err := c.backend.Me(ctx, env.Token)
	if err != nil {
		slog.Info("identity refresh failed", "error", err)
		return env.Identity
	}

	env.Identity = identity
	if err := c.store.Save(ctx, key, env); err != nil {
		slog.Error("persisting refreshed session failed", "error", err)
	}
	return identity
}

// Logout clears the session. It is idempotent and always succeeds from
// the caller's point of view.
func (c *Controller) Logout(ctx context.Context, key string) {
	c.bump(key)
	if err := c.store.Clear(ctx, key); err != nil {
		slog.Error("clearing session failed", "error", err)
	}
}

func (c *Controller) recordSuccess(flow string) {
	if c.metrics != nil {
		c.metrics.IncAuthSuccess(flow)
	}
}

func (c *Controller) recordFailure(flow string) {
	if c.metrics != nil {
		c.metrics.IncAuthFailure(flow)
	}
}
