// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/jeranaias/repochat-tui/internal/api"
	"github.com/jeranaias/repochat-tui/internal/authcache"
)

// =============================================================================
// SESSION PHASE
// =============================================================================

// Phase is the lifecycle state of the session.
type Phase int

const (
	// PhaseInitializing holds until the startup refresh attempt settles.
	PhaseInitializing Phase = iota

	// PhaseAuthenticated means a token is present.
	PhaseAuthenticated

	// PhaseAnonymous means no token is present.
	PhaseAnonymous
)

// String returns the phase name for logs.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// ErrEmptyCredentials is returned when login or registration is attempted
// with a blank email or password. Deeper validation belongs to the backend.
var ErrEmptyCredentials = errors.New("email and password are required")

// ErrSignedOut is returned by operations that require a session when none
// is present. Run 'repochat login' first.
var ErrSignedOut = errors.New("not signed in")

// =============================================================================
// AUTH STORE
// =============================================================================

// AuthStore is the observable session state machine. It mirrors the auth
// cache (the cache owns persistence) and owns the login, register, refresh,
// and logout operations.
type AuthStore struct {
	notifier

	mu      sync.Mutex
	client  *api.Client
	cache   *authcache.Cache
	session authcache.Session

	initializing bool
	loading      bool
	errMsg       string

	unsubscribe func()
}

// NewAuthStore creates the store and mirrors the cached session. The phase
// stays Initializing until Init has run its silent refresh.
func NewAuthStore(client *api.Client, cache *authcache.Cache) *AuthStore {
	s := &AuthStore{
		client:       client,
		cache:        cache,
		session:      cache.Session(),
		initializing: true,
	}
	// Keep the mirror consistent with mutations made by the HTTP client's
	// refresh path or by another process sharing the cache file.
	s.unsubscribe = cache.OnChange(s.syncFromCache)
	return s
}

// syncFromCache refreshes the in-memory mirror after a cache mutation.
func (s *AuthStore) syncFromCache() {
	s.mu.Lock()
	next := s.cache.Session()
	changed := next != s.session
	s.session = next
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Init attempts a silent refresh and then leaves Initializing exactly once.
// It never returns an error: a failed refresh simply lands in Anonymous.
func (s *AuthStore) Init(ctx context.Context) {
	s.Refresh(ctx)

	s.mu.Lock()
	s.initializing = false
	s.mu.Unlock()
	s.notify()
}

// Login authenticates and persists the session. On failure the store error
// is set and the error is returned so the form can keep its state. A login
// already in flight makes the call a no-op.
func (s *AuthStore) Login(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, email, password, s.client.Login, "Login failed")
}

// Register creates an account and persists its first session. Semantics
// match Login.
func (s *AuthStore) Register(ctx context.Context, email, password string) error {
	return s.authenticate(ctx, email, password, s.client.Register, "Registration failed")
}

func (s *AuthStore) authenticate(
	ctx context.Context,
	email, password string,
	call func(context.Context, api.LoginRequest) (*api.AuthResponse, error),
	failMsg string,
) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		s.mu.Lock()
		s.errMsg = ErrEmptyCredentials.Error()
		s.mu.Unlock()
		s.notify()
		return ErrEmptyCredentials
	}

	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	// The loading flag must drop on every path or the form stays stuck.
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
		s.notify()
	}()

	res, err := call(ctx, api.LoginRequest{Email: email, Password: password})
	if err != nil {
		s.mu.Lock()
		s.errMsg = failMsg
		s.mu.Unlock()
		return err
	}

	s.cache.Set(authcache.Session{
		Token:  res.AccessToken,
		UserID: res.UserID,
		Email:  res.Email,
	})
	return nil
}

// Refresh exchanges the refresh cookie for a new token, best-effort. Failure
// clears the cached session and is not reported to the caller.
func (s *AuthStore) Refresh(ctx context.Context) {
	res, err := s.client.Refresh(ctx)
	if err != nil {
		s.cache.Clear()
		return
	}
	s.cache.Set(authcache.Session{
		Token:  res.AccessToken,
		UserID: res.UserID,
		Email:  res.Email,
	})
}

// Logout clears the session. No backend call is required; the refresh
// cookie simply goes unused afterward.
func (s *AuthStore) Logout() {
	s.cache.Clear()
}

// Close detaches the store from the cache.
func (s *AuthStore) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// =============================================================================
// SNAPSHOT ACCESS
// =============================================================================

// Phase returns the current lifecycle phase.
func (s *AuthStore) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initializing {
		return PhaseInitializing
	}
	if s.session.Token != "" {
		return PhaseAuthenticated
	}
	return PhaseAnonymous
}

// IsAuthenticated reports whether a token is present.
func (s *AuthStore) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Token != ""
}

// UserID returns the signed-in user id, or 0.
func (s *AuthStore) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.UserID
}

// Email returns the signed-in email, or "".
func (s *AuthStore) Email() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Email
}

// Loading reports whether a login or registration is in flight.
func (s *AuthStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the user-facing error message, or "".
func (s *AuthStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}
