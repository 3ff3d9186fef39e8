// Package session owns the authentication state of the CLI: the persisted
// session token, the signed-in user and the loading/authenticated/
// unauthenticated state every guarded command consults.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/fmcg-dev/fmcg/internal/cli/auth"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/types"
)

// State is the authentication state
type State int

const (
	StateLoading State = iota
	StateAuthenticated
	StateUnauthenticated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Route is a navigation target
type Route string

const (
	RouteHome  Route = "/"
	RouteLogin Route = "/login"
)

// Navigator moves the UI to a route
type Navigator interface {
	Navigate(route Route)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(route Route)

func (f NavigatorFunc) Navigate(route Route) { f(route) }

// API is the part of the backend client the store depends on
type API interface {
	Login(ctx context.Context, email, password string) (*types.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (*types.VerifyResponse, error)
}

const (
	msgLoginFailed        = "Login failed"
	msgInvalidCredentials = "Invalid credentials"
)

// LoginResult is what a login attempt reports back to the caller
type LoginResult struct {
	Success bool
	Error   string
}

// Store is the single source of truth for authentication state
type Store struct {
	api    API
	tokens auth.TokenStore
	key    string
	nav    Navigator
	log    zerolog.Logger

	checkOnce sync.Once

	mu    sync.RWMutex
	state State
	user  *types.User
}

// Option configures a Store
type Option func(*Store)

// WithNavigator sets the navigator used after login and logout
func WithNavigator(nav Navigator) Option {
	return func(s *Store) { s.nav = nav }
}

// WithLogger sets the store logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a store in the loading state. key identifies the backend the
// token belongs to in the token store.
func New(api API, tokens auth.TokenStore, key string, opts ...Option) *Store {
	s := &Store{
		api:    api,
		tokens: tokens,
		key:    key,
		nav:    NavigatorFunc(func(Route) {}),
		log:    zerolog.Nop(),
		state:  StateLoading,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current authentication state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// User returns the signed-in user, or nil
func (s *Store) User() *types.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAuthenticated reports whether the store holds a verified session
func (s *Store) IsAuthenticated() bool {
	return s.State() == StateAuthenticated
}

// Token returns the persisted session token, or "" when there is none.
// It satisfies client.TokenSource.
func (s *Store) Token() string {
	token, err := s.tokens.LoadToken(s.key)
	if err != nil {
		if !errors.Is(err, auth.ErrNoToken) {
			s.log.Warn().Err(err).Msg("Failed to load session token")
		}
		return ""
	}
	return token
}

// CheckAuth resolves the loading state. It verifies the persisted token at
// most once per store; later calls return the settled state.
func (s *Store) CheckAuth(ctx context.Context) State {
	s.checkOnce.Do(func() {
		s.checkAuth(ctx)
	})
	return s.State()
}

func (s *Store) checkAuth(ctx context.Context) {
	token := s.Token()
	if token == "" {
		s.settle(StateUnauthenticated, nil)
		return
	}

	resp, err := s.api.Verify(ctx, token)
	if err != nil || resp == nil || resp.Status != "success" || resp.User == nil {
		if err != nil {
			s.log.Debug().Err(err).Msg("Session verification failed")
		}
		s.discardToken()
		s.settle(StateUnauthenticated, nil)
		return
	}

	s.settle(StateAuthenticated, resp.User)
}

// Login authenticates with the backend. State only changes when the whole
// login succeeds, including persisting the token.
func (s *Store) Login(ctx context.Context, email, password string) LoginResult {
	resp, err := s.api.Login(ctx, email, password)
	if err != nil {
		s.log.Debug().Err(err).Msg("Login error")
		return LoginResult{Error: loginErrorMessage(err)}
	}
	if resp == nil || resp.Status != "success" || resp.SessionToken == "" {
		return LoginResult{Error: msgLoginFailed}
	}

	if err := s.tokens.SaveToken(s.key, resp.SessionToken); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist session token")
		return LoginResult{Error: err.Error()}
	}

	user := resp.User
	if user == nil {
		user = &types.User{Email: email}
	}
	s.settle(StateAuthenticated, user)
	// The state is now settled; a later CheckAuth must not re-verify
	s.checkOnce.Do(func() {})

	s.nav.Navigate(RouteHome)
	return LoginResult{Success: true}
}

// loginErrorMessage prefers the backend's message over the generic ones
func loginErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.FromBackend && apiErr.Message != "" {
		return apiErr.Message
	}
	if client.IsDomainError(err) {
		return msgLoginFailed
	}
	return msgInvalidCredentials
}

// Logout ends the session. The backend call is best-effort; local state is
// always cleared, so it never leaves the user signed in locally.
func (s *Store) Logout(ctx context.Context) {
	defer func() {
		s.discardToken()
		s.settle(StateUnauthenticated, nil)
		s.checkOnce.Do(func() {})
		s.nav.Navigate(RouteLogin)
	}()

	token := s.Token()
	if token == "" {
		return
	}
	if err := s.api.Logout(ctx, token); err != nil {
		s.log.Warn().Err(err).Msg("Logout error")
	}
}

func (s *Store) discardToken() {
	if err := s.tokens.DeleteToken(s.key); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete session token")
	}
}

func (s *Store) settle(state State, user *types.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if user != nil {
		u := *user
		s.user = &u
	} else {
		s.user = nil
	}
}
