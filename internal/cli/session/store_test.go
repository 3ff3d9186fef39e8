package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcg-dev/fmcg/internal/cli/auth"
	"github.com/fmcg-dev/fmcg/internal/cli/client"
	"github.com/fmcg-dev/fmcg/internal/types"
)

const backend = "http://localhost:8080"

// fakeAPI records calls and returns canned responses
type fakeAPI struct {
	loginResp  *types.LoginResponse
	loginErr   error
	verifyResp *types.VerifyResponse
	verifyErr  error
	logoutErr  error

	loginCalls  int
	verifyCalls int
	logoutCalls int
	lastToken   string
}

func (f *fakeAPI) Login(ctx context.Context, email, password string) (*types.LoginResponse, error) {
	f.loginCalls++
	return f.loginResp, f.loginErr
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.logoutCalls++
	f.lastToken = token
	return f.logoutErr
}

func (f *fakeAPI) Verify(ctx context.Context, token string) (*types.VerifyResponse, error) {
	f.verifyCalls++
	f.lastToken = token
	return f.verifyResp, f.verifyErr
}

// recordingNavigator remembers every route it was sent to
type recordingNavigator struct {
	routes []Route
}

func (r *recordingNavigator) Navigate(route Route) {
	r.routes = append(r.routes, route)
}

func (r *recordingNavigator) last() Route {
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

// failingTokenStore fails every save
type failingTokenStore struct {
	*auth.MemoryStore
}

func (f failingTokenStore) SaveToken(key, token string) error {
	return errors.New("keychain locked")
}

func TestStore_StartsLoading(t *testing.T) {
	s := New(&fakeAPI{}, auth.NewMemoryStore(), backend)
	assert.Equal(t, StateLoading, s.State())
	assert.Nil(t, s.User())
}

func TestCheckAuth_NoTokenMakesNoNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	s := New(api, auth.NewMemoryStore(), backend)

	state := s.CheckAuth(context.Background())

	assert.Equal(t, StateUnauthenticated, state)
	assert.Equal(t, 0, api.verifyCalls)
}

func TestCheckAuth_ValidToken(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	api := &fakeAPI{verifyResp: &types.VerifyResponse{
		Status: "success",
		User:   &types.User{Name: "A", Email: "a@b.com", Company: "Metora"},
	}}
	s := New(api, tokens, backend)

	state := s.CheckAuth(context.Background())

	assert.Equal(t, StateAuthenticated, state)
	assert.Equal(t, "T", api.lastToken)
	require.NotNil(t, s.User())
	assert.Equal(t, "Metora", s.User().Company)
	assert.Equal(t, "T", s.Token())
}

func TestCheckAuth_ErrorStatusClearsToken(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	api := &fakeAPI{verifyResp: &types.VerifyResponse{Status: "error"}}
	s := New(api, tokens, backend)

	state := s.CheckAuth(context.Background())

	assert.Equal(t, StateUnauthenticated, state)
	_, err := tokens.LoadToken(backend)
	assert.ErrorIs(t, err, auth.ErrNoToken)
}

func TestCheckAuth_NetworkErrorClearsToken(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	api := &fakeAPI{verifyErr: &client.APIError{StatusCode: http.StatusUnauthorized, Message: "Invalid or expired session"}}
	s := New(api, tokens, backend)

	assert.Equal(t, StateUnauthenticated, s.CheckAuth(context.Background()))
	assert.Equal(t, "", s.Token())
}

func TestCheckAuth_VerifiesOnlyOnce(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	api := &fakeAPI{verifyResp: &types.VerifyResponse{Status: "success", User: &types.User{Name: "A"}}}
	s := New(api, tokens, backend)

	s.CheckAuth(context.Background())
	s.CheckAuth(context.Background())
	s.CheckAuth(context.Background())

	assert.Equal(t, 1, api.verifyCalls)
	assert.Equal(t, StateAuthenticated, s.State())
}

func TestLogin_Success(t *testing.T) {
	tokens := auth.NewMemoryStore()
	nav := &recordingNavigator{}
	api := &fakeAPI{loginResp: &types.LoginResponse{
		Status:       "success",
		SessionToken: "T",
		User:         &types.User{Name: "A"},
	}}
	s := New(api, tokens, backend, WithNavigator(nav))
	s.CheckAuth(context.Background())

	result := s.Login(context.Background(), "a@b.com", "secret")

	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	stored, err := tokens.LoadToken(backend)
	require.NoError(t, err)
	assert.Equal(t, "T", stored)
	assert.Equal(t, StateAuthenticated, s.State())
	assert.Equal(t, "A", s.User().Name)
	assert.Equal(t, RouteHome, nav.last())
}

func TestLogin_NetworkErrorLeavesStateUnchanged(t *testing.T) {
	tokens := auth.NewMemoryStore()
	nav := &recordingNavigator{}
	api := &fakeAPI{loginErr: &client.APIError{Message: "dial tcp: connection refused"}}
	s := New(api, tokens, backend, WithNavigator(nav))
	s.CheckAuth(context.Background())
	before := s.State()

	result := s.Login(context.Background(), "a@b.com", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, "Invalid credentials", result.Error)
	assert.Equal(t, before, s.State())
	assert.Equal(t, 0, tokens.Len())
	assert.Empty(t, nav.routes)
}

func TestLogin_PrefersBackendDetail(t *testing.T) {
	api := &fakeAPI{loginErr: &client.APIError{
		StatusCode:  http.StatusUnauthorized,
		Message:     "Account locked",
		FromBackend: true,
	}}
	s := New(api, auth.NewMemoryStore(), backend)

	result := s.Login(context.Background(), "a@b.com", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, "Account locked", result.Error)
}

func TestLogin_NonSuccessStatus(t *testing.T) {
	tokens := auth.NewMemoryStore()
	api := &fakeAPI{loginResp: &types.LoginResponse{Status: "error"}}
	s := New(api, tokens, backend)

	result := s.Login(context.Background(), "a@b.com", "secret")

	assert.False(t, result.Success)
	assert.Equal(t, "Login failed", result.Error)
	assert.Equal(t, StateLoading, s.State())
	assert.Equal(t, 0, tokens.Len())
}

func TestLogin_FailedPersistIsFailure(t *testing.T) {
	api := &fakeAPI{loginResp: &types.LoginResponse{Status: "success", SessionToken: "T"}}
	s := New(api, failingTokenStore{auth.NewMemoryStore()}, backend)
	s.CheckAuth(context.Background())

	result := s.Login(context.Background(), "a@b.com", "secret")

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "keychain locked")
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
}

func TestLogin_ThenCheckAuthDoesNotReverify(t *testing.T) {
	api := &fakeAPI{loginResp: &types.LoginResponse{Status: "success", SessionToken: "T", User: &types.User{Name: "A"}}}
	s := New(api, auth.NewMemoryStore(), backend)

	require.True(t, s.Login(context.Background(), "a@b.com", "secret").Success)
	assert.Equal(t, StateAuthenticated, s.CheckAuth(context.Background()))
	assert.Equal(t, 0, api.verifyCalls)
}

func TestLogout_BackendFailureStillClearsLocally(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	nav := &recordingNavigator{}
	api := &fakeAPI{
		verifyResp: &types.VerifyResponse{Status: "success", User: &types.User{Name: "A"}},
		logoutErr:  errors.New("connection reset"),
	}
	s := New(api, tokens, backend, WithNavigator(nav))
	require.Equal(t, StateAuthenticated, s.CheckAuth(context.Background()))

	s.Logout(context.Background())

	assert.Equal(t, 1, api.logoutCalls)
	assert.Equal(t, "T", api.lastToken)
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Nil(t, s.User())
	assert.Equal(t, 0, tokens.Len())
	assert.Equal(t, RouteLogin, nav.last())

	// Idempotent
	s.Logout(context.Background())
	assert.Equal(t, StateUnauthenticated, s.State())
	assert.Equal(t, 1, api.logoutCalls, "no backend call without a token")
	assert.Equal(t, []Route{RouteLogin, RouteLogin}, nav.routes)
}

func TestStore_TokenSourceFeedsClient(t *testing.T) {
	tokens := auth.NewMemoryStore()
	require.NoError(t, tokens.SaveToken(backend, "T"))
	s := New(&fakeAPI{}, tokens, backend)

	var source client.TokenSource = s
	assert.Equal(t, "T", source.Token())
}
