package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcg-dev/fmcg/internal/cli/auth"
	"github.com/fmcg-dev/fmcg/internal/cli/commands"
	"github.com/fmcg-dev/fmcg/internal/cli/config"
)

// backend is a minimal product-mastering API that records requests
type backend struct {
	mu         sync.Mutex
	requests   []string
	tokens     []string
	failLogout bool
}

func (b *backend) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests = append(b.requests, r.Method+" "+r.URL.Path)
		b.tokens = append(b.tokens, r.Header.Get("X-Session-Token"))
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/login":
			var req struct{ Email, Password string }
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Password != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				fmt.Fprint(w, `{"detail":"Invalid email or password"}`)
				return
			}
			fmt.Fprint(w, `{"status":"success","session_token":"T","user":{"name":"A","email":"a@b.com"}}`)
		case "/auth/verify":
			if r.Header.Get("X-Session-Token") != "T" {
				fmt.Fprint(w, `{"status":"error","message":"Invalid or expired session"}`)
				return
			}
			fmt.Fprint(w, `{"status":"success","user":{"name":"A","email":"a@b.com"}}`)
		case "/auth/logout":
			if b.failLogout {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprint(w, `{"status":"success","message":"Logged out"}`)
		case "/dashboard/summary":
			fmt.Fprint(w, `{"single_stock_rows":10,"master_stock_rows":8,"low_confidence":1}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail":"Not Found"}`)
		}
	})
}

func (b *backend) paths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.requests...)
}

type harness struct {
	backend *backend
	srv     *httptest.Server
	tokens  *auth.MemoryStore
	out     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	b := &backend{}
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv(envLogLevel, "")
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), &config.Config{
		Servers: []config.Server{{Alias: "test", URL: srv.URL}},
	}))

	return &harness{backend: b, srv: srv, tokens: auth.NewMemoryStore(), out: &bytes.Buffer{}}
}

func (h *harness) run(args ...string) error {
	env := &commands.Env{
		Out:          h.out,
		Err:          io.Discard,
		In:           strings.NewReader(""),
		Log:          zerolog.Nop(),
		Confirm:      func(string) (bool, error) { return false, nil },
		ReadPassword: func() (string, error) { return "secret", nil },
		Now:          time.Now,
	}
	root := NewRootCmd(
		WithEnv(env),
		WithTokenStore(h.tokens),
		WithHTTPClient(h.srv.Client()),
	)
	root.SetArgs(append(args, "--log-level", "disabled"))
	return root.Execute()
}

func TestProtectedCommandWithoutTokenRedirectsToLogin(t *testing.T) {
	h := newHarness(t)

	err := h.run("dashboard")

	require.ErrorIs(t, err, auth.ErrNoToken)
	assert.Contains(t, err.Error(), "fmcg login")
	assert.Empty(t, h.backend.paths(), "no token means no network call")
}

func TestLoginStoresTokenAndRendersHome(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run("login", "--email", "a@b.com"))

	token, err := h.tokens.LoadToken(h.srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "T", token)
	assert.Equal(t, []string{"POST /auth/login", "GET /dashboard/summary"}, h.backend.paths())
	assert.Contains(t, h.out.String(), "Welcome, A")

	h.backend.mu.Lock()
	assert.Equal(t, "", h.backend.tokens[0], "login goes out without a session header")
	assert.Equal(t, "T", h.backend.tokens[1])
	h.backend.mu.Unlock()
}

func TestLoginFailureKeepsStateUnchanged(t *testing.T) {
	h := newHarness(t)

	err := h.run("login", "--email", "a@b.com", "--password", "wrong")

	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Equal(t, 0, h.tokens.Len())
}

func TestLoginWhenAlreadySignedInRedirectsHome(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.SaveToken(h.srv.URL, "T"))

	require.NoError(t, h.run("login", "--email", "a@b.com"))

	assert.Contains(t, h.out.String(), "Already signed in as A")
	assert.Equal(t, []string{"GET /auth/verify", "GET /dashboard/summary"}, h.backend.paths())
}

func TestInvalidStoredTokenIsDiscarded(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.SaveToken(h.srv.URL, "stale"))

	err := h.run("whoami")

	require.ErrorIs(t, err, auth.ErrNoToken)
	assert.Equal(t, 0, h.tokens.Len())
	assert.Equal(t, []string{"GET /auth/verify"}, h.backend.paths())
}

func TestLogoutClearsTokenEvenWhenBackendFails(t *testing.T) {
	h := newHarness(t)
	h.backend.failLogout = true
	require.NoError(t, h.tokens.SaveToken(h.srv.URL, "T"))

	require.NoError(t, h.run("logout"))
	assert.Equal(t, 0, h.tokens.Len())
	assert.Contains(t, h.out.String(), "Logged out")

	// Idempotent
	require.NoError(t, h.run("logout"))
	assert.Equal(t, 0, h.tokens.Len())
}

func TestUnguardedCommandsNeedNoBackend(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, os.Remove(config.ConfigFileName))

	require.NoError(t, h.run("version"))
	require.NoError(t, h.run("init", "http://localhost:9999"))

	assert.Contains(t, h.out.String(), "fmcg version")
	assert.Empty(t, h.backend.paths())
}

func TestEphemeralSignsInFromEnvironmentWithoutStoringToken(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FMCG_EMAIL", "a@b.com")
	t.Setenv("FMCG_PASSWORD", "secret")

	require.NoError(t, h.run("whoami", "--ephemeral"))
	assert.Contains(t, h.out.String(), "a@b.com")
	assert.Equal(t, []string{"POST /auth/login", "GET /auth/verify"}, h.backend.paths())
	assert.Equal(t, 0, h.tokens.Len(), "the persistent store is never touched")

	// Every command signs in again
	require.NoError(t, h.run("dashboard", "--ephemeral"))
	assert.Equal(t, 0, h.tokens.Len())
	assert.Len(t, h.backend.paths(), 5)
}

func TestEphemeralNeedsCredentials(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FMCG_EMAIL", "a@b.com")
	t.Setenv("FMCG_PASSWORD", "")

	err := h.run("whoami", "--ephemeral")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "FMCG_PASSWORD")
	assert.Empty(t, h.backend.paths())
}

func TestEphemeralLoginFailureStopsCommand(t *testing.T) {
	h := newHarness(t)
	t.Setenv("FMCG_EMAIL", "a@b.com")
	t.Setenv("FMCG_PASSWORD", "wrong")

	err := h.run("dashboard", "--ephemeral")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid email or password")
	assert.Equal(t, []string{"POST /auth/login"}, h.backend.paths())
}

func TestEphemeralRejectedOnSessionCommands(t *testing.T) {
	h := newHarness(t)

	err := h.run("login", "--email", "a@b.com", "--ephemeral")
	require.ErrorIs(t, err, errEphemeralScope)

	err = h.run("logout", "--ephemeral")
	require.ErrorIs(t, err, errEphemeralScope)

	assert.Empty(t, h.backend.paths())
	assert.Equal(t, 0, h.tokens.Len())
}
