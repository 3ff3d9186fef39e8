package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmcg-dev/fmcg/internal/cli/config"
	"github.com/fmcg-dev/fmcg/internal/cli/userconfig"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestInit_NewConfig(t *testing.T) {
	dir := chdirTemp(t)
	var out bytes.Buffer

	require.NoError(t, runInit(&Env{Out: &out}, "http://localhost:8000/", ""))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 1)
	assert.Equal(t, config.Server{Alias: "local", URL: "http://localhost:8000"}, cfg.Servers[0])
	assert.Contains(t, out.String(), "Created ./fmcg.yaml")
}

func TestInit_AppendsServer(t *testing.T) {
	dir := chdirTemp(t)
	env := &Env{Out: &bytes.Buffer{}}

	require.NoError(t, runInit(env, "http://localhost:8000", ""))
	require.NoError(t, runInit(env, "https://staging.example.com", ""))
	require.NoError(t, runInit(env, "https://prod.example.com", "production"))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	require.Len(t, cfg.Servers, 3)
	assert.Equal(t, "server-2", cfg.Servers[1].Alias)
	assert.Equal(t, "production", cfg.Servers[2].Alias)
}

func TestInit_DuplicateURL(t *testing.T) {
	dir := chdirTemp(t)
	var out bytes.Buffer
	env := &Env{Out: &out}

	require.NoError(t, runInit(env, "http://localhost:8000", ""))
	require.NoError(t, runInit(env, "http://localhost:8000", ""))

	cfg, err := config.Load(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Len(t, cfg.Servers, 1)
	assert.Contains(t, out.String(), "already exists")
}

func TestInit_DuplicateAlias(t *testing.T) {
	chdirTemp(t)
	env := &Env{Out: &bytes.Buffer{}}

	require.NoError(t, runInit(env, "http://localhost:8000", "dev"))
	assert.Error(t, runInit(env, "http://localhost:9000", "dev"))
}

func TestInit_InvalidURL(t *testing.T) {
	dir := chdirTemp(t)

	for _, bad := range []string{"localhost:8000", "ftp://host", "http://"} {
		assert.Error(t, runInit(&Env{Out: &bytes.Buffer{}}, bad, ""), bad)
	}
	_, err := os.Stat(filepath.Join(dir, config.ConfigFileName))
	assert.True(t, os.IsNotExist(err))
}

func TestSelectServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := chdirTemp(t)
	require.NoError(t, config.Save(filepath.Join(dir, config.ConfigFileName), &config.Config{Servers: []config.Server{
		{Alias: "local", URL: "http://localhost:8000"},
		{Alias: "prod", URL: "https://prod.example.com"},
	}}))

	var out bytes.Buffer
	env := &Env{Out: &out}
	noPrompt := func([]config.Server) (*config.Server, error) {
		t.Fatal("prompt should not be shown")
		return nil, nil
	}

	require.NoError(t, runSelectServer(env, noPrompt, "prod"))
	selected, err := userconfig.GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "https://prod.example.com", selected)
	assert.Contains(t, out.String(), "Selected backend: prod")

	prompted := func(servers []config.Server) (*config.Server, error) { return &servers[0], nil }
	require.NoError(t, runSelectServer(env, prompted, ""))
	selected, _ = userconfig.GetSelectedServer()
	assert.Equal(t, "http://localhost:8000", selected)

	assert.Error(t, runSelectServer(env, noPrompt, "staging"))
}
