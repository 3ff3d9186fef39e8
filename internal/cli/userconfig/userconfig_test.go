package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedServerRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	url, err := GetSelectedServer()
	require.NoError(t, err)
	assert.Empty(t, url, "missing file reads as empty config")

	require.NoError(t, SetSelectedServer("http://localhost:8000"))

	url, err = GetSelectedServer()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", url)

	_, err = os.Stat(filepath.Join(home, ".config", "fmcg", "config.yaml"))
	assert.NoError(t, err)
}

func TestSetSelectedServerKeepsOtherFields(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	require.NoError(t, Save(&UserConfig{LogLevel: "debug"}))
	require.NoError(t, SetSelectedServer("https://api.example.com"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://api.example.com", cfg.SelectedServerURL)
}

func TestLoadInvalidFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "fmcg")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("selected_server_url: [\n"), 0600))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse user config file")
}
