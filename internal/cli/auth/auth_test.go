package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.LoadToken("http://localhost:8080")
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.SaveToken("http://localhost:8080/", "tok-1"))

	token, err := store.LoadToken("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	require.NoError(t, store.DeleteToken("http://localhost:8080"))
	require.NoError(t, store.DeleteToken("http://localhost:8080"))
	assert.Equal(t, 0, store.Len())
}

func TestKeyringStore_UsesMockProvider(t *testing.T) {
	keyring.MockInit()
	store := &KeyringStore{}

	_, err := store.LoadToken("https://api.example.com")
	assert.True(t, errors.Is(err, ErrNoToken), "expected ErrNoToken, got %v", err)

	require.NoError(t, store.SaveToken("https://api.example.com", "abc"))
	token, err := store.LoadToken("https://api.example.com/")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, store.DeleteToken("https://api.example.com"))
	// Deleting twice is not an error
	require.NoError(t, store.DeleteToken("https://api.example.com"))
}
