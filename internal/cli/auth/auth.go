package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	service = "fmcg-cli"
)

// ErrNoToken is returned when no session token is persisted for a backend
var ErrNoToken = errors.New("not authenticated. Please run 'fmcg login' first")

// TokenStore is the key-value persistence for session tokens.
// Keys are backend URLs so sessions on different backends never collide.
type TokenStore interface {
	SaveToken(key, token string) error
	LoadToken(key string) (string, error)
	DeleteToken(key string) error
}

// getKeyringKey returns a unique key for storing session tokens per backend
func getKeyringKey(key string) string {
	return fmt.Sprintf("session-%s", strings.TrimRight(key, "/"))
}

// KeyringStore persists tokens in the OS keychain/credential manager
type KeyringStore struct{}

// Default is the production token store
var Default TokenStore = &KeyringStore{}

// SaveToken persists the session token securely in the OS keychain
func (k *KeyringStore) SaveToken(key, token string) error {
	if err := keyring.Set(service, getKeyringKey(key), token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// LoadToken retrieves the session token from the OS keychain
func (k *KeyringStore) LoadToken(key string) (string, error) {
	token, err := keyring.Get(service, getKeyringKey(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// DeleteToken removes the session token from the OS keychain
func (k *KeyringStore) DeleteToken(key string) error {
	if err := keyring.Delete(service, getKeyringKey(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
