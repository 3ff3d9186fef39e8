package auth

import (
	"strings"
	"sync"
)

// MemoryStore keeps tokens for the lifetime of the process only.
// Used for --ephemeral sessions and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

// NewMemoryStore creates an empty in-memory token store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]string)}
}

func (m *MemoryStore) SaveToken(key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[strings.TrimRight(key, "/")] = token
	return nil
}

func (m *MemoryStore) LoadToken(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[strings.TrimRight(key, "/")]
	if !ok || token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (m *MemoryStore) DeleteToken(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, strings.TrimRight(key, "/"))
	return nil
}

// Len returns the number of stored tokens
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
