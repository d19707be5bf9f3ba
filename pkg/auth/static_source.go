package auth

import (
	"context"
	"sync"
)

// StaticSource serves a fixed set of cookies. It backs the config file
// source and tests.
type StaticSource struct {
	name    string
	cookies map[string]string
}

// NewStaticSource creates a source named name. Empty values are dropped.
func NewStaticSource(name string, cookies map[string]string) *StaticSource {
	kept := make(map[string]string, len(cookies))
	for k, v := range cookies {
		if v != "" {
			kept[k] = v
		}
	}
	return &StaticSource{name: name, cookies: kept}
}

// Name implements CredentialSource
func (s *StaticSource) Name() string { return s.name }

// Cookies implements CredentialSource
func (s *StaticSource) Cookies(ctx context.Context) (map[string]string, error) {
	if len(s.cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	out := make(map[string]string, len(s.cookies))
	for k, v := range s.cookies {
		out[k] = v
	}
	return out, nil
}

// MemoryStore is a SessionStore kept in memory, for tests
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session

	// Error injection for testing
	SaveError   error
	CookieError error
}

// NewMemoryStore creates an empty in-memory session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Name implements CredentialSource
func (m *MemoryStore) Name() string { return "memory" }

// Cookies implements CredentialSource
func (m *MemoryStore) Cookies(ctx context.Context) (map[string]string, error) {
	if m.CookieError != nil {
		return nil, m.CookieError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrCredentialsNotFound
	}
	return m.session.Cookies(), nil
}

// Save implements SessionStore
func (m *MemoryStore) Save(ctx context.Context, session *Session) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *session
	m.session = &copied
	return nil
}

// Delete implements SessionStore
func (m *MemoryStore) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ErrCredentialsNotFound
	}
	m.session = nil
	return nil
}
