// Package credential provides ready-made jwxt.CredentialStore
// implementations: an in-memory store for tests and a Redis-backed store
// that keeps the account snapshot across restarts.
package credential

import (
	"context"
	"sync"

	jwxt "github.com/campusbox/jwxt"
)

// MemoryStore keeps one credential snapshot in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	creds jwxt.Credentials
	set   bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements jwxt.CredentialStore.
func (s *MemoryStore) Load(context.Context) (jwxt.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds, nil
}

// Save implements jwxt.CredentialStore.
func (s *MemoryStore) Save(_ context.Context, creds jwxt.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = creds
	s.set = true
	return nil
}

// Clear implements jwxt.CredentialStore.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = jwxt.Credentials{}
	s.set = false
	return nil
}

// Present implements jwxt.CredentialStore.
func (s *MemoryStore) Present(context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.set && !s.creds.Blank(), nil
}
