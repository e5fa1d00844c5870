// Package store holds the audit sink implementations: in-memory for tests
// and single-node demos, Redis for shared deployments, and a Postgres outbox
// feeding Kafka for durable compliance retention.
package store

import (
	"context"
	"sync"

	"credvault/internal/audit"
)

// InMemoryStore keeps entries newest-first in a slice. Append prepends so
// List can hand back the backing order directly.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append([]audit.Entry{entry}, s.entries...)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}
