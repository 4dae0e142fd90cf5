package storage

import (
	"context"
	"sync"
)

// MemoryStore is an in-process BlobStore. It counts writes so tests can
// observe debouncing.
type MemoryStore struct {
	mu     sync.Mutex
	blobs  map[string]string
	writes int
}

var _ BlobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.blobs[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = value
	m.writes++
	return nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

// Writes reports how many Set calls have been made.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
