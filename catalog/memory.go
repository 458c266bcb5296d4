package catalog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store implementation for tests and embedding.
// Thread-safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]ArtifactRecord
}

// NewMemoryStore creates a new in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]ArtifactRecord),
	}
}

// Put inserts or replaces a record.
func (m *MemoryStore) Put(_ context.Context, rec ArtifactRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[rec.ID] = rec
	return nil
}

// Get returns the record with the given ID.
func (m *MemoryStore) Get(_ context.Context, id string) (ArtifactRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return ArtifactRecord{}, ErrNotFound
	}
	return rec, nil
}

// List returns all records, in no particular order.
func (m *MemoryStore) List(_ context.Context) ([]ArtifactRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]ArtifactRecord, 0, len(m.records))
	for _, rec := range m.records {
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes a record. Deleting a missing record is a no-op.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, id)
	return nil
}

// Len returns the number of records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}
