package vectorindex

import (
	"context"
	"sync"
)

// Document is one embedded chunk stored in a collection.
type Document struct {
	// ArtifactID tags the owning artifact.
	ArtifactID string

	// Text is the chunk content. Kept for inspection in tests; the eviction
	// path never reads it.
	Text string

	// Vector is the embedding. May be nil in tests.
	Vector []float32
}

// MemoryIndex is an in-memory Index implementation for tests and
// single-process embedding. Thread-safe for concurrent use.
type MemoryIndex struct {
	mu          sync.RWMutex
	collections map[string][]Document
}

// NewMemoryIndex creates a new in-memory vector index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		collections: make(map[string][]Document),
	}
}

// Add appends documents to a collection, creating it if necessary.
func (m *MemoryIndex) Add(_ context.Context, collection string, docs ...Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.collections[collection] = append(m.collections[collection], docs...)
	return nil
}

// HasCollection reports whether the named collection exists.
func (m *MemoryIndex) HasCollection(_ context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.collections[collection]
	return ok, nil
}

// DeleteByArtifact removes all documents tagged with artifactID.
// Missing collection or no matching documents is a no-op.
func (m *MemoryIndex) DeleteByArtifact(_ context.Context, collection, artifactID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		return nil
	}

	kept := docs[:0]
	for _, doc := range docs {
		if doc.ArtifactID != artifactID {
			kept = append(kept, doc)
		}
	}
	m.collections[collection] = kept
	return nil
}

// Count returns the number of documents in the collection.
// A missing collection counts as zero.
func (m *MemoryIndex) Count(_ context.Context, collection string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.collections[collection]), nil
}

// DeleteCollection removes the entire collection. Missing is a no-op.
func (m *MemoryIndex) DeleteCollection(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections, collection)
	return nil
}
