// Package vectorindex defines the vector index collaborator consumed by the
// eviction coordinator.
//
// A collection is an index namespace holding zero or more embedded documents,
// each tagged with the owning artifact's ID. The coordinator removes an
// artifact's documents first, then removes the collection itself once a
// membership query reports it empty. A non-empty collection is never deleted.
//
// The exact index engine behind this interface is out of scope; MemoryIndex
// is provided for tests and single-process embedding.
package vectorindex

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a collection does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. Delete operations never return it.
var ErrNotFound = errors.New("vectorindex: collection not found")

// Index is the vector index interface consumed by the eviction coordinator.
type Index interface {
	// HasCollection reports whether the named collection exists.
	HasCollection(ctx context.Context, collection string) (bool, error)

	// DeleteByArtifact removes all documents in the collection tagged with
	// the given artifact ID. Missing collection or no matching documents is
	// a no-op, not an error.
	DeleteByArtifact(ctx context.Context, collection, artifactID string) error

	// Count returns the number of documents remaining in the collection.
	// A missing collection counts as zero.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection removes the entire collection.
	// Deleting a missing collection is a no-op, not an error.
	DeleteCollection(ctx context.Context, collection string) error
}
