// Package catalog provides the artifact catalog consumed by the eviction
// coordinator. The catalog is the authoritative existence marker for an
// artifact: a record is created by the host's ingestion path and removed only
// as the final step of an eviction cascade.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory store for tests and embedding
//   - SQLiteStore: embedded SQLite (modernc.org/sqlite, no cgo)
//   - DynamoDBStore: DynamoDB-backed store for cloud deployments
//
// Implementations must treat Delete of a missing record as success.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. Delete never returns it.
var ErrNotFound = errors.New("catalog: record not found")

// ArtifactRecord describes one previously ingested artifact.
type ArtifactRecord struct {
	// ID is the unique, stable identifier of the artifact.
	ID string

	// DisplayName is the human-readable name (typically the original filename).
	DisplayName string

	// CreatedAt is the logical creation time. It is the sole ordering key for
	// eviction; last-access time is deliberately not tracked.
	CreatedAt time.Time

	// StorageLocation is an opaque locator resolvable by the blob store.
	// Empty means no blob was stored for this artifact.
	StorageLocation string

	// IndexCollection names the vector index collection holding this
	// artifact's embeddings. Empty means the artifact was never indexed.
	IndexCollection string
}

// NewArtifactRecord creates a record with a fresh UUID and the given creation
// time. It is a convenience for ingestion paths and tests.
func NewArtifactRecord(displayName string, createdAt time.Time) ArtifactRecord {
	return ArtifactRecord{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		CreatedAt:   createdAt,
	}
}

// Store is the catalog interface consumed by the eviction coordinator.
type Store interface {
	// List returns all artifact records, in no particular order.
	List(ctx context.Context) ([]ArtifactRecord, error)

	// Delete removes the record with the given ID.
	// Deleting a missing record is a no-op, not an error.
	Delete(ctx context.Context, id string) error
}
