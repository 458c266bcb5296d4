// Package blobstore provides storage abstraction for artifact payloads.
//
// A blob is the raw ingested file, addressed by the opaque storage location
// recorded in the artifact catalog. The eviction coordinator only ever
// deletes blobs; Put/Open/List exist for the host's ingestion path and for
// tests.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory store for tests
//   - LocalStore: local filesystem
//   - minio.Store: MinIO and S3-compatible object storage
//   - s3.Store: Amazon S3
//
// Implementations must be safe for concurrent use and must treat Delete of a
// missing blob as success.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
// Delete never returns it.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for storing and deleting artifact blobs.
type BlobStore interface {
	// Put writes a blob atomically, replacing any existing blob of the same name.
	Put(ctx context.Context, name string, data []byte) error

	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is a no-op, not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
