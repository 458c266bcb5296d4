// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "artifacts/")
//	mgr, err := evictgo.New(cat, idx, store)
//
// # Features
//
//   - Multipart uploads for large artifacts
//   - Automatic pagination for listing
//   - Delete of a missing object is absorbed as success
//   - Configurable prefix for multi-tenant isolation
package s3
