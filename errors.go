package evictgo

import (
	"errors"
	"fmt"
)

var (
	// ErrNilCatalog is returned when New is called without a catalog store.
	ErrNilCatalog = errors.New("catalog store is nil")

	// ErrNilIndex is returned when New is called without a vector index.
	ErrNilIndex = errors.New("vector index is nil")

	// ErrNilBlobStore is returned when New is called without a blob store.
	ErrNilBlobStore = errors.New("blob store is nil")
)

// ErrInvalidThreshold indicates a pressure threshold outside (0, 1).
type ErrInvalidThreshold struct {
	Threshold float64
}

func (e *ErrInvalidThreshold) Error() string {
	return fmt.Sprintf("invalid threshold: %v (must be in (0, 1))", e.Threshold)
}
