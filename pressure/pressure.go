// Package pressure provides resource pressure measurement for the sampler
// and the eviction coordinator.
//
// Pressure is expressed as fractions of total capacity so thresholds are
// host-size independent. The default SystemReader measures system-wide memory
// and OS cache usage plus the calling process's resident set.
package pressure

import "context"

// Stats is a snapshot of resource consumption. Immutable once produced.
type Stats struct {
	// MemoryFraction is system-wide used memory over total, 0.0-1.0.
	MemoryFraction float64

	// CacheFraction is OS cache plus buffers over total memory, 0.0-1.0.
	CacheFraction float64

	// ProcessRSSMB is the resident set size of this process in megabytes.
	ProcessRSSMB float64

	// Workers is the number of concurrently active goroutines.
	Workers int
}

// Reader produces pressure snapshots.
type Reader interface {
	// Snapshot measures current resource consumption.
	// A transient measurement failure returns an error and no snapshot.
	Snapshot(ctx context.Context) (Stats, error)
}
