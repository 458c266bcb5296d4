package pressure

import (
	"context"
	"sync"
)

// StaticReader returns a fixed snapshot or error until changed.
// Useful for tests and for hosts that feed externally measured values.
// Thread-safe for concurrent use.
type StaticReader struct {
	mu    sync.RWMutex
	stats Stats
	err   error
}

// NewStaticReader creates a reader that always reports the given stats.
func NewStaticReader(stats Stats) *StaticReader {
	return &StaticReader{stats: stats}
}

// Set replaces the reported stats and clears any error.
func (r *StaticReader) Set(stats Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats = stats
	r.err = nil
}

// SetError makes every Snapshot fail with err until Set is called.
func (r *StaticReader) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// Snapshot returns the configured stats or error.
func (r *StaticReader) Snapshot(_ context.Context) (Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.err != nil {
		return Stats{}, r.err
	}
	return r.stats, nil
}
