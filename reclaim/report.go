package reclaim

// Report summarizes one reclamation pass.
type Report struct {
	// CleanedCount is the number of artifacts whose cascade succeeded.
	CleanedCount int

	// PressureBefore and PressureAfter are the memory usage fractions
	// measured before the pass and after the settle delay.
	PressureBefore float64
	PressureAfter  float64

	// CacheBefore and CacheAfter are the cache usage fractions.
	CacheBefore float64
	CacheAfter  float64

	// FreedFraction is PressureBefore - PressureAfter. Negative values are
	// possible when unrelated allocations outpace the reclamation.
	FreedFraction float64
}
