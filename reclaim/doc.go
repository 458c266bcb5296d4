// Package reclaim implements the eviction coordinator.
//
// The coordinator decides whether to reclaim space based on measured memory
// and cache pressure, selects the oldest artifacts as victims, and performs
// best-effort cascading deletion per victim: index documents first, then the
// now-empty index collection, then the blob, and the catalog entry last.
//
// The catalog entry is the authoritative existence marker. Deleting it last
// means a crash mid-cascade leaves a catalog entry pointing at partially
// missing dependents rather than dangling data with no record of it. The
// catalog entry is removed unconditionally at the end of a cascade even when
// the dependent-store deletions failed; this prevents retrying a record with
// unreachable dependents forever, at the cost of possibly orphaning vectors
// or blobs. Nothing reconciles such orphans.
//
// Cascades within one pass run sequentially. Eviction is rare and not
// latency-sensitive; concurrent cascades would need partial-failure
// aggregation for no benefit. Overlapping CheckAndReclaim calls are collapsed
// into a single pass whose report all callers share.
package reclaim
