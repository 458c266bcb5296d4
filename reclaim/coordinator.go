package reclaim

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/hupe1980/evictgo/blobstore"
	"github.com/hupe1980/evictgo/catalog"
	"github.com/hupe1980/evictgo/clock"
	"github.com/hupe1980/evictgo/internal/memhint"
	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/vectorindex"
)

// Defaults for Config fields left zero.
const (
	DefaultThreshold   = 0.70
	DefaultScale       = 20
	DefaultSettleDelay = 2 * time.Second
)

// Metrics receives callbacks from the coordinator.
type Metrics interface {
	// RecordEvict is called after each cascade. err is non-nil only when the
	// catalog-delete step failed (the cascade counts as failed).
	RecordEvict(duration time.Duration, err error)

	// RecordReclaim is called after each completed reclamation pass.
	RecordReclaim(report *Report, duration time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordEvict(time.Duration, error)     {}
func (noopMetrics) RecordReclaim(*Report, time.Duration) {}

// Config holds coordinator tuning. Zero values take the package defaults.
type Config struct {
	// Threshold is the usage fraction above which reclamation triggers.
	// The boundary is exclusive: usage equal to Threshold does not trigger.
	Threshold float64

	// Scale maps excess pressure to victim count:
	// victims = max(1, floor(excess*Scale)).
	Scale int

	// SettleDelay is the pause between the eviction batch and the after
	// measurement. Best-effort heuristic, not a synchronization primitive.
	SettleDelay time.Duration

	// MinReclaimInterval suppresses passes that start within the interval
	// of the previous one. Zero disables the cooldown.
	MinReclaimInterval time.Duration

	// Logger for per-cascade and per-pass logging.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives coordinator callbacks. Optional.
	Metrics Metrics

	// Clock times cascades and the settle delay. Defaults to the wall
	// clock; tests inject clock.NewFake to step time manually.
	Clock clock.Clock
}

// Coordinator decides whether to reclaim space and executes best-effort
// cascading deletion of the oldest artifacts.
//
// The coordinator is stateless across passes apart from its configuration,
// the last successful pressure reading, and the cooldown window.
type Coordinator struct {
	cat     catalog.Store
	idx     vectorindex.Index
	blobs   blobstore.BlobStore
	reader  pressure.Reader
	cfg     Config
	clk     clock.Clock
	logger  *slog.Logger
	metrics Metrics

	// lastStats caches the most recent successful pressure reading so a
	// transient measurement failure never fails the caller.
	lastStats atomic.Pointer[pressure.Stats]

	// group collapses overlapping CheckAndReclaim calls into one pass.
	group singleflight.Group

	// cooldown is nil when MinReclaimInterval is zero.
	cooldown *rate.Limiter
}

// NewCoordinator creates a Coordinator over the three stores and a pressure
// reader.
func NewCoordinator(cat catalog.Store, idx vectorindex.Index, blobs blobstore.BlobStore, reader pressure.Reader, cfg Config) *Coordinator {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Scale <= 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	c := &Coordinator{
		cat:     cat,
		idx:     idx,
		blobs:   blobs,
		reader:  reader,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		metrics: metrics,
	}
	if cfg.MinReclaimInterval > 0 {
		c.cooldown = rate.NewLimiter(rate.Every(cfg.MinReclaimInterval), 1)
	}
	return c
}

// CurrentPressure returns the memory and cache usage fractions.
//
// A measurement failure never fails the caller: the last successful reading
// is returned instead, or (0, 0) if there has been none. The conservative
// default means a broken pressure reader can never trigger eviction.
func (c *Coordinator) CurrentPressure(ctx context.Context) (mem, cache float64) {
	stats, err := c.reader.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("pressure read failed, using last known reading", "error", err)
		if last := c.lastStats.Load(); last != nil {
			return last.MemoryFraction, last.CacheFraction
		}
		return 0, 0
	}

	c.lastStats.Store(&stats)
	return stats.MemoryFraction, stats.CacheFraction
}

// SelectOldest returns at most limit artifact records ordered strictly
// ascending by creation time (ties broken by ID for determinism).
//
// A catalog read failure is logged and treated as "nothing to evict this
// cycle": the result is empty, never an error.
func (c *Coordinator) SelectOldest(ctx context.Context, limit int) []catalog.ArtifactRecord {
	if limit <= 0 {
		return nil
	}

	records, err := c.cat.List(ctx)
	if err != nil {
		c.logger.Error("catalog list failed, skipping eviction this cycle", "error", err)
		return nil
	}

	slices.SortFunc(records, func(a, b catalog.ArtifactRecord) int {
		if n := a.CreatedAt.Compare(b.CreatedAt); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// Budget maps excess pressure to a victim count: max(1, floor(excess*Scale)).
// Negative excess is floored at zero; once triggered, at least one artifact
// is always reclaimed.
func (c *Coordinator) Budget(excess float64) int {
	if excess < 0 {
		excess = 0
	}
	n := int(math.Floor(excess * float64(c.cfg.Scale)))
	if n < 1 {
		n = 1
	}
	return n
}

// EvictOne cascades deletion for a single artifact:
//
//  1. Delete the artifact's documents from its index collection.
//  2. If the collection is now empty, delete the collection itself.
//  3. Delete the blob.
//  4. Delete the catalog entry.
//
// Steps 1-3 are best-effort: failures are logged and the cascade continues.
// Only a catalog-delete failure makes EvictOne report false; the record then
// stays in the catalog and is selectable again next cycle. Deleting
// already-gone dependents is treated as success, so repeating EvictOne on an
// evicted record succeeds trivially.
func (c *Coordinator) EvictOne(ctx context.Context, rec catalog.ArtifactRecord) bool {
	start := c.clk.Now()
	err := c.evictOne(ctx, rec)
	c.metrics.RecordEvict(c.clk.Now().Sub(start), err)

	if err != nil {
		c.logger.Error("failed to remove catalog entry, artifact stays eligible",
			"artifact_id", rec.ID,
			"display_name", rec.DisplayName,
			"error", err,
		)
		return false
	}

	c.logger.Info("evicted artifact",
		"artifact_id", rec.ID,
		"display_name", rec.DisplayName,
	)
	return true
}

func (c *Coordinator) evictOne(ctx context.Context, rec catalog.ArtifactRecord) error {
	log := c.logger.With("artifact_id", rec.ID)

	if rec.IndexCollection != "" {
		c.dropVectors(ctx, log, rec.IndexCollection, rec.ID)
	}

	if rec.StorageLocation != "" {
		if err := c.blobs.Delete(ctx, rec.StorageLocation); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			log.Error("blob delete failed", "location", rec.StorageLocation, "error", err)
		}
	}

	// The catalog entry goes last and unconditionally. Not-found means a
	// concurrent pass already removed it; that counts as success.
	if err := c.cat.Delete(ctx, rec.ID); err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return err
	}
	return nil
}

// dropVectors removes the artifact's documents and, when the collection ends
// up empty, the collection itself. Every failure is logged and absorbed; a
// possibly non-empty collection is never deleted.
func (c *Coordinator) dropVectors(ctx context.Context, log *slog.Logger, collection, artifactID string) {
	has, err := c.idx.HasCollection(ctx, collection)
	if err != nil {
		log.Error("collection existence check failed", "collection", collection, "error", err)
		return
	}
	if !has {
		return
	}

	if err := c.idx.DeleteByArtifact(ctx, collection, artifactID); err != nil && !errors.Is(err, vectorindex.ErrNotFound) {
		log.Error("vector delete failed", "collection", collection, "error", err)
		return
	}

	remaining, err := c.idx.Count(ctx, collection)
	if err != nil {
		log.Error("collection membership query failed", "collection", collection, "error", err)
		return
	}
	if remaining > 0 {
		return
	}

	if err := c.idx.DeleteCollection(ctx, collection); err != nil && !errors.Is(err, vectorindex.ErrNotFound) {
		log.Error("empty collection delete failed", "collection", collection, "error", err)
		return
	}
	log.Info("deleted empty collection", "collection", collection)
}

// CheckAndReclaim reads current pressure and, when it exceeds the threshold,
// runs one reclamation pass. It returns (nil, nil) when pressure is at or
// below the threshold or the cooldown window suppresses the pass.
//
// Overlapping calls are single-flighted: concurrent callers share one pass
// and its report. Only a cancelled context propagates as an error.
func (c *Coordinator) CheckAndReclaim(ctx context.Context) (*Report, error) {
	v, err, _ := c.group.Do("check-and-reclaim", func() (any, error) {
		return c.checkAndReclaim(ctx)
	})
	if err != nil {
		return nil, err
	}
	report, _ := v.(*Report)
	return report, nil
}

func (c *Coordinator) checkAndReclaim(ctx context.Context) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mem, cache := c.CurrentPressure(ctx)
	c.logger.Debug("pressure check",
		"memory", mem,
		"cache", cache,
		"threshold", c.cfg.Threshold,
	)

	// The boundary is exclusive: equal to threshold does not trigger.
	if mem <= c.cfg.Threshold && cache <= c.cfg.Threshold {
		return nil, nil
	}

	if c.cooldown != nil && !c.cooldown.Allow() {
		c.logger.Debug("reclamation suppressed by cooldown")
		return nil, nil
	}

	c.logger.Warn("pressure threshold exceeded",
		"memory", mem,
		"cache", cache,
		"threshold", c.cfg.Threshold,
	)

	excess := math.Max(mem-c.cfg.Threshold, cache-c.cfg.Threshold)
	victims := c.SelectOldest(ctx, c.Budget(excess))

	start := c.clk.Now()

	if len(victims) == 0 {
		c.logger.Warn("pressure exceeded but nothing to evict")
		report := &Report{
			PressureBefore: mem,
			PressureAfter:  mem,
			CacheBefore:    cache,
			CacheAfter:     cache,
		}
		c.metrics.RecordReclaim(report, c.clk.Now().Sub(start))
		return report, nil
	}

	cleaned := 0
	for _, rec := range victims {
		if c.EvictOne(ctx, rec) {
			cleaned++
		}
	}

	// Advisory only; a failed hint never surfaces.
	if err := memhint.Release(); err != nil {
		c.logger.Debug("memory release hint failed", "error", err)
	}

	// Settle before re-measuring so asynchronous effects of the deletions
	// have a chance to land. Best-effort, no correctness guarantee.
	_ = c.clk.Sleep(ctx, c.cfg.SettleDelay)

	memAfter, cacheAfter := c.CurrentPressure(ctx)

	report := &Report{
		CleanedCount:   cleaned,
		PressureBefore: mem,
		PressureAfter:  memAfter,
		CacheBefore:    cache,
		CacheAfter:     cacheAfter,
		FreedFraction:  mem - memAfter,
	}
	c.metrics.RecordReclaim(report, c.clk.Now().Sub(start))

	c.logger.Info("reclamation pass completed",
		"cleaned", cleaned,
		"selected", len(victims),
		"memory_before", mem,
		"memory_after", memAfter,
		"cache_before", cache,
		"cache_after", cacheAfter,
		"freed", report.FreedFraction,
	)
	return report, nil
}
