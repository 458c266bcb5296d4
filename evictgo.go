package evictgo

import (
	"context"
	"log/slog"
	"time"

	"github.com/hupe1980/evictgo/blobstore"
	"github.com/hupe1980/evictgo/catalog"
	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/reclaim"
	"github.com/hupe1980/evictgo/sampler"
	"github.com/hupe1980/evictgo/vectorindex"
)

// Evictgo ties a background resource sampler to an eviction coordinator.
//
// Construct one per process (or per artifact store) and own it from the host
// application's composition root; there is no package-level singleton.
type Evictgo struct {
	sampler *sampler.Sampler
	coord   *reclaim.Coordinator
	logger  *Logger
}

// New creates an Evictgo over the three backing stores.
//
// The sampler and coordinator share one pressure reader; by default this is
// the gopsutil-backed system reader.
func New(cat catalog.Store, idx vectorindex.Index, blobs blobstore.BlobStore, optFns ...Option) (*Evictgo, error) {
	if cat == nil {
		return nil, ErrNilCatalog
	}
	if idx == nil {
		return nil, ErrNilIndex
	}
	if blobs == nil {
		return nil, ErrNilBlobStore
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	if o.threshold <= 0 || o.threshold >= 1 {
		return nil, &ErrInvalidThreshold{Threshold: o.threshold}
	}

	if o.logger == nil {
		o.logger = NewTextLogger(slog.LevelInfo)
	}
	if o.metrics == nil {
		o.metrics = NoopMetricsCollector{}
	}
	if o.reader == nil {
		reader, err := pressure.NewSystemReader()
		if err != nil {
			return nil, err
		}
		o.reader = reader
	}

	s := sampler.New(o.reader, sampler.Config{
		Interval:      o.samplingInterval,
		ErrorInterval: o.samplingErrorInterval,
		HighWaterMB:   o.highWaterMB,
		WorkerCap:     o.workerCap,
		Logger:        o.logger.Logger,
		Metrics:       samplerHook{logger: o.logger, metrics: o.metrics},
		Clock:         o.clock,
	})

	coord := reclaim.NewCoordinator(cat, idx, blobs, o.reader, reclaim.Config{
		Threshold:          o.threshold,
		Scale:              o.scale,
		SettleDelay:        o.settleDelay,
		MinReclaimInterval: o.minReclaimInterval,
		Logger:             o.logger.Logger,
		Metrics:            o.metrics,
		Clock:              o.clock,
	})

	return &Evictgo{
		sampler: s,
		coord:   coord,
		logger:  o.logger,
	}, nil
}

// StartSampling begins periodic background sampling. Idempotent.
func (e *Evictgo) StartSampling() {
	e.sampler.Start()
}

// StopSampling halts sampling after the current cycle completes. Idempotent.
func (e *Evictgo) StopSampling() {
	e.sampler.Stop()
}

// LatestSample returns the most recent resource sample, or nil before the
// first successful sampling cycle.
func (e *Evictgo) LatestSample() *sampler.Sample {
	return e.sampler.Latest()
}

// CheckAndReclaim reads current pressure and runs one reclamation pass if it
// exceeds the threshold. It returns (nil, nil) when there is nothing to do.
// Safe to invoke from concurrent callers; overlapping calls share one pass.
func (e *Evictgo) CheckAndReclaim(ctx context.Context) (*reclaim.Report, error) {
	start := time.Now()

	report, err := e.coord.CheckAndReclaim(ctx)
	if err != nil {
		return nil, err
	}

	e.logger.LogReclaim(ctx, report, time.Since(start))
	return report, nil
}

// EvictArtifact runs the deletion cascade for a single catalog record
// immediately, regardless of current pressure. It reports whether the
// catalog entry was removed; dependent-store failures are logged but do not
// block removal.
func (e *Evictgo) EvictArtifact(ctx context.Context, rec catalog.ArtifactRecord) bool {
	log := e.logger.WithArtifact(rec.ID)

	ok := e.coord.EvictOne(ctx, rec)
	if !ok {
		log.WarnContext(ctx, "on-demand eviction failed")
		return false
	}

	log.InfoContext(ctx, "artifact evicted on demand")
	return true
}

// Close stops background sampling. It does not touch the backing stores;
// closing those remains the owner's responsibility.
func (e *Evictgo) Close() error {
	e.sampler.Stop()
	return nil
}

// samplerHook fans each sampling cycle out to the configured metrics
// collector and the facade logger.
type samplerHook struct {
	logger  *Logger
	metrics MetricsCollector
}

func (h samplerHook) RecordSample(stats pressure.Stats, err error) {
	h.metrics.RecordSample(stats, err)
	if err == nil {
		h.logger.LogSample(context.Background(), stats)
	}
}
