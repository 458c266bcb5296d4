// Package sampler provides a background resource sampler.
//
// The sampler periodically measures process and system resource consumption,
// logs warnings when static limits are exceeded, and keeps the most recent
// sample available for read-only inspection. It is an advisory companion to
// the eviction coordinator and never triggers eviction itself.
package sampler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/evictgo/clock"
	"github.com/hupe1980/evictgo/pressure"
)

// Defaults for Config fields left zero.
const (
	DefaultInterval      = 30 * time.Second
	DefaultErrorInterval = 60 * time.Second
	DefaultHighWaterMB   = 1000.0
	DefaultWorkerCap     = 15
)

// Sample is one published measurement. Immutable; superseded by the next
// sample, never mutated.
type Sample struct {
	pressure.Stats

	// Timestamp is when the measurement was taken.
	Timestamp time.Time
}

// Metrics receives a callback per sampling cycle.
type Metrics interface {
	// RecordSample is called after each cycle; err is nil on success.
	RecordSample(stats pressure.Stats, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordSample(pressure.Stats, error) {}

// Config holds sampler tuning. Zero values take the package defaults.
type Config struct {
	// Interval between successful sampling cycles.
	Interval time.Duration

	// ErrorInterval is the longer backoff applied after a failed cycle.
	ErrorInterval time.Duration

	// HighWaterMB is the process RSS above which a warning is logged.
	HighWaterMB float64

	// WorkerCap is the goroutine count above which a warning is logged.
	WorkerCap int

	// Logger for cycle errors and threshold warnings.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics receives per-cycle callbacks. Optional.
	Metrics Metrics

	// Clock drives the sampling loop. Defaults to the wall clock; tests
	// inject clock.NewFake to step time manually.
	Clock clock.Clock
}

// Sampler periodically measures resource usage in a background goroutine.
//
// Start and Stop are idempotent. The latest sample snapshot is safe for
// concurrent read while being replaced.
type Sampler struct {
	reader  pressure.Reader
	cfg     Config
	clk     clock.Clock
	logger  *slog.Logger
	metrics Metrics

	latest atomic.Pointer[Sample]

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a Sampler reading from the given pressure reader.
func New(reader pressure.Reader, cfg Config) *Sampler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ErrorInterval <= 0 {
		cfg.ErrorInterval = DefaultErrorInterval
	}
	if cfg.HighWaterMB <= 0 {
		cfg.HighWaterMB = DefaultHighWaterMB
	}
	if cfg.WorkerCap <= 0 {
		cfg.WorkerCap = DefaultWorkerCap
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

	return &Sampler{
		reader:  reader,
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		metrics: metrics,
	}
}

// Start begins periodic sampling. Calling Start while already running is a
// no-op. Start after Stop begins a fresh loop.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.doneCh)
}

// Stop halts sampling after the current cycle completes and waits for the
// loop to exit. Calling Stop while not running is a no-op.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
}

// Latest returns the most recent sample, or nil before the first successful
// cycle.
func (s *Sampler) Latest() *Sample {
	return s.latest.Load()
}

func (s *Sampler) loop(stop, done chan struct{}) {
	defer close(done)

	for {
		wait := s.cycle(context.Background())

		select {
		case <-stop:
			return
		case <-s.clk.After(wait):
		}
	}
}

// cycle runs one measurement and returns the wait before the next one.
// A failed measurement publishes nothing and backs off to ErrorInterval.
func (s *Sampler) cycle(ctx context.Context) time.Duration {
	stats, err := s.reader.Snapshot(ctx)
	s.metrics.RecordSample(stats, err)
	if err != nil {
		s.logger.Error("resource sampling failed", "error", err)
		return s.cfg.ErrorInterval
	}

	if stats.ProcessRSSMB > s.cfg.HighWaterMB {
		s.logger.Warn("high memory usage",
			"rss_mb", stats.ProcessRSSMB,
			"high_water_mb", s.cfg.HighWaterMB,
		)
	}
	if stats.Workers > s.cfg.WorkerCap {
		s.logger.Warn("high worker count",
			"workers", stats.Workers,
			"cap", s.cfg.WorkerCap,
		)
	}

	s.latest.Store(&Sample{Stats: stats, Timestamp: s.clk.Now()})
	return s.cfg.Interval
}
