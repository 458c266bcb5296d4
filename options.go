package evictgo

import (
	"time"

	"github.com/hupe1980/evictgo/clock"
	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/reclaim"
	"github.com/hupe1980/evictgo/sampler"
)

type options struct {
	threshold             float64
	scale                 int
	highWaterMB           float64
	workerCap             int
	samplingInterval      time.Duration
	samplingErrorInterval time.Duration
	settleDelay           time.Duration
	minReclaimInterval    time.Duration
	reader                pressure.Reader
	logger                *Logger
	metrics               MetricsCollector
	clock                 clock.Clock
}

func defaultOptions() options {
	return options{
		threshold:             reclaim.DefaultThreshold,
		scale:                 reclaim.DefaultScale,
		highWaterMB:           sampler.DefaultHighWaterMB,
		workerCap:             sampler.DefaultWorkerCap,
		samplingInterval:      sampler.DefaultInterval,
		samplingErrorInterval: sampler.DefaultErrorInterval,
		settleDelay:           reclaim.DefaultSettleDelay,
	}
}

// Option configures New.
type Option func(*options)

// WithThreshold sets the memory/cache usage fraction above which reclamation
// triggers. The boundary is exclusive: usage equal to the threshold does not
// trigger. Must be in (0, 1). Default: 0.70.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithReclaimScale sets the linear factor mapping excess pressure to victim
// count: victims = max(1, floor(excess*scale)). Default: 20.
func WithReclaimScale(scale int) Option {
	return func(o *options) {
		o.scale = scale
	}
}

// WithHighWaterMB sets the process RSS (in MB) above which the sampler logs
// a warning. Default: 1000.
func WithHighWaterMB(mb float64) Option {
	return func(o *options) {
		o.highWaterMB = mb
	}
}

// WithWorkerCap sets the goroutine count above which the sampler logs a
// warning. Default: 15.
func WithWorkerCap(n int) Option {
	return func(o *options) {
		o.workerCap = n
	}
}

// WithSamplingInterval sets the interval between successful sampling cycles.
// Default: 30s.
func WithSamplingInterval(d time.Duration) Option {
	return func(o *options) {
		o.samplingInterval = d
	}
}

// WithSamplingErrorInterval sets the longer backoff applied after a failed
// sampling cycle. Default: 60s.
func WithSamplingErrorInterval(d time.Duration) Option {
	return func(o *options) {
		o.samplingErrorInterval = d
	}
}

// WithSettleDelay sets the pause between an eviction batch and the after
// measurement. Best-effort heuristic, not a synchronization primitive.
// Default: 2s.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) {
		o.settleDelay = d
	}
}

// WithMinReclaimInterval suppresses reclamation passes that start within the
// given interval of the previous one. Zero disables the cooldown. Default: 0.
func WithMinReclaimInterval(d time.Duration) Option {
	return func(o *options) {
		o.minReclaimInterval = d
	}
}

// WithPressureReader replaces the default gopsutil-backed system reader.
// Useful for tests and for hosts that feed externally measured values.
func WithPressureReader(reader pressure.Reader) Option {
	return func(o *options) {
		o.reader = reader
	}
}

// WithLogger configures structured logging. Pass NoopLogger() to disable
// logging entirely. Default: text logs to stderr at info level.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(metrics MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithClock replaces the wall clock driving the sampling loop and the
// coordinator's settle delay. Tests pass clock.NewFake to step time manually.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}
