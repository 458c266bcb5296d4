package evictgo

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/reclaim"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// It satisfies both sampler.Metrics and reclaim.Metrics, so one collector
// observes the whole pipeline.
type MetricsCollector interface {
	// RecordSample is called after each sampling cycle.
	// err is nil if the measurement succeeded.
	RecordSample(stats pressure.Stats, err error)

	// RecordEvict is called after each eviction cascade.
	// err is non-nil only when the catalog-delete step failed.
	RecordEvict(duration time.Duration, err error)

	// RecordReclaim is called after each completed reclamation pass.
	RecordReclaim(report *reclaim.Report, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSample(pressure.Stats, error)           {}
func (NoopMetricsCollector) RecordEvict(time.Duration, error)             {}
func (NoopMetricsCollector) RecordReclaim(*reclaim.Report, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SampleCount     atomic.Int64
	SampleErrors    atomic.Int64
	EvictCount      atomic.Int64
	EvictErrors     atomic.Int64
	EvictTotalNanos atomic.Int64
	ReclaimCount    atomic.Int64
	CleanedTotal    atomic.Int64
}

func (c *BasicMetricsCollector) RecordSample(_ pressure.Stats, err error) {
	c.SampleCount.Add(1)
	if err != nil {
		c.SampleErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordEvict(d time.Duration, err error) {
	c.EvictCount.Add(1)
	c.EvictTotalNanos.Add(int64(d))
	if err != nil {
		c.EvictErrors.Add(1)
	}
}

func (c *BasicMetricsCollector) RecordReclaim(report *reclaim.Report, _ time.Duration) {
	c.ReclaimCount.Add(1)
	c.CleanedTotal.Add(int64(report.CleanedCount))
}
