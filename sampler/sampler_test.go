package sampler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/evictgo/pressure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	mu       sync.Mutex
	cycles   int
	failures int
}

func (m *countingMetrics) RecordSample(_ pressure.Stats, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles++
	if err != nil {
		m.failures++
	}
}

func (m *countingMetrics) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles, m.failures
}

func TestSampler_PublishesLatest(t *testing.T) {
	reader := pressure.NewStaticReader(pressure.Stats{
		MemoryFraction: 0.4,
		ProcessRSSMB:   128,
		Workers:        4,
	})
	s := New(reader, Config{
		Interval:      time.Millisecond,
		ErrorInterval: time.Millisecond,
	})

	require.Nil(t, s.Latest())

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Latest() != nil
	}, time.Second, time.Millisecond)

	sample := s.Latest()
	assert.Equal(t, 0.4, sample.MemoryFraction)
	assert.Equal(t, 4, sample.Workers)
	assert.False(t, sample.Timestamp.IsZero())
}

func TestSampler_StartIdempotent(t *testing.T) {
	reader := pressure.NewStaticReader(pressure.Stats{})
	s := New(reader, Config{Interval: time.Millisecond, ErrorInterval: time.Millisecond})

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()

	// Restart after stop works.
	s.Start()
	s.Stop()
}

func TestSampler_FailedCycleKeepsLooping(t *testing.T) {
	reader := pressure.NewStaticReader(pressure.Stats{})
	reader.SetError(errors.New("sensor offline"))

	metrics := &countingMetrics{}
	s := New(reader, Config{
		Interval:      time.Millisecond,
		ErrorInterval: time.Millisecond,
		Metrics:       metrics,
	})

	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		_, failures := metrics.counts()
		return failures >= 2
	}, time.Second, time.Millisecond)

	// No sample published while measurement fails.
	assert.Nil(t, s.Latest())

	// Recovery publishes again.
	reader.Set(pressure.Stats{MemoryFraction: 0.1})
	require.Eventually(t, func() bool {
		return s.Latest() != nil
	}, time.Second, time.Millisecond)
}

func TestSampler_WarnsAboveLimits(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{buf: &buf, mu: &mu}, nil))

	reader := pressure.NewStaticReader(pressure.Stats{
		ProcessRSSMB: 2048,
		Workers:      30,
	})
	s := New(reader, Config{
		Interval:      time.Millisecond,
		ErrorInterval: time.Millisecond,
		HighWaterMB:   1000,
		WorkerCap:     15,
		Logger:        logger,
	})

	s.cycle(context.Background())

	mu.Lock()
	out := buf.String()
	mu.Unlock()
	assert.Contains(t, out, "high memory usage")
	assert.Contains(t, out, "high worker count")
}

func TestSampler_NoWarningsBelowLimits(t *testing.T) {
	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewTextHandler(&lockedWriter{buf: &buf, mu: &mu}, nil))

	reader := pressure.NewStaticReader(pressure.Stats{
		ProcessRSSMB: 100,
		Workers:      5,
	})
	s := New(reader, Config{Logger: logger})

	wait := s.cycle(context.Background())

	assert.Equal(t, DefaultInterval, wait)
	mu.Lock()
	out := buf.String()
	mu.Unlock()
	assert.Empty(t, out)
}

func TestSampler_FailedCycleBacksOff(t *testing.T) {
	reader := pressure.NewStaticReader(pressure.Stats{})
	reader.SetError(errors.New("boom"))

	s := New(reader, Config{
		Interval:      30 * time.Second,
		ErrorInterval: 60 * time.Second,
		Logger:        slog.New(slog.DiscardHandler),
	})

	assert.Equal(t, 60*time.Second, s.cycle(context.Background()))

	reader.Set(pressure.Stats{})
	assert.Equal(t, 30*time.Second, s.cycle(context.Background()))
}

type lockedWriter struct {
	mu  *sync.Mutex
	buf *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}
