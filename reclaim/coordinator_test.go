package reclaim

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/evictgo/blobstore"
	"github.com/hupe1980/evictgo/catalog"
	"github.com/hupe1980/evictgo/clock"
	"github.com/hupe1980/evictgo/pressure"
	"github.com/hupe1980/evictgo/vectorindex"
)

// scriptedReader returns one queued Stats per Snapshot call, sticking with
// the last entry once the script runs out.
type scriptedReader struct {
	mu    sync.Mutex
	stats []pressure.Stats
}

func (r *scriptedReader) Snapshot(context.Context) (pressure.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.stats[0]
	if len(r.stats) > 1 {
		r.stats = r.stats[1:]
	}
	return s, nil
}

// countingCatalog wraps a catalog store and counts delete calls, optionally
// failing them.
type countingCatalog struct {
	*catalog.MemoryStore
	mu        sync.Mutex
	deletes   int
	deleteErr error
	listErr   error
}

func (c *countingCatalog) List(ctx context.Context) ([]catalog.ArtifactRecord, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.MemoryStore.List(ctx)
}

func (c *countingCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	c.deletes++
	c.mu.Unlock()

	if c.deleteErr != nil {
		return c.deleteErr
	}
	return c.MemoryStore.Delete(ctx, id)
}

func (c *countingCatalog) deleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes
}

// failingIndex fails every operation.
type failingIndex struct{}

func (failingIndex) HasCollection(context.Context, string) (bool, error) {
	return false, errors.New("index unreachable")
}
func (failingIndex) DeleteByArtifact(context.Context, string, string) error {
	return errors.New("index unreachable")
}
func (failingIndex) Count(context.Context, string) (int, error) {
	return 0, errors.New("index unreachable")
}
func (failingIndex) DeleteCollection(context.Context, string) error {
	return errors.New("index unreachable")
}

// failingBlobs fails every delete.
type failingBlobs struct {
	*blobstore.MemoryStore
}

func (failingBlobs) Delete(context.Context, string) error {
	return errors.New("blob store unreachable")
}

type fixture struct {
	cat    *countingCatalog
	idx    *vectorindex.MemoryIndex
	blobs  *blobstore.MemoryStore
	reader *pressure.StaticReader
	clk    *clock.Fake
	coord  *Coordinator
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	f := &fixture{
		cat:    &countingCatalog{MemoryStore: catalog.NewMemoryStore()},
		idx:    vectorindex.NewMemoryIndex(),
		blobs:  blobstore.NewMemoryStore(),
		reader: pressure.NewStaticReader(pressure.Stats{}),
		clk:    clock.NewFake(time.Unix(0, 0)),
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	cfg.Clock = f.clk
	f.coord = NewCoordinator(f.cat, f.idx, f.blobs, f.reader, cfg)
	return f
}

// seed stores a full artifact: catalog record, blob, and indexed documents.
func (f *fixture) seed(t *testing.T, id string, createdAt time.Time) catalog.ArtifactRecord {
	t.Helper()
	ctx := context.Background()

	rec := catalog.ArtifactRecord{
		ID:              id,
		DisplayName:     id + ".txt",
		CreatedAt:       createdAt,
		StorageLocation: "blobs/" + id,
		IndexCollection: "file-" + id,
	}
	require.NoError(t, f.cat.Put(ctx, rec))
	require.NoError(t, f.blobs.Put(ctx, rec.StorageLocation, []byte("data")))
	require.NoError(t, f.idx.Add(ctx, rec.IndexCollection,
		vectorindex.Document{ArtifactID: id, Text: "chunk"},
	))
	return rec
}

func TestCheckAndReclaim_BelowThresholdDoesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Threshold: 0.70})
	f.seed(t, "a", time.Unix(1, 0))

	f.reader.Set(pressure.Stats{MemoryFraction: 0.50, CacheFraction: 0.30})

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Zero(t, f.cat.deleteCount())
	assert.Equal(t, 1, f.blobs.Len())
}

func TestCheckAndReclaim_ThresholdBoundaryIsExclusive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Threshold: 0.70})
	f.seed(t, "a", time.Unix(1, 0))

	f.reader.Set(pressure.Stats{MemoryFraction: 0.70, CacheFraction: 0.70})

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Zero(t, f.cat.deleteCount())
}

func TestBudget(t *testing.T) {
	f := newFixture(t, Config{Scale: 20})

	tests := []struct {
		excess float64
		want   int
	}{
		{excess: -0.10, want: 1},
		{excess: 0, want: 1},
		{excess: 0.04, want: 1},
		{excess: 0.05, want: 1},
		{excess: 0.15, want: 3},
		{excess: 0.30, want: 6},
		{excess: 0.50, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, f.coord.Budget(tt.excess), "excess=%v", tt.excess)
	}
}

func TestSelectOldest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	f.seed(t, "newest", time.Unix(300, 0))
	f.seed(t, "oldest", time.Unix(100, 0))
	f.seed(t, "middle", time.Unix(200, 0))

	victims := f.coord.SelectOldest(ctx, 2)
	require.Len(t, victims, 2)
	assert.Equal(t, "oldest", victims[0].ID)
	assert.Equal(t, "middle", victims[1].ID)
}

func TestSelectOldest_TieBrokenByID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	at := time.Unix(100, 0)
	f.seed(t, "b", at)
	f.seed(t, "a", at)

	victims := f.coord.SelectOldest(ctx, 2)
	require.Len(t, victims, 2)
	assert.Equal(t, "a", victims[0].ID)
	assert.Equal(t, "b", victims[1].ID)
}

func TestSelectOldest_EmptyAndShortCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	assert.Empty(t, f.coord.SelectOldest(ctx, 5))

	f.seed(t, "only", time.Unix(1, 0))
	assert.Len(t, f.coord.SelectOldest(ctx, 5), 1)
}

func TestSelectOldest_CatalogFailureIsEmptyNotError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.seed(t, "a", time.Unix(1, 0))
	f.cat.listErr = errors.New("db locked")

	assert.Empty(t, f.coord.SelectOldest(ctx, 5))
}

func TestEvictOne_FullCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	rec := f.seed(t, "a", time.Unix(1, 0))

	ok := f.coord.EvictOne(ctx, rec)
	assert.True(t, ok)

	// Blob gone.
	assert.Zero(t, f.blobs.Len())

	// Documents and the now-empty collection gone.
	has, err := f.idx.HasCollection(ctx, rec.IndexCollection)
	require.NoError(t, err)
	assert.False(t, has)

	// Catalog entry gone.
	_, err = f.cat.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEvictOne_KeepsNonEmptyCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	rec := f.seed(t, "a", time.Unix(1, 0))

	// Another artifact shares the collection.
	require.NoError(t, f.idx.Add(ctx, rec.IndexCollection,
		vectorindex.Document{ArtifactID: "b", Text: "other"},
	))

	assert.True(t, f.coord.EvictOne(ctx, rec))

	has, err := f.idx.HasCollection(ctx, rec.IndexCollection)
	require.NoError(t, err)
	assert.True(t, has)

	n, err := f.idx.Count(ctx, rec.IndexCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEvictOne_DependentFailuresStillDeleteCatalogEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	rec := f.seed(t, "a", time.Unix(1, 0))

	coord := NewCoordinator(f.cat, failingIndex{}, failingBlobs{}, f.reader, Config{
		Logger: slog.New(slog.DiscardHandler),
		Clock:  f.clk,
	})

	ok := coord.EvictOne(ctx, rec)
	assert.True(t, ok)
	assert.Equal(t, 1, f.cat.deleteCount())

	_, err := f.cat.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEvictOne_FailsOnlyOnCatalogDeleteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	rec := f.seed(t, "a", time.Unix(1, 0))
	f.cat.deleteErr = errors.New("catalog write locked")

	ok := f.coord.EvictOne(ctx, rec)
	assert.False(t, ok)
	assert.Equal(t, 1, f.cat.deleteCount())
}

func TestEvictOne_MetadataOnlyRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	rec := catalog.ArtifactRecord{ID: "meta", DisplayName: "meta", CreatedAt: time.Unix(1, 0)}
	require.NoError(t, f.cat.Put(ctx, rec))

	assert.True(t, f.coord.EvictOne(ctx, rec))
	assert.Equal(t, 1, f.cat.deleteCount())

	_, err := f.cat.Get(ctx, "meta")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestEvictOne_RepeatOnEvictedRecordSucceeds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	rec := f.seed(t, "a", time.Unix(1, 0))

	assert.True(t, f.coord.EvictOne(ctx, rec))
	assert.True(t, f.coord.EvictOne(ctx, rec))
}

func TestCheckAndReclaim_EndToEnd(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t, Config{Threshold: 0.70, SettleDelay: 2 * time.Second})

	// Oldest to newest: A, B, C, D, E.
	recs := make(map[string]catalog.ArtifactRecord)
	for i, id := range []string{"A", "B", "C", "D", "E"} {
		recs[id] = f.seed(t, id, time.Unix(int64(100*(i+1)), 0))
	}

	f.coord.reader = &scriptedReader{stats: []pressure.Stats{
		{MemoryFraction: 0.85, CacheFraction: 0.60},
		{MemoryFraction: 0.72, CacheFraction: 0.55},
	}}

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)

	// excess = 0.15 -> floor(0.15*20) = 3 victims: A, B, C.
	assert.Equal(t, 3, report.CleanedCount)
	assert.Equal(t, 0.85, report.PressureBefore)
	assert.Equal(t, 0.72, report.PressureAfter)
	assert.Equal(t, 0.60, report.CacheBefore)
	assert.Equal(t, 0.55, report.CacheAfter)
	assert.InDelta(t, 0.13, report.FreedFraction, 1e-9)

	for _, id := range []string{"A", "B", "C"} {
		_, err := f.cat.Get(ctx, id)
		assert.ErrorIs(t, err, catalog.ErrNotFound, "victim %s", id)
	}
	for _, id := range []string{"D", "E"} {
		_, err := f.cat.Get(ctx, id)
		assert.NoError(t, err, "survivor %s", id)
	}

	// Settle delay happened via the clock, not real time.
	assert.Contains(t, f.clk.Slept(), 2*time.Second)
}

func TestCheckAndReclaim_PressureExceededEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Threshold: 0.70})

	f.reader.Set(pressure.Stats{MemoryFraction: 0.85, CacheFraction: 0.20})

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Zero(t, report.CleanedCount)
	assert.Equal(t, report.PressureBefore, report.PressureAfter)
	assert.Equal(t, report.CacheBefore, report.CacheAfter)
	assert.Zero(t, report.FreedFraction)
}

func TestCheckAndReclaim_CacheAloneTriggers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Threshold: 0.70})
	f.seed(t, "a", time.Unix(1, 0))

	f.reader.Set(pressure.Stats{MemoryFraction: 0.10, CacheFraction: 0.80})

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.CleanedCount)
}

func TestCheckAndReclaim_CooldownSuppressesSecondPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{
		Threshold:          0.70,
		MinReclaimInterval: time.Hour,
	})
	f.seed(t, "a", time.Unix(1, 0))
	f.seed(t, "b", time.Unix(2, 0))

	f.reader.Set(pressure.Stats{MemoryFraction: 0.72})

	report, err := f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.CleanedCount)

	report, err = f.coord.CheckAndReclaim(ctx)
	require.NoError(t, err)
	assert.Nil(t, report)

	// Still one record left untouched.
	records, err := f.cat.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestCheckAndReclaim_SingleFlight(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Threshold: 0.70})
	f.seed(t, "a", time.Unix(1, 0))

	release := make(chan struct{})
	f.coord.reader = &gatedReader{
		release: release,
		stats:   pressure.Stats{MemoryFraction: 0.80},
	}

	var wg sync.WaitGroup
	reports := make([]*Report, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := f.coord.CheckAndReclaim(ctx)
			assert.NoError(t, err)
			reports[i] = r
		}(i)
	}

	// Let both callers pile up on the gate, then release one pass.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	require.NotNil(t, reports[0])
	// Both callers shared the same pass.
	assert.Same(t, reports[0], reports[1])
	assert.Equal(t, 1, f.cat.deleteCount())
}

// gatedReader blocks the first Snapshot until released, so concurrent
// CheckAndReclaim callers overlap deterministically.
type gatedReader struct {
	once    sync.Once
	release chan struct{}
	stats   pressure.Stats
}

func (r *gatedReader) Snapshot(context.Context) (pressure.Stats, error) {
	r.once.Do(func() { <-r.release })
	return r.stats, nil
}

func TestCurrentPressure_FallsBackToLastKnown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})

	// No reading yet: conservative default.
	f.reader.SetError(errors.New("sensor offline"))
	mem, cache := f.coord.CurrentPressure(ctx)
	assert.Zero(t, mem)
	assert.Zero(t, cache)

	f.reader.Set(pressure.Stats{MemoryFraction: 0.42, CacheFraction: 0.17})
	mem, cache = f.coord.CurrentPressure(ctx)
	assert.Equal(t, 0.42, mem)
	assert.Equal(t, 0.17, cache)

	// Failure after a success returns the last known reading.
	f.reader.SetError(errors.New("sensor offline"))
	mem, cache = f.coord.CurrentPressure(ctx)
	assert.Equal(t, 0.42, mem)
	assert.Equal(t, 0.17, cache)
}

func TestCheckAndReclaim_CancelledContext(t *testing.T) {
	f := newFixture(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := f.coord.CheckAndReclaim(ctx)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, context.Canceled)
}
