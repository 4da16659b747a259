package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/marketlens/internal/domain"
)

type fakeCache struct {
	mu   sync.Mutex
	snap *domain.Snapshot
}

func (f *fakeCache) Get(ctx context.Context) (*domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.snap == nil {
		return nil, domain.ErrNotFound
	}
	return f.snap, nil
}

func (f *fakeCache) Set(ctx context.Context, snap *domain.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = snap
	return nil
}

func (f *fakeCache) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = nil
	return nil
}

type fakeFetcher struct {
	calls  atomic.Int64
	err    error
	events []domain.Event
}

func (f *fakeFetcher) FetchAll(ctx context.Context, target int) (*domain.Snapshot, domain.FetchStats, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, domain.FetchStats{}, f.err
	}
	return &domain.Snapshot{Events: f.events, CapturedAt: time.Now()},
		domain.FetchStats{Events: len(f.events)}, nil
}

func newTestService(fetcher Fetcher, cache domain.SnapshotCache) *Service {
	return New(fetcher, cache, Config{
		FreshTTL: 2 * time.Minute,
		StaleTTL: 10 * time.Minute,
	}, slog.New(slog.DiscardHandler))
}

func TestEventsMissForcesSynchronousRefresh(t *testing.T) {
	fetcher := &fakeFetcher{events: []domain.Event{{ID: "1"}}}
	cache := &fakeCache{}
	svc := newTestService(fetcher, cache)

	events, tier, err := svc.Events(context.Background(), 0)
	require.NoError(t, err)

	assert.Len(t, events, 1)
	assert.Equal(t, domain.FreshnessFresh, tier)
	assert.Equal(t, int64(1), fetcher.calls.Load())

	// The refreshed snapshot landed in the cache.
	snap, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Events, 1)
}

func TestEventsFreshServedWithoutFetch(t *testing.T) {
	fetcher := &fakeFetcher{}
	cache := &fakeCache{snap: &domain.Snapshot{
		Events:     []domain.Event{{ID: "cached"}},
		CapturedAt: time.Now().Add(-30 * time.Second),
	}}
	svc := newTestService(fetcher, cache)

	events, tier, err := svc.Events(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, "cached", events[0].ID)
	assert.Equal(t, domain.FreshnessFresh, tier)
	assert.Zero(t, fetcher.calls.Load())
}

func TestEventsStaleServedAndRefreshedInBackground(t *testing.T) {
	fetcher := &fakeFetcher{events: []domain.Event{{ID: "new"}}}
	cache := &fakeCache{snap: &domain.Snapshot{
		Events:     []domain.Event{{ID: "stale"}},
		CapturedAt: time.Now().Add(-5 * time.Minute),
	}}
	svc := newTestService(fetcher, cache)

	events, tier, err := svc.Events(context.Background(), 0)
	require.NoError(t, err)

	// The stale copy is served immediately.
	assert.Equal(t, "stale", events[0].ID)
	assert.Equal(t, domain.FreshnessStale, tier)

	// The background refresh eventually replaces it.
	require.Eventually(t, func() bool {
		snap, err := cache.Get(context.Background())
		return err == nil && len(snap.Events) == 1 && snap.Events[0].ID == "new"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestEventsExpiredSnapshotServedWhenRefreshFails(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	cache := &fakeCache{snap: &domain.Snapshot{
		Events:     []domain.Event{{ID: "old"}},
		CapturedAt: time.Now().Add(-time.Hour),
	}}
	svc := newTestService(fetcher, cache)

	events, tier, err := svc.Events(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, "old", events[0].ID)
	assert.Equal(t, domain.FreshnessExpired, tier)
}

func TestEventsMissAndFailingFetchErrors(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	svc := newTestService(fetcher, &fakeCache{})

	_, _, err := svc.Events(context.Background(), 0)
	assert.Error(t, err)
}

func TestTriggerRefreshCoalesces(t *testing.T) {
	fetcher := &fakeFetcher{events: []domain.Event{{ID: "1"}}}
	svc := newTestService(fetcher, &fakeCache{})

	require.NoError(t, svc.TriggerRefresh(0))

	// Until the first one finishes, further triggers are rejected; at
	// least one of these quick retries should see it still running.
	err := svc.TriggerRefresh(0)
	if err != nil {
		assert.ErrorIs(t, err, domain.ErrRefreshInFlight)
	}

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, time.Second, 5*time.Millisecond)
}

func TestCategoriesDistinctSorted(t *testing.T) {
	cache := &fakeCache{snap: &domain.Snapshot{
		Events: []domain.Event{
			{ID: "1", Category: "Crypto", Tags: []string{"Crypto", "Bitcoin"}},
			{ID: "2", Category: "politics", Tags: []string{"politics"}},
			{ID: "3", Category: "Crypto"},
		},
		CapturedAt: time.Now(),
	}}
	svc := newTestService(&fakeFetcher{}, cache)

	cats, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bitcoin", "Crypto", "politics"}, cats)
}

func TestInvalidateDropsSnapshot(t *testing.T) {
	cache := &fakeCache{snap: &domain.Snapshot{
		Events:     []domain.Event{{ID: "1"}},
		CapturedAt: time.Now(),
	}}
	svc := newTestService(&fakeFetcher{events: []domain.Event{{ID: "2"}}}, cache)

	require.NoError(t, svc.Invalidate(context.Background()))

	_, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefreshRecordsRunAndAnnounces(t *testing.T) {
	fetcher := &fakeFetcher{events: []domain.Event{{ID: "1"}}}
	runs := &fakeRunStore{}
	bus := &fakeBus{}
	svc := newTestService(fetcher, &fakeCache{}).WithRunStore(runs).WithSignalBus(bus)

	_, stats, err := svc.Refresh(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Events)

	require.Len(t, runs.recorded, 1)
	assert.NotEmpty(t, runs.recorded[0].ID)
	assert.Empty(t, runs.recorded[0].Err)

	require.Len(t, bus.published, 1)
	assert.Equal(t, RefreshedChannel, bus.published[0])
}

type fakeRunStore struct {
	mu       sync.Mutex
	recorded []domain.FetchRun
}

func (f *fakeRunStore) RecordRun(ctx context.Context, run *domain.FetchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, *run)
	return nil
}

func (f *fakeRunStore) RecentRuns(ctx context.Context, limit int) ([]domain.FetchRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recorded, nil
}

type fakeBus struct {
	mu        sync.Mutex
	published []string
}

func (f *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, channel)
	return nil
}

func (f *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}
