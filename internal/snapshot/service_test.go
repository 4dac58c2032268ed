package snapshot_test

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/snapshot"
)

// mockProvider returns configurable data and counts fetches.
type mockProvider struct {
	snapshot   *airquality.Snapshot
	err        error
	fetchCount atomic.Int32
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Sensors(_ context.Context, _ geo.Coordinate, _ float64) (*airquality.Snapshot, error) {
	m.fetchCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshot, nil
}

func testSnapshot() *airquality.Snapshot {
	snap := airquality.NewSnapshot("mock")
	snap.Set("S001", airquality.Reading{
		Location:   geo.Coordinate{Lat: 28.6304, Lon: 77.2177},
		AQI:        180,
		MeasuredAt: time.Now(),
	})
	snap.Set("S002", airquality.Reading{
		Location:   geo.Coordinate{Lat: 28.6280, Lon: 77.2410},
		AQI:        210,
		MeasuredAt: time.Now(),
	})
	return snap
}

var center = geo.Coordinate{Lat: 28.6304, Lon: 77.2177}

func TestService_Get_CachesByArea(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
		CacheTTL: 5 * time.Minute,
	})

	ctx := context.Background()

	snap, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, int32(1), provider.fetchCount.Load())

	// Same area hits the cache.
	again, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, snap, again)
	assert.Equal(t, int32(1), provider.fetchCount.Load())

	// A nearby point quantizes to the same grid cell.
	_, err = svc.Get(ctx, geo.Coordinate{Lat: center.Lat + 0.001, Lon: center.Lon}, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), provider.fetchCount.Load())

	// A different area misses.
	_, err = svc.Get(ctx, geo.Coordinate{Lat: 28.90, Lon: 77.50}, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}

func TestService_Get_ExpiredCacheRefetches(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
		CacheTTL: time.Nanosecond,
	})

	ctx := context.Background()

	_, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}

func TestService_Get_ServesStaleOnProviderError(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider:        provider,
		Logger:          zerolog.New(io.Discard),
		CacheTTL:        time.Nanosecond,
		StaleIfErrorTTL: time.Hour,
	})

	ctx := context.Background()

	snap, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	provider.err = errors.New("upstream down")

	stale, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, snap, stale)
}

func TestService_Get_FailsWithoutStaleData(t *testing.T) {
	provider := &mockProvider{err: errors.New("upstream down")}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
	})

	_, err := svc.Get(context.Background(), center, 10)
	assert.ErrorIs(t, err, snapshot.ErrProviderUnavailable)
}

func TestService_Readings_Deterministic(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
	})

	readings, err := svc.Readings(context.Background(), center, 10)
	require.NoError(t, err)
	require.Len(t, readings, 2)

	// Ordered by reading id.
	assert.Equal(t, 180.0, readings[0].AQI)
	assert.Equal(t, 210.0, readings[1].AQI)
}

func TestService_Refresh_BypassesFreshCache(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
		CacheTTL: time.Hour,
	})

	ctx := context.Background()

	_, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)

	require.NoError(t, svc.Refresh(ctx, center, 10))
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}

func TestService_InvalidateCache(t *testing.T) {
	provider := &mockProvider{snapshot: testSnapshot()}
	svc := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   zerolog.New(io.Discard),
		CacheTTL: time.Hour,
	})

	ctx := context.Background()

	_, err := svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CacheStats().Entries)

	svc.InvalidateCache()
	assert.Equal(t, 0, svc.CacheStats().Entries)

	_, err = svc.Get(ctx, center, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(2), provider.fetchCount.Load())
}
