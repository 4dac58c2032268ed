// Package snapshot provides cached access to sensor snapshots from an
// upstream air quality provider.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/geo"
)

// ErrProviderUnavailable indicates the provider failed and no stale data
// was available to fall back on.
var ErrProviderUnavailable = errors.New("sensor data provider unavailable")

// Provider fetches sensor readings around a point.
type Provider interface {
	// Name identifies the provider.
	Name() string

	// Sensors returns the latest readings within radiusKm of center.
	Sensors(ctx context.Context, center geo.Coordinate, radiusKm float64) (*airquality.Snapshot, error)
}

// ServiceConfig holds configuration for the snapshot service.
type ServiceConfig struct {
	// Provider is the sensor data source.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long a fetched snapshot stays fresh (default: 5 minutes).
	CacheTTL time.Duration

	// StaleIfErrorTTL allows serving stale data on provider errors
	// (default: 30 minutes).
	StaleIfErrorTTL time.Duration

	// GridPrecision quantizes cache keys in degrees, so nearby query points
	// share a cache entry (default: 0.05, roughly 5km).
	GridPrecision float64
}

// Service serves sensor snapshots with a read-through cache keyed by a
// quantized query area. On provider failure it serves the previous snapshot
// for the area until StaleIfErrorTTL expires.
type Service struct {
	provider        Provider
	logger          zerolog.Logger
	cacheTTL        time.Duration
	staleIfErrorTTL time.Duration
	gridPrecision   float64

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	snapshot *airquality.Snapshot
	expiry   time.Time
}

// NewService creates a snapshot service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.StaleIfErrorTTL == 0 {
		cfg.StaleIfErrorTTL = 30 * time.Minute
	}
	if cfg.GridPrecision == 0 {
		cfg.GridPrecision = 0.05
	}

	return &Service{
		provider:        cfg.Provider,
		logger:          cfg.Logger.With().Str("component", "snapshot_service").Logger(),
		cacheTTL:        cfg.CacheTTL,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		gridPrecision:   cfg.GridPrecision,
		cache:           make(map[string]*cacheEntry),
	}
}

// Get returns the sensor snapshot for the area around center, from cache
// when fresh.
func (s *Service) Get(ctx context.Context, center geo.Coordinate, radiusKm float64) (*airquality.Snapshot, error) {
	key := s.cacheKey(center, radiusKm)

	s.mu.RLock()
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiry) {
		snapshot := entry.snapshot
		s.mu.RUnlock()
		return snapshot, nil
	}
	s.mu.RUnlock()

	return s.refresh(ctx, key, center, radiusKm)
}

// Readings returns the area's readings in deterministic id order, ready to
// hand to the interpolator.
func (s *Service) Readings(ctx context.Context, center geo.Coordinate, radiusKm float64) ([]airquality.Reading, error) {
	snapshot, err := s.Get(ctx, center, radiusKm)
	if err != nil {
		return nil, err
	}
	return snapshot.List(), nil
}

// Refresh forces a provider fetch for the area, bypassing the fresh-cache
// check.
func (s *Service) Refresh(ctx context.Context, center geo.Coordinate, radiusKm float64) error {
	key := s.cacheKey(center, radiusKm)

	// Expire rather than delete so the stale-if-error fallback still has
	// data when the fetch fails.
	s.mu.Lock()
	if entry, ok := s.cache[key]; ok {
		entry.expiry = time.Time{}
	}
	s.mu.Unlock()

	_, err := s.refresh(ctx, key, center, radiusKm)
	return err
}

// InvalidateCache drops every cached snapshot.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]*cacheEntry)
}

// Stats describes the current cache state.
type Stats struct {
	Entries  int
	Provider string
}

// CacheStats returns the current cache state.
func (s *Service) CacheStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Entries:  len(s.cache),
		Provider: s.provider.Name(),
	}
}

func (s *Service) cacheKey(center geo.Coordinate, radiusKm float64) string {
	p := s.gridPrecision
	lat := float64(int(center.Lat/p)) * p
	lon := float64(int(center.Lon/p)) * p
	return fmt.Sprintf("%.4f:%.4f:%.1f", lat, lon, radiusKm)
}

func (s *Service) refresh(ctx context.Context, key string, center geo.Coordinate, radiusKm float64) (*airquality.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check: another goroutine might have refreshed while we waited.
	if entry, ok := s.cache[key]; ok && time.Now().Before(entry.expiry) {
		return entry.snapshot, nil
	}

	s.logger.Debug().Str("area", key).Msg("refreshing sensor snapshot")

	snapshot, err := s.provider.Sensors(ctx, center, radiusKm)
	if err != nil {
		s.logger.Error().Err(err).Str("area", key).Msg("failed to fetch sensor snapshot")

		if entry, ok := s.cache[key]; ok &&
			time.Now().Before(entry.snapshot.FetchedAt.Add(s.staleIfErrorTTL)) {
			s.logger.Warn().
				Str("area", key).
				Time("fetched_at", entry.snapshot.FetchedAt).
				Msg("serving stale sensor data due to provider error")
			return entry.snapshot, nil
		}

		return nil, ErrProviderUnavailable
	}

	s.cache[key] = &cacheEntry{
		snapshot: snapshot,
		expiry:   time.Now().Add(s.cacheTTL),
	}

	s.logger.Info().
		Str("area", key).
		Int("readings", snapshot.Len()).
		Msg("sensor snapshot refreshed")

	return snapshot, nil
}
