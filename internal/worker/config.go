// Package worker provides background refresh of sensor snapshots so that
// scoring requests rarely pay the provider round trip.
package worker

import (
	"sort"
	"time"

	"github.com/greenroute/greenroute/internal/geo"
)

// RefreshTarget is a geographic area whose sensor snapshot is kept warm.
type RefreshTarget struct {
	// Name is the human-readable name of the area.
	Name string

	// Center is the query point for the area's sensor fetch.
	Center geo.Coordinate

	// RadiusKm bounds the sensor search around Center.
	RadiusKm float64

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the snapshot refresh job.
type RefreshConfig struct {
	// Targets are the areas to refresh. If empty, uses
	// DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     DefaultRefreshTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultRefreshTargets returns the default refresh targets for the Delhi
// NCR commuter area.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "Connaught Place",
			Center:   geo.Coordinate{Lat: 28.6315, Lon: 77.2167},
			RadiusKm: 10,
			Priority: 1,
		},
		{
			Name:     "ITO",
			Center:   geo.Coordinate{Lat: 28.6280, Lon: 77.2410},
			RadiusKm: 10,
			Priority: 1,
		},
		{
			Name:     "Gurugram Cyber City",
			Center:   geo.Coordinate{Lat: 28.4950, Lon: 77.0890},
			RadiusKm: 10,
			Priority: 1,
		},
		{
			Name:     "Noida Sector 18",
			Center:   geo.Coordinate{Lat: 28.5700, Lon: 77.3210},
			RadiusKm: 10,
			Priority: 2,
		},
		{
			Name:     "Dwarka",
			Center:   geo.Coordinate{Lat: 28.5921, Lon: 77.0460},
			RadiusKm: 10,
			Priority: 2,
		},
		{
			Name:     "Anand Vihar",
			Center:   geo.Coordinate{Lat: 28.6469, Lon: 77.3160},
			RadiusKm: 10,
			Priority: 2,
		},
		{
			Name:     "Faridabad",
			Center:   geo.Coordinate{Lat: 28.4089, Lon: 77.3178},
			RadiusKm: 10,
			Priority: 3,
		},
		{
			Name:     "Ghaziabad",
			Center:   geo.Coordinate{Lat: 28.6692, Lon: 77.4538},
			RadiusKm: 10,
			Priority: 3,
		},
	}
}

// OrderedTargets returns the targets sorted by priority, then name.
func (c RefreshConfig) OrderedTargets() []RefreshTarget {
	targets := make([]RefreshTarget, len(c.Targets))
	copy(targets, c.Targets)
	sort.Slice(targets, func(a, b int) bool {
		if targets[a].Priority != targets[b].Priority {
			return targets[a].Priority < targets[b].Priority
		}
		return targets[a].Name < targets[b].Name
	})
	return targets
}
