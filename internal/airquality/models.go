// Package airquality provides sensor reading types and spatial interpolation
// of sparse air-quality measurements onto arbitrary route points.
package airquality

import (
	"errors"
	"sort"
	"time"

	"github.com/greenroute/greenroute/internal/geo"
)

// Interpolation errors.
var (
	// ErrInsufficientData indicates there are no sensor readings to
	// interpolate from. The interpolator never fabricates a default.
	ErrInsufficientData = errors.New("insufficient sensor data for interpolation")

	// ErrInvalidReading indicates a reading with a negative AQI value.
	ErrInvalidReading = errors.New("invalid sensor reading")
)

// Reading is a single AQI measurement at a known location.
// AQI is a dimensionless index, nominally 0-500 but unbounded upward.
type Reading struct {
	Location   geo.Coordinate
	AQI        float64
	MeasuredAt time.Time
}

// Validate checks the reading's coordinate bounds and value sign.
func (r Reading) Validate() error {
	if err := r.Location.Validate(); err != nil {
		return err
	}
	if r.AQI < 0 {
		return ErrInvalidReading
	}
	return nil
}

// Snapshot is a point-in-time set of sensor readings keyed by reading id.
// It is read-only during a scoring call; staleness is signalled through
// each reading's MeasuredAt, never guessed at by the engine.
type Snapshot struct {
	Readings  map[string]Reading
	FetchedAt time.Time
	Provider  string
}

// NewSnapshot creates an empty snapshot for the given provider.
func NewSnapshot(provider string) *Snapshot {
	return &Snapshot{
		Readings:  make(map[string]Reading),
		FetchedAt: time.Now(),
		Provider:  provider,
	}
}

// Set adds or replaces a reading.
func (s *Snapshot) Set(id string, r Reading) {
	s.Readings[id] = r
}

// List returns the readings ordered by id. The fixed order keeps
// floating-point accumulation, and therefore scoring output, deterministic
// for a given snapshot.
func (s *Snapshot) List() []Reading {
	ids := make([]string, 0, len(s.Readings))
	for id := range s.Readings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	readings := make([]Reading, 0, len(ids))
	for _, id := range ids {
		readings = append(readings, s.Readings[id])
	}
	return readings
}

// Len returns the number of readings in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Readings)
}
