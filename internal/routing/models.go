// Package routing scores candidate routes against a weighted blend of
// travel time, exposure to poor air quality, and expected signal delay.
package routing

import (
	"errors"
	"fmt"

	"github.com/greenroute/greenroute/internal/geo"
)

// Scoring errors.
var (
	// ErrNoCandidates indicates a scoring request with no routes.
	ErrNoCandidates = errors.New("no candidate routes")

	// ErrInvalidCandidate indicates a malformed candidate route.
	ErrInvalidCandidate = errors.New("invalid candidate route")

	// ErrInvalidWeights indicates negative or all-zero preference weights.
	ErrInvalidWeights = errors.New("invalid preference weights")

	// ErrMissingSensorData indicates air quality could be estimated for some
	// candidates but not all of them, which would skew the comparison.
	ErrMissingSensorData = errors.New("sensor data missing for candidate")
)

// Candidate is a route option to be scored.
type Candidate struct {
	ID string

	// Waypoints traces the route geometry, at least origin and destination.
	Waypoints []geo.Coordinate

	DistanceKm      float64
	BaselineMinutes float64

	// Tag is a free-form label such as "fastest" or "cleanest". It is
	// carried through to results and never influences scoring.
	Tag string
}

// Validate checks the candidate's shape.
func (c Candidate) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCandidate)
	}
	if len(c.Waypoints) < 2 {
		return fmt.Errorf("%w %s: needs at least 2 waypoints, got %d", ErrInvalidCandidate, c.ID, len(c.Waypoints))
	}
	for i, wp := range c.Waypoints {
		if err := wp.Validate(); err != nil {
			return fmt.Errorf("%w %s: waypoint %d: %v", ErrInvalidCandidate, c.ID, i, err)
		}
	}
	if c.DistanceKm <= 0 {
		return fmt.Errorf("%w %s: distance must be positive", ErrInvalidCandidate, c.ID)
	}
	if c.BaselineMinutes <= 0 {
		return fmt.Errorf("%w %s: baseline time must be positive", ErrInvalidCandidate, c.ID)
	}
	return nil
}

// AverageSpeedKmh returns the implied constant speed over the baseline time.
func (c Candidate) AverageSpeedKmh() float64 {
	return c.DistanceKm / (c.BaselineMinutes / 60)
}

// PreferenceWeights expresses the relative importance of each scoring
// objective. Weights need not sum to one; Normalized rescales them.
type PreferenceWeights struct {
	Time       float64 `json:"time"`
	AirQuality float64 `json:"air_quality"`
	Safety     float64 `json:"safety"`
}

// Preset weight profiles.
var presets = map[string]PreferenceWeights{
	"fastest":  {Time: 0.8, AirQuality: 0.1, Safety: 0.1},
	"cleanest": {Time: 0.2, AirQuality: 0.7, Safety: 0.1},
	"safest":   {Time: 0.2, AirQuality: 0.3, Safety: 0.5},
	"balanced": {Time: 0.4, AirQuality: 0.4, Safety: 0.2},
}

// Preset returns a named weight profile.
func Preset(name string) (PreferenceWeights, bool) {
	w, ok := presets[name]
	return w, ok
}

// DefaultWeights is the balanced profile.
func DefaultWeights() PreferenceWeights {
	return presets["balanced"]
}

// Validate rejects negative weights and the degenerate all-zero vector.
// All-zero weights express no preference at all, so there is nothing
// meaningful to optimize and the request is refused rather than guessed at.
func (w PreferenceWeights) Validate() error {
	if w.Time < 0 || w.AirQuality < 0 || w.Safety < 0 {
		return fmt.Errorf("%w: weights must be non-negative", ErrInvalidWeights)
	}
	if w.Time == 0 && w.AirQuality == 0 && w.Safety == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return nil
}

// Normalized returns the weights rescaled to sum to one.
func (w PreferenceWeights) Normalized() (PreferenceWeights, error) {
	if err := w.Validate(); err != nil {
		return PreferenceWeights{}, err
	}
	total := w.Time + w.AirQuality + w.Safety
	return PreferenceWeights{
		Time:       w.Time / total,
		AirQuality: w.AirQuality / total,
		Safety:     w.Safety / total,
	}, nil
}
