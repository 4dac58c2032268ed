package airquality

import (
	"math"
	"time"

	"github.com/greenroute/greenroute/internal/geo"
)

// coincidentKm is the distance below which a query point is treated as
// coinciding with a sensor. Avoids division by zero in the inverse-distance
// weights and guarantees exactness at sensor locations.
const coincidentKm = 1e-9

// InterpolatorConfig holds configuration for the interpolation algorithms.
type InterpolatorConfig struct {
	// Power is the exponent for inverse distance weighting.
	// Higher values give more weight to closer sensors. Default: 2.0.
	Power float64
}

// DefaultInterpolatorConfig returns the default configuration.
func DefaultInterpolatorConfig() InterpolatorConfig {
	return InterpolatorConfig{Power: 2.0}
}

// Interpolator estimates AQI values at arbitrary points from sparse sensor
// readings. All methods are pure; the same inputs always yield the same
// output.
type Interpolator struct {
	config InterpolatorConfig
}

// NewInterpolator creates an Interpolator with the given configuration.
func NewInterpolator(config InterpolatorConfig) *Interpolator {
	if config.Power <= 0 {
		config.Power = DefaultInterpolatorConfig().Power
	}
	return &Interpolator{config: config}
}

// EstimateIDW estimates the AQI at point using inverse distance weighting
// over the given readings: weight_i = 1/distance_i^p, result the weighted
// average. A reading coinciding with the point short-circuits to that
// reading's exact value. The caller is responsible for pre-filtering
// readings to "nearby"; the interpolator does not search a spatial index.
//
// Returns ErrInsufficientData when readings is empty. A single reading is
// returned unchanged.
func (i *Interpolator) EstimateIDW(point geo.Coordinate, readings []Reading) (float64, error) {
	if len(readings) == 0 {
		return 0, ErrInsufficientData
	}
	if len(readings) == 1 {
		return readings[0].AQI, nil
	}

	var weightedSum, weightSum float64
	for _, r := range readings {
		dist := point.DistanceKm(r.Location)
		if dist < coincidentKm {
			return r.AQI, nil
		}

		weight := 1.0 / math.Pow(dist, i.config.Power)
		weightedSum += r.AQI * weight
		weightSum += weight
	}

	return weightedSum / weightSum, nil
}

// EstimateLinear interpolates between exactly two readings bracketing the
// point along a line. The point is projected onto the a-b axis by its
// distance ratio; used when only two sensors are available along a corridor.
func (i *Interpolator) EstimateLinear(point geo.Coordinate, a, b Reading) (float64, error) {
	distA := point.DistanceKm(a.Location)
	distB := point.DistanceKm(b.Location)

	if distA < coincidentKm {
		return a.AQI, nil
	}
	if distB < coincidentKm {
		return b.AQI, nil
	}

	total := distA + distB
	if total < coincidentKm {
		return a.AQI, nil
	}

	t := distA / total
	return a.AQI + (b.AQI-a.AQI)*t, nil
}

// EstimateTemporal fills a gap in a single sensor's time series by applying
// the same inverse-distance weighting over the time axis: readings closer
// in time to at contribute more. An exact timestamp match returns that
// reading's value.
func (i *Interpolator) EstimateTemporal(at time.Time, a, b Reading) (float64, error) {
	deltaA := math.Abs(at.Sub(a.MeasuredAt).Seconds())
	deltaB := math.Abs(at.Sub(b.MeasuredAt).Seconds())

	if deltaA == 0 {
		return a.AQI, nil
	}
	if deltaB == 0 {
		return b.AQI, nil
	}

	weightA := 1.0 / math.Pow(deltaA, i.config.Power)
	weightB := 1.0 / math.Pow(deltaB, i.config.Power)

	return (a.AQI*weightA + b.AQI*weightB) / (weightA + weightB), nil
}

// EstimateAlongRoute estimates the AQI at every waypoint of a route.
// This is the sampling primitive route scoring is built on.
func (i *Interpolator) EstimateAlongRoute(waypoints []geo.Coordinate, readings []Reading) ([]float64, error) {
	if len(readings) == 0 {
		return nil, ErrInsufficientData
	}

	values := make([]float64, 0, len(waypoints))
	for _, wp := range waypoints {
		v, err := i.EstimateIDW(wp, readings)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
