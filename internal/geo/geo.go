// Package geo provides the geographic primitives shared by the route
// decision engine. All distance computations in the engine go through the
// haversine implementation here.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange indicates a coordinate outside valid latitude/longitude bounds.
var ErrOutOfRange = errors.New("coordinate out of range")

const earthRadiusKm = 6371.0

// Coordinate represents a WGS84 geographic point in degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// NewCoordinate creates a validated Coordinate.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	c := Coordinate{Lat: lat, Lon: lon}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate checks that the coordinate is within valid bounds.
func (c Coordinate) Validate() error {
	if c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("latitude %f outside [-90, 90]: %w", c.Lat, ErrOutOfRange)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("longitude %f outside [-180, 180]: %w", c.Lon, ErrOutOfRange)
	}
	return nil
}

// DistanceKm returns the great-circle distance to other in kilometers
// using the haversine formula.
func (c Coordinate) DistanceKm(other Coordinate) float64 {
	lat1 := c.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	deltaLat := (other.Lat - c.Lat) * math.Pi / 180
	deltaLon := (other.Lon - c.Lon) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	cc := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * cc
}

// DistanceMeters returns the great-circle distance to other in meters.
func (c Coordinate) DistanceMeters(other Coordinate) float64 {
	return c.DistanceKm(other) * 1000
}

// Midpoint returns the point halfway between c and other. Sufficient for
// the sub-degree spans the engine works with; not a geodesic midpoint.
func (c Coordinate) Midpoint(other Coordinate) Coordinate {
	return Coordinate{
		Lat: (c.Lat + other.Lat) / 2,
		Lon: (c.Lon + other.Lon) / 2,
	}
}

// PathLengthKm returns the cumulative haversine length of an ordered
// sequence of waypoints.
func PathLengthKm(waypoints []Coordinate) float64 {
	var total float64
	for i := 1; i < len(waypoints); i++ {
		total += waypoints[i-1].DistanceKm(waypoints[i])
	}
	return total
}
