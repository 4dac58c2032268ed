// Package models provides request and response models for the route
// decision engine API.
package models

import (
	"time"

	"github.com/greenroute/greenroute/internal/geo"
)

// Point is a geographic coordinate as it appears on the wire.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Coordinate converts the wire point to the engine's coordinate type.
func (p Point) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
}

// NewPoint converts an engine coordinate to its wire form.
func NewPoint(c geo.Coordinate) Point {
	return Point{Lat: c.Lat, Lon: c.Lon}
}

// HealthStatus is the health state of the service or one of its parts.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp wraps time.Time with RFC3339 JSON formatting.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}
