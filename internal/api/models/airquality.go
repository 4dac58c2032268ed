package models

import (
	"github.com/greenroute/greenroute/internal/airquality"
)

// ReadingInput is one sensor reading supplied inline with an interpolation
// request.
type ReadingInput struct {
	Location   Point     `json:"location"`
	AQI        float64   `json:"aqi" validate:"gte=0"`
	MeasuredAt Timestamp `json:"measuredAt"`
}

// Reading converts the wire form to the engine's reading type.
func (in ReadingInput) Reading() airquality.Reading {
	return airquality.Reading{
		Location:   in.Location.Coordinate(),
		AQI:        in.AQI,
		MeasuredAt: in.MeasuredAt.Time(),
	}
}

// Interpolation methods accepted by POST /v1/airquality:interpolate.
const (
	InterpolationIDW      = "idw"
	InterpolationLinear   = "linear"
	InterpolationTemporal = "temporal"
)

// InterpolateRequest is the body of POST /v1/airquality:interpolate.
//
//   - idw: estimate at Point from any number of readings.
//   - linear: estimate at Point from exactly two readings.
//   - temporal: estimate at At from exactly two readings of one sensor.
type InterpolateRequest struct {
	Method   string         `json:"method" validate:"oneof=idw linear temporal"`
	Point    *Point         `json:"point,omitempty"`
	At       *Timestamp     `json:"at,omitempty"`
	Readings []ReadingInput `json:"readings" validate:"dive"`
}

// InterpolateResponse is an estimated AQI value.
type InterpolateResponse struct {
	Method string  `json:"method"`
	AQI    float64 `json:"aqi"`
}

// ReadingOutput is a sensor reading as returned by the API.
type ReadingOutput struct {
	Location   Point     `json:"location"`
	AQI        float64   `json:"aqi"`
	MeasuredAt Timestamp `json:"measuredAt"`
}

// SensorsResponse is the body of GET /v1/airquality/sensors.
type SensorsResponse struct {
	Provider  string          `json:"provider"`
	FetchedAt Timestamp       `json:"fetchedAt"`
	Center    Point           `json:"center"`
	RadiusKm  float64         `json:"radiusKm"`
	Readings  []ReadingOutput `json:"readings"`
}
