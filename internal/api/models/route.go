package models

// CandidateInput is one route option submitted for scoring. Geometry is
// given either as an encoded polyline or as explicit waypoints; when both
// are present the polyline wins.
type CandidateInput struct {
	ID              string   `json:"id" validate:"required"`
	Polyline        string   `json:"polyline,omitempty"`
	Waypoints       []Point  `json:"waypoints,omitempty" validate:"dive"`
	DistanceKm      float64  `json:"distanceKm" validate:"gt=0"`
	BaselineMinutes float64  `json:"baselineMinutes" validate:"gt=0"`
	Tag             string   `json:"tag,omitempty"`
	SignalIDs       []string `json:"signalIds,omitempty"`
}

// WeightsInput is an explicit preference weight vector.
type WeightsInput struct {
	Time       float64 `json:"time" validate:"gte=0"`
	AirQuality float64 `json:"airQuality" validate:"gte=0"`
	Safety     float64 `json:"safety" validate:"gte=0"`
}

// SensorAreaInput overrides the area sensor readings are fetched for.
// When omitted the area is derived from the candidates' geometry.
type SensorAreaInput struct {
	Center   Point   `json:"center"`
	RadiusKm float64 `json:"radiusKm" validate:"gt=0"`
}

// ScoreRoutesRequest is the body of POST /v1/routes:score.
type ScoreRoutesRequest struct {
	Candidates []CandidateInput `json:"candidates" validate:"required,min=1,dive"`

	// Preset names a weight profile: fastest, cleanest, safest or balanced.
	// Ignored when Weights is set. Defaults to balanced.
	Preset  string        `json:"preset,omitempty"`
	Weights *WeightsInput `json:"weights,omitempty"`

	// DepartAt anchors the signal delay simulation. Defaults to now.
	DepartAt *Timestamp `json:"departAt,omitempty"`

	SensorArea *SensorAreaInput `json:"sensorArea,omitempty"`
}

// ScoredRouteOutput is one ranked route in the scoring response.
type ScoredRouteOutput struct {
	ID              string  `json:"id"`
	Tag             string  `json:"tag,omitempty"`
	Rank            int     `json:"rank"`
	CompositeScore  float64 `json:"compositeScore"`
	DistanceKm      float64 `json:"distanceKm"`
	BaselineMinutes float64 `json:"baselineMinutes"`

	// AverageAQI is omitted when scoring degraded to no air quality data.
	AverageAQI *float64 `json:"averageAqi,omitempty"`

	SignalDelaySeconds float64 `json:"signalDelaySeconds"`
	GreensCaught       int     `json:"greensCaught"`
	SignalsTotal       int     `json:"signalsTotal"`
}

// ScoreRoutesResponse is the body of a successful scoring call.
type ScoreRoutesResponse struct {
	GeneratedAt Timestamp           `json:"generatedAt"`
	Weights     WeightsInput        `json:"weights"`
	AQIUsed     bool                `json:"aqiUsed"`
	Routes      []ScoredRouteOutput `json:"routes"`
}
