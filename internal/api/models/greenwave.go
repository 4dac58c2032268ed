package models

import (
	"github.com/greenroute/greenroute/internal/greenwave"
)

// OffsetRequest is the body of POST /v1/greenwave:offset.
type OffsetRequest struct {
	FromSignalID string  `json:"fromSignalId" validate:"required"`
	ToSignalID   string  `json:"toSignalId" validate:"required"`
	SpeedKmh     float64 `json:"speedKmh" validate:"gt=0"`
}

// OffsetResponse carries the pairwise green-wave offset.
type OffsetResponse struct {
	FromSignalID  string  `json:"fromSignalId"`
	ToSignalID    string  `json:"toSignalId"`
	SpeedKmh      float64 `json:"speedKmh"`
	DistanceKm    float64 `json:"distanceKm"`
	OffsetSeconds float64 `json:"offsetSeconds"`
}

// CorridorRequest is the body of POST /v1/greenwave:corridor.
type CorridorRequest struct {
	SignalIDs []string `json:"signalIds" validate:"required,min=1"`
	SpeedKmh  float64  `json:"speedKmh" validate:"gt=0"`
}

// CorridorResponse is the optimized corridor timing plan.
type CorridorResponse struct {
	SignalIDs       []string           `json:"signalIds"`
	OffsetsSeconds  []float64          `json:"offsetsSeconds"`
	AdjustedSpecs   []SignalSpecOutput `json:"adjustedSpecs"`
	TotalDistanceKm float64            `json:"totalDistanceKm"`
	TravelSeconds   float64            `json:"travelSeconds"`
	SpeedKmh        float64            `json:"speedKmh"`
}

// NewCorridorResponse converts an engine corridor timing to its wire form.
func NewCorridorResponse(timing greenwave.CorridorTiming) CorridorResponse {
	specs := make([]SignalSpecOutput, len(timing.AdjustedSpecs))
	for i, s := range timing.AdjustedSpecs {
		specs[i] = NewSignalSpecOutput(s)
	}
	return CorridorResponse{
		SignalIDs:       timing.SignalIDs,
		OffsetsSeconds:  timing.OffsetsSeconds,
		AdjustedSpecs:   specs,
		TotalDistanceKm: timing.TotalDistanceKm,
		TravelSeconds:   timing.TravelSeconds,
		SpeedKmh:        timing.SpeedKmh,
	}
}

// ProgressionRequest is the body of POST /v1/greenwave:progression.
type ProgressionRequest struct {
	SignalIDs []string  `json:"signalIds" validate:"required,min=1"`
	StartAt   Timestamp `json:"startAt"`
	SpeedKmh  float64   `json:"speedKmh" validate:"gt=0"`
}

// EncounterOutput is one signal encounter in a simulated run.
type EncounterOutput struct {
	SignalID             string    `json:"signalId"`
	ArrivalAt            Timestamp `json:"arrivalAt"`
	CumulativeDistanceKm float64   `json:"cumulativeDistanceKm"`
	Phase                string    `json:"phase"`
	SecondsRemaining     float64   `json:"secondsRemaining"`
	CaughtGreen          bool      `json:"caughtGreen"`
	WaitSeconds          float64   `json:"waitSeconds"`
}

// ProgressionResponse summarizes a simulated corridor run.
type ProgressionResponse struct {
	Encounters       []EncounterOutput `json:"encounters"`
	GreensCaught     int               `json:"greensCaught"`
	Stops            int               `json:"stops"`
	TotalWaitSeconds float64           `json:"totalWaitSeconds"`
	TravelSeconds    float64           `json:"travelSeconds"`
	SpeedKmh         float64           `json:"speedKmh"`
	EfficiencyPct    float64           `json:"efficiencyPct"`
}

// NewProgressionResponse converts an engine report to its wire form.
func NewProgressionResponse(report greenwave.ProgressionReport) ProgressionResponse {
	encounters := make([]EncounterOutput, len(report.Encounters))
	for i, e := range report.Encounters {
		encounters[i] = EncounterOutput{
			SignalID:             e.SignalID,
			ArrivalAt:            Timestamp(e.ArrivalAt),
			CumulativeDistanceKm: e.CumulativeDistanceKm,
			Phase:                string(e.Prediction.Phase),
			SecondsRemaining:     e.Prediction.SecondsRemaining,
			CaughtGreen:          e.CaughtGreen,
			WaitSeconds:          e.WaitSeconds,
		}
	}
	return ProgressionResponse{
		Encounters:       encounters,
		GreensCaught:     report.GreensCaught,
		Stops:            report.Stops,
		TotalWaitSeconds: report.TotalWaitSeconds,
		TravelSeconds:    report.TravelSeconds,
		SpeedKmh:         report.SpeedKmh,
		EfficiencyPct:    report.EfficiencyPct,
	}
}

// BandwidthRequest is the body of POST /v1/greenwave:bandwidth.
type BandwidthRequest struct {
	SignalIDs   []string  `json:"signalIds" validate:"required,min=1"`
	StartAt     Timestamp `json:"startAt"`
	MinSpeedKmh float64   `json:"minSpeedKmh" validate:"gt=0"`
	MaxSpeedKmh float64   `json:"maxSpeedKmh" validate:"gt=0"`
	StepKmh     float64   `json:"stepKmh" validate:"gt=0"`
}

// SpeedOptionOutput is one simulated candidate speed.
type SpeedOptionOutput struct {
	SpeedKmh         float64 `json:"speedKmh"`
	Stops            int     `json:"stops"`
	GreensCaught     int     `json:"greensCaught"`
	TotalWaitSeconds float64 `json:"totalWaitSeconds"`
}

// BandwidthResponse compares candidate corridor speeds.
type BandwidthResponse struct {
	Options []SpeedOptionOutput `json:"options"`
	Best    SpeedOptionOutput   `json:"best"`
}

// NewBandwidthResponse converts an engine report to its wire form.
func NewBandwidthResponse(report greenwave.BandwidthReport) BandwidthResponse {
	options := make([]SpeedOptionOutput, len(report.Options))
	for i, o := range report.Options {
		options[i] = SpeedOptionOutput{
			SpeedKmh:         o.SpeedKmh,
			Stops:            o.Stops,
			GreensCaught:     o.GreensCaught,
			TotalWaitSeconds: o.TotalWaitSeconds,
		}
	}
	return BandwidthResponse{
		Options: options,
		Best: SpeedOptionOutput{
			SpeedKmh:         report.Best.SpeedKmh,
			Stops:            report.Best.Stops,
			GreensCaught:     report.Best.GreensCaught,
			TotalWaitSeconds: report.Best.TotalWaitSeconds,
		},
	}
}
