package models

import (
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// SignalSpecInput describes a traffic signal cycle on the wire.
type SignalSpecInput struct {
	ID            string    `json:"id" validate:"required"`
	Location      Point     `json:"location"`
	RedSeconds    float64   `json:"redSeconds" validate:"gt=0"`
	GreenSeconds  float64   `json:"greenSeconds" validate:"gt=0"`
	YellowSeconds float64   `json:"yellowSeconds" validate:"gt=0"`
	AnchorPhase   string    `json:"anchorPhase" validate:"oneof=RED GREEN YELLOW"`
	AnchorAt      Timestamp `json:"anchorAt"`
}

// Spec converts the wire form to the engine's signal spec.
func (in SignalSpecInput) Spec() trafficsignal.Spec {
	return trafficsignal.Spec{
		ID:            in.ID,
		Location:      in.Location.Coordinate(),
		RedSeconds:    in.RedSeconds,
		GreenSeconds:  in.GreenSeconds,
		YellowSeconds: in.YellowSeconds,
		AnchorPhase:   trafficsignal.Phase(in.AnchorPhase),
		AnchorAt:      in.AnchorAt.Time(),
	}
}

// SignalSpecOutput is a registered signal as returned by the API.
type SignalSpecOutput struct {
	ID            string    `json:"id"`
	Location      Point     `json:"location"`
	RedSeconds    float64   `json:"redSeconds"`
	GreenSeconds  float64   `json:"greenSeconds"`
	YellowSeconds float64   `json:"yellowSeconds"`
	CycleSeconds  float64   `json:"cycleSeconds"`
	AnchorPhase   string    `json:"anchorPhase"`
	AnchorAt      Timestamp `json:"anchorAt"`
}

// NewSignalSpecOutput converts an engine spec to its wire form.
func NewSignalSpecOutput(spec trafficsignal.Spec) SignalSpecOutput {
	return SignalSpecOutput{
		ID:            spec.ID,
		Location:      NewPoint(spec.Location),
		RedSeconds:    spec.RedSeconds,
		GreenSeconds:  spec.GreenSeconds,
		YellowSeconds: spec.YellowSeconds,
		CycleSeconds:  spec.CycleSeconds(),
		AnchorPhase:   string(spec.AnchorPhase),
		AnchorAt:      Timestamp(spec.AnchorAt),
	}
}

// PredictRequest is the body of POST /v1/signals:predict.
type PredictRequest struct {
	SignalID string `json:"signalId" validate:"required"`

	// At is the prediction instant. Defaults to now.
	At *Timestamp `json:"at,omitempty"`

	// TravelSeconds shifts the prediction to an estimated arrival instant.
	TravelSeconds *float64 `json:"travelSeconds,omitempty" validate:"omitempty,gte=0"`

	// DistanceMeters requests an approach speed recommendation.
	DistanceMeters *float64 `json:"distanceMeters,omitempty" validate:"omitempty,gt=0"`
}

// PredictionOutput is a derived signal state.
type PredictionOutput struct {
	SignalID            string    `json:"signalId"`
	At                  Timestamp `json:"at"`
	Phase               string    `json:"phase"`
	SecondsRemaining    float64   `json:"secondsRemaining"`
	RecommendedSpeedKmh *float64  `json:"recommendedSpeedKmh,omitempty"`
}

// NewPredictionOutput converts an engine prediction to its wire form.
func NewPredictionOutput(pred trafficsignal.Prediction) PredictionOutput {
	out := PredictionOutput{
		SignalID:         pred.SignalID,
		At:               Timestamp(pred.At),
		Phase:            string(pred.Phase),
		SecondsRemaining: pred.SecondsRemaining,
	}
	if pred.RecommendedSpeedKmh > 0 {
		speed := pred.RecommendedSpeedKmh
		out.RecommendedSpeedKmh = &speed
	}
	return out
}

// SignalListResponse is the body of GET /v1/signals.
type SignalListResponse struct {
	Signals []SignalSpecOutput `json:"signals"`
}
