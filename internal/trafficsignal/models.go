// Package trafficsignal models fixed-cycle traffic signals and predicts
// their state at arbitrary instants. Signal state is never stored; it is
// always derived from the cycle's phase anchor, which keeps prediction
// deterministic and lets any caller re-derive countdowns at any timestamp.
package trafficsignal

import (
	"errors"
	"fmt"
	"time"

	"github.com/greenroute/greenroute/internal/geo"
)

// Signal errors.
var (
	// ErrInvalidSpec indicates a signal spec with a non-positive phase
	// duration or an unknown anchor phase.
	ErrInvalidSpec = errors.New("invalid signal spec")

	// ErrUnknownSignal indicates a signal id not present in the directory.
	ErrUnknownSignal = errors.New("unknown signal")
)

// Phase is a traffic signal phase.
type Phase string

const (
	PhaseRed    Phase = "RED"
	PhaseGreen  Phase = "GREEN"
	PhaseYellow Phase = "YELLOW"
)

// Next returns the phase following p in the cyclic order
// RED -> GREEN -> YELLOW -> RED.
func (p Phase) Next() Phase {
	switch p {
	case PhaseRed:
		return PhaseGreen
	case PhaseGreen:
		return PhaseYellow
	default:
		return PhaseRed
	}
}

// valid reports whether p is one of the three known phases.
func (p Phase) valid() bool {
	return p == PhaseRed || p == PhaseGreen || p == PhaseYellow
}

// Spec describes a signal's strictly periodic cycle: per-phase dwell times
// plus a phase anchor, the instant at which the cycle is known to have
// entered AnchorPhase.
type Spec struct {
	ID       string
	Location geo.Coordinate

	RedSeconds    float64
	GreenSeconds  float64
	YellowSeconds float64

	AnchorPhase Phase
	AnchorAt    time.Time
}

// NewSpec creates a validated signal spec. A zero or negative phase
// duration is a configuration error, rejected here rather than papered
// over downstream.
func NewSpec(id string, location geo.Coordinate, redSeconds, greenSeconds, yellowSeconds float64, anchorPhase Phase, anchorAt time.Time) (Spec, error) {
	s := Spec{
		ID:            id,
		Location:      location,
		RedSeconds:    redSeconds,
		GreenSeconds:  greenSeconds,
		YellowSeconds: yellowSeconds,
		AnchorPhase:   anchorPhase,
		AnchorAt:      anchorAt,
	}
	if err := s.Validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

// Validate checks phase durations, anchor phase, and coordinate bounds.
func (s Spec) Validate() error {
	if s.RedSeconds <= 0 || s.GreenSeconds <= 0 || s.YellowSeconds <= 0 {
		return fmt.Errorf("%w: phase durations must be positive (red=%.1f green=%.1f yellow=%.1f)",
			ErrInvalidSpec, s.RedSeconds, s.GreenSeconds, s.YellowSeconds)
	}
	if !s.AnchorPhase.valid() {
		return fmt.Errorf("%w: unknown anchor phase %q", ErrInvalidSpec, s.AnchorPhase)
	}
	return s.Location.Validate()
}

// CycleSeconds returns the full cycle length.
func (s Spec) CycleSeconds() float64 {
	return s.RedSeconds + s.GreenSeconds + s.YellowSeconds
}

// PhaseDuration returns the dwell time of the given phase.
func (s Spec) PhaseDuration(p Phase) float64 {
	switch p {
	case PhaseRed:
		return s.RedSeconds
	case PhaseGreen:
		return s.GreenSeconds
	default:
		return s.YellowSeconds
	}
}

// WithAnchor returns a copy of the spec re-anchored at the given phase and
// instant. Used by green-wave corridor optimization to shift a signal's
// cycle without mutating the original.
func (s Spec) WithAnchor(phase Phase, at time.Time) Spec {
	s.AnchorPhase = phase
	s.AnchorAt = at
	return s
}
