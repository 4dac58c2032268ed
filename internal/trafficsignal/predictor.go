package trafficsignal

import (
	"math"
	"time"
)

// Approach speed clamps, km/h. Unclamped recommendations near phase
// boundaries can be physically unsafe or meaningless, so both bounds are
// policy, not derived optima. The red-phase ceiling is biased lower: the
// goal there is to avoid idling, not to rush a red.
const (
	MinApproachSpeedKmh      = 10
	MaxGreenApproachSpeedKmh = 60
	MaxRedApproachSpeedKmh   = 40
)

// Prediction is the derived state of a signal at a given instant.
type Prediction struct {
	SignalID string
	At       time.Time

	// Phase is the signal color at At.
	Phase Phase

	// SecondsRemaining is the time left in Phase, in (0, phase duration].
	SecondsRemaining float64

	// RecommendedSpeedKmh is the approach speed that reaches the signal at
	// a phase boundary. Zero when no recommendation applies (yellow phase,
	// or no approach distance supplied).
	RecommendedSpeedKmh float64
}

// Predictor derives signal state from a spec's phase anchor. It holds no
// state and is safe for concurrent use.
type Predictor struct{}

// NewPredictor creates a Predictor.
func NewPredictor() *Predictor {
	return &Predictor{}
}

// Predict computes the signal's phase and time-to-next-change at the given
// instant. Pure: predict(spec, t) == predict(spec, t + cycleLength).
func (p *Predictor) Predict(spec Spec, at time.Time) Prediction {
	cycle := spec.CycleSeconds()

	elapsed := at.Sub(spec.AnchorAt).Seconds()
	offset := math.Mod(elapsed, cycle)
	if offset < 0 {
		offset += cycle
	}

	// Walk the cycle starting from the anchored phase until the offset
	// lands inside a phase window.
	phase := spec.AnchorPhase
	for {
		dur := spec.PhaseDuration(phase)
		if offset < dur {
			return Prediction{
				SignalID:         spec.ID,
				At:               at,
				Phase:            phase,
				SecondsRemaining: dur - offset,
			}
		}
		offset -= dur
		phase = phase.Next()
	}
}

// PredictArrival predicts the state a vehicle will observe on arrival,
// estimatedTravelSeconds after now.
func (p *Predictor) PredictArrival(spec Spec, now time.Time, estimatedTravelSeconds float64) Prediction {
	return p.Predict(spec, now.Add(time.Duration(estimatedTravelSeconds*float64(time.Second))))
}

// PredictApproach predicts the state at the given instant and fills in a
// recommended approach speed for a vehicle distanceMeters away:
//
//   - GREEN: cover the distance before the phase ends, clamped to
//     [10, 60] km/h.
//   - RED: arrive exactly as the signal turns green, clamped to
//     [10, 40] km/h.
//   - YELLOW: no recommendation.
func (p *Predictor) PredictApproach(spec Spec, at time.Time, distanceMeters float64) Prediction {
	pred := p.Predict(spec, at)
	if distanceMeters <= 0 {
		return pred
	}

	switch pred.Phase {
	case PhaseGreen:
		kmh := distanceMeters / pred.SecondsRemaining * 3.6
		pred.RecommendedSpeedKmh = clamp(kmh, MinApproachSpeedKmh, MaxGreenApproachSpeedKmh)
	case PhaseRed:
		kmh := distanceMeters / pred.SecondsRemaining * 3.6
		pred.RecommendedSpeedKmh = clamp(kmh, MinApproachSpeedKmh, MaxRedApproachSpeedKmh)
	}

	return pred
}

// SecondsUntilGreen returns how long after at the signal next enters its
// green phase. Zero when the signal is already green.
func (p *Predictor) SecondsUntilGreen(spec Spec, at time.Time) float64 {
	pred := p.Predict(spec, at)

	switch pred.Phase {
	case PhaseGreen:
		return 0
	case PhaseYellow:
		return pred.SecondsRemaining + spec.RedSeconds
	default:
		return pred.SecondsRemaining
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
