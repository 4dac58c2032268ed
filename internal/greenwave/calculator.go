// Package greenwave computes signal timing offsets that let a vehicle
// traveling at a target speed experience consecutive green phases along a
// corridor, and simulates how well a candidate speed actually performs
// against the signals' anchored cycles.
package greenwave

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// Calculation errors.
var (
	// ErrInvalidSpeed indicates a non-positive corridor speed.
	ErrInvalidSpeed = errors.New("speed must be positive")

	// ErrEmptyCorridor indicates a corridor with no signals.
	ErrEmptyCorridor = errors.New("corridor has no signals")
)

// Calculator derives green-wave timings from signal specs. Stateless and
// safe for concurrent use.
type Calculator struct {
	predictor *trafficsignal.Predictor
}

// NewCalculator creates a Calculator.
func NewCalculator() *Calculator {
	return &Calculator{predictor: trafficsignal.NewPredictor()}
}

// Offset returns the time in seconds a vehicle takes to travel from signal
// a to signal b at the assumed corridor speed. Scheduling b's green phase
// to start this much after a's produces a green wave between the pair.
// Always >= 0 and linear in the distance between the signals.
func (c *Calculator) Offset(a, b trafficsignal.Spec, speedKmh float64) (float64, error) {
	if speedKmh <= 0 {
		return 0, fmt.Errorf("%w: %.1f km/h", ErrInvalidSpeed, speedKmh)
	}
	return a.Location.DistanceKm(b.Location) / speedKmh * 3600, nil
}

// CorridorTiming is the result of optimizing a corridor for a green wave.
type CorridorTiming struct {
	SignalIDs []string

	// OffsetsSeconds holds the cumulative offset from the first signal to
	// each signal; the first entry is always 0.
	OffsetsSeconds []float64

	// AdjustedSpecs carries each signal re-anchored so its cycle lags the
	// first signal's by its offset.
	AdjustedSpecs []trafficsignal.Spec

	TotalDistanceKm float64
	TravelSeconds   float64
	SpeedKmh        float64
}

// OptimizeCorridor computes cumulative offsets from the first signal to
// every subsequent signal at the assumed speed and returns each signal
// re-anchored accordingly. A corridor of one signal is trivially
// synchronized and gets no offsets beyond its own zero.
func (c *Calculator) OptimizeCorridor(signals []trafficsignal.Spec, speedKmh float64) (CorridorTiming, error) {
	if len(signals) == 0 {
		return CorridorTiming{}, ErrEmptyCorridor
	}
	if speedKmh <= 0 {
		return CorridorTiming{}, fmt.Errorf("%w: %.1f km/h", ErrInvalidSpeed, speedKmh)
	}

	timing := CorridorTiming{
		SignalIDs:      lo.Map(signals, func(s trafficsignal.Spec, _ int) string { return s.ID }),
		OffsetsSeconds: make([]float64, len(signals)),
		AdjustedSpecs:  make([]trafficsignal.Spec, len(signals)),
		SpeedKmh:       speedKmh,
	}

	first := signals[0]
	timing.AdjustedSpecs[0] = first

	var cumulative float64
	for i := 1; i < len(signals); i++ {
		leg, err := c.Offset(signals[i-1], signals[i], speedKmh)
		if err != nil {
			return CorridorTiming{}, err
		}
		cumulative += leg
		timing.OffsetsSeconds[i] = cumulative
		timing.TotalDistanceKm += signals[i-1].Location.DistanceKm(signals[i].Location)

		// Lag each downstream cycle behind the first signal's anchor by the
		// travel time, so a vehicle leaving at the first green rides greens
		// the whole way.
		timing.AdjustedSpecs[i] = signals[i].WithAnchor(
			first.AnchorPhase,
			first.AnchorAt.Add(time.Duration(cumulative*float64(time.Second))),
		)
	}
	timing.TravelSeconds = cumulative

	return timing, nil
}

// Encounter describes a vehicle reaching one signal during a progression
// simulation.
type Encounter struct {
	SignalID             string
	ArrivalAt            time.Time
	CumulativeDistanceKm float64
	Prediction           trafficsignal.Prediction

	// CaughtGreen reports whether the vehicle arrives during a green phase.
	CaughtGreen bool

	// WaitSeconds is the idle time before the signal turns green when the
	// vehicle arrives on red or yellow.
	WaitSeconds float64
}

// ProgressionReport summarizes a simulated run through a corridor.
type ProgressionReport struct {
	Encounters       []Encounter
	GreensCaught     int
	Stops            int
	TotalWaitSeconds float64
	TravelSeconds    float64
	SpeedKmh         float64

	// EfficiencyPct is the share of signals caught on green, 0-100.
	EfficiencyPct float64
}

// SimulateProgression drives a virtual vehicle through the corridor at a
// constant speed, predicting each signal's state at the estimated arrival
// instant (startTime plus cumulative travel time). The wait totals feed
// route scoring as estimated signal delay.
func (c *Calculator) SimulateProgression(signals []trafficsignal.Spec, start time.Time, speedKmh float64) (ProgressionReport, error) {
	if len(signals) == 0 {
		return ProgressionReport{}, ErrEmptyCorridor
	}
	if speedKmh <= 0 {
		return ProgressionReport{}, fmt.Errorf("%w: %.1f km/h", ErrInvalidSpeed, speedKmh)
	}

	report := ProgressionReport{
		Encounters: make([]Encounter, 0, len(signals)),
		SpeedKmh:   speedKmh,
	}

	var travelSeconds, cumulativeKm float64
	for i, spec := range signals {
		if i > 0 {
			legKm := signals[i-1].Location.DistanceKm(spec.Location)
			cumulativeKm += legKm
			travelSeconds += legKm / speedKmh * 3600
		}

		arrival := start.Add(time.Duration(travelSeconds * float64(time.Second)))
		pred := c.predictor.Predict(spec, arrival)

		enc := Encounter{
			SignalID:             spec.ID,
			ArrivalAt:            arrival,
			CumulativeDistanceKm: cumulativeKm,
			Prediction:           pred,
			CaughtGreen:          pred.Phase == trafficsignal.PhaseGreen,
		}
		if !enc.CaughtGreen {
			enc.WaitSeconds = c.predictor.SecondsUntilGreen(spec, arrival)
			report.Stops++
			report.TotalWaitSeconds += enc.WaitSeconds
		} else {
			report.GreensCaught++
		}

		report.Encounters = append(report.Encounters, enc)
	}

	report.TravelSeconds = travelSeconds
	report.EfficiencyPct = float64(report.GreensCaught) / float64(len(signals)) * 100

	return report, nil
}

// SpeedOption is the outcome of simulating one candidate speed.
type SpeedOption struct {
	SpeedKmh         float64
	Stops            int
	GreensCaught     int
	TotalWaitSeconds float64
}

// BandwidthReport compares candidate corridor speeds.
type BandwidthReport struct {
	Options []SpeedOption
	Best    SpeedOption
}

// BandwidthAnalysis simulates the corridor at each candidate speed and
// picks the one with the fewest stops. Ties go to the highest speed: when
// stop counts are equal there is no reason to artificially slow traffic.
func (c *Calculator) BandwidthAnalysis(signals []trafficsignal.Spec, start time.Time, speedsKmh []float64) (BandwidthReport, error) {
	if len(signals) == 0 {
		return BandwidthReport{}, ErrEmptyCorridor
	}
	if len(speedsKmh) == 0 {
		return BandwidthReport{}, fmt.Errorf("%w: no candidate speeds", ErrInvalidSpeed)
	}

	options := make([]SpeedOption, 0, len(speedsKmh))
	for _, speed := range speedsKmh {
		report, err := c.SimulateProgression(signals, start, speed)
		if err != nil {
			return BandwidthReport{}, err
		}
		options = append(options, SpeedOption{
			SpeedKmh:         speed,
			Stops:            report.Stops,
			GreensCaught:     report.GreensCaught,
			TotalWaitSeconds: report.TotalWaitSeconds,
		})
	}

	best := lo.MinBy(options, func(a, b SpeedOption) bool {
		if a.Stops != b.Stops {
			return a.Stops < b.Stops
		}
		return a.SpeedKmh > b.SpeedKmh
	})

	return BandwidthReport{Options: options, Best: best}, nil
}

// SpeedRange returns candidate speeds from min to max inclusive at the
// given step, for feeding BandwidthAnalysis.
func SpeedRange(minKmh, maxKmh, stepKmh float64) []float64 {
	if stepKmh <= 0 || maxKmh < minKmh {
		return nil
	}
	var speeds []float64
	for s := minKmh; s <= maxKmh+1e-9; s += stepKmh {
		speeds = append(speeds, s)
	}
	return speeds
}
