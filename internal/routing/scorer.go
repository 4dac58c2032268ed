package routing

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/greenwave"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// ScoredRoute is one candidate with its computed metrics and final rank.
type ScoredRoute struct {
	Candidate

	// AverageAQI is the mean interpolated AQI along the route's waypoints.
	// Meaningless when HasAQI is false.
	AverageAQI float64
	HasAQI     bool

	// SignalDelaySeconds is the expected wait at signals along the route.
	SignalDelaySeconds float64
	GreensCaught       int
	SignalsTotal       int

	// CompositeScore is the weighted blend of normalized objectives, in
	// [0, 1], higher is better.
	CompositeScore float64

	// Rank is 1 for the best candidate.
	Rank int
}

// ScorerConfig configures a Scorer. Zero-value fields get defaults.
type ScorerConfig struct {
	Interpolator *airquality.Interpolator
	GreenWave    *greenwave.Calculator
	Logger       zerolog.Logger
}

// Scorer ranks candidate routes by a weighted blend of travel time, air
// quality exposure, and expected signal delay. Safe for concurrent use.
type Scorer struct {
	interp    *airquality.Interpolator
	greenWave *greenwave.Calculator
	logger    zerolog.Logger
}

// NewScorer creates a Scorer.
func NewScorer(cfg ScorerConfig) *Scorer {
	if cfg.Interpolator == nil {
		cfg.Interpolator = airquality.NewInterpolator(airquality.InterpolatorConfig{})
	}
	if cfg.GreenWave == nil {
		cfg.GreenWave = greenwave.NewCalculator()
	}
	return &Scorer{
		interp:    cfg.Interpolator,
		greenWave: cfg.GreenWave,
		logger:    cfg.Logger.With().Str("component", "route_scorer").Logger(),
	}
}

// Score ranks the candidates. sensors supplies the AQI readings used for
// along-route interpolation; an empty slice drops the air quality objective
// for every candidate rather than failing. signals optionally carries the
// signal corridor of each candidate, index-aligned; nil skips the signal
// delay simulation.
//
// Results are ordered best first. Ordering is deterministic for identical
// inputs: composite score descending, then baseline time ascending, then
// average AQI ascending, then input order.
func (s *Scorer) Score(
	candidates []Candidate,
	weights PreferenceWeights,
	sensors []airquality.Reading,
	signals [][]trafficsignal.Spec,
	departAt time.Time,
) ([]ScoredRoute, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if signals != nil && len(signals) != len(candidates) {
		return nil, fmt.Errorf("%w: %d signal corridors for %d candidates", ErrInvalidCandidate, len(signals), len(candidates))
	}
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	norm, err := weights.Normalized()
	if err != nil {
		return nil, err
	}

	hasSensors := len(sensors) > 0
	if !hasSensors {
		// Degrade gracefully: drop the air quality objective for everyone
		// and rescale the remaining weights, unless air quality was the
		// only objective.
		rest := PreferenceWeights{Time: norm.Time, Safety: norm.Safety}
		norm, err = rest.Normalized()
		if err != nil {
			return nil, fmt.Errorf("%w: no readings and air quality is the only objective", ErrMissingSensorData)
		}
		s.logger.Warn().Msg("no sensor readings, scoring without air quality objective")
	}

	scored := make([]ScoredRoute, len(candidates))
	for i, cand := range candidates {
		sr := ScoredRoute{Candidate: cand}

		if hasSensors {
			values, err := s.interp.EstimateAlongRoute(cand.Waypoints, sensors)
			if err != nil {
				return nil, fmt.Errorf("%w: route %s: %v", ErrMissingSensorData, cand.ID, err)
			}
			sr.AverageAQI = lo.Sum(values) / float64(len(values))
			sr.HasAQI = true
		}

		if signals != nil && len(signals[i]) > 0 {
			report, err := s.greenWave.SimulateProgression(signals[i], departAt, cand.AverageSpeedKmh())
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", cand.ID, err)
			}
			sr.SignalDelaySeconds = report.TotalWaitSeconds
			sr.GreensCaught = report.GreensCaught
			sr.SignalsTotal = len(signals[i])
		}

		scored[i] = sr
	}

	timeNorm := normalizeLowerBetter(scored, func(r ScoredRoute) float64 { return r.BaselineMinutes })
	aqiNorm := normalizeLowerBetter(scored, func(r ScoredRoute) float64 { return r.AverageAQI })
	delayNorm := normalizeLowerBetter(scored, func(r ScoredRoute) float64 { return r.SignalDelaySeconds })

	for i := range scored {
		score := norm.Time * timeNorm[i]
		if hasSensors {
			score += norm.AirQuality * aqiNorm[i]
		}
		score += norm.Safety * delayNorm[i]
		scored[i].CompositeScore = score
	}

	sort.SliceStable(scored, func(a, b int) bool {
		if scored[a].CompositeScore != scored[b].CompositeScore {
			return scored[a].CompositeScore > scored[b].CompositeScore
		}
		if scored[a].BaselineMinutes != scored[b].BaselineMinutes {
			return scored[a].BaselineMinutes < scored[b].BaselineMinutes
		}
		return scored[a].AverageAQI < scored[b].AverageAQI
	})

	for i := range scored {
		scored[i].Rank = i + 1
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Bool("with_aqi", hasSensors).
		Str("best", scored[0].ID).
		Float64("best_score", scored[0].CompositeScore).
		Msg("routes scored")

	return scored, nil
}

// normalizeLowerBetter maps a lower-is-better metric onto [0, 1] with 1 for
// the best value. When every candidate shares the same value the metric
// carries no signal and everyone gets 1.
func normalizeLowerBetter(routes []ScoredRoute, metric func(ScoredRoute) float64) []float64 {
	values := lo.Map(routes, func(r ScoredRoute, _ int) float64 { return metric(r) })
	min := lo.Min(values)
	max := lo.Max(values)

	norms := make([]float64, len(values))
	for i, v := range values {
		if max == min {
			norms[i] = 1.0
			continue
		}
		norms[i] = (max - v) / (max - min)
	}
	return norms
}
