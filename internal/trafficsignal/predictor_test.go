package trafficsignal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

var anchor = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// testSpec anchors a 45s red / 30s green / 3s yellow cycle at the start of
// its red phase.
func testSpec(t *testing.T) trafficsignal.Spec {
	t.Helper()
	spec, err := trafficsignal.NewSpec(
		"TL001",
		geo.Coordinate{Lat: 28.6304, Lon: 77.2177},
		45, 30, 3,
		trafficsignal.PhaseRed, anchor,
	)
	require.NoError(t, err)
	return spec
}

func TestNewSpec_RejectsNonPositiveDurations(t *testing.T) {
	loc := geo.Coordinate{Lat: 28.6304, Lon: 77.2177}

	tests := []struct {
		name              string
		red, green, yellow float64
	}{
		{"zero red", 0, 30, 3},
		{"zero green", 45, 0, 3},
		{"zero yellow", 45, 30, 0},
		{"negative red", -1, 30, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := trafficsignal.NewSpec("TL001", loc, tt.red, tt.green, tt.yellow, trafficsignal.PhaseRed, anchor)
			assert.ErrorIs(t, err, trafficsignal.ErrInvalidSpec)
		})
	}
}

func TestNewSpec_RejectsUnknownAnchorPhase(t *testing.T) {
	_, err := trafficsignal.NewSpec("TL001", geo.Coordinate{Lat: 28.63, Lon: 77.21}, 45, 30, 3, "BLUE", anchor)
	assert.ErrorIs(t, err, trafficsignal.ErrInvalidSpec)
}

func TestNewSpec_RejectsOutOfRangeCoordinate(t *testing.T) {
	_, err := trafficsignal.NewSpec("TL001", geo.Coordinate{Lat: 91, Lon: 77.21}, 45, 30, 3, trafficsignal.PhaseRed, anchor)
	assert.ErrorIs(t, err, geo.ErrOutOfRange)
}

func TestPredict_PhaseSequence(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()

	tests := []struct {
		offsetSeconds float64
		wantPhase     trafficsignal.Phase
		wantRemaining float64
	}{
		{0, trafficsignal.PhaseRed, 45},
		{10, trafficsignal.PhaseRed, 35},
		{44.5, trafficsignal.PhaseRed, 0.5},
		{45, trafficsignal.PhaseGreen, 30},
		{60, trafficsignal.PhaseGreen, 15},
		{75, trafficsignal.PhaseYellow, 3},
		{77, trafficsignal.PhaseYellow, 1},
		{78, trafficsignal.PhaseRed, 45},
	}

	for _, tt := range tests {
		at := anchor.Add(time.Duration(tt.offsetSeconds * float64(time.Second)))
		pred := predictor.Predict(spec, at)
		assert.Equal(t, tt.wantPhase, pred.Phase, "offset %v", tt.offsetSeconds)
		assert.InDelta(t, tt.wantRemaining, pred.SecondsRemaining, 1e-6, "offset %v", tt.offsetSeconds)
	}
}

func TestPredict_CyclePeriodicity(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()
	cycle := time.Duration(spec.CycleSeconds() * float64(time.Second))

	for _, offset := range []time.Duration{0, 7 * time.Second, 46 * time.Second, 76 * time.Second} {
		at := anchor.Add(offset)
		a := predictor.Predict(spec, at)
		b := predictor.Predict(spec, at.Add(cycle))
		assert.Equal(t, a.Phase, b.Phase)
		assert.InDelta(t, a.SecondsRemaining, b.SecondsRemaining, 1e-6)
	}
}

func TestPredict_PhaseCoverage(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()

	// Sweep one full cycle: exactly one known phase at every instant,
	// remaining in (0, phaseDuration].
	for s := 0.0; s < spec.CycleSeconds(); s += 0.25 {
		pred := predictor.Predict(spec, anchor.Add(time.Duration(s*float64(time.Second))))

		switch pred.Phase {
		case trafficsignal.PhaseRed, trafficsignal.PhaseGreen, trafficsignal.PhaseYellow:
		default:
			t.Fatalf("unknown phase %q at offset %v", pred.Phase, s)
		}

		assert.Greater(t, pred.SecondsRemaining, 0.0)
		assert.LessOrEqual(t, pred.SecondsRemaining, spec.PhaseDuration(pred.Phase))
	}
}

func TestPredict_BeforeAnchor(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()

	// 1s before the anchor the cycle is in its final yellow second.
	pred := predictor.Predict(spec, anchor.Add(-1*time.Second))
	assert.Equal(t, trafficsignal.PhaseYellow, pred.Phase)
	assert.InDelta(t, 1.0, pred.SecondsRemaining, 1e-6)
}

func TestPredict_AnchoredMidCycle(t *testing.T) {
	// A signal anchored at the start of green walks green -> yellow -> red.
	spec, err := trafficsignal.NewSpec("TL002", geo.Coordinate{Lat: 28.6289, Lon: 77.2156},
		45, 30, 3, trafficsignal.PhaseGreen, anchor)
	require.NoError(t, err)

	predictor := trafficsignal.NewPredictor()

	pred := predictor.Predict(spec, anchor.Add(10*time.Second))
	assert.Equal(t, trafficsignal.PhaseGreen, pred.Phase)

	pred = predictor.Predict(spec, anchor.Add(31*time.Second))
	assert.Equal(t, trafficsignal.PhaseYellow, pred.Phase)

	pred = predictor.Predict(spec, anchor.Add(40*time.Second))
	assert.Equal(t, trafficsignal.PhaseRed, pred.Phase)
}

func TestPredictArrival(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()

	// 50s of travel from the anchor lands in the green phase.
	pred := predictor.PredictArrival(spec, anchor, 50)
	assert.Equal(t, trafficsignal.PhaseGreen, pred.Phase)
	assert.InDelta(t, 25, pred.SecondsRemaining, 1e-6)
}

func TestPredictApproach_GreenClamps(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()
	at := anchor.Add(45 * time.Second) // green just started, 30s remaining

	// 250m in 30s is 30 km/h: inside the clamp.
	pred := predictor.PredictApproach(spec, at, 250)
	assert.Equal(t, trafficsignal.PhaseGreen, pred.Phase)
	assert.InDelta(t, 30.0, pred.RecommendedSpeedKmh, 0.01)

	// 2km in 30s would be 240 km/h: clamped to 60.
	pred = predictor.PredictApproach(spec, at, 2000)
	assert.Equal(t, 60.0, pred.RecommendedSpeedKmh)

	// 10m in 30s would be 1.2 km/h: clamped up to 10.
	pred = predictor.PredictApproach(spec, at, 10)
	assert.Equal(t, 10.0, pred.RecommendedSpeedKmh)
}

func TestPredictApproach_RedClamps(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()
	at := anchor // red just started, 45s remaining

	// 500m in 45s is 40 km/h: exactly the red-phase ceiling.
	pred := predictor.PredictApproach(spec, at, 500)
	assert.Equal(t, trafficsignal.PhaseRed, pred.Phase)
	assert.Equal(t, 40.0, pred.RecommendedSpeedKmh)

	// 1500m would be 120 km/h: clamped to the lower red ceiling, not 60.
	pred = predictor.PredictApproach(spec, at, 1500)
	assert.Equal(t, 40.0, pred.RecommendedSpeedKmh)
}

func TestPredictApproach_YellowNoRecommendation(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()
	at := anchor.Add(76 * time.Second) // yellow

	pred := predictor.PredictApproach(spec, at, 300)
	assert.Equal(t, trafficsignal.PhaseYellow, pred.Phase)
	assert.Zero(t, pred.RecommendedSpeedKmh)
}

func TestSecondsUntilGreen(t *testing.T) {
	spec := testSpec(t)
	predictor := trafficsignal.NewPredictor()

	// During red: the remaining red time.
	assert.InDelta(t, 45, predictor.SecondsUntilGreen(spec, anchor), 1e-6)
	assert.InDelta(t, 20, predictor.SecondsUntilGreen(spec, anchor.Add(25*time.Second)), 1e-6)

	// During green: zero.
	assert.Zero(t, predictor.SecondsUntilGreen(spec, anchor.Add(50*time.Second)))

	// During yellow: remaining yellow plus the full red.
	assert.InDelta(t, 2+45, predictor.SecondsUntilGreen(spec, anchor.Add(76*time.Second)), 1e-6)
}
