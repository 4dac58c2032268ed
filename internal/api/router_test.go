package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/api"
	"github.com/greenroute/greenroute/internal/api/handler"
	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/greenwave"
	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/internal/snapshot"
	"github.com/greenroute/greenroute/internal/trafficsignal"
	"github.com/greenroute/greenroute/pkg/polyline"
)

var anchor = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

// stubProvider serves a fixed pair of readings: a dirty sensor in the
// city center and a clean one to the northeast.
type stubProvider struct {
	err error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Sensors(_ context.Context, _ geo.Coordinate, _ float64) (*airquality.Snapshot, error) {
	if p.err != nil {
		return nil, p.err
	}
	snap := airquality.NewSnapshot("stub")
	snap.Set("s-dirty", airquality.Reading{
		Location:   geo.Coordinate{Lat: 28.6000, Lon: 77.2100},
		AQI:        160,
		MeasuredAt: time.Now(),
	})
	snap.Set("s-clean", airquality.Reading{
		Location:   geo.Coordinate{Lat: 28.7000, Lon: 77.3000},
		AQI:        50,
		MeasuredAt: time.Now(),
	})
	return snap, nil
}

func newTestRouter(t *testing.T, provider snapshot.Provider) http.Handler {
	t.Helper()

	logger := zerolog.New(io.Discard)

	directory := trafficsignal.NewDirectory()
	for i := 0; i < 3; i++ {
		spec, err := trafficsignal.NewSpec(
			fmt.Sprintf("TL%d", i+1),
			geo.Coordinate{Lat: 28.6000 + float64(i)*0.0045, Lon: 77.2100},
			45, 30, 3,
			trafficsignal.PhaseRed, anchor,
		)
		require.NoError(t, err)
		require.NoError(t, directory.Upsert(spec))
	}

	snapshots := snapshot.NewService(snapshot.ServiceConfig{
		Provider: provider,
		Logger:   logger,
	})

	scorer := routing.NewScorer(routing.ScorerConfig{Logger: logger})

	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "unknown",
		Logger:    logger,
		Routes: handler.NewRouteHandler(handler.RouteHandlerConfig{
			Scorer:    scorer,
			Directory: directory,
			Snapshots: snapshots,
			Logger:    logger,
		}),
		Signals:   handler.NewSignalHandler(directory),
		GreenWave: handler.NewGreenWaveHandler(greenwave.NewCalculator(), directory),
		AirQuality: handler.NewAirQualityHandler(handler.AirQualityHandlerConfig{
			Snapshots: snapshots,
		}),
		Ops: handler.NewOpsHandler(handler.OpsHandlerConfig{
			Version:   "test",
			Snapshots: snapshots,
			Directory: directory,
		}),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthCheck(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodGet, "/v1/ops/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var health models.Health
	decodeInto(t, rec, &health)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestSystemStatus(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodGet, "/v1/ops/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status models.SystemStatus
	decodeInto(t, rec, &status)
	assert.Equal(t, models.HealthStatusOK, status.Status)

	names := make([]string, len(status.Subsystems))
	for i, s := range status.Subsystems {
		names[i] = s.Name
	}
	assert.Contains(t, names, "signal-directory")
}

func TestSignalLifecycle(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	body := models.SignalSpecInput{
		Location:      models.Point{Lat: 28.61, Lon: 77.22},
		RedSeconds:    40,
		GreenSeconds:  25,
		YellowSeconds: 3,
		AnchorPhase:   "GREEN",
		AnchorAt:      models.Timestamp(anchor),
	}

	rec := doJSON(t, router, http.MethodPut, "/v1/signals/TL9", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/v1/signals/TL9", rec.Header().Get("Location"))

	rec = doJSON(t, router, http.MethodGet, "/v1/signals/TL9", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var spec models.SignalSpecOutput
	decodeInto(t, rec, &spec)
	assert.Equal(t, "TL9", spec.ID)
	assert.InDelta(t, 68.0, spec.CycleSeconds, 1e-9)

	// A second upsert replaces instead of creating.
	rec = doJSON(t, router, http.MethodPut, "/v1/signals/TL9", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignalLifecycle_InvalidSpec(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPut, "/v1/signals/TL9", models.SignalSpecInput{
		Location:     models.Point{Lat: 28.61, Lon: 77.22},
		RedSeconds:   -1,
		GreenSeconds: 25, YellowSeconds: 3,
		AnchorPhase: "RED",
		AnchorAt:    models.Timestamp(anchor),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestGetSignal_Unknown(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodGet, "/v1/signals/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestListSignals(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodGet, "/v1/signals?lat=28.6000&lon=77.2100&radiusKm=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list models.SignalListResponse
	decodeInto(t, rec, &list)
	require.Len(t, list.Signals, 3)
	// Closest first.
	assert.Equal(t, "TL1", list.Signals[0].ID)
}

func TestPredict(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	at := models.Timestamp(anchor.Add(10 * time.Second))
	rec := doJSON(t, router, http.MethodPost, "/v1/signals:predict", models.PredictRequest{
		SignalID: "TL1",
		At:       &at,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pred models.PredictionOutput
	decodeInto(t, rec, &pred)
	assert.Equal(t, "TL1", pred.SignalID)
	assert.Equal(t, "RED", pred.Phase)
	assert.InDelta(t, 35.0, pred.SecondsRemaining, 1e-6)
	assert.Nil(t, pred.RecommendedSpeedKmh)
}

func TestPredict_WithApproach(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	at := models.Timestamp(anchor.Add(10 * time.Second))
	dist := 300.0
	rec := doJSON(t, router, http.MethodPost, "/v1/signals:predict", models.PredictRequest{
		SignalID:       "TL1",
		At:             &at,
		DistanceMeters: &dist,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pred models.PredictionOutput
	decodeInto(t, rec, &pred)
	// 300m in 35s is 30.9 km/h, inside the red-phase clamp.
	require.NotNil(t, pred.RecommendedSpeedKmh)
	assert.InDelta(t, 300.0/35.0*3.6, *pred.RecommendedSpeedKmh, 0.01)
}

func TestPredict_UnknownSignal(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/signals:predict", models.PredictRequest{
		SignalID: "nope",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGreenwaveOffset(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:offset", models.OffsetRequest{
		FromSignalID: "TL1",
		ToSignalID:   "TL2",
		SpeedKmh:     40,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var offset models.OffsetResponse
	decodeInto(t, rec, &offset)
	// The signals sit roughly 500m apart; 40 km/h covers that in ~45s.
	assert.InDelta(t, 45.0, offset.OffsetSeconds, 1.0)
	assert.InDelta(t, 0.5, offset.DistanceKm, 0.01)
}

func TestGreenwaveCorridor(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:corridor", models.CorridorRequest{
		SignalIDs: []string{"TL1", "TL2", "TL3"},
		SpeedKmh:  40,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var corridor models.CorridorResponse
	decodeInto(t, rec, &corridor)
	require.Len(t, corridor.OffsetsSeconds, 3)
	assert.Zero(t, corridor.OffsetsSeconds[0])
	assert.Greater(t, corridor.OffsetsSeconds[2], corridor.OffsetsSeconds[1])
	require.Len(t, corridor.AdjustedSpecs, 3)
	assert.Equal(t, "RED", corridor.AdjustedSpecs[1].AnchorPhase)
}

func TestGreenwaveCorridor_UnknownSignal(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:corridor", models.CorridorRequest{
		SignalIDs: []string{"TL1", "nope"},
		SpeedKmh:  40,
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGreenwaveCorridor_InvalidSpeed(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:corridor", models.CorridorRequest{
		SignalIDs: []string{"TL1", "TL2"},
		SpeedKmh:  0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGreenwaveProgression(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:progression", models.ProgressionRequest{
		SignalIDs: []string{"TL1", "TL2", "TL3"},
		StartAt:   models.Timestamp(anchor.Add(45 * time.Second)),
		SpeedKmh:  40,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.ProgressionResponse
	decodeInto(t, rec, &report)
	require.Len(t, report.Encounters, 3)
	assert.Equal(t, 3, report.GreensCaught+report.Stops)
	assert.Equal(t, "TL1", report.Encounters[0].SignalID)
	// Departing exactly at the first green start catches that green.
	assert.True(t, report.Encounters[0].CaughtGreen)
}

func TestGreenwaveBandwidth(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:bandwidth", models.BandwidthRequest{
		SignalIDs:   []string{"TL1", "TL2", "TL3"},
		StartAt:     models.Timestamp(anchor.Add(45 * time.Second)),
		MinSpeedKmh: 20,
		MaxSpeedKmh: 50,
		StepKmh:     10,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var report models.BandwidthResponse
	decodeInto(t, rec, &report)
	require.Len(t, report.Options, 4)

	speeds := make([]float64, len(report.Options))
	for i, o := range report.Options {
		speeds[i] = o.SpeedKmh
	}
	assert.Contains(t, speeds, report.Best.SpeedKmh)
}

func TestGreenwaveBandwidth_EmptyRange(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/greenwave:bandwidth", models.BandwidthRequest{
		SignalIDs:   []string{"TL1"},
		MinSpeedKmh: 50,
		MaxSpeedKmh: 20,
		StepKmh:     10,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInterpolate_IDW(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	point := models.Point{Lat: 28.65, Lon: 77.25}
	rec := doJSON(t, router, http.MethodPost, "/v1/airquality:interpolate", models.InterpolateRequest{
		Method: models.InterpolationIDW,
		Point:  &point,
		Readings: []models.ReadingInput{
			{Location: models.Point{Lat: 28.60, Lon: 77.21}, AQI: 160, MeasuredAt: models.Timestamp(anchor)},
			{Location: models.Point{Lat: 28.70, Lon: 77.30}, AQI: 50, MeasuredAt: models.Timestamp(anchor)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.InterpolateResponse
	decodeInto(t, rec, &out)
	assert.Greater(t, out.AQI, 50.0)
	assert.Less(t, out.AQI, 160.0)
}

func TestInterpolate_NoReadings(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	point := models.Point{Lat: 28.65, Lon: 77.25}
	rec := doJSON(t, router, http.MethodPost, "/v1/airquality:interpolate", models.InterpolateRequest{
		Method: models.InterpolationIDW,
		Point:  &point,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient-data")
}

func TestInterpolate_Temporal(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	at := models.Timestamp(anchor.Add(30 * time.Minute))
	loc := models.Point{Lat: 28.60, Lon: 77.21}
	rec := doJSON(t, router, http.MethodPost, "/v1/airquality:interpolate", models.InterpolateRequest{
		Method: models.InterpolationTemporal,
		At:     &at,
		Readings: []models.ReadingInput{
			{Location: loc, AQI: 100, MeasuredAt: models.Timestamp(anchor)},
			{Location: loc, AQI: 200, MeasuredAt: models.Timestamp(anchor.Add(time.Hour))},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.InterpolateResponse
	decodeInto(t, rec, &out)
	// Equidistant in time from both readings.
	assert.InDelta(t, 150.0, out.AQI, 1e-6)
}

func TestInterpolate_UnknownMethod(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/airquality:interpolate", map[string]any{
		"method":   "kriging",
		"readings": []any{},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSensors(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodGet, "/v1/airquality/sensors?lat=28.63&lon=77.21", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.SensorsResponse
	decodeInto(t, rec, &out)
	assert.Equal(t, "stub", out.Provider)
	assert.Len(t, out.Readings, 2)
}

func TestSensors_ProviderDown(t *testing.T) {
	router := newTestRouter(t, &stubProvider{err: errors.New("upstream down")})

	rec := doJSON(t, router, http.MethodGet, "/v1/airquality/sensors?lat=28.63&lon=77.21", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func scoreRequest(preset string) models.ScoreRoutesRequest {
	return models.ScoreRoutesRequest{
		Preset: preset,
		Candidates: []models.CandidateInput{
			{
				ID: "route-fast",
				Waypoints: []models.Point{
					{Lat: 28.6000, Lon: 77.2100},
					{Lat: 28.6010, Lon: 77.2110},
				},
				DistanceKm:      5,
				BaselineMinutes: 10,
				Tag:             "fastest",
			},
			{
				ID: "route-clean",
				Waypoints: []models.Point{
					{Lat: 28.7000, Lon: 77.3000},
					{Lat: 28.7010, Lon: 77.3010},
				},
				DistanceKm:      5,
				BaselineMinutes: 20,
				Tag:             "cleanest",
			},
		},
	}
}

func TestScoreRoutes_FastestPreset(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", scoreRequest("fastest"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.ScoreRoutesResponse
	decodeInto(t, rec, &out)
	require.Len(t, out.Routes, 2)
	assert.True(t, out.AQIUsed)
	assert.Equal(t, "route-fast", out.Routes[0].ID)
	assert.Equal(t, 1, out.Routes[0].Rank)
	require.NotNil(t, out.Routes[0].AverageAQI)
	assert.Greater(t, *out.Routes[0].AverageAQI, *out.Routes[1].AverageAQI)
}

func TestScoreRoutes_CleanestPreset(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", scoreRequest("cleanest"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.ScoreRoutesResponse
	decodeInto(t, rec, &out)
	require.Len(t, out.Routes, 2)
	assert.Equal(t, "route-clean", out.Routes[0].ID)
}

func TestScoreRoutes_Polyline(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	encoded := polyline.Encode([]polyline.Point{
		{Lat: 28.7000, Lon: 77.3000},
		{Lat: 28.7010, Lon: 77.3010},
	})

	req := scoreRequest("balanced")
	req.Candidates[1].Waypoints = nil
	req.Candidates[1].Polyline = encoded

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.ScoreRoutesResponse
	decodeInto(t, rec, &out)
	assert.Len(t, out.Routes, 2)
}

func TestScoreRoutes_SignalCorridor(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := scoreRequest("balanced")
	req.Candidates[0].SignalIDs = []string{"TL1", "TL2", "TL3"}

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.ScoreRoutesResponse
	decodeInto(t, rec, &out)
	for _, route := range out.Routes {
		if route.ID == "route-fast" {
			assert.Equal(t, 3, route.SignalsTotal)
		}
	}
}

func TestScoreRoutes_DegradesWithoutSensors(t *testing.T) {
	router := newTestRouter(t, &stubProvider{err: errors.New("upstream down")})

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", scoreRequest("fastest"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.ScoreRoutesResponse
	decodeInto(t, rec, &out)
	assert.False(t, out.AQIUsed)
	for _, route := range out.Routes {
		assert.Nil(t, route.AverageAQI)
	}
}

func TestScoreRoutes_UnknownPreset(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", scoreRequest("warp-speed"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestScoreRoutes_NoCandidates(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	rec := doJSON(t, router, http.MethodPost, "/v1/routes:score", models.ScoreRoutesRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreRoutes_InvalidBody(t *testing.T) {
	router := newTestRouter(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/v1/routes:score", bytes.NewReader([]byte("{")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
