// Package handler provides HTTP handlers for the route decision engine API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/routing"
	"github.com/greenroute/greenroute/internal/snapshot"
	"github.com/greenroute/greenroute/internal/trafficsignal"
	"github.com/greenroute/greenroute/pkg/polyline"
)

const (
	// signalBufferMeters is how far from a route waypoint a signal may sit
	// and still count as on the route.
	signalBufferMeters = 150

	// sampleIntervalMeters bounds the waypoint density of decoded polylines
	// before exposure interpolation.
	sampleIntervalMeters = 250
)

// RouteHandler handles route scoring endpoints.
type RouteHandler struct {
	scorer          *routing.Scorer
	directory       *trafficsignal.Directory
	snapshots       *snapshot.Service
	logger          zerolog.Logger
	defaultRadiusKm float64
}

// RouteHandlerConfig configures a RouteHandler.
type RouteHandlerConfig struct {
	Scorer    *routing.Scorer
	Directory *trafficsignal.Directory

	// Snapshots supplies sensor readings; nil disables the air quality
	// objective entirely.
	Snapshots *snapshot.Service

	Logger zerolog.Logger

	// DefaultRadiusKm is the sensor fetch radius when the request does not
	// override it (default: 10).
	DefaultRadiusKm float64
}

// NewRouteHandler creates a RouteHandler.
func NewRouteHandler(cfg RouteHandlerConfig) *RouteHandler {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}
	return &RouteHandler{
		scorer:          cfg.Scorer,
		directory:       cfg.Directory,
		snapshots:       cfg.Snapshots,
		logger:          cfg.Logger.With().Str("handler", "route").Logger(),
		defaultRadiusKm: cfg.DefaultRadiusKm,
	}
}

// ScoreRoutes handles POST /v1/routes:score.
func (h *RouteHandler) ScoreRoutes(w http.ResponseWriter, r *http.Request) {
	var input models.ScoreRoutesRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	weights, fieldErr := resolveWeights(input)
	if fieldErr != nil {
		response.BadRequest(w, r, "invalid scoring preferences", []models.FieldError{*fieldErr})
		return
	}

	candidates := make([]routing.Candidate, 0, len(input.Candidates))
	corridors := make([][]trafficsignal.Spec, 0, len(input.Candidates))

	for _, in := range input.Candidates {
		waypoints, fieldErr := candidateWaypoints(in)
		if fieldErr != nil {
			response.BadRequest(w, r, "invalid candidate geometry", []models.FieldError{*fieldErr})
			return
		}

		candidates = append(candidates, routing.Candidate{
			ID:              in.ID,
			Waypoints:       waypoints,
			DistanceKm:      in.DistanceKm,
			BaselineMinutes: in.BaselineMinutes,
			Tag:             in.Tag,
		})

		corridor, err := h.candidateCorridor(in, waypoints)
		if err != nil {
			response.BadRequest(w, r, err.Error(), []models.FieldError{
				{Field: "signalIds", Message: err.Error()},
			})
			return
		}
		corridors = append(corridors, corridor)
	}

	departAt := time.Now()
	if input.DepartAt != nil {
		departAt = input.DepartAt.Time()
	}

	readings := h.sensorReadings(r, input, candidates)

	scored, err := h.scorer.Score(candidates, weights, readings, corridors, departAt)
	if err != nil {
		h.writeScoreError(w, r, err)
		return
	}

	normalized, _ := weights.Normalized()
	resp := models.ScoreRoutesResponse{
		GeneratedAt: models.Timestamp(time.Now()),
		Weights: models.WeightsInput{
			Time:       normalized.Time,
			AirQuality: normalized.AirQuality,
			Safety:     normalized.Safety,
		},
		AQIUsed: scored[0].HasAQI,
		Routes:  make([]models.ScoredRouteOutput, len(scored)),
	}
	for i, sr := range scored {
		out := models.ScoredRouteOutput{
			ID:                 sr.ID,
			Tag:                sr.Tag,
			Rank:               sr.Rank,
			CompositeScore:     sr.CompositeScore,
			DistanceKm:         sr.DistanceKm,
			BaselineMinutes:    sr.BaselineMinutes,
			SignalDelaySeconds: sr.SignalDelaySeconds,
			GreensCaught:       sr.GreensCaught,
			SignalsTotal:       sr.SignalsTotal,
		}
		if sr.HasAQI {
			aqi := sr.AverageAQI
			out.AverageAQI = &aqi
		}
		resp.Routes[i] = out
	}

	w.Header().Set("Cache-Control", "private, max-age=60")
	response.JSON(w, r, http.StatusOK, resp)
}

// resolveWeights picks explicit weights over a preset over the default.
func resolveWeights(input models.ScoreRoutesRequest) (routing.PreferenceWeights, *models.FieldError) {
	if input.Weights != nil {
		return routing.PreferenceWeights{
			Time:       input.Weights.Time,
			AirQuality: input.Weights.AirQuality,
			Safety:     input.Weights.Safety,
		}, nil
	}
	if input.Preset != "" {
		w, ok := routing.Preset(input.Preset)
		if !ok {
			return routing.PreferenceWeights{}, &models.FieldError{
				Field:   "preset",
				Message: "unknown preset " + input.Preset,
			}
		}
		return w, nil
	}
	return routing.DefaultWeights(), nil
}

// candidateWaypoints resolves a candidate's geometry, preferring the
// encoded polyline. Decoded polylines are downsampled to keep the
// interpolation cost bounded on long routes.
func candidateWaypoints(in models.CandidateInput) ([]geo.Coordinate, *models.FieldError) {
	if in.Polyline != "" {
		points := polyline.Sample(polyline.Decode(in.Polyline), sampleIntervalMeters)
		if len(points) < 2 {
			return nil, &models.FieldError{
				Field:   "polyline",
				Message: "candidate " + in.ID + ": polyline must decode to at least 2 points",
			}
		}
		waypoints := make([]geo.Coordinate, len(points))
		for i, p := range points {
			waypoints[i] = geo.Coordinate{Lat: p.Lat, Lon: p.Lon}
		}
		return waypoints, nil
	}

	if len(in.Waypoints) < 2 {
		return nil, &models.FieldError{
			Field:   "waypoints",
			Message: "candidate " + in.ID + ": needs a polyline or at least 2 waypoints",
		}
	}
	waypoints := make([]geo.Coordinate, len(in.Waypoints))
	for i, p := range in.Waypoints {
		waypoints[i] = p.Coordinate()
	}
	return waypoints, nil
}

// candidateCorridor resolves the candidate's signal corridor, either from
// the explicitly listed ids or by matching registered signals against the
// route geometry.
func (h *RouteHandler) candidateCorridor(in models.CandidateInput, waypoints []geo.Coordinate) ([]trafficsignal.Spec, error) {
	if len(in.SignalIDs) > 0 {
		return h.directory.Resolve(in.SignalIDs)
	}
	return h.directory.AlongRoute(waypoints, signalBufferMeters), nil
}

// sensorReadings fetches the sensor snapshot for the request's area.
// Provider failure degrades to scoring without the air quality objective
// rather than failing the request.
func (h *RouteHandler) sensorReadings(r *http.Request, input models.ScoreRoutesRequest, candidates []routing.Candidate) []airquality.Reading {
	if h.snapshots == nil {
		return nil
	}

	center, radiusKm := h.sensorArea(input, candidates)
	readings, err := h.snapshots.Readings(r.Context(), center, radiusKm)
	if err != nil {
		h.logger.Warn().Err(err).
			Float64("lat", center.Lat).
			Float64("lon", center.Lon).
			Msg("sensor fetch failed, scoring without air quality")
		return nil
	}
	return readings
}

// sensorArea picks the sensor fetch area: the explicit override when
// present, otherwise the midpoint of the first candidate's endpoints.
func (h *RouteHandler) sensorArea(input models.ScoreRoutesRequest, candidates []routing.Candidate) (geo.Coordinate, float64) {
	if input.SensorArea != nil {
		return input.SensorArea.Center.Coordinate(), input.SensorArea.RadiusKm
	}
	wp := candidates[0].Waypoints
	return wp[0].Midpoint(wp[len(wp)-1]), h.defaultRadiusKm
}

func (h *RouteHandler) writeScoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, routing.ErrMissingSensorData):
		response.InsufficientData(w, r, err.Error())
	case errors.Is(err, routing.ErrNoCandidates),
		errors.Is(err, routing.ErrInvalidCandidate),
		errors.Is(err, routing.ErrInvalidWeights):
		response.BadRequest(w, r, err.Error(), nil)
	default:
		h.logger.Error().Err(err).Msg("route scoring failed")
		response.InternalError(w, r, "route scoring failed")
	}
}
