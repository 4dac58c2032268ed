package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/greenroute/greenroute/internal/airquality"
	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/snapshot"
)

// AirQualityHandler handles interpolation and sensor feed endpoints.
type AirQualityHandler struct {
	interpolator    *airquality.Interpolator
	snapshots       *snapshot.Service
	defaultRadiusKm float64
}

// AirQualityHandlerConfig configures an AirQualityHandler.
type AirQualityHandlerConfig struct {
	Interpolator *airquality.Interpolator
	Snapshots    *snapshot.Service

	// DefaultRadiusKm is the sensor query radius when the request omits it
	// (default: 10).
	DefaultRadiusKm float64
}

// NewAirQualityHandler creates an AirQualityHandler.
func NewAirQualityHandler(cfg AirQualityHandlerConfig) *AirQualityHandler {
	if cfg.Interpolator == nil {
		cfg.Interpolator = airquality.NewInterpolator(airquality.InterpolatorConfig{})
	}
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = 10
	}
	return &AirQualityHandler{
		interpolator:    cfg.Interpolator,
		snapshots:       cfg.Snapshots,
		defaultRadiusKm: cfg.DefaultRadiusKm,
	}
}

// Interpolate handles POST /v1/airquality:interpolate.
func (h *AirQualityHandler) Interpolate(w http.ResponseWriter, r *http.Request) {
	var input models.InterpolateRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	readings := make([]airquality.Reading, len(input.Readings))
	for i, in := range input.Readings {
		readings[i] = in.Reading()
		if err := readings[i].Validate(); err != nil {
			response.BadRequest(w, r, "invalid reading", []models.FieldError{
				{Field: "readings", Message: err.Error()},
			})
			return
		}
	}

	var (
		aqi float64
		err error
	)
	switch input.Method {
	case models.InterpolationIDW:
		if input.Point == nil {
			response.BadRequest(w, r, "point is required for idw interpolation", nil)
			return
		}
		aqi, err = h.interpolator.EstimateIDW(input.Point.Coordinate(), readings)

	case models.InterpolationLinear:
		if input.Point == nil || len(readings) != 2 {
			response.BadRequest(w, r, "linear interpolation needs a point and exactly 2 readings", nil)
			return
		}
		aqi, err = h.interpolator.EstimateLinear(input.Point.Coordinate(), readings[0], readings[1])

	case models.InterpolationTemporal:
		if input.At == nil || len(readings) != 2 {
			response.BadRequest(w, r, "temporal interpolation needs an instant and exactly 2 readings", nil)
			return
		}
		aqi, err = h.interpolator.EstimateTemporal(input.At.Time(), readings[0], readings[1])

	default:
		response.BadRequest(w, r, "method must be idw, linear, or temporal", []models.FieldError{
			{Field: "method", Message: "unknown method " + input.Method},
		})
		return
	}

	if err != nil {
		if errors.Is(err, airquality.ErrInsufficientData) {
			response.InsufficientData(w, r, err.Error())
			return
		}
		response.InternalError(w, r, "interpolation failed")
		return
	}

	response.JSON(w, r, http.StatusOK, models.InterpolateResponse{
		Method: input.Method,
		AQI:    aqi,
	})
}

// Sensors handles GET /v1/airquality/sensors?lat=&lon=&radiusKm=.
func (h *AirQualityHandler) Sensors(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		response.ServiceUnavailable(w, r, "no sensor feed configured")
		return
	}

	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		response.BadRequest(w, r, "lat and lon query parameters are required", nil)
		return
	}

	radiusKm := h.defaultRadiusKm
	if raw := r.URL.Query().Get("radiusKm"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			response.BadRequest(w, r, "radiusKm must be a positive number", nil)
			return
		}
		radiusKm = parsed
	}

	center := geo.Coordinate{Lat: lat, Lon: lon}
	if err := center.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	snap, err := h.snapshots.Get(r.Context(), center, radiusKm)
	if err != nil {
		response.ServiceUnavailable(w, r, "sensor feed unavailable")
		return
	}

	readings := snap.List()
	out := make([]models.ReadingOutput, len(readings))
	for i, reading := range readings {
		out[i] = models.ReadingOutput{
			Location:   models.NewPoint(reading.Location),
			AQI:        reading.AQI,
			MeasuredAt: models.Timestamp(reading.MeasuredAt),
		}
	}

	w.Header().Set("Cache-Control", "private, max-age="+strconv.Itoa(int((5*time.Minute).Seconds())))
	response.JSON(w, r, http.StatusOK, models.SensorsResponse{
		Provider:  snap.Provider,
		FetchedAt: models.Timestamp(snap.FetchedAt),
		Center:    models.NewPoint(center),
		RadiusKm:  radiusKm,
		Readings:  out,
	})
}
