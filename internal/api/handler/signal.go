package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/geo"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// SignalHandler handles the signal directory and prediction endpoints.
type SignalHandler struct {
	directory *trafficsignal.Directory
	predictor *trafficsignal.Predictor
}

// NewSignalHandler creates a SignalHandler.
func NewSignalHandler(directory *trafficsignal.Directory) *SignalHandler {
	return &SignalHandler{
		directory: directory,
		predictor: trafficsignal.NewPredictor(),
	}
}

// UpsertSignal handles PUT /v1/signals/{signalID}.
func (h *SignalHandler) UpsertSignal(w http.ResponseWriter, r *http.Request) {
	signalID := chi.URLParam(r, "signalID")

	var input models.SignalSpecInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	// The path is authoritative for the id.
	input.ID = signalID

	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	spec := input.Spec()
	_, known := h.lookup(signalID)

	if err := h.directory.Upsert(spec); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}

	out := models.NewSignalSpecOutput(spec)
	if known {
		response.JSON(w, r, http.StatusOK, out)
		return
	}
	response.Created(w, r, "/v1/signals/"+signalID, out)
}

// GetSignal handles GET /v1/signals/{signalID}.
func (h *SignalHandler) GetSignal(w http.ResponseWriter, r *http.Request) {
	signalID := chi.URLParam(r, "signalID")

	spec, ok := h.lookup(signalID)
	if !ok {
		response.NotFound(w, r, "no signal with id "+signalID)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewSignalSpecOutput(spec))
}

// ListSignals handles GET /v1/signals?lat=&lon=&radiusKm= and returns the
// registered signals near a point, closest first.
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, errLon := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if errLat != nil || errLon != nil {
		response.BadRequest(w, r, "lat and lon query parameters are required", nil)
		return
	}

	radiusKm := 5.0
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

	nearby := h.directory.NearLocation(center, radiusKm)
	signals := make([]models.SignalSpecOutput, len(nearby))
	for i, spec := range nearby {
		signals[i] = models.NewSignalSpecOutput(spec)
	}
	response.JSON(w, r, http.StatusOK, models.SignalListResponse{Signals: signals})
}

// Predict handles POST /v1/signals:predict.
func (h *SignalHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var input models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	spec, err := h.directory.Get(input.SignalID)
	if err != nil {
		if errors.Is(err, trafficsignal.ErrUnknownSignal) {
			response.NotFound(w, r, "no signal with id "+input.SignalID)
			return
		}
		response.InternalError(w, r, "signal lookup failed")
		return
	}

	at := time.Now()
	if input.At != nil {
		at = input.At.Time()
	}
	if input.TravelSeconds != nil {
		at = at.Add(time.Duration(*input.TravelSeconds * float64(time.Second)))
	}

	var pred trafficsignal.Prediction
	if input.DistanceMeters != nil {
		pred = h.predictor.PredictApproach(spec, at, *input.DistanceMeters)
	} else {
		pred = h.predictor.Predict(spec, at)
	}

	response.JSON(w, r, http.StatusOK, models.NewPredictionOutput(pred))
}

func (h *SignalHandler) lookup(id string) (trafficsignal.Spec, bool) {
	spec, err := h.directory.Get(id)
	return spec, err == nil
}
