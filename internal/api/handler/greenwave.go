package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/greenwave"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// GreenWaveHandler handles corridor timing endpoints.
type GreenWaveHandler struct {
	calculator *greenwave.Calculator
	directory  *trafficsignal.Directory
}

// NewGreenWaveHandler creates a GreenWaveHandler.
func NewGreenWaveHandler(calculator *greenwave.Calculator, directory *trafficsignal.Directory) *GreenWaveHandler {
	return &GreenWaveHandler{calculator: calculator, directory: directory}
}

// Offset handles POST /v1/greenwave:offset.
func (h *GreenWaveHandler) Offset(w http.ResponseWriter, r *http.Request) {
	var input models.OffsetRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	specs, ok := h.resolve(w, r, []string{input.FromSignalID, input.ToSignalID})
	if !ok {
		return
	}

	offset, err := h.calculator.Offset(specs[0], specs[1], input.SpeedKmh)
	if err != nil {
		h.writeCalcError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.OffsetResponse{
		FromSignalID:  input.FromSignalID,
		ToSignalID:    input.ToSignalID,
		SpeedKmh:      input.SpeedKmh,
		DistanceKm:    specs[0].Location.DistanceKm(specs[1].Location),
		OffsetSeconds: offset,
	})
}

// Corridor handles POST /v1/greenwave:corridor.
func (h *GreenWaveHandler) Corridor(w http.ResponseWriter, r *http.Request) {
	var input models.CorridorRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	specs, ok := h.resolve(w, r, input.SignalIDs)
	if !ok {
		return
	}

	timing, err := h.calculator.OptimizeCorridor(specs, input.SpeedKmh)
	if err != nil {
		h.writeCalcError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewCorridorResponse(timing))
}

// Progression handles POST /v1/greenwave:progression.
func (h *GreenWaveHandler) Progression(w http.ResponseWriter, r *http.Request) {
	var input models.ProgressionRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	specs, ok := h.resolve(w, r, input.SignalIDs)
	if !ok {
		return
	}

	report, err := h.calculator.SimulateProgression(specs, startOrNow(input.StartAt), input.SpeedKmh)
	if err != nil {
		h.writeCalcError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewProgressionResponse(report))
}

// Bandwidth handles POST /v1/greenwave:bandwidth.
func (h *GreenWaveHandler) Bandwidth(w http.ResponseWriter, r *http.Request) {
	var input models.BandwidthRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}
	if fieldErrs := validateInput(input); fieldErrs != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrs)
		return
	}

	speeds := greenwave.SpeedRange(input.MinSpeedKmh, input.MaxSpeedKmh, input.StepKmh)
	if len(speeds) == 0 {
		response.BadRequest(w, r, "speed range is empty", []models.FieldError{
			{Field: "minSpeedKmh", Message: "must be positive and not exceed maxSpeedKmh"},
			{Field: "stepKmh", Message: "must be positive"},
		})
		return
	}

	specs, ok := h.resolve(w, r, input.SignalIDs)
	if !ok {
		return
	}

	report, err := h.calculator.BandwidthAnalysis(specs, startOrNow(input.StartAt), speeds)
	if err != nil {
		h.writeCalcError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewBandwidthResponse(report))
}

// resolve maps signal ids to specs, writing the error response itself on
// failure.
func (h *GreenWaveHandler) resolve(w http.ResponseWriter, r *http.Request, ids []string) ([]trafficsignal.Spec, bool) {
	if len(ids) == 0 {
		response.BadRequest(w, r, "signalIds is required", []models.FieldError{
			{Field: "signalIds", Message: "must not be empty"},
		})
		return nil, false
	}
	for _, id := range ids {
		if id == "" {
			response.BadRequest(w, r, "signal ids must not be empty", nil)
			return nil, false
		}
	}

	specs, err := h.directory.Resolve(ids)
	if err != nil {
		if errors.Is(err, trafficsignal.ErrUnknownSignal) {
			response.NotFound(w, r, "one or more signal ids are not registered")
			return nil, false
		}
		response.InternalError(w, r, "signal lookup failed")
		return nil, false
	}
	return specs, true
}

func (h *GreenWaveHandler) writeCalcError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, greenwave.ErrInvalidSpeed) || errors.Is(err, greenwave.ErrEmptyCorridor) {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	response.InternalError(w, r, "green wave calculation failed")
}

func startOrNow(ts models.Timestamp) time.Time {
	if ts.Time().IsZero() {
		return time.Now()
	}
	return ts.Time()
}
