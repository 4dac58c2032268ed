package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/greenroute/greenroute/internal/api/models"
	"github.com/greenroute/greenroute/internal/api/response"
	"github.com/greenroute/greenroute/internal/provider/resilience"
	"github.com/greenroute/greenroute/internal/snapshot"
	"github.com/greenroute/greenroute/internal/trafficsignal"
)

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	snapshots *snapshot.Service
	registry  *resilience.Registry
	directory *trafficsignal.Directory
}

// OpsHandlerConfig configures an OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Snapshots *snapshot.Service
	Registry  *resilience.Registry
	Directory *trafficsignal.Directory
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		snapshots: cfg.Snapshots,
		registry:  cfg.Registry,
		directory: cfg.Directory,
	}
}

// HealthCheck handles GET /v1/ops/health, the liveness probe.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Ready as long as at least one
// sensor provider circuit is closed; with every circuit open the engine
// can still score routes, just without fresh air quality data, so that is
// reported as degraded rather than failed.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatusOK
	if h.registry != nil {
		for _, p := range h.registry.GetAllHealth() {
			if !p.IsHealthy() {
				status = models.HealthStatusDegraded
				break
			}
		}
	}

	response.JSON(w, r, http.StatusOK, models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status with per-subsystem and
// per-provider detail.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	now := models.Timestamp(time.Now())
	status := models.SystemStatus{
		Status: models.HealthStatusOK,
		Time:   now,
	}

	if h.snapshots != nil {
		stats := h.snapshots.CacheStats()
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "snapshot-cache",
			Status: models.HealthStatusOK,
			Detail: "entries=" + strconv.Itoa(stats.Entries),
		})
	}
	if h.directory != nil {
		status.Subsystems = append(status.Subsystems, models.SubsystemStatus{
			Name:   "signal-directory",
			Status: models.HealthStatusOK,
			Detail: "signals=" + strconv.Itoa(h.directory.Len()),
		})
	}

	if h.registry != nil {
		for _, p := range h.registry.GetAllHealth() {
			ps := models.ProviderStatus{
				Provider:     p.Name,
				Status:       models.HealthStatusOK,
				CircuitState: p.CircuitState.String(),
				Message:      p.LastError,
			}
			if !p.IsHealthy() {
				ps.Status = models.HealthStatusDegraded
				status.Status = models.HealthStatusDegraded
			}
			if p.CircuitState == gobreaker.StateOpen {
				ps.Status = models.HealthStatusFail
			}
			if p.LastSuccessAt != nil {
				ts := models.Timestamp(*p.LastSuccessAt)
				ps.LastSuccessAt = &ts
			}
			if p.LastFailureAt != nil {
				ts := models.Timestamp(*p.LastFailureAt)
				ps.LastFailureAt = &ts
			}
			status.Providers = append(status.Providers, ps)
		}
	}

	response.JSON(w, r, http.StatusOK, status)
}

