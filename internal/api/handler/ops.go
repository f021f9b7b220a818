package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/healthbridge/healthbridge/internal/api/models"
	"github.com/healthbridge/healthbridge/internal/api/response"
	"github.com/healthbridge/healthbridge/internal/platform/resilience"
)

// Pinger checks a dependency, e.g. the database pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig holds configuration for an OpsHandler.
type OpsConfig struct {
	Version   string
	BuildTime string
	Breakers  *resilience.Registry

	// Subsystems are pinged by the readiness and status endpoints, by name.
	Subsystems map[string]Pinger
}

// OpsHandler serves liveness, readiness and status.
type OpsHandler struct {
	cfg OpsConfig
}

func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{cfg: cfg}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.cfg.Version,
			"buildTime": h.cfg.BuildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails when any subsystem
// does not answer a ping.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.pingAll(r.Context())
	status := worst(models.HealthStatusOK, subsystems)

	code := http.StatusOK
	if status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
	})
}

// SystemStatus handles GET /v1/ops/status: subsystems plus the circuit
// breaker of every platform adapter.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems := h.pingAll(r.Context())

	var adapters []models.AdapterStatus
	if h.cfg.Breakers != nil {
		for _, b := range h.cfg.Breakers.All() {
			adapters = append(adapters, adapterStatus(b))
		}
	}

	status := worst(models.HealthStatusOK, subsystems)
	for _, a := range adapters {
		if a.Status != models.HealthStatusOK && status == models.HealthStatusOK {
			status = models.HealthStatusDegraded
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:     status,
		Time:       models.Timestamp(time.Now()),
		Subsystems: subsystems,
		Adapters:   adapters,
	})
}

func (h *OpsHandler) pingAll(ctx context.Context) []models.SubsystemStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	out := make([]models.SubsystemStatus, 0, len(h.cfg.Subsystems))
	for name, p := range h.cfg.Subsystems {
		s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
		if err := p.Ping(ctx); err != nil {
			s.Status = models.HealthStatusFail
			s.Detail = err.Error()
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func worst(status models.HealthStatus, subsystems []models.SubsystemStatus) models.HealthStatus {
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			return models.HealthStatusFail
		}
	}
	return status
}

func adapterStatus(b *resilience.Health) models.AdapterStatus {
	s := models.AdapterStatus{
		Name:                b.Name,
		BreakerState:        b.State.String(),
		Requests:            b.Counts.Requests,
		ConsecutiveFailures: b.Counts.ConsecutiveFailures,
		LastSuccessAt:       timestampPtr(b.LastSuccessAt),
		LastFailureAt:       timestampPtr(b.LastFailureAt),
		LastError:           b.LastError,
	}
	switch {
	case b.IsHealthy():
		s.Status = models.HealthStatusOK
	case b.IsDegraded():
		s.Status = models.HealthStatusDegraded
	default:
		s.Status = models.HealthStatusFail
	}
	return s
}

func timestampPtr(t *time.Time) *models.Timestamp {
	if t == nil {
		return nil
	}
	return models.NewTimestamp(*t)
}
