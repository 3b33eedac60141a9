package handler

import (
	"context"
	"net/http"
	"time"

	"foldervault/internal/httputil"
)

// healthTimeout bounds each dependency check
const healthTimeout = 2 * time.Second

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports liveness of the metadata store and storage backend
type HealthHandler struct {
	checks  map[string]HealthCheck
	version string
}

// NewHealthHandler creates a health handler over the named checks
func NewHealthHandler(version string, checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

type healthReport struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Time    time.Time         `json:"time"`
	Checks  map[string]string `json:"checks"`
}

// Health runs every check
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	report := healthReport{
		Status:  "ok",
		Version: h.version,
		Time:    time.Now().UTC(),
		Checks:  make(map[string]string, len(h.checks)),
	}

	for name, check := range h.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := check(ctx)
		cancel()

		if err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			continue
		}
		report.Checks[name] = "ok"
	}

	if report.Status != "ok" {
		httputil.RespondJSON(w, http.StatusServiceUnavailable, httputil.Envelope{
			Status:  httputil.StatusFail,
			Message: "Service degraded",
			Error:   true,
			Data:    report,
		})
		return
	}

	httputil.RespondSuccess(w, http.StatusOK, "Service healthy", report)
}
