package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Pinger is anything that can report its own health, e.g. the database adapter
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthChecker manages health checks for the service
type HealthChecker struct {
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthChecker creates a HealthChecker over named dependencies
func NewHealthChecker(checks map[string]Pinger) *HealthChecker {
	return &HealthChecker{
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// Check performs health checks and returns the status
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	results := make(map[string]string, len(h.checks))
	overallStatus := "healthy"

	for name, pinger := range h.checks {
		if pinger == nil {
			results[name] = "not configured"
			continue
		}

		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		err := pinger.HealthCheck(checkCtx)
		cancel()

		if err != nil {
			results[name] = "unhealthy: " + err.Error()
			overallStatus = "unhealthy"
		} else {
			results[name] = "healthy"
		}
	}

	return HealthStatus{
		Status:    overallStatus,
		Timestamp: time.Now().UTC(),
		Checks:    results,
	}
}

// HealthHandler returns an HTTP handler for health checks
func (h *HealthChecker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := h.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if status.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		_ = json.NewEncoder(w).Encode(status)
	}
}
