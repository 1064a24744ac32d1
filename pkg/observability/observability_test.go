package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) HealthCheck(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus string
		wantCode   int
	}{
		{
			name:       "all healthy",
			checks:     map[string]Pinger{"database": stubPinger{}},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
		{
			name:       "database down",
			checks:     map[string]Pinger{"database": stubPinger{err: errors.New("connection refused")}},
			wantStatus: "unhealthy",
			wantCode:   http.StatusServiceUnavailable,
		},
		{
			name:       "unconfigured dependency is not a failure",
			checks:     map[string]Pinger{"database": nil},
			wantStatus: "healthy",
			wantCode:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHealthChecker(tt.checks).HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			var status HealthStatus
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Contains(t, status.Checks, "database")
		})
	}
}

func TestMetricsMux(t *testing.T) {
	mux := NewMetricsMux(NewHealthChecker(nil))

	for _, path := range []string{"/metrics", "/health", "/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestHTTPMetricsMiddleware_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(HTTPMetricsMiddleware)
	r.Post("/webhooks/gateway/{endpointID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhooks/gateway/ep-1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRecordDBPool(t *testing.T) {
	RecordDBPool(3, 7, 25)

	assert.Equal(t, 3.0, testutil.ToFloat64(dbPoolConnections.WithLabelValues("acquired")))
	assert.Equal(t, 7.0, testutil.ToFloat64(dbPoolConnections.WithLabelValues("idle")))
	assert.Equal(t, 25.0, testutil.ToFloat64(dbPoolConnections.WithLabelValues("max")))
}
