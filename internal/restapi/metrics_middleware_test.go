package restapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker.wpgtransit.org/internal/metrics"
)

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	m := metrics.New()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := MetricsHandler(m)(mux)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// ServeMux records the matched pattern on the request, so the label
	// is the route pattern rather than the raw path.
	count := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "GET /api/v1/health", "200"))
	assert.Equal(t, 1.0, count)
}

func TestMetricsMiddlewareNilMetrics(t *testing.T) {
	handler := MetricsHandler(nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/anything", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
