package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransactionBuilt(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordTransactionBuilt("USDC", "success", true, 0.2)
	m.RecordTransactionBuilt("USDC", "success", true, 0.1)
	m.RecordTransactionBuilt("SOL", "error", false, 0.1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transactionsBuiltTotal.WithLabelValues("USDC", "success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transactionsBuiltTotal.WithLabelValues("SOL", "error", "false")))
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	handler := HTTPMetricsMiddleware(m, "action")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/p/abc/action.json", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("action", "GET", "4xx")))
}

func TestHTTPMetricsMiddleware_NilMetrics(t *testing.T) {
	handler := HTTPMetricsMiddleware(nil, "health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusCodeToString(t *testing.T) {
	assert.Equal(t, "2xx", statusCodeToString(200))
	assert.Equal(t, "3xx", statusCodeToString(302))
	assert.Equal(t, "4xx", statusCodeToString(400))
	assert.Equal(t, "5xx", statusCodeToString(503))
	assert.Equal(t, "unknown", statusCodeToString(99))
}
