package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/festivo/ticketing/internal/infrastructure/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordsRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Get("/orders/{uuid}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// The chi route pattern keeps label cardinality bounded.
	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/orders/{uuid}", "200"))
	assert.Equal(t, float64(1), count)
}

func TestMetrics_RecordsErrorStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)

	r := chi.NewRouter()
	r.Use(Metrics(metrics))
	r.Post("/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	count := testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/orders", "409"))
	assert.Equal(t, float64(1), count)
}
