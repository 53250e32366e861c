package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/yellowrose/possrv/pkg/metrics"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware())
	r.Get("/pos/cart/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/pos/cart/{id}", "418"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pos/cart/17", nil))
	after := testutil.ToFloat64(metrics.RequestTotal.WithLabelValues("GET", "/pos/cart/{id}", "418"))

	assert.Equal(t, before+1, after)
}

func TestObserveBackend(t *testing.T) {
	outcome := "ok"
	metrics.ObserveBackend("products", &outcome, time.Now())

	assert.GreaterOrEqual(t, testutil.CollectAndCount(metrics.BackendDuration), 1)
}

func TestHandlerServesRegistry(t *testing.T) {
	rec := httptest.NewRecorder()
	metrics.Handler()(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "possrv_http_requests_in_flight"))
}
