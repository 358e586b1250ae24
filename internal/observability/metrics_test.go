package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	m := NewMetrics()

	r := chi.NewRouter()
	r.Use(m.Instrument)
	r.Get("/api/inventory/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"PRD-1", "PRD-2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/inventory/products/"+id, nil)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	count := counterValue(t, m.requestsTotal.WithLabelValues(http.MethodGet, "/api/inventory/products/{id}", "404"))
	assert.Equal(t, float64(2), count)
	assert.Equal(t, float64(0), gaugeValue(t, m.inFlight))
}

func TestInstrument_DefaultStatus(t *testing.T) {
	m := NewMetrics()
	handler := m.Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, float64(1), counterValue(t, m.requestsTotal.WithLabelValues(http.MethodGet, "unmatched", "200")))
}

func TestCounters(t *testing.T) {
	m := NewMetrics()

	m.RecordRateLimit(RateLimitRejected)
	m.RecordRateLimit(RateLimitRejected)
	m.RecordAuthFailure("token_expired")
	m.RecordEvent("out", "inventory.low_stock", "ok")

	assert.Equal(t, float64(2), counterValue(t, m.rateLimit.WithLabelValues(RateLimitRejected)))
	assert.Equal(t, float64(1), counterValue(t, m.authFailures.WithLabelValues("token_expired")))
	assert.Equal(t, float64(1), counterValue(t, m.events.WithLabelValues("out", "inventory.low_stock", "ok")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordRateLimit(RateLimitAllowed)
		m.RecordAuthFailure("x")
		m.RecordEvent("in", "x", "ok")
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.Instrument(next))
}

func TestHandler(t *testing.T) {
	m := NewMetrics()
	m.RecordRateLimit(RateLimitAllowed)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "erp_rate_limit_decisions_total"))
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"defaults", "", "", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}
