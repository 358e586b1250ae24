package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/internal/observability"
	"github.com/upb/erp-backend/services/ratelimit"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

type brokenLimiter struct {
	calls int
}

func (b *brokenLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error) {
	b.calls++
	return ratelimit.Result{}, errors.New("redis: connection refused")
}

func (b *brokenLimiter) Reset(ctx context.Context, key string) error {
	return nil
}

func testRules() *ratelimit.Rules {
	return ratelimit.NewRules(
		ratelimit.Rule{Requests: 100, Window: time.Minute},
		[]string{"/health", "/metrics"},
		ratelimit.Rule{Path: "/api/auth/login", Requests: 3, Window: time.Minute},
	)
}

func serve(h http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRateLimitMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("headers on allowed requests", func(t *testing.T) {
		m := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(zap.NewNop()), testRules(), nil, zap.NewNop())
		w := serve(m.Handler(ok), "/api/auth/login", "10.0.0.1")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
		reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, reset, time.Now().Unix())
	})

	t.Run("rejects over the limit", func(t *testing.T) {
		m := NewRateLimitMiddleware(ratelimit.NewMemoryLimiter(zap.NewNop()), testRules(), nil, zap.NewNop())
		h := m.Handler(ok)

		for i := 0; i < 3; i++ {
			require.Equal(t, http.StatusOK, serve(h, "/api/auth/login", "10.0.0.2").Code)
		}

		w := serve(h, "/api/auth/login", "10.0.0.2")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.JSONEq(t, utils.RateLimitedBody, w.Body.String())
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, retry, 1)
		assert.LessOrEqual(t, retry, 60)

		// another client is unaffected
		assert.Equal(t, http.StatusOK, serve(h, "/api/auth/login", "10.0.0.3").Code)
		// another path has its own counter
		assert.Equal(t, http.StatusOK, serve(h, "/api/finance/accounts", "10.0.0.2").Code)
	})

	t.Run("exempt paths bypass the limiter", func(t *testing.T) {
		limiter := &brokenLimiter{}
		m := NewRateLimitMiddleware(limiter, testRules(), nil, zap.NewNop())
		w := serve(m.Handler(ok), "/health", "10.0.0.4")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Zero(t, limiter.calls)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	})

	t.Run("backend failure fails open", func(t *testing.T) {
		limiter := &brokenLimiter{}
		metrics := observability.NewMetrics()
		m := NewRateLimitMiddleware(limiter, testRules(), metrics, zap.NewNop())
		w := serve(m.Handler(ok), "/api/finance/accounts", "10.0.0.5")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, limiter.calls)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

		families, err := metrics.Registry().Gather()
		require.NoError(t, err)
		var errorsCounted float64
		for _, mf := range families {
			if mf.GetName() != "erp_rate_limit_decisions_total" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetName() == "outcome" && label.GetValue() == observability.RateLimitError {
						errorsCounted = metric.GetCounter().GetValue()
					}
				}
			}
		}
		assert.Equal(t, float64(1), errorsCounted)
	})
}
