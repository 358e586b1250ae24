package middleware

import (
	"net/http"
	"strconv"

	"github.com/upb/erp-backend/internal/observability"
	"github.com/upb/erp-backend/services/ratelimit"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// RateLimitMiddleware rejects requests over their route's limit
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewRateLimitMiddleware creates a new RateLimitMiddleware. metrics may be nil.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, metrics *observability.Metrics, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		metrics: metrics,
		logger:  logger,
	}
}

// Handler applies the limiter. Backend errors let the request through.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if m.rules.Exempt(path) {
			next.ServeHTTP(w, r)
			return
		}

		rule := m.rules.Match(path)
		key := ratelimit.Key(r, rule)

		res, err := m.limiter.Allow(r.Context(), key, rule.Requests, rule.Window)
		if err != nil {
			m.logger.Error("rate limiter error, allowing request",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("key", key),
				zap.Error(err))
			m.metrics.RecordRateLimit(observability.RateLimitError)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))

		if !res.Allowed {
			m.logger.Warn("rate limit exceeded",
				zap.String("request_id", GetRequestIDFromContext(r.Context())),
				zap.String("key", key),
				zap.String("path", path),
				zap.Int("limit", rule.Requests),
				zap.Duration("window", rule.Window))
			m.metrics.RecordRateLimit(observability.RateLimitRejected)
			h.Set("Retry-After", strconv.Itoa(res.RetryAfter))
			utils.WriteRateLimited(w)
			return
		}

		m.metrics.RecordRateLimit(observability.RateLimitAllowed)
		next.ServeHTTP(w, r)
	})
}
