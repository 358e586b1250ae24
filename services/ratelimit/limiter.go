// Package ratelimit implements sliding-window request limiting with an
// in-process backend and a Redis backend behind one interface.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result describes a single admission decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      int64 // unix seconds
	RetryAfter int   // seconds, zero when allowed
}

// Limiter admits or rejects requests for a key within a sliding window.
type Limiter interface {
	// Allow records the request when admitted and reports the decision
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)

	// Reset forgets all requests recorded for key
	Reset(ctx context.Context, key string) error
}

// newResult builds a Result from the number of requests already in the
// window (before this one) and the oldest retained timestamp.
func newResult(allowed bool, limit, count int, now time.Time, window time.Duration, oldest time.Time) Result {
	remaining := limit - count
	if allowed {
		remaining--
	}
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		Reset:     now.Add(window).Unix(),
	}
	if !allowed {
		res.RetryAfter = retryAfter(now, window, oldest)
	}
	return res
}

// retryAfter is the number of whole seconds until the oldest request
// leaves the window, never less than one.
func retryAfter(now time.Time, window time.Duration, oldest time.Time) int {
	if oldest.IsZero() {
		return int(math.Ceil(window.Seconds()))
	}
	wait := int(math.Ceil((window - now.Sub(oldest)).Seconds()))
	if wait < 1 {
		wait = 1
	}
	return wait
}
