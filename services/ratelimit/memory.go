package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// window holds the request timestamps of one key, oldest first
type window struct {
	mu       sync.Mutex
	stamps   []time.Time
	lastSeen time.Time
	period   time.Duration // window length of the most recent request
	dead     bool          // removed from the map by cleanup
}

// MemoryLimiter keeps sliding windows in process memory. Each key has its
// own lock so unrelated keys never contend.
type MemoryLimiter struct {
	windows sync.Map // key -> *window
	now     func() time.Time
	logger  *zap.Logger
}

// NewMemoryLimiter creates an in-process limiter
func NewMemoryLimiter(logger *zap.Logger) *MemoryLimiter {
	return &MemoryLimiter{
		now:    time.Now,
		logger: logger,
	}
}

// Allow implements Limiter
func (m *MemoryLimiter) Allow(ctx context.Context, key string, limit int, period time.Duration) (Result, error) {
	for {
		v, _ := m.windows.LoadOrStore(key, &window{})
		w := v.(*window)

		w.mu.Lock()
		if w.dead {
			// lost a race with cleanup, retry with a fresh window
			w.mu.Unlock()
			continue
		}
		res := w.allow(m.now(), limit, period)
		w.mu.Unlock()
		return res, nil
	}
}

// allow must be called with w.mu held
func (w *window) allow(now time.Time, limit int, period time.Duration) Result {
	cutoff := now.Add(-period)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}

	count := len(w.stamps)
	allowed := count < limit
	if allowed {
		w.stamps = append(w.stamps, now)
	}
	w.lastSeen = now
	w.period = period

	var oldest time.Time
	if len(w.stamps) > 0 {
		oldest = w.stamps[0]
	}
	return newResult(allowed, limit, count, now, period, oldest)
}

// Reset implements Limiter
func (m *MemoryLimiter) Reset(ctx context.Context, key string) error {
	if v, ok := m.windows.LoadAndDelete(key); ok {
		w := v.(*window)
		w.mu.Lock()
		w.dead = true
		w.stamps = nil
		w.mu.Unlock()
	}
	return nil
}

// Len returns the number of tracked keys
func (m *MemoryLimiter) Len() int {
	n := 0
	m.windows.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

// CleanupIdle drops keys that have seen no request for longer than idle
// and returns how many were removed. A key whose own window is longer than
// idle is kept until that window has fully expired.
func (m *MemoryLimiter) CleanupIdle(idle time.Duration) int {
	now := m.now()
	removed := 0
	m.windows.Range(func(k, v interface{}) bool {
		w := v.(*window)
		w.mu.Lock()
		keep := idle
		if w.period > keep {
			keep = w.period
		}
		if now.Sub(w.lastSeen) > keep {
			w.dead = true
			m.windows.Delete(k)
			removed++
		}
		w.mu.Unlock()
		return true
	})
	return removed
}

// StartCleanupWorker periodically drops idle keys until ctx is cancelled
func (m *MemoryLimiter) StartCleanupWorker(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.Info("started rate limit cleanup worker",
		zap.Duration("interval", interval),
		zap.Duration("idle", idle))

	for {
		select {
		case <-ticker.C:
			if n := m.CleanupIdle(idle); n > 0 {
				m.logger.Debug("removed idle rate limit keys", zap.Int("count", n))
			}
		case <-ctx.Done():
			m.logger.Info("stopping rate limit cleanup worker")
			return
		}
	}
}
