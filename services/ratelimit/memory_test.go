package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestMemoryLimiter(clock *fakeClock) *MemoryLimiter {
	l := NewMemoryLimiter(zap.NewNop())
	l.now = clock.Now
	return l
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestMemoryLimiter(clock)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		res, err := limiter.Allow(ctx, "a", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "call %d should be allowed", i)
		assert.Equal(t, 5-i, res.Remaining)
		assert.Equal(t, 5, res.Limit)
		assert.Equal(t, clock.Now().Add(time.Minute).Unix(), res.Reset)
		assert.Zero(t, res.RetryAfter)
	}

	res, err := limiter.Allow(ctx, "a", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 60, res.RetryAfter)

	clock.Advance(time.Minute)
	res, err = limiter.Allow(ctx, "a", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 4, res.Remaining)
}

func TestMemoryLimiter_RetryAfter(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestMemoryLimiter(clock)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "a", 2, time.Minute)
	clock.Advance(15 * time.Second)
	_, _ = limiter.Allow(ctx, "a", 2, time.Minute)
	clock.Advance(4500 * time.Millisecond)

	res, err := limiter.Allow(ctx, "a", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	// oldest request leaves the window in 40.5s
	assert.Equal(t, 41, res.RetryAfter)

	// after the oldest one leaves, one slot frees up
	clock.Advance(41 * time.Second)
	res, err = limiter.Allow(ctx, "a", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestMemoryLimiter_KeysAreIsolated(t *testing.T) {
	limiter := newTestMemoryLimiter(newFakeClock())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = limiter.Allow(ctx, "a", 3, time.Minute)
	}
	res, _ := limiter.Allow(ctx, "a", 3, time.Minute)
	assert.False(t, res.Allowed)

	res, err := limiter.Allow(ctx, "b", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestMemoryLimiter_Concurrent(t *testing.T) {
	limiter := newTestMemoryLimiter(newFakeClock())
	ctx := context.Background()

	const limit = 50
	var admitted int64
	var wg sync.WaitGroup
	for i := 0; i < limit*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Allow(ctx, "shared", limit, time.Minute)
			if err == nil && res.Allowed {
				atomic.AddInt64(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(limit), admitted)
}

func TestMemoryLimiter_ConcurrentExactlyN(t *testing.T) {
	limiter := newTestMemoryLimiter(newFakeClock())
	ctx := context.Background()

	const n = 20
	results := make(chan Result, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := limiter.Allow(ctx, "k", n, time.Minute)
			results <- res
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[int]bool)
	for res := range results {
		assert.True(t, res.Allowed)
		assert.False(t, seen[res.Remaining], "remaining %d reported twice", res.Remaining)
		seen[res.Remaining] = true
	}
	assert.Len(t, seen, n)
}

func TestMemoryLimiter_Reset(t *testing.T) {
	limiter := newTestMemoryLimiter(newFakeClock())
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "a", 1, time.Minute)
	res, _ := limiter.Allow(ctx, "a", 1, time.Minute)
	assert.False(t, res.Allowed)

	require.NoError(t, limiter.Reset(ctx, "a"))
	res, _ = limiter.Allow(ctx, "a", 1, time.Minute)
	assert.True(t, res.Allowed)

	assert.NoError(t, limiter.Reset(ctx, "never-seen"))
}

func TestMemoryLimiter_CleanupIdle(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestMemoryLimiter(clock)
	ctx := context.Background()

	_, _ = limiter.Allow(ctx, "old", 5, time.Minute)
	clock.Advance(10 * time.Minute)
	_, _ = limiter.Allow(ctx, "fresh", 5, time.Minute)

	assert.Equal(t, 2, limiter.Len())
	assert.Equal(t, 1, limiter.CleanupIdle(5*time.Minute))
	assert.Equal(t, 1, limiter.Len())

	res, _ := limiter.Allow(ctx, "fresh", 5, time.Minute)
	assert.Equal(t, 3, res.Remaining)
}

func TestMemoryLimiter_CleanupKeepsLongWindows(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestMemoryLimiter(clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := limiter.Allow(ctx, "contact", 5, time.Hour)
		require.NoError(t, err)
		require.True(t, res.Allowed)
	}
	res, _ := limiter.Allow(ctx, "contact", 5, time.Hour)
	require.False(t, res.Allowed)

	// the sweep runs with an idle threshold shorter than the hour window
	clock.Advance(5 * time.Minute)
	assert.Zero(t, limiter.CleanupIdle(2*time.Minute))

	res, _ = limiter.Allow(ctx, "contact", 5, time.Hour)
	assert.False(t, res.Allowed)
	assert.Zero(t, res.Remaining)

	// once the hour has passed since the last request the key goes
	clock.Advance(time.Hour + time.Second)
	assert.Equal(t, 1, limiter.CleanupIdle(2*time.Minute))
	assert.Zero(t, limiter.Len())
}

func TestMemoryLimiter_CleanupWorkerStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	limiter := NewMemoryLimiter(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		limiter.StartCleanupWorker(ctx, 10*time.Millisecond, time.Minute)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
