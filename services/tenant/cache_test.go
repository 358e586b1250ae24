package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
)

type countingStore struct {
	next  Store
	calls int
}

func (s *countingStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	s.calls++
	return s.next.GetByID(ctx, id)
}

func TestCache_GetSet(t *testing.T) {
	cache := NewCache(10, time.Minute)

	assert.Nil(t, cache.Get("tenant-1"))

	cache.Set("tenant-1", models.NewTenant("tenant-1", "Acme", "acme.erp.com", nil))
	got := cache.Get("tenant-1")
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 0.001)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewCache(2, time.Minute)

	cache.Set("a", models.NewTenant("a", "A", "", nil))
	cache.Set("b", models.NewTenant("b", "B", "", nil))
	cache.Get("a")
	cache.Set("c", models.NewTenant("c", "C", "", nil))

	assert.NotNil(t, cache.Get("a"))
	assert.Nil(t, cache.Get("b"))
	assert.NotNil(t, cache.Get("c"))
}

func TestCache_Expiry(t *testing.T) {
	cache := NewCache(10, time.Minute)
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("a", models.NewTenant("a", "A", "", nil))
	cache.Set("b", models.NewTenant("b", "B", "", nil))

	now = now.Add(2 * time.Minute)
	assert.Nil(t, cache.Get("a"))
	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestCache_InvalidateAndClear(t *testing.T) {
	cache := NewCache(10, time.Minute)
	cache.Set("a", models.NewTenant("a", "A", "", nil))
	cache.Set("b", models.NewTenant("b", "B", "", nil))

	cache.Invalidate("a")
	assert.Nil(t, cache.Get("a"))
	assert.NotNil(t, cache.Get("b"))

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestCachedStore(t *testing.T) {
	backing := &countingStore{next: NewDemoStore()}
	store := NewCachedStore(backing, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tenant, err := store.GetByID(ctx, "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, "Acme Corporation", tenant.Name)
	}
	assert.Equal(t, 1, backing.calls)

	_, err := store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.Equal(t, 3, backing.calls)

	store.Invalidate("tenant-1")
	_, err = store.GetByID(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, 4, backing.calls)
}

func TestStaticStore_ReturnsCopies(t *testing.T) {
	store := NewDemoStore()
	ctx := context.Background()

	first, err := store.GetByID(ctx, "tenant-1")
	require.NoError(t, err)
	first.Settings["currency"] = "EUR"

	second, err := store.GetByID(ctx, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", second.Settings["currency"])

	store.Put(models.NewTenant("tenant-9", "New Tenant", "new.erp.com", nil))
	_, err = store.GetByID(ctx, "tenant-9")
	assert.NoError(t, err)
}
