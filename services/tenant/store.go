package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
)

// Store looks up tenant records by id. Implementations return
// repositories.ErrNotFound when the id is unknown.
type Store interface {
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
}

// StaticStore serves a fixed set of tenants from memory. It backs local
// development and tests when no database is configured.
type StaticStore struct {
	mu      sync.RWMutex
	tenants map[string]*models.Tenant
}

// NewStaticStore creates a store holding the given tenants
func NewStaticStore(tenants ...*models.Tenant) *StaticStore {
	s := &StaticStore{tenants: make(map[string]*models.Tenant, len(tenants))}
	for _, t := range tenants {
		s.tenants[t.ID] = t
	}
	return s
}

// NewDemoStore returns a static store seeded with the demo tenants
func NewDemoStore() *StaticStore {
	return NewStaticStore(DemoTenants()...)
}

// DemoTenants returns the tenants seeded in development: two active
// tenants and one inactive one.
func DemoTenants() []*models.Tenant {
	acme := models.NewTenant("tenant-1", "Acme Corporation", "acme.erp.com", map[string]interface{}{
		"timezone":        "UTC",
		"currency":        "USD",
		"premium_enabled": true,
	})
	techcorp := models.NewTenant("tenant-2", "TechCorp Inc", "techcorp.erp.com", map[string]interface{}{
		"timezone": "EST",
		"currency": "USD",
	})
	inactive := models.NewTenant("tenant-3", "Inactive Tenant", "inactive.erp.com", nil)
	inactive.IsActive = false

	return []*models.Tenant{acme, techcorp, inactive}
}

// GetByID returns a copy of the tenant so callers cannot mutate the store
func (s *StaticStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, fmt.Errorf("tenant %s: %w", id, repositories.ErrNotFound)
	}
	cp := *t
	cp.Settings = make(map[string]interface{}, len(t.Settings))
	for k, v := range t.Settings {
		cp.Settings[k] = v
	}
	return &cp, nil
}

// Put adds or replaces a tenant
func (s *StaticStore) Put(t *models.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[t.ID] = t
}

// CachedStore fronts another store with an LRU cache. Misses and lookup
// errors are not cached.
type CachedStore struct {
	next  Store
	cache *Cache
}

// NewCachedStore wraps next with a cache of the given size and TTL
func NewCachedStore(next Store, maxSize int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: NewCache(maxSize, ttl),
	}
}

// GetByID serves from the cache when possible
func (s *CachedStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	if t := s.cache.Get(id); t != nil {
		return t, nil
	}
	t, err := s.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, t)
	return t, nil
}

// Invalidate drops a tenant so the next lookup goes to the backing store
func (s *CachedStore) Invalidate(id string) {
	s.cache.Invalidate(id)
}

// Cache returns the underlying cache
func (s *CachedStore) Cache() *Cache {
	return s.cache
}
