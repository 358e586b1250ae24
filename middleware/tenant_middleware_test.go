package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/tenant"
	"go.uber.org/zap"
)

type scopeKey struct{}

type recordingScoper struct {
	scoped []string
}

func (s *recordingScoper) ScopeTenant(ctx context.Context, tenantID string) context.Context {
	s.scoped = append(s.scoped, tenantID)
	return context.WithValue(ctx, scopeKey{}, tenantID)
}

type failingStore struct{}

func (failingStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	return nil, errors.New("connection refused")
}

func newTenantMiddleware(t *testing.T, store tenant.Store, scoper TenantScoper) *TenantMiddleware {
	t.Helper()
	resolver := tenant.NewResolver(store, TenantIDFromClaims, zap.NewNop())
	return NewTenantMiddleware(resolver, scoper, []string{"/health", "/docs"}, zap.NewNop())
}

func TestTenantAttach(t *testing.T) {
	m := newTenantMiddleware(t, tenant.NewDemoStore(), nil)

	t.Run("header id is attached and echoed", func(t *testing.T) {
		var got string
		handler := m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetTenantIDFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/finance/accounts", nil)
		req.Header.Set("X-Tenant-ID", "tenant-2")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "tenant-2", got)
		assert.Equal(t, "tenant-2", w.Header().Get("X-Tenant-ID"))
	})

	t.Run("unknown tenant is not rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/finance/accounts", nil)
		req.Header.Set("X-Tenant-ID", "nope")
		w := httptest.NewRecorder()
		m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("excluded paths are skipped", func(t *testing.T) {
		var got string
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Tenant-ID", "tenant-1")
		w := httptest.NewRecorder()
		m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetTenantIDFromContext(r.Context())
		})).ServeHTTP(w, req)

		assert.Empty(t, got)
		assert.Empty(t, w.Header().Get("X-Tenant-ID"))
	})

	t.Run("no id leaves request untouched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = "localhost:8000"
		w := httptest.NewRecorder()
		m.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, GetTenantIDFromContext(r.Context()))
		})).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("X-Tenant-ID"))
	})
}

func TestRequireTenant(t *testing.T) {
	tests := []struct {
		name       string
		store      tenant.Store
		tenantID   string
		wantStatus int
		wantDetail string
	}{
		{name: "active tenant", store: tenant.NewDemoStore(), tenantID: "tenant-1", wantStatus: http.StatusOK},
		{
			name:       "missing tenant",
			store:      tenant.NewDemoStore(),
			wantStatus: http.StatusBadRequest,
			wantDetail: "Tenant ID is required. Provide via X-Tenant-ID header, subdomain, or URL path",
		},
		{
			name:       "unknown tenant",
			store:      tenant.NewDemoStore(),
			tenantID:   "ghost",
			wantStatus: http.StatusNotFound,
			wantDetail: "Tenant 'ghost' not found",
		},
		{
			name:       "inactive tenant",
			store:      tenant.NewDemoStore(),
			tenantID:   "tenant-3",
			wantStatus: http.StatusForbidden,
			wantDetail: "Tenant 'tenant-3' is not active",
		},
		{name: "store failure", store: failingStore{}, tenantID: "tenant-1", wantStatus: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scoper := &recordingScoper{}
			m := newTenantMiddleware(t, tt.store, scoper)

			var tc *models.TenantContext
			var scoped interface{}
			handler := m.RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				tc = GetTenantFromContext(r.Context())
				scoped = r.Context().Value(scopeKey{})
				w.WriteHeader(http.StatusOK)
			}))

			// root path keeps the path strategy out of the way
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = "localhost"
			if tt.tenantID != "" {
				req.Header.Set("X-Tenant-ID", tt.tenantID)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeDetail(t, w))
			}
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, tc)
				assert.Equal(t, tt.tenantID, tc.TenantID)
				assert.Equal(t, tt.tenantID, scoped)
				assert.Equal(t, []string{tt.tenantID}, scoper.scoped)
			} else {
				assert.Nil(t, tc)
				assert.Empty(t, scoper.scoped)
			}
		})
	}
}

func TestRequireTenantFromClaims(t *testing.T) {
	tokens := newTestTokens(t)
	authm := NewAuthMiddleware(tokens, "", nil, zap.NewNop())
	m := newTenantMiddleware(t, tenant.NewDemoStore(), nil)

	var tc *models.TenantContext
	handler := authm.Authenticate(m.RequireTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc = GetTenantFromContext(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "localhost"
	req.Header.Set("Authorization", "Bearer "+issueAccess(t, tokens, auth.RoleViewer, auth.WithTenant("tenant-2")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, tc)
	assert.Equal(t, "tenant-2", tc.TenantID)
	assert.Equal(t, "TechCorp Inc", tc.TenantName)
}

func TestOptionalTenant(t *testing.T) {
	m := newTenantMiddleware(t, tenant.NewDemoStore(), nil)

	for _, id := range []string{"", "ghost", "tenant-3"} {
		t.Run("no tenant for "+id, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = "localhost"
			if id != "" {
				req.Header.Set("X-Tenant-ID", id)
			}
			w := httptest.NewRecorder()
			m.OptionalTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Nil(t, GetTenantFromContext(r.Context()))
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		})
	}

	t.Run("valid tenant attached", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Tenant-ID", "tenant-1")
		w := httptest.NewRecorder()
		m.OptionalTenant(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc := GetTenantFromContext(r.Context())
			require.NotNil(t, tc)
			assert.Equal(t, "tenant-1", tc.TenantID)
		})).ServeHTTP(w, req)
	})
}

func TestRequireSetting(t *testing.T) {
	m := newTenantMiddleware(t, tenant.NewDemoStore(), nil)

	tests := []struct {
		name       string
		tenantID   string
		key        string
		expected   interface{}
		wantStatus int
		wantDetail string
	}{
		{name: "flag enabled", tenantID: "tenant-1", key: "premium_enabled", expected: true, wantStatus: http.StatusOK},
		{
			name:       "flag not configured",
			tenantID:   "tenant-2",
			key:        "premium_enabled",
			expected:   true,
			wantStatus: http.StatusForbidden,
			wantDetail: "Tenant setting 'premium_enabled' not configured",
		},
		{
			name:       "value mismatch",
			tenantID:   "tenant-2",
			key:        "timezone",
			expected:   "UTC",
			wantStatus: http.StatusForbidden,
			wantDetail: "Tenant setting 'timezone' must be UTC",
		},
		{name: "presence only", tenantID: "tenant-2", key: "currency", wantStatus: http.StatusOK},
		{name: "no tenant", key: "currency", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Host = "localhost"
			if tt.tenantID != "" {
				req.Header.Set("X-Tenant-ID", tt.tenantID)
			}
			w := httptest.NewRecorder()
			m.RequireSetting(tt.key, tt.expected)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeDetail(t, w))
			}
		})
	}
}
