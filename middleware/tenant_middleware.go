package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/tenant"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// TenantResolver finds the tenant of a request
type TenantResolver interface {
	Extract(r *http.Request) string
	Resolve(r *http.Request) (*models.TenantContext, error)
	ResolveOptional(r *http.Request) *models.TenantContext
}

// TenantScoper binds a validated tenant to the data layer for the rest of
// the request
type TenantScoper interface {
	ScopeTenant(ctx context.Context, tenantID string) context.Context
}

// TenantIDFromClaims is the context lookup used by the resolver's last
// strategy: the tenant claim of a token verified earlier in the chain.
func TenantIDFromClaims(ctx context.Context) string {
	if claims := GetClaimsFromContext(ctx); claims != nil {
		return claims.TenantID
	}
	return ""
}

// TenantMiddleware attaches tenant information to requests
type TenantMiddleware struct {
	resolver     TenantResolver
	scoper       TenantScoper
	excludePaths []string
	logger       *zap.Logger
}

// NewTenantMiddleware creates a new TenantMiddleware. scoper may be nil.
func NewTenantMiddleware(resolver TenantResolver, scoper TenantScoper, excludePaths []string, logger *zap.Logger) *TenantMiddleware {
	return &TenantMiddleware{
		resolver:     resolver,
		scoper:       scoper,
		excludePaths: excludePaths,
		logger:       logger,
	}
}

func (m *TenantMiddleware) excluded(path string) bool {
	for _, prefix := range m.excludePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Attach is the global, best-effort step: it records the unvalidated tenant
// id on the request and echoes it in the X-Tenant-ID response header. It
// never rejects a request.
func (m *TenantMiddleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tenantID := m.resolver.Extract(r)
		if tenantID == "" {
			m.logger.Debug("no tenant context for request", zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}

		m.logger.Debug("tenant context attached",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.String("tenant_id", tenantID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path))

		w.Header().Set(tenant.HeaderName, tenantID)
		next.ServeHTTP(w, r.WithContext(WithTenantID(r.Context(), tenantID)))
	})
}

// withTenant stores a validated tenant and scopes the data layer to it
func (m *TenantMiddleware) withTenant(ctx context.Context, tc *models.TenantContext) context.Context {
	ctx = WithTenant(ctx, tc)
	ctx = WithTenantID(ctx, tc.TenantID)
	if m.scoper != nil {
		ctx = m.scoper.ScopeTenant(ctx, tc.TenantID)
	}
	return ctx
}

// requireTenant returns the validated tenant, reusing one attached earlier
func (m *TenantMiddleware) requireTenant(w http.ResponseWriter, r *http.Request) (*models.TenantContext, bool) {
	if tc := GetTenantFromContext(r.Context()); tc != nil {
		return tc, true
	}

	tc, err := m.resolver.Resolve(r)
	if err != nil {
		m.logger.Warn("tenant resolution failed",
			zap.String("request_id", GetRequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeTenantError(w, err)
		return nil, false
	}
	return tc, true
}

// RequireTenant rejects requests without a valid, active tenant
func (m *TenantMiddleware) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := m.requireTenant(w, r)
		if !ok {
			return
		}
		w.Header().Set(tenant.HeaderName, tc.TenantID)
		next.ServeHTTP(w, r.WithContext(m.withTenant(r.Context(), tc)))
	})
}

// OptionalTenant attaches the tenant when one resolves and otherwise lets
// the request through without one
func (m *TenantMiddleware) OptionalTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc := m.resolver.ResolveOptional(r)
		if tc == nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(m.withTenant(r.Context(), tc)))
	})
}

// RequireSetting requires a valid tenant whose settings contain key and,
// when expected is non-nil, whose value equals expected
func (m *TenantMiddleware) RequireSetting(key string, expected interface{}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := m.requireTenant(w, r)
			if !ok {
				return
			}
			if err := tenant.CheckSetting(tc, key, expected); err != nil {
				m.logger.Info("tenant setting check failed",
					zap.String("tenant_id", tc.TenantID),
					zap.String("setting", key))
				writeTenantError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(m.withTenant(r.Context(), tc)))
		})
	}
}

func writeTenantError(w http.ResponseWriter, err error) {
	msg := services.PublicMessage(err)
	switch services.GetErrorType(err) {
	case services.ErrorTypeBadRequest:
		_ = utils.WriteBadRequest(w, msg, nil)
	case services.ErrorTypeNotFound:
		_ = utils.WriteNotFound(w, msg)
	case services.ErrorTypeForbidden:
		_ = utils.WriteForbidden(w, msg)
	case services.ErrorTypeUnavailable:
		_ = utils.WriteServiceUnavailable(w, "Tenant store unavailable")
	default:
		_ = utils.WriteInternalServerError(w, "")
	}
}
