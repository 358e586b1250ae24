package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"strings"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"go.uber.org/zap"
)

// HeaderName is the request and response header carrying the tenant id
const HeaderName = "X-Tenant-ID"

// reservedPrefix marks path segments under /api/ that are never tenant ids
const reservedPrefix = "_"

var (
	// ErrTenantIDMissing is returned when no strategy yields a tenant id
	ErrTenantIDMissing = services.NewReasonError(services.ErrorTypeBadRequest, "tenant_id_missing",
		"Tenant ID is required. Provide via X-Tenant-ID header, subdomain, or URL path")

	// ErrTenantInactive matches the error returned for a disabled tenant
	ErrTenantInactive = services.NewReasonError(services.ErrorTypeForbidden, "tenant_inactive", "tenant is not active")

	// ErrTenantSettingMissing matches the error returned when a required setting is absent
	ErrTenantSettingMissing = services.NewReasonError(services.ErrorTypeForbidden, "tenant_setting_missing", "tenant setting not configured")

	// ErrTenantSettingMismatch matches the error returned when a setting has the wrong value
	ErrTenantSettingMismatch = services.NewReasonError(services.ErrorTypeForbidden, "tenant_setting_mismatch", "tenant setting mismatch")
)

// Strategy extracts a tenant id from a request, returning "" when it has none.
type Strategy func(r *http.Request) string

// FromHeader reads the X-Tenant-ID header.
func FromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(HeaderName))
}

// FromSubdomain returns the first host label when the host has at least
// three labels (subdomain.domain.tld). IP hosts are ignored.
func FromSubdomain(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[0]
}

// FromPath returns {id} for paths shaped /api/{id}/... unless the segment
// starts with the reserved prefix.
func FromPath(r *http.Request) string {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 3 || parts[1] != "api" {
		return ""
	}
	id := parts[2]
	if id == "" || strings.HasPrefix(id, reservedPrefix) {
		return ""
	}
	return id
}

// FromContext builds a strategy reading a tenant id an earlier step put on
// the request context, such as the tenant claim of a verified token.
func FromContext(lookup func(ctx context.Context) string) Strategy {
	return func(r *http.Request) string {
		return lookup(r.Context())
	}
}

// Resolver finds and validates the tenant of a request.
type Resolver struct {
	store      Store
	strategies []Strategy
	names      []string
	logger     *zap.Logger
}

// NewResolver creates a resolver trying header, subdomain, path and then
// the context lookup, in that order. A nil lookup skips the last strategy.
func NewResolver(store Store, lookup func(ctx context.Context) string, logger *zap.Logger) *Resolver {
	r := &Resolver{store: store, logger: logger}
	r.add("header", FromHeader)
	r.add("subdomain", FromSubdomain)
	r.add("path", FromPath)
	if lookup != nil {
		r.add("token", FromContext(lookup))
	}
	return r
}

func (r *Resolver) add(name string, s Strategy) {
	r.names = append(r.names, name)
	r.strategies = append(r.strategies, s)
}

// Extract runs the strategies in order and returns the first non-empty id,
// or "" if none matched.
func (r *Resolver) Extract(req *http.Request) string {
	for i, strategy := range r.strategies {
		if id := strategy(req); id != "" {
			r.logger.Debug("tenant id extracted",
				zap.String("tenant_id", id),
				zap.String("strategy", r.names[i]))
			return id
		}
	}
	return ""
}

// Validate loads the tenant and checks it is active.
func (r *Resolver) Validate(ctx context.Context, tenantID string) (*models.TenantContext, error) {
	t, err := r.store.GetByID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			r.logger.Warn("tenant not found", zap.String("tenant_id", tenantID))
			return nil, services.ErrTenantNotFound.Withf("Tenant '%s' not found", tenantID)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.ErrStoreUnavailable.Withf("tenant store unavailable").Wrap(err)
	}

	if !t.IsActive {
		r.logger.Warn("inactive tenant access attempt", zap.String("tenant_id", tenantID))
		return nil, ErrTenantInactive.Withf("Tenant '%s' is not active", tenantID)
	}

	return t.Context(), nil
}

// Resolve extracts and validates the tenant of a request.
func (r *Resolver) Resolve(req *http.Request) (*models.TenantContext, error) {
	id := r.Extract(req)
	if id == "" {
		r.logger.Debug("no tenant id in request", zap.String("path", req.URL.Path))
		return nil, ErrTenantIDMissing
	}
	return r.Validate(req.Context(), id)
}

// ResolveOptional is Resolve with every error treated as "no tenant".
func (r *Resolver) ResolveOptional(req *http.Request) *models.TenantContext {
	tc, err := r.Resolve(req)
	if err != nil {
		r.logger.Debug("optional tenant not resolved", zap.Error(err))
		return nil
	}
	return tc
}

// CheckSetting verifies that the tenant has the setting key and, when
// expected is non-nil, that its value equals expected.
func CheckSetting(tc *models.TenantContext, key string, expected interface{}) error {
	value, ok := tc.Setting(key)
	if !ok {
		return ErrTenantSettingMissing.Withf("Tenant setting '%s' not configured", key)
	}
	if expected != nil && !settingEquals(value, expected) {
		return ErrTenantSettingMismatch.Withf("Tenant setting '%s' must be %v", key, expected)
	}
	return nil
}

// settingEquals compares loosely so that values decoded from JSON
// (float64, string) match their typed Go counterparts.
func settingEquals(value, expected interface{}) bool {
	if reflect.DeepEqual(value, expected) {
		return true
	}
	return fmt.Sprint(value) == fmt.Sprint(expected)
}
