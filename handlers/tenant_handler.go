package handlers

import (
	"net/http"

	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// TenantInfo describes the tenant attached to a request
type TenantInfo struct {
	TenantID   string                 `json:"tenant_id"`
	TenantName string                 `json:"tenant_name"`
	Domain     string                 `json:"domain,omitempty"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
}

// OptionalTenantResponse reports whether a tenant was resolved
type OptionalTenantResponse struct {
	HasTenant bool        `json:"has_tenant"`
	Tenant    *TenantInfo `json:"tenant,omitempty"`
	Message   string      `json:"message"`
}

// TenantSettingResponse carries a single tenant setting
type TenantSettingResponse struct {
	TenantID string      `json:"tenant_id"`
	Key      string      `json:"key"`
	Value    interface{} `json:"value"`
}

// TenantHandler serves the tenant example endpoints under /api/example
type TenantHandler struct {
	logger *zap.Logger
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(logger *zap.Logger) *TenantHandler {
	return &TenantHandler{logger: logger}
}

// HandleTenantInfo handles GET /api/example/tenant-info
func (h *TenantHandler) HandleTenantInfo(w http.ResponseWriter, r *http.Request) {
	tc := middleware.GetTenantFromContext(r.Context())
	if tc == nil {
		_ = utils.WriteBadRequest(w, "Tenant context is required", nil)
		return
	}
	writeResponse(w, http.StatusOK, TenantInfo{
		TenantID:   tc.TenantID,
		TenantName: tc.TenantName,
		Domain:     tc.Domain,
		Settings:   tc.Settings,
	}, h.logger)
}

// HandleOptionalTenant handles GET /api/example/optional-tenant
func (h *TenantHandler) HandleOptionalTenant(w http.ResponseWriter, r *http.Request) {
	tc := middleware.GetTenantFromContext(r.Context())
	if tc == nil {
		writeResponse(w, http.StatusOK, OptionalTenantResponse{
			Message: "No tenant context, serving shared data",
		}, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, OptionalTenantResponse{
		HasTenant: true,
		Tenant:    &TenantInfo{TenantID: tc.TenantID, TenantName: tc.TenantName, Domain: tc.Domain},
		Message:   "Serving data for tenant " + tc.TenantName,
	}, h.logger)
}

// HandlePremiumFeature handles GET /api/example/premium-feature. The route
// is guarded by the premium_enabled setting.
func (h *TenantHandler) HandlePremiumFeature(w http.ResponseWriter, r *http.Request) {
	tc := middleware.GetTenantFromContext(r.Context())
	if tc == nil {
		_ = utils.WriteBadRequest(w, "Tenant context is required", nil)
		return
	}
	writeResponse(w, http.StatusOK, map[string]string{
		"tenant_id": tc.TenantID,
		"feature":   "premium",
		"message":   "Premium feature enabled for " + tc.TenantName,
	}, h.logger)
}

// HandleTenantSetting handles GET /api/example/tenant-settings/{key}
func (h *TenantHandler) HandleTenantSetting(w http.ResponseWriter, r *http.Request) {
	tc := middleware.GetTenantFromContext(r.Context())
	if tc == nil {
		_ = utils.WriteBadRequest(w, "Tenant context is required", nil)
		return
	}

	key := pathParam(r, "key")
	value, ok := tc.Setting(key)
	if !ok {
		_ = utils.WriteNotFound(w, "Setting '"+key+"' not found for tenant "+tc.TenantID)
		return
	}
	writeResponse(w, http.StatusOK, TenantSettingResponse{
		TenantID: tc.TenantID,
		Key:      key,
		Value:    value,
	}, h.logger)
}
