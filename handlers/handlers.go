package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 1000
)

// decodeAndValidate decodes the JSON body into dst and validates it
func decodeAndValidate(r *http.Request, dst interface{}) error {
	if err := utils.DecodeJSON(r, dst); err != nil {
		return err
	}
	return utils.ValidateStruct(dst)
}

// requestScope returns the validated tenant and the authenticated user of r
func requestScope(r *http.Request) (tenantID, userID string) {
	ctx := r.Context()
	if tc := middleware.GetTenantFromContext(ctx); tc != nil {
		tenantID = tc.TenantID
	}
	return tenantID, middleware.GetUserIDFromContext(ctx)
}

// requireScope is requestScope for routes that must carry a tenant. It
// writes the 400 itself when the tenant is missing.
func requireScope(w http.ResponseWriter, r *http.Request) (tenantID, userID string, ok bool) {
	tenantID, userID = requestScope(r)
	if tenantID == "" {
		_ = utils.WriteBadRequest(w, "Tenant context is required", nil)
		return "", "", false
	}
	return tenantID, userID, true
}

func writeResponse(w http.ResponseWriter, status int, data interface{}, logger *zap.Logger) {
	if err := utils.WriteJSON(w, status, utils.SuccessResponse{Data: data}); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// pathParam reads a chi URL parameter
func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
