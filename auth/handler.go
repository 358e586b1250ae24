// Package auth serves the login, refresh, logout and current-user endpoints.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/upb/erp-backend/handlers"
	internalauth "github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// LoginService checks credentials and refreshes token pairs
type LoginService interface {
	Login(ctx context.Context, tenantID, email, password string) (*internalauth.TokenPair, *models.User, error)
	Refresh(ctx context.Context, refreshToken string) (*internalauth.TokenPair, error)
}

// LoginRequest is the body of POST /api/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /api/auth/refresh
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CurrentUser describes the caller of GET /api/auth/me
type CurrentUser struct {
	UserID      string                    `json:"user_id"`
	Email       string                    `json:"email"`
	Role        internalauth.Role         `json:"role"`
	TenantID    string                    `json:"tenant_id,omitempty"`
	ExpiresAt   *time.Time                `json:"expires_at,omitempty"`
	Permissions []internalauth.Permission `json:"permissions"`
}

// Options configures the session cookie
type Options struct {
	CookieName string
	Secure     bool
	// MaxAge of the cookie, normally the access token TTL
	MaxAge time.Duration
}

// Handler handles token authentication endpoints
type Handler struct {
	service LoginService
	opts    Options
	logger  *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(service LoginService, opts Options, logger *zap.Logger) *Handler {
	if opts.CookieName == "" {
		opts.CookieName = middleware.DefaultAuthCookieName
	}
	return &Handler{
		service: service,
		opts:    opts,
		logger:  logger,
	}
}

// HandleLogin checks the credentials, returns a token pair and sets the
// access token cookie
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		handlers.HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		handlers.HandleValidationError(w, err, h.logger)
		return
	}

	var tenantID string
	if tc := middleware.GetTenantFromContext(r.Context()); tc != nil {
		tenantID = tc.TenantID
	}

	pair, user, err := h.service.Login(r.Context(), tenantID, req.Email, req.Password)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user logged in",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID))

	h.setSessionCookie(w, pair.AccessToken)
	_ = utils.WriteOK(w, pair)
}

// HandleRefresh exchanges a refresh token for a new pair
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		handlers.HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		handlers.HandleValidationError(w, err, h.logger)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handlers.HandleServiceError(w, err, h.logger)
		return
	}

	h.setSessionCookie(w, pair.AccessToken)
	_ = utils.WriteOK(w, pair)
}

// HandleLogout clears the session cookie
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	_ = utils.WriteOK(w, map[string]string{"message": "Logged out"})
}

// HandleMe returns the claims of the verified token
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return
	}

	me := CurrentUser{
		UserID:      claims.Subject,
		Email:       claims.Email,
		Role:        claims.Role,
		TenantID:    claims.TenantID,
		Permissions: internalauth.PermissionsFor(claims.Role),
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		me.ExpiresAt = &exp
	}
	_ = utils.WriteOK(w, me)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
