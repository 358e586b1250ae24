package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/internal/observability"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// TokenVerifier verifies a raw token for an expected token type
type TokenVerifier interface {
	Verify(token string, expected auth.TokenType) (*auth.Claims, error)
}

// DefaultAuthCookieName is the cookie carrying the access token for browser clients
const DefaultAuthCookieName = "auth_token"

// queryTokenParam is honored for compatibility with clients that cannot set headers
const queryTokenParam = "token"

// AccessRule describes what a route requires of the caller. An empty rule
// only requires a valid access token.
type AccessRule struct {
	Permissions []auth.Permission
	// Any accepts any one of Permissions instead of all of them
	Any   bool
	Roles []auth.Role
}

// Permission requires a single permission
func Permission(p auth.Permission) AccessRule {
	return AccessRule{Permissions: []auth.Permission{p}}
}

// AnyOf requires at least one of the permissions
func AnyOf(perms ...auth.Permission) AccessRule {
	return AccessRule{Permissions: perms, Any: true}
}

// AllOf requires every permission
func AllOf(perms ...auth.Permission) AccessRule {
	return AccessRule{Permissions: perms}
}

// RolesIn requires the caller's role to be one of roles
func RolesIn(roles ...auth.Role) AccessRule {
	return AccessRule{Roles: roles}
}

// Check returns a denial message, or "" when the role satisfies the rule
func (a AccessRule) Check(role auth.Role) string {
	if len(a.Roles) > 0 && !auth.RoleIn(role, a.Roles...) {
		return "Access denied. Required roles: " + joinValues(a.Roles)
	}

	switch {
	case len(a.Permissions) == 0:
		return ""
	case len(a.Permissions) == 1:
		if !auth.HasPermission(role, a.Permissions[0]) {
			return "Permission denied. Required permission: " + string(a.Permissions[0])
		}
	case a.Any:
		if !auth.HasAny(role, a.Permissions...) {
			return "Permission denied. Required any of: " + joinValues(a.Permissions)
		}
	default:
		if !auth.HasAll(role, a.Permissions...) {
			return "Permission denied. Required all of: " + joinValues(a.Permissions)
		}
	}
	return ""
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// AuthMiddleware verifies tokens and enforces per-route access rules
type AuthMiddleware struct {
	verifier   TokenVerifier
	cookieName string
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware. metrics may be nil.
func NewAuthMiddleware(verifier TokenVerifier, cookieName string, metrics *observability.Metrics, logger *zap.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = DefaultAuthCookieName
	}
	return &AuthMiddleware{
		verifier:   verifier,
		cookieName: cookieName,
		metrics:    metrics,
		logger:     logger,
	}
}

// ExtractToken finds the access token on a request: the bearer header
// first, then the auth cookie, then the token query parameter. It returns
// the token and where it was found.
func ExtractToken(r *http.Request, cookieName string) (string, string) {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, "header"
			}
		}
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, "cookie"
	}

	if token := r.URL.Query().Get(queryTokenParam); token != "" {
		return token, "query"
	}

	return "", ""
}

// authenticate returns the verified claims of the request, reusing claims
// already attached by an earlier guard. On failure it writes the 401.
func (m *AuthMiddleware) authenticate(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims, true
	}

	requestID := GetRequestIDFromContext(r.Context())

	token, source := ExtractToken(r, m.cookieName)
	if token == "" {
		m.logger.Debug("no token provided",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path))
		m.metrics.RecordAuthFailure(failureReason(auth.ErrNoTokenProvided))
		_ = utils.WriteUnauthorized(w, "Not authenticated")
		return nil, false
	}
	if source == "query" {
		m.logger.Warn("token passed in query string, use the Authorization header instead",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path))
	}

	claims, err := m.verifier.Verify(token, auth.TokenTypeAccess)
	if err != nil {
		m.logger.Warn("token verification failed",
			zap.String("request_id", requestID),
			zap.String("source", source),
			zap.Error(err))
		m.metrics.RecordAuthFailure(failureReason(err))
		_ = utils.WriteUnauthorized(w, "Could not validate credentials")
		return nil, false
	}

	return claims, true
}

// Subject returns the user id of the request's access token, or "" when
// there is no valid token. It never writes a response, so it can key rate
// limits ahead of the guards.
func (m *AuthMiddleware) Subject(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil {
		return claims.Subject
	}
	token, _ := ExtractToken(r, m.cookieName)
	if token == "" {
		return ""
	}
	claims, err := m.verifier.Verify(token, auth.TokenTypeAccess)
	if err != nil {
		return ""
	}
	return claims.Subject
}

// Authenticate requires a valid access token and attaches its claims
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return m.Guard(AccessRule{})(next)
}

// Guard returns middleware that authenticates the caller and enforces rule
func (m *AuthMiddleware) Guard(rule AccessRule) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := m.authenticate(w, r)
			if !ok {
				return
			}

			if msg := rule.Check(claims.Role); msg != "" {
				m.logger.Warn("access denied",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("user_id", claims.Subject),
					zap.String("role", string(claims.Role)),
					zap.String("path", r.URL.Path))
				m.metrics.RecordAuthFailure("forbidden")
				_ = utils.WriteForbidden(w, msg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequirePermission requires a single permission
func (m *AuthMiddleware) RequirePermission(p auth.Permission) func(http.Handler) http.Handler {
	return m.Guard(Permission(p))
}

// RequireAny requires at least one of the permissions
func (m *AuthMiddleware) RequireAny(perms ...auth.Permission) func(http.Handler) http.Handler {
	return m.Guard(AnyOf(perms...))
}

// RequireAll requires all of the permissions
func (m *AuthMiddleware) RequireAll(perms ...auth.Permission) func(http.Handler) http.Handler {
	return m.Guard(AllOf(perms...))
}

// RequireRoles requires the caller's role to be one of roles
func (m *AuthMiddleware) RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return m.Guard(RolesIn(roles...))
}

// failureReason maps verification errors to a metric label
func failureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoTokenProvided):
		return "no_token"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, auth.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, auth.ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, auth.ErrTokenTypeMismatch):
		return "type_mismatch"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	default:
		return "other"
	}
}
