package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuditRecorder receives audit logs for authentication attempts
type AuditRecorder interface {
	Record(ctx context.Context, log *models.AuditLog)
}

// TokenIssuer issues and verifies token pairs
type TokenIssuer interface {
	IssuePair(subject, email string, role auth.Role, opts ...auth.IssueOption) (*auth.TokenPair, error)
	Verify(token string, expected auth.TokenType) (*auth.Claims, error)
}

// HashPassword returns the bcrypt hash of password at the default cost
func HashPassword(password string) (string, error) {
	return HashPasswordWithCost(password, bcrypt.DefaultCost)
}

// HashPasswordWithCost returns the bcrypt hash of password. Costs outside
// bcrypt's range fall back to the default.
func HashPasswordWithCost(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// dummyHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)

// AuthService logs users in with email and password and refreshes tokens
type AuthService struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	audit  AuditRecorder
	logger *zap.Logger
}

// NewAuthService creates an AuthService. recorder may be nil.
func NewAuthService(users repositories.UserRepository, tokens TokenIssuer, recorder AuditRecorder, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		audit:  recorder,
		logger: logger,
	}
}

// Login checks the credentials and issues a token pair. When tenantID is set
// the user must belong to that tenant.
func (s *AuthService) Login(ctx context.Context, tenantID, email, password string) (*auth.TokenPair, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, tenantID, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, WrapInternal("failed to load user", err)
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		s.recordFailure(ctx, tenantID, email, "unknown email")
		return nil, nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordFailure(ctx, user.TenantID, email, "wrong password")
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordFailure(ctx, user.TenantID, email, "inactive user")
		return nil, nil, ErrInactiveUser
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID),
		zap.String("role", string(user.Role)))
	if s.audit != nil {
		s.audit.Record(ctx, models.NewAuditLog(user.TenantID, models.AuditActionLoginSucceeded, "user").
			WithUser(user.ID.String()).
			WithResource(user.ID.String()))
	}
	return pair, user, nil
}

// Refresh verifies a refresh token, reloads its user and issues a new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		s.logger.Debug("refresh token rejected", zap.Error(err))
		return nil, NewDomainError(ErrorTypeUnauthorized, "Could not validate credentials", err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, NewDomainError(ErrorTypeUnauthorized, "Could not validate credentials", err)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, NewDomainError(ErrorTypeUnauthorized, "Could not validate credentials", err)
		}
		return nil, WrapInternal("failed to load user", err)
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*auth.TokenPair, error) {
	var opts []auth.IssueOption
	if user.TenantID != "" {
		opts = append(opts, auth.WithTenant(user.TenantID))
	}
	pair, err := s.tokens.IssuePair(user.ID.String(), user.Email, user.Role, opts...)
	if err != nil {
		return nil, WrapInternal("failed to issue tokens", err)
	}
	return pair, nil
}

func (s *AuthService) recordFailure(ctx context.Context, tenantID, email, reason string) {
	s.logger.Warn("login failed",
		zap.String("email", email),
		zap.String("tenant_id", tenantID),
		zap.String("reason", reason))
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.NewAuditLog(tenantID, models.AuditActionLoginFailed, "user").
		WithDetails(map[string]interface{}{"email": email, "reason": reason}))
}
