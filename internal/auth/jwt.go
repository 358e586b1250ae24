package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrNoTokenProvided is returned when a request carries no token at all
	ErrNoTokenProvided = errors.New("no token provided")

	// ErrInvalidSignature is returned when the signature or algorithm does not verify
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrMalformedToken is returned when the token cannot be decoded or lacks required claims
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidRole is returned when the role claim is not a known role
	ErrInvalidRole = errors.New("invalid role claim")

	// ErrTokenTypeMismatch is returned when an access token is used as a refresh token or vice versa
	ErrTokenTypeMismatch = errors.New("token type mismatch")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the verified content of a token.
type Claims struct {
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	Type     TokenType `json:"type"`
	TenantID string    `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// IssueOption customizes a single issued token.
type IssueOption func(*Claims)

// WithTenant embeds the tenant the user belongs to.
func WithTenant(tenantID string) IssueOption {
	return func(c *Claims) {
		c.TenantID = tenantID
	}
}

// TokenService issues and verifies HMAC signed tokens. It keeps no
// server-side session state.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a token service. Only HMAC algorithms are accepted.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = 60 * time.Minute
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	return &TokenService{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// Issue signs a token for subject with issued-at now and expiry now+ttl.
func (s *TokenService) Issue(subject, email string, role Role, tokenType TokenType, ttl time.Duration, opts ...IssueOption) (string, error) {
	now := s.now()
	claims := &Claims{
		Email: email,
		Role:  role,
		Type:  tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	for _, opt := range opts {
		opt(claims)
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueAccess issues an access token with the configured access TTL.
func (s *TokenService) IssueAccess(subject, email string, role Role, opts ...IssueOption) (string, error) {
	return s.Issue(subject, email, role, TokenTypeAccess, s.accessTTL, opts...)
}

// IssueRefresh issues a refresh token with the configured refresh TTL.
func (s *TokenService) IssueRefresh(subject, email string, role Role, opts ...IssueOption) (string, error) {
	return s.Issue(subject, email, role, TokenTypeRefresh, s.refreshTTL, opts...)
}

// IssuePair issues an access and a refresh token for the same identity.
func (s *TokenService) IssuePair(subject, email string, role Role, opts ...IssueOption) (*TokenPair, error) {
	access, err := s.IssueAccess(subject, email, role, opts...)
	if err != nil {
		return nil, err
	}
	refresh, err := s.IssueRefresh(subject, email, role, opts...)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
	}, nil
}

// Verify checks, in order, the signature, the presence of the required
// claims, the role, the token type and the expiry. On failure no claims
// are returned.
func (s *TokenService) Verify(tokenString string, expected TokenType) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoTokenProvided
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrTokenUnverifiable) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if claims.Subject == "" || claims.Email == "" || claims.Role == "" || claims.ExpiresAt == nil {
		return nil, ErrMalformedToken
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, claims.Role)
	}
	if claims.Type != expected {
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrTokenTypeMismatch, expected, claims.Type)
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrTokenExpired
	}

	return claims, nil
}
