package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 5000, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "erp", cfg.Database.User)
				assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
				assert.Equal(t, "HS256", cfg.Auth.Algorithm)
				assert.Equal(t, 60*time.Minute, cfg.Auth.AccessTokenTTL)
				assert.Equal(t, 30*24*time.Hour, cfg.Auth.RefreshTokenTTL)
				assert.Equal(t, "auth_token", cfg.Auth.CookieName)
				assert.Equal(t, 12, cfg.Auth.BcryptCost)
				assert.Equal(t, "memory", cfg.RateLimit.Backend)
				assert.Equal(t, 100, cfg.RateLimit.DefaultRequests)
				assert.Equal(t, 60*time.Second, cfg.RateLimit.DefaultWindow)
				assert.Contains(t, cfg.RateLimit.ExemptPaths, "/health")
				assert.Len(t, cfg.RateLimit.Rules, 4)
				assert.Equal(t, "postgres", cfg.Tenant.Store)
				assert.Equal(t, "inventory-events", cfg.Events.Stream)
				assert.Equal(t, "http://localhost:8080/engine-rest", cfg.Workflow.BaseURL)
				assert.Equal(t, []string{"http://localhost:3000", "http://localhost:3001"}, cfg.CORS.AllowedOrigins)
			},
		},
		{
			name: "production with explicit secret",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"SERVER_PORT":    "9000",
				"DB_HOST":        "prod-db.example.com",
				"DB_PORT":        "5433",
				"JWT_SECRET_KEY": "a-real-secret",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "prod-db.example.com", cfg.Database.Host)
				assert.Equal(t, 5433, cfg.Database.Port)
				assert.Equal(t, "a-real-secret", cfg.Auth.JWTSecret)
			},
		},
		{
			name: "production with default secret",
			envVars: map[string]string{
				"ENVIRONMENT": "production",
			},
			wantErr: true,
		},
		{
			name: "database url takes precedence",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://u:p@db:5432/erp?sslmode=disable",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "postgres://u:p@db:5432/erp?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, "host=db port=5432 database=erp", cfg.Database.LogString())
			},
		},
		{
			name: "redis rate limit backend and rules",
			envVars: map[string]string{
				"RATE_LIMIT_BACKEND":      "redis",
				"RATE_LIMIT_RULES":        "/api/reports=10/1m, /api/export=2/1h,broken",
				"RATE_LIMIT_EXEMPT_PATHS": "/health,/status",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "redis", cfg.RateLimit.Backend)
				assert.True(t, cfg.NeedsRedis())
				assert.Equal(t, []RouteRule{
					{Path: "/api/reports", Requests: 10, Window: time.Minute},
					{Path: "/api/export", Requests: 2, Window: time.Hour},
				}, cfg.RateLimit.Rules)
				assert.Equal(t, []string{"/health", "/status"}, cfg.RateLimit.ExemptPaths)
			},
		},
		{
			name: "unknown rate limit backend",
			envVars: map[string]string{
				"RATE_LIMIT_BACKEND": "memcached",
			},
			wantErr: true,
		},
		{
			name: "static tenant store",
			envVars: map[string]string{
				"TENANT_STORE":     "static",
				"TENANT_CACHE_TTL": "30s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "static", cfg.Tenant.Store)
				assert.Equal(t, 30*time.Second, cfg.Tenant.CacheTTL)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "console",
				"METRICS_ENABLED": "false",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Database: DatabaseConfig{
			Host:     "localhost",
			User:     "user",
			Database: "db",
		},
		Auth: AuthConfig{
			JWTSecret:       "secret",
			AccessTokenTTL:  time.Hour,
			RefreshTokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Backend:         "memory",
			DefaultRequests: 100,
			DefaultWindow:   time.Minute,
		},
		Tenant:        TenantConfig{Store: "static"},
		Observability: ObservabilityConfig{LogLevel: "info"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name:    "missing database user",
			mutate:  func(c *Config) { c.Database.User = "" },
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JWTSecret = "" },
			wantErr: true,
			errMsg:  "JWT secret is required",
		},
		{
			name: "default secret in production",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Auth.JWTSecret = DefaultJWTSecret
			},
			wantErr: true,
			errMsg:  "JWT_SECRET_KEY must be set",
		},
		{
			name: "unknown rate limit rule key",
			mutate: func(c *Config) {
				c.RateLimit.Rules = append(c.RateLimit.Rules, RouteRule{Path: "/api/x", Requests: 1, Window: time.Minute, Key: "session"})
			},
			wantErr: true,
			errMsg:  `unsupported key "session"`,
		},
		{
			name:    "non positive window",
			mutate:  func(c *Config) { c.RateLimit.DefaultWindow = 0 },
			wantErr: true,
			errMsg:  "rate limit requests and window",
		},
		{
			name:    "unknown tenant store",
			mutate:  func(c *Config) { c.Tenant.Store = "ldap" },
			wantErr: true,
			errMsg:  "unsupported tenant store",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_NeedsRedis(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.NeedsRedis())

	cfg.Events.Enabled = true
	assert.True(t, cfg.NeedsRedis())

	cfg.Events.Enabled = false
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.Backend = "redis"
	assert.True(t, cfg.NeedsRedis())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.NotContains(t, cfg.LogString(), "testpass")
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{Host: "0.0.0.0", Port: 5000}
	assert.Equal(t, "0.0.0.0:5000", cfg.Address())
}

func TestParseRouteRule(t *testing.T) {
	tests := []struct {
		item string
		want RouteRule
		ok   bool
	}{
		{"/api/x=5/1h", RouteRule{Path: "/api/x", Requests: 5, Window: time.Hour}, true},
		{"/api/x=0/1h", RouteRule{}, false},
		{"/api/x=5", RouteRule{}, false},
		{"=5/1m", RouteRule{}, false},
		{"/api/x=5/soon", RouteRule{}, false},
		{"/api/x=5/1h/user", RouteRule{Path: "/api/x", Requests: 5, Window: time.Hour, Key: "user"}, true},
		{"/api/x=5/soon/user", RouteRule{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.item, func(t *testing.T) {
			got, ok := parseRouteRule(tt.item)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "42", 10, 42},
		{"empty value", "", 10, 10},
		{"invalid int", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_INT", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "true", false, true},
		{"false", "false", true, false},
		{"empty value", "", true, true},
		{"invalid bool", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_BOOL", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_DURATION", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"a"}, getEnvAsList("TEST_LIST", []string{"a"}))

	os.Setenv("TEST_LIST", " x , ,y")
	assert.Equal(t, []string{"x", "y"}, getEnvAsList("TEST_LIST", nil))
}
