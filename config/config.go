package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultJWTSecret is the development signing secret. Production refuses to start with it.
const DefaultJWTSecret = "change-me-in-production"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Tenant        TenantConfig
	Events        EventsConfig
	Workflow      WorkflowConfig
	Sales         SalesConfig
	CORS          CORSConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	InitSchema       bool
}

// RedisConfig holds the shared Redis connection used by the rate limiter and the event stream.
type RedisConfig struct {
	URL string
}

// AuthConfig holds token signing and session cookie settings
type AuthConfig struct {
	JWTSecret       string
	Algorithm       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieName      string
	CookieSecure    bool
	BcryptCost      int

	// BootstrapAdminEmail and BootstrapAdminPassword seed an admin user in
	// every demo tenant when the schema is initialized. Empty password skips it.
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
}

// RouteRule overrides the default rate limit for a path or path prefix.
type RouteRule struct {
	Path     string
	Requests int
	Window   time.Duration
	Key      string // ip, user or tenant; empty means ip
}

// RateLimitConfig holds rate limiter settings
type RateLimitConfig struct {
	Enabled         bool
	Backend         string // memory or redis
	DefaultRequests int
	DefaultWindow   time.Duration
	ExemptPaths     []string
	Rules           []RouteRule
	CleanupInterval time.Duration
}

// TenantConfig holds tenant resolution settings
type TenantConfig struct {
	Store        string // postgres or static
	CacheSize    int
	CacheTTL     time.Duration
	ExcludePaths []string
}

// EventsConfig holds Redis Streams producer/consumer settings
type EventsConfig struct {
	Enabled       bool
	Stream        string
	ConsumerGroup string
	ConsumerName  string
	BlockTimeout  time.Duration
	BatchSize     int64
	MaxLen        int64
}

// WorkflowConfig holds Camunda REST engine settings
type WorkflowConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SalesConfig holds the sales service client settings
type SalesConfig struct {
	BaseURL string
	Timeout time.Duration
}

// CORSConfig holds allowed browser origins
type CORSConfig struct {
	AllowedOrigins []string
}

// AuditConfig holds the async audit worker pool settings
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or console
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
		},
		Database: loadDatabaseConfig(),
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET_KEY", DefaultJWTSecret),
			Algorithm:       getEnv("JWT_ALGORITHM", "HS256"),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 60*time.Minute),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
			CookieName:      getEnv("AUTH_COOKIE_NAME", "auth_token"),
			CookieSecure:    getEnvAsBool("AUTH_COOKIE_SECURE", false),
			BcryptCost:      getEnvAsInt("BCRYPT_ROUNDS", 12),

			BootstrapAdminEmail:    getEnv("BOOTSTRAP_ADMIN_EMAIL", "admin@example.com"),
			BootstrapAdminPassword: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Backend:         getEnv("RATE_LIMIT_BACKEND", "memory"),
			DefaultRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			DefaultWindow:   getEnvAsDuration("RATE_LIMIT_WINDOW", 60*time.Second),
			ExemptPaths:     getEnvAsList("RATE_LIMIT_EXEMPT_PATHS", []string{"/health", "/docs", "/redoc", "/openapi.json", "/metrics"}),
			Rules:           getEnvAsRules("RATE_LIMIT_RULES", defaultRouteRules()),
			CleanupInterval: getEnvAsDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Tenant: TenantConfig{
			Store:     getEnv("TENANT_STORE", "postgres"),
			CacheSize: getEnvAsInt("TENANT_CACHE_SIZE", 1000),
			CacheTTL:  getEnvAsDuration("TENANT_CACHE_TTL", 5*time.Minute),
			ExcludePaths: getEnvAsList("TENANT_EXCLUDE_PATHS", []string{
				"/health", "/docs", "/redoc", "/openapi.json", "/metrics",
				"/api/docs", "/api/redoc", "/api/openapi.json",
			}),
		},
		Events: EventsConfig{
			Enabled:       getEnvAsBool("EVENTS_ENABLED", true),
			Stream:        getEnv("EVENTS_STREAM", "inventory-events"),
			ConsumerGroup: getEnv("EVENTS_CONSUMER_GROUP", "erp-backend"),
			ConsumerName:  getEnv("EVENTS_CONSUMER_NAME", hostname()),
			BlockTimeout:  getEnvAsDuration("EVENTS_BLOCK_TIMEOUT", 5*time.Second),
			BatchSize:     int64(getEnvAsInt("EVENTS_BATCH_SIZE", 10)),
			MaxLen:        int64(getEnvAsInt("EVENTS_STREAM_MAXLEN", 100000)),
		},
		Workflow: WorkflowConfig{
			BaseURL: getEnv("CAMUNDA_REST_URL", "http://localhost:8080/engine-rest"),
			Timeout: getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
		},
		Sales: SalesConfig{
			BaseURL: getEnv("SALES_SERVICE_URL", "http://localhost:8001"),
			Timeout: getEnvAsDuration("HTTP_CLIENT_TIMEOUT", 30*time.Second),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:3001"}),
		},
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 10000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 5),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if c.IsProduction() && c.Auth.JWTSecret == DefaultJWTSecret {
		return fmt.Errorf("JWT_SECRET_KEY must be set in production")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}

	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.DefaultRequests <= 0 || c.RateLimit.DefaultWindow <= 0 {
		return fmt.Errorf("rate limit requests and window must be positive")
	}
	for _, rule := range c.RateLimit.Rules {
		switch rule.Key {
		case "", "ip", "user", "tenant":
		default:
			return fmt.Errorf("rate limit rule %s: unsupported key %q", rule.Path, rule.Key)
		}
	}

	switch c.Tenant.Store {
	case "postgres", "static":
	default:
		return fmt.Errorf("unsupported tenant store %q", c.Tenant.Store)
	}

	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// NeedsRedis reports whether any enabled component talks to Redis.
func (c *Config) NeedsRedis() bool {
	return (c.RateLimit.Enabled && c.RateLimit.Backend == "redis") || c.Events.Enabled
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, strings.TrimPrefix(u.Path, "/"))
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

func loadDatabaseConfig() DatabaseConfig {
	cfg := DatabaseConfig{
		ConnectionString: getEnv("DATABASE_URL", ""),
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		InitSchema:       getEnvAsBool("DB_INIT_SCHEMA", true),
	}
	if cfg.ConnectionString != "" {
		return cfg
	}
	cfg.Host = getEnv("DB_HOST", "localhost")
	cfg.Port = getEnvAsInt("DB_PORT", 5432)
	cfg.User = getEnv("DB_USER", "erp")
	cfg.Password = getEnv("DB_PASSWORD", "erp_password")
	cfg.Database = getEnv("DB_NAME", "erp")
	cfg.SSLMode = getEnv("DB_SSLMODE", "disable")
	return cfg
}

// defaultRouteRules protects the unauthenticated HR directory endpoints.
func defaultRouteRules() []RouteRule {
	return []RouteRule{
		{Path: "/api/hr/employees/public/directory", Requests: 10, Window: time.Minute},
		{Path: "/api/hr/employees/public/contact", Requests: 5, Window: time.Hour},
		{Path: "/api/hr/employees/public/", Requests: 20, Window: time.Minute},
		{Path: "/api/auth/login", Requests: 10, Window: time.Minute},
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 5000)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 5000
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "erp-backend"
	}
	return name
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvAsRules parses "path=requests/window[/key]" pairs, e.g.
// "/api/reports=10/1m,/api/export=2/1h/user". Malformed entries are skipped.
func getEnvAsRules(key string, defaultValue []RouteRule) []RouteRule {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var rules []RouteRule
	for _, item := range strings.Split(valueStr, ",") {
		rule, ok := parseRouteRule(strings.TrimSpace(item))
		if ok {
			rules = append(rules, rule)
		}
	}
	if len(rules) == 0 {
		return defaultValue
	}
	return rules
}

func parseRouteRule(item string) (RouteRule, bool) {
	path, spec, found := strings.Cut(item, "=")
	if !found || path == "" {
		return RouteRule{}, false
	}
	countStr, windowStr, found := strings.Cut(spec, "/")
	if !found {
		return RouteRule{}, false
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 {
		return RouteRule{}, false
	}
	windowStr, key, _ := strings.Cut(windowStr, "/")
	window, err := time.ParseDuration(windowStr)
	if err != nil || window <= 0 {
		return RouteRule{}, false
	}
	return RouteRule{Path: path, Requests: count, Window: window, Key: key}, true
}
