package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/upb/erp-backend/config"
	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/internal/clients"
	"github.com/upb/erp-backend/internal/events"
	"github.com/upb/erp-backend/internal/observability"
	"github.com/upb/erp-backend/internal/workflow"
	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/repositories/postgres"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/audit"
	"github.com/upb/erp-backend/services/finance"
	"github.com/upb/erp-backend/services/hr"
	"github.com/upb/erp-backend/services/inventory"
	"github.com/upb/erp-backend/services/ratelimit"
	"github.com/upb/erp-backend/services/tenant"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Redis   redis.UniversalClient
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repositories
	RepoFactory *postgres.RepositoryFactory
	Repos       *repositories.Repositories
	TxManager   repositories.TransactionManager

	// Request pipeline
	Tokens         *auth.TokenService
	TenantStore    tenant.Store
	TenantResolver *tenant.Resolver
	Limiter        ratelimit.Limiter
	RateRules      *ratelimit.Rules

	AuthMiddleware      *middleware.AuthMiddleware
	TenantMiddleware    *middleware.TenantMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware

	// Background components with a Start/Stop lifecycle
	Audit     *audit.AuditService
	Publisher events.Publisher
	Consumer  *events.Consumer
	Workflow  *workflow.Client
	Sales     *clients.SalesClient

	// Domain services
	AuthService *services.AuthService
	Finance     *finance.Service
	Inventory   *inventory.Service
	Employees   *hr.EmployeeService
	TimeOff     *hr.TimeOffService

	mu            sync.Mutex
	started       bool
	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
}

// NewDependencies opens the database and, when a component needs it, redis,
// then wires every component.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	factory, err := postgres.NewRepositoryFactory(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	var rdb redis.UniversalClient
	if cfg.NeedsRedis() {
		rdb, err = openRedis(ctx, cfg.Redis)
		if err != nil {
			_ = factory.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
	}

	deps, err := NewDependenciesWith(ctx, cfg, factory.GetDB(), rdb, logger)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = factory.Close()
		return nil, err
	}
	return deps, nil
}

// NewDependenciesWith wires every component over already opened connections.
// rdb may be nil when neither the redis rate limiter nor events are enabled.
func NewDependenciesWith(ctx context.Context, cfg *config.Config, db *postgres.DB, rdb redis.UniversalClient, logger *zap.Logger) (*Dependencies, error) {
	if cfg.NeedsRedis() && rdb == nil {
		return nil, errors.New("redis client required by rate limiter or events")
	}

	d := &Dependencies{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	d.initRepositories()

	if cfg.Database.InitSchema {
		if err := d.DB.InitSchema(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		if err := d.seedDemoData(ctx); err != nil {
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	if err := d.initAuth(); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	d.initTenancy()
	if err := d.initRateLimiting(); err != nil {
		return nil, fmt.Errorf("failed to initialize rate limiting: %w", err)
	}
	d.initIntegrations()
	d.initServices()

	logger.Info("all dependencies initialized successfully",
		zap.String("environment", cfg.Environment),
		zap.String("tenant_store", cfg.Tenant.Store),
		zap.String("rate_limit_backend", cfg.RateLimit.Backend),
		zap.Bool("events_enabled", cfg.Events.Enabled))
	return d, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.RepoFactory = postgres.NewRepositoryFactoryFromDB(d.DB, d.Logger)
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

// initAuth creates the token service and the guard middleware
func (d *Dependencies) initAuth() error {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     d.Config.Auth.JWTSecret,
		Algorithm:  d.Config.Auth.Algorithm,
		AccessTTL:  d.Config.Auth.AccessTokenTTL,
		RefreshTTL: d.Config.Auth.RefreshTokenTTL,
	})
	if err != nil {
		return err
	}
	d.Tokens = tokens
	d.AuthMiddleware = middleware.NewAuthMiddleware(tokens, d.Config.Auth.CookieName, d.Metrics, d.Logger)
	return nil
}

// initTenancy selects the tenant store and builds the resolver
func (d *Dependencies) initTenancy() {
	switch d.Config.Tenant.Store {
	case "static":
		d.TenantStore = tenant.NewDemoStore()
	default:
		d.TenantStore = tenant.NewCachedStore(d.Repos.Tenants, d.Config.Tenant.CacheSize, d.Config.Tenant.CacheTTL)
	}
	d.TenantResolver = tenant.NewResolver(d.TenantStore, middleware.TenantIDFromClaims, d.Logger)
	d.TenantMiddleware = middleware.NewTenantMiddleware(d.TenantResolver, d.DB, d.Config.Tenant.ExcludePaths, d.Logger)
}

// initRateLimiting selects the limiter backend and builds the rule set
func (d *Dependencies) initRateLimiting() error {
	cfg := d.Config.RateLimit
	switch cfg.Backend {
	case "redis":
		d.Limiter = ratelimit.NewRedisLimiter(d.Redis, d.Logger)
	default:
		d.Limiter = ratelimit.NewMemoryLimiter(d.Logger)
	}

	rules := make([]ratelimit.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		keyFunc, err := ratelimit.KeyFuncFor(r.Key, d.AuthMiddleware.Subject)
		if err != nil {
			return err
		}
		rules = append(rules, ratelimit.Rule{Path: r.Path, Requests: r.Requests, Window: r.Window, KeyFunc: keyFunc})
	}
	d.RateRules = ratelimit.NewRules(
		ratelimit.Rule{Requests: cfg.DefaultRequests, Window: cfg.DefaultWindow},
		cfg.ExemptPaths,
		rules...,
	)
	d.RateLimitMiddleware = middleware.NewRateLimitMiddleware(d.Limiter, d.RateRules, d.Metrics, d.Logger)
	return nil
}

// initIntegrations creates the audit pool, the event stream, the workflow
// client and the sales client. None of them is started here.
func (d *Dependencies) initIntegrations() {
	d.Audit = audit.NewAuditService(d.Repos.AuditLogs, d.Logger, audit.Config{
		BufferSize:  d.Config.Audit.BufferSize,
		WorkerCount: d.Config.Audit.WorkerCount,
	})

	d.Workflow = workflow.NewClient(workflow.Config{
		BaseURL: d.Config.Workflow.BaseURL,
		Timeout: d.Config.Workflow.Timeout,
	}, d.Logger)

	var notifier events.SalesNotifier
	if d.Config.Sales.BaseURL != "" {
		d.Sales = clients.NewSalesClient(d.Config.Sales.BaseURL, d.Config.Sales.Timeout, d.Logger)
		notifier = d.Sales
	}

	if !d.Config.Events.Enabled {
		d.Publisher = events.NopPublisher{}
		return
	}

	ev := d.Config.Events
	d.Publisher = events.NewProducer(d.Redis, events.ProducerConfig{
		Stream: ev.Stream,
		MaxLen: ev.MaxLen,
	}, d.Metrics, d.Logger)

	d.Consumer = events.NewConsumer(d.Redis, events.ConsumerConfig{
		Stream:    ev.Stream,
		Group:     ev.ConsumerGroup,
		Name:      ev.ConsumerName,
		Block:     ev.BlockTimeout,
		BatchSize: ev.BatchSize,
	}, d.Metrics, d.Logger)
	d.Consumer.Register(events.LowStock, events.NewLowStockHandler(d.Repos.StockAlerts, notifier, d.Logger).Handle)
}

// initServices creates the domain services
func (d *Dependencies) initServices() {
	d.AuthService = services.NewAuthService(d.Repos.Users, d.Tokens, d.Audit, d.Logger)
	d.Finance = finance.NewService(d.Repos.JournalEntries, d.Audit, d.Logger)
	d.Inventory = inventory.NewService(d.Repos.Products, d.TxManager, d.Publisher, d.Audit, d.Logger)
	d.Employees = hr.NewEmployeeService(d.Repos.Employees, d.Audit, d.Logger)
	d.TimeOff = hr.NewTimeOffService(d.Repos.TimeOff, d.Repos.Employees, d.Workflow, d.Audit, d.Logger)
}

// Start starts the background components: the audit pool, the workflow
// client, the event consumer and the cleanup workers.
func (d *Dependencies) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return nil
	}

	if err := d.Audit.Start(); err != nil {
		return fmt.Errorf("failed to start audit service: %w", err)
	}
	d.Workflow.Start()
	if d.Consumer != nil {
		if err := d.Consumer.Start(ctx); err != nil {
			d.Workflow.Stop()
			if stopErr := d.Audit.Stop(ctx); stopErr != nil {
				d.Logger.Warn("audit service did not stop after failed start", zap.Error(stopErr))
			}
			return fmt.Errorf("failed to start event consumer: %w", err)
		}
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	d.cancelWorkers = cancel

	if mem, ok := d.Limiter.(*ratelimit.MemoryLimiter); ok && d.Config.RateLimit.CleanupInterval > 0 {
		interval := d.Config.RateLimit.CleanupInterval
		d.goWorker(func() {
			mem.StartCleanupWorker(workerCtx, interval, 2*d.Config.RateLimit.DefaultWindow)
		})
	}
	if cached, ok := d.TenantStore.(*tenant.CachedStore); ok && d.Config.Tenant.CacheTTL > 0 {
		d.goWorker(func() {
			cached.Cache().StartCleanupWorker(d.Config.Tenant.CacheTTL, workerCtx.Done())
		})
	}

	d.started = true
	d.Logger.Info("background components started")
	return nil
}

func (d *Dependencies) goWorker(fn func()) {
	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		fn()
	}()
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	d.mu.Lock()
	if d.started {
		d.cancelWorkers()
		d.workers.Wait()

		if d.Consumer != nil {
			if err := d.Consumer.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop event consumer: %w", err))
			}
		}
		d.Workflow.Stop()
		if err := d.Audit.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
		d.started = false
	}
	d.mu.Unlock()

	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
