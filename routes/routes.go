package routes

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/erp-backend/app"
	authhandler "github.com/upb/erp-backend/auth"
	"github.com/upb/erp-backend/handlers"
	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/services/audit"
	"github.com/upb/erp-backend/utils"
)

// RouteAccess is the access each protected route requires, keyed by route
// id. An empty rule only requires a valid access token.
var RouteAccess = map[string]middleware.AccessRule{
	"auth.me": {},

	"finance.list":    middleware.Permission(auth.PermViewFinance),
	"finance.create":  middleware.Permission(auth.PermCreateFinance),
	"finance.get":     middleware.Permission(auth.PermViewFinance),
	"finance.update":  middleware.Permission(auth.PermEditFinance),
	"finance.delete":  middleware.Permission(auth.PermDeleteFinance),
	"finance.approve": middleware.Permission(auth.PermApproveFinance),

	"inventory.list":         middleware.Permission(auth.PermViewInventory),
	"inventory.create":       middleware.Permission(auth.PermCreateInventory),
	"inventory.get":          middleware.Permission(auth.PermViewInventory),
	"inventory.get_by_sku":   middleware.Permission(auth.PermViewInventory),
	"inventory.update":       middleware.Permission(auth.PermEditInventory),
	"inventory.delete":       middleware.Permission(auth.PermDeleteInventory),
	"inventory.adjust_stock": middleware.Permission(auth.PermEditInventory),
	"inventory.low_stock":    middleware.Permission(auth.PermViewInventory),
	"inventory.statistics":   middleware.AnyOf(auth.PermViewInventory, auth.PermViewReports),
	"inventory.alerts":       middleware.Permission(auth.PermViewInventory),

	"hr.list":       middleware.Permission(auth.PermViewHR),
	"hr.create":     middleware.Permission(auth.PermCreateHR),
	"hr.get":        middleware.Permission(auth.PermViewHR),
	"hr.update":     middleware.Permission(auth.PermEditHR),
	"hr.delete":     middleware.Permission(auth.PermDeleteHR),
	"hr.statistics": middleware.AnyOf(auth.PermViewHR, auth.PermViewReports),

	"timeoff.submit":  {},
	"timeoff.list":    {},
	"timeoff.get":     {},
	"timeoff.approve": middleware.Permission(auth.PermApproveHR),
	"timeoff.cancel":  {},
	"timeoff.balance": {},
}

// router couples the chi router with the guards so that routes are
// declared by id
type router struct {
	deps *app.Dependencies
}

// protected authenticates the caller, enforces the route's access rule and
// then requires a valid tenant. The tenant is resolved after the guard so
// that the token's tenant claim can be used.
func (rt router) protected(id string) func(http.Handler) http.Handler {
	rule, ok := RouteAccess[id]
	if !ok {
		panic(fmt.Sprintf("routes: no access rule for %q", id))
	}
	guard := rt.deps.AuthMiddleware.Guard(rule)
	requireTenant := rt.deps.TenantMiddleware.RequireTenant
	return func(next http.Handler) http.Handler {
		return guard(requireTenant(next))
	}
}

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	rt := router{deps: deps}

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(deps.Metrics.Instrument)
	r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Tenant-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(audit.CaptureRequest)
	if cfg.RateLimit.Enabled {
		r.Use(deps.RateLimitMiddleware.Handler)
	}
	r.Use(deps.TenantMiddleware.Attach)

	// Service endpoints
	health := handlers.NewHealthHandler(deps.DB.DB, deps.Redis, logger)
	r.Get("/", health.HandleRoot)
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)
	if cfg.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	login := authhandler.NewHandler(deps.AuthService, authhandler.Options{
		CookieName: cfg.Auth.CookieName,
		Secure:     cfg.Auth.CookieSecure,
		MaxAge:     cfg.Auth.AccessTokenTTL,
	}, logger)
	finance := handlers.NewFinanceHandler(deps.Finance, logger)
	inventory := handlers.NewInventoryHandler(deps.Inventory, deps.Repos.StockAlerts, logger)
	employees := handlers.NewHRHandler(deps.Employees, logger)
	timeOff := handlers.NewTimeOffHandler(deps.TimeOff, logger)
	examples := handlers.NewTenantHandler(logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(deps.TenantMiddleware.OptionalTenant).Post("/login", login.HandleLogin)
			r.Post("/refresh", login.HandleRefresh)
			r.Post("/logout", login.HandleLogout)
			r.With(deps.AuthMiddleware.Guard(RouteAccess["auth.me"])).Get("/me", login.HandleMe)
		})

		r.Route("/finance/journal-entries", func(r chi.Router) {
			r.With(rt.protected("finance.list")).Get("/", finance.HandleList)
			r.With(rt.protected("finance.create")).Post("/", finance.HandleCreate)
			r.With(rt.protected("finance.get")).Get("/{id}", finance.HandleGet)
			r.With(rt.protected("finance.update")).Put("/{id}", finance.HandleUpdate)
			r.With(rt.protected("finance.delete")).Delete("/{id}", finance.HandleDelete)
			r.With(rt.protected("finance.approve")).Post("/{id}/approve", finance.HandleApprove)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.With(rt.protected("inventory.alerts")).Get("/alerts", inventory.HandleAlerts)
			r.Route("/products", func(r chi.Router) {
				r.With(rt.protected("inventory.list")).Get("/", inventory.HandleList)
				r.With(rt.protected("inventory.create")).Post("/", inventory.HandleCreate)
				r.With(rt.protected("inventory.low_stock")).Get("/low-stock", inventory.HandleLowStock)
				r.With(rt.protected("inventory.statistics")).Get("/statistics", inventory.HandleStatistics)
				r.With(rt.protected("inventory.get_by_sku")).Get("/sku/{sku}", inventory.HandleGetBySKU)
				r.With(rt.protected("inventory.get")).Get("/{id}", inventory.HandleGet)
				r.With(rt.protected("inventory.update")).Put("/{id}", inventory.HandleUpdate)
				r.With(rt.protected("inventory.delete")).Delete("/{id}", inventory.HandleDelete)
				r.With(rt.protected("inventory.adjust_stock")).Post("/{id}/adjust-stock", inventory.HandleAdjustStock)
			})
		})

		r.Route("/hr", func(r chi.Router) {
			r.Route("/employees", func(r chi.Router) {
				// Public directory: no token, tenant and rate limit only
				r.Group(func(r chi.Router) {
					r.Use(deps.TenantMiddleware.RequireTenant)
					r.Get("/public/directory", employees.HandleDirectory)
					r.Post("/public/contact", employees.HandleContact)
					r.Get("/public/{employeeID}", employees.HandlePublicInfo)
				})

				r.With(rt.protected("hr.list")).Get("/", employees.HandleList)
				r.With(rt.protected("hr.create")).Post("/", employees.HandleCreate)
				r.With(rt.protected("hr.statistics")).Get("/statistics", employees.HandleStatistics)
				r.With(rt.protected("hr.get")).Get("/{employeeID}", employees.HandleGet)
				r.With(rt.protected("hr.update")).Put("/{employeeID}", employees.HandleUpdate)
				r.With(rt.protected("hr.delete")).Delete("/{employeeID}", employees.HandleDelete)
			})

			r.Route("/time-off", func(r chi.Router) {
				r.With(rt.protected("timeoff.submit")).Post("/request", timeOff.HandleSubmit)
				r.With(rt.protected("timeoff.list")).Get("/requests", timeOff.HandleList)
				r.With(rt.protected("timeoff.get")).Get("/requests/{requestID}", timeOff.HandleGet)
				r.With(rt.protected("timeoff.approve")).Post("/requests/{requestID}/approve", timeOff.HandleApprove)
				r.With(rt.protected("timeoff.cancel")).Delete("/requests/{requestID}", timeOff.HandleCancel)
				r.With(rt.protected("timeoff.balance")).Get("/balance/{employeeID}", timeOff.HandleBalance)
			})
		})

		r.Route("/example", func(r chi.Router) {
			r.With(deps.TenantMiddleware.RequireTenant).Get("/tenant-info", examples.HandleTenantInfo)
			r.With(deps.TenantMiddleware.OptionalTenant).Get("/optional-tenant", examples.HandleOptionalTenant)
			r.With(deps.TenantMiddleware.RequireSetting("premium_enabled", true)).Get("/premium-feature", examples.HandlePremiumFeature)
			r.With(deps.TenantMiddleware.RequireTenant).Get("/tenant-settings/{key}", examples.HandleTenantSetting)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	return r
}
