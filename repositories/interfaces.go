package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/erp-backend/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction, scoped to the tenant in ctx if any
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// TenantRepository handles tenant data operations
type TenantRepository interface {
	// Create creates a new tenant
	Create(ctx context.Context, tenant *models.Tenant) error

	// GetByID retrieves a tenant by ID
	GetByID(ctx context.Context, id string) (*models.Tenant, error)

	// List retrieves all tenants
	List(ctx context.Context) ([]*models.Tenant, error)
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByEmail retrieves a user by email, within tenantID unless it is empty
	GetByEmail(ctx context.Context, tenantID, email string) (*models.User, error)
}

// JournalEntryRepository handles journal entry data operations
type JournalEntryRepository interface {
	Create(ctx context.Context, entry *models.JournalEntry) error
	GetByID(ctx context.Context, tenantID, id string) (*models.JournalEntry, error)
	List(ctx context.Context, tenantID string, filter models.JournalEntryFilter) ([]*models.JournalEntry, error)
	Update(ctx context.Context, entry *models.JournalEntry) error
}

// ProductRepository handles product data operations
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, tenantID, id string) (*models.Product, error)
	GetBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error)
	List(ctx context.Context, tenantID string, filter models.ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, product *models.Product) error

	// Delete removes the product row
	Delete(ctx context.Context, tenantID, id string) error

	// LowStock lists active products at or below their reorder level
	LowStock(ctx context.Context, tenantID string, limit int) ([]*models.Product, error)

	// Statistics summarizes the tenant's catalogue
	Statistics(ctx context.Context, tenantID string) (*models.ProductStatistics, error)
}

// EmployeeRepository handles employee data operations
type EmployeeRepository interface {
	Create(ctx context.Context, employee *models.Employee) error

	// GetByEmployeeID retrieves an employee by business identifier
	GetByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error)

	List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error)
	Update(ctx context.Context, employee *models.Employee) error
	Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error)
}

// TimeOffRepository handles time-off request data operations
type TimeOffRepository interface {
	Create(ctx context.Context, req *models.TimeOffRequest) error
	GetByID(ctx context.Context, tenantID, id string) (*models.TimeOffRequest, error)
	List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error)
	Update(ctx context.Context, req *models.TimeOffRequest) error

	// ListForYear retrieves an employee's requests starting in year
	ListForYear(ctx context.Context, tenantID, employeeID string, year int) ([]*models.TimeOffRequest, error)
}

// StockAlertRepository handles stock alert data operations
type StockAlertRepository interface {
	Create(ctx context.Context, alert *models.StockAlert) error

	// ListOpen retrieves unacknowledged alerts, newest first
	ListOpen(ctx context.Context, tenantID string, limit int) ([]*models.StockAlert, error)
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// List retrieves audit logs matching filter, newest first
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// Repositories groups every repository
type Repositories struct {
	Tenants        TenantRepository
	Users          UserRepository
	JournalEntries JournalEntryRepository
	Products       ProductRepository
	Employees      EmployeeRepository
	TimeOff        TimeOffRepository
	StockAlerts    StockAlertRepository
	AuditLogs      AuditRepository
}

type tenantScopeKey struct{}

// WithTenantScope marks ctx so that transactions begun from it are scoped
// to tenantID
func WithTenantScope(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantScopeKey{}, tenantID)
}

// TenantScopeFromContext returns the tenant scope set by WithTenantScope
func TenantScopeFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantScopeKey{}).(string)
	return tenantID, ok && tenantID != ""
}
