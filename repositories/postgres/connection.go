package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/upb/erp-backend/config"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures
const uniqueViolation = "23505"

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return Wrap(db, logger), nil
}

// Wrap adopts an already opened pool
func Wrap(db *sql.DB, logger *zap.Logger) *DB {
	return &DB{
		DB:     db,
		logger: logger,
	}
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	// Check if we can query
	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// ScopeTenant marks ctx so that transactions begun from it set the
// app.current_tenant_id setting used by row level security policies
func (db *DB) ScopeTenant(ctx context.Context, tenantID string) context.Context {
	return repositories.WithTenantScope(ctx, tenantID)
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Tenants table
		CREATE TABLE IF NOT EXISTS tenants (
			id VARCHAR(100) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			domain VARCHAR(255) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			settings JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Users table
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, email)
		);

		-- Journal entries table
		CREATE TABLE IF NOT EXISTS journal_entries (
			id VARCHAR(20) PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			date TIMESTAMP NOT NULL,
			description TEXT NOT NULL,
			reference VARCHAR(100),
			total_debit NUMERIC(15, 2) NOT NULL,
			total_credit NUMERIC(15, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'draft',
			created_by VARCHAR(255) NOT NULL,
			approved_by VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Products table
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(20) PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			sku VARCHAR(50) NOT NULL,
			name VARCHAR(200) NOT NULL,
			description TEXT,
			category VARCHAR(50) NOT NULL,
			unit_of_measure VARCHAR(20) NOT NULL DEFAULT 'pcs',
			unit_price NUMERIC(15, 2) NOT NULL,
			cost_price NUMERIC(15, 2) NOT NULL,
			quantity_on_hand INTEGER NOT NULL DEFAULT 0,
			reorder_level INTEGER NOT NULL DEFAULT 10,
			reorder_quantity INTEGER NOT NULL DEFAULT 50,
			location VARCHAR(100),
			barcode VARCHAR(100),
			image_url VARCHAR(500),
			is_active BOOLEAN NOT NULL DEFAULT true,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			created_by VARCHAR(255) NOT NULL,
			updated_by VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, sku)
		);

		-- Employees table
		CREATE TABLE IF NOT EXISTS employees (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			employee_id VARCHAR(50) NOT NULL,
			first_name VARCHAR(100) NOT NULL,
			last_name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL,
			phone VARCHAR(50),
			department VARCHAR(100) NOT NULL,
			position VARCHAR(100) NOT NULL,
			office_location VARCHAR(100),
			hire_date TIMESTAMP NOT NULL,
			salary NUMERIC(15, 2) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(tenant_id, employee_id)
		);

		-- Time-off requests table
		CREATE TABLE IF NOT EXISTS time_off_requests (
			id VARCHAR(20) PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			employee_id VARCHAR(50) NOT NULL,
			type VARCHAR(20) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			days_requested INTEGER NOT NULL,
			reason TEXT NOT NULL,
			emergency_contact VARCHAR(255),
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			business_key VARCHAR(50) NOT NULL UNIQUE,
			process_instance_id VARCHAR(100),
			submitted_by VARCHAR(255) NOT NULL,
			approved_by VARCHAR(255),
			approver_comments TEXT,
			submitted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Stock alerts table
		CREATE TABLE IF NOT EXISTS stock_alerts (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			product_id VARCHAR(20) NOT NULL,
			product_sku VARCHAR(50) NOT NULL,
			current_stock INTEGER NOT NULL,
			reorder_level INTEGER NOT NULL,
			reorder_quantity INTEGER NOT NULL,
			priority VARCHAR(20) NOT NULL,
			event_id VARCHAR(50) NOT NULL UNIQUE,
			acknowledged BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Audit logs table
		CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			tenant_id VARCHAR(100) NOT NULL,
			user_id VARCHAR(255),
			action VARCHAR(100) NOT NULL,
			resource_type VARCHAR(100) NOT NULL,
			resource_id VARCHAR(100),
			details JSONB,
			ip_address VARCHAR(45),
			user_agent TEXT,
			request_id VARCHAR(255),
			status_code INTEGER,
			error_message TEXT,
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
		CREATE INDEX IF NOT EXISTS idx_journal_entries_tenant_date ON journal_entries(tenant_id, date DESC);
		CREATE INDEX IF NOT EXISTS idx_journal_entries_status ON journal_entries(status);
		CREATE INDEX IF NOT EXISTS idx_products_tenant_category ON products(tenant_id, category);
		CREATE INDEX IF NOT EXISTS idx_employees_tenant_department ON employees(tenant_id, department);
		CREATE INDEX IF NOT EXISTS idx_time_off_tenant_employee ON time_off_requests(tenant_id, employee_id);
		CREATE INDEX IF NOT EXISTS idx_stock_alerts_tenant ON stock_alerts(tenant_id, acknowledged);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_tenant_timestamp ON audit_logs(tenant_id, timestamp DESC);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_action ON audit_logs(action);
		CREATE INDEX IF NOT EXISTS idx_audit_logs_request_id ON audit_logs(request_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}

// isUniqueViolation reports whether err is a unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// notFound wraps repositories.ErrNotFound with the missing record
func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repositories.ErrNotFound)
}
