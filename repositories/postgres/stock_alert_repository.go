package postgres

import (
	"context"
	"fmt"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

// StockAlertRepository implements the repositories.StockAlertRepository interface
type StockAlertRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewStockAlertRepository creates a new stock alert repository
func NewStockAlertRepository(db *DB, logger *zap.Logger) repositories.StockAlertRepository {
	return &StockAlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an alert. A redelivered event whose alert already exists
// is ignored.
func (r *StockAlertRepository) Create(ctx context.Context, alert *models.StockAlert) error {
	query := `
		INSERT INTO stock_alerts (
			id, tenant_id, product_id, product_sku, current_stock, reorder_level,
			reorder_quantity, priority, event_id, acknowledged, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		alert.ID,
		alert.TenantID,
		alert.ProductID,
		alert.ProductSKU,
		alert.CurrentStock,
		alert.ReorderLevel,
		alert.ReorderQuantity,
		alert.Priority,
		alert.EventID,
		alert.Acknowledged,
		alert.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}

	r.logger.Debug("stock alert created",
		zap.String("product_id", alert.ProductID),
		zap.String("priority", string(alert.Priority)))
	return nil
}

// ListOpen retrieves unacknowledged alerts, newest first
func (r *StockAlertRepository) ListOpen(ctx context.Context, tenantID string, limit int) ([]*models.StockAlert, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	c.addRaw("acknowledged = false")

	query := `
		SELECT id, tenant_id, product_id, product_sku, current_stock, reorder_level,
		       reorder_quantity, priority, event_id, acknowledged, created_at
		FROM stock_alerts` + c.where() + ` ORDER BY created_at DESC` + c.page(limit, 0)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock alerts: %w", err)
	}
	defer rows.Close()

	alerts := []*models.StockAlert{}
	for rows.Next() {
		alert := &models.StockAlert{}
		if err := rows.Scan(
			&alert.ID,
			&alert.TenantID,
			&alert.ProductID,
			&alert.ProductSKU,
			&alert.CurrentStock,
			&alert.ReorderLevel,
			&alert.ReorderQuantity,
			&alert.Priority,
			&alert.EventID,
			&alert.Acknowledged,
			&alert.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock alert: %w", err)
		}
		alerts = append(alerts, alert)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock alert rows: %w", err)
	}

	return alerts, nil
}
