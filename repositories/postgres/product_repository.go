package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

const productColumns = `id, tenant_id, sku, name, description, category, unit_of_measure, unit_price, cost_price,
	quantity_on_hand, reorder_level, reorder_quantity, location, barcode, image_url, is_active, status,
	created_by, updated_by, created_at, updated_at`

// ProductRepository implements the repositories.ProductRepository interface
type ProductRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB, logger *zap.Logger) repositories.ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new product
func (r *ProductRepository) Create(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		p.ID,
		p.TenantID,
		p.SKU,
		p.Name,
		p.Description,
		p.Category,
		p.UnitOfMeasure,
		p.UnitPrice,
		p.CostPrice,
		p.QuantityOnHand,
		p.ReorderLevel,
		p.ReorderQuantity,
		p.Location,
		p.Barcode,
		p.ImageURL,
		p.IsActive,
		p.Status,
		p.CreatedBy,
		p.UpdatedBy,
		p.CreatedAt,
		p.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product sku %s: %w", p.SKU, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	r.logger.Debug("product created",
		zap.String("id", p.ID),
		zap.String("sku", p.SKU),
		zap.String("tenant_id", p.TenantID))
	return nil
}

// GetByID retrieves a product of the tenant
func (r *ProductRepository) GetByID(ctx context.Context, tenantID, id string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2`
	return r.getOne(ctx, query, id, tenantID, id)
}

// GetBySKU retrieves a product of the tenant by SKU
func (r *ProductRepository) GetBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND sku = $2`
	return r.getOne(ctx, query, sku, tenantID, sku)
}

func (r *ProductRepository) getOne(ctx context.Context, query, key string, args ...interface{}) (*models.Product, error) {
	executor := GetExecutor(ctx, r.db)
	p, err := scanProduct(executor.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("product", key)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List retrieves the tenant's products ordered by name
func (r *ProductRepository) List(ctx context.Context, tenantID string, filter models.ProductFilter) ([]*models.Product, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	if filter.Category != nil {
		c.add("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		c.add("status = ?", *filter.Status)
	}
	if filter.IsActive != nil {
		c.add("is_active = ?", *filter.IsActive)
	}
	if filter.NeedsReorder != nil {
		if *filter.NeedsReorder {
			c.addRaw("quantity_on_hand <= reorder_level")
		} else {
			c.addRaw("quantity_on_hand > reorder_level")
		}
	}
	if filter.Search != "" {
		c.add("(name ILIKE ? OR sku ILIKE ? OR description ILIKE ?)", "%"+filter.Search+"%")
	}
	if filter.MinPrice != nil {
		c.add("unit_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		c.add("unit_price <= ?", *filter.MaxPrice)
	}

	query := `SELECT ` + productColumns + ` FROM products` + c.where() +
		` ORDER BY name` + c.page(filter.Limit, filter.Skip)

	return r.queryProducts(ctx, query, c.args...)
}

// Update updates a product
func (r *ProductRepository) Update(ctx context.Context, p *models.Product) error {
	query := `
		UPDATE products
		SET sku = $3, name = $4, description = $5, category = $6, unit_of_measure = $7,
		    unit_price = $8, cost_price = $9, quantity_on_hand = $10, reorder_level = $11,
		    reorder_quantity = $12, location = $13, barcode = $14, image_url = $15,
		    is_active = $16, status = $17, updated_by = $18, updated_at = $19
		WHERE tenant_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		p.TenantID,
		p.ID,
		p.SKU,
		p.Name,
		p.Description,
		p.Category,
		p.UnitOfMeasure,
		p.UnitPrice,
		p.CostPrice,
		p.QuantityOnHand,
		p.ReorderLevel,
		p.ReorderQuantity,
		p.Location,
		p.Barcode,
		p.ImageURL,
		p.IsActive,
		p.Status,
		p.UpdatedBy,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("product sku %s: %w", p.SKU, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	if err := expectOneRow(result, "product", p.ID); err != nil {
		return err
	}

	r.logger.Debug("product updated", zap.String("id", p.ID))
	return nil
}

// Delete removes the product row
func (r *ProductRepository) Delete(ctx context.Context, tenantID, id string) error {
	query := `DELETE FROM products WHERE tenant_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if err := expectOneRow(result, "product", id); err != nil {
		return err
	}

	r.logger.Debug("product deleted", zap.String("id", id))
	return nil
}

// LowStock lists active products at or below their reorder level, lowest stock first
func (r *ProductRepository) LowStock(ctx context.Context, tenantID string, limit int) ([]*models.Product, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	c.addRaw("is_active = true")
	c.addRaw("quantity_on_hand <= reorder_level")

	query := `SELECT ` + productColumns + ` FROM products` + c.where() +
		` ORDER BY quantity_on_hand, name` + c.page(limit, 0)

	return r.queryProducts(ctx, query, c.args...)
}

// Statistics summarizes the tenant's catalogue
func (r *ProductRepository) Statistics(ctx context.Context, tenantID string) (*models.ProductStatistics, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COUNT(*) FILTER (WHERE NOT is_active),
			COUNT(*) FILTER (WHERE is_active AND quantity_on_hand <= reorder_level),
			COALESCE(SUM(quantity_on_hand * cost_price), 0)
		FROM products
		WHERE tenant_id = $1
	`

	stats := &models.ProductStatistics{}
	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, tenantID).Scan(
		&stats.TotalProducts,
		&stats.ActiveProducts,
		&stats.InactiveProducts,
		&stats.LowStockProducts,
		&stats.TotalStockValue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute product statistics: %w", err)
	}

	return stats, nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, query string, args ...interface{}) ([]*models.Product, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating product rows: %w", err)
	}

	return products, nil
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.SKU,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.UnitOfMeasure,
		&p.UnitPrice,
		&p.CostPrice,
		&p.QuantityOnHand,
		&p.ReorderLevel,
		&p.ReorderQuantity,
		&p.Location,
		&p.Barcode,
		&p.ImageURL,
		&p.IsActive,
		&p.Status,
		&p.CreatedBy,
		&p.UpdatedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}
