// Package inventory manages products and their stock, and publishes
// inventory events.
package inventory

import (
	"context"
	"errors"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/erp-backend/internal/events"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/audit"
	"go.uber.org/zap"
)

// ErrPriceBelowCost is returned when a product would sell below its cost
var ErrPriceBelowCost = services.NewDomainError(services.ErrorTypeBadRequest,
	"Unit price should be greater than or equal to cost price", nil)

// CreateProductInput is the payload of a new product
type CreateProductInput struct {
	SKU             string                 `json:"sku" validate:"required,min=1,max=50"`
	Name            string                 `json:"name" validate:"required,min=1,max=200"`
	Description     *string                `json:"description,omitempty"`
	Category        models.ProductCategory `json:"category,omitempty" validate:"omitempty,oneof=electronics furniture office_supplies hardware software raw_materials finished_goods consumables other"`
	UnitOfMeasure   string                 `json:"unit_of_measure,omitempty" validate:"omitempty,max=20"`
	UnitPrice       float64                `json:"unit_price" validate:"gte=0"`
	CostPrice       float64                `json:"cost_price" validate:"gte=0"`
	QuantityOnHand  int                    `json:"quantity_on_hand" validate:"gte=0"`
	ReorderLevel    *int                   `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity *int                   `json:"reorder_quantity,omitempty" validate:"omitempty,gte=1"`
	Location        *string                `json:"location,omitempty" validate:"omitempty,max=100"`
	Barcode         *string                `json:"barcode,omitempty" validate:"omitempty,max=100"`
	ImageURL        *string                `json:"image_url,omitempty" validate:"omitempty,max=500"`
	IsActive        *bool                  `json:"is_active,omitempty"`
	Status          models.ProductStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive discontinued"`
}

// UpdateProductInput carries the fields to change; nil fields are kept
type UpdateProductInput struct {
	SKU             *string                 `json:"sku,omitempty" validate:"omitempty,min=1,max=50"`
	Name            *string                 `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Description     *string                 `json:"description,omitempty"`
	Category        *models.ProductCategory `json:"category,omitempty" validate:"omitempty,oneof=electronics furniture office_supplies hardware software raw_materials finished_goods consumables other"`
	UnitOfMeasure   *string                 `json:"unit_of_measure,omitempty" validate:"omitempty,max=20"`
	UnitPrice       *float64                `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	CostPrice       *float64                `json:"cost_price,omitempty" validate:"omitempty,gte=0"`
	QuantityOnHand  *int                    `json:"quantity_on_hand,omitempty" validate:"omitempty,gte=0"`
	ReorderLevel    *int                    `json:"reorder_level,omitempty" validate:"omitempty,gte=0"`
	ReorderQuantity *int                    `json:"reorder_quantity,omitempty" validate:"omitempty,gte=1"`
	Location        *string                 `json:"location,omitempty" validate:"omitempty,max=100"`
	Barcode         *string                 `json:"barcode,omitempty" validate:"omitempty,max=100"`
	ImageURL        *string                 `json:"image_url,omitempty" validate:"omitempty,max=500"`
	IsActive        *bool                   `json:"is_active,omitempty"`
	Status          *models.ProductStatus   `json:"status,omitempty" validate:"omitempty,oneof=active inactive discontinued"`
}

// StockAdjustmentInput adds (positive) or removes (negative) stock
type StockAdjustmentInput struct {
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason" validate:"required,min=1,max=200"`
}

// Service implements the product operations of a tenant
type Service struct {
	products  repositories.ProductRepository
	txMgr     repositories.TransactionManager
	publisher events.Publisher
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewService creates an inventory service. Stock changes run in a tenant
// scoped transaction when txMgr is set. txMgr, publisher and recorder may be nil.
func NewService(products repositories.ProductRepository, txMgr repositories.TransactionManager, publisher events.Publisher, recorder audit.Recorder, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		products:  products,
		txMgr:     txMgr,
		publisher: publisher,
		audit:     recorder,
		logger:    logger,
	}
}

// Create stores a new product with a SKU unique to the tenant
func (s *Service) Create(ctx context.Context, tenantID, userID string, in CreateProductInput) (*models.Product, error) {
	if in.UnitPrice < in.CostPrice {
		return nil, ErrPriceBelowCost
	}

	if err := s.ensureSKUFree(ctx, tenantID, in.SKU, ""); err != nil {
		return nil, err
	}

	p := models.NewProduct(tenantID, in.SKU, in.Name, in.Category, in.UnitPrice, in.CostPrice, userID)
	p.Description = in.Description
	if in.UnitOfMeasure != "" {
		p.UnitOfMeasure = in.UnitOfMeasure
	}
	p.QuantityOnHand = in.QuantityOnHand
	if in.ReorderLevel != nil {
		p.ReorderLevel = *in.ReorderLevel
	}
	if in.ReorderQuantity != nil {
		p.ReorderQuantity = *in.ReorderQuantity
	}
	p.Location = in.Location
	p.Barcode = in.Barcode
	p.ImageURL = in.ImageURL
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if in.Status != "" {
		p.Status = in.Status
	}

	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, skuTaken(in.SKU)
		}
		return nil, services.WrapInternal("failed to create product", err)
	}

	s.logger.Info("product created",
		zap.String("id", p.ID),
		zap.String("sku", p.SKU),
		zap.String("tenant_id", tenantID))

	s.publish(ctx, tenantID, events.ProductCreated, events.PriorityLow, events.ProductCreatedPayload{
		ProductID:    p.ID,
		ProductSKU:   p.SKU,
		ProductName:  p.Name,
		Category:     string(p.Category),
		UnitPrice:    p.UnitPrice,
		CostPrice:    p.CostPrice,
		InitialStock: p.QuantityOnHand,
	})
	s.record(ctx, models.AuditActionProductCreated, p, userID, nil)
	return p, nil
}

// Get returns a product of the tenant
func (s *Service) Get(ctx context.Context, tenantID, id string) (*models.Product, error) {
	p, err := s.products.GetByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProductNotFound.Withf("Product %s not found", id)
		}
		return nil, services.WrapInternal("failed to get product", err)
	}
	return p, nil
}

// GetBySKU returns a product of the tenant by SKU
func (s *Service) GetBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error) {
	p, err := s.products.GetBySKU(ctx, tenantID, sku)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrProductNotFound.Withf("Product with SKU '%s' not found", sku)
		}
		return nil, services.WrapInternal("failed to get product", err)
	}
	return p, nil
}

// List returns the tenant's products matching filter
func (s *Service) List(ctx context.Context, tenantID string, filter models.ProductFilter) ([]*models.Product, error) {
	products, err := s.products.List(ctx, tenantID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list products", err)
	}
	return products, nil
}

// Update changes a product and publishes the changed field names
func (s *Service) Update(ctx context.Context, tenantID, userID, id string, in UpdateProductInput) (*models.Product, error) {
	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	previousStock := p.QuantityOnHand

	if in.SKU != nil && *in.SKU != p.SKU {
		if err := s.ensureSKUFree(ctx, tenantID, *in.SKU, p.ID); err != nil {
			return nil, err
		}
	}

	changed := applyUpdate(p, in)
	if p.UnitPrice < p.CostPrice {
		return nil, ErrPriceBelowCost
	}
	p.UpdatedBy = &userID
	p.UpdatedAt = time.Now()

	if err := s.save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product updated",
		zap.String("id", p.ID),
		zap.Strings("changed_fields", changed),
		zap.String("tenant_id", tenantID))

	s.publish(ctx, tenantID, events.ProductUpdated, events.PriorityLow, events.ProductUpdatedPayload{
		ProductID:     p.ID,
		ProductSKU:    p.SKU,
		ProductName:   p.Name,
		ChangedFields: changed,
		UpdatedBy:     userID,
	})
	s.checkLowStock(ctx, tenantID, p, previousStock)
	s.record(ctx, models.AuditActionProductUpdated, p, userID, map[string]interface{}{"changed_fields": changed})
	return p, nil
}

// Delete discontinues a product, or removes it when hard is set
func (s *Service) Delete(ctx context.Context, tenantID, userID, id string, hard bool) error {
	p, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if hard {
		if err := s.products.Delete(ctx, tenantID, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return services.ErrProductNotFound.Withf("Product %s not found", id)
			}
			return services.WrapInternal("failed to delete product", err)
		}
	} else {
		p.Status = models.ProductDiscontinued
		p.IsActive = false
		p.UpdatedBy = &userID
		p.UpdatedAt = time.Now()
		if err := s.save(ctx, p); err != nil {
			return err
		}
	}

	s.logger.Info("product deleted",
		zap.String("id", id),
		zap.Bool("hard", hard),
		zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionProductDeleted, p, userID, map[string]interface{}{"hard_delete": hard})
	return nil
}

// AdjustStock applies a stock change. The result may not go negative.
func (s *Service) AdjustStock(ctx context.Context, tenantID, userID, id string, in StockAdjustmentInput) (*models.Product, error) {
	var previous int
	p, err := services.InTenantTransactionResult(ctx, s.txMgr, tenantID, func(txCtx context.Context) (*models.Product, error) {
		p, err := s.Get(txCtx, tenantID, id)
		if err != nil {
			return nil, err
		}

		previous = p.QuantityOnHand
		if previous+in.QuantityChange < 0 {
			return nil, services.BadRequest("Insufficient stock. Current: %d, Requested change: %d", previous, in.QuantityChange)
		}

		p.QuantityOnHand = previous + in.QuantityChange
		p.UpdatedBy = &userID
		p.UpdatedAt = time.Now()
		if err := s.save(txCtx, p); err != nil {
			return nil, err
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	next := p.QuantityOnHand

	s.logger.Info("stock adjusted",
		zap.String("id", p.ID),
		zap.Int("previous_stock", previous),
		zap.Int("new_stock", next),
		zap.String("reason", in.Reason),
		zap.String("tenant_id", tenantID))

	s.publish(ctx, tenantID, events.StockAdjusted, events.PriorityMedium, events.StockAdjustedPayload{
		ProductID:          p.ID,
		ProductSKU:         p.SKU,
		ProductName:        p.Name,
		PreviousStock:      previous,
		NewStock:           next,
		AdjustmentQuantity: in.QuantityChange,
		Reason:             in.Reason,
		AdjustedBy:         userID,
	})
	s.checkLowStock(ctx, tenantID, p, previous)
	s.record(ctx, models.AuditActionStockAdjusted, p, userID, map[string]interface{}{
		"previous_stock":  previous,
		"new_stock":       next,
		"quantity_change": in.QuantityChange,
		"reason":          in.Reason,
	})
	return p, nil
}

// LowStock lists active products at or below their reorder level
func (s *Service) LowStock(ctx context.Context, tenantID string, limit int) ([]*models.Product, error) {
	products, err := s.products.LowStock(ctx, tenantID, limit)
	if err != nil {
		return nil, services.WrapInternal("failed to list low stock products", err)
	}
	return products, nil
}

// Statistics summarizes the tenant's catalogue
func (s *Service) Statistics(ctx context.Context, tenantID string) (*models.ProductStatistics, error) {
	stats, err := s.products.Statistics(ctx, tenantID)
	if err != nil {
		return nil, services.WrapInternal("failed to compute product statistics", err)
	}
	return stats, nil
}

func (s *Service) ensureSKUFree(ctx context.Context, tenantID, sku, selfID string) error {
	existing, err := s.products.GetBySKU(ctx, tenantID, sku)
	switch {
	case err == nil && existing.ID != selfID:
		return skuTaken(sku)
	case err == nil, errors.Is(err, repositories.ErrNotFound):
		return nil
	default:
		return services.WrapInternal("failed to check sku", err)
	}
}

func (s *Service) save(ctx context.Context, p *models.Product) error {
	if err := s.products.Update(ctx, p); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return services.ErrProductNotFound.Withf("Product %s not found", p.ID)
		case errors.Is(err, repositories.ErrDuplicate):
			return skuTaken(p.SKU)
		default:
			return services.WrapInternal("failed to update product", err)
		}
	}
	return nil
}

// checkLowStock publishes a low stock event when stock crosses down to the
// reorder level
func (s *Service) checkLowStock(ctx context.Context, tenantID string, p *models.Product, previousStock int) {
	if previousStock <= p.ReorderLevel || p.QuantityOnHand > p.ReorderLevel {
		return
	}

	s.logger.Warn("product reached reorder level",
		zap.String("id", p.ID),
		zap.Int("current_stock", p.QuantityOnHand),
		zap.Int("reorder_level", p.ReorderLevel),
		zap.String("tenant_id", tenantID))

	s.publish(ctx, tenantID, events.LowStock, events.LowStockPriority(p.QuantityOnHand, p.ReorderLevel, nil), events.LowStockPayload{
		ProductID:       p.ID,
		ProductSKU:      p.SKU,
		ProductName:     p.Name,
		CurrentStock:    p.QuantityOnHand,
		ReorderLevel:    p.ReorderLevel,
		ReorderQuantity: p.ReorderQuantity,
		UnitPrice:       p.UnitPrice,
		Category:        string(p.Category),
		Location:        p.Location,
	})
}

// publish sends an event. Failures are logged and do not fail the operation.
func (s *Service) publish(ctx context.Context, tenantID string, eventType events.EventType, priority events.Priority, payload interface{}) {
	_, err := s.publisher.Publish(ctx, events.Message{
		Type:          eventType,
		TenantID:      tenantID,
		CorrelationID: chimiddleware.GetReqID(ctx),
		Priority:      priority,
		Payload:       payload,
	})
	if err != nil {
		s.logger.Warn("inventory event not published",
			zap.String("event_type", string(eventType)),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
	}
}

func (s *Service) record(ctx context.Context, action models.AuditAction, p *models.Product, userID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	log := models.NewAuditLog(p.TenantID, action, "product").
		WithUser(userID).
		WithResource(p.ID)
	if details != nil {
		log.WithDetails(details)
	}
	s.audit.Record(ctx, log)
}

func skuTaken(sku string) error {
	return services.ErrDuplicateSKU.Withf("Product with SKU '%s' already exists", sku)
}

// applyUpdate copies the set fields of in onto p and returns their names
func applyUpdate(p *models.Product, in UpdateProductInput) []string {
	changed := []string{}
	set := func(name string, apply func()) {
		apply()
		changed = append(changed, name)
	}

	if in.SKU != nil {
		set("sku", func() { p.SKU = *in.SKU })
	}
	if in.Name != nil {
		set("name", func() { p.Name = *in.Name })
	}
	if in.Description != nil {
		set("description", func() { p.Description = in.Description })
	}
	if in.Category != nil {
		set("category", func() { p.Category = *in.Category })
	}
	if in.UnitOfMeasure != nil {
		set("unit_of_measure", func() { p.UnitOfMeasure = *in.UnitOfMeasure })
	}
	if in.UnitPrice != nil {
		set("unit_price", func() { p.UnitPrice = *in.UnitPrice })
	}
	if in.CostPrice != nil {
		set("cost_price", func() { p.CostPrice = *in.CostPrice })
	}
	if in.QuantityOnHand != nil {
		set("quantity_on_hand", func() { p.QuantityOnHand = *in.QuantityOnHand })
	}
	if in.ReorderLevel != nil {
		set("reorder_level", func() { p.ReorderLevel = *in.ReorderLevel })
	}
	if in.ReorderQuantity != nil {
		set("reorder_quantity", func() { p.ReorderQuantity = *in.ReorderQuantity })
	}
	if in.Location != nil {
		set("location", func() { p.Location = in.Location })
	}
	if in.Barcode != nil {
		set("barcode", func() { p.Barcode = in.Barcode })
	}
	if in.ImageURL != nil {
		set("image_url", func() { p.ImageURL = in.ImageURL })
	}
	if in.IsActive != nil {
		set("is_active", func() { p.IsActive = *in.IsActive })
	}
	if in.Status != nil {
		set("status", func() { p.Status = *in.Status })
	}
	return changed
}
