package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/upb/erp-backend/internal/clients"
	"github.com/upb/erp-backend/models"
	"go.uber.org/zap"
)

// AlertStore persists stock alerts
type AlertStore interface {
	Create(ctx context.Context, alert *models.StockAlert) error
}

// SalesNotifier forwards low stock alerts to the sales service
type SalesNotifier interface {
	NotifyLowStock(ctx context.Context, tenantID string, n clients.LowStockNotification) error
}

// LowStockHandler turns low stock events into stock alerts and sales
// notifications
type LowStockHandler struct {
	alerts AlertStore
	sales  SalesNotifier
	logger *zap.Logger
	now    func() time.Time
}

// NewLowStockHandler creates a new LowStockHandler. sales may be nil.
func NewLowStockHandler(alerts AlertStore, sales SalesNotifier, logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{
		alerts: alerts,
		sales:  sales,
		logger: logger,
		now:    time.Now,
	}
}

// Handle implements Handler for LowStock events. A failed notification is
// logged but does not fail the event once the alert is stored.
func (h *LowStockHandler) Handle(ctx context.Context, event *Event) error {
	var payload LowStockPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}

	priority := models.AlertPriorityFor(payload.CurrentStock, payload.DaysOfStockRemaining)

	alert := &models.StockAlert{
		ID:              uuid.New(),
		TenantID:        event.Metadata.TenantID,
		ProductID:       payload.ProductID,
		ProductSKU:      payload.ProductSKU,
		CurrentStock:    payload.CurrentStock,
		ReorderLevel:    payload.ReorderLevel,
		ReorderQuantity: payload.ReorderQuantity,
		Priority:        priority,
		EventID:         event.Metadata.EventID,
		CreatedAt:       h.now().UTC(),
	}
	if err := h.alerts.Create(ctx, alert); err != nil {
		return fmt.Errorf("failed to store stock alert: %w", err)
	}

	h.logger.Info("stock alert created",
		zap.String("tenant_id", alert.TenantID),
		zap.String("product_sku", alert.ProductSKU),
		zap.Int("current_stock", alert.CurrentStock),
		zap.String("priority", string(priority)))

	if h.sales == nil {
		return nil
	}

	notification := clients.LowStockNotification{
		Priority:        string(priority),
		ProductID:       payload.ProductID,
		ProductSKU:      payload.ProductSKU,
		ProductName:     payload.ProductName,
		CurrentStock:    payload.CurrentStock,
		ReorderLevel:    payload.ReorderLevel,
		ReorderQuantity: payload.ReorderQuantity,
		Message: fmt.Sprintf("Low stock alert: %s (SKU: %s) has %d units remaining. Reorder level: %d",
			payload.ProductName, payload.ProductSKU, payload.CurrentStock, payload.ReorderLevel),
		EventID:   event.Metadata.EventID,
		Timestamp: alert.CreatedAt,
	}
	if err := h.sales.NotifyLowStock(ctx, alert.TenantID, notification); err != nil {
		h.logger.Warn("sales notification failed",
			zap.String("tenant_id", alert.TenantID),
			zap.String("product_sku", alert.ProductSKU),
			zap.Error(err))
	}
	return nil
}
