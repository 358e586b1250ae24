package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertPriority ranks how quickly a stock alert needs attention
type AlertPriority string

const (
	AlertNormal   AlertPriority = "NORMAL"
	AlertUrgent   AlertPriority = "URGENT"
	AlertCritical AlertPriority = "CRITICAL"
)

// StockAlert is raised by the inventory event consumer for low stock
type StockAlert struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	TenantID        string        `json:"tenant_id" db:"tenant_id"`
	ProductID       string        `json:"product_id" db:"product_id"`
	ProductSKU      string        `json:"product_sku" db:"product_sku"`
	CurrentStock    int           `json:"current_stock" db:"current_stock"`
	ReorderLevel    int           `json:"reorder_level" db:"reorder_level"`
	ReorderQuantity int           `json:"reorder_quantity" db:"reorder_quantity"`
	Priority        AlertPriority `json:"priority" db:"priority"`
	EventID         string        `json:"event_id" db:"event_id"`
	Acknowledged    bool          `json:"acknowledged" db:"acknowledged"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the StockAlert model
func (StockAlert) TableName() string {
	return "stock_alerts"
}

// AlertPriorityFor ranks a low stock situation. Fewer than three days of
// remaining stock is urgent even when some stock is left.
func AlertPriorityFor(currentStock int, daysRemaining *float64) AlertPriority {
	switch {
	case daysRemaining != nil && *daysRemaining < 3:
		return AlertUrgent
	case currentStock == 0:
		return AlertCritical
	default:
		return AlertNormal
	}
}
