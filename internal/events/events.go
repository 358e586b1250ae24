// Package events publishes and consumes domain events over a Redis stream.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType names a kind of domain event
type EventType string

const (
	LowStock       EventType = "inventory.low_stock"
	ProductCreated EventType = "inventory.product_created"
	ProductUpdated EventType = "inventory.product_updated"
	StockAdjusted  EventType = "inventory.stock_adjusted"
)

const (
	// SourceService identifies this service in event metadata
	SourceService = "erp-inventory"

	// SchemaVersion is the envelope version written by Producer
	SchemaVersion = "1.0"
)

// Priority ranks how urgent an event is for its consumers
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Metadata is carried by every event
type Metadata struct {
	EventID       string    `json:"event_id"`
	EventType     EventType `json:"event_type"`
	EventVersion  string    `json:"event_version"`
	Timestamp     time.Time `json:"timestamp"`
	SourceService string    `json:"source_service"`
	TenantID      string    `json:"tenant_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
	Priority      Priority  `json:"priority"`
}

// Event is the envelope written to the stream
type Event struct {
	Metadata Metadata        `json:"metadata"`
	Payload  json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into dst
func (e *Event) Decode(dst interface{}) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Metadata.EventType, err)
	}
	return nil
}

func newEventID() string {
	return "evt-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// LowStockPayload is published when a stock change leaves a product at or
// below its reorder level
type LowStockPayload struct {
	ProductID            string   `json:"product_id"`
	ProductSKU           string   `json:"product_sku"`
	ProductName          string   `json:"product_name"`
	CurrentStock         int      `json:"current_stock"`
	ReorderLevel         int      `json:"reorder_level"`
	ReorderQuantity      int      `json:"reorder_quantity"`
	UnitPrice            float64  `json:"unit_price"`
	Category             string   `json:"category"`
	Location             *string  `json:"location,omitempty"`
	DaysOfStockRemaining *float64 `json:"days_of_stock_remaining,omitempty"`
}

// ProductCreatedPayload is published after a product is created
type ProductCreatedPayload struct {
	ProductID    string  `json:"product_id"`
	ProductSKU   string  `json:"product_sku"`
	ProductName  string  `json:"product_name"`
	Category     string  `json:"category"`
	UnitPrice    float64 `json:"unit_price"`
	CostPrice    float64 `json:"cost_price"`
	InitialStock int     `json:"initial_stock"`
}

// ProductUpdatedPayload is published after a product is changed
type ProductUpdatedPayload struct {
	ProductID     string   `json:"product_id"`
	ProductSKU    string   `json:"product_sku"`
	ProductName   string   `json:"product_name"`
	ChangedFields []string `json:"changed_fields"`
	UpdatedBy     string   `json:"updated_by"`
}

// StockAdjustedPayload is published after a stock adjustment
type StockAdjustedPayload struct {
	ProductID          string `json:"product_id"`
	ProductSKU         string `json:"product_sku"`
	ProductName        string `json:"product_name"`
	PreviousStock      int    `json:"previous_stock"`
	NewStock           int    `json:"new_stock"`
	AdjustmentQuantity int    `json:"adjustment_quantity"`
	Reason             string `json:"reason"`
	AdjustedBy         string `json:"adjusted_by"`
}

// LowStockPriority ranks a low stock event: out of stock is critical, less
// than three days of stock or at most half the reorder level is high.
func LowStockPriority(currentStock, reorderLevel int, daysRemaining *float64) Priority {
	switch {
	case currentStock == 0:
		return PriorityCritical
	case daysRemaining != nil && *daysRemaining < 3:
		return PriorityHigh
	case float64(currentStock) <= float64(reorderLevel)/2:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}
