// Package clients holds HTTP clients for the services the ERP backend talks to.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LowStockNotification is sent to the sales service when a product runs low
type LowStockNotification struct {
	Type            string    `json:"type"`
	Priority        string    `json:"priority"`
	ProductID       string    `json:"product_id"`
	ProductSKU      string    `json:"product_sku"`
	ProductName     string    `json:"product_name"`
	CurrentStock    int       `json:"current_stock"`
	ReorderLevel    int       `json:"reorder_level"`
	ReorderQuantity int       `json:"reorder_quantity"`
	Message         string    `json:"message"`
	EventID         string    `json:"event_id"`
	Timestamp       time.Time `json:"timestamp"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// SalesClient talks to the sales service REST API
type SalesClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSalesClient creates a new sales service client
func NewSalesClient(baseURL string, timeout time.Duration, logger *zap.Logger) *SalesClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &SalesClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// NotifyLowStock tells the sales team about a low stock situation
func (c *SalesClient) NotifyLowStock(ctx context.Context, tenantID string, n LowStockNotification) error {
	if n.Type == "" {
		n.Type = "low_stock_alert"
	}
	err := c.do(ctx, http.MethodPost, "/api/sales/notifications", tenantID, n, nil)
	if err != nil {
		c.logger.Error("failed to notify sales about low stock",
			zap.String("tenant_id", tenantID),
			zap.String("product_sku", n.ProductSKU),
			zap.Error(err))
		return err
	}
	c.logger.Info("sales notified about low stock",
		zap.String("tenant_id", tenantID),
		zap.String("product_sku", n.ProductSKU),
		zap.String("priority", n.Priority))
	return nil
}

func (c *SalesClient) do(ctx context.Context, method, path, tenantID string, in, out interface{}) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sales service request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Service: "sales", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
