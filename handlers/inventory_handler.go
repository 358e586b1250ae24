package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/inventory"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// InventoryService defines the product operations used by the handler
type InventoryService interface {
	Create(ctx context.Context, tenantID, userID string, in inventory.CreateProductInput) (*models.Product, error)
	Get(ctx context.Context, tenantID, id string) (*models.Product, error)
	GetBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error)
	List(ctx context.Context, tenantID string, filter models.ProductFilter) ([]*models.Product, error)
	Update(ctx context.Context, tenantID, userID, id string, in inventory.UpdateProductInput) (*models.Product, error)
	Delete(ctx context.Context, tenantID, userID, id string, hard bool) error
	AdjustStock(ctx context.Context, tenantID, userID, id string, in inventory.StockAdjustmentInput) (*models.Product, error)
	LowStock(ctx context.Context, tenantID string, limit int) ([]*models.Product, error)
	Statistics(ctx context.Context, tenantID string) (*models.ProductStatistics, error)
}

// StockAlertLister lists alerts raised by the low stock consumer
type StockAlertLister interface {
	ListOpen(ctx context.Context, tenantID string, limit int) ([]*models.StockAlert, error)
}

// InventoryHandler handles product HTTP requests
type InventoryHandler struct {
	service InventoryService
	alerts  StockAlertLister
	logger  *zap.Logger
}

// NewInventoryHandler creates a new InventoryHandler. alerts may be nil.
func NewInventoryHandler(service InventoryService, alerts StockAlertLister, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		alerts:  alerts,
		logger:  logger,
	}
}

func views(products []*models.Product) []*models.ProductView {
	out := make([]*models.ProductView, len(products))
	for i, p := range products {
		out[i] = p.View()
	}
	return out
}

// parseProductFilter reads the list filters from the query string
func parseProductFilter(r *http.Request) (models.ProductFilter, error) {
	var filter models.ProductFilter
	q := r.URL.Query()

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		return filter, err
	}
	filter.Skip, filter.Limit = page.Skip, page.Limit

	if v := q.Get("category"); v != "" {
		category := models.ProductCategory(v)
		filter.Category = &category
	}
	if v := q.Get("status"); v != "" {
		if err := utils.ValidateOneOf(v, "status", []string{"active", "inactive", "discontinued"}); err != nil {
			return filter, err
		}
		status := models.ProductStatus(v)
		filter.Status = &status
	}
	if filter.IsActive, err = utils.QueryBool(r, "is_active"); err != nil {
		return filter, err
	}
	if filter.NeedsReorder, err = utils.QueryBool(r, "needs_reorder"); err != nil {
		return filter, err
	}
	filter.Search = q.Get("search")

	for key, dst := range map[string]**float64{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return filter, &utils.ValidationError{
				Message: "Validation failed",
				Fields:  map[string]string{key: key + " must be a non-negative number"},
			}
		}
		*dst = &f
	}
	return filter, nil
}

// HandleList handles GET /api/inventory/products
func (h *InventoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	filter, err := parseProductFilter(r)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	products, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, views(products), h.logger)
}

// HandleCreate handles POST /api/inventory/products
func (h *InventoryHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in inventory.CreateProductInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.service.Create(r.Context(), tenantID, userID, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusCreated, p.View(), h.logger)
}

// HandleGet handles GET /api/inventory/products/{id}
func (h *InventoryHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), tenantID, pathParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, p.View(), h.logger)
}

// HandleGetBySKU handles GET /api/inventory/products/sku/{sku}
func (h *InventoryHandler) HandleGetBySKU(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetBySKU(r.Context(), tenantID, pathParam(r, "sku"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, p.View(), h.logger)
}

// HandleUpdate handles PUT /api/inventory/products/{id}
func (h *InventoryHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in inventory.UpdateProductInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.service.Update(r.Context(), tenantID, userID, pathParam(r, "id"), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, p.View(), h.logger)
}

// HandleDelete handles DELETE /api/inventory/products/{id}. The product is
// discontinued unless hard_delete=true.
func (h *InventoryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	hard, err := utils.QueryBool(r, "hard_delete")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.Delete(r.Context(), tenantID, userID, pathParam(r, "id"), hard != nil && *hard); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleAdjustStock handles POST /api/inventory/products/{id}/adjust-stock
func (h *InventoryHandler) HandleAdjustStock(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in inventory.StockAdjustmentInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	p, err := h.service.AdjustStock(r.Context(), tenantID, userID, pathParam(r, "id"), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, p.View(), h.logger)
}

// HandleLowStock handles GET /api/inventory/products/low-stock
func (h *InventoryHandler) HandleLowStock(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	products, err := h.service.LowStock(r.Context(), tenantID, page.Limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, views(products), h.logger)
}

// HandleStatistics handles GET /api/inventory/products/statistics
func (h *InventoryHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	stats, err := h.service.Statistics(r.Context(), tenantID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, stats, h.logger)
}

// HandleAlerts handles GET /api/inventory/alerts
func (h *InventoryHandler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}
	if h.alerts == nil {
		writeResponse(w, http.StatusOK, []*models.StockAlert{}, h.logger)
		return
	}

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	alerts, err := h.alerts.ListOpen(r.Context(), tenantID, page.Limit)
	if err != nil {
		h.logger.Error("failed to list stock alerts", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "An internal error occurred")
		return
	}
	writeResponse(w, http.StatusOK, alerts, h.logger)
}
