package handlers

import (
	"context"
	"net/http"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/finance"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// FinanceService defines the journal entry operations used by the handler
type FinanceService interface {
	Create(ctx context.Context, tenantID, userID string, in finance.CreateJournalEntryInput) (*models.JournalEntry, error)
	List(ctx context.Context, tenantID string, filter models.JournalEntryFilter) ([]*models.JournalEntry, error)
	Get(ctx context.Context, tenantID, id string) (*models.JournalEntry, error)
	Update(ctx context.Context, tenantID, userID, id string, in finance.UpdateJournalEntryInput) (*models.JournalEntry, error)
	Void(ctx context.Context, tenantID, userID, id string) error
	Approve(ctx context.Context, tenantID, userID, id string) (*models.JournalEntry, error)
}

// FinanceHandler handles journal entry HTTP requests
type FinanceHandler struct {
	service FinanceService
	logger  *zap.Logger
}

// NewFinanceHandler creates a new FinanceHandler
func NewFinanceHandler(service FinanceService, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleList handles GET /api/finance/journal-entries
func (h *FinanceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	filter := models.JournalEntryFilter{Skip: page.Skip, Limit: page.Limit}
	if v := r.URL.Query().Get("status"); v != "" {
		if err := utils.ValidateOneOf(v, "status", []string{"draft", "posted", "approved", "void"}); err != nil {
			HandleValidationError(w, err, h.logger)
			return
		}
		status := models.JournalEntryStatus(v)
		filter.Status = &status
	}

	entries, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, entries, h.logger)
}

// HandleCreate handles POST /api/finance/journal-entries
func (h *FinanceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in finance.CreateJournalEntryInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entry, err := h.service.Create(r.Context(), tenantID, userID, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusCreated, entry, h.logger)
}

// HandleGet handles GET /api/finance/journal-entries/{id}
func (h *FinanceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Get(r.Context(), tenantID, pathParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, entry, h.logger)
}

// HandleUpdate handles PUT /api/finance/journal-entries/{id}
func (h *FinanceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in finance.UpdateJournalEntryInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	entry, err := h.service.Update(r.Context(), tenantID, userID, pathParam(r, "id"), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, entry, h.logger)
}

// HandleDelete handles DELETE /api/finance/journal-entries/{id}. Entries
// are voided, not removed.
func (h *FinanceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	if err := h.service.Void(r.Context(), tenantID, userID, pathParam(r, "id")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleApprove handles POST /api/finance/journal-entries/{id}/approve
func (h *FinanceHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Approve(r.Context(), tenantID, userID, pathParam(r, "id"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, entry, h.logger)
}
