package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/hr"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// TimeOffService defines the time-off operations used by the handler
type TimeOffService interface {
	Submit(ctx context.Context, tenantID string, caller hr.Caller, in hr.SubmitTimeOffInput) (*hr.SubmitResult, error)
	List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error)
	Get(ctx context.Context, tenantID, id string) (*hr.TimeOffDetails, error)
	Decide(ctx context.Context, tenantID, approverID, id string, in hr.DecisionInput) (*models.TimeOffRequest, error)
	Cancel(ctx context.Context, tenantID, userID, id string) error
	Balance(ctx context.Context, tenantID, employeeID string, year int) (*models.TimeOffBalances, error)
}

// DecisionResponse reports the outcome of an approval decision
type DecisionResponse struct {
	Success    bool                 `json:"success"`
	RequestID  string               `json:"request_id"`
	Status     models.TimeOffStatus `json:"status"`
	Message    string               `json:"message"`
	ApprovedBy string               `json:"approved_by"`
}

// TimeOffHandler handles time-off HTTP requests
type TimeOffHandler struct {
	service TimeOffService
	logger  *zap.Logger
}

// NewTimeOffHandler creates a new TimeOffHandler
func NewTimeOffHandler(service TimeOffService, logger *zap.Logger) *TimeOffHandler {
	return &TimeOffHandler{
		service: service,
		logger:  logger,
	}
}

// HandleSubmit handles POST /api/hr/time-off/request
func (h *TimeOffHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in hr.SubmitTimeOffInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	caller := hr.Caller{UserID: userID}
	if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		caller.Email = claims.Email
	}

	result, err := h.service.Submit(r.Context(), tenantID, caller, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusCreated, result, h.logger)
}

// HandleList handles GET /api/hr/time-off/requests
func (h *TimeOffHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	q := r.URL.Query()
	filter := models.TimeOffFilter{
		EmployeeID: q.Get("employee_id"),
		Skip:       page.Skip,
		Limit:      page.Limit,
	}
	if v := q.Get("status"); v != "" {
		if err := utils.ValidateOneOf(v, "status", []string{"pending", "approved", "rejected", "cancelled"}); err != nil {
			HandleValidationError(w, err, h.logger)
			return
		}
		status := models.TimeOffStatus(v)
		filter.Status = &status
	}

	requests, err := h.service.List(r.Context(), tenantID, filter)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, requests, h.logger)
}

// HandleGet handles GET /api/hr/time-off/requests/{requestID}
func (h *TimeOffHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	details, err := h.service.Get(r.Context(), tenantID, pathParam(r, "requestID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, details, h.logger)
}

// HandleApprove handles POST /api/hr/time-off/requests/{requestID}/approve
func (h *TimeOffHandler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in hr.DecisionInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	req, err := h.service.Decide(r.Context(), tenantID, userID, pathParam(r, "requestID"), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	verb := "rejected"
	if in.Approved {
		verb = "approved"
	}
	writeResponse(w, http.StatusOK, DecisionResponse{
		Success:    true,
		RequestID:  req.ID,
		Status:     req.Status,
		Message:    "Time-off request " + verb + " successfully",
		ApprovedBy: userID,
	}, h.logger)
}

// HandleCancel handles DELETE /api/hr/time-off/requests/{requestID}
func (h *TimeOffHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), tenantID, userID, pathParam(r, "requestID")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleBalance handles GET /api/hr/time-off/balance/{employeeID}
func (h *TimeOffHandler) HandleBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			_ = utils.WriteBadRequest(w, "year must be a four digit year", nil)
			return
		}
		year = y
	}

	balances, err := h.service.Balance(r.Context(), tenantID, pathParam(r, "employeeID"), year)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, balances, h.logger)
}
