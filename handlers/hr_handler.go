package handlers

import (
	"context"
	"net/http"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/hr"
	"github.com/upb/erp-backend/utils"
	"go.uber.org/zap"
)

// EmployeeService defines the employee operations used by the handler
type EmployeeService interface {
	Create(ctx context.Context, tenantID, userID string, in hr.CreateEmployeeInput) (*models.Employee, error)
	Get(ctx context.Context, tenantID, employeeID string) (*models.Employee, error)
	List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error)
	Update(ctx context.Context, tenantID, userID, employeeID string, in hr.UpdateEmployeeInput) (*models.Employee, error)
	Deactivate(ctx context.Context, tenantID, userID, employeeID string) error
	Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error)
	Directory(ctx context.Context, tenantID, department, search string, skip, limit int) ([]*models.PublicEmployee, error)
	PublicInfo(ctx context.Context, tenantID, employeeID string) (*models.PublicEmployee, error)
	Contact(ctx context.Context, tenantID string, in hr.ContactInput) error
}

// ContactResponse acknowledges a contact request
type ContactResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	EmployeeID string `json:"employee_id"`
}

// HRHandler handles employee HTTP requests, public and protected
type HRHandler struct {
	service EmployeeService
	logger  *zap.Logger
}

// NewHRHandler creates a new HRHandler
func NewHRHandler(service EmployeeService, logger *zap.Logger) *HRHandler {
	return &HRHandler{
		service: service,
		logger:  logger,
	}
}

// HandleDirectory handles GET /api/hr/employees/public/directory
func (h *HRHandler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	page, err := utils.ParsePagination(r, hr.DirectoryDefaultLimit, hr.DirectoryMaxLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	q := r.URL.Query()

	employees, err := h.service.Directory(r.Context(), tenantID, q.Get("department"), q.Get("search"), page.Skip, page.Limit)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, employees, h.logger)
}

// HandlePublicInfo handles GET /api/hr/employees/public/{employeeID}
func (h *HRHandler) HandlePublicInfo(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	employee, err := h.service.PublicInfo(r.Context(), tenantID, pathParam(r, "employeeID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, employee, h.logger)
}

// HandleContact handles POST /api/hr/employees/public/contact. The fields
// may come as query parameters or as a JSON body.
func (h *HRHandler) HandleContact(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	in := hr.ContactInput{
		EmployeeID:  q.Get("employee_id"),
		Message:     q.Get("message"),
		SenderEmail: q.Get("sender_email"),
	}
	if in.EmployeeID == "" && r.ContentLength != 0 {
		if err := utils.DecodeJSON(r, &in); err != nil {
			HandleValidationError(w, err, h.logger)
			return
		}
	}
	if err := utils.ValidateStruct(&in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.Contact(r.Context(), tenantID, in); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, ContactResponse{
		Success:    true,
		Message:    "Contact request sent successfully",
		EmployeeID: in.EmployeeID,
	}, h.logger)
}

// HandleList handles GET /api/hr/employees
func (h *HRHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	page, err := utils.ParsePagination(r, defaultPageLimit, maxPageLimit)
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	active, err := utils.QueryBool(r, "is_active")
	if err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	q := r.URL.Query()

	employees, err := h.service.List(r.Context(), tenantID, models.EmployeeFilter{
		Department: q.Get("department"),
		IsActive:   active,
		Search:     q.Get("search"),
		Skip:       page.Skip,
		Limit:      page.Limit,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, employees, h.logger)
}

// HandleCreate handles POST /api/hr/employees
func (h *HRHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in hr.CreateEmployeeInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	employee, err := h.service.Create(r.Context(), tenantID, userID, in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusCreated, employee, h.logger)
}

// HandleGet handles GET /api/hr/employees/{employeeID}
func (h *HRHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := requireScope(w, r)
	if !ok {
		return
	}

	employee, err := h.service.Get(r.Context(), tenantID, pathParam(r, "employeeID"))
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, employee, h.logger)
}

// HandleUpdate handles PUT /api/hr/employees/{employeeID}
func (h *HRHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	var in hr.UpdateEmployeeInput
	if err := decodeAndValidate(r, &in); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	employee, err := h.service.Update(r.Context(), tenantID, userID, pathParam(r, "employeeID"), in)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	writeResponse(w, http.StatusOK, employee, h.logger)
}

// HandleDelete handles DELETE /api/hr/employees/{employeeID}
func (h *HRHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := requireScope(w, r)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), tenantID, userID, pathParam(r, "employeeID")); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	utils.WriteNoContent(w)
}

// HandleStatistics handles GET /api/hr/employees/statistics
func (h *HRHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
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
