// Package hr manages employees, the public employee directory and time-off
// requests approved through a workflow engine.
package hr

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"github.com/upb/erp-backend/services"
	"github.com/upb/erp-backend/services/audit"
	"go.uber.org/zap"
)

const (
	// DirectoryDefaultLimit is the page size of the public directory
	DirectoryDefaultLimit = 20

	// DirectoryMaxLimit caps the page size of the public directory
	DirectoryMaxLimit = 100
)

// CreateEmployeeInput is the payload of a new employee
type CreateEmployeeInput struct {
	EmployeeID     string    `json:"employee_id" validate:"required,min=1,max=50"`
	FirstName      string    `json:"first_name" validate:"required,min=1,max=100"`
	LastName       string    `json:"last_name" validate:"required,min=1,max=100"`
	Email          string    `json:"email" validate:"required,email"`
	Phone          *string   `json:"phone,omitempty" validate:"omitempty,max=20"`
	Department     string    `json:"department" validate:"required,max=100"`
	Position       string    `json:"position" validate:"required,max=100"`
	OfficeLocation *string   `json:"office_location,omitempty" validate:"omitempty,max=200"`
	HireDate       time.Time `json:"hire_date" validate:"required"`
	Salary         float64   `json:"salary" validate:"gt=0"`
	IsActive       *bool     `json:"is_active,omitempty"`
}

// UpdateEmployeeInput carries the fields to change; nil fields are kept
type UpdateEmployeeInput struct {
	FirstName      *string  `json:"first_name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName       *string  `json:"last_name,omitempty" validate:"omitempty,min=1,max=100"`
	Email          *string  `json:"email,omitempty" validate:"omitempty,email"`
	Phone          *string  `json:"phone,omitempty" validate:"omitempty,max=20"`
	Department     *string  `json:"department,omitempty" validate:"omitempty,max=100"`
	Position       *string  `json:"position,omitempty" validate:"omitempty,max=100"`
	OfficeLocation *string  `json:"office_location,omitempty" validate:"omitempty,max=200"`
	Salary         *float64 `json:"salary,omitempty" validate:"omitempty,gt=0"`
	IsActive       *bool    `json:"is_active,omitempty"`
}

// ContactInput is a message sent to an employee through the public directory
type ContactInput struct {
	EmployeeID  string `json:"employee_id" validate:"required"`
	Message     string `json:"message" validate:"required,min=10,max=500"`
	SenderEmail string `json:"sender_email" validate:"required,email"`
}

// EmployeeService implements the employee operations of a tenant
type EmployeeService struct {
	employees repositories.EmployeeRepository
	audit     audit.Recorder
	logger    *zap.Logger
}

// NewEmployeeService creates an employee service. recorder may be nil.
func NewEmployeeService(employees repositories.EmployeeRepository, recorder audit.Recorder, logger *zap.Logger) *EmployeeService {
	return &EmployeeService{
		employees: employees,
		audit:     recorder,
		logger:    logger,
	}
}

// Create stores a new employee. The employee id is unique per tenant.
func (s *EmployeeService) Create(ctx context.Context, tenantID, userID string, in CreateEmployeeInput) (*models.Employee, error) {
	_, err := s.employees.GetByEmployeeID(ctx, tenantID, in.EmployeeID)
	switch {
	case err == nil:
		return nil, employeeIDTaken(in.EmployeeID)
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, services.WrapInternal("failed to check employee id", err)
	}

	e := models.NewEmployee(tenantID, in.EmployeeID, in.FirstName, in.LastName,
		strings.ToLower(in.Email), in.Department, in.Position, in.HireDate, in.Salary)
	e.Phone = in.Phone
	e.Location = in.OfficeLocation
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}

	if err := s.employees.Create(ctx, e); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, employeeIDTaken(in.EmployeeID)
		}
		return nil, services.WrapInternal("failed to create employee", err)
	}

	s.logger.Info("employee created",
		zap.String("employee_id", e.EmployeeID),
		zap.String("department", e.Department),
		zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionEmployeeCreated, e, userID)
	return e, nil
}

// Get returns an employee by business identifier
func (s *EmployeeService) Get(ctx context.Context, tenantID, employeeID string) (*models.Employee, error) {
	e, err := s.employees.GetByEmployeeID(ctx, tenantID, employeeID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.ErrEmployeeNotFound.Withf("Employee %s not found", employeeID)
		}
		return nil, services.WrapInternal("failed to get employee", err)
	}
	return e, nil
}

// List returns the tenant's employees matching filter
func (s *EmployeeService) List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error) {
	employees, err := s.employees.List(ctx, tenantID, filter)
	if err != nil {
		return nil, services.WrapInternal("failed to list employees", err)
	}
	return employees, nil
}

// Update changes an employee
func (s *EmployeeService) Update(ctx context.Context, tenantID, userID, employeeID string, in UpdateEmployeeInput) (*models.Employee, error) {
	e, err := s.Get(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		e.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		e.LastName = *in.LastName
	}
	if in.Email != nil {
		e.Email = strings.ToLower(*in.Email)
	}
	if in.Phone != nil {
		e.Phone = in.Phone
	}
	if in.Department != nil {
		e.Department = *in.Department
	}
	if in.Position != nil {
		e.Position = *in.Position
	}
	if in.OfficeLocation != nil {
		e.Location = in.OfficeLocation
	}
	if in.Salary != nil {
		e.Salary = *in.Salary
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	e.UpdatedAt = time.Now()

	if err := s.save(ctx, e); err != nil {
		return nil, err
	}

	s.logger.Info("employee updated",
		zap.String("employee_id", e.EmployeeID),
		zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionEmployeeUpdated, e, userID)
	return e, nil
}

// Deactivate marks an employee inactive. Employee rows are never removed.
func (s *EmployeeService) Deactivate(ctx context.Context, tenantID, userID, employeeID string) error {
	e, err := s.Get(ctx, tenantID, employeeID)
	if err != nil {
		return err
	}

	e.IsActive = false
	e.UpdatedAt = time.Now()
	if err := s.save(ctx, e); err != nil {
		return err
	}

	s.logger.Info("employee deactivated",
		zap.String("employee_id", employeeID),
		zap.String("tenant_id", tenantID))
	s.record(ctx, models.AuditActionEmployeeDeactivated, e, userID)
	return nil
}

// Statistics summarizes the tenant's workforce
func (s *EmployeeService) Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error) {
	stats, err := s.employees.Statistics(ctx, tenantID)
	if err != nil {
		return nil, services.WrapInternal("failed to compute employee statistics", err)
	}
	return stats, nil
}

// Directory lists active employees with public fields only
func (s *EmployeeService) Directory(ctx context.Context, tenantID, department, search string, skip, limit int) ([]*models.PublicEmployee, error) {
	if limit <= 0 {
		limit = DirectoryDefaultLimit
	}
	if limit > DirectoryMaxLimit {
		limit = DirectoryMaxLimit
	}

	active := true
	employees, err := s.List(ctx, tenantID, models.EmployeeFilter{
		Department: department,
		IsActive:   &active,
		Search:     search,
		Skip:       skip,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}

	out := make([]*models.PublicEmployee, len(employees))
	for i, e := range employees {
		out[i] = e.Public()
	}

	s.logger.Info("public directory accessed",
		zap.Int("returned", len(out)),
		zap.String("tenant_id", tenantID))
	return out, nil
}

// PublicInfo returns the public fields of an active employee
func (s *EmployeeService) PublicInfo(ctx context.Context, tenantID, employeeID string) (*models.PublicEmployee, error) {
	e, err := s.Get(ctx, tenantID, employeeID)
	if err != nil {
		return nil, err
	}
	if !e.IsActive {
		return nil, services.ErrEmployeeNotFound.Withf("Employee %s not found", employeeID)
	}
	return e.Public(), nil
}

// Contact accepts a message for an active employee. Delivery is out of band;
// the request is only logged.
func (s *EmployeeService) Contact(ctx context.Context, tenantID string, in ContactInput) error {
	if _, err := s.PublicInfo(ctx, tenantID, in.EmployeeID); err != nil {
		return err
	}

	s.logger.Info("contact request received",
		zap.String("employee_id", in.EmployeeID),
		zap.String("sender_email", in.SenderEmail),
		zap.Int("message_length", len(in.Message)),
		zap.String("tenant_id", tenantID))
	return nil
}

func (s *EmployeeService) save(ctx context.Context, e *models.Employee) error {
	if err := s.employees.Update(ctx, e); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrEmployeeNotFound.Withf("Employee %s not found", e.EmployeeID)
		}
		return services.WrapInternal("failed to update employee", err)
	}
	return nil
}

func (s *EmployeeService) record(ctx context.Context, action models.AuditAction, e *models.Employee, userID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, models.NewAuditLog(e.TenantID, action, "employee").
		WithUser(userID).
		WithResource(e.EmployeeID))
}

func employeeIDTaken(id string) error {
	return services.ErrDuplicateEmployeeID.Withf("Employee with ID '%s' already exists", id)
}
