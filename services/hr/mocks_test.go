package hr

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"github.com/upb/erp-backend/internal/workflow"
	"github.com/upb/erp-backend/models"
)

// MockEmployeeRepository is a mock implementation of EmployeeRepository
type MockEmployeeRepository struct {
	mock.Mock
}

func (m *MockEmployeeRepository) Create(ctx context.Context, employee *models.Employee) error {
	return m.Called(ctx, employee).Error(0)
}

func (m *MockEmployeeRepository) GetByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error) {
	args := m.Called(ctx, tenantID, employeeID)
	if e := args.Get(0); e != nil {
		return e.(*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmployeeRepository) List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error) {
	args := m.Called(ctx, tenantID, filter)
	if e := args.Get(0); e != nil {
		return e.([]*models.Employee), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEmployeeRepository) Update(ctx context.Context, employee *models.Employee) error {
	return m.Called(ctx, employee).Error(0)
}

func (m *MockEmployeeRepository) Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error) {
	args := m.Called(ctx, tenantID)
	if s := args.Get(0); s != nil {
		return s.(*models.EmployeeStatistics), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockTimeOffRepository is a mock implementation of TimeOffRepository
type MockTimeOffRepository struct {
	mock.Mock
}

func (m *MockTimeOffRepository) Create(ctx context.Context, req *models.TimeOffRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockTimeOffRepository) GetByID(ctx context.Context, tenantID, id string) (*models.TimeOffRequest, error) {
	args := m.Called(ctx, tenantID, id)
	if r := args.Get(0); r != nil {
		return r.(*models.TimeOffRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTimeOffRepository) List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error) {
	args := m.Called(ctx, tenantID, filter)
	if r := args.Get(0); r != nil {
		return r.([]*models.TimeOffRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTimeOffRepository) Update(ctx context.Context, req *models.TimeOffRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockTimeOffRepository) ListForYear(ctx context.Context, tenantID, employeeID string, year int) ([]*models.TimeOffRequest, error) {
	args := m.Called(ctx, tenantID, employeeID, year)
	if r := args.Get(0); r != nil {
		return r.([]*models.TimeOffRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWorkflow is a mock implementation of Workflow
type MockWorkflow struct {
	mock.Mock
}

func (m *MockWorkflow) CorrelateMessage(ctx context.Context, req workflow.MessageRequest) (*workflow.CorrelationResult, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*workflow.CorrelationResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkflow) ListTasks(ctx context.Context, q workflow.TaskQuery) ([]workflow.Task, error) {
	args := m.Called(ctx, q)
	if t := args.Get(0); t != nil {
		return t.([]workflow.Task), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockWorkflow) CompleteTask(ctx context.Context, taskID string, vars map[string]interface{}) error {
	return m.Called(ctx, taskID, vars).Error(0)
}

func (m *MockWorkflow) DeleteProcessInstance(ctx context.Context, id, reason string) error {
	return m.Called(ctx, id, reason).Error(0)
}

type recordingAuditor struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (r *recordingAuditor) Record(ctx context.Context, log *models.AuditLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
}

func (r *recordingAuditor) actions() []models.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AuditAction, len(r.logs))
	for i, l := range r.logs {
		out[i] = l.Action
	}
	return out
}

func ptr[T any](v T) *T {
	return &v
}
