package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/services/finance"
	"github.com/upb/erp-backend/services/hr"
	"github.com/upb/erp-backend/services/inventory"
)

// MockFinanceService is a mock implementation of FinanceService
type MockFinanceService struct {
	mock.Mock
}

func (m *MockFinanceService) Create(ctx context.Context, tenantID, userID string, in finance.CreateJournalEntryInput) (*models.JournalEntry, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JournalEntry), args.Error(1)
}

func (m *MockFinanceService) List(ctx context.Context, tenantID string, filter models.JournalEntryFilter) ([]*models.JournalEntry, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.JournalEntry), args.Error(1)
}

func (m *MockFinanceService) Get(ctx context.Context, tenantID, id string) (*models.JournalEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JournalEntry), args.Error(1)
}

func (m *MockFinanceService) Update(ctx context.Context, tenantID, userID, id string, in finance.UpdateJournalEntryInput) (*models.JournalEntry, error) {
	args := m.Called(ctx, tenantID, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JournalEntry), args.Error(1)
}

func (m *MockFinanceService) Void(ctx context.Context, tenantID, userID, id string) error {
	return m.Called(ctx, tenantID, userID, id).Error(0)
}

func (m *MockFinanceService) Approve(ctx context.Context, tenantID, userID, id string) (*models.JournalEntry, error) {
	args := m.Called(ctx, tenantID, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JournalEntry), args.Error(1)
}

// MockInventoryService is a mock implementation of InventoryService
type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) Create(ctx context.Context, tenantID, userID string, in inventory.CreateProductInput) (*models.Product, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryService) Get(ctx context.Context, tenantID, id string) (*models.Product, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryService) GetBySKU(ctx context.Context, tenantID, sku string) (*models.Product, error) {
	args := m.Called(ctx, tenantID, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryService) List(ctx context.Context, tenantID string, filter models.ProductFilter) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockInventoryService) Update(ctx context.Context, tenantID, userID, id string, in inventory.UpdateProductInput) (*models.Product, error) {
	args := m.Called(ctx, tenantID, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryService) Delete(ctx context.Context, tenantID, userID, id string, hard bool) error {
	return m.Called(ctx, tenantID, userID, id, hard).Error(0)
}

func (m *MockInventoryService) AdjustStock(ctx context.Context, tenantID, userID, id string, in inventory.StockAdjustmentInput) (*models.Product, error) {
	args := m.Called(ctx, tenantID, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockInventoryService) LowStock(ctx context.Context, tenantID string, limit int) ([]*models.Product, error) {
	args := m.Called(ctx, tenantID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Product), args.Error(1)
}

func (m *MockInventoryService) Statistics(ctx context.Context, tenantID string) (*models.ProductStatistics, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductStatistics), args.Error(1)
}

// MockEmployeeService is a mock implementation of EmployeeService
type MockEmployeeService struct {
	mock.Mock
}

func (m *MockEmployeeService) Create(ctx context.Context, tenantID, userID string, in hr.CreateEmployeeInput) (*models.Employee, error) {
	args := m.Called(ctx, tenantID, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockEmployeeService) Get(ctx context.Context, tenantID, employeeID string) (*models.Employee, error) {
	args := m.Called(ctx, tenantID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockEmployeeService) List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Employee), args.Error(1)
}

func (m *MockEmployeeService) Update(ctx context.Context, tenantID, userID, employeeID string, in hr.UpdateEmployeeInput) (*models.Employee, error) {
	args := m.Called(ctx, tenantID, userID, employeeID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Employee), args.Error(1)
}

func (m *MockEmployeeService) Deactivate(ctx context.Context, tenantID, userID, employeeID string) error {
	return m.Called(ctx, tenantID, userID, employeeID).Error(0)
}

func (m *MockEmployeeService) Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmployeeStatistics), args.Error(1)
}

func (m *MockEmployeeService) Directory(ctx context.Context, tenantID, department, search string, skip, limit int) ([]*models.PublicEmployee, error) {
	args := m.Called(ctx, tenantID, department, search, skip, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PublicEmployee), args.Error(1)
}

func (m *MockEmployeeService) PublicInfo(ctx context.Context, tenantID, employeeID string) (*models.PublicEmployee, error) {
	args := m.Called(ctx, tenantID, employeeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PublicEmployee), args.Error(1)
}

func (m *MockEmployeeService) Contact(ctx context.Context, tenantID string, in hr.ContactInput) error {
	return m.Called(ctx, tenantID, in).Error(0)
}

// MockTimeOffService is a mock implementation of TimeOffService
type MockTimeOffService struct {
	mock.Mock
}

func (m *MockTimeOffService) Submit(ctx context.Context, tenantID string, caller hr.Caller, in hr.SubmitTimeOffInput) (*hr.SubmitResult, error) {
	args := m.Called(ctx, tenantID, caller, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hr.SubmitResult), args.Error(1)
}

func (m *MockTimeOffService) List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error) {
	args := m.Called(ctx, tenantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TimeOffRequest), args.Error(1)
}

func (m *MockTimeOffService) Get(ctx context.Context, tenantID, id string) (*hr.TimeOffDetails, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hr.TimeOffDetails), args.Error(1)
}

func (m *MockTimeOffService) Decide(ctx context.Context, tenantID, approverID, id string, in hr.DecisionInput) (*models.TimeOffRequest, error) {
	args := m.Called(ctx, tenantID, approverID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeOffRequest), args.Error(1)
}

func (m *MockTimeOffService) Cancel(ctx context.Context, tenantID, userID, id string) error {
	return m.Called(ctx, tenantID, userID, id).Error(0)
}

func (m *MockTimeOffService) Balance(ctx context.Context, tenantID, employeeID string, year int) (*models.TimeOffBalances, error) {
	args := m.Called(ctx, tenantID, employeeID, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimeOffBalances), args.Error(1)
}
