package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

const employeeColumns = `id, tenant_id, employee_id, first_name, last_name, email, phone, department, position,
	office_location, hire_date, salary, is_active, created_at, updated_at`

// EmployeeRepository implements the repositories.EmployeeRepository interface
type EmployeeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *DB, logger *zap.Logger) repositories.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new employee
func (r *EmployeeRepository) Create(ctx context.Context, e *models.Employee) error {
	query := `
		INSERT INTO employees (` + employeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		e.ID,
		e.TenantID,
		e.EmployeeID,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Phone,
		e.Department,
		e.Position,
		e.Location,
		e.HireDate,
		e.Salary,
		e.IsActive,
		e.CreatedAt,
		e.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("employee %s: %w", e.EmployeeID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create employee: %w", err)
	}

	r.logger.Debug("employee created",
		zap.String("employee_id", e.EmployeeID),
		zap.String("tenant_id", e.TenantID))
	return nil
}

// GetByEmployeeID retrieves an employee by business identifier
func (r *EmployeeRepository) GetByEmployeeID(ctx context.Context, tenantID, employeeID string) (*models.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE tenant_id = $1 AND employee_id = $2`

	executor := GetExecutor(ctx, r.db)
	e, err := scanEmployee(executor.QueryRowContext(ctx, query, tenantID, employeeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("employee", employeeID)
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return e, nil
}

// List retrieves the tenant's employees ordered by last name
func (r *EmployeeRepository) List(ctx context.Context, tenantID string, filter models.EmployeeFilter) ([]*models.Employee, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	if filter.Department != "" {
		c.add("lower(department) = lower(?)", filter.Department)
	}
	if filter.IsActive != nil {
		c.add("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		c.add("(first_name ILIKE ? OR last_name ILIKE ? OR email ILIKE ? OR position ILIKE ?)", "%"+filter.Search+"%")
	}

	query := `SELECT ` + employeeColumns + ` FROM employees` + c.where() +
		` ORDER BY last_name, first_name` + c.page(filter.Limit, filter.Skip)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []*models.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employee rows: %w", err)
	}

	return employees, nil
}

// Update updates an employee
func (r *EmployeeRepository) Update(ctx context.Context, e *models.Employee) error {
	query := `
		UPDATE employees
		SET first_name = $3, last_name = $4, email = $5, phone = $6, department = $7, position = $8,
		    office_location = $9, salary = $10, is_active = $11, updated_at = $12
		WHERE tenant_id = $1 AND employee_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		e.TenantID,
		e.EmployeeID,
		e.FirstName,
		e.LastName,
		e.Email,
		e.Phone,
		e.Department,
		e.Position,
		e.Location,
		e.Salary,
		e.IsActive,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
	}

	if err := expectOneRow(result, "employee", e.EmployeeID); err != nil {
		return err
	}

	r.logger.Debug("employee updated", zap.String("employee_id", e.EmployeeID))
	return nil
}

// Statistics summarizes the tenant's workforce
func (r *EmployeeRepository) Statistics(ctx context.Context, tenantID string) (*models.EmployeeStatistics, error) {
	executor := GetExecutor(ctx, r.db)

	stats := &models.EmployeeStatistics{ByDepartment: map[string]int{}}
	err := executor.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE is_active),
			COALESCE(AVG(salary) FILTER (WHERE is_active), 0)
		FROM employees
		WHERE tenant_id = $1
	`, tenantID).Scan(&stats.TotalEmployees, &stats.ActiveEmployees, &stats.AverageSalary)
	if err != nil {
		return nil, fmt.Errorf("failed to compute employee statistics: %w", err)
	}
	stats.InactiveEmployees = stats.TotalEmployees - stats.ActiveEmployees

	rows, err := executor.QueryContext(ctx, `
		SELECT department, COUNT(*)
		FROM employees
		WHERE tenant_id = $1 AND is_active
		GROUP BY department
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count employees by department: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var department string
		var count int
		if err := rows.Scan(&department, &count); err != nil {
			return nil, fmt.Errorf("failed to scan department count: %w", err)
		}
		stats.ByDepartment[department] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating department rows: %w", err)
	}

	return stats, nil
}

func scanEmployee(row rowScanner) (*models.Employee, error) {
	e := &models.Employee{}
	err := row.Scan(
		&e.ID,
		&e.TenantID,
		&e.EmployeeID,
		&e.FirstName,
		&e.LastName,
		&e.Email,
		&e.Phone,
		&e.Department,
		&e.Position,
		&e.Location,
		&e.HireDate,
		&e.Salary,
		&e.IsActive,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}
