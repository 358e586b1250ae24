package models

import (
	"time"

	"github.com/google/uuid"
)

// Employee is a tenant's staff member
type Employee struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TenantID   string    `json:"tenant_id" db:"tenant_id"`
	EmployeeID string    `json:"employee_id" db:"employee_id"` // business identifier, unique per tenant
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`
	Email      string    `json:"email" db:"email"`
	Phone      *string   `json:"phone,omitempty" db:"phone"`
	Department string    `json:"department" db:"department"`
	Position   string    `json:"position" db:"position"`
	Location   *string   `json:"office_location,omitempty" db:"office_location"`
	HireDate   time.Time `json:"hire_date" db:"hire_date"`
	Salary     float64   `json:"salary" db:"salary"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Employee model
func (Employee) TableName() string {
	return "employees"
}

// NewEmployee creates an active employee
func NewEmployee(tenantID, employeeID, firstName, lastName, email, department, position string, hireDate time.Time, salary float64) *Employee {
	now := time.Now()
	return &Employee{
		ID:         uuid.New(),
		TenantID:   tenantID,
		EmployeeID: employeeID,
		FirstName:  firstName,
		LastName:   lastName,
		Email:      email,
		Department: department,
		Position:   position,
		HireDate:   hireDate,
		Salary:     salary,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// FullName joins first and last name
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// PublicEmployee is the directory view of an employee. It carries no
// salary, phone or hire date.
type PublicEmployee struct {
	EmployeeID     string  `json:"employee_id"`
	Name           string  `json:"name"`
	Department     string  `json:"department"`
	Position       string  `json:"position"`
	Email          string  `json:"email"`
	OfficeLocation *string `json:"office_location,omitempty"`
}

// Public returns the directory view of the employee
func (e *Employee) Public() *PublicEmployee {
	return &PublicEmployee{
		EmployeeID:     e.EmployeeID,
		Name:           e.FullName(),
		Department:     e.Department,
		Position:       e.Position,
		Email:          e.Email,
		OfficeLocation: e.Location,
	}
}

// EmployeeFilter narrows employee listings
type EmployeeFilter struct {
	Department string
	IsActive   *bool
	Search     string
	Skip       int
	Limit      int
}

// EmployeeStatistics summarizes a tenant's workforce
type EmployeeStatistics struct {
	TotalEmployees    int            `json:"total_employees"`
	ActiveEmployees   int            `json:"active_employees"`
	InactiveEmployees int            `json:"inactive_employees"`
	ByDepartment      map[string]int `json:"by_department"`
	AverageSalary     float64        `json:"average_salary"`
}
