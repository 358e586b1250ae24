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

const timeOffColumns = `id, tenant_id, employee_id, type, start_date, end_date, days_requested, reason,
	emergency_contact, status, business_key, process_instance_id, submitted_by, approved_by,
	approver_comments, submitted_at, updated_at`

// TimeOffRepository implements the repositories.TimeOffRepository interface
type TimeOffRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTimeOffRepository creates a new time-off request repository
func NewTimeOffRepository(db *DB, logger *zap.Logger) repositories.TimeOffRepository {
	return &TimeOffRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new time-off request
func (r *TimeOffRepository) Create(ctx context.Context, req *models.TimeOffRequest) error {
	query := `
		INSERT INTO time_off_requests (` + timeOffColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		req.ID,
		req.TenantID,
		req.EmployeeID,
		req.Type,
		req.StartDate,
		req.EndDate,
		req.DaysRequested,
		req.Reason,
		req.EmergencyContact,
		req.Status,
		req.BusinessKey,
		req.ProcessInstanceID,
		req.SubmittedBy,
		req.ApprovedBy,
		req.ApproverComments,
		req.SubmittedAt,
		req.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("time-off request %s: %w", req.ID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create time-off request: %w", err)
	}

	r.logger.Debug("time-off request created",
		zap.String("id", req.ID),
		zap.String("employee_id", req.EmployeeID))
	return nil
}

// GetByID retrieves a time-off request of the tenant
func (r *TimeOffRepository) GetByID(ctx context.Context, tenantID, id string) (*models.TimeOffRequest, error) {
	query := `SELECT ` + timeOffColumns + ` FROM time_off_requests WHERE tenant_id = $1 AND id = $2`

	executor := GetExecutor(ctx, r.db)
	req, err := scanTimeOff(executor.QueryRowContext(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("time-off request", id)
		}
		return nil, fmt.Errorf("failed to get time-off request: %w", err)
	}

	return req, nil
}

// List retrieves the tenant's time-off requests, most recent first
func (r *TimeOffRepository) List(ctx context.Context, tenantID string, filter models.TimeOffFilter) ([]*models.TimeOffRequest, error) {
	var c conditions
	c.add("tenant_id = ?", tenantID)
	if filter.EmployeeID != "" {
		c.add("employee_id = ?", filter.EmployeeID)
	}
	if filter.Status != nil {
		c.add("status = ?", *filter.Status)
	}

	query := `SELECT ` + timeOffColumns + ` FROM time_off_requests` + c.where() +
		` ORDER BY submitted_at DESC` + c.page(filter.Limit, filter.Skip)

	return r.queryTimeOff(ctx, query, c.args...)
}

// ListForYear retrieves an employee's requests starting in year
func (r *TimeOffRepository) ListForYear(ctx context.Context, tenantID, employeeID string, year int) ([]*models.TimeOffRequest, error) {
	query := `
		SELECT ` + timeOffColumns + `
		FROM time_off_requests
		WHERE tenant_id = $1 AND employee_id = $2 AND EXTRACT(YEAR FROM start_date) = $3
		ORDER BY start_date
	`

	return r.queryTimeOff(ctx, query, tenantID, employeeID, year)
}

// Update updates the status fields of a time-off request
func (r *TimeOffRepository) Update(ctx context.Context, req *models.TimeOffRequest) error {
	query := `
		UPDATE time_off_requests
		SET status = $3, process_instance_id = $4, approved_by = $5, approver_comments = $6, updated_at = $7
		WHERE tenant_id = $1 AND id = $2
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		req.TenantID,
		req.ID,
		req.Status,
		req.ProcessInstanceID,
		req.ApprovedBy,
		req.ApproverComments,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update time-off request: %w", err)
	}

	if err := expectOneRow(result, "time-off request", req.ID); err != nil {
		return err
	}

	r.logger.Debug("time-off request updated",
		zap.String("id", req.ID),
		zap.String("status", string(req.Status)))
	return nil
}

func (r *TimeOffRepository) queryTimeOff(ctx context.Context, query string, args ...interface{}) ([]*models.TimeOffRequest, error) {
	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time-off requests: %w", err)
	}
	defer rows.Close()

	requests := []*models.TimeOffRequest{}
	for rows.Next() {
		req, err := scanTimeOff(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time-off request: %w", err)
		}
		requests = append(requests, req)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating time-off rows: %w", err)
	}

	return requests, nil
}

func scanTimeOff(row rowScanner) (*models.TimeOffRequest, error) {
	req := &models.TimeOffRequest{}
	err := row.Scan(
		&req.ID,
		&req.TenantID,
		&req.EmployeeID,
		&req.Type,
		&req.StartDate,
		&req.EndDate,
		&req.DaysRequested,
		&req.Reason,
		&req.EmergencyContact,
		&req.Status,
		&req.BusinessKey,
		&req.ProcessInstanceID,
		&req.SubmittedBy,
		&req.ApprovedBy,
		&req.ApproverComments,
		&req.SubmittedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
