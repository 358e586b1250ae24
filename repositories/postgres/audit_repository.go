package postgres

import (
	"context"
	"fmt"

	"github.com/upb/erp-backend/models"
	"github.com/upb/erp-backend/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, tenant_id, user_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, status_code, error_message, timestamp
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		log.ID,
		log.TenantID,
		log.UserID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		log.IPAddress,
		log.UserAgent,
		log.RequestID,
		log.StatusCode,
		log.ErrorMessage,
		log.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// List retrieves audit logs matching filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	var c conditions
	if filter.TenantID != "" {
		c.add("tenant_id = ?", filter.TenantID)
	}
	if filter.UserID != nil {
		c.add("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		c.add("action = ?", *filter.Action)
	}
	if filter.ResourceType != nil {
		c.add("resource_type = ?", *filter.ResourceType)
	}
	if filter.StartTime != nil {
		c.add("timestamp >= ?", *filter.StartTime)
	}
	if filter.EndTime != nil {
		c.add("timestamp <= ?", *filter.EndTime)
	}

	query := `
		SELECT id, tenant_id, user_id, action, resource_type, resource_id,
		       details, ip_address, user_agent, request_id, status_code, error_message, timestamp
		FROM audit_logs` + c.where() + ` ORDER BY timestamp DESC` + c.page(filter.Limit, filter.Offset)

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, c.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log := &models.AuditLog{}
		var details []byte
		var ip, userAgent, requestID *string
		err := rows.Scan(
			&log.ID,
			&log.TenantID,
			&log.UserID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&details,
			&ip,
			&userAgent,
			&requestID,
			&log.StatusCode,
			&log.ErrorMessage,
			&log.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Details = details
		log.IPAddress = deref(ip)
		log.UserAgent = deref(userAgent)
		log.RequestID = deref(requestID)
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
