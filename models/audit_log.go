package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionLoginSucceeded       AuditAction = "login_succeeded"
	AuditActionLoginFailed          AuditAction = "login_failed"
	AuditActionJournalEntryCreated  AuditAction = "journal_entry_created"
	AuditActionJournalEntryUpdated  AuditAction = "journal_entry_updated"
	AuditActionJournalEntryApproved AuditAction = "journal_entry_approved"
	AuditActionJournalEntryVoided   AuditAction = "journal_entry_voided"
	AuditActionProductCreated       AuditAction = "product_created"
	AuditActionProductUpdated       AuditAction = "product_updated"
	AuditActionProductDeleted       AuditAction = "product_deleted"
	AuditActionStockAdjusted        AuditAction = "stock_adjusted"
	AuditActionEmployeeCreated      AuditAction = "employee_created"
	AuditActionEmployeeUpdated      AuditAction = "employee_updated"
	AuditActionEmployeeDeactivated  AuditAction = "employee_deactivated"
	AuditActionTimeOffSubmitted     AuditAction = "time_off_submitted"
	AuditActionTimeOffDecided       AuditAction = "time_off_decided"
	AuditActionTimeOffCancelled     AuditAction = "time_off_cancelled"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	TenantID     string          `json:"tenant_id" db:"tenant_id"`
	UserID       *string         `json:"user_id,omitempty" db:"user_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // journal_entry, product, employee, ...
	ResourceID   *string         `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details" db:"details"` // JSONB for flexible metadata
	IPAddress    string          `json:"ip_address" db:"ip_address"`
	UserAgent    string          `json:"user_agent" db:"user_agent"`
	RequestID    string          `json:"request_id" db:"request_id"`
	StatusCode   *int            `json:"status_code,omitempty" db:"status_code"`
	ErrorMessage *string         `json:"error_message,omitempty" db:"error_message"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// TableName returns the table name for the AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(tenantID string, action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		TenantID:     tenantID,
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithUser sets the acting user
func (a *AuditLog) WithUser(userID string) *AuditLog {
	if userID != "" {
		a.UserID = &userID
	}
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID string) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// WithError sets error information
func (a *AuditLog) WithError(statusCode int, errorMessage string) *AuditLog {
	a.StatusCode = &statusCode
	a.ErrorMessage = &errorMessage
	return a
}

// AuditLogFilter narrows audit log listings
type AuditLogFilter struct {
	TenantID     string
	UserID       *string
	Action       *AuditAction
	ResourceType *string
	StartTime    *time.Time
	EndTime      *time.Time
	Limit        int
	Offset       int
}
