package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeBadRequest   ErrorType = "bad_request"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeRateLimit    ErrorType = "rate_limit"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnavailable  ErrorType = "unavailable"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type ErrorType
	// Reason narrows Type for sentinels that share it, such as the tenant
	// errors that are all forbidden
	Reason  string
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type. A target with a Reason
// only matches errors carrying the same Reason.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Reason != "" && e.Reason != t.Reason {
		return false
	}
	return e.Type == t.Type
}

// Withf returns a copy of e, keeping its type and reason, with a formatted
// caller-facing message
func (e *DomainError) Withf(format string, args ...interface{}) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Reason:  e.Reason,
		Message: fmt.Sprintf(format, args...),
		Err:     e.Err,
		Details: make(map[string]interface{}),
	}
}

// Wrap returns a copy of e with err as its cause
func (e *DomainError) Wrap(err error) *DomainError {
	return &DomainError{
		Type:    e.Type,
		Reason:  e.Reason,
		Message: e.Message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// NewReasonError creates a sentinel that errors.Is tells apart from other
// errors of the same type
func NewReasonError(errType ErrorType, reason, message string) *DomainError {
	e := NewDomainError(errType, message, nil)
	e.Reason = reason
	return e
}

// NotFound builds a not_found error with a formatted message.
func NotFound(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrorTypeNotFound, fmt.Sprintf(format, args...), nil)
}

// BadRequest builds a bad_request error with a formatted message.
func BadRequest(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrorTypeBadRequest, fmt.Sprintf(format, args...), nil)
}

// Forbidden builds a forbidden error with a formatted message.
func Forbidden(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrorTypeForbidden, fmt.Sprintf(format, args...), nil)
}

// Conflict builds a conflict error with a formatted message.
func Conflict(format string, args ...interface{}) *DomainError {
	return NewDomainError(ErrorTypeConflict, fmt.Sprintf(format, args...), nil)
}

// Domain error variables

var (
	// Not Found Errors
	ErrTenantNotFound       = NewReasonError(ErrorTypeNotFound, "tenant_not_found", "tenant not found")
	ErrJournalEntryNotFound = NewDomainError(ErrorTypeNotFound, "journal entry not found", nil)
	ErrProductNotFound      = NewDomainError(ErrorTypeNotFound, "product not found", nil)
	ErrEmployeeNotFound     = NewDomainError(ErrorTypeNotFound, "employee not found", nil)
	ErrTimeOffNotFound      = NewDomainError(ErrorTypeNotFound, "time-off request not found", nil)

	// Validation Errors
	ErrInvalidInput = NewDomainError(ErrorTypeValidation, "invalid input", nil)

	// Bad Request Errors
	ErrUnbalancedEntry   = NewDomainError(ErrorTypeBadRequest, "Total debit must equal total credit", nil)
	ErrInvalidDateRange  = NewDomainError(ErrorTypeBadRequest, "End date must be after start date", nil)
	ErrNoPendingApproval = NewDomainError(ErrorTypeBadRequest, "No pending approval task found for this request", nil)

	// Authorization Errors
	ErrInvalidCredentials = NewDomainError(ErrorTypeUnauthorized, "Incorrect email or password", nil)
	ErrInactiveUser       = NewDomainError(ErrorTypeUnauthorized, "User account is inactive", nil)

	// Rate Limit Errors
	ErrRateLimitExceeded = NewDomainError(ErrorTypeRateLimit, "Rate limit exceeded. Please try again later.", nil)

	// Conflict Errors
	ErrDuplicateSKU        = NewDomainError(ErrorTypeConflict, "sku already exists", nil)
	ErrDuplicateEmployeeID = NewDomainError(ErrorTypeConflict, "employee id already exists", nil)

	// Unavailable Errors
	ErrWorkflowUnavailable = NewDomainError(ErrorTypeUnavailable, "workflow engine unavailable", nil)
	ErrStoreUnavailable    = NewDomainError(ErrorTypeUnavailable, "backing store unavailable", nil)
)

// Error type checking helper functions

func hasType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsBadRequestError checks if an error is a bad request error
func IsBadRequestError(err error) bool {
	return hasType(err, ErrorTypeBadRequest)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return hasType(err, ErrorTypeForbidden)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasType(err, ErrorTypeRateLimit)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasType(err, ErrorTypeConflict)
}

// IsUnavailableError checks if an error is an upstream unavailable error
func IsUnavailableError(err error) bool {
	return hasType(err, ErrorTypeUnavailable)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external service error
func IsExternalError(err error) bool {
	return hasType(err, ErrorTypeExternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// PublicMessage returns the caller-facing message of a domain error without
// the type prefix or the wrapped cause.
func PublicMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external service error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}

// WrapUnavailable wraps an error as an upstream unavailable error
func WrapUnavailable(message string, err error) error {
	return NewDomainError(ErrorTypeUnavailable, message, err)
}
