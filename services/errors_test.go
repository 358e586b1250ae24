package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "product not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: product not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeBadRequest,
				Message: "Total debit must equal total credit",
			},
			wantMsg: "bad_request: Total debit must equal total credit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeInternal, "internal error", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same error type", NotFound("Product %s not found", "PRD-1"), ErrProductNotFound, true},
		{"different error type", ErrInvalidInput, ErrProductNotFound, false},
		{"not a domain error", ErrProductNotFound, errors.New("regular error"), false},
		{"reason target matches same reason", ErrTenantNotFound.Withf("Tenant '%s' not found", "t-9"), ErrTenantNotFound, true},
		{"reason target rejects plain error of same type", NotFound("Tenant %s not found", "t-9"), ErrTenantNotFound, false},
		{"reason error matches plain target of same type", ErrTenantNotFound, ErrEmployeeNotFound, true},
		{"different reasons do not match", NewReasonError(ErrorTypeForbidden, "a", "a"), NewReasonError(ErrorTypeForbidden, "b", "b"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDomainError_WithfAndWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	err := ErrStoreUnavailable.Withf("tenant store unavailable").Wrap(cause)

	assert.Equal(t, ErrorTypeUnavailable, err.Type)
	assert.Equal(t, "tenant store unavailable", err.Message)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Nil(t, ErrStoreUnavailable.Err, "sentinel must not be mutated")
	assert.Equal(t, "backing store unavailable", ErrStoreUnavailable.Message)
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)

	err.WithDetail("field", "sku").WithDetail("value", "")

	assert.Equal(t, "sku", err.Details["field"])
	assert.Equal(t, "", err.Details["value"])
}

func TestFormattedConstructors(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		errType ErrorType
		message string
	}{
		{"not found", NotFound("Product %s not found", "PRD-1"), ErrorTypeNotFound, "Product PRD-1 not found"},
		{"bad request", BadRequest("Cannot update %s entry", "posted"), ErrorTypeBadRequest, "Cannot update posted entry"},
		{"forbidden", Forbidden("Tenant '%s' is not active", "tenant-3"), ErrorTypeForbidden, "Tenant 'tenant-3' is not active"},
		{"conflict", Conflict("Product with SKU '%s' already exists", "A1"), ErrorTypeConflict, "Product with SKU 'A1' already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.message, tt.err.Message)
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"not found error", ErrTenantNotFound, true},
		{"wrapped not found", fmt.Errorf("wrapped: %w", ErrEmployeeNotFound), true},
		{"validation error", ErrInvalidInput, false},
		{"regular error", errors.New("regular"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFoundError(tt.err))
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", ErrJournalEntryNotFound, ErrorTypeNotFound},
		{"bad request", ErrUnbalancedEntry, ErrorTypeBadRequest},
		{"rate limit", ErrRateLimitExceeded, ErrorTypeRateLimit},
		{"unavailable", ErrWorkflowUnavailable, ErrorTypeUnavailable},
		{"regular error", errors.New("regular"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetErrorType(tt.err))
		})
	}
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(ErrorTypeValidation, "validation error", nil)
	err.WithDetail("field", "email").WithDetail("reason", "invalid format")

	details := GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "email", details["field"])
	assert.Equal(t, "invalid format", details["reason"])

	assert.Nil(t, GetErrorDetails(errors.New("regular error")))
}

func TestPublicMessage(t *testing.T) {
	wrapped := WrapInternal("failed to load product", errors.New("connection reset"))
	assert.Equal(t, "failed to load product", PublicMessage(wrapped))
	assert.Equal(t, "Total debit must equal total credit", PublicMessage(fmt.Errorf("create: %w", ErrUnbalancedEntry)))
	assert.Equal(t, "plain", PublicMessage(errors.New("plain")))
}

func TestWrapError(t *testing.T) {
	baseErr := errors.New("base error")
	wrapped := WrapError(ErrorTypeInternal, "wrapped message", baseErr)

	var domainErr *DomainError
	require.True(t, errors.As(wrapped, &domainErr))
	assert.Equal(t, ErrorTypeInternal, domainErr.Type)
	assert.Equal(t, "wrapped message", domainErr.Message)
	assert.Equal(t, baseErr, errors.Unwrap(wrapped))
}

func TestWrapHelpers(t *testing.T) {
	baseErr := errors.New("connection refused")

	assert.True(t, IsInternalError(WrapInternal("failed to connect", baseErr)))
	assert.True(t, IsExternalError(WrapExternal("sales service failed", baseErr)))
	assert.True(t, IsUnavailableError(WrapUnavailable("camunda unreachable", baseErr)))
}

func TestErrorTypeCheckersCoverage(t *testing.T) {
	typeCheckers := map[ErrorType]func(error) bool{
		ErrorTypeNotFound:     IsNotFoundError,
		ErrorTypeValidation:   IsValidationError,
		ErrorTypeBadRequest:   IsBadRequestError,
		ErrorTypeUnauthorized: IsUnauthorizedError,
		ErrorTypeForbidden:    IsForbiddenError,
		ErrorTypeRateLimit:    IsRateLimitError,
		ErrorTypeConflict:     IsConflictError,
		ErrorTypeUnavailable:  IsUnavailableError,
		ErrorTypeInternal:     IsInternalError,
		ErrorTypeExternal:     IsExternalError,
	}

	for errType, checker := range typeCheckers {
		t.Run(string(errType), func(t *testing.T) {
			err := NewDomainError(errType, "test error", nil)
			assert.True(t, checker(err), "checker should return true for %s", errType)
		})
	}
}
