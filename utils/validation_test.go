package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type productInput struct {
	SKU       string  `json:"sku" validate:"required,min=1,max=50"`
	Email     string  `json:"email" validate:"omitempty,email"`
	UnitPrice float64 `json:"unit_price" validate:"gt=0"`
	Category  string  `json:"category" validate:"omitempty,oneof=raw_material finished_good"`
	Date      string  `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Internal  string  `json:"-" validate:"omitempty,max=2"`
}

func TestValidateStruct(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		s := productInput{SKU: "A-1", UnitPrice: 10, Category: "raw_material", Date: "2024-01-15"}
		assert.NoError(t, ValidateStruct(&s))
	})

	t.Run("fields reported by json name", func(t *testing.T) {
		s := productInput{Email: "not-an-email", Category: "toys", Date: "15/01/2024"}

		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))

		fields := GetValidationFields(err)
		assert.Equal(t, "sku is required", fields["sku"])
		assert.Equal(t, "email must be a valid email", fields["email"])
		assert.Equal(t, "unit_price must be greater than 0", fields["unit_price"])
		assert.Equal(t, "category must be one of: raw_material finished_good", fields["category"])
		assert.Equal(t, "date must be a date formatted as 2006-01-02", fields["date"])
	})

	t.Run("max length", func(t *testing.T) {
		s := productInput{SKU: "A-1", UnitPrice: 1, Internal: "toolong"}
		err := ValidateStruct(&s)
		require.Error(t, err)
		assert.Len(t, GetValidationFields(err), 1)
	})
}

func TestValidationError_Details(t *testing.T) {
	err := &ValidationError{Message: "Validation failed", Fields: map[string]string{"sku": "sku is required"}}

	assert.Equal(t, "Validation failed", err.Error())
	assert.Equal(t, map[string]interface{}{"sku": "sku is required"}, err.Details())
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{}))
	assert.False(t, IsValidationError(assert.AnError))
	assert.Nil(t, GetValidationFields(assert.AnError))
}

func TestValidateOneOf(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"allowed value", "draft", false},
		{"other allowed value", "posted", false},
		{"not allowed", "archived", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOneOf(tt.value, "status", []string{"draft", "posted"})
			if tt.wantErr {
				assert.EqualError(t, err, "status must be one of: draft, posted")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
