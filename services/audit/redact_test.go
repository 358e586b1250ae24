package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/models"
	"go.uber.org/zap"
)

func TestRedactText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain text", in: "Family vacation", want: "Family vacation"},
		{name: "card number", in: "paid with 4111 1111 1111 1111 today", want: "paid with [CARD_REDACTED] today"},
		{name: "ssn", in: "ssn 123-45-6789", want: "ssn [SSN_REDACTED]"},
		{name: "jwt", in: "token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig_part", want: "token [JWT_REDACTED]"},
		{name: "dates are kept", in: "from 2024-07-01 to 2024-07-05", want: "from 2024-07-01 to 2024-07-05"},
		{name: "email is kept", in: "jane@acme.com", want: "jane@acme.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactText(tt.in))
		})
	}
}

func TestRedactDetails(t *testing.T) {
	t.Run("sensitive keys and nested text", func(t *testing.T) {
		in := json.RawMessage(`{"email":"a@acme.com","password":"hunter2","nested":{"refresh_token":"x","notes":["card 4111111111111111"]},"amount":12.5}`)

		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(RedactDetails(in), &got))

		assert.Equal(t, "a@acme.com", got["email"])
		assert.Equal(t, "[REDACTED]", got["password"])
		nested := got["nested"].(map[string]interface{})
		assert.Equal(t, "[REDACTED]", nested["refresh_token"])
		assert.Equal(t, []interface{}{"card [CARD_REDACTED]"}, nested["notes"])
		assert.Equal(t, 12.5, got["amount"])
	})

	t.Run("empty and invalid documents are unchanged", func(t *testing.T) {
		assert.Nil(t, RedactDetails(nil))
		assert.Equal(t, json.RawMessage(`not json`), RedactDetails(json.RawMessage(`not json`)))
	})
}

func TestAuditService_RecordRedactsDetails(t *testing.T) {
	mockRepo := new(MockAuditRepository)
	mockRepo.On("Insert", mock.Anything, mock.Anything).Return(nil)

	service := NewAuditService(mockRepo, zap.NewNop(), DefaultConfig())
	require.NoError(t, service.Start())

	service.Record(context.Background(), models.NewAuditLog("tenant-1", models.AuditActionLoginFailed, "user").
		WithDetails(map[string]string{"email": "a@acme.com", "password": "wrong-pass"}).
		WithError(401, "bad token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.sig"))

	stopService(t, service)

	inserted := mockRepo.GetInsertedLogs()
	require.Len(t, inserted, 1)
	assert.JSONEq(t, `{"email":"a@acme.com","password":"[REDACTED]"}`, string(inserted[0].Details))
	require.NotNil(t, inserted[0].ErrorMessage)
	assert.Equal(t, "bad token [JWT_REDACTED]", *inserted[0].ErrorMessage)
}
