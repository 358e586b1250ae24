package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/upb/erp-backend/internal/auth"
	"github.com/upb/erp-backend/middleware"
	"github.com/upb/erp-backend/models"
)

const (
	testTenantID = "tenant-1"
	testUserID   = "user-1"
)

// scopedRequest builds a request carrying the test tenant, the test user's
// claims and the given chi URL params
func scopedRequest(method, target, body string, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithTenant(ctx, &models.TenantContext{
		TenantID:   testTenantID,
		TenantName: "Acme Corp",
		IsActive:   true,
		Settings:   map[string]interface{}{"premium_enabled": true, "currency": "USD"},
	})
	ctx = middleware.WithClaims(ctx, &auth.Claims{
		Email:            "admin@acme.com",
		Role:             auth.RoleAdmin,
		Type:             auth.TokenTypeAccess,
		TenantID:         testTenantID,
		RegisteredClaims: jwt.RegisteredClaims{Subject: testUserID},
	})
	return req.WithContext(ctx)
}

// unscopedRequest has URL params but no tenant or claims
func unscopedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chi.NewRouteContext()))
}

// decodeData unmarshals the data field of a success response into dst
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}
