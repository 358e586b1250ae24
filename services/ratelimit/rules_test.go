package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRules() *Rules {
	def := Rule{Requests: 100, Window: time.Minute}
	return NewRules(def, []string{"/health", "/metrics"},
		Rule{Path: "/api/hr/public", Requests: 20, Window: time.Minute},
		Rule{Path: "/api/hr/public/directory", Requests: 10, Window: time.Minute},
		Rule{Path: "/api/hr/public/contact", Requests: 5, Window: time.Hour},
	)
}

func TestRules_Match(t *testing.T) {
	rules := testRules()

	tests := []struct {
		path     string
		requests int
	}{
		{"/api/hr/public/directory", 10},
		{"/api/hr/public/directory/extra", 10},
		{"/api/hr/public/contact", 5},
		{"/api/hr/public/employee/E1", 20},
		{"/api/finance/journal-entries", 100},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.requests, rules.Match(tt.path).Requests)
		})
	}
}

func TestRules_Exempt(t *testing.T) {
	rules := testRules()

	assert.True(t, rules.Exempt("/health"))
	assert.True(t, rules.Exempt("/health/ready"))
	assert.True(t, rules.Exempt("/metrics"))
	assert.False(t, rules.Exempt("/api/health"))
}

func TestClientIP(t *testing.T) {
	t.Run("forwarded for first entry", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		assert.Equal(t, "203.0.113.7", ClientIP(req))
	})

	t.Run("remote address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:54321"
		assert.Equal(t, "192.0.2.10", ClientIP(req))
	})

	t.Run("unknown", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ""
		assert.Equal(t, "unknown", ClientIP(req))
	})
}

func TestKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/hr/public/directory", nil)
	req.RemoteAddr = "192.0.2.10:1234"

	key := Key(req, Rule{})
	assert.True(t, strings.HasPrefix(key, "rate_limit:192.0.2.10:path:"))
	assert.Len(t, strings.TrimPrefix(key, "rate_limit:192.0.2.10:path:"), 8)

	req.Header.Set("X-Tenant-ID", "tenant-1")
	withTenant := Key(req, Rule{})
	assert.True(t, strings.HasPrefix(withTenant, "rate_limit:192.0.2.10:tenant:tenant-1:path:"))

	other := httptest.NewRequest(http.MethodGet, "/api/hr/public/directory/x", nil)
	other.RemoteAddr = "192.0.2.10:1234"
	other.Header.Set("X-Tenant-ID", "tenant-1")
	assert.NotEqual(t, withTenant, Key(other, Rule{}), "each exact path gets its own counter")
}

func TestKeyFuncs(t *testing.T) {
	lookup := func(r *http.Request) string {
		id, _ := r.Context().Value(ctxUserKey{}).(string)
		return id
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"

	assert.Equal(t, "rate_limit:192.0.2.10", UserKey(lookup)(req))
	assert.Equal(t, "rate_limit:192.0.2.10", TenantKey(req))

	req = req.WithContext(context.WithValue(req.Context(), ctxUserKey{}, "u-1"))
	req.Header.Set("X-Tenant-ID", "tenant-2")
	assert.Equal(t, "rate_limit:user:u-1", UserKey(lookup)(req))
	assert.Equal(t, "rate_limit:tenant:tenant-2", TenantKey(req))
}

type ctxUserKey struct{}

func TestKeyFuncFor(t *testing.T) {
	subject := func(r *http.Request) string { return r.Header.Get("X-User") }

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	req.Header.Set("X-User", "u-7")
	req.Header.Set("X-Tenant-ID", "tenant-3")

	tests := []struct {
		kind string
		want string
	}{
		{"", "rate_limit:192.0.2.10"},
		{KeyIP, "rate_limit:192.0.2.10"},
		{KeyUser, "rate_limit:user:u-7"},
		{KeyTenant, "rate_limit:tenant:tenant-3"},
	}

	for _, tt := range tests {
		t.Run("kind "+tt.kind, func(t *testing.T) {
			fn, err := KeyFuncFor(tt.kind, subject)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fn(req))
		})
	}

	_, err := KeyFuncFor("session", subject)
	assert.Error(t, err)
}
