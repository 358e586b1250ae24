package ratelimit

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

// KeyFunc derives the actor part of a rate limit key from a request.
type KeyFunc func(r *http.Request) string

// Rule limits requests to a path or path prefix.
type Rule struct {
	Path     string
	Requests int
	Window   time.Duration
	KeyFunc  KeyFunc // nil means IPKey
}

// Rules resolves the rule for a request path: exact match first, then the
// longest matching prefix, then the default.
type Rules struct {
	def      Rule
	exact    map[string]Rule
	prefixes []Rule
	exempt   []string
}

// NewRules builds an immutable rule set
func NewRules(def Rule, exempt []string, rules ...Rule) *Rules {
	rs := &Rules{
		def:    def,
		exact:  make(map[string]Rule, len(rules)),
		exempt: append([]string(nil), exempt...),
	}
	for _, rule := range rules {
		rs.exact[rule.Path] = rule
		rs.prefixes = append(rs.prefixes, rule)
	}
	sort.SliceStable(rs.prefixes, func(i, j int) bool {
		return len(rs.prefixes[i].Path) > len(rs.prefixes[j].Path)
	})
	return rs
}

// Exempt reports whether path bypasses rate limiting
func (rs *Rules) Exempt(path string) bool {
	for _, prefix := range rs.exempt {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Match returns the rule that applies to path
func (rs *Rules) Match(path string) Rule {
	if rule, ok := rs.exact[path]; ok {
		return rule
	}
	for _, rule := range rs.prefixes {
		if strings.HasPrefix(path, rule.Path) {
			return rule
		}
	}
	return rs.def
}

// Key builds the full counter key for a request under rule: the actor key,
// the tenant header when present and a short hash of the exact path.
func Key(r *http.Request, rule Rule) string {
	keyFunc := rule.KeyFunc
	if keyFunc == nil {
		keyFunc = IPKey
	}
	key := keyFunc(r)
	if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" {
		key += ":tenant:" + tenantID
	}
	return key + ":path:" + pathHash(r.URL.Path)
}

func pathHash(path string) string {
	sum := md5.Sum([]byte(path))
	return hex.EncodeToString(sum[:])[:8]
}

// ClientIP returns the first X-Forwarded-For entry, falling back to the
// remote address.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return first
		}
	}
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Key kinds accepted by KeyFuncFor
const (
	KeyIP     = "ip"
	KeyUser   = "user"
	KeyTenant = "tenant"
)

// KeyFuncFor maps a configured key kind to its KeyFunc. An empty kind is
// KeyIP. subject is only used for KeyUser.
func KeyFuncFor(kind string, subject func(r *http.Request) string) (KeyFunc, error) {
	switch kind {
	case "", KeyIP:
		return IPKey, nil
	case KeyUser:
		return UserKey(subject), nil
	case KeyTenant:
		return TenantKey, nil
	default:
		return nil, fmt.Errorf("unknown rate limit key %q", kind)
	}
}

// IPKey keys requests by client IP
func IPKey(r *http.Request) string {
	return "rate_limit:" + ClientIP(r)
}

// UserKey keys requests by the user subject finds on the request,
// falling back to the client IP.
func UserKey(subject func(r *http.Request) string) KeyFunc {
	return func(r *http.Request) string {
		if userID := subject(r); userID != "" {
			return "rate_limit:user:" + userID
		}
		return IPKey(r)
	}
}

// TenantKey keys requests by the X-Tenant-ID header, falling back to the
// client IP.
func TenantKey(r *http.Request) string {
	if tenantID := r.Header.Get("X-Tenant-ID"); tenantID != "" {
		return "rate_limit:tenant:" + tenantID
	}
	return IPKey(r)
}
