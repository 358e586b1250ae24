package audit

import (
	"encoding/json"
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveKeys are detail keys whose values are never persisted
var sensitiveKeys = []string{"password", "secret", "token", "authorization", "api_key"}

var sensitivePatterns = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	// JWTs, such as a pasted access token
	{regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`), "[JWT_REDACTED]"},
	// card numbers, with or without separators
	{regexp.MustCompile(`\b(?:\d[ -]?){12,15}\d\b`), "[CARD_REDACTED]"},
	// US social security numbers
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "[SSN_REDACTED]"},
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`), "[KEY_REDACTED]"},
}

// RedactText masks tokens, card numbers, SSNs and private keys in s
func RedactText(s string) string {
	for _, p := range sensitivePatterns {
		s = p.pattern.ReplaceAllString(s, p.replacement)
	}
	return s
}

func isSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}

// RedactDetails rewrites a JSON details document so that values under
// sensitive keys are dropped and free text is masked. Documents that are
// not valid JSON are returned unchanged.
func RedactDetails(details json.RawMessage) json.RawMessage {
	if len(details) == 0 {
		return details
	}
	var doc interface{}
	if err := json.Unmarshal(details, &doc); err != nil {
		return details
	}
	out, err := json.Marshal(redactValue(doc))
	if err != nil {
		return details
	}
	return out
}

func redactValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		for k, inner := range val {
			if isSensitiveKey(k) {
				val[k] = redacted
				continue
			}
			val[k] = redactValue(inner)
		}
		return val
	case []interface{}:
		for i, inner := range val {
			val[i] = redactValue(inner)
		}
		return val
	case string:
		return RedactText(val)
	default:
		return v
	}
}
