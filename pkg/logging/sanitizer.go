package logging

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxQueryLogLength is the maximum length of a script excerpt to log
	MaxQueryLogLength = 100
	// MaxParameterLogLength is the maximum length of a logged parameter value
	MaxParameterLogLength = 200
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// Pattern to match potential passwords in connection strings
	// Matches: password=xxx, pwd=xxx, pass=xxx, client_secret=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass|client_?secret)=[^;&\s]+`)

	// Pattern to match bearer tokens, e.g. Azure AD access tokens echoed in driver errors
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// Pattern to match potential API keys
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// Pattern to match connection string credentials (user:pass@host format)
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)

	// Parameter names whose values are never logged or stored
	sensitiveKeywords = []string{"password", "secret", "token", "key", "credential"}
)

// SanitizeConnectionString removes sensitive data from connection strings
// Use this before logging any connection string
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(connStr, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeError sanitizes error messages that might contain sensitive data.
// Driver errors sometimes echo the DSN they failed with.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := passwordPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	sanitized = bearerPattern.ReplaceAllString(sanitized, "Bearer "+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = connStringPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@"+RedactedText)

	return sanitized
}

// SanitizeQuery truncates and sanitizes a script body for logging
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}

	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)

	return sanitized
}

// SanitizeParameters returns a copy of script parameter values that is safe to
// log or persist. Values of sensitively named parameters are redacted, long
// strings are truncated, and non-JSON values are reduced to strings.
func SanitizeParameters(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}

	result := make(map[string]any, len(params))
	for k, v := range params {
		if IsSensitiveName(k) {
			result[k] = RedactedText
			continue
		}
		result[k] = sanitizeValue(v)
	}
	return result
}

// IsSensitiveName reports whether a parameter name suggests a secret value.
func IsSensitiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

func sanitizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val
	case string:
		return truncateRunes(val, MaxParameterLogLength)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return truncateRunes(val.String(), MaxParameterLogLength)
	default:
		return truncateRunes(fmt.Sprint(val), MaxParameterLogLength)
	}
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// truncateRunes is TruncateString for user text, which must stay valid UTF-8.
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes]) + "..."
}
