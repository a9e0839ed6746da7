package logger

import (
	"log/slog"
	"strings"
)

// Attribute names holding stored values. Stored values are user data
// and are masked unless the level is debug.
var valueKeys = []string{
	"value",
	"values",
}

// Attribute name patterns that are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if IsSensitiveKey(a.Key) {
		if a.Value.Kind() == slog.KindString && a.Value.String() == "" {
			return a
		}
		return slog.String(a.Key, redactedValue)
	}

	if isValueKey(a.Key) && globalLevel.Level() > slog.LevelDebug {
		if a.Value.Kind() == slog.KindString {
			return slog.String(a.Key, RedactString(a.Value.String()))
		}
		return slog.String(a.Key, redactedValue)
	}

	return a
}

func isValueKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, k := range valueKeys {
		if keyLower == k {
			return true
		}
	}
	return false
}

// maskValue keeps the first and last two bytes of value.
func maskValue(value string) string {
	if len(value) <= 6 {
		return "***"
	}
	return value[:2] + "..." + value[len(value)-2:]
}

// RedactString masks a stored value before logging.
func RedactString(value string) string {
	if value == "" {
		return value
	}
	return maskValue(value)
}

// IsSensitiveKey checks if an attribute name suggests secret content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
