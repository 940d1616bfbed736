package logger

import (
	"log/slog"
	"strings"
	"sync/atomic"
)

// Sensitive key patterns that should be redacted.
var sensitiveKeyPatterns = []string{
	"passphrase",
	"password",
	"secret",
	"signature",
	"private",
	"seed",
	"token",
	"credential",
	"bearer",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// maskIdentities enables partial masking of identity attributes.
var maskIdentities atomic.Bool

// SetIdentityMask turns masking of "identity" attributes on or off.
func SetIdentityMask(enabled bool) {
	maskIdentities.Store(enabled)
}

// redactSensitive checks if an attribute contains sensitive data
// and redacts it if necessary.
func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindString {
		strVal := a.Value.String()
		if strVal == "" {
			return a
		}

		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}
		if maskIdentities.Load() && isIdentityKey(a.Key) {
			return slog.String(a.Key, MaskIdentity(strVal))
		}
	}

	// Handle nested groups recursively
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		newAttrs := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			newAttrs[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(newAttrs...)}
	}

	return a
}

// MaskIdentity shortens an account identifier to its first and last four
// characters, e.g. "7Np4...T4K2". Short values are returned unchanged.
func MaskIdentity(value string) string {
	if len(value) <= 8 {
		return value
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// RedactString returns the placeholder for any non-empty value.
// Use this when a secret has to appear inside a message.
func RedactString(value string) string {
	if value == "" {
		return ""
	}
	return redactedValue
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}

func isIdentityKey(key string) bool {
	k := strings.ToLower(key)
	return k == "identity" || strings.HasSuffix(k, "_identity") || k == "public_key"
}
