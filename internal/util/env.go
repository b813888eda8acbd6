// Package util provides environment parsing and phrase selection helpers
// shared across components.
package util

import (
	"log/slog"
	"os"
	"strings"
)

// GetEnv returns the value of an environment variable, falling back when it
// is unset or empty.
func GetEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// ParseBoolEnv reads a boolean environment variable. Accepted values are
// true/1/yes/on and false/0/no/off, case-insensitive; anything else falls
// back to the default.
func ParseBoolEnv(key string, fallback bool) bool {
	val := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if val == "" {
		return fallback
	}
	switch val {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	slog.Warn("ParseBoolEnv: unrecognized value, using fallback", "key", key, "value", val, "fallback", fallback)
	return fallback
}
