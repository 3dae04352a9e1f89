package utils

import (
	"os"
	"strings"
)

// Version gaps between an installed and the latest application version.
const (
	PatchTypeMajor   = "major"
	PatchTypeMinor   = "minor"
	PatchTypePatch   = "patch"
	PatchTypeNone    = "none"
	PatchTypeUnknown = "unknown"
)

// DeduplicateStringSlice removes duplicate strings from a slice while preserving order.
func DeduplicateStringSlice(input []string) []string {
	seen := make(map[string]bool)
	var result []string
	for _, item := range input {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}
	return result
}

// NormalizeList trims every entry, drops blanks and duplicates.
func NormalizeList(input []string) []string {
	trimmed := make([]string, 0, len(input))
	for _, item := range input {
		if item = strings.TrimSpace(item); item != "" {
			trimmed = append(trimmed, item)
		}
	}
	return DeduplicateStringSlice(trimmed)
}

// GetEnvAny returns the first non-empty value among the named variables.
func GetEnvAny(names ...string) string {
	for _, n := range names {
		if val := os.Getenv(n); val != "" {
			return val
		}
	}
	return ""
}
