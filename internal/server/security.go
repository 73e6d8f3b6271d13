// Package server provides security utilities for HTTP servers.
package server

import (
	"regexp"
	"strings"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_-]*$`)

// ValidateIdentifier validates that a string is a safe identifier.
// Identifiers must:
// - Start with a letter or underscore
// - Contain only letters, numbers, underscores, and hyphens
// - Be between 1 and 64 characters
func ValidateIdentifier(input string) bool {
	if len(input) == 0 || len(input) > 64 {
		return false
	}
	return identifierPattern.MatchString(input)
}

// SanitizeUserInput performs general sanitization on user input.
// It trims whitespace and removes control characters.
func SanitizeUserInput(input string) string {
	input = strings.TrimSpace(input)

	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		// Allow printable characters, newline, and tab
		if r >= 0x20 || r == '\n' || r == '\t' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// LimitStringLength truncates a string to a maximum length.
func LimitStringLength(input string, maxLength int) string {
	if len(input) <= maxLength {
		return input
	}
	return input[:maxLength]
}

// ValidateContentType checks if a Content-Type header is in the allowed list.
func ValidateContentType(contentType string, allowed []string) bool {
	// Extract just the media type, ignore parameters
	parts := strings.Split(contentType, ";")
	mediaType := strings.TrimSpace(parts[0])

	for _, allowedType := range allowed {
		if strings.EqualFold(mediaType, allowedType) {
			return true
		}
	}

	return false
}
