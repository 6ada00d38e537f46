// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	formIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

// ValidateEmail checks if email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidFormID checks that id only uses the URL-safe alphabet of public form ids.
func ValidFormID(id string) bool {
	return formIDRegex.MatchString(id)
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	return SanitizeValue(input)
}

// SanitizeValue strips null bytes and repairs invalid UTF-8 without
// touching surrounding whitespace, so submitted values stay as typed.
func SanitizeValue(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.ToValidUTF8(input, "�")
}
