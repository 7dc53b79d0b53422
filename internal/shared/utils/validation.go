package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Payload size limits (in bytes)
const (
	// MaxSourceBytes caps one snippet's source text. Generous for a
	// playground; pages of pasted code still fit.
	MaxSourceBytes = 128 * 1024
	MaxURLLength   = 2048
)

// String length limits
const (
	MaxIDLength    = 128
	MaxQueryLength = 256
	MaxTitleLength = 256
)

// Regular expressions for validation
var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// ToolIDPattern allows alphanumeric, hyphens, underscores, and dots (for service.tool format)
	ToolIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil // Optional field, empty is OK
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	// Check for null bytes (security issue)
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateID validates an ID field
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidateToolID validates a tool ID field (allows dots for service.tool format)
func ValidateToolID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}

	if id != "" && !ToolIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, dots, hyphens, and underscores allowed)", fieldName)
	}

	return nil
}

// ValidateSource validates snippet source text. An empty snippet is
// valid; only the size cap and byte content are checked.
func ValidateSource(source string) error {
	if len(source) > MaxSourceBytes {
		return fmt.Errorf("source size %d bytes exceeds maximum %d bytes", len(source), MaxSourceBytes)
	}

	if strings.Contains(source, "\x00") {
		return fmt.Errorf("source contains null bytes")
	}

	return nil
}

// ValidateQuery validates a search query
func ValidateQuery(query string) error {
	if err := ValidateString(query, "query", 1, MaxQueryLength, true); err != nil {
		return err
	}

	// Check for excessive whitespace (potential DoS)
	whitespaceCount := 0
	for _, r := range query {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			whitespaceCount++
		}
	}

	if whitespaceCount > len(query)/2 {
		return fmt.Errorf("query contains excessive whitespace")
	}

	return nil
}

// ValidateURL validates an import URL. Only http and https targets are
// accepted.
func ValidateURL(rawURL string) error {
	if err := ValidateString(rawURL, "url", 1, MaxURLLength, true); err != nil {
		return err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url missing host")
	}

	return nil
}
