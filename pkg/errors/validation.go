package errors

import (
	"strings"
	"unicode"
)

// ValidateID validates a layer or source identifier.
//
// Identifiers are opaque strings chosen by the stylesheet author, so the
// rules are minimal:
//   - No empty ids
//   - No control characters
//   - Maximum length of 256 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}

	if len(id) > 256 {
		return New(ErrCodeInvalidInput, "%s id too long (max 256 characters)", kind)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s id contains invalid control characters", kind)
		}
	}

	return nil
}

// supportedSchemes lists the URL schemes the file source can resolve.
var supportedSchemes = []string{"http://", "https://", "mapbox://", "file://"}

// ValidateURL validates a resource URL.
// It ensures the URL uses a scheme the file source understands.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "URL contains invalid control characters")
		}
	}

	for _, scheme := range supportedSchemes {
		if strings.HasPrefix(rawURL, scheme) {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URL must use one of the schemes %s", strings.Join(supportedSchemes, ", "))
}
