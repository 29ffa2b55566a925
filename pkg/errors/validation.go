package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds tech and save identifiers accepted from user input.
const maxIDLength = 128

// ValidateID validates an identifier received from the CLI or the HTTP API
// (tech IDs, save IDs). It rejects names that could be used for path
// traversal or injection when echoed into file names or queries.
//
// The validation rules are intentionally conservative:
//   - No empty IDs
//   - No control characters or whitespace
//   - No path separators or parent-directory sequences
//   - Maximum length of 128 characters
func ValidateID(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s id cannot be empty", kind)
	}
	if len(id) > maxIDLength {
		return New(ErrCodeInvalidInput, "%s id too long (max %d characters)", kind, maxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "%s id contains invalid characters", kind)
		}
	}
	if strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return New(ErrCodeInvalidInput, "%s id contains invalid characters", kind)
	}
	return nil
}

// ValidateSaveName validates a human-readable save name.
// Names may contain spaces but no control characters and are limited to 64 runes.
func ValidateSaveName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return New(ErrCodeInvalidInput, "save name cannot be empty")
	}
	if len([]rune(name)) > 64 {
		return New(ErrCodeInvalidInput, "save name too long (max 64 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "save name contains invalid control characters")
		}
	}
	return nil
}
