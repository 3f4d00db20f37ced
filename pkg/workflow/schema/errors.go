package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a single schema violation with detailed context.
type ValidationError struct {
	// Path is the JSON path to the failing field (e.g., "$.name", "$.nodes[0].position")
	Path string

	// Keyword is the schema keyword that failed (type, required, enum, etc.)
	Keyword string

	// Message is the human-readable error message
	Message string
}

// NewValidationError creates a new validation error.
func NewValidationError(path, keyword, message string) *ValidationError {
	return &ValidationError{
		Path:    path,
		Keyword: keyword,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed at %s (%s): %s", e.Path, e.Keyword, e.Message)
}

// Is implements error equality checking for errors.Is().
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return e.Path == t.Path && e.Keyword == t.Keyword
}

// Code returns the machine-readable violation code reported to callers.
func (e *ValidationError) Code() string {
	switch e.Keyword {
	case "type":
		return "invalid_type"
	case "required":
		return "required"
	case "enum":
		return "invalid_enum"
	case "minItems":
		return "too_small"
	case "maxItems":
		return "too_big"
	default:
		return "custom"
	}
}

// Violation is the serializable form of a ValidationError.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Violations is the full set of problems found in one document.
type Violations []*ValidationError

// Error implements the error interface. The first violation is shown in full,
// the rest are counted.
func (v Violations) Error() string {
	switch len(v) {
	case 0:
		return "validation failed"
	case 1:
		return v[0].Error()
	default:
		return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
	}
}

// Unwrap exposes every violation to errors.Is and errors.As.
func (v Violations) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

// List returns the violations in their serializable form.
func (v Violations) List() []Violation {
	out := make([]Violation, len(v))
	for i, e := range v {
		out[i] = Violation{Path: e.Path, Message: e.Message, Code: e.Code()}
	}
	return out
}

// Summary joins every violation onto one line per entry.
func (v Violations) Summary() string {
	lines := make([]string, len(v))
	for i, e := range v {
		lines[i] = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return strings.Join(lines, "\n")
}
