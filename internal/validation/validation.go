package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	"github.com/hyperengineering/pathwise/internal/types"
)

// MaxUserIDLength bounds the caller-supplied user identifier.
const MaxUserIDLength = 128

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Collector accumulates validation errors without failing on first.
type Collector struct {
	errors []ValidationError
}

// Add appends a validation error to the collector if non-nil.
func (c *Collector) Add(err *ValidationError) {
	if err != nil {
		c.errors = append(c.errors, *err)
	}
}

// HasErrors returns true if the collector has accumulated any errors.
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// Errors returns all accumulated validation errors.
func (c *Collector) Errors() []ValidationError {
	return c.errors
}

// ValidateUTF8 returns an error if the value is not valid UTF-8.
func ValidateUTF8(field, value string) *ValidationError {
	if !utf8.ValidString(value) {
		return &ValidationError{
			Field:   field,
			Message: "must be valid UTF-8",
		}
	}
	return nil
}

// ValidateNoNullBytes returns an error if the value contains null bytes.
func ValidateNoNullBytes(field, value string) *ValidationError {
	if strings.Contains(value, "\x00") {
		return &ValidationError{
			Field:   field,
			Message: "must not contain null bytes",
		}
	}
	return nil
}

// ValidateMaxLength returns an error if the value exceeds max runes.
func ValidateMaxLength(field, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("exceeds maximum length of %d characters", max),
		}
	}
	return nil
}

// ValidateULID returns an error if the value is not a valid ULID.
func ValidateULID(field, value string) *ValidationError {
	if _, err := ulid.ParseStrict(value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must be a valid ULID",
		}
	}
	return nil
}

// ValidateRequired returns an error if the value is empty or whitespace-only.
func ValidateRequired(field, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{
			Field:   field,
			Message: "is required",
		}
	}
	return nil
}

// ValidateTaskKey returns an error if the value is not of the form w{week}-d{day}-{index}.
func ValidateTaskKey(field, value string) *ValidationError {
	if _, err := types.ParseTaskKey(value); err != nil {
		return &ValidationError{
			Field:   field,
			Message: "must look like w{week}-d{day}-{index}",
		}
	}
	return nil
}

// ValidateUserID checks a caller-supplied user identifier. The value is
// opaque, so only its shape is checked.
func ValidateUserID(value string) []ValidationError {
	var c Collector
	if err := ValidateRequired("user_id", value); err != nil {
		c.Add(err)
		return c.Errors()
	}
	c.Add(ValidateUTF8("user_id", value))
	c.Add(ValidateNoNullBytes("user_id", value))
	c.Add(ValidateMaxLength("user_id", value, MaxUserIDLength))
	return c.Errors()
}

// ValidateToggleRequest checks the body of a completion toggle.
func ValidateToggleRequest(req types.ToggleRequest) []ValidationError {
	var c Collector
	if req.Completed == nil {
		c.Add(&ValidationError{Field: "completed", Message: "is required"})
	}
	return c.Errors()
}
