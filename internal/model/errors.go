package model

import "fmt"

// ParseError represents parsing errors with format context
type ParseError struct {
	Format  Format
	Field   string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Format, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Format, e.Field, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseError creates a new parse error
func NewParseError(format Format, field, message string, cause error) *ParseError {
	return &ParseError{
		Format:  format,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}

// ValidationError represents invariant violations raised at construction
// time, before any document is produced
type ValidationError struct {
	Field   string
	Value   interface{}
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed on %s: %s (value=%v, rule=%s)", e.Field, e.Message, e.Value, e.Rule)
	}
	return fmt.Sprintf("validation failed on %s: %s (rule=%s)", e.Field, e.Message, e.Rule)
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value interface{}, rule, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Rule:    rule,
		Message: message,
	}
}

// GenerationError represents encoding failures: a field required by the
// selected format or profile is absent. No bytes are emitted when one
// of these is returned.
type GenerationError struct {
	Format  Format
	Field   string
	Message string
	Cause   error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed [%s] %s: %s (%v)", e.Format, e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failed [%s] %s: %s", e.Format, e.Field, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// NewGenerationError creates a new generation error
func NewGenerationError(format Format, field, message string, cause error) *GenerationError {
	return &GenerationError{
		Format:  format,
		Field:   field,
		Message: message,
		Cause:   cause,
	}
}
