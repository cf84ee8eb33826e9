package ereporting

import "fmt"

// EReportingError reports misuse of the package itself: a malformed
// reporter SIREN, an unusable invoice, a missing country code
type EReportingError struct {
	Field   string
	Message string
}

func (e *EReportingError) Error() string {
	return fmt.Sprintf("e-reporting: %s: %s", e.Field, e.Message)
}

// NewEReportingError creates a new package error
func NewEReportingError(field, message string) *EReportingError {
	return &EReportingError{Field: field, Message: message}
}

// ValidationError carries the findings that stopped a record from
// becoming a submission
type ValidationError struct {
	Message  string
	Findings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("e-reporting: %s (%d findings)", e.Message, len(e.Findings))
}

// NewValidationError creates a validation error with its findings
func NewValidationError(message string, findings []string) *ValidationError {
	return &ValidationError{Message: message, Findings: findings}
}

// EmptyDeclarationError rejects declarations with nothing to declare.
// Since the September 2025 simplifications, no operations means no
// transmission, so building an empty one is always a caller bug.
type EmptyDeclarationError struct {
	Message string
}

func (e *EmptyDeclarationError) Error() string {
	return "e-reporting: " + e.Message
}

// NewEmptyDeclarationError creates a new empty-declaration error
func NewEmptyDeclarationError(message string) *EmptyDeclarationError {
	return &EmptyDeclarationError{Message: message}
}
