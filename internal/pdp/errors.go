package pdp

import (
	"errors"
	"fmt"
)

// AuthError reports a rejected credential: bad API key, expired
// token, insufficient rights
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "pdp: authentication failed: " + e.Message
}

// ValidationError reports a submission the platform refused, with the
// reasons it gave
type ValidationError struct {
	Message string
	Errors  []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("pdp: validation failed: %s (%d reasons)", e.Message, len(e.Errors))
	}
	return "pdp: validation failed: " + e.Message
}

// NotFoundError reports a missing invoice, submission or directory
// entry
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pdp: %s not found: %s", e.Resource, e.ID)
}

// ConnError reports a transport failure: timeout, DNS, TLS, or an
// unusable platform response
type ConnError struct {
	Message string
	Cause   error
}

func (e *ConnError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("pdp: connection failed: %s: %v", e.Message, e.Cause)
	}
	return "pdp: connection failed: " + e.Message
}

func (e *ConnError) Unwrap() error {
	return e.Cause
}

// IsAuth reports whether err is an authentication failure
func IsAuth(err error) bool {
	var target *AuthError
	return errors.As(err, &target)
}

// IsValidation reports whether err is a validation refusal
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a missing resource
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsConn reports whether err is a transport failure
func IsConn(err error) bool {
	var target *ConnError
	return errors.As(err, &target)
}
