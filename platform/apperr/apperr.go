// Package apperr provides standardized domain error types for the application.
// Domain services return these typed errors, and the HTTP layer middleware
// automatically maps them to appropriate HTTP status codes.
package apperr

import (
	"fmt"
	"net/http"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a resource was not found.
	KindNotFound
	// KindValidation indicates a business-rule input was rejected.
	KindValidation
	// KindInvalidState indicates an operation is not valid from the
	// aggregate's current state.
	KindInvalidState
	// KindIllegalTransition indicates a state transition that violates the
	// transition table (skipping or reversing a stage).
	KindIllegalTransition
	// KindConflict indicates a concurrent modification detected by the
	// persistence layer's compare-and-swap.
	KindConflict
	// KindInvalidArgument indicates a caller-supplied argument that can never
	// be valid (as opposed to KindValidation, which depends on state).
	KindInvalidArgument
	// KindForbidden indicates the action is not allowed for the user.
	KindForbidden
	// KindUnauthorized indicates authentication is required or failed.
	KindUnauthorized
	// KindInternal indicates an unexpected internal error.
	KindInternal
)

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidArgument:
		return http.StatusBadRequest
	case KindInvalidState, KindIllegalTransition, KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// InvalidState creates an invalid state error.
func InvalidState(message string) *Error {
	return New(KindInvalidState, message)
}

// IllegalTransition creates an illegal transition error.
func IllegalTransition(message string) *Error {
	return New(KindIllegalTransition, message)
}

// Conflict creates a concurrency conflict error.
func Conflict(message string) *Error {
	return New(KindConflict, message)
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(message string) *Error {
	return New(KindInvalidArgument, message)
}

// Forbidden creates a forbidden error.
func Forbidden(message string) *Error {
	return New(KindForbidden, message)
}

// Unauthorized creates an unauthorized error.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// GetKind extracts the error kind from an error.
// Returns KindUnknown if the error is not an *Error.
func GetKind(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
