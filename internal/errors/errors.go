// Package errors defines the application error taxonomy shared by the queue,
// merge, and file layers. Codes map one-to-one onto HTTP statuses in the
// transport layer and onto metric tags in observability.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeStateConflict indicates a compare-and-swap status transition did not match the stored status.
	ErrCodeStateConflict ErrorCode = "state_conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeResourceExceeded indicates a document count or byte size cap was exceeded.
	ErrCodeResourceExceeded ErrorCode = "resource_exceeded"
	// ErrCodePathSecurity indicates a path resolved outside the configured root.
	ErrCodePathSecurity ErrorCode = "path_security"
	// ErrCodeIOFailure indicates a missing or unreadable file.
	ErrCodeIOFailure ErrorCode = "io_failure"
	// ErrCodeUnavailable indicates the datastore or notifier could not be reached.
	ErrCodeUnavailable ErrorCode = "unavailable"
	// ErrCodeForeignKey indicates a foreign key constraint violation.
	ErrCodeForeignKey ErrorCode = "foreign_key"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Field is the specific input field that caused the error (validation only).
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf creates a new NotFound error with formatted message.
func NotFoundf(format string, args ...any) *AppError {
	return Newf(ErrCodeNotFound, format, args...)
}

// Conflictf creates a new Conflict error with formatted message.
func Conflictf(format string, args ...any) *AppError {
	return Newf(ErrCodeConflict, format, args...)
}

// StateConflictf creates a new StateConflict error with formatted message.
func StateConflictf(format string, args ...any) *AppError {
	return Newf(ErrCodeStateConflict, format, args...)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return Newf(ErrCodeValidation, format, args...)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// ResourceExceededf creates a new ResourceExceeded error with formatted message.
func ResourceExceededf(format string, args ...any) *AppError {
	return Newf(ErrCodeResourceExceeded, format, args...)
}

// PathSecurity creates a new PathSecurity error. The message shown to clients is always "access denied".
func PathSecurity(cause error) *AppError {
	return &AppError{Code: ErrCodePathSecurity, Message: "access denied", Cause: cause}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsStateConflict checks if an error is a rejected status transition.
func IsStateConflict(err error) bool { return isCode(err, ErrCodeStateConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsResourceExceeded checks if an error is a ResourceExceeded error.
func IsResourceExceeded(err error) bool { return isCode(err, ErrCodeResourceExceeded) }

// IsPathSecurity checks if an error is a PathSecurity error.
func IsPathSecurity(err error) bool { return isCode(err, ErrCodePathSecurity) }

// IsIOFailure checks if an error is an IOFailure error.
func IsIOFailure(err error) bool { return isCode(err, ErrCodeIOFailure) }

// IsUnavailable checks if an error is an Unavailable error.
func IsUnavailable(err error) bool { return isCode(err, ErrCodeUnavailable) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
