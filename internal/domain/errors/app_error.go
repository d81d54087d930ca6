package apperrors

import (
	"errors"
	"fmt"
)

// AppError represents an application error with a stable code
type AppError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
	Err     error  `json:"-"`
}

// Error types
const (
	ValidationError   = "VALIDATION_ERROR"
	UnauthorizedError = "UNAUTHORIZED_ERROR"
	NotFoundError     = "NOT_FOUND_ERROR"
	ConflictError     = "CONFLICT_ERROR"
	InternalError     = "INTERNAL_ERROR"
)

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{Message: message, Code: ValidationError}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Message: message, Code: UnauthorizedError}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{Message: message, Code: NotFoundError}
}

// NewConflictError creates a new conflict error
func NewConflictError(message string) *AppError {
	return &AppError{Message: message, Code: ConflictError}
}

// NewInternalError creates a new internal error wrapping err
func NewInternalError(message string, err error) *AppError {
	appErr := &AppError{Message: message, Code: InternalError, Err: err}
	if err != nil {
		appErr.Details = err.Error()
	}
	return appErr
}

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool { return hasCode(err, ValidationError) }

// IsUnauthorizedError checks if the error is an unauthorized error
func IsUnauthorizedError(err error) bool { return hasCode(err, UnauthorizedError) }

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool { return hasCode(err, NotFoundError) }

// IsConflictError checks if the error is a conflict error
func IsConflictError(err error) bool { return hasCode(err, ConflictError) }

// IsInternalError checks if the error is an internal error
func IsInternalError(err error) bool { return hasCode(err, InternalError) }
