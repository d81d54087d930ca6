package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vculp/identity-server/internal/domain"
	apperrors "github.com/vculp/identity-server/internal/domain/errors"
)

// ErrorResponse represents the standard error response structure
type ErrorResponse struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail represents a validation error detail
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeAuthorization  = "ERR_001"
	ErrCodeAuthentication = "ERR_002"
	ErrCodeValidation     = "ERR_003"
	ErrCodeInternal       = "ERR_004"
	ErrCodeNotFound       = "ERR_005"
	ErrCodeConflict       = "ERR_006"
	ErrCodeRateLimited    = "ERR_007"
	ErrCodeUnavailable    = "ERR_008"
)

// RespondWithError sends a standardized error response
func RespondWithError(w http.ResponseWriter, code string, message string, details []ErrorDetail, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// RespondWithDomainError maps a domain or application error onto a response
func RespondWithDomainError(w http.ResponseWriter, err error) {
	code, status, message := classify(err)
	RespondWithError(w, code, message, nil, status)
}

func classify(err error) (code string, status int, message string) {
	var appErr *apperrors.AppError
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return ErrCodeNotFound, http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return ErrCodeAuthentication, http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUserLockedOut):
		return ErrCodeAuthentication, http.StatusForbidden, "user is locked out"
	case errors.Is(err, domain.ErrUserAlreadyExists):
		return ErrCodeConflict, http.StatusConflict, "user already exists"
	case errors.As(err, &appErr):
		switch appErr.Code {
		case apperrors.ValidationError:
			return ErrCodeValidation, http.StatusBadRequest, appErr.Message
		case apperrors.NotFoundError:
			return ErrCodeNotFound, http.StatusNotFound, appErr.Message
		case apperrors.ConflictError:
			return ErrCodeConflict, http.StatusConflict, appErr.Message
		case apperrors.UnauthorizedError:
			return ErrCodeAuthentication, http.StatusUnauthorized, appErr.Message
		}
	}
	return ErrCodeInternal, http.StatusInternalServerError, "internal server error"
}

// ValidationErrors collects field level validation failures
type ValidationErrors []ErrorDetail

// Add adds a validation error to the slice
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, ErrorDetail{Field: field, Message: message})
}

// HasErrors returns true if there are any validation errors
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}
