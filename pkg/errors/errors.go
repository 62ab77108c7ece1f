package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Standard error types
var (
	ErrNotFound             = errors.New("resource not found")
	ErrBadRequest           = errors.New("bad request")
	ErrConflict             = errors.New("resource conflict")
	ErrInternal             = errors.New("internal server error")
	ErrValidation           = errors.New("validation error")
	ErrLocked               = errors.New("lot locked by production batches")
	ErrInsufficientQuantity = errors.New("insufficient quantity available")
	ErrStorage              = errors.New("storage failure")
	ErrUnauthorized         = errors.New("unauthorized")
)

// AppError represents an application error with context
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
	BatchIDs   []string          `json:"batch_ids,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code string, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code string, message string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		StatusCode: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Err:        ErrConflict,
		Code:       "CONFLICT",
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func Validation(details map[string]string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "VALIDATION_ERROR",
		Message:    "validation failed",
		StatusCode: http.StatusBadRequest,
		Details:    details,
	}
}

// ValidationField creates a validation error for a single offending field
func ValidationField(field, problem string) *AppError {
	return Validation(map[string]string{field: problem})
}

// Locked indicates a mutation was rejected because the lot is referenced
// by at least one locked production batch. The offending batch ids are
// carried so callers can report them.
func Locked(batchIDs []string) *AppError {
	return &AppError{
		Err:        ErrLocked,
		Code:       "LOCKED",
		Message:    fmt.Sprintf("lot is locked by production batches: %s", strings.Join(batchIDs, ", ")),
		StatusCode: http.StatusConflict,
		BatchIDs:   batchIDs,
	}
}

// InsufficientQuantity indicates a movement would drive the available
// quantity below zero.
func InsufficientQuantity(requested, available string) *AppError {
	return &AppError{
		Err:        ErrInsufficientQuantity,
		Code:       "INSUFFICIENT_QUANTITY",
		Message:    fmt.Sprintf("requested %s exceeds available %s", requested, available),
		StatusCode: http.StatusConflict,
		Details: map[string]string{
			"requested": requested,
			"available": available,
		},
	}
}

// Storage wraps a persistence-layer failure. These are never retried for
// mutating calls; pure reads may safely be retried by the caller.
func Storage(err error) *AppError {
	return &AppError{
		Err:        ErrStorage,
		Code:       "STORAGE_ERROR",
		Message:    fmt.Sprintf("storage failure: %v", err),
		StatusCode: http.StatusInternalServerError,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
