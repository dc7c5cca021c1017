package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced on the dispatch API. Codes are stable; messages are
// free to change.
const (
	CodeValidationError      = "VALIDATION_ERROR"
	CodeNotFound             = "RESOURCE_NOT_FOUND"
	CodeWorkerInactive       = "WORKER_INACTIVE"
	CodeRoleMismatch         = "ROLE_MISMATCH"
	CodeAlreadyAssigned      = "ALREADY_ASSIGNED"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeQuantityExceeded     = "QUANTITY_EXCEEDED"
	CodeMalformedCode        = "MALFORMED_CODE"
	CodeUnknownSection       = "UNKNOWN_SECTION"
	CodeUnknownAisle         = "UNKNOWN_AISLE"
	CodeSubsectionNotAllowed = "SUBSECTION_NOT_ALLOWED"
	CodeDuplicateAddress     = "DUPLICATE_ADDRESS"
	CodeCheckDigitMismatch   = "CHECK_DIGIT_MISMATCH"
	CodeConflict             = "CONFLICT"
	CodeBadRequest           = "BAD_REQUEST"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
)

// AppError carries a stable code, a human-readable message and the HTTP
// status it maps to.
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair for the error response body.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Wrap records the underlying cause.
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError creates an AppError with an explicit code and status.
func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

func ErrValidation(message string) *AppError {
	return NewAppError(CodeValidationError, message, http.StatusBadRequest)
}

func ErrNotFound(resource string) *AppError {
	return NewAppError(CodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func ErrNotFoundWithID(resource, id string) *AppError {
	return ErrNotFound(resource).WithDetail("id", id)
}

// ErrWorkerInactive signals a PIN that resolves to a deactivated worker.
func ErrWorkerInactive(message string) *AppError {
	return NewAppError(CodeWorkerInactive, message, http.StatusForbidden)
}

// ErrRoleMismatch signals a claim by a worker whose role does not match the
// task's required role.
func ErrRoleMismatch(message string) *AppError {
	return NewAppError(CodeRoleMismatch, message, http.StatusForbidden)
}

// ErrAlreadyAssigned signals a lost claim race. Expected under concurrency,
// not exceptional.
func ErrAlreadyAssigned(message string) *AppError {
	return NewAppError(CodeAlreadyAssigned, message, http.StatusConflict)
}

func ErrInvalidTransition(message string) *AppError {
	return NewAppError(CodeInvalidTransition, message, http.StatusConflict)
}

func ErrQuantityExceeded(message string) *AppError {
	return NewAppError(CodeQuantityExceeded, message, http.StatusBadRequest)
}

func ErrMalformedCode(message string) *AppError {
	return NewAppError(CodeMalformedCode, message, http.StatusBadRequest)
}

func ErrUnknownSection(message string) *AppError {
	return NewAppError(CodeUnknownSection, message, http.StatusBadRequest)
}

func ErrUnknownAisle(message string) *AppError {
	return NewAppError(CodeUnknownAisle, message, http.StatusBadRequest)
}

func ErrSubsectionNotAllowed(message string) *AppError {
	return NewAppError(CodeSubsectionNotAllowed, message, http.StatusBadRequest)
}

func ErrDuplicateAddress(message string) *AppError {
	return NewAppError(CodeDuplicateAddress, message, http.StatusBadRequest)
}

// ErrCheckDigitMismatch flags a stored address whose digit no longer
// derives from its ordinal. Treated as data corruption for that record.
func ErrCheckDigitMismatch(message string) *AppError {
	return NewAppError(CodeCheckDigitMismatch, message, http.StatusConflict)
}

func ErrConflict(message string) *AppError {
	return NewAppError(CodeConflict, message, http.StatusConflict)
}

func ErrBadRequest(message string) *AppError {
	return NewAppError(CodeBadRequest, message, http.StatusBadRequest)
}

func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return NewAppError(CodeInternalError, message, http.StatusInternalServerError)
}

func ErrServiceUnavailable(service string) *AppError {
	return NewAppError(CodeServiceUnavailable, fmt.Sprintf("%s is temporarily unavailable", service), http.StatusServiceUnavailable)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromError converts a standard error to an AppError, defaulting to an
// internal error for unrecognized causes.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return ErrInternal("").Wrap(err)
}
