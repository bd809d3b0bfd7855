package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors
var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("resource not found")
	ErrConflict        = errors.New("resource conflict")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStorage         = errors.New("storage unavailable")
	ErrInternalServer  = errors.New("internal server error")

	// Business errors
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyAccepted   = errors.New("ride already accepted")
	ErrDriverBusy        = errors.New("driver is busy")
	ErrInvalidRating     = fmt.Errorf("%w: invalid rating", ErrValidation)
	ErrAlreadyRated      = fmt.Errorf("%w: ride already rated", ErrConflict)
	ErrAlreadyPaid       = fmt.Errorf("%w: ride already paid", ErrConflict)
)

// APIError represents a structured API error
type APIError struct {
	Code       string `json:"error"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`

	kind  error
	cause error
}

func (e *APIError) Error() string {
	return e.Message
}

// Unwrap exposes the error kind and, for storage failures, the driver error.
func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, statusCode int) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func newKindError(kind error, code, message string, statusCode int) *APIError {
	e := NewAPIError(code, message, statusCode)
	e.kind = kind
	return e
}

// Common API errors
func NotFound(resource string) *APIError {
	return newKindError(ErrNotFound, "not_found", fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func BadRequest(message string) *APIError {
	return newKindError(ErrValidation, "bad_request", message, http.StatusBadRequest)
}

func Conflict(message string) *APIError {
	return newKindError(ErrConflict, "conflict", message, http.StatusConflict)
}

func InternalError(message string) *APIError {
	return newKindError(ErrInternalServer, "internal_error", message, http.StatusInternalServerError)
}

func Unauthorized(message string) *APIError {
	return newKindError(ErrUnauthenticated, "unauthorized", message, http.StatusUnauthorized)
}

func NotAuthorized(message string) *APIError {
	return newKindError(ErrNotAuthorized, "not_authorized", message, http.StatusForbidden)
}

func IdempotencyConflict() *APIError {
	return newKindError(ErrConflict, "idempotency_conflict", "idempotency key already used with different request", http.StatusConflict)
}

func RateLimited() *APIError {
	return NewAPIError("rate_limit_exceeded", "too many requests, please try again later", http.StatusTooManyRequests)
}

func InvalidTransition(from, to string) *APIError {
	return newKindError(ErrInvalidTransition, "invalid_transition", fmt.Sprintf("cannot transition ride from %s to %s", from, to), http.StatusConflict)
}

func AlreadyAccepted(rideID string) *APIError {
	return newKindError(ErrAlreadyAccepted, "already_accepted", fmt.Sprintf("ride %s has already been accepted by another driver", rideID), http.StatusConflict)
}

func DriverBusy(driverID string) *APIError {
	return newKindError(ErrDriverBusy, "driver_busy", fmt.Sprintf("driver %s is already assigned to an active ride", driverID), http.StatusConflict)
}

func InvalidRating(rating int) *APIError {
	return newKindError(ErrInvalidRating, "invalid_rating", fmt.Sprintf("rating must be between 1 and 5, got %d", rating), http.StatusBadRequest)
}

func AlreadyRated(rideID string) *APIError {
	return newKindError(ErrAlreadyRated, "already_rated", fmt.Sprintf("ride %s has already been rated", rideID), http.StatusConflict)
}

func AlreadyPaid(rideID string) *APIError {
	return newKindError(ErrAlreadyPaid, "already_paid", fmt.Sprintf("ride %s has already been paid", rideID), http.StatusConflict)
}

// Storage wraps a persistence failure. The operation had no effect and may be retried.
func Storage(err error) *APIError {
	e := newKindError(ErrStorage, "storage_error", "storage is temporarily unavailable, please retry", http.StatusServiceUnavailable)
	e.cause = err
	return e
}

// IsRetryable reports whether the caller may safely retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}

// AsAPIError extracts the APIError from an error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
