package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAPIErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		kind       error
		code       string
		statusCode int
	}{
		{"not found", NotFound("ride"), ErrNotFound, "not_found", http.StatusNotFound},
		{"validation", BadRequest("pickup is required"), ErrValidation, "bad_request", http.StatusBadRequest},
		{"invalid transition", InvalidTransition("completed", "started"), ErrInvalidTransition, "invalid_transition", http.StatusConflict},
		{"already accepted", AlreadyAccepted("r1"), ErrAlreadyAccepted, "already_accepted", http.StatusConflict},
		{"driver busy", DriverBusy("d1"), ErrDriverBusy, "driver_busy", http.StatusConflict},
		{"not authorized", NotAuthorized("not your ride"), ErrNotAuthorized, "not_authorized", http.StatusForbidden},
		{"unauthenticated", Unauthorized("missing token"), ErrUnauthenticated, "unauthorized", http.StatusUnauthorized},
		{"storage", Storage(errors.New("connection reset")), ErrStorage, "storage_error", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.kind) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.kind)
			}
			if tt.err.Code != tt.code {
				t.Errorf("Code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", tt.err.StatusCode, tt.statusCode)
			}
			if tt.err.Error() == "" {
				t.Error("expected a human readable message")
			}
		})
	}
}

func TestRatingErrorsRefineBaseKinds(t *testing.T) {
	if !errors.Is(InvalidRating(7), ErrValidation) {
		t.Error("InvalidRating should be a validation error")
	}
	if !errors.Is(InvalidRating(7), ErrInvalidRating) {
		t.Error("InvalidRating should match ErrInvalidRating")
	}
	if !errors.Is(AlreadyRated("r1"), ErrConflict) {
		t.Error("AlreadyRated should be a conflict")
	}
	if errors.Is(AlreadyRated("r1"), ErrValidation) {
		t.Error("AlreadyRated should not be a validation error")
	}
}

func TestStorageKeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := fmt.Errorf("accept ride: %w", Storage(cause))

	if !errors.Is(err, cause) {
		t.Error("expected storage error to unwrap to its cause")
	}
	if !IsRetryable(err) {
		t.Error("storage errors should be retryable")
	}
	if IsRetryable(DriverBusy("d1")) {
		t.Error("domain errors should not be retryable")
	}

	apiErr, ok := AsAPIError(err)
	if !ok || apiErr.Code != "storage_error" {
		t.Errorf("AsAPIError() = %v, %v", apiErr, ok)
	}
}
