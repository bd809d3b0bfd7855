package utils

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/aditya/go-dispatch/internal/errors"
)

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, data)
}

func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// Error writes the error envelope {"error": code, "message": ...}. Retryable
// failures also get a Retry-After hint.
func Error(w http.ResponseWriter, err *apperrors.APIError) {
	if apperrors.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, err.StatusCode, err)
}

func BadRequest(w http.ResponseWriter, message string) {
	Error(w, apperrors.BadRequest(message))
}

func InternalError(w http.ResponseWriter, message string) {
	Error(w, apperrors.InternalError(message))
}
