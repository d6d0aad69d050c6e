package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced by the core services. Handlers translate them to
// HTTP statuses; everything unclassified is internal.
const (
	CodeInvalidInput = "invalidInput"
	CodeUnauthorized = "unauthorized"
	CodeNotFound     = "notFound"
	CodeSlotTaken    = "slotTaken"
	CodeRateLimited  = "rateLimited"
	CodeUpstream     = "upstreamUnavailable"
	CodeInternal     = "internal"
)

// AppError is a classified service error.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError builds a classified error.
func NewAppError(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// WrapAppError builds a classified error around a cause.
func WrapAppError(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// CodeOf extracts the error code, defaulting to internal.
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// MessageOf extracts the user-facing message for classified errors.
func MessageOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "internal server error"
}

// HTTPStatus maps an error code to its HTTP status.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSlotTaken:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
