package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrConfiguration  ErrorType = "CONFIGURATION_ERROR"
	ErrInvalidRequest ErrorType = "INVALID_REQUEST"
	ErrUpstream       ErrorType = "UPSTREAM_ERROR"
	ErrTransport      ErrorType = "TRANSPORT_ERROR"
	ErrDecode         ErrorType = "DECODE_ERROR"
	ErrAuthFailed     ErrorType = "AUTH_FAILED"
	ErrRateLimited    ErrorType = "RATE_LIMITED"
	ErrNotFound       ErrorType = "NOT_FOUND"
	ErrReadOnly       ErrorType = "READ_ONLY"
	ErrInternal       ErrorType = "INTERNAL_ERROR"
)

// AppError is the standard error struct for the application
type AppError struct {
	Type       ErrorType `json:"code"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	HTTPStatus int       `json:"-"`
	Cause      error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(errType ErrorType, msg string, cause error) *AppError {
	return &AppError{
		Type:       errType,
		Message:    msg,
		Cause:      cause,
		HTTPStatus: mapTypeToStatus(errType),
		Suggestion: mapTypeToSuggestion(errType),
	}
}

func NewInvalidRequest(msg string) *AppError {
	return New(ErrInvalidRequest, msg, nil)
}

func NewConfiguration(msg string) *AppError {
	return New(ErrConfiguration, msg, nil)
}

// NewTransport reports that every transport was exhausted. The message is the
// last underlying error's message, unchanged.
func NewTransport(last error) *AppError {
	if last == nil {
		return New(ErrTransport, "all transports failed", nil)
	}
	return New(ErrTransport, last.Error(), last)
}

func NewDecode(msg string, cause error) *AppError {
	return New(ErrDecode, msg, cause)
}

func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(ErrInternal, err.Error(), err)
}

// Is reports whether err carries an AppError of the given type.
func Is(err error, t ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == t
	}
	return false
}

func mapTypeToStatus(t ErrorType) int {
	switch t {
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrAuthFailed:
		return http.StatusUnauthorized
	case ErrRateLimited:
		return http.StatusTooManyRequests
	case ErrNotFound:
		return http.StatusNotFound
	case ErrReadOnly:
		return http.StatusForbidden
	case ErrUpstream, ErrTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func mapTypeToSuggestion(t ErrorType) string {
	switch t {
	case ErrConfiguration:
		return "Check the service configuration for missing keys or secrets."
	case ErrInvalidRequest:
		return "Check the required request fields."
	case ErrTransport:
		return "Upstream unreachable through every route; retry later."
	case ErrDecode:
		return "Check that the API secret is valid base64."
	case ErrAuthFailed:
		return "Check API keys and signatures."
	case ErrRateLimited:
		return "Slow down and retry."
	case ErrReadOnly:
		return "The relay is in read-only mode; trading calls are disabled."
	default:
		return ""
	}
}
