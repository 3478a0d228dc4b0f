package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents different types of errors that can occur while talking to Fantia
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	URL     string
}

func (e *Error) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("fantia %s error (code %d): %s [%s]", e.Type, e.Code, e.Message, e.URL)
	}
	return fmt.Sprintf("fantia %s error (code %d): %s", e.Type, e.Code, e.Message)
}

// New creates a typed error
func New(errorType ErrorType, code int, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	}
}

// FromStatusCode maps an HTTP status code to a typed error. It returns nil for 2xx and 3xx.
func FromStatusCode(statusCode int, url string) *Error {
	if statusCode < 400 {
		return nil
	}

	e := &Error{Code: statusCode, URL: url}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Type = ErrorTypeAuth
		e.Message = "authentication required (is the session cookie still valid?)"
	case statusCode == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
		e.Message = "resource not found"
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
		e.Message = "rate limit exceeded"
	case statusCode >= 500:
		e.Type = ErrorTypeServerError
		e.Message = "server error"
	default:
		e.Type = ErrorTypeUnknown
		e.Message = fmt.Sprintf("unexpected status code: %d", statusCode)
	}
	return e
}

// TypeOf returns the ErrorType of err, or ErrorTypeUnknown when err carries none
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if stderrors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err is a typed error of the given type
func IsType(err error, errorType ErrorType) bool {
	var apiErr *Error
	return stderrors.As(err, &apiErr) && apiErr.Type == errorType
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	case ErrorTypeAuth, ErrorTypeNotFound, ErrorTypeParsing:
		return false
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0: // Network error
		return true
	case http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}
