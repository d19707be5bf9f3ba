package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorType represents the different failure classes of a scan
type ErrorType string

const (
	ErrorTypeRateLimited         ErrorType = "rate_limited"
	ErrorTypeUpstream            ErrorType = "upstream"
	ErrorTypeTransport           ErrorType = "transport"
	ErrorTypeParse               ErrorType = "parse"
	ErrorTypePreconditionMissing ErrorType = "precondition_missing"
)

// Error represents a classified fetch or precondition error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Is reports whether target is an *Error of the same type, so that
// errors.Is(err, &Error{Type: ErrorTypeRateLimited}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Code == 0 || t.Code == e.Code)
}

// New creates a typed error
func New(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

// Newf creates a typed error with a formatted message
func Newf(errorType ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: errorType, Message: fmt.Sprintf(format, args...)}
}

// Upstream creates an error for a non-success HTTP status
func Upstream(statusCode int) *Error {
	if statusCode == http.StatusTooManyRequests {
		return &Error{
			Type:    ErrorTypeRateLimited,
			Message: "rate limit exceeded",
			Code:    statusCode,
		}
	}
	return &Error{
		Type:    ErrorTypeUpstream,
		Message: fmt.Sprintf("unexpected status code: %d", statusCode),
		Code:    statusCode,
	}
}

// TypeOf returns the ErrorType of err, or "" when err is not a classified error
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// IsType checks whether err (or anything it wraps) has the given type
func IsType(err error, errorType ErrorType) bool {
	return TypeOf(err) == errorType
}

// UserMessage renders err as the short human-readable text shown to users.
// No structured codes cross this boundary.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var e *Error
	if !stderrors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrorTypeRateLimited:
		return "too many requests, please wait a while before scanning again"
	case ErrorTypeUpstream:
		return fmt.Sprintf("instagram error: %d", e.Code)
	case ErrorTypeTransport:
		return "network error: " + e.Message
	case ErrorTypeParse:
		return "unexpected response from instagram: " + e.Message
	case ErrorTypePreconditionMissing:
		return e.Message
	default:
		return e.Error()
	}
}
