package models

import (
	"fmt"
	"net/http"
)

// ErrorCode is a string type for consistent error codes.
type ErrorCode string

// Predefined error codes mapped from the status the service answered with.
const (
	ErrorCodeUnexpectedStatus    ErrorCode = "unexpected_status"
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeForbidden           ErrorCode = "forbidden"
	ErrorCodeNotFound            ErrorCode = "not_found"
	ErrorCodeMethodNotAllowed    ErrorCode = "method_not_allowed"
	ErrorCodeConflict            ErrorCode = "conflict"
	ErrorCodeInternalServerError ErrorCode = "internal_server_error"
)

// UnexpectedStatusError is returned whenever a response status differs from
// the single status an operation documents.
type UnexpectedStatusError struct {
	Code     ErrorCode `json:"code"`
	Method   string    `json:"method,omitempty"`
	URL      string    `json:"url,omitempty"`
	Expected int       `json:"expected"`
	Status   int       `json:"status"`
	Body     string    `json:"body,omitempty"`
}

// Error makes UnexpectedStatusError implement the error interface.
func (e *UnexpectedStatusError) Error() string {
	msg := fmt.Sprintf("[%s] unexpected response code %d, expected %d", e.Code, e.Status, e.Expected)
	if e.Method != "" || e.URL != "" {
		msg += fmt.Sprintf(" (%s %s)", e.Method, e.URL)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// NewUnexpectedStatusError is a constructor for UnexpectedStatusError.
func NewUnexpectedStatusError(expected, status int) *UnexpectedStatusError {
	return &UnexpectedStatusError{
		Code:     codeForStatus(status),
		Expected: expected,
		Status:   status,
	}
}

func codeForStatus(status int) ErrorCode {
	switch status {
	case http.StatusBadRequest:
		return ErrorCodeBadRequest
	case http.StatusUnauthorized:
		return ErrorCodeUnauthorized
	case http.StatusForbidden:
		return ErrorCodeForbidden
	case http.StatusNotFound:
		return ErrorCodeNotFound
	case http.StatusMethodNotAllowed:
		return ErrorCodeMethodNotAllowed
	case http.StatusConflict:
		return ErrorCodeConflict
	case http.StatusInternalServerError:
		return ErrorCodeInternalServerError
	default:
		return ErrorCodeUnexpectedStatus
	}
}
