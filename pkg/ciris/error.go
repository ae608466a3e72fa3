package ciris

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error is a structured API error. The server reports errors as
//
//	{"error": {"code": "...", "message": "...", "details": {...}}}
//
// with the machine-readable code naming the failure class.
type Error struct {
	// HTTPStatus is the response status code.
	HTTPStatus int `json:"-"`

	// Code is the machine-readable error code, e.g. "NOT_FOUND".
	Code string `json:"code,omitempty"`

	// Message is the human-readable description.
	Message string `json:"message"`

	// Details carries structured context for the failure.
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ciris: %s (code=%s, http_status=%d)", e.Message, e.Code, e.HTTPStatus)
	}
	return fmt.Sprintf("ciris: %s (http_status=%d)", e.Message, e.HTTPStatus)
}

// IsAuthError reports whether the request was rejected for missing or
// invalid credentials.
func (e *Error) IsAuthError() bool {
	return e.HTTPStatus == http.StatusUnauthorized || e.HTTPStatus == http.StatusForbidden
}

// IsNotFound reports whether the addressed resource does not exist.
func (e *Error) IsNotFound() bool {
	return e.HTTPStatus == http.StatusNotFound
}

// IsRateLimit reports whether the server throttled the request.
func (e *Error) IsRateLimit() bool {
	return e.HTTPStatus == http.StatusTooManyRequests
}

// IsValidationError reports whether the request body failed validation.
func (e *Error) IsValidationError() bool {
	return e.HTTPStatus == http.StatusUnprocessableEntity || e.HTTPStatus == http.StatusBadRequest
}

// IsServerError reports whether the failure was on the server side.
func (e *Error) IsServerError() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

// Retryable reports whether retrying the same request may succeed.
func (e *Error) Retryable() bool {
	return e.IsRateLimit() || e.IsServerError()
}

// AsError unwraps err into an *Error if it carries one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// errorEnvelope is the wire shape of an error response.
type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// parseAPIError builds an *Error from an error response body, falling back
// to the raw body when it is not the standard envelope.
func parseAPIError(statusCode int, body []byte) *Error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return &Error{
			HTTPStatus: statusCode,
			Code:       env.Error.Code,
			Message:    env.Error.Message,
			Details:    env.Error.Details,
		}
	}
	msg := string(body)
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &Error{
		HTTPStatus: statusCode,
		Message:    msg,
	}
}

func wrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
