package openairealtime

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformed marks a server message that could not be parsed or whose
// audio payload could not be decoded. The session stays usable.
var ErrMalformed = errors.New("openai-realtime: malformed server event")

// Error represents an API error from OpenAI Realtime, either from a failed
// handshake or from an "error" server event.
type Error struct {
	// Type is the error type (e.g., "invalid_request_error").
	Type string `json:"type,omitzero"`

	// Code is the error code (e.g., "invalid_value").
	Code string `json:"code,omitzero"`

	Message string `json:"message,omitzero"`

	// Param is the parameter that caused the error, if applicable.
	Param string `json:"param,omitzero"`

	// EventID is the ID of the client event that caused the error.
	EventID string `json:"event_id,omitzero"`

	// HTTPStatus is set for handshake failures.
	HTTPStatus int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("openai-realtime: %s: %s", e.Code, e.Message)
	case e.Type != "":
		return fmt.Sprintf("openai-realtime: %s: %s", e.Type, e.Message)
	default:
		return fmt.Sprintf("openai-realtime: %s", e.Message)
	}
}

// Retryable reports whether the failure is worth another connection attempt.
// Authentication and request errors are not.
func (e *Error) Retryable() bool {
	switch {
	case e.HTTPStatus == http.StatusTooManyRequests:
		return true
	case e.HTTPStatus >= 500:
		return true
	case e.HTTPStatus >= 400:
		return false
	}
	return e.Type == "server_error"
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
