package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failed Data API call.
type APIError struct {
	// Status is the upstream HTTP status, 0 when no response arrived
	Status int

	// Message is safe to return to the caller
	Message string

	// Body is the raw upstream error body, if any
	Body []byte

	// Err is the transport or decoding error, if any
	Err error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("API request failed (status %d): %s: %v", e.StatusCode(), e.Message, e.Err)
	}
	return fmt.Sprintf("API request failed (status %d): %s", e.StatusCode(), e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// StatusCode is the status to report to the caller: the upstream status,
// or 500 when the call never got a response.
func (e *APIError) StatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}

// BadRequest is an APIError for a request rejected before any upstream call.
func BadRequest(message string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message}
}

func newAPIError(status int, body []byte) *APIError {
	return &APIError{
		Status:  status,
		Message: errorMessage(status, body),
		Body:    body,
	}
}

// errorMessage prefers the message the API put in its JSON error body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if m := strings.TrimSpace(payload.Message); m != "" {
			return m
		}
		if m := strings.TrimSpace(payload.Error); m != "" {
			return m
		}
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}
