package llm

import (
	"fmt"
	"net/http"
)

// ErrorKind categorizes API failures so the caller can surface the right
// message to the user.
type ErrorKind string

// API error kinds.
const (
	ErrRateLimited ErrorKind = "rate_limit"
	ErrAuth        ErrorKind = "auth_error"
	ErrStream      ErrorKind = "stream_error"
)

// APIError is a failure reported by the chat completion API.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
}

// classifyStatus maps an HTTP status to an APIError.
func classifyStatus(status int, message string) *APIError {
	kind := ErrStream
	switch status {
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrAuth
	}
	return &APIError{Kind: kind, StatusCode: status, Message: message}
}
