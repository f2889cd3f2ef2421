package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is an error response from the API, decoded from its RFC 7807
// problem body when there is one.
type APIError struct {
	StatusCode int    `json:"status"`
	Title      string `json:"title"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Title, e.Detail)
	}
	return e.Title
}

// IsNotFound reports whether the API answered 404.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func newAPIError(status int, body []byte) *APIError {
	var apiErr APIError
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Title != "" {
		apiErr.StatusCode = status
		return &apiErr
	}
	// Health probes answer with the status envelope instead.
	var env envelope
	if json.Unmarshal(body, &env) == nil && env.Error != "" {
		return &APIError{StatusCode: status, Title: http.StatusText(status), Detail: env.Error}
	}
	return &APIError{StatusCode: status, Title: http.StatusText(status), Detail: string(body)}
}
