package bulkmail

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors returned by the SDK.
var (
	// ErrUnauthorized is returned when the token is missing, invalid or expired.
	ErrUnauthorized = errors.New("bulkmail: not authenticated")

	// ErrNotFound is returned for unknown campaigns.
	ErrNotFound = errors.New("bulkmail: not found")
)

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bulkmail: API error %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is match the sentinel for the status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

func parseAPIError(statusCode int, body []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return &APIError{StatusCode: statusCode, Message: envelope.Error}
	}

	return &APIError{StatusCode: statusCode, Message: string(body)}
}

// IsAPIError checks whether err is an APIError and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
