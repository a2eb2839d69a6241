package apiclient

import "fmt"

// APIError is returned for any non-2xx response or transport failure.
// StatusCode is 0 when no response was received.
type APIError struct {
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}
