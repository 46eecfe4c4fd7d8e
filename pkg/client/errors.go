package client

import (
	"encoding/json"
	"fmt"
)

// APIError represents an error returned by the API
type APIError struct {
	StatusCode int             `json:"-"`
	Code       string          `json:"code"`
	Message    string          `json:"message"`
	Details    json.RawMessage `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsValidationError returns true if the error is a 400 validation error
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == 400
}

// IsDenied returns true when a billable action was refused for quota or trial reasons
func (e *APIError) IsDenied() bool {
	switch e.Code {
	case "QUOTA_EXCEEDED", "TRIAL_EXPIRED", "TRIAL_EXHAUSTED":
		return true
	}
	return false
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// Decision decodes the eligibility decision carried by a denial, if any
func (e *APIError) Decision() (*Decision, bool) {
	if len(e.Details) == 0 {
		return nil, false
	}
	var d Decision
	if err := json.Unmarshal(e.Details, &d); err != nil || d.Reason == "" {
		return nil, false
	}
	return &d, true
}
