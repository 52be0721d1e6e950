package dto

import "time"

// APIResponse is the envelope of every successful HTTP response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewAPIResponse wraps data in a success envelope
func NewAPIResponse(data interface{}) APIResponse {
	return APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// CommandError is the single result line a failed CLI command prints.
type CommandError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewCommandError creates a CommandError from err
func NewCommandError(err error) CommandError {
	return CommandError{Success: false, Error: err.Error()}
}
