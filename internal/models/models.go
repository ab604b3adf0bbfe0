// Package models defines the core data structures for PayFlow.
//
// It includes the flow kinds, typed configurations, server schema, flat data
// sets and result mappings shared across modules.
package models

import "errors"

// Error variables for the flow error taxonomy.
var (
	ErrNetworkUnavailable       = errors.New("network unavailable")
	ErrConfigurationFetchFailed = errors.New("configuration fetch failed")
	ErrAccountDataFetchFailed   = errors.New("account data fetch failed")
	ErrInvalidConfiguration     = errors.New("invalid configuration")
	ErrInvalidFlowKind          = errors.New("invalid flow kind")
	ErrSessionAlreadyStarted    = errors.New("session already started")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
	// APIStatusAccepted indicates a session was started and is running.
	APIStatusAccepted APIStatus = "accepted"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// Accepted creates an accepted API response for a session that is still running.
func Accepted(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusAccepted), Result: result}
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}

// ErrorWithResult creates an error API response carrying result data.
func ErrorWithResult(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message, Result: result}
}
