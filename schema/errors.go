package schema

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidWorkflowID indicates a non-positive workflow id.
	ErrInvalidWorkflowID = errors.New("invalid workflow id")
	// ErrInvalidConfig indicates a configuration value failed validation.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrTabNotFound indicates a requested tab is not open.
	ErrTabNotFound = errors.New("tab not found")
	// ErrNoActiveTab indicates an operation needs an active tab.
	ErrNoActiveTab = errors.New("no active tab")
	// ErrTabNotLoaded indicates the tab's canvas has not been fetched in this process.
	ErrTabNotLoaded = errors.New("tab not loaded")
	// ErrNodeNotFound indicates a node id is not on the active canvas.
	ErrNodeNotFound = errors.New("node not found")
	// ErrRepositoryUnavailable indicates no repository is configured.
	ErrRepositoryUnavailable = errors.New("repository not configured")
	// ErrNetwork indicates a repository call failed.
	ErrNetwork = errors.New("network error")
	// ErrStreamTransport indicates a debug stream could not be read.
	ErrStreamTransport = errors.New("stream transport error")
	// ErrStreamProtocol indicates a debug stream line was not valid JSON.
	ErrStreamProtocol = errors.New("stream protocol error")
	// ErrPersistence indicates durable tab storage failed.
	ErrPersistence = errors.New("persistence error")
)

// APIError reports a non-successful repository response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap lets callers match APIError with errors.Is(err, ErrNetwork).
func (e *APIError) Unwrap() error {
	return ErrNetwork
}
