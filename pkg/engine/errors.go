// Package engine provides standardized error types for external engine calls.
package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineUnavailable indicates a network failure, timeout or 5xx from
	// the external engine. Callers may retry.
	ErrEngineUnavailable = errors.New("workflow engine unavailable")

	// ErrUnauthorized indicates the engine rejected our credentials or the
	// workflow's own credentials are no longer valid. Not retryable.
	ErrUnauthorized = errors.New("workflow engine rejected credentials")

	// ErrWorkflowNotFound indicates the workflow id is unknown to the engine.
	ErrWorkflowNotFound = errors.New("workflow not found on engine")

	// ErrExecutionNotFound indicates the execution id is unknown to the engine.
	ErrExecutionNotFound = errors.New("execution not found on engine")
)

// APIError wraps an engine API failure with request context.
type APIError struct {
	Op         string // Operation being performed (e.g. "CreateWorkflow")
	StatusCode int    // HTTP status, 0 for transport errors
	Err        error  // Underlying classified error
	Body       string // Raw response body for diagnostics, never user-facing
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed with status %d: %v", e.Op, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsUnavailable checks whether an error indicates a retryable engine failure.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrEngineUnavailable)
}

// IsUnauthorized checks whether an error indicates a credential failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound checks whether an error indicates a missing workflow or execution.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) || errors.Is(err, ErrExecutionNotFound)
}

func classifyStatus(op string, status int, body string) error {
	apiErr := &APIError{Op: op, StatusCode: status, Body: body}

	switch {
	case status == 401 || status == 403:
		apiErr.Err = ErrUnauthorized
	case status == 404:
		apiErr.Err = ErrWorkflowNotFound
	case status >= 500:
		apiErr.Err = ErrEngineUnavailable
	default:
		apiErr.Err = fmt.Errorf("unexpected engine response %d", status)
	}

	return apiErr
}
