// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrDeploymentNotFound indicates no deployment exists for the given user.
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrUserNotFound indicates a user was not found by the given identifier.
	ErrUserNotFound = errors.New("user not found")

	// ErrConfigNotFound indicates the user has no automation config yet.
	ErrConfigNotFound = errors.New("automation config not found")
)

// DeploymentError wraps deployment persistence errors with additional context.
type DeploymentError struct {
	Op     string // Operation being performed (e.g. "GetByUserID", "Upsert")
	UserID string // User whose deployment was involved
	Err    error  // Underlying error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("%s operation failed for user %s deployment: %v", e.Op, e.UserID, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

func (e *DeploymentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDeploymentError creates a new deployment error with context.
func NewDeploymentError(op, userID string, err error) *DeploymentError {
	return &DeploymentError{
		Op:     op,
		UserID: userID,
		Err:    err,
	}
}

// IsDeploymentNotFound checks if an error indicates a missing deployment.
func IsDeploymentNotFound(err error) bool {
	return errors.Is(err, ErrDeploymentNotFound)
}

// IsUserNotFound checks if an error indicates a missing user.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsConfigNotFound checks if an error indicates a missing automation config.
func IsConfigNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}
