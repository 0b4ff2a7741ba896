// Package deploy provides standardized error types for deployment operations.
package deploy

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInvalid indicates the automation config was rejected before
	// any external call. Caller error, never retried.
	ErrConfigInvalid = errors.New("automation config is invalid")

	// ErrVerificationFailed indicates the synthetic test execution did not
	// succeed. Retried as part of the create+verify unit.
	ErrVerificationFailed = errors.New("workflow verification failed")

	// ErrExhaustedRetries indicates all deployment attempts failed. Routed
	// to manual-intervention escalation.
	ErrExhaustedRetries = errors.New("deployment retries exhausted")
)

// Error wraps a deployment failure with attempt context. Raw engine error
// strings stay inside Err for logs; user-facing layers surface only the
// stable kind.
type Error struct {
	Op       string // Operation being performed (e.g. "Deploy")
	UserID   string // User whose deployment failed
	Attempts int    // Attempts made before giving up
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("%s failed for user %s after %d attempts: %v", e.Op, e.UserID, e.Attempts, e.Err)
	}

	return fmt.Sprintf("%s failed for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsConfigInvalid checks if an error indicates a rejected config.
func IsConfigInvalid(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}

// IsVerificationFailed checks if an error indicates a failed synthetic test.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsExhaustedRetries checks if an error indicates an exhausted retry budget.
func IsExhaustedRetries(err error) bool {
	return errors.Is(err, ErrExhaustedRetries)
}
