package models

import "time"

// DeploymentStatus represents the lifecycle state of a user's deployment on
// the external engine.
type DeploymentStatus string

const (
	DeploymentStatusDeploying   DeploymentStatus = "deploying"    // Creation attempt in flight
	DeploymentStatusTesting     DeploymentStatus = "testing"      // Created, synthetic verification running
	DeploymentStatusActive      DeploymentStatus = "active"       // Verified and running
	DeploymentStatusInactive    DeploymentStatus = "inactive"     // Engine reports the workflow deactivated
	DeploymentStatusFailed      DeploymentStatus = "failed"       // Retry budget exhausted, operator paged
	DeploymentStatusNeedsReauth DeploymentStatus = "needs_reauth" // Paused pending mailbox re-authorization
)

// Deployment tracks one user's single workflow instance on the external
// engine. At most one non-deleted deployment exists per user; the repository
// upserts by user id so a redeploy replaces the previous record.
type Deployment struct {
	ID                 string           `json:"id"`
	UserID             string           `json:"user_id"              validate:"required"`
	ExternalWorkflowID string           `json:"external_workflow_id"`
	Name               string           `json:"name"                 validate:"required"`
	Status             DeploymentStatus `json:"status"               validate:"required"`
	ConfigSnapshot     AutomationConfig `json:"config_snapshot"`
	LastError          string           `json:"last_error,omitempty"`
	DeployedAt         time.Time        `json:"deployed_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// IsHealthy reports whether the deployment is in a state the monitor
// considers running.
func (d *Deployment) IsHealthy() bool {
	return d.Status == DeploymentStatusActive
}

// DeploymentAttempt is the ephemeral record of a single create+verify
// attempt. It is logged, never persisted.
type DeploymentAttempt struct {
	Number    int       `json:"number"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
