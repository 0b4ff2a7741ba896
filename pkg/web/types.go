package web

import (
	"github.com/mailbridge/mailbridge/pkg/models"
)

// DeployRequest is the request body for a deployment.
type DeployRequest struct {
	Config models.AutomationConfig `json:"config" validate:"required"`
}

// DeployResponse reports a successful deployment.
type DeployResponse struct {
	WorkflowID string                  `json:"workflow_id"`
	Status     models.DeploymentStatus `json:"status"`
	Attempts   int                     `json:"attempts"`
}

// DeploymentResponse is the read view of a deployment record.
type DeploymentResponse struct {
	UserID             string                  `json:"user_id"`
	ExternalWorkflowID string                  `json:"external_workflow_id"`
	Name               string                  `json:"name"`
	Status             models.DeploymentStatus `json:"status"`
	DeployedAt         string                  `json:"deployed_at"`
	UpdatedAt          string                  `json:"updated_at"`
}

func toDeploymentResponse(deployment *models.Deployment) DeploymentResponse {
	return DeploymentResponse{
		UserID:             deployment.UserID,
		ExternalWorkflowID: deployment.ExternalWorkflowID,
		Name:               deployment.Name,
		Status:             deployment.Status,
		DeployedAt:         deployment.DeployedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:          deployment.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
