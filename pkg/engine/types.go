package engine

import (
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
)

// envelope is the engine's standard response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// CreatedWorkflow is the engine's response to a workflow creation.
type CreatedWorkflow struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WorkflowStatus is the engine's view of a deployed workflow.
type WorkflowStatus struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// StartedExecution is the engine's response to a manual execution request.
type StartedExecution struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// executionPayload is the engine's wire shape for execution reads.
type executionPayload struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (p executionPayload) toSample() models.ExecutionSample {
	return models.ExecutionSample{
		ExecutionID: p.ID,
		WorkflowID:  p.WorkflowID,
		Outcome:     models.ExecutionOutcome(p.Status),
		StartedAt:   p.StartedAt,
		FinishedAt:  p.FinishedAt,
	}
}
