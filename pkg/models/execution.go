package models

import "time"

// ExecutionOutcome is the engine-reported result of one workflow run.
type ExecutionOutcome string

const (
	ExecutionOutcomeSuccess   ExecutionOutcome = "success"
	ExecutionOutcomeCompleted ExecutionOutcome = "completed"
	ExecutionOutcomeRunning   ExecutionOutcome = "running"
	ExecutionOutcomeError     ExecutionOutcome = "error"
)

// Succeeded reports whether the outcome counts as a successful run.
func (o ExecutionOutcome) Succeeded() bool {
	return o == ExecutionOutcomeSuccess || o == ExecutionOutcomeCompleted
}

// ExecutionSample is a read-only view of one execution on the external
// engine. Samples are fetched on demand for staleness and success-rate
// checks and are never stored locally.
type ExecutionSample struct {
	ExecutionID string           `json:"execution_id"`
	WorkflowID  string           `json:"workflow_id"`
	Outcome     ExecutionOutcome `json:"outcome"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  *time.Time       `json:"finished_at,omitempty"`
}
