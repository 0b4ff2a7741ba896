package models

// OnboardingStep names one of the seven readiness checks, in display order.
type OnboardingStep string

const (
	StepEmailVerified     OnboardingStep = "email_verified"
	StepBusinessType      OnboardingStep = "business_type_selected"
	StepMailboxConnected  OnboardingStep = "mailbox_connected"
	StepBusinessInfo      OnboardingStep = "business_info_provided"
	StepWorkflowDeployed  OnboardingStep = "workflow_deployed"
	StepAutomationTested  OnboardingStep = "automation_tested"
	StepFirstExecution    OnboardingStep = "first_execution_observed"
)

// OnboardingSteps is the fixed check order. Every validation recomputes all
// of them; partial progress is surfaced to the dashboard even when earlier
// steps are incomplete.
var OnboardingSteps = []OnboardingStep{
	StepEmailVerified,
	StepBusinessType,
	StepMailboxConnected,
	StepBusinessInfo,
	StepWorkflowDeployed,
	StepAutomationTested,
	StepFirstExecution,
}

// OnboardingStepResult is the outcome of a single readiness check.
type OnboardingStepResult struct {
	Step      OnboardingStep `json:"step"`
	Completed bool           `json:"completed"`
	Message   string         `json:"message"`
	Detail    string         `json:"detail,omitempty"`
}

// OnboardingValidation aggregates all step results for one user.
type OnboardingValidation struct {
	UserID         string                 `json:"user_id"`
	Steps          []OnboardingStepResult `json:"steps"`
	CompletionRate int                    `json:"completion_rate"` // Percent, 0-100
	Complete       bool                   `json:"complete"`
}
