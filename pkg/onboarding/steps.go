package onboarding

import (
	"context"
	"log/slog"
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
)

func clockNow() time.Time {
	return time.Now().UTC()
}

func checkEmailVerified(user *models.User) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:      models.StepEmailVerified,
		Completed: user.EmailVerified,
		Message:   "Email address verified",
	}

	if !user.EmailVerified {
		result.Message = "Email address not yet verified"
	}

	return result
}

func checkBusinessType(user *models.User) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:      models.StepBusinessType,
		Completed: user.BusinessType != "",
		Message:   "Business type selected",
		Detail:    user.BusinessType,
	}

	if user.BusinessType == "" {
		result.Message = "Business type not selected"
	}

	return result
}

func checkMailboxConnected(user *models.User) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:      models.StepMailboxConnected,
		Completed: user.MailboxConnected,
		Message:   "Mailbox connected",
	}

	switch {
	case !user.MailboxConnected:
		result.Message = "Mailbox not connected"
	case user.OAuthStatus != models.OAuthStatusValid:
		result.Detail = "credential needs re-authorization"
	}

	return result
}

func checkBusinessInfo(user *models.User) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:      models.StepBusinessInfo,
		Completed: user.BusinessInfoProvided,
		Message:   "Business information provided",
	}

	if !user.BusinessInfoProvided {
		result.Message = "Business information missing"
	}

	return result
}

func checkWorkflowDeployed(deployment *models.Deployment) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:    models.StepWorkflowDeployed,
		Message: "Workflow deployed to engine",
	}

	switch {
	case deployment == nil:
		result.Message = "Workflow not yet deployed"
	case deployment.Status == models.DeploymentStatusFailed:
		result.Message = "Workflow deployment failed"
		result.Detail = "automation setup failed, retry available"
	case deployment.ExternalWorkflowID == "":
		result.Message = "Workflow deployment in progress"
	default:
		result.Completed = true
		result.Detail = deployment.ExternalWorkflowID
	}

	return result
}

// checkAutomationTested passes once the deployment has cleared synthetic
// verification. Inactive and NeedsReauth both imply verification passed
// earlier.
func checkAutomationTested(deployment *models.Deployment) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:    models.StepAutomationTested,
		Message: "Automation verified with a test execution",
	}

	if deployment == nil {
		result.Message = "Automation not yet tested"

		return result
	}

	switch deployment.Status {
	case models.DeploymentStatusActive, models.DeploymentStatusInactive, models.DeploymentStatusNeedsReauth:
		result.Completed = true
	case models.DeploymentStatusTesting:
		result.Message = "Automation test in progress"
	default:
		result.Message = "Automation not yet tested"
	}

	return result
}

// checkFirstExecution asks the engine whether any execution has happened.
// Engine trouble surfaces as an incomplete step with detail, never an error:
// partial results are the point of the aggregator.
func (a *Aggregator) checkFirstExecution(ctx context.Context, logger *slog.Logger, deployment *models.Deployment) models.OnboardingStepResult {
	result := models.OnboardingStepResult{
		Step:    models.StepFirstExecution,
		Message: "First automation run observed",
	}

	if deployment == nil || deployment.ExternalWorkflowID == "" {
		result.Message = "Waiting for the first automation run"

		return result
	}

	samples, err := a.client.Executions(ctx, deployment.ExternalWorkflowID, 1)
	if err != nil {
		logger.Warn("Failed to query executions for first-run check", "error", err)

		result.Message = "Waiting for the first automation run"
		result.Detail = "engine unreachable"

		return result
	}

	if len(samples) == 0 {
		result.Message = "Waiting for the first automation run"

		return result
	}

	result.Completed = true
	result.Detail = samples[0].ExecutionID

	return result
}
