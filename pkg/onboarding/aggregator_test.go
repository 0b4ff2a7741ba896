package onboarding_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/mocks"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/onboarding"
	"github.com/mailbridge/mailbridge/pkg/persistence"
	"github.com/mailbridge/mailbridge/pkg/testutil"
)

func setupAggregator(t *testing.T, client *mocks.MockEngineClient, dispatcher notification.Dispatcher) (*onboarding.Aggregator, *mocks.MockPersistence) {
	t.Helper()

	p := mocks.NewMockPersistence()
	aggregator := onboarding.NewAggregator(client, p, dispatcher, nil, slog.Default())

	return aggregator, p
}

func stepByName(t *testing.T, validation *models.OnboardingValidation, step models.OnboardingStep) models.OnboardingStepResult {
	t.Helper()

	for _, result := range validation.Steps {
		if result.Step == step {
			return result
		}
	}

	t.Fatalf("step %s missing from validation", step)

	return models.OnboardingStepResult{}
}

func TestValidate_AllStepsComplete(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser()
	deployment := testutil.CreateTestDeployment(user.ID)

	client := &mocks.MockEngineClient{}
	client.On("Executions", mock.Anything, deployment.ExternalWorkflowID, 1).
		Return([]models.ExecutionSample{
			{ExecutionID: "exec-1", Outcome: models.ExecutionOutcomeSuccess, StartedAt: time.Now().UTC()},
		}, nil)

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
		return msg.Template == notification.TemplateAutomationLive && msg.To == user.Email
	})).Return(nil)

	aggregator, p := setupAggregator(t, client, dispatcher)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Users().On("MarkOnboardingCompleted", mock.Anything, user.ID, mock.Anything).Return(true, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	assert.True(t, validation.Complete)
	assert.Equal(t, 100, validation.CompletionRate)
	assert.Len(t, validation.Steps, 7)

	dispatcher.AssertNumberOfCalls(t, "Send", 1)
	p.Users().AssertExpectations(t)
}

func TestValidate_PartialProgressNeverShortCircuits(t *testing.T) {
	t.Parallel()

	// Email unverified, but later steps are all satisfiable and must still be
	// evaluated and reported.
	user := testutil.CreateTestUser(func(u *models.User) { u.EmailVerified = false })
	deployment := testutil.CreateTestDeployment(user.ID)

	client := &mocks.MockEngineClient{}
	client.On("Executions", mock.Anything, deployment.ExternalWorkflowID, 1).
		Return([]models.ExecutionSample{
			{ExecutionID: "exec-1", Outcome: models.ExecutionOutcomeSuccess, StartedAt: time.Now().UTC()},
		}, nil)

	aggregator, p := setupAggregator(t, client, nil)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	assert.False(t, validation.Complete)
	assert.Equal(t, 6*100/7, validation.CompletionRate)
	assert.False(t, stepByName(t, validation, models.StepEmailVerified).Completed)
	assert.True(t, stepByName(t, validation, models.StepWorkflowDeployed).Completed)
	assert.True(t, stepByName(t, validation, models.StepFirstExecution).Completed)

	p.Users().AssertNotCalled(t, "MarkOnboardingCompleted", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidate_NoDeployment(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser()

	client := &mocks.MockEngineClient{}
	aggregator, p := setupAggregator(t, client, nil)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).
		Return(nil, persistence.NewDeploymentError("GetByUserID", user.ID, persistence.ErrDeploymentNotFound))

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	assert.False(t, validation.Complete)
	assert.False(t, stepByName(t, validation, models.StepWorkflowDeployed).Completed)
	assert.False(t, stepByName(t, validation, models.StepAutomationTested).Completed)
	assert.False(t, stepByName(t, validation, models.StepFirstExecution).Completed)

	client.AssertNotCalled(t, "Executions", mock.Anything, mock.Anything, mock.Anything)
}

func TestValidate_FailedDeploymentBlocksCompletion(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser()
	deployment := testutil.CreateTestDeployment(user.ID, testutil.WithStatus(models.DeploymentStatusFailed), func(d *models.Deployment) {
		d.ExternalWorkflowID = ""
	})

	client := &mocks.MockEngineClient{}
	aggregator, p := setupAggregator(t, client, nil)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	deployed := stepByName(t, validation, models.StepWorkflowDeployed)

	assert.False(t, deployed.Completed)
	assert.Equal(t, "automation setup failed, retry available", deployed.Detail)
	assert.False(t, stepByName(t, validation, models.StepAutomationTested).Completed)
}

func TestValidate_EngineTroubleLeavesFirstExecutionIncomplete(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser()
	deployment := testutil.CreateTestDeployment(user.ID)

	client := &mocks.MockEngineClient{}
	client.On("Executions", mock.Anything, deployment.ExternalWorkflowID, 1).
		Return(nil, engine.ErrEngineUnavailable)

	aggregator, p := setupAggregator(t, client, nil)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err, "engine trouble must degrade to a partial result, not an error")

	step := stepByName(t, validation, models.StepFirstExecution)

	assert.False(t, step.Completed)
	assert.Equal(t, "engine unreachable", step.Detail)
}

func TestValidate_CompletionSideEffectsFireOnlyForTheWinner(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser()
	deployment := testutil.CreateTestDeployment(user.ID)

	client := &mocks.MockEngineClient{}
	client.On("Executions", mock.Anything, deployment.ExternalWorkflowID, 1).
		Return([]models.ExecutionSample{
			{ExecutionID: "exec-1", Outcome: models.ExecutionOutcomeSuccess, StartedAt: time.Now().UTC()},
		}, nil)

	dispatcher := &mocks.MockDispatcher{}

	aggregator, p := setupAggregator(t, client, dispatcher)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	// A concurrent validation already performed the transition.
	p.Users().On("MarkOnboardingCompleted", mock.Anything, user.ID, mock.Anything).Return(false, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	assert.True(t, validation.Complete)
	dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestValidate_AlreadyCompletedSkipsTransition(t *testing.T) {
	t.Parallel()

	user := testutil.CreateTestUser(testutil.WithOnboardingCompleted())
	deployment := testutil.CreateTestDeployment(user.ID)

	client := &mocks.MockEngineClient{}
	client.On("Executions", mock.Anything, deployment.ExternalWorkflowID, 1).
		Return([]models.ExecutionSample{
			{ExecutionID: "exec-1", Outcome: models.ExecutionOutcomeSuccess, StartedAt: time.Now().UTC()},
		}, nil)

	aggregator, p := setupAggregator(t, client, nil)

	p.Users().On("GetByID", mock.Anything, user.ID).Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, user.ID).Return(deployment, nil)

	validation, err := aggregator.Validate(context.Background(), user.ID)
	require.NoError(t, err)

	assert.True(t, validation.Complete)
	p.Users().AssertNotCalled(t, "MarkOnboardingCompleted", mock.Anything, mock.Anything, mock.Anything)
}
