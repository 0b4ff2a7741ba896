package deploy_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/lock"
	"github.com/mailbridge/mailbridge/pkg/mocks"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/testutil"
)

// fakeClock advances instantly and records every sleep so tests can assert
// the backoff schedule without waiting it out.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)

	return nil
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}

func setupOrchestrator(t *testing.T, client *mocks.MockEngineClient, dispatcher notification.Dispatcher) (*deploy.Orchestrator, *mocks.MockPersistence, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	persistence := mocks.NewMockPersistence()
	logger := slog.Default()

	verifier := deploy.NewVerifier(client, clock, logger)
	orchestrator := deploy.NewOrchestrator(
		client,
		verifier,
		persistence,
		dispatcher,
		nil,
		lock.NewKeyedMutex(),
		nil,
		"oncall@example.com",
		clock,
		logger,
	)

	return orchestrator, persistence, clock
}

func TestDeploy_SucceedsFirstAttempt(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).Return(&engine.CreatedWorkflow{ID: "wf-1"}, nil)
	client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(nil)
	client.On("ExecuteWorkflow", mock.Anything, "wf-1", mock.Anything).
		Return(&engine.StartedExecution{ExecutionID: "exec-1", Status: "success"}, nil)

	orchestrator, persistence, clock := setupOrchestrator(t, client, nil)

	config := testutil.CreateTestConfig()

	persistence.Deployments().On("Upsert", mock.Anything, mock.MatchedBy(func(d *models.Deployment) bool {
		return d.UserID == "user-1" && d.Status == models.DeploymentStatusTesting && d.ExternalWorkflowID == "wf-1"
	})).Return(nil)
	persistence.Deployments().On("UpdateStatus", mock.Anything, "user-1", models.DeploymentStatusActive, "").Return(nil)

	result, err := orchestrator.Deploy(context.Background(), "user-1", config)
	require.NoError(t, err)

	assert.Equal(t, "wf-1", result.WorkflowID)
	assert.Equal(t, models.DeploymentStatusActive, result.Status)
	assert.Equal(t, "exec-1", result.ExecutionID)
	assert.Equal(t, 1, result.Attempts)
	assert.Empty(t, clock.recorded(), "a clean first attempt must not back off")

	persistence.Deployments().AssertExpectations(t)
}

func TestDeploy_PersistsConfigSnapshot(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).Return(&engine.CreatedWorkflow{ID: "wf-1"}, nil)
	client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(nil)
	client.On("ExecuteWorkflow", mock.Anything, "wf-1", mock.Anything).
		Return(&engine.StartedExecution{ExecutionID: "exec-1", Status: "success"}, nil)

	orchestrator, persistence, _ := setupOrchestrator(t, client, nil)

	config := testutil.CreateTestConfig(testutil.WithCategories("Billing", "Sales"))

	var saved *models.Deployment

	persistence.Deployments().On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		saved = args.Get(1).(*models.Deployment)
	}).Return(nil)
	persistence.Deployments().On("UpdateStatus", mock.Anything, "user-1", models.DeploymentStatusActive, "").Return(nil)

	_, err := orchestrator.Deploy(context.Background(), "user-1", config)
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.Equal(t, config, saved.ConfigSnapshot, "the record must snapshot the exact config that was deployed")
}

func TestDeploy_RetriesAfterTransientFailure(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(engine.ErrEngineUnavailable).Once()
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).Return(&engine.CreatedWorkflow{ID: "wf-1"}, nil)
	client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(nil)
	client.On("ExecuteWorkflow", mock.Anything, "wf-1", mock.Anything).
		Return(&engine.StartedExecution{ExecutionID: "exec-1", Status: "success"}, nil)

	orchestrator, persistence, clock := setupOrchestrator(t, client, nil)

	persistence.Deployments().On("Upsert", mock.Anything, mock.Anything).Return(nil)
	persistence.Deployments().On("UpdateStatus", mock.Anything, "user-1", models.DeploymentStatusActive, "").Return(nil)

	result, err := orchestrator.Deploy(context.Background(), "user-1", testutil.CreateTestConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.recorded())
}

func TestDeploy_ExhaustsRetriesAndEscalates(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(engine.ErrEngineUnavailable)

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(msg notification.Message) bool {
		return msg.Template == notification.TemplateOperatorEscalation && msg.To == "oncall@example.com"
	})).Return(nil)

	orchestrator, persistence, clock := setupOrchestrator(t, client, dispatcher)

	persistence.Deployments().On("Upsert", mock.Anything, mock.MatchedBy(func(d *models.Deployment) bool {
		return d.Status == models.DeploymentStatusFailed && d.LastError != ""
	})).Return(nil)

	_, err := orchestrator.Deploy(context.Background(), "user-1", testutil.CreateTestConfig())

	require.Error(t, err)
	assert.True(t, deploy.IsExhaustedRetries(err))

	var deployErr *deploy.Error

	require.ErrorAs(t, err, &deployErr)
	assert.Equal(t, 3, deployErr.Attempts)

	// Exactly two backoffs: after attempts one and two, none after the last.
	assert.Equal(t, []time.Duration{5 * time.Second, 15 * time.Second}, clock.recorded())

	client.AssertNumberOfCalls(t, "Ping", 3)
	dispatcher.AssertNumberOfCalls(t, "Send", 1)
	persistence.Deployments().AssertExpectations(t)
}

func TestDeploy_RejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	orchestrator, _, clock := setupOrchestrator(t, client, nil)

	_, err := orchestrator.Deploy(context.Background(), "user-1", models.AutomationConfig{})

	require.Error(t, err)
	assert.True(t, deploy.IsConfigInvalid(err))
	assert.Empty(t, clock.recorded())

	client.AssertNotCalled(t, "Ping", mock.Anything)
	client.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestDeploy_VerificationFailureNeverActivatesRecord(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).Return(&engine.CreatedWorkflow{ID: "wf-1"}, nil)
	client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(nil)
	client.On("ExecuteWorkflow", mock.Anything, "wf-1", mock.Anything).
		Return(&engine.StartedExecution{ExecutionID: "exec-1", Status: "error"}, nil)
	client.On("DeleteWorkflow", mock.Anything, "wf-1").Return(nil)

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)

	orchestrator, persistence, _ := setupOrchestrator(t, client, dispatcher)

	persistence.Deployments().On("Upsert", mock.Anything, mock.Anything).Return(nil)

	_, err := orchestrator.Deploy(context.Background(), "user-1", testutil.CreateTestConfig())

	require.Error(t, err)
	assert.True(t, deploy.IsExhaustedRetries(err))
	assert.True(t, deploy.IsVerificationFailed(err))

	// A workflow that never passed verification must never be recorded Active.
	persistence.Deployments().AssertNotCalled(t, "UpdateStatus",
		mock.Anything, "user-1", models.DeploymentStatusActive, "")

	// Each failed attempt cleans up its orphan on the engine.
	client.AssertNumberOfCalls(t, "DeleteWorkflow", 3)
}

func TestDeploy_CreateFailureErrorKind(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).
		Return(nil, errors.New("engine rejected the node graph"))

	dispatcher := &mocks.MockDispatcher{}
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)

	orchestrator, persistence, _ := setupOrchestrator(t, client, dispatcher)

	persistence.Deployments().On("Upsert", mock.Anything, mock.Anything).Return(nil)

	_, err := orchestrator.Deploy(context.Background(), "user-1", testutil.CreateTestConfig())

	require.Error(t, err)
	assert.True(t, deploy.IsExhaustedRetries(err))
	assert.False(t, deploy.IsConfigInvalid(err))
}
