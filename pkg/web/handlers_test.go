package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/lock"
	"github.com/mailbridge/mailbridge/pkg/mocks"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/monitor"
	"github.com/mailbridge/mailbridge/pkg/onboarding"
	"github.com/mailbridge/mailbridge/pkg/persistence"
	"github.com/mailbridge/mailbridge/pkg/testutil"
	"github.com/mailbridge/mailbridge/pkg/web"
)

// instantClock skips backoff and verification waits inside handler tests.
type instantClock struct{}

func (instantClock) Now() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func (instantClock) Sleep(context.Context, time.Duration) error { return nil }

func setupTestApp(t *testing.T, client *mocks.MockEngineClient) (*fiber.App, *mocks.MockPersistence) {
	t.Helper()

	p := mocks.NewMockPersistence()
	logger := slog.Default()
	locker := lock.NewKeyedMutex()
	clock := instantClock{}

	verifier := deploy.NewVerifier(client, clock, logger)
	orchestrator := deploy.NewOrchestrator(client, verifier, p, nil, nil, locker, nil, "", clock, logger)
	mon := monitor.NewMonitor(client, p, nil, nil, locker, "https://app.example.com", 4, clock, logger)
	aggregator := onboarding.NewAggregator(client, p, nil, nil, logger)

	handlers := web.NewAPIHandlers(orchestrator, mon, aggregator, p, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()

	u := app.Group("/users/:id")
	u.Post("/deployment", handlers.CreateDeployment)
	u.Get("/deployment", handlers.GetDeployment)
	u.Delete("/deployment", handlers.DeleteDeployment)
	u.Post("/deployment/sweep", handlers.SweepDeployment)
	u.Get("/onboarding", handlers.GetOnboarding)

	app.Get("/health", handlers.HealthCheck)

	return app, p
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req
}

func TestCreateDeployment_Success(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(nil)
	client.On("CreateWorkflow", mock.Anything, mock.Anything).Return(&engine.CreatedWorkflow{ID: "wf-1"}, nil)
	client.On("ActivateWorkflow", mock.Anything, "wf-1").Return(nil)
	client.On("ExecuteWorkflow", mock.Anything, "wf-1", mock.Anything).
		Return(&engine.StartedExecution{ExecutionID: "exec-1", Status: "success"}, nil)

	app, p := setupTestApp(t, client)

	p.Configs().On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)
	p.Deployments().On("Upsert", mock.Anything, mock.Anything).Return(nil)
	p.Deployments().On("UpdateStatus", mock.Anything, "user-1", models.DeploymentStatusActive, "").Return(nil)

	req := jsonRequest(t, http.MethodPost, "/users/user-1/deployment", web.DeployRequest{
		Config: testutil.CreateTestConfig(),
	})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var body web.DeployResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "wf-1", body.WorkflowID)
	assert.Equal(t, models.DeploymentStatusActive, body.Status)
	assert.Equal(t, 1, body.Attempts)
}

func TestCreateDeployment_InvalidConfig(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	p.Configs().On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/users/user-1/deployment", web.DeployRequest{
		Config: models.AutomationConfig{},
	})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	client.AssertNotCalled(t, "CreateWorkflow", mock.Anything, mock.Anything)
}

func TestCreateDeployment_ExhaustedRetriesMapsToBadGateway(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	client.On("Ping", mock.Anything).Return(engine.ErrEngineUnavailable)

	app, p := setupTestApp(t, client)

	p.Configs().On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)
	p.Deployments().On("Upsert", mock.Anything, mock.Anything).Return(nil)

	req := jsonRequest(t, http.MethodPost, "/users/user-1/deployment", web.DeployRequest{
		Config: testutil.CreateTestConfig(),
	})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// The stable retry-available message, never the raw engine error.
	assert.Contains(t, string(raw), "automation setup failed, retry available")
	assert.NotContains(t, string(raw), "engine unavailable")
}

func TestGetDeployment(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	deployment := testutil.CreateTestDeployment("user-1")
	p.Deployments().On("GetByUserID", mock.Anything, "user-1").Return(deployment, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/user-1/deployment", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body web.DeploymentResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, deployment.ExternalWorkflowID, body.ExternalWorkflowID)
	assert.Equal(t, models.DeploymentStatusActive, body.Status)
}

func TestGetDeployment_NotFound(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	p.Deployments().On("GetByUserID", mock.Anything, "user-1").
		Return(nil, persistence.NewDeploymentError("GetByUserID", "user-1", persistence.ErrDeploymentNotFound))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/user-1/deployment", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteDeployment(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	p.Deployments().On("Delete", mock.Anything, "user-1").Return(nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodDelete, "/users/user-1/deployment", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSweepDeployment(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	deployment := testutil.CreateTestDeployment("user-1")
	p.Deployments().On("GetByUserID", mock.Anything, "user-1").Return(deployment, nil)
	p.Deployments().On("UpdateStatus", mock.Anything, "user-1", models.DeploymentStatusActive, "").Return(nil)

	client.On("WorkflowStatus", mock.Anything, deployment.ExternalWorkflowID).
		Return(&engine.WorkflowStatus{ID: deployment.ExternalWorkflowID, Active: false}, nil)
	client.On("ActivateWorkflow", mock.Anything, deployment.ExternalWorkflowID).Return(nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/users/user-1/deployment/sweep", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result monitor.SweepResult

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, []string{monitor.ActionReactivated}, result.ActionsTaken)
}

func TestGetOnboarding(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	user := testutil.CreateTestUser(func(u *models.User) { u.ID = "user-1" })
	p.Users().On("GetByID", mock.Anything, "user-1").Return(user, nil)
	p.Deployments().On("GetByUserID", mock.Anything, "user-1").
		Return(nil, persistence.NewDeploymentError("GetByUserID", "user-1", persistence.ErrDeploymentNotFound))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/user-1/onboarding", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var validation models.OnboardingValidation

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&validation))
	assert.Len(t, validation.Steps, 7)
	assert.False(t, validation.Complete)
}

func TestGetOnboarding_UserNotFound(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	p.Users().On("GetByID", mock.Anything, "user-1").Return(nil, persistence.ErrUserNotFound)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/users/user-1/onboarding", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	client := &mocks.MockEngineClient{}
	app, p := setupTestApp(t, client)

	p.On("HealthCheck", mock.Anything).Return(nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
