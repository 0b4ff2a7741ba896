package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/models"
)

// MockEngineClient is a mock implementation of engine.Client interface.
type MockEngineClient struct {
	mock.Mock
}

func (m *MockEngineClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockEngineClient) CreateWorkflow(ctx context.Context, definition *models.WorkflowDefinition) (*engine.CreatedWorkflow, error) {
	args := m.Called(ctx, definition)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*engine.CreatedWorkflow), args.Error(1)
}

func (m *MockEngineClient) ActivateWorkflow(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)

	return args.Error(0)
}

func (m *MockEngineClient) DeactivateWorkflow(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)

	return args.Error(0)
}

func (m *MockEngineClient) DeleteWorkflow(ctx context.Context, workflowID string) error {
	args := m.Called(ctx, workflowID)

	return args.Error(0)
}

func (m *MockEngineClient) WorkflowStatus(ctx context.Context, workflowID string) (*engine.WorkflowStatus, error) {
	args := m.Called(ctx, workflowID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*engine.WorkflowStatus), args.Error(1)
}

func (m *MockEngineClient) ExecuteWorkflow(ctx context.Context, workflowID string, payload map[string]any) (*engine.StartedExecution, error) {
	args := m.Called(ctx, workflowID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*engine.StartedExecution), args.Error(1)
}

func (m *MockEngineClient) Execution(ctx context.Context, executionID string) (*models.ExecutionSample, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ExecutionSample), args.Error(1)
}

func (m *MockEngineClient) Executions(ctx context.Context, workflowID string, limit int) ([]models.ExecutionSample, error) {
	args := m.Called(ctx, workflowID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.ExecutionSample), args.Error(1)
}
