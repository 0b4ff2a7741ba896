// Package mocks provides testify mock implementations of the service's
// interfaces for unit tests.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

// MockDeploymentRepository is a mock implementation of persistence.DeploymentRepository interface.
type MockDeploymentRepository struct {
	mock.Mock
}

func (m *MockDeploymentRepository) GetByUserID(ctx context.Context, userID string) (*models.Deployment, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Deployment), args.Error(1)
}

func (m *MockDeploymentRepository) Upsert(ctx context.Context, deployment *models.Deployment) error {
	args := m.Called(ctx, deployment)

	return args.Error(0)
}

func (m *MockDeploymentRepository) UpdateStatus(ctx context.Context, userID string, status models.DeploymentStatus, lastError string) error {
	args := m.Called(ctx, userID, status, lastError)

	return args.Error(0)
}

func (m *MockDeploymentRepository) Delete(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)

	return args.Error(0)
}

func (m *MockDeploymentRepository) UserIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// MockUserRepository is a mock implementation of persistence.UserRepository interface.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetOAuthStatus(ctx context.Context, userID string, status models.OAuthStatus) error {
	args := m.Called(ctx, userID, status)

	return args.Error(0)
}

func (m *MockUserRepository) MarkOnboardingCompleted(ctx context.Context, userID string, completedAt time.Time) (bool, error) {
	args := m.Called(ctx, userID, completedAt)

	return args.Bool(0), args.Error(1)
}

// MockConfigRepository is a mock implementation of persistence.ConfigRepository interface.
type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) GetByUserID(ctx context.Context, userID string) (*models.AutomationConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.AutomationConfig), args.Error(1)
}

func (m *MockConfigRepository) Save(ctx context.Context, userID string, config *models.AutomationConfig) error {
	args := m.Called(ctx, userID, config)

	return args.Error(0)
}

// MockPersistence is a mock implementation of persistence.Persistence interface.
type MockPersistence struct {
	mock.Mock

	deploymentRepo *MockDeploymentRepository
	userRepo       *MockUserRepository
	configRepo     *MockConfigRepository
}

// NewMockPersistence creates a new MockPersistence with all mock repositories.
func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		deploymentRepo: &MockDeploymentRepository{},
		userRepo:       &MockUserRepository{},
		configRepo:     &MockConfigRepository{},
	}
}

func (m *MockPersistence) DeploymentRepository() persistence.DeploymentRepository {
	return m.deploymentRepo
}

func (m *MockPersistence) UserRepository() persistence.UserRepository {
	return m.userRepo
}

func (m *MockPersistence) ConfigRepository() persistence.ConfigRepository {
	return m.configRepo
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// Deployments exposes the underlying mock for expectation setup.
func (m *MockPersistence) Deployments() *MockDeploymentRepository { return m.deploymentRepo }

// Users exposes the underlying mock for expectation setup.
func (m *MockPersistence) Users() *MockUserRepository { return m.userRepo }

// Configs exposes the underlying mock for expectation setup.
func (m *MockPersistence) Configs() *MockConfigRepository { return m.configRepo }
