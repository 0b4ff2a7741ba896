// Package persistence provides the data storage abstraction for deployments,
// users and automation configs.
package persistence

import (
	"context"
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
)

// DeploymentRepository stores deployment records keyed by user id. A user has
// at most one non-deleted deployment; Upsert replaces any previous record.
type DeploymentRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.Deployment, error)
	Upsert(ctx context.Context, deployment *models.Deployment) error
	UpdateStatus(ctx context.Context, userID string, status models.DeploymentStatus, lastError string) error
	Delete(ctx context.Context, userID string) error

	// UserIDs returns the owners of all non-deleted deployments, for the
	// monitor's batch sweep.
	UserIDs(ctx context.Context) ([]string, error)
}

// UserRepository reads and updates the user fields this service owns.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetOAuthStatus(ctx context.Context, userID string, status models.OAuthStatus) error

	// MarkOnboardingCompleted sets the completion flag if not already set and
	// reports whether this call performed the transition. The flag is never
	// reset by this service.
	MarkOnboardingCompleted(ctx context.Context, userID string, completedAt time.Time) (bool, error)
}

// ConfigRepository stores the user's automation config.
type ConfigRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.AutomationConfig, error)
	Save(ctx context.Context, userID string, config *models.AutomationConfig) error
}

// Persistence aggregates the repositories behind a single connection.
type Persistence interface {
	DeploymentRepository() DeploymentRepository
	UserRepository() UserRepository
	ConfigRepository() ConfigRepository
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
