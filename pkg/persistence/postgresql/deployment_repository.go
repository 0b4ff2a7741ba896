package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

// DeploymentRepository stores deployment records in PostgreSQL, one
// non-deleted row per user (enforced by a partial unique index).
type DeploymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(db *sql.DB, logger *slog.Logger) *DeploymentRepository {
	return &DeploymentRepository{
		db:     db,
		logger: logger.With("module", "deployment_repository"),
	}
}

// GetByUserID returns the user's current deployment.
func (r *DeploymentRepository) GetByUserID(ctx context.Context, userID string) (*models.Deployment, error) {
	query := `
		SELECT id, user_id, external_workflow_id, name, status, config_snapshot,
		       last_error, deployed_at, updated_at
		FROM deployments
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	var (
		deployment  models.Deployment
		rawSnapshot []byte
	)

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&deployment.ID,
		&deployment.UserID,
		&deployment.ExternalWorkflowID,
		&deployment.Name,
		&deployment.Status,
		&rawSnapshot,
		&deployment.LastError,
		&deployment.DeployedAt,
		&deployment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewDeploymentError("GetByUserID", userID, persistence.ErrDeploymentNotFound)
	}

	if err != nil {
		return nil, persistence.NewDeploymentError("GetByUserID", userID, err)
	}

	err = json.Unmarshal(rawSnapshot, &deployment.ConfigSnapshot)
	if err != nil {
		return nil, persistence.NewDeploymentError("GetByUserID", userID, fmt.Errorf("failed to decode config snapshot: %w", err))
	}

	return &deployment, nil
}

// Upsert inserts or replaces the user's deployment record.
func (r *DeploymentRepository) Upsert(ctx context.Context, deployment *models.Deployment) error {
	rawSnapshot, err := json.Marshal(deployment.ConfigSnapshot)
	if err != nil {
		return persistence.NewDeploymentError("Upsert", deployment.UserID, fmt.Errorf("failed to encode config snapshot: %w", err))
	}

	query := `
		INSERT INTO deployments (id, user_id, external_workflow_id, name, status,
		                         config_snapshot, last_error, deployed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) WHERE deleted_at IS NULL DO UPDATE SET
			external_workflow_id = EXCLUDED.external_workflow_id,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			config_snapshot = EXCLUDED.config_snapshot,
			last_error = EXCLUDED.last_error,
			deployed_at = EXCLUDED.deployed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		deployment.ID,
		deployment.UserID,
		deployment.ExternalWorkflowID,
		deployment.Name,
		deployment.Status,
		rawSnapshot,
		deployment.LastError,
		deployment.DeployedAt,
		deployment.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDeploymentError("Upsert", deployment.UserID, err)
	}

	return nil
}

// UpdateStatus moves the deployment to a new status and records the last error.
func (r *DeploymentRepository) UpdateStatus(ctx context.Context, userID string, status models.DeploymentStatus, lastError string) error {
	query := `
		UPDATE deployments
		SET status = $2, last_error = $3, updated_at = $4
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, userID, status, lastError, time.Now().UTC())
	if err != nil {
		return persistence.NewDeploymentError("UpdateStatus", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDeploymentError("UpdateStatus", userID, err)
	}

	if affected == 0 {
		return persistence.NewDeploymentError("UpdateStatus", userID, persistence.ErrDeploymentNotFound)
	}

	return nil
}

// UserIDs returns the owners of all non-deleted deployments.
func (r *DeploymentRepository) UserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id FROM deployments WHERE deleted_at IS NULL ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment owners: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.Warn("Failed to close rows", "error", err)
		}
	}()

	var userIDs []string

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan deployment owner: %w", err)
		}

		userIDs = append(userIDs, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate deployment owners: %w", err)
	}

	return userIDs, nil
}

// Delete soft deletes the user's deployment.
func (r *DeploymentRepository) Delete(ctx context.Context, userID string) error {
	query := `
		UPDATE deployments
		SET deleted_at = $2
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return persistence.NewDeploymentError("Delete", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDeploymentError("Delete", userID, err)
	}

	if affected == 0 {
		return persistence.NewDeploymentError("Delete", userID, persistence.ErrDeploymentNotFound)
	}

	return nil
}
