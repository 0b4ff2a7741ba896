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

// ConfigRepository stores automation configs as JSONB, one row per user.
type ConfigRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewConfigRepository creates a new automation config repository.
func NewConfigRepository(db *sql.DB, logger *slog.Logger) *ConfigRepository {
	return &ConfigRepository{
		db:     db,
		logger: logger.With("module", "config_repository"),
	}
}

// GetByUserID returns the user's automation config.
func (r *ConfigRepository) GetByUserID(ctx context.Context, userID string) (*models.AutomationConfig, error) {
	var raw []byte

	err := r.db.QueryRowContext(ctx, "SELECT config FROM automation_configs WHERE user_id = $1", userID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrConfigNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch automation config for user %s: %w", userID, err)
	}

	var config models.AutomationConfig
	if err := json.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("failed to decode automation config for user %s: %w", userID, err)
	}

	return &config, nil
}

// Save inserts or replaces the user's automation config.
func (r *ConfigRepository) Save(ctx context.Context, userID string, config *models.AutomationConfig) error {
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode automation config for user %s: %w", userID, err)
	}

	query := `
		INSERT INTO automation_configs (user_id, config, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			config = EXCLUDED.config,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, userID, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save automation config for user %s: %w", userID, err)
	}

	return nil
}
