package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

// UserRepository reads and updates the user fields this service owns.
type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sql.DB, logger *slog.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger.With("module", "user_repository"),
	}
}

// GetByID returns a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, email, email_verified, business_type, business_info_provided,
		       mailbox_connected, oauth_status, onboarding_completed,
		       onboarding_completed_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.EmailVerified,
		&user.BusinessType,
		&user.BusinessInfoProvided,
		&user.MailboxConnected,
		&user.OAuthStatus,
		&user.OnboardingCompleted,
		&user.OnboardingCompletedAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to fetch user %s: %w", id, err)
	}

	return &user, nil
}

// SetOAuthStatus updates the user's mailbox credential status.
func (r *UserRepository) SetOAuthStatus(ctx context.Context, userID string, status models.OAuthStatus) error {
	query := `
		UPDATE users
		SET oauth_status = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, status, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update oauth status for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update oauth status for user %s: %w", userID, err)
	}

	if affected == 0 {
		return persistence.ErrUserNotFound
	}

	return nil
}

// MarkOnboardingCompleted sets the completion flag with a compare-and-set so
// concurrent dashboard polls cannot both win. Returns true only for the call
// that performed the transition.
func (r *UserRepository) MarkOnboardingCompleted(ctx context.Context, userID string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE users
		SET onboarding_completed = TRUE, onboarding_completed_at = $2, updated_at = $2
		WHERE id = $1 AND onboarding_completed = FALSE
	`

	result, err := r.db.ExecContext(ctx, query, userID, completedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark onboarding completed for user %s: %w", userID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark onboarding completed for user %s: %w", userID, err)
	}

	return affected == 1, nil
}
