// Package onboarding aggregates the seven readiness checks that gate a
// user's onboarding completion.
package onboarding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

// Aggregator recomputes every readiness check on each call. Validation is
// re-entrant and stateless; the only side effect is the one-time completion
// transition, guarded by a compare-and-set on the user record.
type Aggregator struct {
	client      engine.Client
	persistence persistence.Persistence
	dispatcher  notification.Dispatcher
	bus         eventbus.EventPublisher
	logger      *slog.Logger
}

// NewAggregator creates an onboarding completion aggregator.
func NewAggregator(
	client engine.Client,
	persistence persistence.Persistence,
	dispatcher notification.Dispatcher,
	bus eventbus.EventPublisher,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		client:      client,
		persistence: persistence,
		dispatcher:  dispatcher,
		bus:         bus,
		logger:      logger.With("module", "onboarding_aggregator"),
	}
}

// Validate runs all seven checks for the user. Checks never short-circuit:
// partial progress is valuable for the dashboard even when earlier steps are
// incomplete. On the first call where everything passes, the completion flag
// and timestamp are persisted exactly once and the "automation live"
// notification goes out.
func (a *Aggregator) Validate(ctx context.Context, userID string) (*models.OnboardingValidation, error) {
	logger := a.logger.With("user_id", userID)

	user, err := a.persistence.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	deployment := a.loadDeployment(ctx, logger, userID)

	steps := []models.OnboardingStepResult{
		checkEmailVerified(user),
		checkBusinessType(user),
		checkMailboxConnected(user),
		checkBusinessInfo(user),
		checkWorkflowDeployed(deployment),
		checkAutomationTested(deployment),
		a.checkFirstExecution(ctx, logger, deployment),
	}

	completed := 0

	for _, step := range steps {
		if step.Completed {
			completed++
		}
	}

	validation := &models.OnboardingValidation{
		UserID:         userID,
		Steps:          steps,
		CompletionRate: completed * 100 / len(steps),
		Complete:       completed == len(steps),
	}

	if validation.Complete {
		a.completeOnce(ctx, logger, user)
	}

	return validation, nil
}

// loadDeployment fetches the deployment if one exists. Absence is a normal
// pre-deploy state, not an error.
func (a *Aggregator) loadDeployment(ctx context.Context, logger *slog.Logger, userID string) *models.Deployment {
	deployment, err := a.persistence.DeploymentRepository().GetByUserID(ctx, userID)
	if err != nil {
		if !persistence.IsDeploymentNotFound(err) {
			logger.Warn("Failed to load deployment for validation", "error", err)
		}

		return nil
	}

	return deployment
}

// completeOnce performs the one-time completion transition. The persisted
// flag is re-read via compare-and-set so concurrent dashboard polls cannot
// both notify.
func (a *Aggregator) completeOnce(ctx context.Context, logger *slog.Logger, user *models.User) {
	if user.OnboardingCompleted {
		return
	}

	now := clockNow()

	won, err := a.persistence.UserRepository().MarkOnboardingCompleted(ctx, user.ID, now)
	if err != nil {
		logger.Error("Failed to persist onboarding completion", "error", err)

		return
	}

	if !won {
		// Another poll beat us to the transition.
		return
	}

	logger.Info("Onboarding completed")

	if a.bus != nil {
		event := events.OnboardingCompleted{
			BaseEvent:   events.NewBaseEvent(events.OnboardingCompletedEvent, user.ID),
			CompletedAt: now,
		}

		if err := a.bus.Publish(ctx, user.ID, event); err != nil {
			logger.Warn("Failed to publish onboarding completion event", "error", err)
		}
	}

	if a.dispatcher != nil {
		err := a.dispatcher.Send(ctx, notification.Message{
			To:       user.Email,
			Template: notification.TemplateAutomationLive,
			Data:     map[string]any{"completed_at": now},
		})
		if err != nil {
			// Fire-and-forget: the completion flag stays set regardless.
			logger.Error("Failed to dispatch completion notification", "error", err)
		}
	}
}
