package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
)

// triggerReauth marks the user's credential expired, pauses the deployment,
// and dispatches a re-authorization prompt with a deep link. Safe to hit on
// every sweep while unresolved: the NeedsReauth status short-circuits
// subsequent sweeps and the dispatcher debounces the prompt itself.
func (m *Monitor) triggerReauth(ctx context.Context, logger *slog.Logger, deployment *models.Deployment, cause error) string {
	userID := deployment.UserID

	if err := m.persistence.UserRepository().SetOAuthStatus(ctx, userID, models.OAuthStatusExpired); err != nil {
		logger.Error("Failed to mark oauth status expired", "error", err)
	}

	reason := "workflow reactivation failed"
	if cause != nil {
		reason = cause.Error()
	}

	if err := m.persistence.DeploymentRepository().UpdateStatus(ctx, userID, models.DeploymentStatusNeedsReauth, reason); err != nil {
		logger.Error("Failed to pause deployment for re-auth", "error", err)
	}

	m.publish(ctx, userID, events.ReauthRequired{
		BaseEvent:  events.NewBaseEvent(events.ReauthRequiredEvent, userID),
		WorkflowID: deployment.ExternalWorkflowID,
		Reason:     reason,
	})

	if m.dispatcher != nil {
		user, err := m.persistence.UserRepository().GetByID(ctx, userID)
		if err != nil {
			logger.Error("Failed to load user for re-auth prompt", "error", err)
		} else {
			err := m.dispatcher.Send(ctx, notification.Message{
				To:       user.Email,
				Template: notification.TemplateReauthPrompt,
				Data: map[string]any{
					"reauth_url": fmt.Sprintf("%s/reauth?user=%s", m.reauthURL, userID),
				},
			})
			if err != nil {
				logger.Error("Failed to dispatch re-auth prompt", "error", err)
			}
		}
	}

	logger.Warn("Re-authentication required", "workflow_id", deployment.ExternalWorkflowID, "reason", reason)

	return ActionReauthTriggered
}
