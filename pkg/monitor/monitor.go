// Package monitor supervises deployed workflows: it reactivates workflows
// the engine reports inactive, detects execution staleness, and routes
// credential problems to the re-authentication flow.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailbridge/mailbridge/pkg/deploy"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/lock"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

const (
	// healthLookback is the window for general execution health.
	healthLookback = 24 * time.Hour

	// firstExecutionLookback is 2x the automation's 5-minute run interval
	// plus buffer, used for "first execution" checks during onboarding.
	firstExecutionLookback = 10 * time.Minute

	executionSampleLimit = 20

	defaultConcurrency = 16
)

// Sweep actions, reported for observability and asserted in tests.
const (
	ActionReactivated     = "reactivated"
	ActionReauthTriggered = "reauth_triggered"
	ActionWaiting         = "waiting_for_executions"
	ActionSkippedLocked   = "skipped_locked"
	ActionSkippedReauth   = "skipped_awaiting_reauth"
	ActionUnreachable     = "engine_unreachable"
)

// SweepResult summarizes one pass over a user's deployment.
type SweepResult struct {
	UserID           string   `json:"user_id"`
	WorkflowsChecked int      `json:"workflows_checked"`
	ActionsTaken     []string `json:"actions_taken"`
}

// Monitor is the recovery sweep. It shares the per-user locker with the
// deployment orchestrator so a sweep never reactivates a workflow mid-deploy.
type Monitor struct {
	client      engine.Client
	persistence persistence.Persistence
	dispatcher  notification.Dispatcher
	bus         eventbus.EventPublisher
	locker      lock.Locker
	clock       deploy.Clock
	reauthURL   string // Deep link base for the re-authorization prompt
	concurrency int
	logger      *slog.Logger
}

// NewMonitor creates a recovery monitor. Concurrency caps parallel per-user
// sweeps in SweepAll; zero falls back to 16, sized to stay friendly to the
// external engine's API.
func NewMonitor(
	client engine.Client,
	persistence persistence.Persistence,
	dispatcher notification.Dispatcher,
	bus eventbus.EventPublisher,
	locker lock.Locker,
	reauthURL string,
	concurrency int,
	clock deploy.Clock,
	logger *slog.Logger,
) *Monitor {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	if clock == nil {
		clock = deploy.RealClock{}
	}

	return &Monitor{
		client:      client,
		persistence: persistence,
		dispatcher:  dispatcher,
		bus:         bus,
		locker:      locker,
		clock:       clock,
		reauthURL:   reauthURL,
		concurrency: concurrency,
		logger:      logger.With("module", "recovery_monitor"),
	}
}

// Sweep checks one user's deployment: engine status, a single reactivation
// attempt if inactive, and execution staleness. A reactivation failure is
// treated as a credential problem and routed to re-auth immediately; an
// inactive workflow after a verified deployment usually means a revoked
// credential, not a transient blip.
func (m *Monitor) Sweep(ctx context.Context, userID string) (*SweepResult, error) {
	logger := m.logger.With("user_id", userID)
	result := &SweepResult{UserID: userID, ActionsTaken: []string{}}

	acquired, err := m.locker.TryLock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire user lock: %w", err)
	}

	if !acquired {
		// A deploy is in flight; this user's sweep waits for the next pass.
		result.ActionsTaken = append(result.ActionsTaken, ActionSkippedLocked)

		return result, nil
	}

	defer func() {
		if err := m.locker.Unlock(context.WithoutCancel(ctx), userID); err != nil {
			logger.Warn("Failed to release user lock", "error", err)
		}
	}()

	deployment, err := m.persistence.DeploymentRepository().GetByUserID(ctx, userID)
	if err != nil {
		if persistence.IsDeploymentNotFound(err) {
			return result, nil
		}

		return nil, fmt.Errorf("failed to load deployment: %w", err)
	}

	result.WorkflowsChecked = 1

	switch deployment.Status {
	case models.DeploymentStatusFailed:
		// Operator escalation already happened; nothing for the sweep to do.
		return result, nil
	case models.DeploymentStatusNeedsReauth:
		result.ActionsTaken = append(result.ActionsTaken, m.checkReauthResolved(ctx, logger, deployment)...)

		return result, nil
	case models.DeploymentStatusDeploying, models.DeploymentStatusTesting:
		// Mid-deploy states are owned by the orchestrator.
		return result, nil
	}

	status, err := m.client.WorkflowStatus(ctx, deployment.ExternalWorkflowID)
	if err != nil {
		if engine.IsUnauthorized(err) {
			result.ActionsTaken = append(result.ActionsTaken, m.triggerReauth(ctx, logger, deployment, err))

			return result, nil
		}

		// Transient engine trouble is not a credential problem; log and let
		// the next sweep retry.
		logger.Warn("Engine status query failed", "error", err)
		result.ActionsTaken = append(result.ActionsTaken, ActionUnreachable)

		return result, nil
	}

	if !status.Active {
		result.ActionsTaken = append(result.ActionsTaken, m.reactivate(ctx, logger, deployment))

		return result, nil
	}

	result.ActionsTaken = append(result.ActionsTaken, m.checkStaleness(ctx, logger, deployment)...)

	return result, nil
}

// reactivate makes a single reactivation call. Failure routes to re-auth
// rather than retrying with backoff.
func (m *Monitor) reactivate(ctx context.Context, logger *slog.Logger, deployment *models.Deployment) string {
	logger.Info("Workflow inactive, attempting reactivation", "workflow_id", deployment.ExternalWorkflowID)

	err := m.client.ActivateWorkflow(ctx, deployment.ExternalWorkflowID)
	if err != nil {
		logger.Warn("Reactivation failed, routing to re-auth", "workflow_id", deployment.ExternalWorkflowID, "error", err)

		return m.triggerReauth(ctx, logger, deployment, err)
	}

	if err := m.persistence.DeploymentRepository().UpdateStatus(ctx, deployment.UserID, models.DeploymentStatusActive, ""); err != nil {
		logger.Error("Failed to record reactivation", "error", err)
	}

	m.publish(ctx, deployment.UserID, events.WorkflowReactivated{
		BaseEvent:  events.NewBaseEvent(events.WorkflowReactivatedEvent, deployment.UserID),
		WorkflowID: deployment.ExternalWorkflowID,
	})

	logger.Info("Workflow reactivated", "workflow_id", deployment.ExternalWorkflowID)

	return ActionReactivated
}

// checkStaleness looks for recent executions. Zero recent executions on an
// otherwise healthy deployment is logged, not alarmed: the mailbox may
// simply have no new mail.
func (m *Monitor) checkStaleness(ctx context.Context, logger *slog.Logger, deployment *models.Deployment) []string {
	samples, err := m.client.Executions(ctx, deployment.ExternalWorkflowID, executionSampleLimit)
	if err != nil {
		logger.Warn("Execution history query failed", "error", err)

		return []string{ActionUnreachable}
	}

	now := m.clock.Now()

	var recent, recentShort int

	for _, sample := range samples {
		if now.Sub(sample.StartedAt) <= healthLookback {
			recent++
		}

		if now.Sub(sample.StartedAt) <= firstExecutionLookback {
			recentShort++
		}
	}

	if recentShort == 0 {
		logger.Info("No executions in the first-execution window",
			"workflow_id", deployment.ExternalWorkflowID,
			"window", firstExecutionLookback,
			"recent_24h", recent,
		)

		return []string{ActionWaiting}
	}

	return nil
}

// checkReauthResolved resumes a paused deployment once the user has
// re-granted access.
func (m *Monitor) checkReauthResolved(ctx context.Context, logger *slog.Logger, deployment *models.Deployment) []string {
	user, err := m.persistence.UserRepository().GetByID(ctx, deployment.UserID)
	if err != nil {
		logger.Warn("Failed to load user for re-auth check", "error", err)

		return []string{ActionSkippedReauth}
	}

	if !user.HasValidCredential() {
		// Still waiting on the user; the debounced prompt already went out.
		return []string{ActionSkippedReauth}
	}

	logger.Info("Credential restored, reactivating workflow", "workflow_id", deployment.ExternalWorkflowID)

	return []string{m.reactivate(ctx, logger, deployment)}
}

func (m *Monitor) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.bus == nil {
		return
	}

	if err := m.bus.Publish(ctx, key, event); err != nil {
		m.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
