package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mailbridge/mailbridge/pkg/customizer"
	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/eventbus"
	"github.com/mailbridge/mailbridge/pkg/events"
	"github.com/mailbridge/mailbridge/pkg/lock"
	"github.com/mailbridge/mailbridge/pkg/models"
	"github.com/mailbridge/mailbridge/pkg/notification"
	"github.com/mailbridge/mailbridge/pkg/persistence"
)

const maxAttempts = 3

// backoffSchedule is the fixed, non-adaptive delay taken after each failed
// attempt while budget remains.
var backoffSchedule = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}

// Result is the outcome of a successful deployment.
type Result struct {
	WorkflowID  string                  `json:"workflow_id"`
	Status      models.DeploymentStatus `json:"status"`
	ExecutionID string                  `json:"execution_id,omitempty"` // Verification execution
	Attempts    int                     `json:"attempts"`
}

// Orchestrator drives create → verify → record with bounded retries. One
// orchestrator serves all users; per-user serialization comes from the
// locker shared with the recovery monitor.
type Orchestrator struct {
	client      engine.Client
	verifier    *Verifier
	persistence persistence.Persistence
	dispatcher  notification.Dispatcher
	bus         eventbus.EventPublisher
	locker      lock.Locker
	master      *models.WorkflowDefinition
	validate    *validator.Validate
	clock       Clock
	operatorTo  string
	logger      *slog.Logger
}

// NewOrchestrator creates a deployment orchestrator. A nil clock uses the
// real one; a nil master uses the built-in template.
func NewOrchestrator(
	client engine.Client,
	verifier *Verifier,
	persistence persistence.Persistence,
	dispatcher notification.Dispatcher,
	bus eventbus.EventPublisher,
	locker lock.Locker,
	master *models.WorkflowDefinition,
	operatorTo string,
	clock Clock,
	logger *slog.Logger,
) *Orchestrator {
	if clock == nil {
		clock = RealClock{}
	}

	if master == nil {
		master = customizer.DefaultMaster()
	}

	return &Orchestrator{
		client:      client,
		verifier:    verifier,
		persistence: persistence,
		dispatcher:  dispatcher,
		bus:         bus,
		locker:      locker,
		master:      master,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		clock:       clock,
		operatorTo:  operatorTo,
		logger:      logger.With("module", "deploy_orchestrator"),
	}
}

// Deploy provisions the user's workflow on the external engine: liveness
// probe, create, synthetic verification, then persist the Active record with
// the config snapshot that was actually deployed. Each failed create+verify
// unit is retried whole, up to three attempts with fixed 5s/15s backoffs.
// After exhaustion the deployment is marked Failed and an operator is paged.
func (o *Orchestrator) Deploy(ctx context.Context, userID string, config models.AutomationConfig) (*Result, error) {
	logger := o.logger.With("user_id", userID)

	if err := o.validate.Struct(config); err != nil {
		return nil, &Error{Op: "Deploy", UserID: userID, Err: fmt.Errorf("%w: %w", ErrConfigInvalid, err)}
	}

	if err := o.locker.Lock(ctx, userID); err != nil {
		return nil, &Error{Op: "Deploy", UserID: userID, Err: fmt.Errorf("failed to acquire user lock: %w", err)}
	}

	defer func() {
		if err := o.locker.Unlock(context.WithoutCancel(ctx), userID); err != nil {
			logger.Warn("Failed to release user lock", "error", err)
		}
	}()

	definition, err := customizer.Customize(o.master, userID, config)
	if err != nil {
		return nil, &Error{Op: "Deploy", UserID: userID, Err: fmt.Errorf("%w: %w", ErrConfigInvalid, err)}
	}

	startedAt := o.clock.Now()

	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		o.publish(ctx, userID, events.DeploymentStarted{
			BaseEvent: events.NewBaseEvent(events.DeploymentStartedEvent, userID),
			Attempt:   attempt,
		})

		result, err := o.attempt(ctx, logger, userID, definition, config, attempt)
		if err == nil {
			result.Attempts = attempt

			o.publish(ctx, userID, events.DeploymentSucceeded{
				BaseEvent:   events.NewBaseEvent(events.DeploymentSucceededEvent, userID),
				WorkflowID:  result.WorkflowID,
				ExecutionID: result.ExecutionID,
				Attempts:    attempt,
				Duration:    o.clock.Now().Sub(startedAt),
			})

			logger.Info("Deployment succeeded", "workflow_id", result.WorkflowID, "attempts", attempt)

			return result, nil
		}

		lastErr = err

		logger.Warn("Deployment attempt failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)

		if attempt < maxAttempts {
			delay := backoffSchedule[attempt-1]
			logger.Info("Backing off before retry", "delay", delay)

			if sleepErr := o.clock.Sleep(ctx, delay); sleepErr != nil {
				return nil, &Error{Op: "Deploy", UserID: userID, Attempts: attempt, Err: sleepErr}
			}
		}
	}

	return nil, o.escalate(ctx, logger, userID, config, lastErr)
}

// attempt runs one create+verify unit. Any step failure fails the whole
// unit; the next attempt starts again from the liveness probe.
func (o *Orchestrator) attempt(
	ctx context.Context,
	logger *slog.Logger,
	userID string,
	definition *models.WorkflowDefinition,
	config models.AutomationConfig,
	attemptNumber int,
) (*Result, error) {
	attempt := models.DeploymentAttempt{Number: attemptNumber, Timestamp: o.clock.Now()}

	if err := o.client.Ping(ctx); err != nil {
		logger.Warn("Engine liveness probe failed", "attempt", attempt.Number, "error", err)

		return nil, fmt.Errorf("engine liveness probe failed: %w", err)
	}

	created, err := o.client.CreateWorkflow(ctx, definition)
	if err != nil {
		return nil, fmt.Errorf("workflow creation failed: %w", err)
	}

	logger.Info("Workflow created on engine", "workflow_id", created.ID, "attempt", attempt.Number)

	now := o.clock.Now()
	record := &models.Deployment{
		ID:                 uuid.New().String(),
		UserID:             userID,
		ExternalWorkflowID: created.ID,
		Name:               definition.Name,
		Status:             models.DeploymentStatusTesting,
		ConfigSnapshot:     config,
		DeployedAt:         now,
		UpdatedAt:          now,
	}

	if err := o.persistence.DeploymentRepository().Upsert(ctx, record); err != nil {
		o.cleanup(ctx, logger, created.ID)

		return nil, fmt.Errorf("failed to persist deployment record: %w", err)
	}

	if err := o.client.ActivateWorkflow(ctx, created.ID); err != nil {
		o.cleanup(ctx, logger, created.ID)

		return nil, fmt.Errorf("workflow activation failed: %w", err)
	}

	verification, err := o.verifier.Verify(ctx, created.ID)
	if err != nil {
		o.cleanup(ctx, logger, created.ID)

		return nil, err
	}

	if err := o.persistence.DeploymentRepository().UpdateStatus(ctx, userID, models.DeploymentStatusActive, ""); err != nil {
		return nil, fmt.Errorf("failed to mark deployment active: %w", err)
	}

	return &Result{
		WorkflowID:  created.ID,
		Status:      models.DeploymentStatusActive,
		ExecutionID: verification.ExecutionID,
	}, nil
}

// cleanup removes a workflow whose create+verify unit failed partway, so a
// retry does not leave orphans on the engine. Best effort only.
func (o *Orchestrator) cleanup(ctx context.Context, logger *slog.Logger, workflowID string) {
	if err := o.client.DeleteWorkflow(context.WithoutCancel(ctx), workflowID); err != nil {
		logger.Warn("Failed to clean up workflow after failed attempt", "workflow_id", workflowID, "error", err)
	}
}

// escalate records the terminal failure and pages an operator. A silent
// failed automation is worse than a loud one.
func (o *Orchestrator) escalate(ctx context.Context, logger *slog.Logger, userID string, config models.AutomationConfig, lastErr error) error {
	now := o.clock.Now()

	record := &models.Deployment{
		ID:             uuid.New().String(),
		UserID:         userID,
		Name:           fmt.Sprintf("%s [%s]", o.master.Name, userID),
		Status:         models.DeploymentStatusFailed,
		ConfigSnapshot: config,
		LastError:      lastErr.Error(),
		DeployedAt:     now,
		UpdatedAt:      now,
	}

	if err := o.persistence.DeploymentRepository().Upsert(ctx, record); err != nil {
		logger.Error("Failed to persist failed deployment record", "error", err)
	}

	o.publish(ctx, userID, events.DeploymentFailed{
		BaseEvent: events.NewBaseEvent(events.DeploymentFailedEvent, userID),
		Attempts:  maxAttempts,
		Error:     lastErr.Error(),
	})

	if o.dispatcher != nil && o.operatorTo != "" {
		err := o.dispatcher.Send(ctx, notification.Message{
			To:       o.operatorTo,
			Template: notification.TemplateOperatorEscalation,
			Data: map[string]any{
				"user_id": userID,
				"error":   lastErr.Error(),
			},
		})
		if err != nil {
			logger.Error("Failed to dispatch operator escalation", "error", err)
		}
	}

	logger.Error("Deployment failed after all attempts", "attempts", maxAttempts, "error", lastErr)

	return &Error{
		Op:       "Deploy",
		UserID:   userID,
		Attempts: maxAttempts,
		Err:      fmt.Errorf("%w: %w", ErrExhaustedRetries, lastErr),
	}
}

func (o *Orchestrator) publish(ctx context.Context, key string, event eventbus.Event) {
	if o.bus == nil {
		return
	}

	if err := o.bus.Publish(ctx, key, event); err != nil {
		o.logger.Warn("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
