package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mailbridge/mailbridge/pkg/engine"
	"github.com/mailbridge/mailbridge/pkg/models"
)

const (
	verifyPollInterval = 2 * time.Second
	verifyPollBudget   = 10 // Polls before giving up on a still-running execution
)

// VerifyResult is the outcome of one synthetic test execution.
type VerifyResult struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"execution_id,omitempty"`
	RawStatus   string `json:"raw_status,omitempty"` // Engine's status string, for diagnostics only
}

// Verifier proves a freshly created workflow actually executes. Creation can
// succeed structurally while the generated logic is unexecutable, so
// creation success alone is not trusted.
type Verifier struct {
	client engine.Client
	clock  Clock
	logger *slog.Logger
}

// NewVerifier creates a verification runner.
func NewVerifier(client engine.Client, clock Clock, logger *slog.Logger) *Verifier {
	if clock == nil {
		clock = RealClock{}
	}

	return &Verifier{
		client: client,
		clock:  clock,
		logger: logger.With("module", "verifier"),
	}
}

// syntheticEmail is the representative payload submitted through the
// workflow's execution entry point.
func syntheticEmail() map[string]any {
	return map[string]any{
		"subject":   "Request for a price quote",
		"body":      "Hi, I'm interested in your services and would like more information about cost.",
		"from":      "verification@mailbridge.test",
		"synthetic": true,
	}
}

// Verify submits a synthetic email through the workflow and reads back the
// execution outcome. Success requires an engine outcome of success or
// completed; anything else, including transport errors, is a verification
// failure.
func (v *Verifier) Verify(ctx context.Context, workflowID string) (*VerifyResult, error) {
	logger := v.logger.With("workflow_id", workflowID)

	started, err := v.client.ExecuteWorkflow(ctx, workflowID, syntheticEmail())
	if err != nil {
		return &VerifyResult{Success: false}, fmt.Errorf("%w: %w", ErrVerificationFailed, err)
	}

	logger = logger.With("execution_id", started.ExecutionID)
	logger.Info("Synthetic verification execution started", "status", started.Status)

	outcome := models.ExecutionOutcome(started.Status)

	for poll := 0; outcome == models.ExecutionOutcomeRunning || outcome == ""; poll++ {
		if poll >= verifyPollBudget {
			return &VerifyResult{
					Success:     false,
					ExecutionID: started.ExecutionID,
					RawStatus:   string(outcome),
				}, fmt.Errorf("%w: execution %s still running after %d polls",
					ErrVerificationFailed, started.ExecutionID, verifyPollBudget)
		}

		if err := v.clock.Sleep(ctx, verifyPollInterval); err != nil {
			return &VerifyResult{Success: false, ExecutionID: started.ExecutionID}, err
		}

		sample, err := v.client.Execution(ctx, started.ExecutionID)
		if err != nil {
			return &VerifyResult{Success: false, ExecutionID: started.ExecutionID},
				fmt.Errorf("%w: %w", ErrVerificationFailed, err)
		}

		outcome = sample.Outcome
	}

	result := &VerifyResult{
		Success:     outcome.Succeeded(),
		ExecutionID: started.ExecutionID,
		RawStatus:   string(outcome),
	}

	if !result.Success {
		return result, fmt.Errorf("%w: execution %s finished with outcome %q",
			ErrVerificationFailed, started.ExecutionID, outcome)
	}

	logger.Info("Synthetic verification succeeded")

	return result, nil
}
