package monitor

import (
	"context"
	"fmt"
	"sync"
)

// BatchResult aggregates a batch sweep over all users with deployments.
type BatchResult struct {
	UsersSwept       int `json:"users_swept"`
	WorkflowsChecked int `json:"workflows_checked"`
	ActionsTaken     int `json:"actions_taken"`
	Errors           int `json:"errors"`
}

// SweepAll sweeps every user with a deployment, fanning out across a bounded
// worker pool. Users are independent; only the per-user lock serializes a
// sweep against a concurrent deploy of the same user.
func (m *Monitor) SweepAll(ctx context.Context) (*BatchResult, error) {
	userIDs, err := m.persistence.DeploymentRepository().UserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployment owners: %w", err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		batch  BatchResult
		tokens = make(chan struct{}, m.concurrency)
	)

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			wg.Wait()

			return &batch, ctx.Err()
		case tokens <- struct{}{}:
		}

		wg.Add(1)

		go func(userID string) {
			defer wg.Done()
			defer func() { <-tokens }()

			result, err := m.Sweep(ctx, userID)

			mu.Lock()
			defer mu.Unlock()

			batch.UsersSwept++

			if err != nil {
				m.logger.Error("Sweep failed", "user_id", userID, "error", err)

				batch.Errors++

				return
			}

			batch.WorkflowsChecked += result.WorkflowsChecked
			batch.ActionsTaken += len(result.ActionsTaken)
		}(userID)
	}

	wg.Wait()

	m.logger.Info("Batch sweep completed",
		"users_swept", batch.UsersSwept,
		"workflows_checked", batch.WorkflowsChecked,
		"actions_taken", batch.ActionsTaken,
		"errors", batch.Errors,
	)

	return &batch, nil
}
