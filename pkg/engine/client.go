package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mailbridge/mailbridge/pkg/models"
)

const (
	defaultTimeout = 30 * time.Second
	apiKeyHeader   = "X-Engine-Api-Key"
)

// Client defines the operations the orchestrator and monitor need from the
// external workflow engine. Implementations must be safe for concurrent use.
type Client interface {
	Ping(ctx context.Context) error
	CreateWorkflow(ctx context.Context, definition *models.WorkflowDefinition) (*CreatedWorkflow, error)
	ActivateWorkflow(ctx context.Context, workflowID string) error
	DeactivateWorkflow(ctx context.Context, workflowID string) error
	DeleteWorkflow(ctx context.Context, workflowID string) error
	WorkflowStatus(ctx context.Context, workflowID string) (*WorkflowStatus, error)
	ExecuteWorkflow(ctx context.Context, workflowID string, payload map[string]any) (*StartedExecution, error)
	Execution(ctx context.Context, executionID string) (*models.ExecutionSample, error)
	Executions(ctx context.Context, workflowID string, limit int) ([]models.ExecutionSample, error)
}

// HTTPClient talks to the engine's REST API with a static API key.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates an engine client. A zero timeout falls back to the
// 30s default; retry policy belongs to the caller, not the client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &HTTPClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("module", "engine_client"),
	}
}

// Ping performs a liveness probe by listing workflows.
func (c *HTTPClient) Ping(ctx context.Context) error {
	var ignored envelope[json.RawMessage]

	return c.do(ctx, "Ping", http.MethodGet, "/workflows", nil, &ignored)
}

// CreateWorkflow submits a workflow definition to the engine.
func (c *HTTPClient) CreateWorkflow(ctx context.Context, definition *models.WorkflowDefinition) (*CreatedWorkflow, error) {
	var resp envelope[CreatedWorkflow]

	err := c.do(ctx, "CreateWorkflow", http.MethodPost, "/workflows", definition, &resp)
	if err != nil {
		return nil, err
	}

	return &resp.Data, nil
}

// ActivateWorkflow turns a deployed workflow on.
func (c *HTTPClient) ActivateWorkflow(ctx context.Context, workflowID string) error {
	var ignored envelope[json.RawMessage]

	return c.do(ctx, "ActivateWorkflow", http.MethodPost, "/workflows/"+url.PathEscape(workflowID)+"/activate", nil, &ignored)
}

// DeactivateWorkflow turns a deployed workflow off.
func (c *HTTPClient) DeactivateWorkflow(ctx context.Context, workflowID string) error {
	var ignored envelope[json.RawMessage]

	return c.do(ctx, "DeactivateWorkflow", http.MethodPost, "/workflows/"+url.PathEscape(workflowID)+"/deactivate", nil, &ignored)
}

// DeleteWorkflow removes a workflow from the engine.
func (c *HTTPClient) DeleteWorkflow(ctx context.Context, workflowID string) error {
	var ignored envelope[json.RawMessage]

	return c.do(ctx, "DeleteWorkflow", http.MethodDelete, "/workflows/"+url.PathEscape(workflowID), nil, &ignored)
}

// WorkflowStatus reads the engine's view of one workflow.
func (c *HTTPClient) WorkflowStatus(ctx context.Context, workflowID string) (*WorkflowStatus, error) {
	var resp envelope[WorkflowStatus]

	err := c.do(ctx, "WorkflowStatus", http.MethodGet, "/workflows/"+url.PathEscape(workflowID), nil, &resp)
	if err != nil {
		return nil, err
	}

	return &resp.Data, nil
}

// ExecuteWorkflow submits a payload through the workflow's execution entry point.
func (c *HTTPClient) ExecuteWorkflow(ctx context.Context, workflowID string, payload map[string]any) (*StartedExecution, error) {
	var resp envelope[StartedExecution]

	err := c.do(ctx, "ExecuteWorkflow", http.MethodPost, "/workflows/"+url.PathEscape(workflowID)+"/execute", payload, &resp)
	if err != nil {
		return nil, err
	}

	return &resp.Data, nil
}

// Execution reads a single execution's status.
func (c *HTTPClient) Execution(ctx context.Context, executionID string) (*models.ExecutionSample, error) {
	var resp envelope[executionPayload]

	err := c.do(ctx, "Execution", http.MethodGet, "/executions/"+url.PathEscape(executionID), nil, &resp)
	if err != nil {
		if IsNotFound(err) {
			return nil, &APIError{Op: "Execution", StatusCode: 404, Err: ErrExecutionNotFound}
		}

		return nil, err
	}

	sample := resp.Data.toSample()

	return &sample, nil
}

// Executions lists recent executions for a workflow, newest first.
func (c *HTTPClient) Executions(ctx context.Context, workflowID string, limit int) ([]models.ExecutionSample, error) {
	var resp envelope[[]executionPayload]

	query := url.Values{}
	query.Set("workflowId", workflowID)

	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	err := c.do(ctx, "Executions", http.MethodGet, "/executions?"+query.Encode(), nil, &resp)
	if err != nil {
		return nil, err
	}

	samples := make([]models.ExecutionSample, 0, len(resp.Data))
	for _, payload := range resp.Data {
		samples = append(samples, payload.toSample())
	}

	return samples, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request body: %w", op, err)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts and connection failures are retryable by policy.
		return &APIError{Op: op, Err: fmt.Errorf("%w: %w", ErrEngineUnavailable, err)}
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("Failed to close engine response body", "op", op, "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %w", ErrEngineUnavailable, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus(op, resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}

	return nil
}
