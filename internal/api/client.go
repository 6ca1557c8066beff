package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipturbo/internal/content"
	"clipturbo/internal/services"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a client for the daemon bound at bind. bind may be a bare
// host:port or a full URL.
func NewClient(bind, token string) *Client {
	base := strings.TrimRight(strings.TrimSpace(bind), "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(token),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (*DaemonStatus, error) {
	var resp DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateWorkflow submits a new workflow and returns its identifier.
func (c *Client) CreateWorkflow(ctx context.Context, sub content.Submission) (string, error) {
	var resp CreateWorkflowResponse
	if err := c.do(ctx, http.MethodPost, "/api/workflows", sub, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// ListWorkflows returns the active workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]WorkflowSummary, error) {
	var resp WorkflowListResponse
	if err := c.do(ctx, http.MethodGet, "/api/workflows", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

// Workflow returns one workflow, live or archived.
func (c *Client) Workflow(ctx context.Context, id string) (*Workflow, error) {
	var resp Workflow
	if err := c.do(ctx, http.MethodGet, "/api/workflows/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelWorkflow requests cancellation and reports whether it took effect.
func (c *Client) CancelWorkflow(ctx context.Context, id string) (bool, error) {
	var resp CancelResponse
	if err := c.do(ctx, http.MethodDelete, "/api/workflows/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Job returns one render job.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	var resp Job
	if err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelJob cancels a render job.
func (c *Client) CancelJob(ctx context.Context, id string) (bool, error) {
	var resp CancelResponse
	if err := c.do(ctx, http.MethodDelete, "/api/jobs/"+url.PathEscape(id), nil, &resp); err != nil {
		return false, err
	}
	return resp.Cancelled, nil
}

// Queue returns the render queue snapshot.
func (c *Client) Queue(ctx context.Context) (*QueueResponse, error) {
	var resp QueueResponse
	if err := c.do(ctx, http.MethodGet, "/api/queue", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// History returns archived workflows, newest first. limit <= 0 uses the
// server default.
func (c *Client) History(ctx context.Context, limit int) ([]Workflow, error) {
	path := "/api/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workflows, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "api client", method+" "+path, "daemon unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(method+" "+path, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseError(op string, status int, data []byte) error {
	var body ErrorResponse
	message := strings.TrimSpace(string(data))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		message = body.Error
	}
	if message == "" {
		message = http.StatusText(status)
	}
	switch status {
	case http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "api client", op, message, nil)
	case http.StatusBadRequest:
		return services.Wrap(services.ErrValidation, "api client", op, message, nil)
	case http.StatusUnauthorized:
		return services.Wrap(services.ErrConfiguration, "api client", op, "unauthorized: check api.token", nil)
	default:
		return fmt.Errorf("%s: http %d: %s", op, status, message)
	}
}
