package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"pkt.systems/flowdeck/schema"
	"pkt.systems/pslog"
)

const (
	// DefaultBaseURL is the workflow server used when none is configured.
	DefaultBaseURL = "http://localhost:8080/api"
	// DefaultTimeout bounds non-streaming requests.
	DefaultTimeout = 30 * time.Second

	requestIDHeader = "X-Request-Id"
	maxErrorBody    = 4096
)

// Client talks to the workflow server REST API.
type Client struct {
	baseURL    string
	timeout    time.Duration
	tracing    bool
	transport  http.RoundTripper
	httpClient *http.Client
	// streamClient has no overall timeout; debug runs last as long as the server streams.
	streamClient *http.Client
	log          pslog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds non-streaming requests.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithTracing wraps the transport with OpenTelemetry instrumentation.
func WithTracing(enabled bool) Option {
	return func(c *Client) {
		c.tracing = enabled
	}
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		if rt != nil {
			c.transport = rt
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger pslog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.log = logger
		}
	}
}

// New constructs a client for baseURL (DefaultBaseURL when empty).
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:   baseURL,
		timeout:   DefaultTimeout,
		transport: http.DefaultTransport,
		log:       pslog.Ctx(context.Background()),
	}
	for _, opt := range opts {
		opt(c)
	}
	rt := c.transport
	if c.tracing {
		rt = otelhttp.NewTransport(rt)
	}
	c.httpClient = &http.Client{Transport: rt, Timeout: c.timeout}
	c.streamClient = &http.Client{Transport: rt}
	return c
}

// BaseURL reports the configured server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListWorkflows returns every stored workflow.
func (c *Client) ListWorkflows(ctx context.Context) ([]schema.Workflow, error) {
	var workflows []schema.Workflow
	err := c.get(ctx, "/workflows", &workflows)
	return workflows, err
}

// GetWorkflow returns one workflow including its definition.
func (c *Client) GetWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Workflow, error) {
	var wf schema.Workflow
	err := c.get(ctx, workflowPath(id), &wf)
	return wf, err
}

// CreateWorkflow stores a new workflow.
func (c *Client) CreateWorkflow(ctx context.Context, req schema.CreateWorkflowRequest) (schema.Workflow, error) {
	var wf schema.Workflow
	err := c.post(ctx, "/workflows", req, &wf)
	return wf, err
}

// UpdateWorkflow replaces a workflow's name, description and definition.
func (c *Client) UpdateWorkflow(ctx context.Context, id schema.WorkflowID, req schema.UpdateWorkflowRequest) (schema.Workflow, error) {
	var wf schema.Workflow
	err := c.put(ctx, workflowPath(id), req, &wf)
	return wf, err
}

// DeleteWorkflow removes a workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id schema.WorkflowID) error {
	return c.delete(ctx, workflowPath(id))
}

// ImportWorkflow uploads an exported workflow document.
func (c *Client) ImportWorkflow(ctx context.Context, req schema.ImportWorkflowRequest) (schema.Workflow, error) {
	if len(bytes.TrimSpace(req.Document)) == 0 {
		return schema.Workflow{}, fmt.Errorf("%w: empty import document", schema.ErrInvalidRequest)
	}
	if !json.Valid(req.Document) {
		return schema.Workflow{}, fmt.Errorf("%w: import document is not valid JSON", schema.ErrInvalidRequest)
	}
	var wf schema.Workflow
	err := c.post(ctx, "/workflows/import", req.Document, &wf)
	return wf, err
}

// ExportWorkflow returns the portable document for a workflow.
func (c *Client) ExportWorkflow(ctx context.Context, id schema.WorkflowID) (json.RawMessage, error) {
	var doc json.RawMessage
	err := c.get(ctx, workflowPath(id)+"/export", &doc)
	return doc, err
}

// ExecuteWorkflow starts a normal run.
func (c *Client) ExecuteWorkflow(ctx context.Context, id schema.WorkflowID) (schema.Execution, error) {
	var exec schema.Execution
	err := c.post(ctx, workflowPath(id)+"/execute", nil, &exec)
	return exec, err
}

// ListExecutions returns the run history of a workflow.
func (c *Client) ListExecutions(ctx context.Context, id schema.WorkflowID) ([]schema.Execution, error) {
	var execs []schema.Execution
	err := c.get(ctx, workflowPath(id)+"/executions", &execs)
	return execs, err
}

// ExecutionLogs returns the per-node log of one run.
func (c *Client) ExecutionLogs(ctx context.Context, id schema.ExecutionID) ([]schema.ExecutionLog, error) {
	var logs []schema.ExecutionLog
	err := c.get(ctx, fmt.Sprintf("/executions/%d/logs", int64(id)), &logs)
	return logs, err
}

// OpenDebugRun starts a debug run and returns the raw streaming response.
// Status handling is left to the caller.
func (c *Client) OpenDebugRun(ctx context.Context, id schema.WorkflowID) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodPost, workflowPath(id)+"/execute/debug", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	c.log.Debug("api debug run open", "workflow", int64(id), "request_id", req.Header.Get(requestIDHeader))
	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", schema.ErrNetwork, err)
	}
	return resp, nil
}

func workflowPath(id schema.WorkflowID) string {
	return fmt.Sprintf("/workflows/%d", int64(id))
}

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.doJSON(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("api request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%w: %w", schema.ErrNetwork, err)
	}
	defer resp.Body.Close()
	c.log.Trace("api request done", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start), "request_id", req.Header.Get(requestIDHeader))

	if err := checkError(method, path, resp); err != nil {
		return err
	}
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %w", schema.ErrNetwork, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("%w: decode response: %w", schema.ErrNetwork, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		var data []byte
		switch v := body.(type) {
		case json.RawMessage:
			data = v
		default:
			var err error
			data, err = json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
		}
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())
	return req, nil
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func checkError(method, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	apiErr := &schema.APIError{Method: method, Path: path, StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil {
		apiErr.Message = strings.TrimSpace(er.Error)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(er.Message)
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *schema.APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
