package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// APITimeout bounds each API call.
const APITimeout = 10 * time.Second

// Gateway defines the task operations exposed by the API. Front ends
// talk to this interface and never construct HTTP requests directly.
type Gateway interface {
	// ListTasks returns all of the caller's tasks in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns the server's canonical copy.
	CreateTask(ctx context.Context, input TaskInput) (Task, error)

	// UpdateTask applies a partial update and returns the updated task.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error
}

// HTTPGateway implements Gateway against a running taskify server.
// Tokens come from the TokenSource per request, so a refreshing source
// keeps long-lived gateways authenticated.
type HTTPGateway struct {
	baseURL string
	source  oauth2.TokenSource
	client  *http.Client
}

// NewGateway creates a Gateway for the server at baseURL authenticating
// with tokens from source.
func NewGateway(baseURL string, source oauth2.TokenSource) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  source,
		client:  &http.Client{Timeout: APITimeout},
	}
}

// NewGatewayWithClient creates a Gateway with a custom HTTP client
// (for testing).
func NewGatewayWithClient(baseURL string, source oauth2.TokenSource, httpClient *http.Client) *HTTPGateway {
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		source:  source,
		client:  httpClient,
	}
}

// ListTasks implements Gateway.
func (g *HTTPGateway) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := g.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// CreateTask implements Gateway.
func (g *HTTPGateway) CreateTask(ctx context.Context, input TaskInput) (Task, error) {
	var task Task
	if err := g.do(ctx, http.MethodPost, "/api/tasks", input, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// UpdateTask implements Gateway.
func (g *HTTPGateway) UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error) {
	var task Task
	if err := g.do(ctx, http.MethodPatch, "/api/tasks/"+id, patch, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// DeleteTask implements Gateway.
func (g *HTTPGateway) DeleteTask(ctx context.Context, id string) error {
	return g.do(ctx, http.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// do sends one authenticated JSON request. A nil body sends no payload;
// a nil out discards the response body.
func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := g.source.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
