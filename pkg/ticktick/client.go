// Package ticktick is a thin REST client for the TickTick Open API. All
// authentication flows through a TokenSource; the client itself holds no
// credentials.
package ticktick

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.ticktick.com/open/v1"

const userAgent = "ticktick-cli/0.1.0"

// TokenSource supplies a currently valid bearer token for each request.
// The oauth.Manager satisfies it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// APIError is a non-2xx response from the Open API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("ticktick api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ticktick api error: status %d: %s", e.StatusCode, body)
}

// Client calls the TickTick Open API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client drawing bearer tokens from tokens.
func NewClient(tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		tokens:     tokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// inboxData is the inbox endpoint's payload; only the tasks are used.
type inboxData struct {
	Tasks []Task `json:"tasks"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}

	return nil
}

// Projects lists all projects.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.do(ctx, http.MethodGet, "/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// Project fetches a single project.
func (c *Client) Project(ctx context.Context, projectID string) (*Project, error) {
	var project Project
	if err := c.do(ctx, http.MethodGet, "/project/"+projectID, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ProjectData fetches a project with its tasks and columns.
func (c *Client) ProjectData(ctx context.Context, projectID string) (*ProjectData, error) {
	var data ProjectData
	if err := c.do(ctx, http.MethodGet, "/project/"+projectID+"/data", nil, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

// InboxTasks lists the tasks in the inbox pseudo-project.
func (c *Client) InboxTasks(ctx context.Context) ([]Task, error) {
	var data inboxData
	if err := c.do(ctx, http.MethodGet, "/project/inbox/data", nil, &data); err != nil {
		return nil, err
	}
	return data.Tasks, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, project *Project) (*Project, error) {
	var created Project
	if err := c.do(ctx, http.MethodPost, "/project", project, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateProject updates a project.
func (c *Client) UpdateProject(ctx context.Context, projectID string, project *Project) (*Project, error) {
	var updated Project
	if err := c.do(ctx, http.MethodPost, "/project/"+projectID, project, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteProject deletes a project.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, "/project/"+projectID, nil, nil)
}

// Task fetches a single task.
func (c *Client) Task(ctx context.Context, projectID, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/project/"+projectID+"/task/"+taskID, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, task *Task) (*Task, error) {
	var created Task
	if err := c.do(ctx, http.MethodPost, "/task", task, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTask updates a task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, task *Task) (*Task, error) {
	var updated Task
	if err := c.do(ctx, http.MethodPost, "/task/"+taskID, task, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// CompleteTask marks a task completed.
func (c *Client) CompleteTask(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, http.MethodPost, "/project/"+projectID+"/task/"+taskID+"/complete", nil, nil)
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.do(ctx, http.MethodDelete, "/project/"+projectID+"/task/"+taskID, nil, nil)
}
