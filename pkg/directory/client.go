// Package directory is the client for the external project/task directory.
// Full-scan listings are cached for a bounded interval because the selection
// prompt needs them on every shared file.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"minuteman/pkg/faults"
	"minuteman/pkg/models"
	"minuteman/pkg/telemetry"
)

// Client talks to the directory service over HTTP with a bounded timeout.
type Client struct {
	baseURL  string
	token    string
	httpc    *http.Client
	cacheTTL time.Duration
	now      func() time.Time

	mu        sync.Mutex
	projects  []models.Project
	fetchedAt time.Time
}

// New builds a Client. timeout <= 0 selects 10s, cacheTTL <= 0 selects 5m.
func New(baseURL, token string, timeout, cacheTTL time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Client{
		baseURL:  baseURL,
		token:    token,
		httpc:    &http.Client{Timeout: timeout},
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	start := time.Now()
	defer telemetry.ObserveCall("directory", op, start)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return faults.Transient("directory", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return faults.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return faults.Transient("directory", fmt.Errorf("%s: http %d", op, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s: http %d", op, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(out)
}

// GetProject fetches one project record by id.
func (c *Client) GetProject(ctx context.Context, id string) (*models.Project, error) {
	var p models.Project
	if err := c.get(ctx, "get_project", "/v1/projects/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns all projects, served from the bounded-interval cache
// when fresh.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	c.mu.Lock()
	if c.projects != nil && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		out := append([]models.Project(nil), c.projects...)
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	var resp struct {
		Projects []models.Project `json:"projects"`
	}
	if err := c.get(ctx, "list_projects", "/v1/projects", &resp); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.projects = resp.Projects
	c.fetchedAt = c.now()
	c.mu.Unlock()
	return append([]models.Project(nil), resp.Projects...), nil
}

// CreateTask pushes a derived task record into the directory.
func (c *Client) CreateTask(ctx context.Context, task models.Task) error {
	start := time.Now()
	defer telemetry.ObserveCall("directory", "create_task", start)
	b, err := json.Marshal(task)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/tasks", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return faults.Transient("directory", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return faults.Transient("directory", fmt.Errorf("create_task: http %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return fmt.Errorf("create_task: http %d", resp.StatusCode)
	}
	return nil
}
