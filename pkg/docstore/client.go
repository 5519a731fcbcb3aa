// Package docstore is the client for the path-addressed, version-controlled
// document store. Writes use optimistic concurrency: read the current
// revision, write with it as a precondition, and surface a typed conflict
// when a concurrent writer got there first.
package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"minuteman/pkg/faults"
	"minuteman/pkg/telemetry"
)

// Doc is one read result.
type Doc struct {
	Content  string `json:"content"`
	Revision string `json:"revision"`
}

// Client talks to the store over HTTP with a bounded timeout.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New builds a Client. timeout <= 0 selects 15s.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{baseURL: baseURL, token: token, httpc: &http.Client{Timeout: timeout}}
}

// Read returns the document at path. A missing document is reported as
// faults.ErrNotFound, which callers treat as a valid "create" precondition.
func (c *Client) Read(ctx context.Context, path string) (*Doc, error) {
	start := time.Now()
	defer telemetry.ObserveCall("docstore", "read", start)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/docs/"+url.PathEscape(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, faults.Transient("docstore", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, faults.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, faults.Transient("docstore", fmt.Errorf("read %s: http %d", path, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("read %s: http %d", path, resp.StatusCode)
	}
	var d Doc
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&d); err != nil {
		return nil, fmt.Errorf("read %s: invalid response: %w", path, err)
	}
	return &d, nil
}

// Write stores content at path. expectedRevision empty means "create: fail if
// the document exists"; otherwise the write succeeds only when the store's
// current revision matches. Returns the new revision.
func (c *Client) Write(ctx context.Context, path, content, expectedRevision string) (string, error) {
	start := time.Now()
	defer telemetry.ObserveCall("docstore", "write", start)
	body, err := json.Marshal(struct {
		Content          string `json:"content"`
		ExpectedRevision string `json:"expected_revision,omitempty"`
	}{Content: content, ExpectedRevision: expectedRevision})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/v1/docs/"+url.PathEscape(path), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", faults.Transient("docstore", err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusConflict:
		var cur struct {
			Revision string `json:"revision"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&cur)
		return "", &faults.ConflictError{Path: path, ExpectedRevision: expectedRevision, CurrentRevision: cur.Revision}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", faults.Transient("docstore", fmt.Errorf("write %s: http %d", path, resp.StatusCode))
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return "", fmt.Errorf("write %s: http %d", path, resp.StatusCode)
	}
	var out struct {
		Revision string `json:"revision"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("write %s: invalid response: %w", path, err)
	}
	return out.Revision, nil
}
