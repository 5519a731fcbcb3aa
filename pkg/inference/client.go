// Package inference is the text-completion client. Prompts are truncated to
// the configured rune ceiling before submission; no streaming.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"minuteman/pkg/faults"
	"minuteman/pkg/telemetry"
)

// Client talks to the inference endpoint with a bounded timeout.
type Client struct {
	baseURL        string
	token          string
	model          string
	maxPromptRunes int
	httpc          *http.Client
}

// New builds a Client. timeout <= 0 selects 60s, maxPromptRunes <= 0 selects
// 48000.
func New(baseURL, token, model string, maxPromptRunes int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxPromptRunes <= 0 {
		maxPromptRunes = 48000
	}
	return &Client{
		baseURL:        baseURL,
		token:          token,
		model:          model,
		maxPromptRunes: maxPromptRunes,
		httpc:          &http.Client{Timeout: timeout},
	}
}

// Truncate caps s at the client's prompt ceiling, rune-safe.
func (c *Client) Truncate(s string) string {
	r := []rune(s)
	if len(r) <= c.maxPromptRunes {
		return s
	}
	return string(r[:c.maxPromptRunes])
}

// Complete submits prompt and returns the completion text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	defer telemetry.ObserveCall("inference", "complete", start)
	body, err := json.Marshal(struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}{Model: c.model, Prompt: c.Truncate(prompt)})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", faults.Transient("inference", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", faults.Transient("inference", fmt.Errorf("complete: http %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("complete: http %d", resp.StatusCode)
	}
	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("complete: invalid response: %w", err)
	}
	return out.Text, nil
}
