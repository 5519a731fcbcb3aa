// Package slack talks to the messaging platform: outbound Web API calls and
// inbound webhook verification/parsing. All calls carry bounded timeouts and
// go through a shared rate limiter; retries are left to the orchestrator.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"minuteman/pkg/faults"
	"minuteman/pkg/telemetry"
)

// Client is the outbound Web API client.
type Client struct {
	apiBase     string
	botToken    string
	httpc       *http.Client
	limiter     *rate.Limiter
	maxDownload int64
}

// Options configures a Client.
type Options struct {
	APIBase     string
	BotToken    string
	Timeout     time.Duration
	RPS         float64
	Burst       int
	MaxDownload int64
}

// NewClient builds a Client with defaults applied.
func NewClient(opts Options) *Client {
	if opts.APIBase == "" {
		opts.APIBase = "https://slack.com/api"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.MaxDownload <= 0 {
		opts.MaxDownload = 10 << 20
	}
	return &Client{
		apiBase:     opts.APIBase,
		botToken:    opts.BotToken,
		httpc:       &http.Client{Timeout: opts.Timeout},
		limiter:     rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		maxDownload: opts.MaxDownload,
	}
}

// FileInfo is the platform's file record, reduced to what the pipeline needs.
type FileInfo struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	User       string   `json:"user"`
	URLPrivate string   `json:"url_private"`
	Channels   []string `json:"channels"`
	Timestamp  int64    `json:"timestamp"`
}

type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
	TS    string `json:"ts"`
}

func (c *Client) call(ctx context.Context, op, method string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return faults.Transient("slack", err)
	}
	start := time.Now()
	defer telemetry.ObserveCall("slack", op, start)

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+"/"+op, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return faults.Transient("slack", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return faults.Transient("slack", fmt.Errorf("%s: http %d", op, resp.StatusCode))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return faults.Transient("slack", err)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("%s: invalid response: %w", op, err)
		}
	}
	return nil
}

// PostMessage posts text (and optional blocks) into a channel, threaded under
// threadTS when non-empty. Returns the posted message's ts.
func (c *Client) PostMessage(ctx context.Context, channel, threadTS, text string, blocks []Block) (string, error) {
	payload := map[string]any{"channel": channel, "text": text}
	if threadTS != "" {
		payload["thread_ts"] = threadTS
	}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}
	var env apiEnvelope
	if err := c.call(ctx, "chat.postMessage", http.MethodPost, payload, &env); err != nil {
		return "", err
	}
	if !env.OK {
		return "", fmt.Errorf("chat.postMessage: %s", env.Error)
	}
	return env.TS, nil
}

// UpdateMessage rewrites a previously posted message in place. Used to clear
// selection prompts once a choice has been made.
func (c *Client) UpdateMessage(ctx context.Context, channel, ts, text string, blocks []Block) error {
	payload := map[string]any{"channel": channel, "ts": ts, "text": text}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}
	var env apiEnvelope
	if err := c.call(ctx, "chat.update", http.MethodPost, payload, &env); err != nil {
		return err
	}
	if !env.OK {
		return fmt.Errorf("chat.update: %s", env.Error)
	}
	return nil
}

// GetFileInfo fetches the file record for id. This is the source of truth the
// cache-miss path re-acquires from.
func (c *Client) GetFileInfo(ctx context.Context, fileID string) (*FileInfo, error) {
	var env struct {
		OK    bool      `json:"ok"`
		Error string    `json:"error"`
		File  *FileInfo `json:"file"`
	}
	if err := c.call(ctx, "files.info?file="+fileID, http.MethodGet, nil, &env); err != nil {
		return nil, err
	}
	if !env.OK || env.File == nil {
		if env.Error == "file_not_found" || env.Error == "file_deleted" {
			return nil, faults.ErrNotFound
		}
		return nil, fmt.Errorf("files.info: %s", env.Error)
	}
	return env.File, nil
}

// DownloadFile fetches the file's private URL, capped at the configured size
// ceiling.
func (c *Client) DownloadFile(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	defer telemetry.ObserveCall("slack", "download", start)
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, faults.Transient("slack", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.botToken)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, faults.Transient("slack", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, faults.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, faults.Transient("slack", fmt.Errorf("download: http %d", resp.StatusCode))
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload))
	if err != nil {
		return nil, faults.Transient("slack", err)
	}
	return b, nil
}
