package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"minuteman/pkg/faults"
	"minuteman/pkg/logger"
)

func TestTruncateRuneSafe(t *testing.T) {
	c := New("http://x", "", "m", 5, 0)
	if got := c.Truncate("héllo wörld"); got != "héllo" {
		t.Fatalf("Truncate = %q", got)
	}
	if !utf8.ValidString(c.Truncate(strings.Repeat("é", 10))) {
		t.Fatalf("truncation split a rune")
	}
	if got := c.Truncate("ok"); got != "ok" {
		t.Fatalf("short string altered: %q", got)
	}
}

func TestCompleteTruncatesPrompt(t *testing.T) {
	logger.InitWithLevel("error")
	var got struct {
		Model  string `json:"model"`
		Prompt string `json:"prompt"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]string{"text": "summary"})
	}))
	defer srv.Close()

	c := New(srv.URL, "tok", "minutes-v1", 10, 0)
	out, err := c.Complete(context.Background(), strings.Repeat("x", 100))
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "summary" {
		t.Fatalf("unexpected completion %q", out)
	}
	if got.Model != "minutes-v1" || len(got.Prompt) != 10 {
		t.Fatalf("prompt not truncated for submission: model=%s len=%d", got.Model, len(got.Prompt))
	}
}

func TestCompleteOverloadIsTransient(t *testing.T) {
	logger.InitWithLevel("error")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(srv.URL, "", "m", 0, 0)
	if _, err := c.Complete(context.Background(), "p"); !faults.IsTransient(err) {
		t.Fatalf("429 not transient: %v", err)
	}
}
