package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"minuteman/pkg/logger"
)

const testSecret = "sssh"

func signedRequest(t *testing.T, path string, body string, contentType string) *http.Request {
	t.Helper()
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "v0:%s:", ts)
	mac.Write([]byte(body))
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func newTestRouter(t *testing.T) (*mux.Router, *int) {
	t.Helper()
	logger.InitWithLevel("error")
	dispatched := 0
	r := mux.NewRouter()
	RegisterWebhooks(r, Deps{
		SigningSecret: testSecret,
		// count dispatches without running the pipeline
		Background: func(fn func(ctx context.Context)) { dispatched++ },
	})
	return r, &dispatched
}

func TestURLVerificationEchoesChallenge(t *testing.T) {
	r, _ := newTestRouter(t)
	body := `{"type":"url_verification","challenge":"abc123"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/slack/events", body, "application/json"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"challenge":"abc123"`) {
		t.Fatalf("challenge not echoed: %s", rec.Body.String())
	}
}

func TestBadSignatureRejected(t *testing.T) {
	r, dispatched := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(`{}`))
	req.Header.Set("X-Slack-Request-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if *dispatched != 0 {
		t.Fatalf("unverified request dispatched")
	}
}

func TestFileSharedAcksAndDispatches(t *testing.T) {
	r, dispatched := newTestRouter(t)
	body := `{"type":"event_callback","event_id":"Ev1","event":{"type":"file_shared","file_id":"F1","channel_id":"C1","event_ts":"55.0"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/slack/events", body, "application/json"))

	if rec.Code != http.StatusOK {
		t.Fatalf("ack status %d", rec.Code)
	}
	if *dispatched != 1 {
		t.Fatalf("file_shared not dispatched: %d", *dispatched)
	}
}

func TestNonFileEventAckedWithoutDispatch(t *testing.T) {
	r, dispatched := newTestRouter(t)
	body := `{"type":"event_callback","event_id":"Ev2","event":{"type":"message"}}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/slack/events", body, "application/json"))

	if rec.Code != http.StatusOK {
		t.Fatalf("ack status %d", rec.Code)
	}
	if *dispatched != 0 {
		t.Fatalf("non-file event dispatched")
	}
}

func TestInteractionDispatch(t *testing.T) {
	r, dispatched := newTestRouter(t)
	payload := `{"type":"block_actions","user":{"id":"U1"},"actions":[{"action_id":"mm_cancel","action_ts":"1.1","value":"v"}]}`
	body := "payload=" + url.QueryEscape(payload)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/slack/interactions", body, "application/x-www-form-urlencoded"))

	if rec.Code != http.StatusOK {
		t.Fatalf("ack status %d", rec.Code)
	}
	if *dispatched != 1 {
		t.Fatalf("interaction not dispatched: %d", *dispatched)
	}
}

func TestInteractionMissingPayloadRejected(t *testing.T) {
	r, dispatched := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, signedRequest(t, "/slack/interactions", "other=1", "application/x-www-form-urlencoded"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if *dispatched != 0 {
		t.Fatalf("malformed interaction dispatched")
	}
}
