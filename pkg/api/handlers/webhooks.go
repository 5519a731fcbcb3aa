// Package handlers holds the webhook HTTP handlers. They verify, acknowledge
// fast, and hand the work to the orchestrator on a bounded background
// context; the platform retries on slow acks, and retries are exactly what
// the dedup gate absorbs.
package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"minuteman/pkg/logger"
	"minuteman/pkg/slack"
	"minuteman/pkg/workflow"
)

// maxWebhookBody bounds inbound webhook payloads.
const maxWebhookBody = 1 << 20

// processTimeout bounds one background pipeline run; every external call
// inside carries its own tighter timeout.
const processTimeout = 120 * time.Second

// Deps wires the webhook handlers.
type Deps struct {
	SigningSecret string
	Orchestrator  *workflow.Orchestrator
	// Background runs fn detached from the request. Tests may replace it to
	// run synchronously.
	Background func(fn func(ctx context.Context))
}

// RegisterWebhooks registers the platform webhook endpoints.
func RegisterWebhooks(r *mux.Router, deps Deps) {
	if deps.Background == nil {
		deps.Background = func(fn func(ctx context.Context)) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
				defer cancel()
				fn(ctx)
			}()
		}
	}
	r.HandleFunc("/slack/events", deps.eventsHandler).Methods(http.MethodPost)
	r.HandleFunc("/slack/interactions", deps.interactionsHandler).Methods(http.MethodPost)
}

// readVerified reads the body and checks the platform signature.
func (d *Deps) readVerified(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, `{"error":"read failed"}`, http.StatusBadRequest)
		return nil, false
	}
	ts := r.Header.Get("X-Slack-Request-Timestamp")
	sig := r.Header.Get("X-Slack-Signature")
	if err := slack.VerifySignature(d.SigningSecret, ts, sig, body); err != nil {
		logger.Warn("webhook_signature_rejected", "path", r.URL.Path, "error", err)
		http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

// eventsHandler receives event callbacks (file_shared, URL verification).
func (d Deps) eventsHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := d.readVerified(w, r)
	if !ok {
		return
	}
	cb, err := slack.ParseEventCallback(body)
	if err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch cb.Type {
	case "url_verification":
		_, _ = w.Write([]byte(`{"challenge":"` + cb.Challenge + `"}`))
		return
	case "event_callback":
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
		if cb.Event.Type != "file_shared" {
			return
		}
		d.Background(func(ctx context.Context) {
			if err := d.Orchestrator.HandleFileShared(ctx, cb); err != nil {
				logger.Warn("file_shared_processing_failed", "event", cb.EventID, "error", err)
			}
		})
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}
}

// interactionsHandler receives block-action payloads (form-encoded `payload`).
func (d Deps) interactionsHandler(w http.ResponseWriter, r *http.Request) {
	body, ok := d.readVerified(w, r)
	if !ok {
		return
	}
	vals, err := parseForm(body)
	if err != nil || vals.Get("payload") == "" {
		http.Error(w, `{"error":"missing payload"}`, http.StatusBadRequest)
		return
	}
	in, err := slack.ParseInteraction([]byte(vals.Get("payload")))
	if err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{}`))
	d.Background(func(ctx context.Context) {
		if err := d.Orchestrator.HandleInteraction(ctx, in); err != nil {
			logger.Warn("interaction_processing_failed", "user", in.User.ID, "error", err)
		}
	})
}
