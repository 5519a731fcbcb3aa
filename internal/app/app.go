// Package app wires the service components and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"minuteman/internal/retention"
	"minuteman/pkg/api"
	"minuteman/pkg/api/handlers"
	"minuteman/pkg/banner"
	"minuteman/pkg/cache"
	"minuteman/pkg/commit"
	"minuteman/pkg/config"
	"minuteman/pkg/dedup"
	"minuteman/pkg/directory"
	"minuteman/pkg/docstore"
	"minuteman/pkg/ids"
	"minuteman/pkg/inference"
	"minuteman/pkg/logger"
	"minuteman/pkg/slack"
	"minuteman/pkg/store"
	"minuteman/pkg/workflow"
)

// App encapsulates the server components and lifecycle.
type App struct {
	cfg     *config.Config
	version string
	addr    string

	artifacts    *cache.ArtifactCache
	orchestrator *workflow.Orchestrator
	srv          *http.Server
}

// New validates config and initializes resources that do not require a
// running context. Call Run to start the HTTP server and block until
// shutdown.
func New(cfg *config.Config, version, addr string) (*App, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if err := store.Open(cfg.Server.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", cfg.Server.DBPath, err)
	}

	msg := slack.NewClient(slack.Options{
		APIBase:     cfg.Slack.APIBase,
		BotToken:    cfg.Slack.BotToken,
		Timeout:     cfg.Slack.Timeout.Or(10 * time.Second),
		RPS:         cfg.Slack.RateLimit.RPS,
		Burst:       cfg.Slack.RateLimit.Burst,
		MaxDownload: cfg.Slack.MaxDownload.Int64(),
	})
	docs := docstore.New(cfg.DocStore.BaseURL, cfg.DocStore.Token, cfg.DocStore.Timeout.Duration())
	dir := directory.New(cfg.Directory.BaseURL, cfg.Directory.Token, cfg.Directory.Timeout.Duration(), cfg.Directory.CacheTTL.Duration())
	infer := inference.New(cfg.Inference.BaseURL, cfg.Inference.Token, cfg.Inference.Model, cfg.Inference.MaxPromptRunes, cfg.Inference.Timeout.Duration())

	issuer := ids.NewIssuer(cfg.Tasks.Prefix, cfg.Tasks.SeqPad)
	committer := commit.New(docs, dir, issuer, cfg.Commit.PathPrefix)
	artifacts := cache.New(0, nil)
	gate := dedup.NewGate(dedup.Options{
		Retention:      cfg.Dedup.Retention.Duration(),
		Cooldown:       cfg.Dedup.DegradedCooldown.Duration(),
		LocalRetention: cfg.Dedup.DegradedRetention.Duration(),
	})

	orch := workflow.New(msg, dir, committer, artifacts, gate, infer)

	return &App{
		cfg:          cfg,
		version:      version,
		addr:         addr,
		artifacts:    artifacts,
		orchestrator: orch,
	}, nil
}

// Run starts the retention sweeper and the HTTP server, blocking until ctx is
// cancelled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	stopSweep, err := retention.Start(ctx, a.cfg.Dedup.SweepCron, a.artifacts)
	if err != nil {
		return err
	}
	defer stopSweep()

	banner.Print(a.version, a.addr, a.cfg.Server.DBPath, "config+env")

	router := api.Router(handlers.Deps{
		SigningSecret: a.cfg.Slack.SigningSecret,
		Orchestrator:  a.orchestrator,
	})
	a.srv = &http.Server{
		Addr:              a.addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		var serr error
		if a.cfg.Server.TLS.CertFile != "" && a.cfg.Server.TLS.KeyFile != "" {
			serr = a.srv.ListenAndServeTLS(a.cfg.Server.TLS.CertFile, a.cfg.Server.TLS.KeyFile)
		} else {
			serr = a.srv.ListenAndServe()
		}
		if serr != nil && serr != http.ErrServerClosed {
			errCh <- serr
		}
	}()
	logger.Info("http_listening", "addr", a.addr)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = a.srv.Shutdown(shutCtx)
		if err := store.Close(); err != nil {
			logger.Warn("store_close_failed", "error", err)
		}
		return nil
	case err := <-errCh:
		_ = store.Close()
		return err
	}
}
