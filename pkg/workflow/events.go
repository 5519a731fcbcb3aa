package workflow

import (
	"context"

	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/slack"
	"minuteman/pkg/telemetry"
)

// HandleFileShared processes one file_shared delivery. The platform delivers
// at least once; the dedup gate guarantees at-most-once effective processing,
// so everything downstream of isNew=true runs without further
// synchronization.
func (o *Orchestrator) HandleFileShared(ctx context.Context, cb *slack.EventCallback) error {
	telemetry.EventsReceived.WithLabelValues("file_shared").Inc()
	o.transition(cb.Event.FileID, StateReceived)

	key := cb.EventKey()
	if !o.Gate.CheckAndMark(key, map[string]string{
		"file":    cb.Event.FileID,
		"channel": cb.Event.ChannelID,
	}) {
		// expected duplicate path, consumed silently
		return nil
	}
	o.transition(cb.Event.FileID, StateDeduped)

	thread := models.ThreadRef{Channel: cb.Event.ChannelID, ThreadTS: cb.Event.EventTS}

	art, err := o.acquireArtifact(ctx, cb.Event.FileID, cb.Event.ChannelID, cb.Event.UserID)
	if err != nil {
		o.reportError(ctx, thread, "I couldn't download that file. Re-share it to retry.", err)
		return err
	}
	art.Thread = thread
	o.Cache.Put(art)
	o.transition(art.FileID, StateContentReady)

	art.Kind = o.Classify(art.Content)
	o.transition(art.FileID, StateClassified)
	logger.Info("artifact_classified", "file", art.FileID, "kind", string(art.Kind), "bytes", len(art.Content))

	if err := o.postProjectPrompt(ctx, art, nil); err != nil {
		o.reportError(ctx, thread, "I couldn't load the project list. Re-share the file to retry.", err)
		return err
	}
	return nil
}
