// Package workflow drives each artifact through the pipeline: dedup, content
// acquisition, classification, human project/channel selection, minutes
// generation and the dual-target commit. The machine is resumable: no state is
// required to survive between triggers beyond the durable commit markers and
// the identifiers round-tripped through the interaction payload.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"minuteman/pkg/cache"
	"minuteman/pkg/classify"
	"minuteman/pkg/commit"
	"minuteman/pkg/dedup"
	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/slack"
	"minuteman/pkg/store"
	"minuteman/pkg/telemetry"
)

// State names the stages of the per-artifact machine. States are derived from
// data (cache contents, commit markers), never stored: any worker can resume
// from the interaction payload alone.
type State string

const (
	StateReceived          State = "RECEIVED"
	StateDeduped           State = "DEDUPED"
	StateContentReady      State = "CONTENT_READY"
	StateClassified        State = "CLASSIFIED"
	StateAwaitingProject   State = "AWAITING_PROJECT_SELECTION"
	StateAwaitingChannel   State = "AWAITING_CHANNEL_SELECTION"
	StateMinutesGenerated  State = "MINUTES_GENERATED"
	StateCommitting        State = "COMMITTING"
	StateCommitted         State = "COMMITTED"
	StatePartialCommit     State = "PARTIALLY_COMMITTED"
	StateCancelled         State = "CANCELLED"
)

// Action ids round-tripped through interaction payloads.
const (
	ActionProjectSelect = "mm_project_select"
	ActionChannelSelect = "mm_channel_select"
	ActionCancel        = "mm_cancel"
	ActionRetryCommit   = "mm_retry_commit"
	ActionReselect      = "mm_reselect"
)

// Messenger is the slice of the platform client the orchestrator needs.
type Messenger interface {
	PostMessage(ctx context.Context, channel, threadTS, text string, blocks []slack.Block) (string, error)
	UpdateMessage(ctx context.Context, channel, ts, text string, blocks []slack.Block) error
	GetFileInfo(ctx context.Context, fileID string) (*slack.FileInfo, error)
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// ProjectDirectory is the slice of the directory client the orchestrator
// needs.
type ProjectDirectory interface {
	GetProject(ctx context.Context, id string) (*models.Project, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
}

// Summarizer produces the processed minutes text from artifact content.
type Summarizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Orchestrator owns the per-artifact state machine.
type Orchestrator struct {
	Msg       Messenger
	Dir       ProjectDirectory
	Committer *commit.Committer
	Cache     *cache.ArtifactCache
	Gate      *dedup.Gate
	Summarize Summarizer
	Classify  func(string) models.ArtifactKind
	Now       func() time.Time
}

// New builds an orchestrator with defaults applied.
func New(msg Messenger, dir ProjectDirectory, c *commit.Committer, ac *cache.ArtifactCache, g *dedup.Gate, s Summarizer) *Orchestrator {
	return &Orchestrator{
		Msg:       msg,
		Dir:       dir,
		Committer: c,
		Cache:     ac,
		Gate:      g,
		Summarize: s,
		Classify:  classify.Classify,
		Now:       time.Now,
	}
}

// CommitMarker is the durable record proving a file+project commit already
// happened. Transition handlers check it before re-producing side effects, so
// redelivered interactions are harmless.
type CommitMarker struct {
	FileID        string `json:"file_id"`
	ProjectID     string `json:"project_id"`
	ArchivePath   string `json:"archive_path"`
	ProcessedPath string `json:"processed_path"`
	TaskID        string `json:"task_id,omitempty"`
	CommittedAt   int64  `json:"committed_at"`
}

func markerKey(fileID, projectID string) string {
	return store.CommitPrefix + fileID + ":" + projectID
}

// lookupMarker returns the commit marker for file+project, if one exists.
func lookupMarker(fileID, projectID string) (*CommitMarker, bool) {
	b, ok, err := store.Get(markerKey(fileID, projectID))
	if err != nil || !ok {
		return nil, false
	}
	var m CommitMarker
	if json.Unmarshal(b, &m) != nil {
		return nil, false
	}
	return &m, true
}

// saveMarker durably records a completed commit. First writer wins; a
// concurrent duplicate interaction that lost the race sees the marker instead.
func saveMarker(m CommitMarker) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = store.SetIfAbsent(markerKey(m.FileID, m.ProjectID), b)
	return err
}

// acquireArtifact returns the cached artifact or rebuilds an equivalent one
// from the platform. A cache miss is never terminal: the platform's file
// record is the source of truth.
func (o *Orchestrator) acquireArtifact(ctx context.Context, fileID, channel, user string) (*models.Artifact, error) {
	if a, ok := o.Cache.Lookup(fileID, channel); ok {
		return a, nil
	}
	telemetry.CacheMisses.Inc()
	logger.Info("artifact_cache_miss", "file", fileID, "channel", channel)

	info, err := o.Msg.GetFileInfo(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("file info for %s: %w", fileID, err)
	}
	content, err := o.Msg.DownloadFile(ctx, info.URLPrivate)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", fileID, err)
	}
	if channel == "" && len(info.Channels) > 0 {
		channel = info.Channels[0]
	}
	if user == "" {
		user = info.User
	}
	a := &models.Artifact{
		FileID:     fileID,
		Channel:    channel,
		User:       user,
		Name:       info.Name,
		Content:    string(content),
		Kind:       o.Classify(string(content)),
		Thread:     models.ThreadRef{Channel: channel},
		UploadedTS: info.Timestamp,
	}
	o.Cache.Put(a)
	return a, nil
}

// reportError is the single place pipeline errors become user-visible text,
// always posted into the originating thread, never dropped.
func (o *Orchestrator) reportError(ctx context.Context, thread models.ThreadRef, userMsg string, cause error) {
	logger.Error("workflow_error", "channel", thread.Channel, "thread", thread.ThreadTS, "msg", userMsg, "error", cause)
	if thread.Channel == "" {
		return
	}
	text := ":warning: " + userMsg
	if _, err := o.Msg.PostMessage(ctx, thread.Channel, thread.ThreadTS, text, nil); err != nil {
		logger.Error("error_report_post_failed", "channel", thread.Channel, "error", err)
	}
}

func (o *Orchestrator) transition(fileID string, to State) {
	logger.Debug("workflow_transition", "file", fileID, "state", string(to))
}
