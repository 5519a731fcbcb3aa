// Package commit performs the dual-target durable write: a raw archive and a
// processed summary into the document store, plus an independently propagated
// task record in the project directory. The two document writes are not
// transactional; a partial failure is reported per target and retried by the
// user, which is safe because the deterministic paths make retries idempotent
// overwrites guarded by optimistic concurrency.
package commit

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"minuteman/pkg/docstore"
	"minuteman/pkg/faults"
	"minuteman/pkg/ids"
	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/telemetry"
)

// DocStore is the slice of the document store client the committer needs.
type DocStore interface {
	Read(ctx context.Context, path string) (*docstore.Doc, error)
	Write(ctx context.Context, path, content, expectedRevision string) (string, error)
}

// TaskDirectory is the slice of the directory client the committer needs.
type TaskDirectory interface {
	CreateTask(ctx context.Context, task models.Task) error
}

// Committer writes both commit targets and propagates the task record.
type Committer struct {
	Docs       DocStore
	Dir        TaskDirectory
	Issuer     *ids.Issuer
	PathPrefix string
	Now        func() time.Time
}

// New builds a Committer with defaults applied.
func New(docs DocStore, dir TaskDirectory, issuer *ids.Issuer, pathPrefix string) *Committer {
	if pathPrefix == "" {
		pathPrefix = "minutes"
	}
	return &Committer{Docs: docs, Dir: dir, Issuer: issuer, PathPrefix: pathPrefix, Now: time.Now}
}

// TargetRef references one successfully written target.
type TargetRef struct {
	Path     string `json:"path"`
	Revision string `json:"revision"`
}

// Request carries one commit's inputs.
type Request struct {
	Origin           models.ThreadRef
	FileName         string
	ArchiveContent   string
	ProcessedContent string
	DateStamp        string // YYYY-MM-DD; empty means today
}

// Result is the per-target outcome. Archive and Processed are nil when their
// write failed; Errors then identifies which target failed and why.
type Result struct {
	Archive   *TargetRef
	Processed *TargetRef
	CommitID  string
	Errors    []*faults.CommitTargetError
}

// Partial reports whether exactly one of the two targets succeeded.
func (r *Result) Partial() bool {
	return (r.Archive == nil) != (r.Processed == nil)
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// BaseName derives the deterministic file base from an uploaded file name.
// Determinism is what makes retried commits overwrite instead of duplicate.
func BaseName(fileName string) string {
	base := strings.ToLower(strings.TrimSpace(fileName))
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	base = unsafeChars.ReplaceAllString(strings.ReplaceAll(base, " ", "-"), "")
	base = strings.Trim(base, ".-_")
	if base == "" {
		base = "artifact"
	}
	return base
}

// Paths returns the deterministic archive and processed paths for a commit.
func (c *Committer) Paths(dateStamp, baseName string) (archive, processed string) {
	archive = fmt.Sprintf("%s/archive/%s_%s.md", c.PathPrefix, dateStamp, baseName)
	processed = fmt.Sprintf("%s/processed/%s_%s.md", c.PathPrefix, dateStamp, baseName)
	return
}

// Commit writes both targets. Each write reads the current revision first (a
// not-found means "create") and writes with that revision as precondition.
// Failures are isolated per target; the successful target is never rolled
// back.
func (c *Committer) Commit(ctx context.Context, req Request) *Result {
	date := req.DateStamp
	if date == "" {
		date = c.Now().UTC().Format("2006-01-02")
	}
	base := BaseName(req.FileName)
	archivePath, processedPath := c.Paths(date, base)

	res := &Result{CommitID: fmt.Sprintf("%s_%s", date, base)}

	if ref, err := c.writeOne(ctx, archivePath, req.ArchiveContent); err != nil {
		res.Errors = append(res.Errors, &faults.CommitTargetError{Target: "archive", Path: archivePath, Err: err})
	} else {
		res.Archive = ref
	}
	if ref, err := c.writeOne(ctx, processedPath, req.ProcessedContent); err != nil {
		res.Errors = append(res.Errors, &faults.CommitTargetError{Target: "processed", Path: processedPath, Err: err})
	} else {
		res.Processed = ref
	}

	switch {
	case len(res.Errors) == 0:
		telemetry.Commits.WithLabelValues("committed").Inc()
		logger.Info("commit_complete", "commit_id", res.CommitID, "archive", archivePath, "processed", processedPath)
	case res.Partial():
		telemetry.Commits.WithLabelValues("partial").Inc()
		logger.Warn("commit_partial", "commit_id", res.CommitID, "failed_target", res.Errors[0].Target, "error", res.Errors[0].Err)
	default:
		if errors.Is(res.Errors[0].Err, faults.ErrConflict) {
			telemetry.Commits.WithLabelValues("conflict").Inc()
		} else {
			telemetry.Commits.WithLabelValues("failed").Inc()
		}
		logger.Error("commit_failed", "commit_id", res.CommitID, "errors", len(res.Errors))
	}
	return res
}

// writeOne performs one optimistic-concurrency write.
func (c *Committer) writeOne(ctx context.Context, path, content string) (*TargetRef, error) {
	var expected string
	cur, err := c.Docs.Read(ctx, path)
	switch {
	case err == nil:
		expected = cur.Revision
	case errors.Is(err, faults.ErrNotFound):
		// create
	default:
		return nil, err
	}
	rev, err := c.Docs.Write(ctx, path, content, expected)
	if err != nil {
		return nil, err
	}
	return &TargetRef{Path: path, Revision: rev}, nil
}

// PropagateTask issues a task identifier and pushes the derived task record to
// the project directory. Failures here are isolated from the document writes.
func (c *Committer) PropagateTask(ctx context.Context, project *models.Project, res *Result, summaryTitle, channel string) (*models.Task, error) {
	id := c.Issuer.GenerateNextID("")
	task := models.Task{
		ID:        id.Value,
		SourceID:  id.SourceID,
		ProjectID: project.ID,
		Title:     summaryTitle,
		Channel:   channel,
		CreatedTS: c.Now().Unix(),
	}
	if res.Processed != nil {
		task.Body = "Minutes: " + res.Processed.Path
	} else if res.Archive != nil {
		task.Body = "Archive: " + res.Archive.Path
	}
	if err := c.Dir.CreateTask(ctx, task); err != nil {
		return nil, &faults.CommitTargetError{Target: "task", Path: task.ID, Err: err}
	}
	logger.Info("task_propagated", "task_id", task.ID, "project", project.ID, "fallback_id", id.Fallback)
	return &task, nil
}
