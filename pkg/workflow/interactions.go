package workflow

import (
	"context"
	"fmt"

	"minuteman/pkg/commit"
	"minuteman/pkg/faults"
	"minuteman/pkg/logger"
	"minuteman/pkg/models"
	"minuteman/pkg/slack"
	"minuteman/pkg/telemetry"
)

// HandleInteraction processes one button/menu delivery. Interactions can be
// redelivered too, so the gate runs first and every transition re-checks its
// target side effect (commit markers) before producing it.
func (o *Orchestrator) HandleInteraction(ctx context.Context, in *slack.Interaction) error {
	telemetry.EventsReceived.WithLabelValues("interaction").Inc()

	if !o.Gate.CheckAndMark(in.EventKey(), map[string]string{"user": in.User.ID}) {
		return nil
	}

	action := in.Actions[0]
	sc, err := models.DecodeSelectionContext(action.PayloadValue())
	if err != nil {
		logger.Warn("interaction_payload_invalid", "action", action.ActionID, "error", err)
		return err
	}
	if sc.Channel == "" {
		sc.Channel = in.Channel.ID
	}
	if sc.ThreadTS == "" {
		sc.ThreadTS = in.Message.TS
	}

	switch action.ActionID {
	case ActionCancel:
		return o.handleCancel(ctx, in, sc)
	case ActionProjectSelect:
		return o.handleProjectSelected(ctx, in, sc)
	case ActionChannelSelect:
		return o.handleChannelSelected(ctx, in, sc)
	case ActionRetryCommit:
		return o.handleProjectResume(ctx, in, sc)
	case ActionReselect:
		return o.handleReselect(ctx, in, sc)
	default:
		logger.Warn("interaction_unknown_action", "action", action.ActionID)
		return nil
	}
}

// handleCancel is a terminal transition with no side effects beyond clearing
// the prompt. Already-committed writes are left alone.
func (o *Orchestrator) handleCancel(ctx context.Context, in *slack.Interaction, sc models.SelectionContext) error {
	o.transition(sc.FileID, StateCancelled)
	if err := o.Msg.UpdateMessage(ctx, in.Channel.ID, in.Message.TS, "Cancelled. Nothing was filed.", nil); err != nil {
		logger.Warn("cancel_ack_failed", "file", sc.FileID, "error", err)
	}
	return nil
}

// handleProjectSelected runs the selection transition: resolve the artifact
// (cache or origin), resolve the project, and either ask for a channel or
// finalize directly.
func (o *Orchestrator) handleProjectSelected(ctx context.Context, in *slack.Interaction, sc models.SelectionContext) error {
	thread := models.ThreadRef{Channel: sc.Channel, ThreadTS: sc.ThreadTS}

	// Re-entrancy: a redelivered click after a completed commit repeats the
	// confirmation instead of committing again.
	if marker, ok := lookupMarker(sc.FileID, sc.ProjectID); ok {
		return o.repeatConfirmation(ctx, in, sc, marker)
	}

	art, err := o.acquireArtifact(ctx, sc.FileID, sc.Channel, in.User.ID)
	if err != nil {
		o.reportError(ctx, thread, "That file is no longer available on the platform.", err)
		return err
	}
	if art.Thread.ThreadTS == "" {
		art.Thread = thread
	}

	project, err := o.Dir.GetProject(ctx, sc.ProjectID)
	if err != nil {
		o.reportError(ctx, thread, "I couldn't look up that project. Try selecting again.", err)
		return err
	}

	if len(project.LinkedChannels) > 1 {
		return o.postChannelPrompt(ctx, art, project, sc)
	}
	taskChannel := art.Channel
	if len(project.LinkedChannels) == 1 {
		taskChannel = project.LinkedChannels[0]
	}
	return o.finalize(ctx, in, art, project, taskChannel, sc)
}

// handleChannelSelected completes the optional channel stage. The chosen
// channel rides in the context's Action field.
func (o *Orchestrator) handleChannelSelected(ctx context.Context, in *slack.Interaction, sc models.SelectionContext) error {
	thread := models.ThreadRef{Channel: sc.Channel, ThreadTS: sc.ThreadTS}
	if marker, ok := lookupMarker(sc.FileID, sc.ProjectID); ok {
		return o.repeatConfirmation(ctx, in, sc, marker)
	}
	art, err := o.acquireArtifact(ctx, sc.FileID, sc.Channel, in.User.ID)
	if err != nil {
		o.reportError(ctx, thread, "That file is no longer available on the platform.", err)
		return err
	}
	project, err := o.Dir.GetProject(ctx, sc.ProjectID)
	if err != nil {
		o.reportError(ctx, thread, "I couldn't look up that project. Try selecting again.", err)
		return err
	}
	taskChannel := sc.Action
	if taskChannel == "" {
		taskChannel = art.Channel
	}
	return o.finalize(ctx, in, art, project, taskChannel, sc)
}

// handleProjectResume re-runs finalize for a retry after a partial commit.
// Deterministic paths make the retry an idempotent overwrite.
func (o *Orchestrator) handleProjectResume(ctx context.Context, in *slack.Interaction, sc models.SelectionContext) error {
	return o.handleProjectSelected(ctx, in, sc)
}

// handleReselect reopens project selection after a completed commit, carrying
// the prior commit history forward.
func (o *Orchestrator) handleReselect(ctx context.Context, in *slack.Interaction, sc models.SelectionContext) error {
	thread := models.ThreadRef{Channel: in.Channel.ID, ThreadTS: sc.ThreadTS}
	art, err := o.acquireArtifact(ctx, sc.FileID, in.Channel.ID, in.User.ID)
	if err != nil {
		o.reportError(ctx, thread, "That file is no longer available on the platform.", err)
		return err
	}
	if art.Thread.Channel == "" {
		art.Thread = thread
	}
	if err := o.postProjectPrompt(ctx, art, sc.Prior); err != nil {
		o.reportError(ctx, thread, "I couldn't load the project list. Try again.", err)
		return err
	}
	return nil
}

// commitOutcome is the view of a commit result the prompt builders need.
type commitOutcome struct {
	archive   string
	processed string
	failures  []*faults.CommitTargetError
}

// finalize generates minutes when needed, performs the dual-target commit,
// records the marker and posts the confirmation.
func (o *Orchestrator) finalize(ctx context.Context, in *slack.Interaction, art *models.Artifact, project *models.Project, taskChannel string, sc models.SelectionContext) error {
	thread := art.Thread

	if !art.HasSummary() {
		summary, err := o.generateMinutes(ctx, art)
		if err != nil {
			o.reportError(ctx, thread, "Minutes generation failed. Select the project again to retry.", err)
			return err
		}
		o.Cache.AttachSummary(art.FileID, art.Channel, summary)
		art.Summary = summary
	}
	o.transition(art.FileID, StateMinutesGenerated)

	o.transition(art.FileID, StateCommitting)
	res := o.Committer.Commit(ctx, commit.Request{
		Origin:           thread,
		FileName:         art.Name,
		ArchiveContent:   art.Content,
		ProcessedContent: art.Summary,
	})

	outcome := commitOutcome{failures: res.Errors}
	if res.Archive != nil {
		outcome.archive = res.Archive.Path
	}
	if res.Processed != nil {
		outcome.processed = res.Processed.Path
	}

	if len(res.Errors) > 0 {
		o.transition(art.FileID, StatePartialCommit)
		blocks, berr := partialCommitBlocks(outcome, sc)
		if berr != nil {
			o.reportError(ctx, thread, "Commit failed and I couldn't build the retry prompt.", berr)
			return berr
		}
		if err := o.Msg.UpdateMessage(ctx, in.Channel.ID, in.Message.TS, "Commit partially failed.", blocks); err != nil {
			o.reportError(ctx, thread, "Commit partially failed; see logs.", err)
		}
		return fmt.Errorf("partial commit for %s/%s: %d target(s) failed", art.FileID, project.ID, len(res.Errors))
	}

	marker := CommitMarker{
		FileID:        art.FileID,
		ProjectID:     project.ID,
		ArchivePath:   res.Archive.Path,
		ProcessedPath: res.Processed.Path,
		CommittedAt:   o.Now().Unix(),
	}

	// Task propagation is independent of the document writes; a failure here
	// is reported but does not unwind them.
	if task, err := o.Committer.PropagateTask(ctx, project, res, taskTitle(art), taskChannel); err != nil {
		o.reportError(ctx, thread, "Documents were filed, but creating the task failed: "+err.Error(), err)
	} else {
		marker.TaskID = task.ID
	}

	if err := saveMarker(marker); err != nil {
		logger.Error("commit_marker_save_failed", "file", art.FileID, "project", project.ID, "error", err)
	}
	o.transition(art.FileID, StateCommitted)

	blocks, err := confirmationBlocks(project, marker, sc.Prior)
	if err != nil {
		return err
	}
	if err := o.Msg.UpdateMessage(ctx, in.Channel.ID, in.Message.TS, "Filed.", blocks); err != nil {
		// prompt update failed; fall back to a fresh thread message so the
		// confirmation is never dropped
		if _, perr := o.Msg.PostMessage(ctx, thread.Channel, thread.ThreadTS, "Filed under "+project.Name+".", blocks); perr != nil {
			logger.Error("confirmation_post_failed", "file", art.FileID, "error", perr)
		}
	}
	return nil
}

// repeatConfirmation replays the confirmation for an already-committed
// file+project pair instead of committing again.
func (o *Orchestrator) repeatConfirmation(ctx context.Context, in *slack.Interaction, sc models.SelectionContext, marker *CommitMarker) error {
	logger.Info("commit_already_present", "file", sc.FileID, "project", sc.ProjectID)
	project, err := o.Dir.GetProject(ctx, sc.ProjectID)
	if err != nil {
		project = &models.Project{ID: sc.ProjectID, Name: sc.ProjectID}
	}
	blocks, err := confirmationBlocks(project, *marker, sc.Prior)
	if err != nil {
		return err
	}
	return o.Msg.UpdateMessage(ctx, in.Channel.ID, in.Message.TS, "Already filed.", blocks)
}

// generateMinutes produces the processed summary via the inference service.
// Prompt wording carries no algorithmic weight.
func (o *Orchestrator) generateMinutes(ctx context.Context, art *models.Artifact) (string, error) {
	var prompt string
	if art.Kind == models.KindTranscript {
		prompt = "Write concise meeting minutes (decisions, action items, owners) for the following transcript:\n\n" + art.Content
	} else {
		prompt = "Write a concise summary of the following document:\n\n" + art.Content
	}
	out, err := o.Summarize.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	if out == "" {
		return "", fmt.Errorf("inference returned empty summary")
	}
	return out, nil
}

func taskTitle(art *models.Artifact) string {
	if art.Kind == models.KindTranscript {
		return "Minutes: " + art.Name
	}
	return "Document: " + art.Name
}
