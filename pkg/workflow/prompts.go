package workflow

import (
	"context"
	"fmt"

	"minuteman/pkg/models"
	"minuteman/pkg/slack"
)

// buildProjectOptions serializes one option per candidate project, batched
// into groups the platform accepts. Each option value carries the selection
// context so any worker can resume from the click alone.
func buildProjectOptions(projects []models.Project, base models.SelectionContext) ([][]slack.Option, error) {
	var groups [][]slack.Option
	var cur []slack.Option
	for _, p := range projects {
		sc := base
		sc.ProjectID = p.ID
		val, err := sc.Encode()
		if err != nil {
			return nil, err
		}
		cur = append(cur, slack.Option{
			Text:  &slack.Text{Type: "plain_text", Text: p.Name},
			Value: val,
		})
		if len(cur) == slack.MaxOptionsPerGroup {
			groups = append(groups, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups, nil
}

// postProjectPrompt posts the project selection prompt into the artifact's
// thread. N candidates are batched into bounded option groups, plus an
// explicit cancel affordance.
func (o *Orchestrator) postProjectPrompt(ctx context.Context, art *models.Artifact, prior []models.PriorCommit) error {
	projects, err := o.Dir.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("list projects: %w", err)
	}
	if len(projects) == 0 {
		return fmt.Errorf("no projects configured in directory")
	}

	base := models.SelectionContext{
		FileID:   art.FileID,
		Channel:  art.Channel,
		ThreadTS: art.Thread.ThreadTS,
		Prior:    prior,
	}
	groups, err := buildProjectOptions(projects, base)
	if err != nil {
		return err
	}
	cancelVal, err := base.Encode()
	if err != nil {
		return err
	}

	head := fmt.Sprintf("Received *%s*", art.Name)
	if art.Kind == models.KindTranscript {
		head += " (looks like a meeting transcript)"
	}
	if len(prior) > 0 {
		head += fmt.Sprintf("\nAlready committed to %d project(s); pick an additional target.", len(prior))
	}
	head += "\nWhich project should it be filed under?"

	blocks := []slack.Block{slack.SectionBlock(head)}
	for i, g := range groups {
		placeholder := "Select a project"
		if len(groups) > 1 {
			placeholder = fmt.Sprintf("Projects %d-%d", i*slack.MaxOptionsPerGroup+1, i*slack.MaxOptionsPerGroup+len(g))
		}
		blocks = append(blocks, slack.ActionsBlock(
			fmt.Sprintf("project_group_%d", i),
			slack.SelectElement(ActionProjectSelect, placeholder, g),
		))
	}
	blocks = append(blocks, slack.ActionsBlock("cancel_row",
		slack.ButtonElement(ActionCancel, "Cancel", cancelVal, "danger"),
	))

	if _, err := o.Msg.PostMessage(ctx, art.Thread.Channel, art.Thread.ThreadTS, "Which project should this be filed under?", blocks); err != nil {
		return fmt.Errorf("post project prompt: %w", err)
	}
	o.transition(art.FileID, StateAwaitingProject)
	return nil
}

// postChannelPrompt asks which of the project's linked channels the task
// should be announced in. Only entered when the project has more than one.
func (o *Orchestrator) postChannelPrompt(ctx context.Context, art *models.Artifact, project *models.Project, sc models.SelectionContext) error {
	var opts []slack.Option
	for _, ch := range project.LinkedChannels {
		csc := sc
		csc.Action = ch
		val, err := csc.Encode()
		if err != nil {
			return err
		}
		opts = append(opts, slack.Option{
			Text:  &slack.Text{Type: "plain_text", Text: "#" + ch},
			Value: val,
		})
		if len(opts) == slack.MaxOptionsPerGroup {
			break
		}
	}
	cancelVal, err := sc.Encode()
	if err != nil {
		return err
	}
	blocks := []slack.Block{
		slack.SectionBlock(fmt.Sprintf("*%s* has several linked channels. Where should the task go?", project.Name)),
		slack.ActionsBlock("channel_group", slack.SelectElement(ActionChannelSelect, "Select a channel", opts)),
		slack.ActionsBlock("cancel_row", slack.ButtonElement(ActionCancel, "Cancel", cancelVal, "danger")),
	}
	if _, err := o.Msg.PostMessage(ctx, art.Thread.Channel, art.Thread.ThreadTS, "Select a channel for the task.", blocks); err != nil {
		return fmt.Errorf("post channel prompt: %w", err)
	}
	o.transition(art.FileID, StateAwaitingChannel)
	return nil
}

// confirmationBlocks builds the committed confirmation, referencing prior
// commits so a redirected artifact keeps its history visible, plus the
// change-of-mind affordance.
func confirmationBlocks(project *models.Project, marker CommitMarker, prior []models.PriorCommit) ([]slack.Block, error) {
	text := fmt.Sprintf(":white_check_mark: Filed under *%s*.\n• Archive: `%s`\n• Minutes: `%s`", project.Name, marker.ArchivePath, marker.ProcessedPath)
	if marker.TaskID != "" {
		text += fmt.Sprintf("\n• Task: `%s`", marker.TaskID)
	}
	for _, pc := range prior {
		text += fmt.Sprintf("\nPreviously committed to project `%s` (`%s`)", pc.ProjectID, pc.ArchivePath)
	}

	next := models.SelectionContext{
		FileID:  marker.FileID,
		Channel: "",
		Prior: append(append([]models.PriorCommit(nil), prior...), models.PriorCommit{
			ProjectID:   marker.ProjectID,
			ArchivePath: marker.ArchivePath,
			TaskID:      marker.TaskID,
		}),
	}
	val, err := next.Encode()
	if err != nil {
		return nil, err
	}
	return []slack.Block{
		slack.SectionBlock(text),
		slack.ActionsBlock("reselect_row",
			slack.ButtonElement(ActionReselect, "File under another project", val, ""),
		),
	}, nil
}

// partialCommitBlocks reports a partial commit explicitly: which target
// failed, which succeeded, and a retry affordance. Retry is user-initiated;
// the commit is idempotent so pressing it twice is safe.
func partialCommitBlocks(res commitOutcome, sc models.SelectionContext) ([]slack.Block, error) {
	text := ":warning: Commit partially failed."
	if res.archive != "" {
		text += fmt.Sprintf("\n• Archive written: `%s`", res.archive)
	}
	if res.processed != "" {
		text += fmt.Sprintf("\n• Minutes written: `%s`", res.processed)
	}
	for _, e := range res.failures {
		text += fmt.Sprintf("\n• Failed target *%s*: %s", e.Target, e.Err)
	}
	val, err := sc.Encode()
	if err != nil {
		return nil, err
	}
	return []slack.Block{
		slack.SectionBlock(text),
		slack.ActionsBlock("retry_row",
			slack.ButtonElement(ActionRetryCommit, "Retry failed write", val, "primary"),
		),
	}, nil
}
