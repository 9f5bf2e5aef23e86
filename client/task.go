// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-json-experiment/json"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/tracker"
	"github.com/taskforceai/taskforceai-go/transport"
)

// SubmitTask submits prompt for execution and returns the new task id.
//
// An empty or whitespace-only prompt is rejected before any request is sent.
func (c *Client) SubmitTask(ctx context.Context, prompt string, opts *taskforceai.TaskSubmissionOptions) (_ taskforceai.TaskID, err error) {
	if err := taskforceai.ValidatePrompt("submit task", prompt); err != nil {
		return "", err
	}

	ctx, span := c.startSpan(ctx, "SubmitTask")
	defer func() { endSpan(span, err) }()

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   taskforceai.RunPath,
		JSON:   taskforceai.NewRunRequest(prompt, opts),
	})
	if err != nil {
		return "", fmt.Errorf("submit task: %w", err)
	}

	var out taskforceai.RunResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", taskforceai.DecodeError("submit task", err)
	}
	if out.TaskID == "" {
		return "", &taskforceai.Error{Kind: taskforceai.KindDecode, Op: "submit task", Field: "taskId", Err: taskforceai.ErrMissingField}
	}
	span.SetAttributes(taskAttr(out.TaskID))

	var modelID string
	if opts != nil {
		modelID = opts.ModelID
	}
	c.track(ctx, out.TaskID, prompt, modelID)
	c.logger.DebugContext(ctx, "task submitted", slog.String("task_id", out.TaskID))

	return out.TaskID, nil
}

// GetTaskStatus fetches the current status of taskID once, without retrying.
func (c *Client) GetTaskStatus(ctx context.Context, taskID taskforceai.TaskID) (_ *taskforceai.TaskStatus, err error) {
	if err := taskforceai.ValidateTaskID("get task status", taskID); err != nil {
		return nil, err
	}

	ctx, span := c.startSpan(ctx, "GetTaskStatus", taskAttr(taskID))
	defer func() { endSpan(span, err) }()

	st, err := c.fetchStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task status: %w", err)
	}
	if st.State.IsTerminal() {
		c.forget(ctx, taskID)
	}
	return st, nil
}

func (c *Client) fetchStatus(ctx context.Context, taskID taskforceai.TaskID) (*taskforceai.TaskStatus, error) {
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   taskforceai.StatusPath + url.PathEscape(taskID),
	})
	if err != nil {
		return nil, err
	}
	return taskforceai.ParseStatus(resp.Body)
}

// RunTask submits prompt and waits for the task to reach a terminal state.
// Failures of either step are returned unchanged.
func (c *Client) RunTask(ctx context.Context, prompt string, opts *taskforceai.TaskSubmissionOptions, poll *PollOptions) (*taskforceai.TaskStatus, error) {
	if poll != nil {
		// Reject a bad polling configuration before the task is created.
		if _, err := poll.resolve(c.pollDefaults); err != nil {
			return nil, err
		}
	}
	taskID, err := c.SubmitTask(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	return c.WaitForCompletion(ctx, taskID, poll)
}

// RunTaskStream submits prompt and opens a status stream for the new task.
func (c *Client) RunTaskStream(ctx context.Context, prompt string, opts *taskforceai.TaskSubmissionOptions) (*Stream, error) {
	taskID, err := c.SubmitTask(ctx, prompt, opts)
	if err != nil {
		return nil, err
	}
	return c.StreamTaskStatus(ctx, taskID)
}

// track records a new submission when a tracker is configured.
// Tracking failures are logged and never fail the submission.
func (c *Client) track(ctx context.Context, taskID taskforceai.TaskID, prompt, modelID string) {
	if c.tracker == nil {
		return
	}
	err := c.tracker.Save(ctx, &tracker.Submission{
		TaskID:      taskID,
		Prompt:      prompt,
		ModelID:     modelID,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		c.logger.WarnContext(ctx, "track submission", slog.String("task_id", taskID), slog.String("error", err.Error()))
	}
}

// forget drops a submission once its task is terminal.
func (c *Client) forget(ctx context.Context, taskID taskforceai.TaskID) {
	if c.tracker == nil {
		return
	}
	if err := c.tracker.Delete(context.WithoutCancel(ctx), taskID); err != nil && !isNotFound(err) {
		c.logger.WarnContext(ctx, "forget submission", slog.String("task_id", taskID), slog.String("error", err.Error()))
	}
}
