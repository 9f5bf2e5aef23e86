// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// PollOptions bounds [Client.WaitForCompletion].
//
// Zero fields take the client defaults, which are
// [taskforceai.DefaultPollInterval] and [taskforceai.DefaultMaxPollAttempts]
// unless changed with [WithPollDefaults]. Unlimited polling is not supported:
// a negative MaxAttempts is rejected.
type PollOptions struct {
	// Interval is the wait between two status fetches.
	Interval time.Duration
	// MaxAttempts is the number of status fetches before giving up.
	MaxAttempts int
}

// Resolve applies the package defaults to the zero fields of p and validates the result.
func (p PollOptions) Resolve() (PollOptions, error) {
	return p.resolve(PollOptions{
		Interval:    taskforceai.DefaultPollInterval,
		MaxAttempts: taskforceai.DefaultMaxPollAttempts,
	})
}

func (p PollOptions) resolve(defaults PollOptions) (PollOptions, error) {
	const op = "wait for completion"
	if p.Interval < 0 {
		return PollOptions{}, taskforceai.InvalidArgument(op, "interval", "poll interval must not be negative")
	}
	if p.MaxAttempts < 0 {
		return PollOptions{}, taskforceai.InvalidArgument(op, "max_attempts", "max attempts must be positive; unlimited polling is not supported")
	}
	if p.Interval == 0 {
		p.Interval = defaults.Interval
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	return p, nil
}

// WaitForCompletion polls taskID until it reaches a terminal state.
//
// A terminal status is returned with a nil error, including failed and
// cancelled tasks; use [taskforceai.TaskStatus.Err] to turn those into errors.
// Retryable transport failures consume an attempt and polling continues. Other
// failures are returned at once. When every attempt is used up the result is
// a [taskforceai.KindTimeout] error carrying the attempt count.
//
// Cancelling ctx aborts both the in-flight request and the wait between attempts.
func (c *Client) WaitForCompletion(ctx context.Context, taskID taskforceai.TaskID, opts *PollOptions) (_ *taskforceai.TaskStatus, err error) {
	const op = "wait for completion"
	if err := taskforceai.ValidateTaskID(op, taskID); err != nil {
		return nil, err
	}
	p := c.pollDefaults
	if opts != nil {
		if p, err = opts.resolve(c.pollDefaults); err != nil {
			return nil, err
		}
	}

	ctx, span := c.startSpan(ctx, "WaitForCompletion",
		taskAttr(taskID),
		attribute.Int64("taskforceai.poll.interval_ms", p.Interval.Milliseconds()),
		attribute.Int("taskforceai.poll.max_attempts", p.MaxAttempts),
	)
	defer func() { endSpan(span, err) }()

	logger := c.logger.With(slog.String("task_id", taskID))
	var (
		prev    *taskforceai.TaskStatus
		lastErr error
	)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		st, err := c.fetchStatus(ctx, taskID)
		switch {
		case err == nil:
			lastErr = nil
			c.metrics.RecordPollAttempt(ctx, string(st.State))
			if perr := taskforceai.CheckProgress(prev, st); perr != nil {
				logger.WarnContext(ctx, "status moved backwards", slog.String("error", perr.Error()))
			}
			prev = st
			if st.State.IsTerminal() {
				span.SetAttributes(attribute.Int("taskforceai.poll.attempts", attempt), attribute.String("taskforceai.task_state", string(st.State)))
				c.forget(ctx, taskID)
				return st, nil
			}
			logger.DebugContext(ctx, "task not finished", slog.Int("attempt", attempt), slog.String("state", string(st.State)))

		case ctx.Err() != nil:
			return nil, ctx.Err()

		case taskforceai.IsRetryable(err):
			lastErr = err
			c.metrics.RecordPollAttempt(ctx, "error")
			logger.WarnContext(ctx, "status fetch failed, will retry", slog.Int("attempt", attempt), slog.String("error", err.Error()))

		default:
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		if attempt < p.MaxAttempts {
			if err := sleep(ctx, p.Interval); err != nil {
				return nil, err
			}
		}
	}

	return nil, &taskforceai.Error{
		Kind:     taskforceai.KindTimeout,
		Op:       op,
		TaskID:   taskID,
		Attempts: p.MaxAttempts,
		Err:      lastErr,
	}
}
