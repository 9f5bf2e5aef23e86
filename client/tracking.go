// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/tracker"
)

// maxConcurrentWaits bounds the number of tasks polled at once by [Client.WaitForAll].
const maxConcurrentWaits = 8

func isNotFound(err error) bool {
	return errors.Is(err, tracker.ErrNotFound)
}

// Pending returns the submissions recorded by the tracker whose terminal
// status has not been observed yet. Without a tracker it returns nil.
func (c *Client) Pending(ctx context.Context) ([]*tracker.Submission, error) {
	if c.tracker == nil {
		return nil, nil
	}
	subs, err := c.tracker.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending tasks: %w", err)
	}
	return subs, nil
}

// ResumePending waits for every pending submission, e.g. after a restart.
// Statuses are returned in submission order.
func (c *Client) ResumePending(ctx context.Context, opts *PollOptions) ([]*taskforceai.TaskStatus, error) {
	subs, err := c.Pending(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]taskforceai.TaskID, len(subs))
	for i, s := range subs {
		ids[i] = s.TaskID
	}
	c.logger.InfoContext(ctx, "resuming pending tasks", slog.Int("count", len(ids)))
	return c.WaitForAll(ctx, ids, opts)
}

// WaitForAll polls every task concurrently until all are terminal.
//
// The statuses are returned in the order of ids. The first failure cancels
// the remaining waits and is returned.
func (c *Client) WaitForAll(ctx context.Context, ids []taskforceai.TaskID, opts *PollOptions) ([]*taskforceai.TaskStatus, error) {
	for _, id := range ids {
		if err := taskforceai.ValidateTaskID("wait for all", id); err != nil {
			return nil, err
		}
	}
	if opts != nil {
		if _, err := opts.resolve(c.pollDefaults); err != nil {
			return nil, err
		}
	}

	out := make([]*taskforceai.TaskStatus, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentWaits)
	for i, id := range ids {
		g.Go(func() error {
			st, err := c.WaitForCompletion(gctx, id, opts)
			if err != nil {
				return err
			}
			out[i] = st
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
