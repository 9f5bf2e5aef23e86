// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/transport"
)

// CreateThread starts a conversation thread. opts may be nil.
func (c *Client) CreateThread(ctx context.Context, opts *taskforceai.CreateThreadOptions) (*taskforceai.Thread, error) {
	const op = "create thread"
	if opts == nil {
		opts = &taskforceai.CreateThreadOptions{}
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   taskforceai.ThreadsPath,
		JSON:   opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.Thread](op, resp)
}

// ListThreads returns one page of threads.
func (c *Client) ListThreads(ctx context.Context, page taskforceai.Page) (*taskforceai.ThreadListResponse, error) {
	const op = "list threads"
	query, err := pageQuery(op, page)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   taskforceai.ThreadsPath,
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.ThreadListResponse](op, resp)
}

// GetThread returns a thread by id.
func (c *Client) GetThread(ctx context.Context, threadID int64) (*taskforceai.Thread, error) {
	const op = "get thread"
	if err := validateThreadID(op, threadID); err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   threadPath(threadID),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.Thread](op, resp)
}

// DeleteThread removes a thread and its messages.
func (c *Client) DeleteThread(ctx context.Context, threadID int64) error {
	const op = "delete thread"
	if err := validateThreadID(op, threadID); err != nil {
		return err
	}
	if _, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodDelete,
		Path:   threadPath(threadID),
	}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetThreadMessages returns one page of the messages of a thread.
func (c *Client) GetThreadMessages(ctx context.Context, threadID int64, page taskforceai.Page) (*taskforceai.ThreadMessagesResponse, error) {
	const op = "get thread messages"
	if err := validateThreadID(op, threadID); err != nil {
		return nil, err
	}
	query, err := pageQuery(op, page)
	if err != nil {
		return nil, err
	}
	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodGet,
		Path:   threadPath(threadID) + "/messages",
		Query:  query,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return decodeResponse[taskforceai.ThreadMessagesResponse](op, resp)
}

// RunInThread submits a prompt within a thread. The returned task is
// followed like any other, e.g. with [Client.WaitForCompletion].
func (c *Client) RunInThread(ctx context.Context, threadID int64, opts taskforceai.ThreadRunOptions) (_ *taskforceai.ThreadRunResponse, err error) {
	const op = "run in thread"
	if err := validateThreadID(op, threadID); err != nil {
		return nil, err
	}
	if err := taskforceai.ValidatePrompt(op, opts.Prompt); err != nil {
		return nil, err
	}

	ctx, span := c.startSpan(ctx, "RunInThread")
	defer func() { endSpan(span, err) }()

	resp, err := c.transport.Send(ctx, &transport.Request{
		Method: http.MethodPost,
		Path:   threadPath(threadID) + "/runs",
		JSON:   &opts,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out, err := decodeResponse[taskforceai.ThreadRunResponse](op, resp)
	if err != nil {
		return nil, err
	}
	if out.TaskID == "" {
		return nil, &taskforceai.Error{Kind: taskforceai.KindDecode, Op: op, Field: "task_id", Err: taskforceai.ErrMissingField}
	}
	span.SetAttributes(taskAttr(out.TaskID))
	c.track(ctx, out.TaskID, opts.Prompt, opts.ModelID)
	return out, nil
}

func threadPath(id int64) string {
	return taskforceai.ThreadsPath + "/" + strconv.FormatInt(id, 10)
}

func validateThreadID(op string, id int64) error {
	if id <= 0 {
		return taskforceai.InvalidArgument(op, "thread_id", "thread id must be positive")
	}
	return nil
}
