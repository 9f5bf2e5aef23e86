// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/url"
	"sync"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/transport"
)

// Event is one item of a [Stream].
//
// Exactly one of Status and Err is set. An Err item is either a warning about
// a skipped event, after which the stream continues, or the terminal failure
// that ends the stream.
type Event struct {
	Status *taskforceai.TaskStatus
	Err    error

	terminal bool
}

// Warning reports whether e describes a skipped event.
func (e Event) Warning() bool {
	return e.Err != nil && !e.terminal
}

// Terminal reports whether e is the last item of its stream.
func (e Event) Terminal() bool {
	if e.Status != nil {
		return e.Status.State.IsTerminal()
	}
	return e.terminal
}

// Stream is a pull-based sequence of status updates for one task.
//
// A Stream has a single consumer, moves forward only, and cannot be restarted.
// It ends right after the first terminal status, or after a terminal failure
// item such as [taskforceai.KindStreamDisconnected]. Dropped connections are
// reopened with backoff. Close must be called when the stream is abandoned
// early; it is safe to call at any time and more than once.
type Stream struct {
	client *Client
	taskID taskforceai.TaskID
	path   string
	retry  *RetryConfig

	// ctx bounds every connection of the stream and is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	src         transport.EventSource
	done        bool
	lastEventID string

	backoff  *backoff
	failures int
	lastErr  error
	last     *taskforceai.TaskStatus
	logger   *slog.Logger
}

// StreamTaskStatus opens a status stream for taskID.
//
// The first connection is made before returning, so authentication and
// not-found failures surface here. Retryable failures of that first
// connection are retried within the reconnect budget of [WithStreamRetry].
// The stream lives until it ends, is closed, or ctx is done.
func (c *Client) StreamTaskStatus(ctx context.Context, taskID taskforceai.TaskID) (_ *Stream, err error) {
	const op = "stream task status"
	if err := taskforceai.ValidateTaskID(op, taskID); err != nil {
		return nil, err
	}

	spanCtx, span := c.startSpan(ctx, "StreamTaskStatus", taskAttr(taskID))
	defer func() { endSpan(span, err) }()

	s := c.newStream(ctx, taskID)
	for {
		src, err := s.connect()
		if err == nil {
			s.setSource(src)
			return s, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.Close()
			return nil, ctxErr
		}
		if !s.retry.retryable(err) {
			s.Close()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		s.lastErr = err
		if s.failures >= s.retry.MaxAttempts {
			s.Close()
			return nil, s.disconnected()
		}
		if err := s.wait(spanCtx); err != nil {
			s.Close()
			return nil, err
		}
	}
}

func (c *Client) newStream(ctx context.Context, taskID taskforceai.TaskID) *Stream {
	sctx, cancel := context.WithCancel(ctx)
	return &Stream{
		client:  c,
		taskID:  taskID,
		path:    taskforceai.StreamPath + url.PathEscape(taskID),
		retry:   c.streamRetry,
		ctx:     sctx,
		cancel:  cancel,
		backoff: newBackoff(c.streamRetry),
		logger:  c.logger.With(slog.String("task_id", taskID)),
	}
}

// TaskID returns the task ID associated with this stream.
func (s *Stream) TaskID() taskforceai.TaskID {
	return s.taskID
}

// Next returns the next item of the stream.
//
// Once the stream has ended every call returns io.EOF. If ctx is done while
// Next is waiting, the stream is closed and ctx's error returned.
func (s *Stream) Next(ctx context.Context) (Event, error) {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		if s.isDone() {
			if err := ctx.Err(); err != nil {
				return Event{}, err
			}
			return Event{}, io.EOF
		}

		src := s.source()
		if src == nil {
			ev, ok, err := s.reconnect(ctx)
			if err != nil {
				return Event{}, err
			}
			if ok {
				return ev, nil
			}
			continue
		}

		raw, err := src.Next(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.Close()
				return Event{}, ctxErr
			}
			if s.isDone() {
				continue
			}
			s.dropSource()
			if errors.Is(err, io.EOF) || s.retry.retryable(err) {
				s.lastErr = err
				s.logger.DebugContext(ctx, "status stream dropped", slog.String("error", err.Error()))
				continue
			}
			return s.finish(ctx, Event{Err: fmt.Errorf("stream task status: %w", err), terminal: true}), nil
		}

		if ev, ok := s.decode(ctx, raw); ok {
			return ev, nil
		}
	}
}

// Events returns an iterator over the remaining items.
// The stream is closed when the loop ends, including on early break.
// A context error is delivered as a final terminal item.
func (s *Stream) Events(ctx context.Context) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		defer s.Close()
		for {
			ev, err := s.Next(ctx)
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(Event{Err: err, terminal: true})
				}
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// Close ends the stream and releases its connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.done = true
	s.cancel()
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src = nil
	return err
}

func (s *Stream) isDone() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Stream) source() transport.EventSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src
}

// setSource installs src, closing it instead if the stream ended meanwhile.
func (s *Stream) setSource(src transport.EventSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		src.Close()
		return
	}
	s.src = src
}

func (s *Stream) dropSource() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		s.src.Close()
		s.src = nil
	}
}

// finish marks the stream ended, releases the connection, and returns ev.
func (s *Stream) finish(ctx context.Context, ev Event) Event {
	s.Close()
	kind := "terminal"
	if ev.Err != nil {
		kind = "failure"
	}
	s.client.metrics.RecordStreamEvent(ctx, kind)
	return ev
}

func (s *Stream) connect() (transport.EventSource, error) {
	s.mu.Lock()
	lastID := s.lastEventID
	s.mu.Unlock()

	return s.client.transport.OpenStream(s.ctx, &transport.StreamRequest{
		Path:        s.path,
		LastEventID: lastID,
	})
}

// wait sleeps for the next backoff delay and counts the attempt.
func (s *Stream) wait(ctx context.Context) error {
	s.failures++
	delay := s.backoff.next()
	s.client.metrics.RecordReconnect(ctx, "attempt")
	s.logger.DebugContext(ctx, "reconnecting status stream", slog.Int("attempt", s.failures), slog.Duration("delay", delay))
	return sleep(ctx, delay)
}

func (s *Stream) disconnected() error {
	return &taskforceai.Error{
		Kind:     taskforceai.KindStreamDisconnected,
		Op:       "stream task status",
		TaskID:   s.taskID,
		Attempts: s.failures,
		Err:      s.lastErr,
	}
}

// reconnect reopens the connection. It reports ok with a terminal item when
// the budget is exhausted or the failure is not retryable.
func (s *Stream) reconnect(ctx context.Context) (Event, bool, error) {
	for {
		if s.failures >= s.retry.MaxAttempts {
			s.logger.WarnContext(ctx, "status stream disconnected", slog.Int("attempts", s.failures))
			return s.finish(ctx, Event{Err: s.disconnected(), terminal: true}), true, nil
		}
		if err := s.wait(ctx); err != nil {
			s.Close()
			return Event{}, false, err
		}

		src, err := s.connect()
		if err == nil {
			s.setSource(src)
			return Event{}, false, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.Close()
			return Event{}, false, ctxErr
		}
		if s.isDone() {
			return Event{}, false, nil
		}
		s.client.metrics.RecordReconnect(ctx, "failure")
		if !s.retry.retryable(err) {
			return s.finish(ctx, Event{Err: fmt.Errorf("stream task status: %w", err), terminal: true}), true, nil
		}
		s.lastErr = err
	}
}

// decode turns a raw event into a stream item. It reports false for events carrying nothing.
func (s *Stream) decode(ctx context.Context, raw *transport.Event) (Event, bool) {
	if raw.ID != "" {
		s.mu.Lock()
		s.lastEventID = raw.ID
		s.mu.Unlock()
	}

	if raw.Type == "error" {
		s.client.metrics.RecordStreamEvent(ctx, "warning")
		err := &taskforceai.Error{Kind: taskforceai.KindTransport, Op: "stream task status", TaskID: s.taskID, Message: "server error event: " + raw.Data}
		s.logger.WarnContext(ctx, "status stream error event", slog.String("data", raw.Data))
		return Event{Err: err}, true
	}
	if raw.Data == "" {
		return Event{}, false
	}

	st, err := taskforceai.ParseStatus([]byte(raw.Data))
	if err != nil {
		s.client.metrics.RecordStreamEvent(ctx, "warning")
		s.logger.WarnContext(ctx, "skipping malformed status event", slog.String("error", err.Error()))
		return Event{Err: err}, true
	}

	if perr := taskforceai.CheckProgress(s.last, st); perr != nil {
		s.logger.WarnContext(ctx, "status moved backwards", slog.String("error", perr.Error()))
	}
	// A replay of the last status does not restore the reconnect budget.
	if advanced(s.last, st) {
		s.failures = 0
		s.backoff.reset()
	}
	s.last = st

	if st.State.IsTerminal() {
		s.client.forget(ctx, s.taskID)
		return s.finish(ctx, Event{Status: st}), true
	}
	s.client.metrics.RecordStreamEvent(ctx, "status")
	return Event{Status: st}, true
}

// advanced reports whether next moved the task forward from prev.
func advanced(prev, next *taskforceai.TaskStatus) bool {
	if prev == nil {
		return true
	}
	return next.State != prev.State || next.UpdatedAt.After(prev.UpdatedAt)
}
