// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/client"
	"github.com/taskforceai/taskforceai-go/transport"
)

// fakeTransport is a scripted [transport.Transport] recording every call.
type fakeTransport struct {
	send func(req *transport.Request, n int) (*transport.Response, error)
	open func(req *transport.StreamRequest, n int) (transport.EventSource, error)

	mu        sync.Mutex
	sends     []*transport.Request
	sendTimes []time.Time
	opens     []*transport.StreamRequest

	closes atomic.Int64
}

var _ transport.Transport = (*fakeTransport)(nil)

func (f *fakeTransport) Send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.sends = append(f.sends, req)
	f.sendTimes = append(f.sendTimes, time.Now())
	n := len(f.sends)
	f.mu.Unlock()

	if f.send == nil {
		return nil, fmt.Errorf("unexpected send %s %s", req.Method, req.Path)
	}
	return f.send(req, n)
}

func (f *fakeTransport) OpenStream(ctx context.Context, req *transport.StreamRequest) (transport.EventSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.opens = append(f.opens, req)
	n := len(f.opens)
	f.mu.Unlock()

	if f.open == nil {
		return nil, fmt.Errorf("unexpected stream %s", req.Path)
	}
	return f.open(req, n)
}

func (f *fakeTransport) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func (f *fakeTransport) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.opens)
}

// source returns an event source replaying events whose Close is counted.
func (f *fakeTransport) source(events ...*transport.Event) transport.EventSource {
	return transport.NewSliceSource(func() { f.closes.Add(1) }, events...)
}

func newFakeClient(t *testing.T, f *fakeTransport, opts ...client.Option) *client.Client {
	t.Helper()

	opts = append([]client.Option{client.WithAPIKey("test-key"), client.WithTransport(f)}, opts...)
	c, err := client.New(opts...)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	return c
}

func jsonBody(body string) (*transport.Response, error) {
	return &transport.Response{StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

func statusBody(id string, state taskforceai.TaskState) (*transport.Response, error) {
	return jsonBody(statusJSON(id, state))
}

func statusJSON(id string, state taskforceai.TaskState) string {
	switch state {
	case taskforceai.TaskStateCompleted:
		return fmt.Sprintf(`{"taskId":%q,"status":%q,"result":"done"}`, id, state)
	case taskforceai.TaskStateFailed:
		return fmt.Sprintf(`{"taskId":%q,"status":%q,"error":"agent crashed"}`, id, state)
	}
	return fmt.Sprintf(`{"taskId":%q,"status":%q}`, id, state)
}

func statusEvent(eventID, taskID string, state taskforceai.TaskState) *transport.Event {
	return &transport.Event{ID: eventID, Data: statusJSON(taskID, state)}
}

func httpError(code int) error {
	return transport.StatusError("test", code, nil)
}

// blockingSource blocks in Next until it is closed or ctx is done.
type blockingSource struct {
	once   sync.Once
	done   chan struct{}
	closes *atomic.Int64
}

func newBlockingSource(closes *atomic.Int64) *blockingSource {
	return &blockingSource{done: make(chan struct{}), closes: closes}
}

func (b *blockingSource) Next(ctx context.Context) (*transport.Event, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, io.EOF
	}
}

func (b *blockingSource) Close() error {
	b.once.Do(func() {
		close(b.done)
		b.closes.Add(1)
	})
	return nil
}
