// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// MockResult is the result of every completed mock task.
const MockResult = "This is a mock response. Configure your API key to get real results."

// mockEpoch anchors the synthesized updated_at timestamps.
var mockEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// mockNamespace derives mock task ids.
var mockNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(taskforceai.DefaultBaseURL))

// mockProgression is the fixed sequence of states every mock task goes through.
var mockProgression = []taskforceai.TaskState{
	taskforceai.TaskStatePending,
	taskforceai.TaskStateRunning,
	taskforceai.TaskStateCompleted,
}

// MockTransport synthesizes responses without network access.
//
// Task ids are derived from the submission sequence number and prompt. Each
// status fetch of a task advances it one step along pending, running,
// completed; a stream replays the remaining steps and then ends. Threads live
// in memory, the file list is always empty, and any other request fails with
// a 404 [taskforceai.Error].
type MockTransport struct {
	mu      sync.Mutex
	seq     int
	fetches map[string]int

	threadSeq  int64
	messageSeq int64
	threads    map[int64]*mockThread

	sends  atomic.Int64
	opens  atomic.Int64
	closes atomic.Int64
}

var _ Transport = (*MockTransport)(nil)

// NewMockTransport returns a MockTransport with no tasks.
func NewMockTransport() *MockTransport {
	return &MockTransport{fetches: make(map[string]int), threads: make(map[int64]*mockThread)}
}

// Sends returns the number of Send calls.
func (m *MockTransport) Sends() int64 { return m.sends.Load() }

// Opens returns the number of OpenStream calls.
func (m *MockTransport) Opens() int64 { return m.opens.Load() }

// Closes returns the number of streams closed.
func (m *MockTransport) Closes() int64 { return m.closes.Load() }

// MockStatus returns the synthesized status of id after step fetches.
func MockStatus(id taskforceai.TaskID, step int) *taskforceai.TaskStatus {
	step = min(step, len(mockProgression)-1)
	st := &taskforceai.TaskStatus{
		ID:        id,
		State:     mockProgression[step],
		UpdatedAt: mockEpoch.Add(time.Duration(step) * time.Second),
	}
	if st.State == taskforceai.TaskStateCompleted {
		result := MockResult
		st.Result = &result
	}
	return st
}

func (m *MockTransport) newTaskID(prompt string) taskforceai.TaskID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextTaskIDLocked(prompt)
}

func (m *MockTransport) nextTaskIDLocked(prompt string) taskforceai.TaskID {
	m.seq++
	return "mock-" + uuid.NewSHA1(mockNamespace, fmt.Appendf(nil, "%d\x00%s", m.seq, prompt)).String()
}

// advance returns the current step of id and moves it forward.
func (m *MockTransport) advance(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	step := m.fetches[id]
	if step < len(mockProgression)-1 {
		m.fetches[id] = step + 1
	}
	return step
}

// Send implements [Transport].
func (m *MockTransport) Send(ctx context.Context, r *Request) (*Response, error) {
	m.sends.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case r.Method == http.MethodPost && r.Path == taskforceai.RunPath:
		var prompt string
		if run, ok := r.JSON.(*taskforceai.RunRequest); ok {
			prompt = run.Prompt
		}
		return jsonResponse(&taskforceai.RunResponse{TaskID: m.newTaskID(prompt)})

	case r.Method == http.MethodGet && strings.HasPrefix(r.Path, taskforceai.StatusPath):
		id, err := url.PathUnescape(strings.TrimPrefix(r.Path, taskforceai.StatusPath))
		if err != nil {
			return nil, StatusError("GET /status/{id}", http.StatusBadRequest, nil)
		}
		return jsonResponse(MockStatus(id, m.advance(id)))

	case r.Method == http.MethodGet && r.Path == taskforceai.FilesPath:
		return jsonResponse(&taskforceai.FileListResponse{Files: []taskforceai.File{}})

	case r.Path == taskforceai.ThreadsPath:
		switch r.Method {
		case http.MethodGet:
			return jsonResponse(m.listThreads())
		case http.MethodPost:
			var opts taskforceai.CreateThreadOptions
			if o, ok := r.JSON.(*taskforceai.CreateThreadOptions); ok {
				opts = *o
			}
			return jsonResponse(m.createThread(opts.Title))
		}

	case strings.HasPrefix(r.Path, taskforceai.ThreadsPath+"/"):
		if resp, ok := m.threadRoute(r); ok {
			return resp, nil
		}
	}

	return nil, mockNotFound(r)
}

func mockNotFound(r *Request) error {
	return StatusError(r.Method+" "+r.Path, http.StatusNotFound, []byte(`{"error":"not available in mock mode"}`))
}

// mockThread is a thread created through the mock.
type mockThread struct {
	thread   taskforceai.Thread
	messages []taskforceai.ThreadMessage
}

func (m *MockTransport) createThread(title string) *taskforceai.Thread {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threadSeq++
	t := &mockThread{thread: taskforceai.Thread{
		ID:        m.threadSeq,
		Title:     title,
		CreatedAt: mockEpoch,
		UpdatedAt: mockEpoch,
	}}
	m.threads[t.thread.ID] = t
	thread := t.thread
	return &thread
}

func (m *MockTransport) listThreads() *taskforceai.ThreadListResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &taskforceai.ThreadListResponse{Threads: []taskforceai.Thread{}}
	for _, t := range m.threads {
		list.Threads = append(list.Threads, t.thread)
	}
	slices.SortFunc(list.Threads, func(a, b taskforceai.Thread) int { return cmp.Compare(a.ID, b.ID) })
	list.Total = int64(len(list.Threads))
	return list
}

// threadRoute serves /threads/{id}, /threads/{id}/messages and /threads/{id}/runs.
// It reports false for unknown threads and routes.
func (m *MockTransport) threadRoute(r *Request) (*Response, bool) {
	rest := strings.TrimPrefix(r.Path, taskforceai.ThreadsPath+"/")
	idPart, sub, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.threads[id]
	if !ok {
		return nil, false
	}

	switch {
	case sub == "" && r.Method == http.MethodGet:
		thread := t.thread
		return mustJSON(&thread), true

	case sub == "" && r.Method == http.MethodDelete:
		delete(m.threads, id)
		return &Response{StatusCode: http.StatusNoContent, Header: http.Header{}}, true

	case sub == "messages" && r.Method == http.MethodGet:
		return mustJSON(&taskforceai.ThreadMessagesResponse{
			Messages: slices.Clone(t.messages),
			Total:    int64(len(t.messages)),
		}), true

	case sub == "runs" && r.Method == http.MethodPost:
		var prompt string
		if run, ok := r.JSON.(*taskforceai.ThreadRunOptions); ok {
			prompt = run.Prompt
		}
		m.messageSeq++
		t.messages = append(t.messages, taskforceai.ThreadMessage{
			ID:        m.messageSeq,
			ThreadID:  id,
			Role:      taskforceai.RoleUser,
			Content:   prompt,
			CreatedAt: mockEpoch,
		})
		return mustJSON(&taskforceai.ThreadRunResponse{
			TaskID:    m.nextTaskIDLocked(prompt),
			ThreadID:  id,
			MessageID: m.messageSeq,
		}), true
	}
	return nil, false
}

func mustJSON(v any) *Response {
	resp, err := jsonResponse(v)
	if err != nil {
		panic(err)
	}
	return resp
}

// OpenStream implements [Transport].
func (m *MockTransport) OpenStream(ctx context.Context, r *StreamRequest) (EventSource, error) {
	m.opens.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := url.PathUnescape(strings.TrimPrefix(r.Path, taskforceai.StreamPath))
	if err != nil {
		return nil, StatusError("GET /stream/{id}", http.StatusBadRequest, nil)
	}

	m.mu.Lock()
	from := m.fetches[id]
	m.fetches[id] = len(mockProgression) - 1
	m.mu.Unlock()

	var events []*Event
	for step := from; step < len(mockProgression); step++ {
		data, err := json.Marshal(MockStatus(id, step))
		if err != nil {
			return nil, err
		}
		events = append(events, &Event{ID: fmt.Sprint(step), Data: string(data)})
	}
	return &sliceSource{events: events, onClose: func() { m.closes.Add(1) }}, nil
}

func jsonResponse(v any) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       data,
	}, nil
}

// sliceSource replays a fixed list of events.
type sliceSource struct {
	mu      sync.Mutex
	events  []*Event
	closed  bool
	onClose func()
}

var _ EventSource = (*sliceSource)(nil)

// NewSliceSource returns an EventSource replaying events, then io.EOF.
// onClose, if non-nil, runs once on the first Close.
func NewSliceSource(onClose func(), events ...*Event) EventSource {
	return &sliceSource{events: events, onClose: onClose}
}

// Next implements [EventSource].
func (s *sliceSource) Next(ctx context.Context) (*Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.events) == 0 {
		return nil, io.EOF
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev, nil
}

// Close implements [EventSource].
func (s *sliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.onClose != nil {
		s.onClose()
	}
	return nil
}
