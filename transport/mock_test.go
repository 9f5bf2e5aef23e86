// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

func mockSubmit(t *testing.T, m *MockTransport, prompt string) taskforceai.TaskID {
	t.Helper()

	resp, err := m.Send(t.Context(), &Request{
		Method: http.MethodPost,
		Path:   taskforceai.RunPath,
		JSON:   taskforceai.NewRunRequest(prompt, nil),
	})
	if err != nil {
		t.Fatalf("Send(run) error = %v", err)
	}
	var out taskforceai.RunResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		t.Fatalf("decode run response: %v", err)
	}
	return out.TaskID
}

func TestMockTransport_Submit(t *testing.T) {
	t.Parallel()

	a, b := NewMockTransport(), NewMockTransport()
	idA := mockSubmit(t, a, "hello")
	idB := mockSubmit(t, b, "hello")

	if !strings.HasPrefix(idA, "mock-") {
		t.Errorf("task id = %q, want mock- prefix", idA)
	}
	if idA != idB {
		t.Errorf("task ids differ across transports: %q != %q", idA, idB)
	}
	if again := mockSubmit(t, a, "hello"); again == idA {
		t.Errorf("second submission reused task id %q", again)
	}
}

func TestMockTransport_StatusProgression(t *testing.T) {
	t.Parallel()

	m := NewMockTransport()
	id := mockSubmit(t, m, "hello")

	var states []taskforceai.TaskState
	for range 4 {
		resp, err := m.Send(t.Context(), &Request{Method: http.MethodGet, Path: taskforceai.StatusPath + id})
		if err != nil {
			t.Fatalf("Send(status) error = %v", err)
		}
		st, err := taskforceai.ParseStatus(resp.Body)
		if err != nil {
			t.Fatalf("ParseStatus() error = %v", err)
		}
		states = append(states, st.State)
		if st.State == taskforceai.TaskStateCompleted && (st.Result == nil || *st.Result != MockResult) {
			t.Errorf("completed result = %v, want %q", st.Result, MockResult)
		}
	}

	want := []taskforceai.TaskState{
		taskforceai.TaskStatePending,
		taskforceai.TaskStateRunning,
		taskforceai.TaskStateCompleted,
		taskforceai.TaskStateCompleted,
	}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("state progression mismatch (-want +got):\n%s", diff)
	}
	if got := m.Sends(); got != 5 {
		t.Errorf("Sends() = %d, want 5", got)
	}
}

func TestMockTransport_OpenStream(t *testing.T) {
	t.Parallel()

	m := NewMockTransport()
	id := mockSubmit(t, m, "hello")

	src, err := m.OpenStream(t.Context(), &StreamRequest{Path: taskforceai.StreamPath + id})
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}

	var states []taskforceai.TaskState
	for {
		ev, err := src.Next(t.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		st, err := taskforceai.ParseStatus([]byte(ev.Data))
		if err != nil {
			t.Fatalf("ParseStatus() error = %v", err)
		}
		states = append(states, st.State)
	}
	src.Close()
	src.Close()

	want := []taskforceai.TaskState{taskforceai.TaskStatePending, taskforceai.TaskStateRunning, taskforceai.TaskStateCompleted}
	if diff := cmp.Diff(want, states); diff != "" {
		t.Errorf("streamed states mismatch (-want +got):\n%s", diff)
	}
	if m.Opens() != 1 || m.Closes() != 1 {
		t.Errorf("Opens() = %d, Closes() = %d, want 1 and 1", m.Opens(), m.Closes())
	}
}

func TestMockTransport_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	m := NewMockTransport()
	if _, err := m.Send(ctx, &Request{Method: http.MethodGet, Path: taskforceai.StatusPath + "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Send() error = %v, want context.Canceled", err)
	}
	if _, err := m.OpenStream(ctx, &StreamRequest{Path: taskforceai.StreamPath + "x"}); !errors.Is(err, context.Canceled) {
		t.Errorf("OpenStream() error = %v, want context.Canceled", err)
	}
}

func mockSend[T any](t *testing.T, m *MockTransport, req *Request) *T {
	t.Helper()

	resp, err := m.Send(t.Context(), req)
	if err != nil {
		t.Fatalf("Send(%s %s) error = %v", req.Method, req.Path, err)
	}
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		t.Fatalf("decode %s %s: %v", req.Method, req.Path, err)
	}
	return &out
}

func TestMockTransport_Threads(t *testing.T) {
	t.Parallel()

	m := NewMockTransport()
	created := mockSend[taskforceai.Thread](t, m, &Request{
		Method: http.MethodPost,
		Path:   taskforceai.ThreadsPath,
		JSON:   &taskforceai.CreateThreadOptions{Title: "trip"},
	})
	if created.ID != 1 || created.Title != "trip" {
		t.Fatalf("created thread = %+v, want id 1 titled trip", created)
	}
	path := taskforceai.ThreadsPath + "/1"

	list := mockSend[taskforceai.ThreadListResponse](t, m, &Request{Method: http.MethodGet, Path: taskforceai.ThreadsPath})
	if list.Total != 1 || len(list.Threads) != 1 || list.Threads[0].ID != 1 {
		t.Errorf("thread list = %+v, want the created thread", list)
	}

	got := mockSend[taskforceai.Thread](t, m, &Request{Method: http.MethodGet, Path: path})
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("GET thread mismatch (-want +got):\n%s", diff)
	}

	run := mockSend[taskforceai.ThreadRunResponse](t, m, &Request{
		Method: http.MethodPost,
		Path:   path + "/runs",
		JSON:   &taskforceai.ThreadRunOptions{Prompt: "plan it"},
	})
	if !strings.HasPrefix(run.TaskID, "mock-") || run.ThreadID != 1 || run.MessageID != 1 {
		t.Errorf("run response = %+v, want mock task in thread 1", run)
	}

	msgs := mockSend[taskforceai.ThreadMessagesResponse](t, m, &Request{Method: http.MethodGet, Path: path + "/messages"})
	if msgs.Total != 1 || len(msgs.Messages) != 1 {
		t.Fatalf("messages = %+v, want one", msgs)
	}
	if msg := msgs.Messages[0]; msg.Role != taskforceai.RoleUser || msg.Content != "plan it" || msg.ThreadID != 1 {
		t.Errorf("message = %+v, want the user prompt", msg)
	}

	resp, err := m.Send(t.Context(), &Request{Method: http.MethodDelete, Path: path})
	if err != nil {
		t.Fatalf("Send(delete) error = %v", err)
	}
	if resp.StatusCode != http.StatusNoContent || len(resp.Body) != 0 {
		t.Errorf("delete response = %d %q, want empty 204", resp.StatusCode, resp.Body)
	}

	_, err = m.Send(t.Context(), &Request{Method: http.MethodGet, Path: path})
	var tfErr *taskforceai.Error
	if !errors.As(err, &tfErr) || tfErr.StatusCode != http.StatusNotFound {
		t.Errorf("GET deleted thread error = %v, want 404", err)
	}
}

func TestMockTransport_Unrouted(t *testing.T) {
	t.Parallel()

	m := NewMockTransport()
	files := mockSend[taskforceai.FileListResponse](t, m, &Request{Method: http.MethodGet, Path: taskforceai.FilesPath})
	if files.Files == nil || len(files.Files) != 0 || files.Total != 0 {
		t.Errorf("file list = %+v, want empty", files)
	}

	tests := map[string]*Request{
		"error: file metadata":    {Method: http.MethodGet, Path: taskforceai.FilesPath + "/file-1"},
		"error: file upload":      {Method: http.MethodPost, Path: taskforceai.FilesPath},
		"error: unknown thread":   {Method: http.MethodGet, Path: taskforceai.ThreadsPath + "/42"},
		"error: bad thread id":    {Method: http.MethodGet, Path: taskforceai.ThreadsPath + "/abc"},
		"error: unknown route":    {Method: http.MethodGet, Path: "/health"},
		"error: wrong run method": {Method: http.MethodGet, Path: taskforceai.RunPath},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp, err := m.Send(t.Context(), req)
			if resp != nil {
				t.Errorf("Send() response = %q, want none", resp.Body)
			}
			var tfErr *taskforceai.Error
			if !errors.As(err, &tfErr) {
				t.Fatalf("Send() error = %v, want *taskforceai.Error", err)
			}
			if tfErr.StatusCode != http.StatusNotFound || tfErr.Message != "not available in mock mode" {
				t.Errorf("error = %+v, want 404 not available in mock mode", tfErr)
			}
		})
	}
}
