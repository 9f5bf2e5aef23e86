// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import (
	"errors"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"
)

func ptr[T any](v T) *T { return &v }

func TestParseStatus(t *testing.T) {
	t.Parallel()

	updated := time.Date(2025, 5, 1, 12, 30, 0, 0, time.UTC)

	tests := map[string]struct {
		payload string
		want    *TaskStatus
		wantErr ErrorKind
		field   string
	}{
		"success: completed with result": {
			payload: `{"taskId":"t1","status":"completed","result":"done","updated_at":"2025-05-01T12:30:00Z"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateCompleted, Result: ptr("done"), UpdatedAt: updated},
		},
		"success: failed with error": {
			payload: `{"id":"t1","state":"failed","error":"boom"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateFailed, Error: ptr("boom")},
		},
		"success: result ignored unless completed": {
			payload: `{"taskId":"t1","status":"running","result":"partial","error":"x"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateRunning},
		},
		"success: error ignored when completed": {
			payload: `{"taskId":"t1","status":"completed","result":"ok","error":"stale"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateCompleted, Result: ptr("ok")},
		},
		"success: null result": {
			payload: `{"taskId":"t1","status":"completed","result":null}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateCompleted},
		},
		"success: structured result kept as json text": {
			payload: `{"taskId":"t1","status":"completed","result":{"a":1}}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateCompleted, Result: ptr(`{"a":1}`)},
		},
		"success: state aliases": {
			payload: `{"task_id":"t1","status":"processing"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStateRunning},
		},
		"success: unknown state passed through": {
			payload: `{"taskId":"t1","status":"paused"}`,
			want:    &TaskStatus{ID: "t1", State: "paused"},
		},
		"success: unix seconds timestamp": {
			payload: `{"taskId":"t1","status":"pending","updatedAt":1746102600}`,
			want:    &TaskStatus{ID: "t1", State: TaskStatePending, UpdatedAt: updated},
		},
		"success: unix millis timestamp": {
			payload: `{"taskId":"t1","status":"pending","updated_at":1746102600000}`,
			want:    &TaskStatus{ID: "t1", State: TaskStatePending, UpdatedAt: updated},
		},
		"success: offset timestamp normalized to utc": {
			payload: `{"taskId":"t1","status":"pending","updated_at":"2025-05-01T14:30:00+02:00"}`,
			want:    &TaskStatus{ID: "t1", State: TaskStatePending, UpdatedAt: updated},
		},
		"success: warnings and metadata": {
			payload: `{"taskId":"t1","status":"running","warnings":["slow"],"metadata":{"agents":2}}`,
			want: &TaskStatus{
				ID:       "t1",
				State:    TaskStateRunning,
				Warnings: []string{"slow"},
				Metadata: map[string]any{"agents": float64(2)},
			},
		},
		"error: missing id": {
			payload: `{"status":"running"}`,
			wantErr: KindDecode,
			field:   "id",
		},
		"error: missing state": {
			payload: `{"taskId":"t1"}`,
			wantErr: KindDecode,
			field:   "state",
		},
		"error: not json": {
			payload: `<html>`,
			wantErr: KindDecode,
		},
		"error: bad timestamp": {
			payload: `{"taskId":"t1","status":"running","updated_at":"yesterday"}`,
			wantErr: KindDecode,
			field:   "updated_at",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseStatus([]byte(tc.payload))
			if tc.wantErr != 0 {
				if got := KindOf(err); got != tc.wantErr {
					t.Fatalf("ParseStatus() error kind = %v, want %v (err = %v)", got, tc.wantErr, err)
				}
				var e *Error
				if errors.As(err, &e) && e.Field != tc.field {
					t.Errorf("ParseStatus() error field = %q, want %q", e.Field, tc.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStatus() error = %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("ParseStatus() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseStatus_MissingFieldSentinel(t *testing.T) {
	t.Parallel()

	_, err := ParseStatus([]byte(`{"status":"running"}`))
	if !errors.Is(err, ErrMissingField) {
		t.Errorf("ParseStatus() error = %v, want ErrMissingField", err)
	}
	if !errors.Is(err, ErrDecode) {
		t.Errorf("ParseStatus() error = %v, want ErrDecode", err)
	}
}

func TestTaskStatus_RoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]*TaskStatus{
		"completed": {ID: "t1", State: TaskStateCompleted, Result: ptr("42"), UpdatedAt: time.Date(2025, 1, 2, 3, 4, 5, 600, time.UTC)},
		"failed":    {ID: "t2", State: TaskStateFailed, Error: ptr("nope")},
		"running":   {ID: "t3", State: TaskStateRunning, Warnings: []string{"w"}},
		"cancelled": {ID: "t4", State: TaskStateCancelled},
	}

	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			var got TaskStatus
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("json.Unmarshal() error = %v", err)
			}
			if diff := cmp.Diff(want, &got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTaskState(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw      string
		want     TaskState
		terminal bool
		known    bool
	}{
		"pending":   {raw: "pending", want: TaskStatePending, known: true},
		"queued":    {raw: "queued", want: TaskStatePending, known: true},
		"working":   {raw: "Working", want: TaskStateRunning, known: true},
		"completed": {raw: "completed", want: TaskStateCompleted, terminal: true, known: true},
		"failed":    {raw: "failed", want: TaskStateFailed, terminal: true, known: true},
		"canceled":  {raw: "canceled", want: TaskStateCancelled, terminal: true, known: true},
		"unknown":   {raw: "paused", want: "paused"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := ParseTaskState(tc.raw)
			if got != tc.want {
				t.Errorf("ParseTaskState(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			if got.IsTerminal() != tc.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got.IsTerminal(), tc.terminal)
			}
			if got.Known() != tc.known {
				t.Errorf("Known() = %v, want %v", got.Known(), tc.known)
			}
		})
	}
}

func TestTaskStatus_Err(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status  *TaskStatus
		wantErr bool
		wantMsg string
	}{
		"success: completed":   {status: &TaskStatus{ID: "t", State: TaskStateCompleted}},
		"success: running":     {status: &TaskStatus{ID: "t", State: TaskStateRunning}},
		"error: failed":        {status: &TaskStatus{ID: "t", State: TaskStateFailed, Error: ptr("boom")}, wantErr: true, wantMsg: "boom"},
		"error: failed no msg": {status: &TaskStatus{ID: "t", State: TaskStateFailed}, wantErr: true, wantMsg: "task failed"},
		"error: cancelled":     {status: &TaskStatus{ID: "t", State: TaskStateCancelled}, wantErr: true, wantMsg: "task cancelled"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.status.Err()
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("Err() = %v, want nil", err)
				}
				return
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("Err() = %v, want *Error", err)
			}
			if e.Kind != KindTaskFailed || e.Message != tc.wantMsg || e.TaskID != "t" {
				t.Errorf("Err() = %+v, want kind %v with message %q", e, KindTaskFailed, tc.wantMsg)
			}
		})
	}
}

func TestCheckProgress(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	at := func(id string, ts time.Time) *TaskStatus {
		return &TaskStatus{ID: id, State: TaskStateRunning, UpdatedAt: ts}
	}

	tests := map[string]struct {
		prev, next *TaskStatus
		wantErr    bool
	}{
		"success: first status":       {next: at("t", t0)},
		"success: moves forward":      {prev: at("t", t0), next: at("t", t0.Add(time.Second))},
		"success: same timestamp":     {prev: at("t", t0), next: at("t", t0)},
		"success: missing timestamp":  {prev: at("t", t0), next: at("t", time.Time{})},
		"success: different task ids": {prev: at("a", t0), next: at("b", t0.Add(-time.Hour))},
		"error: moves backwards":      {prev: at("t", t0), next: at("t", t0.Add(-time.Second)), wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := CheckProgress(tc.prev, tc.next)
			if (err != nil) != tc.wantErr {
				t.Fatalf("CheckProgress() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, ErrDecode) {
				t.Errorf("CheckProgress() error = %v, want ErrDecode", err)
			}
		})
	}
}
