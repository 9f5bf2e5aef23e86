// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// TaskID is the opaque identifier assigned by the service at submission.
type TaskID = string

// TaskState is the lifecycle state of a task.
//
// The five named states form a closed set. Any other wire value is kept verbatim
// and reported by [TaskState.Known] as false; such states are never terminal.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

var stateAliases = map[string]TaskState{
	"pending":    TaskStatePending,
	"queued":     TaskStatePending,
	"submitted":  TaskStatePending,
	"running":    TaskStateRunning,
	"processing": TaskStateRunning,
	"working":    TaskStateRunning,
	"completed":  TaskStateCompleted,
	"failed":     TaskStateFailed,
	"cancelled":  TaskStateCancelled,
	"canceled":   TaskStateCancelled,
}

// ParseTaskState maps a wire value to a TaskState.
// Unrecognized values are returned unchanged.
func ParseTaskState(raw string) TaskState {
	if s, ok := stateAliases[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s
	}
	return TaskState(raw)
}

// Known reports whether s is one of the five named states.
func (s TaskState) Known() bool {
	switch s {
	case TaskStatePending, TaskStateRunning, TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether s is completed, failed, or cancelled.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateFailed || s == TaskStateCancelled
}

// String implements [fmt.Stringer].
func (s TaskState) String() string {
	return string(s)
}

// TaskStatus is one observation of a task.
//
// A TaskStatus is built fresh from every fetch or stream event and is never
// updated in place.
type TaskStatus struct {
	ID    TaskID
	State TaskState
	// Result is set only when State is completed.
	Result *string
	// Error is set only when State is failed.
	Error *string
	// UpdatedAt is the server timestamp, or the zero time if the payload had none.
	UpdatedAt time.Time
	Warnings  []string
	Metadata  map[string]any
}

// statusWire accepts both the snake and camel spellings the service has used.
type statusWire struct {
	ID             string         `json:"id,omitzero"`
	TaskID         string         `json:"taskId,omitzero"`
	TaskIDSnake    string         `json:"task_id,omitzero"`
	State          string         `json:"state,omitzero"`
	Status         string         `json:"status,omitzero"`
	Result         jsontext.Value `json:"result,omitzero"`
	Error          jsontext.Value `json:"error,omitzero"`
	UpdatedAt      jsontext.Value `json:"updated_at,omitzero"`
	UpdatedAtCamel jsontext.Value `json:"updatedAt,omitzero"`
	Warnings       []string       `json:"warnings,omitzero"`
	Metadata       map[string]any `json:"metadata,omitzero"`
}

// ParseStatus decodes a status payload.
//
// Unknown members are ignored. A payload without a task id or a state yields a
// [KindDecode] error wrapping [ErrMissingField].
func ParseStatus(payload []byte) (*TaskStatus, error) {
	var w statusWire
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, DecodeError("parse status", err)
	}

	id := firstNonEmpty(w.ID, w.TaskID, w.TaskIDSnake)
	if id == "" {
		return nil, MissingField("id")
	}
	rawState := firstNonEmpty(w.State, w.Status)
	if strings.TrimSpace(rawState) == "" {
		return nil, MissingField("state")
	}

	st := &TaskStatus{
		ID:       id,
		State:    ParseTaskState(rawState),
		Warnings: w.Warnings,
		Metadata: w.Metadata,
	}

	switch st.State {
	case TaskStateCompleted:
		st.Result = textValue(w.Result)
	case TaskStateFailed:
		st.Error = textValue(w.Error)
	}

	ts := w.UpdatedAt
	if len(ts) == 0 {
		ts = w.UpdatedAtCamel
	}
	updated, err := parseTimestamp(ts)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Op: "parse status", TaskID: id, Field: "updated_at", Err: err}
	}
	st.UpdatedAt = updated

	return st, nil
}

// UnmarshalJSON implements [json.Unmarshaler] using [ParseStatus].
func (s *TaskStatus) UnmarshalJSON(b []byte) error {
	st, err := ParseStatus(b)
	if err != nil {
		return err
	}
	*s = *st
	return nil
}

type statusOut struct {
	TaskID    string         `json:"taskId"`
	Status    string         `json:"status"`
	Result    *string        `json:"result,omitempty"`
	Error     *string        `json:"error,omitempty"`
	UpdatedAt string         `json:"updatedAt,omitzero"`
	Warnings  []string       `json:"warnings,omitzero"`
	Metadata  map[string]any `json:"metadata,omitzero"`
}

// MarshalJSON implements [json.Marshaler]. The output parses back to an equal TaskStatus.
func (s *TaskStatus) MarshalJSON() ([]byte, error) {
	out := statusOut{
		TaskID:   s.ID,
		Status:   string(s.State),
		Warnings: s.Warnings,
		Metadata: s.Metadata,
	}
	if s.State == TaskStateCompleted {
		out.Result = s.Result
	}
	if s.State == TaskStateFailed {
		out.Error = s.Error
	}
	if !s.UpdatedAt.IsZero() {
		out.UpdatedAt = s.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// Err returns a [KindTaskFailed] error for a failed or cancelled task, and nil otherwise.
func (s *TaskStatus) Err() error {
	switch s.State {
	case TaskStateFailed:
		msg := "task failed"
		if s.Error != nil && *s.Error != "" {
			msg = *s.Error
		}
		return &Error{Kind: KindTaskFailed, TaskID: s.ID, Message: msg}
	case TaskStateCancelled:
		return &Error{Kind: KindTaskFailed, TaskID: s.ID, Message: "task cancelled"}
	}
	return nil
}

// CheckProgress verifies that next does not move a task's updated_at backwards.
// Observations of different tasks, or without timestamps, always pass.
func CheckProgress(prev, next *TaskStatus) error {
	if prev == nil || next == nil || prev.ID != next.ID {
		return nil
	}
	if prev.UpdatedAt.IsZero() || next.UpdatedAt.IsZero() {
		return nil
	}
	if next.UpdatedAt.Before(prev.UpdatedAt) {
		return &Error{
			Kind:    KindDecode,
			Op:      "check progress",
			TaskID:  next.ID,
			Field:   "updated_at",
			Message: fmt.Sprintf("%s precedes %s", next.UpdatedAt.Format(time.RFC3339Nano), prev.UpdatedAt.Format(time.RFC3339Nano)),
		}
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// textValue returns a string member as-is and any other non-null member as its JSON text.
func textValue(v jsontext.Value) *string {
	if len(v) == 0 {
		return nil
	}
	switch v.Kind() {
	case 'n':
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil
		}
		return &s
	}
	s := string(v)
	return &s
}

// unixMillisThreshold separates unix seconds from unix milliseconds.
const unixMillisThreshold = 1e12

func parseTimestamp(v jsontext.Value) (time.Time, error) {
	if len(v) == 0 {
		return time.Time{}, nil
	}
	switch v.Kind() {
	case 'n':
		return time.Time{}, nil
	case '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, err
		}
		return t.UTC(), nil
	case '0':
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return time.Time{}, err
		}
		if f >= unixMillisThreshold {
			return time.UnixMilli(int64(f)).UTC(), nil
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %s", v)
}
