// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import "time"

// Thread is a persistent conversation on the service.
type Thread struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at,format:unix"`
	UpdatedAt time.Time `json:"updated_at,format:unix"`
}

// MessageRole is the author of a [ThreadMessage].
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ThreadMessage is one message of a thread.
type ThreadMessage struct {
	ID        int64       `json:"id"`
	ThreadID  int64       `json:"thread_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at,format:unix"`
}

// CreateThreadOptions seeds a new thread.
type CreateThreadOptions struct {
	Title    string          `json:"title,omitzero"`
	Messages []ThreadMessage `json:"messages,omitzero"`
	Metadata map[string]any  `json:"metadata,omitzero"`
}

// ThreadListResponse is one page of threads.
type ThreadListResponse struct {
	Threads []Thread `json:"threads"`
	Total   int64    `json:"total"`
}

// ThreadMessagesResponse is one page of thread messages.
type ThreadMessagesResponse struct {
	Messages []ThreadMessage `json:"messages"`
	Total    int64           `json:"total"`
}

// ThreadRunOptions submits a prompt within a thread.
type ThreadRunOptions struct {
	Prompt  string         `json:"prompt"`
	ModelID string         `json:"model_id,omitzero"`
	Options map[string]any `json:"options,omitzero"`
}

// ThreadRunResponse correlates a thread run with the task executing it.
type ThreadRunResponse struct {
	TaskID    TaskID `json:"task_id"`
	ThreadID  int64  `json:"thread_id"`
	MessageID int64  `json:"message_id"`
}
