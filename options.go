// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import (
	"strings"
	"time"
)

// ClientOptions is the plain configuration of a client.
// Zero fields take the package defaults.
type ClientOptions struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	MockMode bool
}

// ImageAttachment is a base64 encoded image sent alongside a prompt.
type ImageAttachment struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
	Name     string `json:"name,omitzero"`
}

// TaskSubmissionOptions tunes how a task is executed.
type TaskSubmissionOptions struct {
	ModelID     string            `json:"modelId,omitzero"`
	Silent      bool              `json:"silent,omitzero"`
	Mock        bool              `json:"mock,omitzero"`
	VercelAIKey string            `json:"vercelAiKey,omitzero"`
	Images      []ImageAttachment `json:"-"`
	// Additional members are merged into the options object as-is.
	Additional map[string]any `json:",inline"`
}

// RunRequest is the body of a task submission.
type RunRequest struct {
	Prompt      string                 `json:"prompt"`
	Options     *TaskSubmissionOptions `json:"options,omitzero"`
	Attachments []ImageAttachment      `json:"attachments,omitzero"`
}

// NewRunRequest builds the submission body for prompt.
func NewRunRequest(prompt string, opts *TaskSubmissionOptions) *RunRequest {
	req := &RunRequest{Prompt: prompt, Options: opts}
	if opts != nil && len(opts.Images) > 0 {
		req.Attachments = opts.Images
	}
	return req
}

// RunResponse is the reply to a task submission.
type RunResponse struct {
	TaskID TaskID `json:"taskId"`
}

// ValidatePrompt rejects empty and whitespace-only prompts.
func ValidatePrompt(op, prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return InvalidArgument(op, "prompt", "prompt must not be empty")
	}
	return nil
}

// ValidateTaskID rejects empty and whitespace-only task ids.
func ValidateTaskID(op string, id TaskID) error {
	if strings.TrimSpace(id) == "" {
		return InvalidArgument(op, "task_id", "task id must not be empty")
	}
	return nil
}
