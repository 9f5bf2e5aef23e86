// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker records in-flight task submissions.
//
// A submission is saved when the service accepts it and deleted once a
// terminal status is observed, so a process can resume waiting on tasks it
// submitted before a restart. Nothing else about a task is kept.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// Submission correlates a task id with the request that created it.
type Submission struct {
	TaskID      taskforceai.TaskID
	Prompt      string
	ModelID     string
	SubmittedAt time.Time
}

// Store persists in-flight submissions. Implementations are safe for concurrent use.
type Store interface {
	// Save records s, replacing any submission with the same task id.
	Save(ctx context.Context, s *Submission) error

	// Get returns the submission of taskID, or ErrNotFound.
	Get(ctx context.Context, taskID taskforceai.TaskID) (*Submission, error)

	// Delete removes the submission of taskID, or returns ErrNotFound.
	Delete(ctx context.Context, taskID taskforceai.TaskID) error

	// List returns all submissions, oldest first.
	List(ctx context.Context) ([]*Submission, error)

	// Close releases the resources of the store.
	Close() error
}

// ErrNotFound is returned for unknown task ids.
var ErrNotFound = errors.New("submission not found")

// StoreError represents an error from the submission store.
type StoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// Error returns the error message.
func (e *StoreError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("tracker %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("tracker %s %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

func validate(op string, s *Submission) error {
	if s == nil {
		return &StoreError{Operation: op, Err: errors.New("submission cannot be nil")}
	}
	if s.TaskID == "" {
		return &StoreError{Operation: op, Err: errors.New("task ID cannot be empty")}
	}
	return nil
}
