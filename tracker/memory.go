// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// MemoryStore is an in-memory [Store].
// Submissions are lost when the process stops.
type MemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]Submission
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		submissions: make(map[string]Submission),
	}
}

// Save implements [Store].
func (s *MemoryStore) Save(ctx context.Context, sub *Submission) error {
	if err := validate("save", sub); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions[sub.TaskID] = *sub
	return nil
}

// Get implements [Store].
func (s *MemoryStore) Get(ctx context.Context, taskID taskforceai.TaskID) (*Submission, error) {
	if taskID == "" {
		return nil, &StoreError{Operation: "get", Err: errors.New("task ID cannot be empty")}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[taskID]
	if !ok {
		return nil, &StoreError{Operation: "get", TaskID: taskID, Err: ErrNotFound}
	}
	return &sub, nil
}

// Delete implements [Store].
func (s *MemoryStore) Delete(ctx context.Context, taskID taskforceai.TaskID) error {
	if taskID == "" {
		return &StoreError{Operation: "delete", Err: errors.New("task ID cannot be empty")}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.submissions[taskID]; !ok {
		return &StoreError{Operation: "delete", TaskID: taskID, Err: ErrNotFound}
	}
	delete(s.submissions, taskID)
	return nil
}

// List implements [Store].
func (s *MemoryStore) List(ctx context.Context) ([]*Submission, error) {
	s.mu.RLock()
	subs := make([]*Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		sub := sub
		subs = append(subs, &sub)
	}
	s.mu.RUnlock()

	slices.SortFunc(subs, func(a, b *Submission) int {
		if c := a.SubmittedAt.Compare(b.SubmittedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.TaskID, b.TaskID)
	})
	return subs, nil
}

// Close implements [Store].
func (s *MemoryStore) Close() error {
	return nil
}
