// Copyright 2025 The Go A2A Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"math/rand/v2"
	"time"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// RetryConfig configures the reconnect behavior of status streams.
type RetryConfig struct {
	// MaxAttempts is the maximum number of reconnects without progress. The
	// count restarts when a status changes state or carries a newer timestamp.
	// Zero disables reconnection.
	MaxAttempts int
	// InitialDelay is the initial delay between reconnects.
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between reconnects.
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier.
	Multiplier float64
	// RetryableErrors defines which errors should trigger a reconnect.
	// If nil, [taskforceai.IsRetryable] is used.
	RetryableErrors func(error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     5,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		Multiplier:      2.0,
		RetryableErrors: taskforceai.IsRetryable,
	}
}

func (c *RetryConfig) retryable(err error) bool {
	if c.RetryableErrors != nil {
		return c.RetryableErrors(err)
	}
	return taskforceai.IsRetryable(err)
}

// backoff yields exponentially growing delays with 10% jitter.
type backoff struct {
	config *RetryConfig
	delay  time.Duration
}

func newBackoff(config *RetryConfig) *backoff {
	return &backoff{config: config, delay: config.InitialDelay}
}

// next returns the delay before the upcoming attempt and grows the following one.
func (b *backoff) next() time.Duration {
	delay := b.delay

	// Add jitter to delay (10% variance)
	jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
	actualDelay := delay + jitter

	// Calculate next delay with exponential backoff
	multiplier := b.config.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	b.delay = time.Duration(float64(b.delay) * multiplier)
	if b.config.MaxDelay > 0 && b.delay > b.config.MaxDelay {
		b.delay = b.config.MaxDelay
	}

	return actualDelay
}

func (b *backoff) reset() {
	b.delay = b.config.InitialDelay
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
