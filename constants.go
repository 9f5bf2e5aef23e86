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

package taskforceai

import "time"

// Service paths and defaults.
// Paths are relative to the base URL, which already carries the API prefix.
const (
	// DefaultBaseURL is the production developer API endpoint.
	DefaultBaseURL = "https://taskforceai.chat/api/developer"

	// RunPath accepts task submissions.
	//
	// Example usage: POST https://taskforceai.chat/api/developer/run
	RunPath = "/run"

	// StatusPath is the prefix of the per-task status resource.
	//
	// Example usage: GET https://taskforceai.chat/api/developer/status/{taskId}
	StatusPath = "/status/"

	// StreamPath is the prefix of the per-task server-sent-event stream.
	//
	// Example usage: GET https://taskforceai.chat/api/developer/stream/{taskId}
	StreamPath = "/stream/"

	// FilesPath is the file collection.
	FilesPath = "/files"

	// ThreadsPath is the thread collection.
	ThreadsPath = "/threads"
)

// Header names sent on every request.
const (
	HeaderAPIKey      = "x-api-key"
	HeaderSDKLanguage = "X-SDK-Language"
	HeaderRequestID   = "X-Request-ID"
	HeaderLastEventID = "Last-Event-ID"

	// SDKLanguage is the value of [HeaderSDKLanguage].
	SDKLanguage = "go"
)

// Client defaults.
const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second

	// DefaultPollInterval is the wait between status fetches.
	DefaultPollInterval = time.Second

	// DefaultMaxPollAttempts bounds the number of status fetches of one wait.
	DefaultMaxPollAttempts = 60
)

// Version is the module version reported in the User-Agent header.
const Version = "0.4.0"
