// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package taskforceai holds the data model shared by the TaskForceAI client packages.
//
// A task is submitted once and identified by the returned [TaskID]. Its
// progress is observed as a series of [TaskStatus] values, each decoded with
// [ParseStatus]. A task moves from pending to running and then to exactly one
// of the terminal states completed, failed, or cancelled.
//
// The client itself lives in package client; package transport carries the
// HTTP and server-sent-event plumbing.
package taskforceai
