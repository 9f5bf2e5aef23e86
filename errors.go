// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package taskforceai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an [*Error].
type ErrorKind int

const (
	// KindInvalidConfig reports a client construction error such as a missing API key.
	KindInvalidConfig ErrorKind = iota + 1
	// KindInvalidArgument reports a rejected call argument. No request is sent.
	KindInvalidArgument
	// KindTransport reports a network or HTTP failure.
	KindTransport
	// KindDecode reports a malformed payload.
	KindDecode
	// KindTimeout reports that polling exhausted its attempts without a terminal status.
	KindTimeout
	// KindStreamDisconnected reports that a status stream exhausted its reconnect budget.
	KindStreamDisconnected
	// KindTaskFailed is produced by [TaskStatus.Err] for failed or cancelled tasks.
	KindTaskFailed
)

var kindNames = map[ErrorKind]string{
	KindInvalidConfig:      "invalid config",
	KindInvalidArgument:    "invalid argument",
	KindTransport:          "transport error",
	KindDecode:             "decode error",
	KindTimeout:            "timeout",
	KindStreamDisconnected: "stream disconnected",
	KindTaskFailed:         "task failed",
}

// String implements [fmt.Stringer].
func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is the error type returned by every operation of this module.
//
// Use [errors.Is] with the Err* sentinels to match on [ErrorKind], or [errors.As]
// to inspect the fields.
type Error struct {
	Kind ErrorKind
	// Op names the failing operation, e.g. "submit task".
	Op     string
	TaskID string
	// Attempts is set for KindTimeout.
	Attempts int
	// StatusCode is the HTTP status for KindTransport, zero for network failures.
	StatusCode int
	// Field is the missing or invalid field for KindDecode and KindInvalidArgument.
	Field string
	// Retryable reports whether a KindTransport failure may succeed on retry.
	Retryable bool
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	switch {
	case e.Kind == KindTimeout:
		fmt.Fprintf(&b, ": task %s not terminal after %d attempts", e.TaskID, e.Attempts)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	case e.TaskID != "":
		fmt.Fprintf(&b, ": task %s", e.TaskID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for Error by comparing kinds.
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Kind == targetErr.Kind
	}
	return false
}

// Sentinel errors for use with [errors.Is].
var (
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
	ErrInvalidArgument    = &Error{Kind: KindInvalidArgument}
	ErrTransport          = &Error{Kind: KindTransport}
	ErrDecode             = &Error{Kind: KindDecode}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrStreamDisconnected = &Error{Kind: KindStreamDisconnected}
	ErrTaskFailed         = &Error{Kind: KindTaskFailed}

	// ErrMissingField is wrapped by decode errors for payloads lacking a required field.
	ErrMissingField = errors.New("missing field")
)

// InvalidConfig returns a KindInvalidConfig error for field.
func InvalidConfig(field, message string) *Error {
	return &Error{Kind: KindInvalidConfig, Field: field, Message: message}
}

// InvalidArgument returns a KindInvalidArgument error for field.
func InvalidArgument(op, field, message string) *Error {
	return &Error{Kind: KindInvalidArgument, Op: op, Field: field, Message: message}
}

// DecodeError returns a KindDecode error wrapping err.
func DecodeError(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}

// MissingField returns a KindDecode error for an absent required field.
func MissingField(field string) *Error {
	return &Error{Kind: KindDecode, Op: "parse status", Field: field, Err: ErrMissingField}
}

// IsRetryable reports whether err is a transport failure marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindTransport && e.Retryable
	}
	return false
}

// KindOf returns the [ErrorKind] of err, or zero when err is not an [*Error].
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
