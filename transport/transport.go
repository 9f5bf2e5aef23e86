// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport moves requests and event streams between the client and the service.
//
// [HTTPTransport] talks to the real service. [MockTransport] synthesizes
// deterministic responses without any network access.
package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
	"time"

	taskforceai "github.com/taskforceai/taskforceai-go"
)

// Request is one request/response exchange.
type Request struct {
	Method string
	// Path is relative to the base URL and already escaped.
	Path  string
	Query url.Values
	// JSON, when non-nil, is encoded as the request body.
	JSON any
	// Body is sent as-is when JSON is nil.
	Body        io.Reader
	ContentType string
	Header      http.Header
}

// Response is a fully read successful response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// StreamRequest opens a server-sent-event stream.
type StreamRequest struct {
	Path string
	// LastEventID resumes after the given event when the server supports it.
	LastEventID string
}

// Event is one server-sent event.
type Event struct {
	ID    string
	Type  string
	Data  string
	Retry time.Duration
}

// EventSource is an open event stream. It is not safe for concurrent Next calls;
// Close may be called concurrently with Next.
type EventSource interface {
	// Next returns the next event, or io.EOF once the stream has ended or been closed.
	Next(ctx context.Context) (*Event, error)
	Close() error
}

// Transport is the external collaborator performing network I/O.
//
// Failures are reported as [*taskforceai.Error] values of kind
// [taskforceai.KindTransport] whose Retryable field drives the retry policy of
// the caller. Context cancellation is reported as the context error.
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
	OpenStream(ctx context.Context, req *StreamRequest) (EventSource, error)
}

// IsConnectionError reports whether err indicates a dropped or refused connection.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}

	var syscallErr *os.SyscallError
	if errors.As(err, &syscallErr) {
		return syscallErr.Err == syscall.EPIPE || syscallErr.Err == syscall.ECONNRESET || syscallErr.Err == syscall.ECONNREFUSED
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// isRetryableNetError classifies a failure that produced no HTTP status.
func isRetryableNetError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errConnectTimeout) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	return IsConnectionError(err)
}

// IsRetryableStatus reports whether an HTTP status may succeed on retry.
func IsRetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusRequestTimeout || code == http.StatusTooManyRequests
}

var errConnectTimeout = errors.New("stream connect timeout")

// networkError wraps a failure that produced no HTTP status.
// If the caller's context is done its error is returned instead.
func networkError(parent context.Context, op string, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	return &taskforceai.Error{
		Kind:      taskforceai.KindTransport,
		Op:        op,
		Retryable: isRetryableNetError(err),
		Err:       err,
	}
}

// StatusError builds the error for a non-2xx response.
func StatusError(op string, code int, body []byte) error {
	return &taskforceai.Error{
		Kind:       taskforceai.KindTransport,
		Op:         op,
		StatusCode: code,
		Retryable:  IsRetryableStatus(code),
		Message:    errorMessage(code, body),
	}
}
