// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/auth"
	"github.com/taskforceai/taskforceai-go/internal/pool"
	"github.com/taskforceai/taskforceai-go/internal/telemetry"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 512

// ResponseHook observes the status and headers of every response, e.g. to read rate limit headers.
type ResponseHook func(statusCode int, header http.Header)

// HTTPTransportOptions provides options for the [NewHTTPTransport] constructor.
type HTTPTransportOptions struct {
	// HTTPClient is the client to use for making HTTP requests. If nil,
	// http.DefaultClient is used.
	HTTPClient *http.Client

	// Credential authenticates every request. If nil, no credential is sent.
	Credential auth.Credential

	// Timeout bounds each Send, and the connection phase of OpenStream.
	// Zero means [taskforceai.DefaultTimeout]; negative disables the bound.
	Timeout time.Duration

	UserAgent    string
	Interceptors []Interceptor
	ResponseHook ResponseHook
	Logger       *slog.Logger
	Metrics      *telemetry.Metrics
}

// HTTPTransport is the [Transport] for the TaskForceAI HTTP API.
type HTTPTransport struct {
	baseURL    *url.URL
	client     *http.Client
	credential auth.Credential
	timeout    time.Duration
	hook       ResponseHook
	metrics    *telemetry.Metrics
	invoker    Invoker
}

var _ Transport = (*HTTPTransport)(nil)

// DefaultUserAgent is sent when [HTTPTransportOptions.UserAgent] is empty.
var DefaultUserAgent = "taskforceai-go/" + taskforceai.Version

// NewHTTPTransport returns a transport for the API rooted at baseURL.
func NewHTTPTransport(baseURL string, opts *HTTPTransportOptions) (*HTTPTransport, error) {
	u, err := ParseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}

	t := &HTTPTransport{
		baseURL: u,
		client:  http.DefaultClient,
		timeout: taskforceai.DefaultTimeout,
	}
	var o HTTPTransportOptions
	if opts != nil {
		o = *opts
	}
	if o.HTTPClient != nil {
		t.client = o.HTTPClient
	}
	if o.Timeout != 0 {
		t.timeout = o.Timeout
	}
	t.credential = o.Credential
	if t.credential == nil {
		t.credential = auth.Anonymous{}
	}
	t.hook = o.ResponseHook
	t.metrics = o.Metrics

	userAgent := o.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	interceptors := []Interceptor{
		UserAgentInterceptor(userAgent),
		HeaderInterceptor(map[string]string{taskforceai.HeaderSDKLanguage: taskforceai.SDKLanguage}),
		RequestIDInterceptor(),
	}
	if o.Logger != nil {
		interceptors = append(interceptors, LoggingInterceptor(o.Logger))
	}
	interceptors = append(interceptors, o.Interceptors...)

	t.invoker = ChainInterceptors(interceptors, func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return t.client.Do(req.WithContext(ctx))
	})

	return t, nil
}

// ParseBaseURL validates an API base URL and strips its trailing slash.
func ParseBaseURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, taskforceai.InvalidConfig("base_url", "base URL cannot be empty")
	}
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, &taskforceai.Error{Kind: taskforceai.KindInvalidConfig, Field: "base_url", Err: err}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, taskforceai.InvalidConfig("base_url", fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, taskforceai.InvalidConfig("base_url", "base URL has no host")
	}
	return u, nil
}

// BaseURL returns the API root.
func (t *HTTPTransport) BaseURL() string {
	return t.baseURL.String()
}

func (t *HTTPTransport) url(path string, query url.Values) string {
	u := *t.baseURL
	p, rawQuery, _ := strings.Cut(path, "?")
	u.Path = u.Path + p
	u.RawPath = ""
	if unescaped, err := url.PathUnescape(u.Path); err == nil && unescaped != u.Path {
		u.RawPath = u.Path
		u.Path = unescaped
	}
	q, _ := url.ParseQuery(rawQuery)
	for k, vs := range query {
		q[k] = append(q[k], vs...)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (t *HTTPTransport) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, t.timeout)
}

// Send implements [Transport].
func (t *HTTPTransport) Send(ctx context.Context, r *Request) (*Response, error) {
	op := r.Method + " " + telemetry.Route(r.Path)

	body := r.Body
	contentType := r.ContentType
	if r.JSON != nil {
		buf := pool.Buffers.Get()
		defer pool.Buffers.Put(buf)
		if err := json.MarshalWrite(buf, r.JSON); err != nil {
			return nil, &taskforceai.Error{Kind: taskforceai.KindInvalidArgument, Op: op, Message: "encode request body", Err: err}
		}
		// The request may still be read after Send returns the buffer.
		body = bytes.NewReader(bytes.Clone(buf.Bytes()))
		contentType = "application/json"
	}
	if body == nil {
		body = http.NoBody
	}

	reqCtx, cancel := t.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, r.Method, t.url(r.Path, r.Query), body)
	if err != nil {
		return nil, &taskforceai.Error{Kind: taskforceai.KindInvalidArgument, Op: op, Message: "create request", Err: err}
	}
	for k, vs := range r.Header {
		req.Header[k] = vs
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if err := t.credential.Apply(req); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := t.invoker(reqCtx, req)
	if err != nil {
		t.metrics.RecordRequest(ctx, r.Method, r.Path, 0, time.Since(start))
		return nil, networkError(ctx, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	t.metrics.RecordRequest(ctx, r.Method, r.Path, resp.StatusCode, time.Since(start))
	if t.hook != nil {
		t.hook(resp.StatusCode, resp.Header)
	}
	if err != nil {
		return nil, networkError(ctx, op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, StatusError(op, resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// OpenStream implements [Transport].
//
// The transport timeout bounds only the wait for response headers; the
// returned stream lives until it ends, is closed, or ctx is done.
func (t *HTTPTransport) OpenStream(ctx context.Context, r *StreamRequest) (EventSource, error) {
	op := "GET " + telemetry.Route(r.Path)

	streamCtx, cancel := context.WithCancelCause(ctx)
	var timer *time.Timer
	if t.timeout > 0 {
		timer = time.AfterFunc(t.timeout, func() { cancel(errConnectTimeout) })
	}

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.url(r.Path, nil), http.NoBody)
	if err != nil {
		cancel(nil)
		return nil, &taskforceai.Error{Kind: taskforceai.KindInvalidArgument, Op: op, Message: "create request", Err: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if r.LastEventID != "" {
		req.Header.Set(taskforceai.HeaderLastEventID, r.LastEventID)
	}
	if err := t.credential.Apply(req); err != nil {
		cancel(nil)
		return nil, err
	}

	start := time.Now()
	resp, err := t.invoker(streamCtx, req)
	if timer != nil && !timer.Stop() && resp != nil {
		// The connect timeout fired after the headers arrived.
		resp.Body.Close()
		resp, err = nil, errConnectTimeout
	}
	if err != nil {
		t.metrics.RecordRequest(ctx, http.MethodGet, r.Path, 0, time.Since(start))
		if errors.Is(context.Cause(streamCtx), errConnectTimeout) {
			err = errConnectTimeout
		}
		cancel(nil)
		return nil, networkError(ctx, op, err)
	}
	t.metrics.RecordRequest(ctx, http.MethodGet, r.Path, resp.StatusCode, time.Since(start))
	if t.hook != nil {
		t.hook(resp.StatusCode, resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		cancel(nil)
		return nil, StatusError(op, resp.StatusCode, data)
	}

	return &httpEventSource{
		op:     op,
		body:   resp.Body,
		dec:    NewDecoder(resp.Body),
		cancel: cancel,
	}, nil
}

// httpEventSource reads events from a streaming response body.
type httpEventSource struct {
	op     string
	body   io.ReadCloser
	dec    *Decoder
	cancel context.CancelCauseFunc

	mu     sync.Mutex
	closed bool
}

var _ EventSource = (*httpEventSource)(nil)

func (s *httpEventSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Next implements [EventSource].
func (s *httpEventSource) Next(ctx context.Context) (*Event, error) {
	if s.isClosed() {
		return nil, io.EOF
	}

	// A blocked read only returns once the body is closed.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	ev, err := s.dec.Decode()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, io.EOF) || s.isClosed() {
			return nil, io.EOF
		}
		return nil, &taskforceai.Error{
			Kind:      taskforceai.KindTransport,
			Op:        s.op,
			Retryable: isRetryableNetError(err),
			Err:       err,
		}
	}
	return ev, nil
}

// Close implements [EventSource].
func (s *httpEventSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.body.Close()
	s.cancel(nil)
	return err
}

// errorMessage extracts a human readable message from an error body.
func errorMessage(code int, body []byte) string {
	var payload struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	if msg == "" {
		msg = http.StatusText(code)
	}
	return msg
}
