// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/go-cmp/cmp"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/auth"
)

func newTestTransport(t *testing.T, handler http.HandlerFunc, opts *HTTPTransportOptions) *HTTPTransport {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	if opts == nil {
		opts = &HTTPTransportOptions{}
	}
	if opts.Credential == nil {
		opts.Credential = auth.APIKey("test-key")
	}
	opts.HTTPClient = srv.Client()
	tr, err := NewHTTPTransport(srv.URL+"/api/developer", opts)
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	return tr
}

func TestHTTPTransport_Send(t *testing.T) {
	t.Parallel()

	var got http.Header
	var body map[string]any
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		if r.URL.Path != "/api/developer/run" {
			t.Errorf("path = %q, want /api/developer/run", r.URL.Path)
		}
		if err := json.UnmarshalRead(r.Body, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"taskId":"t1"}`)
	}, nil)

	resp, err := tr.Send(t.Context(), &Request{
		Method: http.MethodPost,
		Path:   taskforceai.RunPath,
		JSON:   taskforceai.NewRunRequest("hello", &taskforceai.TaskSubmissionOptions{ModelID: "m1"}),
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if string(resp.Body) != `{"taskId":"t1"}` {
		t.Errorf("Body = %s", resp.Body)
	}

	wantHeaders := map[string]string{
		taskforceai.HeaderAPIKey:      "test-key",
		taskforceai.HeaderSDKLanguage: "go",
		"Content-Type":                "application/json",
		"Accept":                      "application/json",
		"User-Agent":                  DefaultUserAgent,
	}
	for k, want := range wantHeaders {
		if v := got.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
	if got.Get(taskforceai.HeaderRequestID) == "" {
		t.Errorf("header %s missing", taskforceai.HeaderRequestID)
	}
	if got.Get("Authorization") != "" {
		t.Errorf("Authorization header set on a JSON request")
	}

	wantBody := map[string]any{"prompt": "hello", "options": map[string]any{"modelId": "m1"}}
	if diff := cmp.Diff(wantBody, body); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPTransport_SendStatusErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		status    int
		body      string
		retryable bool
		message   string
	}{
		"error: unauthorized":      {status: 401, body: `{"error":"invalid api key"}`, message: "invalid api key"},
		"error: not found":         {status: 404, body: `{"message":"no such task"}`, message: "no such task"},
		"error: nested error":      {status: 400, body: `{"error":{"message":"bad prompt"}}`, message: "bad prompt"},
		"error: plain text":        {status: 502, body: "upstream down", retryable: true, message: "upstream down"},
		"error: empty body":        {status: 503, retryable: true, message: "Service Unavailable"},
		"error: too many requests": {status: 429, body: `{}`, retryable: true, message: "{}"},
		"error: request timeout":   {status: 408, retryable: true, message: "Request Timeout"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			}, nil)

			_, err := tr.Send(t.Context(), &Request{Method: http.MethodGet, Path: "/status/t1"})
			var e *taskforceai.Error
			if !errors.As(err, &e) {
				t.Fatalf("Send() error = %v, want *taskforceai.Error", err)
			}
			if e.Kind != taskforceai.KindTransport || e.StatusCode != tc.status {
				t.Errorf("Send() error = %+v, want transport error with status %d", e, tc.status)
			}
			if e.Retryable != tc.retryable {
				t.Errorf("Retryable = %v, want %v", e.Retryable, tc.retryable)
			}
			if e.Message != tc.message {
				t.Errorf("Message = %q, want %q", e.Message, tc.message)
			}
			if e.Op != "GET /status/{id}" {
				t.Errorf("Op = %q, want route template", e.Op)
			}
		})
	}
}

func TestHTTPTransport_SendTimeout(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, &HTTPTransportOptions{Timeout: 50 * time.Millisecond})

	_, err := tr.Send(t.Context(), &Request{Method: http.MethodGet, Path: "/status/t1"})
	if !taskforceai.IsRetryable(err) {
		t.Fatalf("Send() error = %v, want retryable transport error", err)
	}
}

func TestHTTPTransport_SendCancelled(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, nil)

	ctx, cancel := context.WithCancel(t.Context())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := tr.Send(ctx, &Request{Method: http.MethodGet, Path: "/status/t1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Send() error = %v, want context.Canceled", err)
	}
}

func TestHTTPTransport_SendConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	tr, err := NewHTTPTransport(base, &HTTPTransportOptions{Credential: auth.APIKey("k")})
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	_, err = tr.Send(t.Context(), &Request{Method: http.MethodGet, Path: "/status/t1"})
	if !taskforceai.IsRetryable(err) {
		t.Fatalf("Send() error = %v, want retryable transport error", err)
	}
}

func TestHTTPTransport_QueryAndEscaping(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{}`)
	}, nil)

	_, err := tr.Send(t.Context(), &Request{
		Method: http.MethodGet,
		Path:   taskforceai.StatusPath + url.PathEscape("a/b c"),
		Query:  url.Values{"limit": []string{"5"}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if want := "/api/developer/status/a%2Fb%20c"; gotPath != want {
		t.Errorf("path = %q, want %q", gotPath, want)
	}
	if gotQuery != "limit=5" {
		t.Errorf("query = %q, want limit=5", gotQuery)
	}
}

func TestHTTPTransport_ResponseHookAndInterceptors(t *testing.T) {
	t.Parallel()

	var hookStatus atomic.Int64
	var order []string
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Trace") != "abc" {
			t.Errorf("X-Trace header = %q", r.Header.Get("X-Trace"))
		}
		w.Header().Set("X-RateLimit-Remaining", "9")
		fmt.Fprint(w, `{}`)
	}, &HTTPTransportOptions{
		ResponseHook: func(status int, h http.Header) {
			hookStatus.Store(int64(status))
			if h.Get("X-RateLimit-Remaining") != "9" {
				t.Errorf("hook header = %q", h.Get("X-RateLimit-Remaining"))
			}
		},
		Interceptors: []Interceptor{
			func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
				order = append(order, "outer")
				req.Header.Set("X-Trace", "abc")
				return next(ctx, req)
			},
			func(ctx context.Context, req *http.Request, next Invoker) (*http.Response, error) {
				order = append(order, "inner")
				return next(ctx, req)
			},
		},
	})

	if _, err := tr.Send(t.Context(), &Request{Method: http.MethodGet, Path: "/files"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if hookStatus.Load() != http.StatusOK {
		t.Errorf("hook status = %d, want 200", hookStatus.Load())
	}
	if diff := cmp.Diff([]string{"outer", "inner"}, order); diff != "" {
		t.Errorf("interceptor order mismatch (-want +got):\n%s", diff)
	}
}

func TestHTTPTransport_OpenStream(t *testing.T) {
	t.Parallel()

	var got http.Header
	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		if r.URL.Path != "/api/developer/stream/t1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "id: 1\ndata: {\"taskId\":\"t1\",\"status\":\"running\"}\n\n")
		w.(http.Flusher).Flush()
		fmt.Fprint(w, "id: 2\ndata: {\"taskId\":\"t1\",\"status\":\"completed\"}\n\n")
	}, nil)

	src, err := tr.OpenStream(t.Context(), &StreamRequest{Path: "/stream/t1", LastEventID: "0"})
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer src.Close()

	var ids []string
	for {
		ev, err := src.Next(t.Context())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		ids = append(ids, ev.ID)
	}
	if diff := cmp.Diff([]string{"1", "2"}, ids); diff != "" {
		t.Errorf("event ids mismatch (-want +got):\n%s", diff)
	}

	wantHeaders := map[string]string{
		"Accept":                      "text/event-stream",
		"Authorization":               "Bearer test-key",
		taskforceai.HeaderAPIKey:      "test-key",
		taskforceai.HeaderLastEventID: "0",
	}
	for k, want := range wantHeaders {
		if v := got.Get(k); v != want {
			t.Errorf("header %s = %q, want %q", k, v, want)
		}
	}
}

func TestHTTPTransport_OpenStreamRejected(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}, nil)

	_, err := tr.OpenStream(t.Context(), &StreamRequest{Path: "/stream/t1"})
	var e *taskforceai.Error
	if !errors.As(err, &e) || e.StatusCode != http.StatusUnauthorized || e.Retryable {
		t.Fatalf("OpenStream() error = %v, want non-retryable 401", err)
	}
}

func TestHTTPTransport_StreamOutlivesTimeout(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		time.Sleep(150 * time.Millisecond)
		fmt.Fprint(w, "data: late\n\n")
	}, &HTTPTransportOptions{Timeout: 50 * time.Millisecond})

	src, err := tr.OpenStream(t.Context(), &StreamRequest{Path: "/stream/t1"})
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer src.Close()

	ev, err := src.Next(t.Context())
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if ev.Data != "late" {
		t.Errorf("Data = %q, want late", ev.Data)
	}
}

func TestHTTPEventSource_Close(t *testing.T) {
	t.Parallel()

	tr := newTestTransport(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}, nil)

	tests := map[string]func(src EventSource, cancel context.CancelFunc) error{
		"close unblocks next": func(src EventSource, _ context.CancelFunc) error {
			time.AfterFunc(20*time.Millisecond, func() { src.Close() })
			return io.EOF
		},
		"context cancel unblocks next": func(_ EventSource, cancel context.CancelFunc) error {
			time.AfterFunc(20*time.Millisecond, cancel)
			return context.Canceled
		},
	}

	for name, arrange := range tests {
		t.Run(name, func(t *testing.T) {
			src, err := tr.OpenStream(t.Context(), &StreamRequest{Path: "/stream/t1"})
			if err != nil {
				t.Fatalf("OpenStream() error = %v", err)
			}
			ctx, cancel := context.WithCancel(t.Context())
			defer cancel()

			want := arrange(src, cancel)
			if _, err := src.Next(ctx); !errors.Is(err, want) {
				t.Errorf("Next() error = %v, want %v", err, want)
			}
			if err := src.Close(); err != nil {
				t.Errorf("second Close() error = %v", err)
			}
			if _, err := src.Next(t.Context()); !errors.Is(err, io.EOF) {
				t.Errorf("Next() after Close error = %v, want io.EOF", err)
			}
		})
	}
}

func TestParseBaseURL(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		raw     string
		want    string
		wantErr bool
	}{
		"success: default":        {raw: taskforceai.DefaultBaseURL, want: taskforceai.DefaultBaseURL},
		"success: trailing slash": {raw: "http://localhost:8080/api/", want: "http://localhost:8080/api"},
		"error: empty":            {raw: " ", wantErr: true},
		"error: bad scheme":       {raw: "ftp://example.com", wantErr: true},
		"error: no host":          {raw: "https://", wantErr: true},
		"error: unparsable":       {raw: "http://[::1", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			u, err := ParseBaseURL(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, taskforceai.ErrInvalidConfig) {
					t.Fatalf("ParseBaseURL(%q) error = %v, want ErrInvalidConfig", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBaseURL(%q) error = %v", tc.raw, err)
			}
			if got := u.String(); got != tc.want {
				t.Errorf("ParseBaseURL(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestErrorMessage_Truncates(t *testing.T) {
	t.Parallel()

	got := errorMessage(500, []byte(strings.Repeat("x", maxErrorBody+10)))
	if len(got) != maxErrorBody+len("...") {
		t.Errorf("len(errorMessage()) = %d, want %d", len(got), maxErrorBody+3)
	}
}
