// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the TaskForceAI task lifecycle client.
//
// A [Client] submits prompts and follows the resulting tasks either by polling
// ([Client.WaitForCompletion]) or by a server-sent-event stream
// ([Client.StreamTaskStatus]). A Client is safe for concurrent use.
package client

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/auth"
	"github.com/taskforceai/taskforceai-go/internal/telemetry"
	"github.com/taskforceai/taskforceai-go/tracker"
	"github.com/taskforceai/taskforceai-go/transport"
)

// Client is the entry point to the TaskForceAI API.
type Client struct {
	transport    transport.Transport
	mockMode     bool
	pollDefaults PollOptions
	streamRetry  *RetryConfig
	tracker      tracker.Store

	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *telemetry.Metrics
}

// New creates a Client.
//
// Without mock mode an API key or credential is required; its absence is a
// [taskforceai.KindInvalidConfig] error.
func New(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	if !o.mockMode && o.credential == nil && strings.TrimSpace(o.apiKey) == "" {
		return nil, taskforceai.InvalidConfig("api_key", "API key is required unless mock mode is enabled")
	}

	c := &Client{
		mockMode:     o.mockMode,
		pollDefaults: o.pollDefaults,
		streamRetry:  o.streamRetry,
		tracker:      o.tracker,
		logger:       o.logger,
		tracer:       telemetry.Tracer(o.tracerProvider),
		metrics:      telemetry.NewMetrics(o.meterProvider),
	}

	switch {
	case o.transport != nil:
		c.transport = o.transport
	case o.mockMode:
		c.transport = transport.NewMockTransport()
		c.logger.Info("mock mode enabled, no requests will reach the network")
	default:
		credential := o.credential
		if credential == nil {
			credential = auth.APIKey(strings.TrimSpace(o.apiKey))
		}
		t, err := transport.NewHTTPTransport(o.baseURL, &transport.HTTPTransportOptions{
			HTTPClient:   o.httpClient,
			Credential:   credential,
			Timeout:      o.timeout,
			UserAgent:    o.userAgent,
			Interceptors: o.interceptors,
			ResponseHook: o.responseHook,
			Logger:       o.logger,
			Metrics:      c.metrics,
		})
		if err != nil {
			return nil, err
		}
		c.transport = t
	}

	return c, nil
}

// MockMode reports whether the client synthesizes responses locally.
func (c *Client) MockMode() bool {
	return c.mockMode
}

// Transport returns the transport requests are sent through.
func (c *Client) Transport() transport.Transport {
	return c.transport
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "taskforceai."+name, trace.WithSpanKind(trace.SpanKindClient), trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func taskAttr(id taskforceai.TaskID) attribute.KeyValue {
	return attribute.String("taskforceai.task_id", id)
}
