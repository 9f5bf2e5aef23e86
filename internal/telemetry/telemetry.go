// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry holds the OpenTelemetry instruments of the client.
package telemetry

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName is the instrumentation scope of every meter and tracer.
const ScopeName = "github.com/taskforceai/taskforceai-go"

// Metrics records request and task lifecycle measurements.
// A nil *Metrics records nothing.
type Metrics struct {
	requests     metric.Int64Counter
	latency      metric.Float64Histogram
	pollAttempts metric.Int64Counter
	reconnects   metric.Int64Counter
	streamEvents metric.Int64Counter
}

// NewMetrics creates the instruments from mp, or from the global provider when mp is nil.
// Instruments that fail to register fall back to no-ops.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	m := mp.Meter(ScopeName)
	ms := &Metrics{}

	var err error
	ms.requests, err = m.Int64Counter("taskforceai.client.requests",
		metric.WithDescription("Count of HTTP requests sent"),
	)
	if err != nil {
		otel.Handle(err)
		ms.requests = noop.Int64Counter{}
	}

	ms.latency, err = m.Float64Histogram("taskforceai.client.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		otel.Handle(err)
		ms.latency = noop.Float64Histogram{}
	}

	ms.pollAttempts, err = m.Int64Counter("taskforceai.client.poll.attempts",
		metric.WithDescription("Count of status fetches made while waiting for completion"),
	)
	if err != nil {
		otel.Handle(err)
		ms.pollAttempts = noop.Int64Counter{}
	}

	ms.reconnects, err = m.Int64Counter("taskforceai.client.stream.reconnects",
		metric.WithDescription("Count of status stream reconnect attempts"),
	)
	if err != nil {
		otel.Handle(err)
		ms.reconnects = noop.Int64Counter{}
	}

	ms.streamEvents, err = m.Int64Counter("taskforceai.client.stream.events",
		metric.WithDescription("Count of status stream items delivered"),
	)
	if err != nil {
		otel.Handle(err)
		ms.streamEvents = noop.Int64Counter{}
	}

	return ms
}

// RecordRequest records one completed HTTP exchange. status is zero for network failures.
func (m *Metrics) RecordRequest(ctx context.Context, method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("http.route", Route(path)),
		attribute.String("http.response.status_class", statusClass(status)),
	)
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, d.Seconds(), attrs)
}

// RecordPollAttempt records one status fetch and the state it observed.
func (m *Metrics) RecordPollAttempt(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.pollAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("task.state", state)))
}

// RecordReconnect records one reconnect attempt with its outcome.
func (m *Metrics) RecordReconnect(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.reconnects.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordStreamEvent records one stream item of the given kind.
func (m *Metrics) RecordStreamEvent(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.streamEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Tracer returns the client tracer from tp, or from the global provider when tp is nil.
func Tracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(ScopeName)
}

// Route reduces a request path to its first segment so task and file ids stay out of metric attributes.
func Route(path string) string {
	path, _, _ = strings.Cut(path, "?")
	trimmed := strings.TrimPrefix(path, "/")
	first, rest, _ := strings.Cut(trimmed, "/")
	if rest == "" {
		return "/" + first
	}
	return "/" + first + "/{id}"
}

func statusClass(status int) string {
	if status == 0 {
		return "error"
	}
	return strconv.Itoa(status/100) + "xx"
}
