// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	taskforceai "github.com/taskforceai/taskforceai-go"
	"github.com/taskforceai/taskforceai-go/auth"
	"github.com/taskforceai/taskforceai-go/tracker"
	"github.com/taskforceai/taskforceai-go/transport"
)

// Option configures a [Client].
type Option func(*options) error

// options holds all configuration for a Client.
type options struct {
	// Core configuration
	apiKey     string
	baseURL    string
	timeout    time.Duration
	mockMode   bool
	httpClient *http.Client
	transport  transport.Transport
	credential auth.Credential

	// Request plumbing
	userAgent    string
	interceptors []transport.Interceptor
	responseHook transport.ResponseHook

	// Lifecycle controllers
	pollDefaults PollOptions
	streamRetry  *RetryConfig
	tracker      tracker.Store

	// Observability
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// defaultOptions returns default client options.
func defaultOptions() *options {
	return &options{
		baseURL: taskforceai.DefaultBaseURL,
		timeout: taskforceai.DefaultTimeout,
		pollDefaults: PollOptions{
			Interval:    taskforceai.DefaultPollInterval,
			MaxAttempts: taskforceai.DefaultMaxPollAttempts,
		},
		streamRetry: DefaultRetryConfig(),
		logger:      slog.New(slog.DiscardHandler),
	}
}

func invalid(field, message string) error {
	return taskforceai.InvalidConfig(field, message)
}

// WithOptions applies a plain [taskforceai.ClientOptions]. Zero fields keep their current value.
func WithOptions(o taskforceai.ClientOptions) Option {
	return func(opts *options) error {
		if o.APIKey != "" {
			opts.apiKey = o.APIKey
		}
		if o.BaseURL != "" {
			opts.baseURL = o.BaseURL
		}
		if o.Timeout < 0 {
			return invalid("timeout", "timeout must be positive")
		}
		if o.Timeout > 0 {
			opts.timeout = o.Timeout
		}
		if o.MockMode {
			opts.mockMode = true
		}
		return nil
	}
}

// WithAPIKey sets the developer API key.
func WithAPIKey(key string) Option {
	return func(o *options) error {
		o.apiKey = key
		return nil
	}
}

// WithBaseURL sets the API root.
func WithBaseURL(url string) Option {
	return func(o *options) error {
		if url == "" {
			return invalid("base_url", "base URL cannot be empty")
		}
		o.baseURL = url
		return nil
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) error {
		if timeout <= 0 {
			return invalid("timeout", "timeout must be positive")
		}
		o.timeout = timeout
		return nil
	}
}

// WithMockMode replaces the network with [transport.MockTransport].
func WithMockMode(enable bool) Option {
	return func(o *options) error {
		o.mockMode = enable
		return nil
	}
}

// WithHTTPClient sets the [*http.Client] used by the HTTP transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) error {
		if client == nil {
			return invalid("http_client", "HTTP client cannot be nil")
		}
		o.httpClient = client
		return nil
	}
}

// WithTransport sets a custom transport. It takes precedence over mock mode and the HTTP settings.
func WithTransport(t transport.Transport) Option {
	return func(o *options) error {
		if t == nil {
			return invalid("transport", "transport cannot be nil")
		}
		o.transport = t
		return nil
	}
}

// WithCredential sets the credential in place of the API key.
func WithCredential(c auth.Credential) Option {
	return func(o *options) error {
		if c == nil {
			return invalid("credential", "credential cannot be nil")
		}
		o.credential = c
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(o *options) error {
		o.userAgent = userAgent
		return nil
	}
}

// WithInterceptors adds HTTP interceptors, outermost first.
func WithInterceptors(interceptors ...transport.Interceptor) Option {
	return func(o *options) error {
		for i, interceptor := range interceptors {
			if interceptor == nil {
				return invalid("interceptor", fmt.Sprintf("interceptor at index %d cannot be nil", i))
			}
		}
		o.interceptors = append(o.interceptors, interceptors...)
		return nil
	}
}

// WithResponseHook observes the status and headers of every HTTP response.
func WithResponseHook(hook transport.ResponseHook) Option {
	return func(o *options) error {
		o.responseHook = hook
		return nil
	}
}

// WithPollDefaults sets the polling configuration used when a call passes nil [*PollOptions].
func WithPollDefaults(p PollOptions) Option {
	return func(o *options) error {
		resolved, err := p.resolve(o.pollDefaults)
		if err != nil {
			return invalid("poll", err.Error())
		}
		o.pollDefaults = resolved
		return nil
	}
}

// WithStreamRetry sets the reconnect policy of status streams.
func WithStreamRetry(config *RetryConfig) Option {
	return func(o *options) error {
		if config == nil {
			return invalid("stream_retry", "retry config cannot be nil")
		}
		if config.MaxAttempts < 0 {
			return invalid("stream_retry.max_attempts", "max attempts must be non-negative")
		}
		if config.Multiplier != 0 && config.Multiplier < 1 {
			return invalid("stream_retry.multiplier", "multiplier must be at least 1")
		}
		o.streamRetry = config
		return nil
	}
}

// WithTracker records in-flight submissions in s until a terminal status is observed.
func WithTracker(s tracker.Store) Option {
	return func(o *options) error {
		if s == nil {
			return invalid("tracker", "tracker cannot be nil")
		}
		o.tracker = s
		return nil
	}
}

// WithLogger sets the [*slog.Logger] for the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			return invalid("logger", "logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithTracerProvider sets the [trace.TracerProvider] for the [Client].
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) error {
		o.tracerProvider = tp
		return nil
	}
}

// WithMeterProvider sets the [metric.MeterProvider] for the [Client].
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) error {
		o.meterProvider = mp
		return nil
	}
}
