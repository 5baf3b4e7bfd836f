package webdb

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Option configures Open.
type Option func(*options)

type options struct {
	dir            string
	maxReaders     int
	logger         *slog.Logger
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
}

func defaultOptions() options {
	return options{
		logger:         slog.Default(),
		tracerProvider: otel.GetTracerProvider(),
	}
}

// WithDir stores the database file in dir. Without it the database lives
// in memory for as long as a handle to it is open.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithMaxReaders caps the number of concurrent read connections.
func WithMaxReaders(n int) Option {
	return func(o *options) {
		o.maxReaders = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics registers operation metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithTracerProvider sets the tracer provider.
// Default: the global OpenTelemetry provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}
