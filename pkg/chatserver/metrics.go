package chatserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the server metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "chatui").
	Namespace string

	// Subsystem is the metrics subsystem (default: "chat").
	Subsystem string

	// Buckets are the histogram buckets for reply duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "chatui",
		Subsystem: "chat",
		Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		Registry:  prometheus.DefaultRegisterer,
	}
}

type metrics struct {
	connections   prometheus.Gauge
	prompts       *prometheus.CounterVec
	chunks        prometheus.Counter
	replyDuration *prometheus.HistogramVec
}

func newMetrics(config MetricsConfig) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "active_connections",
			Help:      "Number of open chat websocket connections",
		}),

		prompts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "prompts_total",
			Help:      "Total number of prompts by model and outcome",
		}, []string{"model", "status"}),

		chunks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "reply_chunks_total",
			Help:      "Total number of reply chunks streamed to clients",
		}),

		replyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Subsystem: config.Subsystem,
			Name:      "reply_duration_seconds",
			Help:      "Time from prompt to end of reply in seconds",
			Buckets:   config.Buckets,
		}, []string{"model"}),
	}
}
