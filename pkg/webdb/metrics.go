package webdb

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/chatui/pkg/idb"
)

const metricsNamespace = "chatui"

// metrics holds the Prometheus collectors for facade operations.
type metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	open       prometheus.Gauge
}

// newMetrics registers the collectors with reg. Handles sharing a registry
// share the collectors.
func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		return nil
	}
	return &metrics{
		operations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "webdb",
			Name:      "operations_total",
			Help:      "Total number of storage operations by store, operation and outcome",
		}, []string{"database", "store", "op", "status"})),

		duration: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "webdb",
			Name:      "operation_duration_seconds",
			Help:      "Storage operation duration in seconds, including transaction scheduling",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"database", "op"})),

		open: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "webdb",
			Name:      "open_connections",
			Help:      "Number of open database handles",
		})),
	}
}

// register adds c to reg, or returns the collector already registered
// under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *metrics) observe(database, store, op string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(database, store, op, status(err)).Inc()
	m.duration.WithLabelValues(database, op).Observe(elapsed.Seconds())
}

func (m *metrics) opened() {
	if m != nil {
		m.open.Inc()
	}
}

func (m *metrics) closed() {
	if m != nil {
		m.open.Dec()
	}
}

// status labels an outcome with the engine error name, or "ok".
func status(err error) string {
	if err == nil {
		return "ok"
	}
	var ierr *idb.Error
	if errors.As(err, &ierr) {
		return ierr.Name
	}
	return "error"
}
