package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "flowdeck"

// Metrics holds session and debug stream collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	operations     *prometheus.CounterVec
	openTabs       prometheus.Gauge
	streamsOpened  prometheus.Counter
	streamEvents   prometheus.Counter
	streamDropped  prometheus.Counter
	streamFailures prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_operations_total",
			Help:      "Session operations by name and outcome.",
		}, []string{"op", "outcome"}),
		openTabs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_open_tabs",
			Help:      "Number of open editor tabs.",
		}),
		streamsOpened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debug_streams_total",
			Help:      "Debug run streams started.",
		}),
		streamEvents: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debug_stream_events_total",
			Help:      "Debug events delivered to consumers.",
		}),
		streamDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debug_stream_dropped_lines_total",
			Help:      "Debug stream payload lines that failed to decode.",
		}),
		streamFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debug_stream_failures_total",
			Help:      "Debug streams that ended with an error.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveOperation counts one session operation.
func (m *Metrics) ObserveOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

// SetOpenTabs records the number of open tabs.
func (m *Metrics) SetOpenTabs(n int) {
	m.openTabs.Set(float64(n))
}

// StreamOpened counts a started debug stream.
func (m *Metrics) StreamOpened() { m.streamsOpened.Inc() }

// EventDelivered counts a delivered debug event.
func (m *Metrics) EventDelivered() { m.streamEvents.Inc() }

// LineDropped counts an undecodable payload line.
func (m *Metrics) LineDropped() { m.streamDropped.Inc() }

// StreamFailed counts a stream that ended with an error.
func (m *Metrics) StreamFailed() { m.streamFailures.Inc() }
