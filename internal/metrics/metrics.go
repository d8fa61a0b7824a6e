// Package metrics exposes counters for the ingest pipeline. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "f1telemetry"

type Metrics struct {
	gatherer prometheus.Gatherer

	packetsReceived prometheus.Counter
	packetsDropped  prometheus.Counter
	decodeErrors    prometheus.Counter
	packetsDecoded  *prometheus.CounterVec
	framesWritten   prometheus.Counter
	sessions        prometheus.Counter
	subscribers     prometheus.Gauge
}

// New creates the pipeline metrics and registers them with a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		gatherer: registry,

		packetsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Raw packets received from the live socket or a replay source.",
		}),
		packetsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_dropped_total",
			Help:      "Decoded packets dropped because a subscriber could not keep up.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Packets that could not be decoded.",
		}),
		packetsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_decoded_total",
			Help:      "Decoded packets by packet type.",
		}, []string{"type"}),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_frames_written_total",
			Help:      "Frames written to capture files.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Distinct game sessions observed.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Active decoded packet subscribers.",
		}),
	}

	registry.MustRegister(
		m.packetsReceived,
		m.packetsDropped,
		m.decodeErrors,
		m.packetsDecoded,
		m.framesWritten,
		m.sessions,
		m.subscribers,
		prometheus.NewGoCollector(),
	)

	return m
}

func (m *Metrics) PacketReceived() {
	if m == nil {
		return
	}

	m.packetsReceived.Inc()
}

func (m *Metrics) PacketDropped() {
	if m == nil {
		return
	}

	m.packetsDropped.Inc()
}

func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}

	m.decodeErrors.Inc()
}

func (m *Metrics) PacketDecoded(packetType string) {
	if m == nil {
		return
	}

	m.packetsDecoded.WithLabelValues(packetType).Inc()
}

func (m *Metrics) FrameWritten() {
	if m == nil {
		return
	}

	m.framesWritten.Inc()
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}

	m.sessions.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}

	m.subscribers.Set(float64(n))
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}

	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
