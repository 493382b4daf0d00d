// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the delivery pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the delivery pipeline instruments.
type Metrics struct {
	DeliveriesTotal   *prometheus.CounterVec
	DeliveryLatency   prometheus.Histogram
	PendingDeliveries prometheus.Gauge
	DLQSize           prometheus.Gauge
	EventsEmitted     *prometheus.CounterVec
}

// NewMetrics creates the instruments and registers them on reg. Pass
// prometheus.DefaultRegisterer to use the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadwire",
			Name:      "deliveries_total",
			Help:      "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
		DeliveryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadwire",
			Name:      "delivery_latency_seconds",
			Help:      "Webhook delivery HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		PendingDeliveries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadwire",
			Name:      "pending_deliveries",
			Help:      "Deliveries currently waiting in the queue.",
		}),
		DLQSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadwire",
			Name:      "dlq_size",
			Help:      "Entries currently in the dead letter queue.",
		}),
		EventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadwire",
			Name:      "events_emitted_total",
			Help:      "Domain events emitted by name.",
		}, []string{"event"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.DeliveriesTotal,
			m.DeliveryLatency,
			m.PendingDeliveries,
			m.DLQSize,
			m.EventsEmitted,
		)
	}
	return m
}

// RecordDelivery counts one delivery attempt outcome and observes its latency.
func (m *Metrics) RecordDelivery(outcome string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabelValues(outcome).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordEvent counts one emitted domain event.
func (m *Metrics) RecordEvent(name string) {
	m.EventsEmitted.WithLabelValues(name).Inc()
}
