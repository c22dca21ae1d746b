package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DeliveryMetrics records outcomes of the notification pipeline.
type DeliveryMetrics struct {
	attempts  *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	published *prometheus.CounterVec
	dlq       *prometheus.CounterVec
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_delivery_attempts_total",
		Help: "Delivery attempts by channel and outcome.",
	}, []string{"channel", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_provider_latency_seconds",
		Help:    "Provider call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"channel"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_outbox_published_total",
		Help: "Outbox rows published by topic.",
	}, []string{"topic"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_dlq_total",
		Help: "Requests parked in the dead letter queue by reason.",
	}, []string{"reason"})
	reg.MustRegister(attempts, latency, published, dlq)
	return &DeliveryMetrics{
		attempts:  attempts,
		latency:   latency,
		published: published,
		dlq:       dlq,
	}
}

// ObserveAttempt records a delivery attempt and its provider latency.
func (m *DeliveryMetrics) ObserveAttempt(channel, status string, latency time.Duration) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(channel), normalizeLabel(status)).Inc()
	m.latency.WithLabelValues(normalizeLabel(channel)).Observe(latency.Seconds())
}

// IncPublished increments the outbox publish counter for a topic.
func (m *DeliveryMetrics) IncPublished(topic string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncDLQ increments the dead letter counter for a failure reason.
func (m *DeliveryMetrics) IncDLQ(reason string) {
	if m == nil || m.dlq == nil {
		return
	}
	m.dlq.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
