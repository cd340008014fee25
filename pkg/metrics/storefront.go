package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storefront"

// CartMetrics counts failures of the durable cart storage.
type CartMetrics struct {
	storageFailures *prometheus.CounterVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cart_storage_failures_total",
		Help:      "Durable cart storage operations that failed.",
	}, []string{"op"})
	reg.MustRegister(failures)
	return &CartMetrics{storageFailures: failures}
}

// IncStorageFailure records a failed read, write or delete.
func (m *CartMetrics) IncStorageFailure(op string) {
	if m == nil || m.storageFailures == nil {
		return
	}
	m.storageFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// DeliveryMetrics tracks delivery fee lookups.
type DeliveryMetrics struct {
	lookups  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewDeliveryMetrics registers the delivery metrics on the provided registerer.
func NewDeliveryMetrics(reg prometheus.Registerer) *DeliveryMetrics {
	if reg == nil {
		return &DeliveryMetrics{}
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_fee_lookups_total",
		Help:      "Delivery fee lookups by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "delivery_fee_lookup_duration_seconds",
		Help:      "Duration of delivery fee lookups in seconds.",
		Buckets:   prometheus.DefBuckets,
	})
	reg.MustRegister(lookups, duration)
	return &DeliveryMetrics{lookups: lookups, duration: duration}
}

// ObserveLookup records one lookup with its outcome label.
func (m *DeliveryMetrics) ObserveLookup(outcome string, took time.Duration) {
	if m == nil || m.lookups == nil {
		return
	}
	m.lookups.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(took.Seconds())
}

// OrderMetrics tracks order submissions.
type OrderMetrics struct {
	submissions *prometheus.CounterVec
	publishes   *prometheus.CounterVec
}

// NewOrderMetrics registers the order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_submissions_total",
		Help:      "Order submissions by outcome.",
	}, []string{"outcome"})
	publishes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_events_published_total",
		Help:      "Order events handed to the broker by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(submissions, publishes)
	return &OrderMetrics{submissions: submissions, publishes: publishes}
}

// IncSubmission records an order submission outcome.
func (m *OrderMetrics) IncSubmission(outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncPublish records an order event publish outcome.
func (m *OrderMetrics) IncPublish(outcome string) {
	if m == nil || m.publishes == nil {
		return
	}
	m.publishes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
