package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Order metrics
	OrdersTotal       *prometheus.CounterVec
	ReservationErrors *prometheus.CounterVec

	// Outbox metrics
	OutboxAppended     *prometheus.CounterVec
	OutboxPublished    *prometheus.CounterVec
	OutboxFailed       *prometheus.CounterVec
	OutboxBacklog      prometheus.Gauge
	RelayCycleDuration prometheus.Histogram

	// Consumer metrics
	ConsumerMessages           *prometheus.CounterVec
	ConsumerProcessingDuration *prometheus.HistogramVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		OrdersTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_total",
				Help:      "Total number of orders by market type and status",
			},
			[]string{"market_type", "status"},
		),
		ReservationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reservation_errors_total",
				Help:      "Total number of failed reservation attempts by reason",
			},
			[]string{"reason"},
		),
		OutboxAppended: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_appended_total",
				Help:      "Total number of outbox records appended by topic",
			},
			[]string{"topic"},
		),
		OutboxPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_published_total",
				Help:      "Total number of outbox records published by topic",
			},
			[]string{"topic"},
		),
		OutboxFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_failed_total",
				Help:      "Total number of outbox publish failures by topic",
			},
			[]string{"topic"},
		),
		OutboxBacklog: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "outbox_backlog",
				Help:      "Records fetched but not yet sent in the last relay cycle",
			},
		),
		RelayCycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relay_cycle_duration_seconds",
				Help:      "Outbox relay cycle duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
		),
		ConsumerMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumer_messages_total",
				Help:      "Total number of reply messages processed by topic and result",
			},
			[]string{"topic", "result"},
		),
		ConsumerProcessingDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "consumer_processing_duration_seconds",
				Help:      "Reply message processing duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"topic"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	factory.MustRegister(
		m.OrdersTotal,
		m.ReservationErrors,
		m.OutboxAppended,
		m.OutboxPublished,
		m.OutboxFailed,
		m.OutboxBacklog,
		m.RelayCycleDuration,
		m.ConsumerMessages,
		m.ConsumerProcessingDuration,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}
