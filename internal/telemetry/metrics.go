package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the rating service.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	CarrierErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers the rating metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cybership_rating_requests_total",
				Help: "Total carrier requests by operation, carrier, and status",
			},
			[]string{"operation", "carrier", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cybership_rating_request_duration_seconds",
				Help:    "Carrier request duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cybership_rating_carrier_errors_total",
				Help: "Total carrier errors by carrier and taxonomy code",
			},
			[]string{"carrier", "error_code"},
		),
	}
}

// RecordRequest records one carrier call.
func (m *Metrics) RecordRequest(operation, carrier, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(operation, carrier, status).Inc()
	m.RequestDuration.WithLabelValues(operation, carrier).Observe(durationSeconds)
}

// RecordError records one carrier error by taxonomy code.
func (m *Metrics) RecordError(carrier, errorCode string) {
	m.CarrierErrors.WithLabelValues(carrier, errorCode).Inc()
}
