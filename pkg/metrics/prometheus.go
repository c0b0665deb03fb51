package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	backendCalls  *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
// Call it once per process; use NewWithRegistry in tests.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		backendCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_backend_calls_total",
				Help: "Total number of calls made to the trading backend",
			},
			[]string{"endpoint", "result"},
		),
		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_decode_errors_total",
				Help: "Total number of ticker rows that failed to decode",
			},
			[]string{"strategy"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tradedesk_notifications_total",
				Help: "Total number of user notifications raised",
			},
			[]string{"level"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tradedesk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCall records a backend call outcome ("ok" or "error").
func (r *Recorder) RecordCall(endpoint, result string) {
	r.backendCalls.WithLabelValues(endpoint, result).Inc()
}

// RecordDecodeError records a row that could not be decoded for a strategy.
func (r *Recorder) RecordDecodeError(strategy string) {
	r.decodeErrors.WithLabelValues(strategy).Inc()
}

// RecordNotification records a raised notification by level.
func (r *Recorder) RecordNotification(level string) {
	r.notifications.WithLabelValues(level).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
