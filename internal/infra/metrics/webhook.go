package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		webhookEventsTotal,
		webhookDuration,
		webhookSignatureFailures,
	)
}

var (
	// outcome: ignored|processed|already_processed|not_found|failed|locked
	webhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Provider notifications by topic and outcome.",
		},
		[]string{"topic", "outcome"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_processing_duration_seconds",
			Help:    "Time spent handling a provider notification.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"outcome"},
	)

	webhookSignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Notifications rejected because of a missing or invalid signature.",
		},
	)
)

func ObserveWebhook(topic, outcome string, d time.Duration) {
	webhookEventsTotal.WithLabelValues(norm(topic), norm(outcome)).Inc()
	webhookDuration.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncWebhookSignatureFailure() { webhookSignatureFailures.Inc() }
