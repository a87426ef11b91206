package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayRequests,
		gatewayDuration,
	)
}

var (
	// op: create_preference|get_payment; result: ok|http_error|transport_error|decode_error
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_requests_total",
			Help: "Calls to the payment provider by operation and result.",
		},
		[]string{"provider", "op", "result"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_gateway_request_duration_seconds",
			Help:    "Latency of payment provider calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"provider", "op"},
	)
)

func ObserveGatewayCall(provider, op, result string, d time.Duration) {
	gatewayRequests.WithLabelValues(norm(provider), norm(op), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(provider), norm(op)).Observe(d.Seconds())
}
