package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(reconcilerPaymentsTotal) }

var reconcilerPaymentsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "reconciler_payments_total",
		Help: "Stale pending payments visited by the reconciler, labeled by result.",
	},
	[]string{"result"}, // 'approved', 'rejected', 'pending', 'failed'
)

func IncReconciled(result string) {
	reconcilerPaymentsTotal.WithLabelValues(norm(result)).Inc()
}
