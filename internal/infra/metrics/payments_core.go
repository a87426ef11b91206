package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func init() {
	register(
		paymentsTotal,
		paymentsRevenueTotal,
		orphanedPreferencesTotal,
		statusChecksTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by status (pending/approved/rejected).",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "The total monetary value of approved payments, labeled by currency.",
		},
		[]string{"currency"},
	)

	orphanedPreferencesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_orphaned_preferences_total",
			Help: "Checkout preferences created at the provider whose payment row could not be stored.",
		},
	)

	// source: poll|reconciler; result: found|reconciled|not_found|error
	statusChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_status_checks_total",
			Help: "Status lookups by caller and result.",
		},
		[]string{"source", "result"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func AddPaymentRevenue(currency string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(f)
}

func IncOrphanedPreference() { orphanedPreferencesTotal.Inc() }

func IncStatusCheck(source, result string) {
	statusChecksTotal.WithLabelValues(norm(source), norm(result)).Inc()
}
