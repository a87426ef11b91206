package metrics

import (
	"realestate-payments/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsCancelledTotal,
		subscriptionsTotal,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions activated after an approved payment, by plan.",
		},
		[]string{"plan"},
	)

	subscriptionsCancelledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_superseded_total",
			Help: "Active subscriptions cancelled because a newer one replaced them.",
		},
	)

	subscriptionsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subscriptions_total",
			Help: "Current number of subscriptions by status.",
		},
		[]string{"status"}, // 'active', 'cancelled'
	)
)

func IncSubscriptionActivated(planID string) {
	subscriptionsActivatedTotal.WithLabelValues(norm(planID)).Inc()
}

func AddSubscriptionsSuperseded(n int64) {
	subscriptionsCancelledTotal.Add(float64(n))
}

func SetSubscriptionsTotal(counts map[model.SubscriptionStatus]int) {
	for _, status := range []model.SubscriptionStatus{
		model.SubscriptionStatusActive,
		model.SubscriptionStatusCancelled,
	} {
		subscriptionsTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}
