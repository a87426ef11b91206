package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(cacheRequestsTotal, rateLimitedTotal, lockContentionTotal) }

var (
	cacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Tracks cache hits and misses for various caches.",
		},
		[]string{"cache", "result"}, // e.g., cache="plan", result="hit"
	)

	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Requests rejected by the redis rate limiter.",
		},
		[]string{"scope"},
	)

	lockContentionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lock_contention_total",
			Help: "Distributed lock acquisitions that found the lock already held.",
		},
		[]string{"scope"},
	)
)

func IncCacheRequest(cacheName, result string) {
	cacheRequestsTotal.WithLabelValues(norm(cacheName), norm(result)).Inc()
}

func IncRateLimited(scope string) { rateLimitedTotal.WithLabelValues(norm(scope)).Inc() }

func IncLockContention(scope string) { lockContentionTotal.WithLabelValues(norm(scope)).Inc() }
