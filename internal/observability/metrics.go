// Package observability provides Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publicfeed_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "publicfeed_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EmailsSent counts outbound emails by kind and outcome.
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publicfeed_emails_sent_total",
		Help: "Total number of emails attempted, by kind and outcome",
	}, []string{"kind", "outcome"})

	// OTPVerifications counts OTP verification attempts by outcome.
	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publicfeed_otp_verifications_total",
		Help: "Total number of OTP verification attempts by outcome",
	}, []string{"outcome"})

	// ReactionToggles counts like/dislike toggles by kind and result.
	ReactionToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publicfeed_reaction_toggles_total",
		Help: "Total number of reaction toggles by kind and result",
	}, []string{"kind", "result"})
)

// ObserveQuery records the latency of a database query.
func ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
