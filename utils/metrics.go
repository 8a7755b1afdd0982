package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsCreatedTotal counts submitted service requests by payment method.
	RequestsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_requests_created_total",
		Help: "Total number of service requests submitted",
	}, []string{"payment_method"})

	// TransitionsTotal counts lifecycle transition attempts by action and outcome.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_request_transitions_total",
		Help: "Total number of lifecycle transition attempts",
	}, []string{"action", "outcome"})

	// PaymentAttemptsTotal counts gateway payment operations by kind.
	PaymentAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of gateway payment operations attempted",
	}, []string{"kind"})

	// PaymentFailuresTotal counts failed gateway payment operations by kind.
	PaymentFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_failures_total",
		Help: "Total number of gateway payment operations that failed",
	}, []string{"kind"})

	// RefundsTotal counts refunds issued by scope (full or partial).
	RefundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_refunds_total",
		Help: "Total number of refunds issued",
	}, []string{"scope"})

	// RemoteCallRetriesTotal counts remote-call retry attempts.
	RemoteCallRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remote_call_retries_total",
		Help: "Total number of remote call retries",
	})

	// MatchLatency observes pro-matching latency in seconds.
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pro_match_duration_seconds",
		Help:    "Latency of pro-matching calls",
		Buckets: prometheus.DefBuckets,
	})
)
