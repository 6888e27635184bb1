package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess     = "success"
	ResultClientError = "client_error"
	ResultError       = "error"
)

var (
	// Operations counts account, spot and file operations by outcome.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spots_operations_total",
			Help: "Total number of account, spot and file operations",
		},
		[]string{"operation", "result"},
	)

	// ExpiredCodesCleared counts codes nulled by the background sweeper.
	ExpiredCodesCleared = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "spots_expired_codes_cleared_total",
			Help: "Accounts whose expired verification or reset codes were cleared",
		},
	)

	// MailDispatches counts outbound mail by kind (verification|reset) and result.
	MailDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spots_mail_dispatches_total",
			Help: "Outbound mail attempts",
		},
		[]string{"kind", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "spots_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
