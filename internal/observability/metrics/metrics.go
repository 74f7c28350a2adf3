// Package metrics provides Prometheus instrumentation for bountyd.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	enabled     bool
	serviceName string

	// HTTP metrics
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec

	// Workflow metrics
	submissionRegisterTotal *prometheus.CounterVec
	verificationRecordTotal *prometheus.CounterVec
	bountyDepositTotal      *prometheus.CounterVec
	payoutMarkTotal         *prometheus.CounterVec
	payoutClaimTotal        *prometheus.CounterVec

	// Settlement metrics
	settlementCallTotal *prometheus.CounterVec
)

// Init initializes the metrics system.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		return
	}

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	submissionRegisterTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submission_register_total",
			Help: "Total number of submission registrations",
		},
		[]string{"status"},
	)

	verificationRecordTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_record_total",
			Help: "Total number of verification decisions recorded",
		},
		[]string{"decision", "status"},
	)

	bountyDepositTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounty_deposit_total",
			Help: "Total number of bounty pool deposits",
		},
		[]string{"status"},
	)

	payoutMarkTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_mark_total",
			Help: "Total number of mark-claimable operations",
		},
		[]string{"status"},
	)

	payoutClaimTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payout_claim_total",
			Help: "Total number of claim operations",
		},
		[]string{"status"},
	)

	settlementCallTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_call_total",
			Help: "Total number of settlement ledger calls",
		},
		[]string{"operation", "status"},
	)

	// Note: Go runtime metrics (goroutines, memory, GC) are automatically
	// collected by prometheus/client_golang - no custom collector needed
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	if !enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.Handler()
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
