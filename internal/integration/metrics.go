package integration

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// callsTotal counts finished calls by integration and outcome
	// (success|timeout|unavailable|rejected|cancelled).
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_calls_total",
			Help: "Total number of outbound integration calls by outcome.",
		},
		[]string{"integration", "outcome"},
	)

	// callDuration records wall time including retries and backoff sleeps.
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "integration_call_duration_seconds",
			Help:    "Duration of outbound integration calls in seconds, retries included.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"integration"},
	)

	// retriesTotal counts retry attempts (not first attempts).
	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "integration_retries_total",
			Help: "Total number of retried outbound integration attempts.",
		},
		[]string{"integration"},
	)

	// executorInflight gauges tasks currently holding an executor slot.
	executorInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "integration_executor_inflight",
			Help: "Integration tasks currently running on the executor.",
		},
	)
)

func init() {
	prometheus.MustRegister(callsTotal, callDuration, retriesTotal, executorInflight)
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if k, ok := kindOf(err); ok {
		return k.String()
	}
	return "cancelled"
}
