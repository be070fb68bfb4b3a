// Package metrics registers the Prometheus metrics exported by the gateway.
// Import this package from the server entry point so everything is
// registered before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts completed exchanges labelled by provider,
	// operation, and outcome ("success", "error", "rejected").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aicentral_requests_total",
			Help: "Total number of generation requests processed.",
		},
		[]string{"provider", "operation", "status"},
	)

	// RequestDuration observes end-to-end exchange latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aicentral_request_duration_seconds",
			Help:    "End-to-end generation request duration in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	// TokensUsed counts tokens charged to callers, labelled by how the figure
	// was obtained: "exact" (backend-reported) or "estimated".
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aicentral_tokens_used_total",
			Help: "Total tokens charged, by provider, model and accounting basis.",
		},
		[]string{"provider", "model", "basis"},
	)

	// UsageCostUSD accumulates the billed USD cost of completed exchanges.
	UsageCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aicentral_usage_cost_usd_total",
			Help: "Accumulated USD cost of completed exchanges.",
		},
		[]string{"provider", "model"},
	)

	// ProviderErrors counts failures by provider and taxonomy kind.
	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "aicentral_provider_errors_total",
			Help: "Total provider failures by error kind.",
		},
		[]string{"provider", "kind"},
	)

	// LedgerWriteFailures counts usage records that could not be persisted.
	// These failures never surface to the caller, so the counter is the
	// operator's only signal short of the logs.
	LedgerWriteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "aicentral_ledger_write_failures_total",
			Help: "Total usage ledger writes that failed.",
		},
	)
)
