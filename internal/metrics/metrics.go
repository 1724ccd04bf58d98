// Package metrics exposes Prometheus collectors for the scoring service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScoresTotal counts finished wallet scorings by verdict.
	ScoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harrier_scores_total",
			Help: "Total number of wallet scorings",
		},
		[]string{"verdict"},
	)

	// FraudsFlagged counts wallets classified as fraudulent.
	FraudsFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "harrier_frauds_flagged_total",
			Help: "Total number of wallets classified as fraud",
		},
	)

	// ScoreDuration tracks end-to-end scoring latency.
	ScoreDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harrier_score_duration_seconds",
			Help:    "Wallet scoring latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ProviderRequestsTotal counts chain provider calls per action.
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harrier_provider_requests_total",
			Help: "Total number of chain provider requests",
		},
		[]string{"action"},
	)

	// ProviderErrorsTotal counts chain provider failures per action.
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harrier_provider_errors_total",
			Help: "Total number of chain provider errors",
		},
		[]string{"action", "reason"},
	)

	// SnapshotSource counts where wallet snapshots were served from.
	SnapshotSource = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harrier_snapshot_source_total",
			Help: "Wallet snapshot lookups by source",
		},
		[]string{"source"},
	)

	// AlertsForwarded counts governance alert deliveries.
	AlertsForwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harrier_alerts_forwarded_total",
			Help: "Governance alert deliveries by outcome",
		},
		[]string{"outcome"},
	)
)
