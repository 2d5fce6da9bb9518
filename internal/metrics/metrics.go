// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "searchbridge"

// Search pipeline metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search executions",
		},
		[]string{"type", "strategy", "status"},
	)

	RuleAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rule_attempts_total",
			Help:      "Compiled payloads sent to the engine, by outcome",
		},
		[]string{"type", "outcome"}, // "hit" / "miss" / "error"
	)

	WinningRulePosition = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "winning_rule_position",
			Help:      "Zero-based position of the payload that produced the result",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"type"},
	)

	DroppedHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_hits_total",
			Help:      "Engine hits without a matching persisted record",
		},
		[]string{"type"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation", "status"},
	)

	StoreLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "store_lookup_duration_seconds",
			Help:      "Record store lookup duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"table", "mode"}, // mode: "eager" / "lazy"
	)
)

var registerOnce sync.Once

// Register registers all collectors with reg. Safe to call more than once.
func Register(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			httpRequestDuration,
			httpRequestsTotal,
			SearchRequestsTotal,
			RuleAttemptsTotal,
			WinningRulePosition,
			DroppedHitsTotal,
			EngineRequestDuration,
			StoreLookupDuration,
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			EmbeddingBudgetTokensRemaining,
		)
	})
}
