package verification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// #region metrics
// Metrics are the service's prometheus collectors.
type Metrics struct {
	// runs counts completed runs. Labels: verdict, source (db, fallback, none)
	runs *prometheus.CounterVec

	// governanceFailures counts runs short-circuited by config governance.
	// Labels: reason (CONFIG_SNAPSHOT_MISSING, CONFIG_HASH_MISMATCH)
	governanceFailures *prometheus.CounterVec

	// persistFailures counts runs aborted because proof events could not be stored.
	persistFailures prometheus.Counter

	// transitions counts materialized lifecycle moves. Labels: from, to
	transitions *prometheus.CounterVec

	// duration measures end-to-end run latency.
	duration prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg yields collectors
// that are never exported.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_verifier",
			Subsystem: "verification",
			Name:      "runs_total",
			Help:      "Verification runs by verdict and config source",
		}, []string{"verdict", "source"}),
		governanceFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_verifier",
			Subsystem: "verification",
			Name:      "governance_failures_total",
			Help:      "Runs that failed config governance",
		}, []string{"reason"}),
		persistFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "strategy_verifier",
			Subsystem: "verification",
			Name:      "persist_failures_total",
			Help:      "Runs aborted by proof persistence failure",
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strategy_verifier",
			Subsystem: "verification",
			Name:      "transitions_total",
			Help:      "Lifecycle transitions materialized after verification",
		}, []string{"from", "to"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "strategy_verifier",
			Subsystem: "verification",
			Name:      "run_duration_seconds",
			Help:      "End-to-end verification run latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// #endregion metrics
