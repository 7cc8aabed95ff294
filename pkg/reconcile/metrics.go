package reconcile

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/clockify-sync/pkg/metrics"
)

type runMetrics struct {
	outcomesTotal    *prometheus.CounterVec
	skippedRowsTotal prometheus.Counter
	warningsTotal    prometheus.Counter
	phaseDuration    *prometheus.HistogramVec
	lastRunSuccess   prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *runMetrics {
	f := promauto.With(metrics.Registry)
	return &runMetrics{
		outcomesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "reconcile",
			Name:      "outcomes_total",
			Help:      "Classified API attempts by action and outcome.",
		}, []string{"action", "outcome"}),
		skippedRowsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "reconcile",
			Name:      "skipped_rows_total",
			Help:      "Rows skipped because their email matched no workspace user.",
		}),
		warningsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "reconcile",
			Name:      "warnings_total",
			Help:      "Non-fatal warnings such as manager fallbacks.",
		}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "reconcile",
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each run phase.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"phase"}),
		lastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "last_run_success",
			Help:      "1 if the last run finished with an empty error journal.",
		}),
		lastRunTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}
})

func getMetrics() *runMetrics {
	return metricsSingleton()
}
