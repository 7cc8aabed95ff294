package clockify

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/clockify-sync/pkg/metrics"
)

type transportMetrics struct {
	requestsTotal *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	failedTotal   prometheus.Counter

	requestLatency *prometheus.HistogramVec
}

var metricsSingleton = sync.OnceValue(func() *transportMetrics {
	f := promauto.With(metrics.Registry)
	return &transportMetrics{
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "transport",
			Name:      "requests_total",
			Help:      "Total number of Clockify API requests by method and status code.",
		}, []string{"method", "code"}),
		retriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "transport",
			Name:      "retries_total",
			Help:      "Total number of retried attempts by reason.",
		}, []string{"reason"}),
		failedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "transport",
			Name:      "connection_failures_total",
			Help:      "Logical calls that exhausted their retry budget without a response.",
		}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "transport",
			Name:      "request_duration_seconds",
			Help:      "Latency of single Clockify API attempts.",
			Buckets: []float64{
				0.05, 0.1, 0.2, 0.5,
				1, 2, 5, 10, 30,
			},
		}, []string{"method"}),
	}
})

func getMetrics() *transportMetrics {
	return metricsSingleton()
}
