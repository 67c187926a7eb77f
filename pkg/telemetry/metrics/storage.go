package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ucraft/trafficlogger/pkg/config"
)

// StorageMetrics tracks sink writes and event dispatch.
//
// Metrics:
//   - <ns>_traffic_sink_writes_total: store attempts by backend and status
//   - <ns>_traffic_sink_write_duration_seconds: store latency by backend
//   - <ns>_traffic_publishes_total: dispatch attempts by dispatcher and status
type StorageMetrics struct {
	sinkWritesTotal   *prometheus.CounterVec
	sinkWriteDuration *prometheus.HistogramVec
	publishesTotal    *prometheus.CounterVec
}

// NewStorageMetrics creates and registers sink and publish metrics.
func NewStorageMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *StorageMetrics {
	sm := &StorageMetrics{
		sinkWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "sink_writes_total",
				Help:      "Total number of sink store attempts",
			},
			[]string{"backend", "status"},
		),

		sinkWriteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "sink_write_duration_seconds",
				Help:      "Duration of sink store calls in seconds",
				// 1ms to ~4s
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 13),
			},
			[]string{"backend"},
		),

		publishesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "publishes_total",
				Help:      "Total number of event dispatch attempts",
			},
			[]string{"dispatcher", "status"},
		),
	}

	registry.MustRegister(
		sm.sinkWritesTotal,
		sm.sinkWriteDuration,
		sm.publishesTotal,
	)

	return sm
}
