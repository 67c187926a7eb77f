package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ucraft/trafficlogger/pkg/config"
)

// CaptureMetrics tracks what the interceptor captures and drops.
//
// Metrics:
//   - <ns>_traffic_captures_total: captured requests by method
//   - <ns>_traffic_skipped_total: requests not captured, by reason
//   - <ns>_traffic_duration_seconds: captured exchange duration
//   - <ns>_traffic_dropped_total: records discarded before storage
//   - <ns>_traffic_queue_depth: records waiting in the async queue
type CaptureMetrics struct {
	capturesTotal    *prometheus.CounterVec
	skippedTotal     *prometheus.CounterVec
	exchangeDuration *prometheus.HistogramVec
	droppedTotal     *prometheus.CounterVec
	queueDepth       prometheus.Gauge
}

// NewCaptureMetrics creates and registers capture metrics.
func NewCaptureMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *CaptureMetrics {
	cm := &CaptureMetrics{
		capturesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "captures_total",
				Help:      "Total number of captured HTTP exchanges",
			},
			[]string{"method"},
		),

		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "skipped_total",
				Help:      "Total number of requests not captured",
			},
			[]string{"reason"},
		),

		exchangeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "duration_seconds",
				Help:      "Duration of captured HTTP exchanges in seconds",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),

		droppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "dropped_total",
				Help:      "Total number of records dropped before storage",
			},
			[]string{"reason"},
		),

		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: Subsystem,
				Name:      "queue_depth",
				Help:      "Number of records waiting in the async queue",
			},
		),
	}

	registry.MustRegister(
		cm.capturesTotal,
		cm.skippedTotal,
		cm.exchangeDuration,
		cm.droppedTotal,
		cm.queueDepth,
	)

	return cm
}
