package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ucraft/trafficlogger/pkg/config"
)

// Subsystem is the metric subsystem shared by all traffic metrics.
const Subsystem = "traffic"

// otherLabel replaces label values past the cardinality limit.
const otherLabel = "other"

// Collector owns every Prometheus metric of the traffic pipeline. A nil
// *Collector is valid and records nothing, so components can take one
// optionally.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	capture *CaptureMetrics
	storage *StorageMetrics

	// methods bounds the method label; clients choose the method string.
	methods *CardinalityLimiter
}

// NewCollector creates a collector registered with registry. If registry is
// nil a fresh registry is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		capture:  NewCaptureMetrics(cfg, registry),
		storage:  NewStorageMetrics(cfg, registry),
		methods:  NewCardinalityLimiter(32),
	}
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

func (c *Collector) method(method string) string {
	if c.methods.Allow(method) {
		return method
	}
	return otherLabel
}

// RecordCapture counts a request whose exchange is being captured.
func (c *Collector) RecordCapture(method string) {
	if !c.enabled() {
		return
	}
	c.capture.capturesTotal.WithLabelValues(c.method(method)).Inc()
}

// RecordSkipped counts a request the interceptor did not capture.
// reason is "disabled" or "method".
func (c *Collector) RecordSkipped(reason string) {
	if !c.enabled() {
		return
	}
	c.capture.skippedTotal.WithLabelValues(reason).Inc()
}

// RecordExchange observes the captured request/response duration.
func (c *Collector) RecordExchange(method string, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.capture.exchangeDuration.WithLabelValues(c.method(method)).Observe(duration.Seconds())
}

// RecordDropped counts a record discarded before it reached the sink.
// reason is "queue_full" or "shutdown".
func (c *Collector) RecordDropped(reason string) {
	if !c.enabled() {
		return
	}
	c.capture.droppedTotal.WithLabelValues(reason).Inc()
}

// SetQueueDepth reports the number of records waiting in the async queue.
func (c *Collector) SetQueueDepth(depth int) {
	if !c.enabled() {
		return
	}
	c.capture.queueDepth.Set(float64(depth))
}

// RecordSinkWrite records one sink store attempt.
func (c *Collector) RecordSinkWrite(backend string, err error, duration time.Duration) {
	if !c.enabled() {
		return
	}
	c.storage.sinkWritesTotal.WithLabelValues(backend, status(err)).Inc()
	c.storage.sinkWriteDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordPublish records one dispatch attempt.
func (c *Collector) RecordPublish(dispatcher string, err error) {
	if !c.enabled() {
		return
	}
	c.storage.publishesTotal.WithLabelValues(dispatcher, status(err)).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// CardinalityLimiter bounds the number of distinct label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value is already known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
