// Package metrics provides Prometheus metrics for the traffic pipeline.
//
// # Metrics
//
// All metrics live under the configured namespace and the "traffic" subsystem:
//
//   - captures_total{method}: exchanges the interceptor captured
//   - skipped_total{reason}: requests passed through uncaptured ("disabled", "method")
//   - duration_seconds{method}: captured exchange duration
//   - dropped_total{reason}: records lost before storage ("queue_full", "shutdown")
//   - queue_depth: records waiting in the async queue
//   - sink_writes_total{backend,status}: sink store attempts
//   - sink_write_duration_seconds{backend}: sink store latency
//   - publishes_total{dispatcher,status}: event dispatch attempts
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordCapture("GET")
//	collector.RecordSinkWrite("redis", err, time.Since(start))
//
//	mux.Handle("/metrics", collector.Handler())
//
// A nil *Collector records nothing, which keeps call sites free of checks
// when metrics are disabled.
//
// # Cardinality
//
// The method label is supplied by clients. The collector admits at most 32
// distinct methods; anything beyond is reported as "other".
package metrics
