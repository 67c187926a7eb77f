// Package telemetry groups the observability packages of the traffic logger.
//
// # Components
//
//   - logging: slog construction with level, format and PII redaction
//   - metrics: Prometheus counters and histograms for capture, sinks and publishing
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness, readiness and version endpoints
//
// # Usage
//
// The serve command builds each component from its config section and hands
// them to the traffic manager and the server:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging))
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	checker := health.New(5 * time.Second)
//
//	mgr := manager.New(manager.FromConfig(&cfg.Traffic), store, publisher,
//	    manager.WithMetrics(collector),
//	    manager.WithTracer(tracer),
//	)
//
// A nil collector and a disabled tracer are both no-ops, so callers never
// branch on whether telemetry is enabled.
package telemetry
