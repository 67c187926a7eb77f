// Package tracing provides OpenTelemetry tracing for the traffic pipeline.
//
// # Spans
//
// The traffic manager emits one span tree per recorded exchange:
//
//	traffic.record              record_id, http.request.method, http.response.status_code
//	├── traffic.sink.store      traffic.sink.backend, traffic.sink.locator
//	└── traffic.publish         messaging.system, messaging.destination.name
//
// When the serving proxy received a traceparent header the tree joins the
// caller's trace (see HTTPMiddleware).
//
// # Export
//
// Spans are exported over OTLP gRPC to the configured endpoint through a
// batching processor:
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
// With tracing disabled New returns a noop tracer.
//
// # Sampling
//
// "always", "never" and "ratio" samplers are supported, each wrapped in
// ParentBased so upstream sampling decisions are honoured.
package tracing
