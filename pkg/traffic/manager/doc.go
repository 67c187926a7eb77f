// Package manager drives the per-request traffic pipeline.
//
// Each logged request goes through exactly two calls:
//
//	rec := m.Capture(r)        // before the handler runs
//	// ... handler writes the response, rec.CaptureResponse(...)
//	m.Record(ctx, rec)         // after the response is captured
//
// Record serializes the dump, stores it in the configured sink, and publishes
// one event whose body is either the sink locator or, for the inline
// backend, the dump itself. Failures at any step are logged with the record
// id and counted; Record has no error result.
//
// With Config.AsyncBuffer > 0 the store+publish step runs on a background
// worker fed by a bounded queue. When the queue is full the record is
// dropped rather than delaying the response. Close drains the queue.
package manager
