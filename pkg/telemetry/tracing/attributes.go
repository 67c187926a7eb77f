package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys. HTTP and messaging keys follow OpenTelemetry semantic
// conventions; pipeline keys use the "traffic.*" namespace.
const (
	AttrHTTPMethod = "http.request.method"
	AttrHTTPStatus = "http.response.status_code"

	AttrMessagingSystem      = "messaging.system"
	AttrMessagingDestination = "messaging.destination.name"

	AttrRecordID  = "traffic.record_id"
	AttrRequestID = "traffic.request_id"
	AttrBackend   = "traffic.sink.backend"
	AttrLocator   = "traffic.sink.locator"
	AttrBodyBytes = "traffic.payload_bytes"

	AttrErrorMessage = "error.message"
)

// SetRecordAttributes sets the record identity and exchange attributes.
func SetRecordAttributes(span trace.Span, recordID, method string, status int) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrRecordID, recordID),
		attribute.String(AttrHTTPMethod, method),
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(AttrHTTPStatus, status))
	}
	span.SetAttributes(attrs...)
}

// SetSinkAttributes sets the storage backend and, once known, the locator.
func SetSinkAttributes(span trace.Span, backend, locator string) {
	span.SetAttributes(attribute.String(AttrBackend, backend))
	if locator != "" {
		span.SetAttributes(attribute.String(AttrLocator, locator))
	}
}

// SetPublishAttributes sets the messaging attributes of a dispatch.
func SetPublishAttributes(span trace.Span, dispatcher, topic string) {
	span.SetAttributes(
		attribute.String(AttrMessagingSystem, dispatcher),
		attribute.String(AttrMessagingDestination, topic),
	)
}

// AddEvent adds a named event to the span.
//
//	AddEvent(span, "enqueued", attribute.Int("queue_depth", depth))
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
