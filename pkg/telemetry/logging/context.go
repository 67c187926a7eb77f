package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// RecordIDKey is the context key for traffic record IDs.
	RecordIDKey contextKey = "record_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithRecordID adds a traffic record ID to the context.
func WithRecordID(ctx context.Context, recordID string) context.Context {
	return context.WithValue(ctx, RecordIDKey, recordID)
}

// GetRecordID retrieves the traffic record ID from the context.
func GetRecordID(ctx context.Context) string {
	if recordID, ok := ctx.Value(RecordIDKey).(string); ok {
		return recordID
	}
	return ""
}

// contextFields returns the log fields carried by ctx.
func contextFields(ctx context.Context) []slog.Attr {
	var fields []slog.Attr

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, slog.String("request_id", requestID))
	}
	if recordID := GetRecordID(ctx); recordID != "" {
		fields = append(fields, slog.String("record_id", recordID))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	return fields
}

// contextHandler adds context fields to records logged with a context.
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if fields := contextFields(ctx); len(fields) > 0 {
			r = r.Clone()
			r.AddAttrs(fields...)
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
