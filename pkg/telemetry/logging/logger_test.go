package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"ucraft/trafficlogger/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v\n%s", err, buf.String())
	}
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", Config{}, false},
		{"json debug", Config{Level: "debug", Format: "json"}, false},
		{"text warn", Config{Level: "WARN", Format: "text"}, false},
		{"console", Config{Level: "warning", Format: "console"}, false},
		{"invalid level", Config{Level: "verbose"}, true},
		{"invalid format", Config{Format: "xml"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Writer = &bytes.Buffer{}
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("filtered")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}

	logger.Warn("kept")
	if !strings.Contains(buf.String(), `"msg":"kept"`) {
		t.Errorf("warn not logged: %s", buf.String())
	}
}

func TestNew_Formats(t *testing.T) {
	tests := []struct {
		format   string
		contains string
		noTime   bool
	}{
		{"json", `"msg":"hello"`, false},
		{"text", `msg=hello`, false},
		{"console", `msg=hello`, true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Format: tt.format, Writer: &buf})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			logger.Info("hello")
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output %q does not contain %q", out, tt.contains)
			}
			if hasTime := strings.Contains(out, "time="); tt.noTime && hasTime {
				t.Errorf("console output contains a timestamp: %q", out)
			}
		})
	}
}

func TestNew_RedactPII(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{RedactPII: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("login",
		"password", "hunter22",
		"email", "jane.doe@example.com",
		"error", errors.New("upstream said: Bearer abc.def"),
		"status", 200,
	)

	entry := decodeLine(t, &buf)
	if entry["password"] != "hunt***" {
		t.Errorf("password = %v, want hunt***", entry["password"])
	}
	if entry["email"] != "j***@example.com" {
		t.Errorf("email = %v, want j***@example.com", entry["email"])
	}
	if entry["error"] != "upstream said: Bearer ***" {
		t.Errorf("error = %v", entry["error"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
}

func TestNew_NoRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf})

	logger.Info("login", "password", "hunter22")

	if entry := decodeLine(t, &buf); entry["password"] != "hunter22" {
		t.Errorf("password = %v, want it untouched", entry["password"])
	}
}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithRecordID(ctx, "rec-1")
	ctx = trace.ContextWithSpanContext(ctx, sc)

	logger.With("component", "test").InfoContext(ctx, "stored")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"request_id": "req-1",
		"record_id":  "rec-1",
		"trace_id":   "4bf92f3577b34da6a3ce929d0e0e4736",
		"span_id":    "00f067aa0ba902b7",
		"component":  "test",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestNew_NoContextFieldsWithoutValues(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Writer: &buf})

	logger.InfoContext(context.Background(), "plain")

	entry := decodeLine(t, &buf)
	for _, k := range []string{"request_id", "record_id", "trace_id"} {
		if _, ok := entry[k]; ok {
			t.Errorf("unexpected field %s", k)
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(&config.LoggingConfig{Level: "debug", Format: "text", AddSource: true, RedactPII: true})

	if cfg.Level != "debug" || cfg.Format != "text" || !cfg.AddSource || !cfg.RedactPII {
		t.Errorf("FromConfig() = %+v", cfg)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"fatal", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, wantErr %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}
