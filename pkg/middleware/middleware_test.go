package middleware

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ucraft/trafficlogger/pkg/traffic"
	"ucraft/trafficlogger/pkg/traffic/manager"
	"ucraft/trafficlogger/pkg/traffic/publish"
	"ucraft/trafficlogger/pkg/traffic/record"
	"ucraft/trafficlogger/pkg/traffic/sink"
)

type harness struct {
	sink       *sink.MemorySink
	dispatcher *publish.MemoryDispatcher
	manager    *manager.Manager
}

func newHarness(t *testing.T, methods []string, maxBody int64) *harness {
	t.Helper()
	h := &harness{
		sink:       sink.NewMemorySink(),
		dispatcher: publish.NewMemoryDispatcher(),
	}
	h.manager = manager.New(manager.Config{
		Enabled: true,
		Methods: methods,
		Record:  record.Config{MaxBodyBytes: maxBody},
	}, h.sink, publish.New("http-traffic-logs", h.dispatcher, nil))
	t.Cleanup(func() { h.manager.Close() })
	return h
}

// onlyDump returns the single stored dump.
func (h *harness) onlyDump(t *testing.T) map[string]any {
	t.Helper()
	entries := h.sink.Entries()
	if len(entries) != 1 {
		t.Fatalf("stored %d records, want 1", len(entries))
	}
	var dump map[string]any
	if err := json.Unmarshal(entries[0].Payload, &dump); err != nil {
		t.Fatalf("invalid dump: %v", err)
	}
	return dump
}

func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("handler could not read body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Set-Cookie", "theme=dark")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	})
}

func TestTrafficLogger_RecordsExchange(t *testing.T) {
	h := newHarness(t, []string{"POST"}, 0)
	handler := TrafficLogger(h.manager)(echoHandler(t))

	reqBody := `{"user":"ann","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "http://shop.example.com/api/login?next=%2Fcart", strings.NewReader(reqBody))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("client status = %d, want 201", w.Code)
	}
	if w.Body.String() != reqBody {
		t.Errorf("handler saw body %q, want the untouched request body", w.Body.String())
	}

	dump := h.onlyDump(t)
	if dump[traffic.KeyStatus] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want 201", dump[traffic.KeyStatus])
	}
	if dump[traffic.KeyResBody] != reqBody {
		t.Errorf("res_body = %v, want the echoed body", dump[traffic.KeyResBody])
	}
	if body, _ := dump[traffic.KeyReqBody].(string); strings.Contains(body, "hunter2") {
		t.Errorf("req_body leaked the password: %s", body)
	}
	if headers, _ := dump[traffic.KeyResHeaders].(string); !strings.Contains(headers, "application/json") {
		t.Errorf("res_headers = %s", headers)
	}

	if got := len(h.dispatcher.Messages()); got != 1 {
		t.Errorf("published %d messages, want 1", got)
	}
}

func TestTrafficLogger_SkipsMethod(t *testing.T) {
	h := newHarness(t, []string{"POST"}, 0)

	called := false
	handler := TrafficLogger(h.manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api", nil))

	if !called || w.Code != http.StatusNoContent {
		t.Errorf("handler called = %v, status = %d", called, w.Code)
	}
	if h.sink.Size() != 0 || len(h.dispatcher.Messages()) != 0 {
		t.Error("skipped request was recorded")
	}
}

func TestTrafficLogger_BodyPastLimit(t *testing.T) {
	h := newHarness(t, []string{"GET"}, 8)
	payload := strings.Repeat("x", 20)

	handler := TrafficLogger(h.manager)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, payload[:10])
		_, _ = io.WriteString(w, payload[10:])
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/download", nil))

	if w.Body.String() != payload {
		t.Errorf("client got %d bytes, want all %d", w.Body.Len(), len(payload))
	}

	dump := h.onlyDump(t)
	if v, ok := dump[traffic.KeyResBody]; !ok || v != nil {
		t.Errorf("res_body = %v (present %v), want null", v, ok)
	}
	if dump[traffic.KeyStatus] != float64(http.StatusOK) {
		t.Errorf("status = %v, want implicit 200", dump[traffic.KeyStatus])
	}
}

func TestTrafficLogger_EmptyResponse(t *testing.T) {
	h := newHarness(t, []string{"DELETE"}, 0)
	handler := TrafficLogger(h.manager)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/item/1", nil))

	dump := h.onlyDump(t)
	if dump[traffic.KeyResBody] != "" {
		t.Errorf("res_body = %v, want empty string", dump[traffic.KeyResBody])
	}
	if dump[traffic.KeyStatus] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", dump[traffic.KeyStatus])
	}
}

func TestTrafficLogger_PanicIsRecorded(t *testing.T) {
	h := newHarness(t, []string{"GET"}, 0)
	handler := Chain(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
		RequestID,
		TrafficLogger(h.manager),
		Recovery,
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/explode", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("client status = %d, want 500", w.Code)
	}
	dump := h.onlyDump(t)
	if dump[traffic.KeyStatus] != float64(http.StatusInternalServerError) {
		t.Errorf("recorded status = %v, want 500", dump[traffic.KeyStatus])
	}
	if body, _ := dump[traffic.KeyResBody].(string); !strings.Contains(body, w.Header().Get(RequestIDHeader)) {
		t.Errorf("res_body %q does not carry the request id", body)
	}
}

func TestTrafficLogger_UserFromHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		want   any
	}{
		{"gateway user", "X-Authenticated-User", "42", "42"},
		{"header absent", "X-Authenticated-User", "", nil},
		{"disabled", "", "42", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, []string{"GET"}, 0)
			handler := Chain(echoHandler(t), UserFromHeader(tt.header), TrafficLogger(h.manager))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.value != "" {
				req.Header.Set("X-Authenticated-User", tt.value)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got := h.onlyDump(t)[traffic.KeyUserID]; got != tt.want {
				t.Errorf("user_id = %v, want %v", got, tt.want)
			}
		})
	}
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (r *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.hijacked = true
	return nil, nil, nil
}

func TestCaptureWriter(t *testing.T) {
	t.Run("informational status is not final", func(t *testing.T) {
		cw := newCaptureWriter(httptest.NewRecorder(), 64)
		cw.WriteHeader(http.StatusEarlyHints)
		cw.WriteHeader(http.StatusAccepted)
		if cw.Status() != http.StatusAccepted {
			t.Errorf("Status() = %d, want 202", cw.Status())
		}
	})

	t.Run("flush reaches the client writer", func(t *testing.T) {
		rec := httptest.NewRecorder()
		cw := newCaptureWriter(rec, 64)
		_, _ = cw.Write([]byte("chunk"))
		cw.Flush()
		if !rec.Flushed {
			t.Error("underlying writer not flushed")
		}
		if string(cw.Body()) != "chunk" || !cw.BodyCaptured() {
			t.Errorf("Body() = %q, captured %v", cw.Body(), cw.BodyCaptured())
		}
	})

	t.Run("hijack marks body unobservable", func(t *testing.T) {
		rec := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		cw := newCaptureWriter(rec, 64)
		if _, _, err := cw.Hijack(); err != nil {
			t.Fatalf("Hijack() error = %v", err)
		}
		if !rec.hijacked {
			t.Error("hijack not forwarded")
		}
		if cw.BodyCaptured() {
			t.Error("BodyCaptured() = true after hijack")
		}
		if cw.Status() != http.StatusSwitchingProtocols {
			t.Errorf("Status() = %d, want 101", cw.Status())
		}
	})

	t.Run("hijack unsupported", func(t *testing.T) {
		cw := newCaptureWriter(httptest.NewRecorder(), 64)
		if _, _, err := cw.Hijack(); err == nil {
			t.Error("Hijack() succeeded on a writer without hijack support")
		}
		if !cw.BodyCaptured() {
			t.Error("failed hijack marked the body as lost")
		}
	})

	t.Run("exact limit is captured", func(t *testing.T) {
		cw := newCaptureWriter(httptest.NewRecorder(), 4)
		_, _ = cw.Write([]byte("abcd"))
		if !cw.BodyCaptured() || string(cw.Body()) != "abcd" {
			t.Errorf("Body() = %q, captured %v", cw.Body(), cw.BodyCaptured())
		}
	})
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generates request ID when not provided", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		id := w.Header().Get(RequestIDHeader)
		if len(id) != 32 {
			t.Errorf("request id = %q, want 32 hex characters", id)
		}
		if seen != id {
			t.Errorf("context id = %q, header id = %q", seen, id)
		}
	})

	t.Run("uses provided request ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id-12345")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "custom-request-id-12345" {
			t.Errorf("request id = %q", got)
		}
	})

	t.Run("generates unique IDs", func(t *testing.T) {
		w1, w2 := httptest.NewRecorder(), httptest.NewRecorder()
		handler.ServeHTTP(w1, httptest.NewRequest(http.MethodGet, "/", nil))
		handler.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/", nil))
		if w1.Header().Get(RequestIDHeader) == w2.Header().Get(RequestIDHeader) {
			t.Error("request ids collide")
		}
	})
}

func TestRecovery(t *testing.T) {
	t.Run("recovers from panic", func(t *testing.T) {
		w := httptest.NewRecorder()
		Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("test panic")
		})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
		if strings.Contains(w.Body.String(), "test panic") {
			t.Error("panic value leaked to the client")
		}
	})

	t.Run("passes through normal requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("OK"))
		})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("re-raises ErrAbortHandler", func(t *testing.T) {
		defer func() {
			if r := recover(); r != http.ErrAbortHandler {
				t.Errorf("recovered %v, want http.ErrAbortHandler", r)
			}
		}()
		Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestAccessLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"success", http.StatusOK, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			handler := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/path", nil))

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("log line is not JSON: %v", err)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if entry["status"] != float64(tt.status) || entry["bytes"] != float64(5) || entry["path"] != "/path" {
				t.Errorf("entry = %v", entry)
			}
			if entry["component"] != "http.access" {
				t.Errorf("component = %v", entry["component"])
			}
		})
	}
}

func TestChain(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("a"), mark("b"), mark("c")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := strings.Join(order, ","); got != "a,b,c,handler" {
		t.Errorf("order = %s", got)
	}
}
