package middleware

import (
	"bufio"
	"bytes"
	"net"
	"net/http"
)

// captureWriter passes every write through to the client and keeps a copy
// of the response, up to limit bytes, for the traffic record.
type captureWriter struct {
	http.ResponseWriter

	limit       int64
	status      int
	wroteHeader bool
	body        bytes.Buffer
	overflow    bool
	hijacked    bool
}

func newCaptureWriter(w http.ResponseWriter, limit int64) *captureWriter {
	return &captureWriter{
		ResponseWriter: w,
		limit:          limit,
	}
}

// WriteHeader records the final status code. Informational 1xx codes are
// forwarded without being recorded.
func (w *captureWriter) WriteHeader(code int) {
	if !w.wroteHeader && code >= http.StatusOK {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write forwards b and copies it into the capture buffer while it fits.
func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.status = http.StatusOK
		w.wroteHeader = true
	}

	n, err := w.ResponseWriter.Write(b)
	if n > 0 && !w.overflow {
		if int64(w.body.Len()+n) > w.limit {
			w.overflow = true
			w.body.Reset()
		} else {
			w.body.Write(b[:n])
		}
	}
	return n, err
}

// Flush forwards to the underlying writer when it supports flushing.
func (w *captureWriter) Flush() {
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Hijack hands the connection to the handler. The response body is not
// observable afterwards.
func (w *captureWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil {
		w.hijacked = true
	}
	return conn, rw, err
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *captureWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Status returns the response status. A handler that never wrote gets the
// implicit 200; a hijacked connection reports 101.
func (w *captureWriter) Status() int {
	switch {
	case w.wroteHeader:
		return w.status
	case w.hijacked:
		return http.StatusSwitchingProtocols
	default:
		return http.StatusOK
	}
}

// BodyCaptured reports whether Body holds the complete response body.
func (w *captureWriter) BodyCaptured() bool {
	return !w.overflow && !w.hijacked
}

// Body returns the captured bytes.
func (w *captureWriter) Body() []byte {
	return w.body.Bytes()
}
