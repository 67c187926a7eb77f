package middleware

import (
	"net/http"

	"ucraft/trafficlogger/pkg/traffic/manager"
	"ucraft/trafficlogger/pkg/traffic/record"
)

// TrafficLogger captures each allowed request and its response and hands the
// record to m once the downstream handler returns.
//
// The request body stays fully readable by next and every response byte is
// written to the client unchanged. Requests skipped by m.ShouldCapture
// (capture disabled, method not allowed) pass straight through.
//
// Example usage:
//
//	handler = TrafficLogger(trafficManager)(handler)
func TrafficLogger(m *manager.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.ShouldCapture(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			rec := m.Capture(r)
			cw := newCaptureWriter(w, m.MaxBodyBytes())

			next.ServeHTTP(cw, r)

			rec.CaptureResponse(record.Response{
				StatusCode:   cw.Status(),
				Header:       cw.Header().Clone(),
				Body:         cw.Body(),
				BodyCaptured: cw.BodyCaptured(),
			})
			m.Record(r.Context(), rec)
		})
	}
}
