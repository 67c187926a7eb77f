package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorResponse is the body written when a handler panics.
type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// Recovery recovers from panics in downstream handlers and answers 500. The
// panic and its stack trace are logged; clients only see a generic message.
//
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
//
// Example usage:
//
//	handler = Recovery(handler)
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			err := recover()
			if err == nil {
				return
			}
			if err == http.ErrAbortHandler {
				panic(err)
			}

			requestID := GetRequestID(r.Context())
			slog.ErrorContext(r.Context(), "panic in handler",
				"error", err,
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(errorResponse{
				Error:     "An internal error occurred. Please try again later.",
				RequestID: requestID,
			})
		}()

		next.ServeHTTP(w, r)
	})
}
