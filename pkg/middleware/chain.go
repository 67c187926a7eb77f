package middleware

import "net/http"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so the first middleware is the outermost.
//
//	Chain(h, RequestID, AccessLog(logger), TrafficLogger(m))
//
// runs RequestID, then AccessLog, then TrafficLogger, then h.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
