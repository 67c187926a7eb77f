// Package middleware provides the HTTP middleware of the logging proxy.
//
// # Traffic logging
//
// TrafficLogger is the interceptor in front of the application handler. For
// every request the traffic manager allows, it captures the request before
// the handler runs, wraps the ResponseWriter to observe the response, and
// records the exchange after the handler returns:
//
//	handler = middleware.TrafficLogger(trafficManager)(handler)
//
// The wrapped writer forwards every write, flush and hijack to the client
// writer, so the handler and the client see exactly what they would without
// logging. The response copy is bounded by the manager's body cap; a body
// larger than the cap, or a hijacked connection, is recorded with a null
// res_body.
//
// # Supporting middleware
//
//   - RequestID: assigns X-Request-ID and stores it in the context for logs
//   - AccessLog: one structured log line per request
//   - Recovery: turns handler panics into 500 responses
//   - UserFromHeader: records a gateway-supplied user id as user_id
//
// # Ordering
//
// The serve command assembles the chain with Chain, outermost first:
//
//	middleware.Chain(proxy,
//	    tracing.HTTPMiddleware,
//	    middleware.RequestID,
//	    middleware.AccessLog(logger),
//	    middleware.UserFromHeader(cfg.Traffic.UserIDHeader),
//	    middleware.TrafficLogger(trafficManager),
//	    middleware.Recovery,
//	)
//
// Recovery sits inside TrafficLogger so a panicking handler is still
// recorded, with its 500 response.
package middleware
