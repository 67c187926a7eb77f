// Package server runs the logging reverse proxy.
//
// The proxy listener forwards every request to the configured upstream
// application through httputil.ReverseProxy, with the traffic interceptor in
// the middleware chain:
//
//	client -> tracing -> request id -> access log -> user header
//	       -> traffic logger -> recovery -> reverse proxy -> upstream
//
// A separate admin listener serves /health, /ready, /version and the
// Prometheus endpoint, so probes and scrapes are never recorded as traffic.
//
// # Basic Usage
//
//	srv, err := server.New(&cfg.Server, server.Options{
//	    Manager:      trafficManager,
//	    Checker:      checker,
//	    Metrics:      collector,
//	    MetricsPath:  cfg.Telemetry.Metrics.Path,
//	    Version:      health.NewVersionInfo(version, commit, buildDate),
//	    UserIDHeader: cfg.Traffic.UserIDHeader,
//	})
//	if err != nil {
//	    return err
//	}
//
//	ctx, stop := cli.SetupSignalHandler(context.Background())
//	defer stop()
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	trafficManager.Close() // drain queued records
//
// With server.tls.enabled the proxy listener terminates HTTPS. The
// certificate pair is polled every reload_interval and swapped in place when
// either file changes; a client_ca_file turns on client certificate
// verification.
//
// Start blocks until ctx is cancelled, then shuts both listeners down within
// ShutdownTimeout. Upstream failures are answered with 502 and still
// recorded.
package server
