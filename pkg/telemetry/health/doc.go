// Package health provides liveness, readiness and version endpoints for the
// admin server.
//
//   - /health: the process is running
//   - /ready: every registered check passes (503 otherwise)
//   - /version: build information
//
// The serve command registers the sink and the dispatcher when they can
// report connectivity (redis PING, sqlite ping, kafka broker dial, mqtt
// connection state):
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterPinger("sink", sink)
//	checker.RegisterPinger("publisher", dispatcher)
//
//	mux := http.NewServeMux()
//	health.Mount(mux, checker, health.NewVersionInfo(version, commit, buildTime))
//
// Checks run concurrently, each bounded by the check timeout.
package health
