// Trafficlogger records HTTP exchanges passing through it.
//
// It runs as a reverse proxy in front of an application. Every request whose
// method is enabled is captured together with its response, redacted, stored
// in the configured sink and announced on the configured event stream:
//   - Storage in files, Redis, Google Cloud Storage or SQLite
//   - Events on Kafka or MQTT, carrying a locator or the whole dump
//   - Header, cookie and JSON body redaction
//   - Prometheus metrics, OpenTelemetry traces and health probes
//
// Usage:
//
//	# Start the logging proxy
//	trafficlogger serve --config config.yaml
//
//	# Check a configuration file
//	trafficlogger validate --config config.yaml
//
//	# Export stored records as CSV
//	trafficlogger records export --root ./storage --dir http-traffic --format csv
//
//	# Show version information
//	trafficlogger version
package main

func main() {
	Execute()
}
