// Package config provides configuration management for the traffic logger.
//
// This package handles loading, validating, and defaulting configuration from
// YAML files with environment variable overrides. The loaded *Config is
// passed explicitly to the components that need it; there is no global
// configuration state.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// An empty path loads the defaults.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention
// HTTP_TRAFFIC_LOGGER_SECTION_FIELD. For example:
//
//   - HTTP_TRAFFIC_LOGGER_SINK_BACKEND overrides sink.backend
//   - HTTP_TRAFFIC_LOGGER_SERVER_UPSTREAM_URL overrides server.upstream_url
//   - HTTP_TRAFFIC_LOGGER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Four short names are also recognised:
//
//   - HTTP_TRAFFIC_LOGGER_ENABLED overrides traffic.enabled
//   - HTTP_TRAFFIC_LOGGER_TOPIC overrides traffic.destination_kafka_topic
//   - HTTP_TRAFFIC_LOGGER_BUCKET overrides sink.gcs.log_bucket
//   - HTTP_TRAFFIC_LOGGER_KEY_FILE_PATH overrides sink.gcs.key_file_path
//
// List values (request methods, sensitive tokens, Kafka brokers) are
// comma-separated.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Validation
//
// Validation collects every problem into a single ValidationError:
//
//	configuration validation failed with 2 errors:
//	  - sink.gcs.key_file_path: key file path is required when backend is 'gcs'
//	  - traffic.request_methods[1]: invalid HTTP method "GE T"
//
// # Example Configuration
//
//	traffic:
//	  enabled: true
//	  request_methods: [GET, POST, PUT, DELETE, PATCH]
//	  destination_kafka_topic: http-traffic-logs
//	  session_cookie: app_session
//
//	sink:
//	  backend: redis
//	  redis:
//	    redis_connection: "127.0.0.1:6379"
//	    redis_key: http-traffic
//
//	publisher:
//	  dispatcher: kafka
//	  kafka:
//	    brokers: ["127.0.0.1:9092"]
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	  upstream_url: "http://app:8000"
package config
