package config

import "time"

// Config is the root configuration structure for the traffic logger.
// It contains all configuration sections for capture, storage, event
// publishing, the serving proxy, and telemetry.
type Config struct {
	// Traffic controls which requests are captured and how they are redacted.
	Traffic TrafficConfig `yaml:"traffic"`

	// Sink selects and configures the storage backend for captured records.
	Sink SinkConfig `yaml:"sink"`

	// Publisher configures the event dispatched for every recorded request.
	Publisher PublisherConfig `yaml:"publisher"`

	// Server contains the reverse proxy and admin server configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains configuration for observability including logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TrafficConfig contains capture and redaction settings.
type TrafficConfig struct {
	// Enabled turns traffic logging on. Nothing is captured when false.
	// Env: HTTP_TRAFFIC_LOGGER_ENABLED
	// Default: false
	Enabled bool `yaml:"enabled"`

	// RequestMethods lists the HTTP methods that are logged.
	// Default: ["GET", "POST", "PUT", "DELETE", "PATCH"]
	RequestMethods []string `yaml:"request_methods"`

	// DestinationKafkaTopic is the topic the per-request event is sent to.
	// Env: HTTP_TRAFFIC_LOGGER_TOPIC
	// Default: "http-traffic-logs"
	DestinationKafkaTopic string `yaml:"destination_kafka_topic"`

	// SessionCookie is the application session cookie name. It is added to
	// the hidden cookie fragments.
	SessionCookie string `yaml:"session_cookie"`

	// HiddenHeaders are header names removed from logged headers
	// (case-insensitive).
	// Default: ["authorization"]
	HiddenHeaders []string `yaml:"hidden_headers"`

	// HiddenCookies are cookie name fragments removed from logged cookies
	// (case-sensitive substring match).
	// Default: [":access-token"]
	HiddenCookies []string `yaml:"hidden_cookies"`

	// SensitiveTokens are JSON keys whose string values are blanked in
	// request bodies. Bare names are normalised to their quoted form.
	// Default: ["\"password\"", "\"oldPassword\"", "\"passwordConfirmation\""]
	SensitiveTokens []string `yaml:"sensitive_tokens"`

	// MaxBodyBytes caps how much of each request and response body is
	// captured. Handlers and clients always see the complete body.
	// Default: 1048576 (1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// TrustForwardedProto uses X-Forwarded-Proto to rebuild the request URL.
	// Default: false
	TrustForwardedProto bool `yaml:"trust_forwarded_proto"`

	// UserIDHeader names a request header, set by a trusted authentication
	// gateway, whose value is recorded as user_id. Empty records no user.
	// Default: ""
	UserIDHeader string `yaml:"user_id_header"`

	// AsyncBuffer is the size of the background record queue. Zero stores
	// and publishes inline on the request path.
	// Default: 0
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single store+publish attempt.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// HiddenCookieFragments returns the configured cookie fragments plus the
// session cookie name, if set.
func (c *TrafficConfig) HiddenCookieFragments() []string {
	fragments := make([]string, 0, len(c.HiddenCookies)+1)
	if c.SessionCookie != "" {
		fragments = append(fragments, c.SessionCookie)
	}
	return append(fragments, c.HiddenCookies...)
}

// SinkConfig selects exactly one storage backend.
type SinkConfig struct {
	// Backend is the storage backend.
	// Options: "file", "redis", "gcs", "sqlite", "memory", "none"
	// "none" publishes the full dump inline instead of a locator.
	// Default: "file"
	Backend string `yaml:"backend"`

	// File configures the file backend.
	File FileSinkConfig `yaml:"file"`

	// Redis configures the hash-store backend.
	Redis RedisSinkConfig `yaml:"redis"`

	// GCS configures the object-storage backend.
	GCS GCSSinkConfig `yaml:"gcs"`

	// SQLite configures the SQL backend.
	SQLite SQLiteSinkConfig `yaml:"sqlite"`
}

// FileSinkConfig configures the file backend.
type FileSinkConfig struct {
	// Root is the filesystem root the log directory is resolved against.
	// Default: "./storage"
	Root string `yaml:"root"`

	// LogDir is the directory, relative to Root, records are written to.
	// Default: "http-traffic"
	LogDir string `yaml:"log_dir"`
}

// RedisSinkConfig configures the hash-store backend.
type RedisSinkConfig struct {
	// Connection is the Redis address ("host:port").
	// Default: "127.0.0.1:6379"
	Connection string `yaml:"redis_connection"`

	// Key is the hash every record is written into, one field per record.
	// Default: "http-traffic"
	Key string `yaml:"redis_key"`

	// Username for Redis ACL authentication.
	Username string `yaml:"username"`

	// Password for Redis authentication.
	Password string `yaml:"password"`

	// DB is the Redis database number.
	// Default: 0
	DB int `yaml:"db"`

	// RotateSchedule is a cron expression. When set, the hash key is
	// suffixed with the current date and re-evaluated on this schedule.
	// Example: "0 0 * * *"
	RotateSchedule string `yaml:"rotate_schedule"`
}

// GCSSinkConfig configures the object-storage backend.
type GCSSinkConfig struct {
	// LogBucket is the bucket records are written to.
	// Env: HTTP_TRAFFIC_LOGGER_BUCKET
	// Default: "ucraft-http-traffic-logs"
	LogBucket string `yaml:"log_bucket"`

	// KeyFilePath is the service account credentials JSON file.
	// Env: HTTP_TRAFFIC_LOGGER_KEY_FILE_PATH
	KeyFilePath string `yaml:"key_file_path"`

	// WatchKeyFile reloads the client when the credentials file changes.
	// Default: true
	WatchKeyFile bool `yaml:"watch_key_file"`
}

// SQLiteSinkConfig configures the SQL backend.
type SQLiteSinkConfig struct {
	// Path is the database file path.
	// Default: "data/traffic.db"
	Path string `yaml:"path"`

	// Driver is the database/sql driver name.
	// Options: "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Driver string `yaml:"driver"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a writer waits for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

}

// PublisherConfig configures the event dispatcher.
type PublisherConfig struct {
	// Dispatcher is the transport events are handed to.
	// Options: "kafka", "mqtt", "log", "memory"
	// Default: "kafka"
	Dispatcher string `yaml:"dispatcher"`

	// Kafka configures the Kafka producer.
	Kafka KafkaConfig `yaml:"kafka"`

	// MQTT configures the MQTT client.
	MQTT MQTTConfig `yaml:"mqtt"`
}

// KafkaConfig configures the Kafka producer.
type KafkaConfig struct {
	// Brokers is the list of bootstrap brokers.
	// Default: ["127.0.0.1:9092"]
	Brokers []string `yaml:"brokers"`

	// ClientID identifies the producer to the brokers.
	// Default: "trafficlogger"
	ClientID string `yaml:"client_id"`

	// BatchTimeout is how long the producer waits to fill a batch.
	// Default: 10ms
	BatchTimeout time.Duration `yaml:"batch_timeout"`

	// RequiredAcks is the acknowledgment level.
	// Options: "none", "one", "all"
	// Default: "none"
	RequiredAcks string `yaml:"required_acks"`
}

// MQTTConfig configures the MQTT client.
type MQTTConfig struct {
	// Broker is the broker URL.
	// Default: "tcp://127.0.0.1:1883"
	Broker string `yaml:"broker"`

	// ClientID identifies the client to the broker.
	// Default: "trafficlogger"
	ClientID string `yaml:"client_id"`

	// Username for broker authentication.
	Username string `yaml:"username"`

	// Password for broker authentication.
	Password string `yaml:"password"`

	// QoS is the publish quality of service (0, 1 or 2).
	// Default: 0
	QoS int `yaml:"qos"`

	// TopicPrefix is prepended to the destination topic.
	TopicPrefix string `yaml:"topic_prefix"`

	// ConnectTimeout bounds the initial broker connection.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// ServerConfig contains configuration for the reverse proxy and admin servers.
type ServerConfig struct {
	// ListenAddress is the address the logging proxy listens on.
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// AdminAddress serves health, readiness, version and metrics.
	// Default: "127.0.0.1:9090"
	AdminAddress string `yaml:"admin_address"`

	// UpstreamURL is the application the proxy forwards to.
	// Default: "http://127.0.0.1:8000"
	UpstreamURL string `yaml:"upstream_url"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response writes.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// TLS terminates HTTPS on the proxy listener.
	TLS TLSConfig `yaml:"tls"`
}

// TLSConfig configures HTTPS on the proxy listener.
type TLSConfig struct {
	// Enabled serves the proxy over TLS.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// CertFile is the PEM-encoded certificate chain.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM-encoded private key.
	KeyFile string `yaml:"key_file"`

	// MinVersion is the minimum accepted protocol version.
	// Options: "1.2", "1.3"
	// Default: "1.2"
	MinVersion string `yaml:"min_version"`

	// ClientCAFile, when set, requires clients to present a certificate
	// signed by one of these CAs.
	ClientCAFile string `yaml:"client_ca_file"`

	// ReloadInterval is how often the certificate files are checked for
	// changes.
	// Default: 5m
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII masks emails, tokens and keys in log attributes.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus endpoint on the admin server.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "trafficlogger"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is the service name in traces.
	// Default: "trafficlogger"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// CheckTimeout is the timeout for individual component checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
