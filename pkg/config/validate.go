package config

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Has reports whether a field error was recorded for field.
func (e ValidationError) Has(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateTraffic(&cfg.Traffic)...)
	errs = append(errs, validateSink(&cfg.Sink)...)
	errs = append(errs, validatePublisher(&cfg.Publisher)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// methodToken matches an RFC 9110 method token.
var methodToken = regexp.MustCompile("^[!#$%&'*+\\-.^_`|~0-9A-Za-z]+$")

// validateTraffic validates capture settings.
func validateTraffic(cfg *TrafficConfig) []FieldError {
	var errs []FieldError

	if len(cfg.RequestMethods) == 0 {
		errs = append(errs, FieldError{
			Field:   "traffic.request_methods",
			Message: "at least one request method is required",
		})
	}
	for i, m := range cfg.RequestMethods {
		if !methodToken.MatchString(m) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("traffic.request_methods[%d]", i),
				Message: fmt.Sprintf("invalid HTTP method %q", m),
			})
		}
	}

	if cfg.Enabled && cfg.DestinationKafkaTopic == "" {
		errs = append(errs, FieldError{
			Field:   "traffic.destination_kafka_topic",
			Message: "destination topic is required when traffic logging is enabled",
		})
	}

	for i, token := range cfg.SensitiveTokens {
		if token == "" || token == `""` {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("traffic.sensitive_tokens[%d]", i),
				Message: "sensitive token must not be empty",
			})
		}
	}

	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "traffic.max_body_bytes",
			Message: "max body bytes must be positive",
		})
	}
	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "traffic.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "traffic.write_timeout",
			Message: "write timeout must be positive",
		})
	}

	return errs
}

// validateSink validates that the selected backend is fully configured.
func validateSink(cfg *SinkConfig) []FieldError {
	var errs []FieldError

	validBackends := map[string]bool{"file": true, "redis": true, "gcs": true, "sqlite": true, "memory": true, "none": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "sink.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'file', 'redis', 'gcs', 'sqlite', 'memory', or 'none'", cfg.Backend),
		})
		return errs
	}

	switch cfg.Backend {
	case "file":
		if cfg.File.LogDir == "" {
			errs = append(errs, FieldError{
				Field:   "sink.file.log_dir",
				Message: "log directory is required when backend is 'file'",
			})
		}
		if cfg.File.Root == "" {
			errs = append(errs, FieldError{
				Field:   "sink.file.root",
				Message: "root is required when backend is 'file'",
			})
		}
	case "redis":
		if cfg.Redis.Connection == "" {
			errs = append(errs, FieldError{
				Field:   "sink.redis.redis_connection",
				Message: "redis connection is required when backend is 'redis'",
			})
		} else if _, _, err := net.SplitHostPort(cfg.Redis.Connection); err != nil {
			errs = append(errs, FieldError{
				Field:   "sink.redis.redis_connection",
				Message: fmt.Sprintf("invalid redis address %q: %v", cfg.Redis.Connection, err),
			})
		}
		if cfg.Redis.Key == "" {
			errs = append(errs, FieldError{
				Field:   "sink.redis.redis_key",
				Message: "redis key is required when backend is 'redis'",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "sink.redis.db",
				Message: "redis db must be non-negative",
			})
		}
		if cfg.Redis.RotateSchedule != "" {
			if _, err := cron.ParseStandard(cfg.Redis.RotateSchedule); err != nil {
				errs = append(errs, FieldError{
					Field:   "sink.redis.rotate_schedule",
					Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Redis.RotateSchedule, err),
				})
			}
		}
	case "gcs":
		if cfg.GCS.LogBucket == "" {
			errs = append(errs, FieldError{
				Field:   "sink.gcs.log_bucket",
				Message: "log bucket is required when backend is 'gcs'",
			})
		}
		if cfg.GCS.KeyFilePath == "" {
			errs = append(errs, FieldError{
				Field:   "sink.gcs.key_file_path",
				Message: "key file path is required when backend is 'gcs'",
			})
		}
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "sink.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.Driver != "sqlite" && cfg.SQLite.Driver != "sqlite3" {
			errs = append(errs, FieldError{
				Field:   "sink.sqlite.driver",
				Message: fmt.Sprintf("invalid driver %q: must be 'sqlite' or 'sqlite3'", cfg.SQLite.Driver),
			})
		}
		if cfg.SQLite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   "sink.sqlite.max_open_conns",
				Message: "max open connections must be non-negative",
			})
		}
		if cfg.SQLite.BusyTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "sink.sqlite.busy_timeout",
				Message: "busy timeout must be positive",
			})
		}
	}

	return errs
}

// validatePublisher validates the selected dispatcher.
func validatePublisher(cfg *PublisherConfig) []FieldError {
	var errs []FieldError

	switch cfg.Dispatcher {
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			errs = append(errs, FieldError{
				Field:   "publisher.kafka.brokers",
				Message: "at least one broker is required when dispatcher is 'kafka'",
			})
		}
		for i, b := range cfg.Kafka.Brokers {
			if _, _, err := net.SplitHostPort(b); err != nil {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("publisher.kafka.brokers[%d]", i),
					Message: fmt.Sprintf("invalid broker address %q: %v", b, err),
				})
			}
		}
		validAcks := map[string]bool{"none": true, "one": true, "all": true}
		if !validAcks[cfg.Kafka.RequiredAcks] {
			errs = append(errs, FieldError{
				Field:   "publisher.kafka.required_acks",
				Message: fmt.Sprintf("invalid required acks %q: must be 'none', 'one', or 'all'", cfg.Kafka.RequiredAcks),
			})
		}
		if cfg.Kafka.BatchTimeout < 0 {
			errs = append(errs, FieldError{
				Field:   "publisher.kafka.batch_timeout",
				Message: "batch timeout must be positive",
			})
		}
	case "mqtt":
		if u, err := url.Parse(cfg.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   "publisher.mqtt.broker",
				Message: fmt.Sprintf("invalid broker URL %q: expected scheme://host:port", cfg.MQTT.Broker),
			})
		}
		if cfg.MQTT.QoS < 0 || cfg.MQTT.QoS > 2 {
			errs = append(errs, FieldError{
				Field:   "publisher.mqtt.qos",
				Message: "qos must be 0, 1, or 2",
			})
		}
	case "log", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "publisher.dispatcher",
			Message: fmt.Sprintf("invalid dispatcher %q: must be 'kafka', 'mqtt', 'log', or 'memory'", cfg.Dispatcher),
		})
	}

	return errs
}

// validateServer validates server configuration.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.AdminAddress != "" && cfg.AdminAddress == cfg.ListenAddress {
		errs = append(errs, FieldError{
			Field:   "server.admin_address",
			Message: "admin address must differ from listen address",
		})
	}

	if cfg.UpstreamURL == "" {
		errs = append(errs, FieldError{
			Field:   "server.upstream_url",
			Message: "upstream URL is required",
		})
	} else if u, err := url.Parse(cfg.UpstreamURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "server.upstream_url",
			Message: fmt.Sprintf("invalid upstream URL %q: must be an absolute http(s) URL", cfg.UpstreamURL),
		})
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"server.read_timeout", cfg.ReadTimeout},
		{"server.write_timeout", cfg.WriteTimeout},
		{"server.idle_timeout", cfg.IdleTimeout},
		{"server.shutdown_timeout", cfg.ShutdownTimeout},
	}
	for _, to := range timeouts {
		if to.value < 0 {
			errs = append(errs, FieldError{
				Field:   to.field,
				Message: "timeout must be positive",
			})
		}
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}

	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.cert_file",
				Message: "cert file is required when TLS is enabled",
			})
		}
		if cfg.TLS.KeyFile == "" {
			errs = append(errs, FieldError{
				Field:   "server.tls.key_file",
				Message: "key file is required when TLS is enabled",
			})
		}
		if cfg.TLS.MinVersion != "1.2" && cfg.TLS.MinVersion != "1.3" {
			errs = append(errs, FieldError{
				Field:   "server.tls.min_version",
				Message: fmt.Sprintf("invalid TLS version %q: must be '1.2' or '1.3'", cfg.TLS.MinVersion),
			})
		}
		if cfg.TLS.ReloadInterval < 0 {
			errs = append(errs, FieldError{
				Field:   "server.tls.reload_interval",
				Message: "reload interval must be positive",
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be positive",
		})
	}
	if cfg.Health.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout exceeds reasonable limit (60s)",
		})
	}

	return errs
}
