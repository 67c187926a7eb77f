package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment variable override.
const EnvPrefix = "HTTP_TRAFFIC_LOGGER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, so absent keys keep their default
// values. An empty path yields the defaults. The result is validated.
// Environment variables are not consulted; use LoadConfigWithEnvOverrides
// for that.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	// Keys set to empty values in the file fall back to defaults too.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention HTTP_TRAFFIC_LOGGER_SECTION_FIELD (e.g.,
// HTTP_TRAFFIC_LOGGER_SERVER_LISTEN_ADDRESS). The short names
// HTTP_TRAFFIC_LOGGER_ENABLED, _TOPIC, _BUCKET and _KEY_FILE_PATH are also
// recognised. Environment variables always take precedence over the file.
//
// The loading sequence is:
// 1. Start from defaults
// 2. Decode the YAML file
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Short names kept for existing deployments
	envBool("ENABLED", &cfg.Traffic.Enabled)
	envString("TOPIC", &cfg.Traffic.DestinationKafkaTopic)
	envString("BUCKET", &cfg.Sink.GCS.LogBucket)
	envString("KEY_FILE_PATH", &cfg.Sink.GCS.KeyFilePath)

	// Traffic overrides
	envBool("TRAFFIC_ENABLED", &cfg.Traffic.Enabled)
	envList("TRAFFIC_REQUEST_METHODS", &cfg.Traffic.RequestMethods)
	envString("TRAFFIC_DESTINATION_KAFKA_TOPIC", &cfg.Traffic.DestinationKafkaTopic)
	envString("TRAFFIC_SESSION_COOKIE", &cfg.Traffic.SessionCookie)
	envList("TRAFFIC_SENSITIVE_TOKENS", &cfg.Traffic.SensitiveTokens)
	if val := os.Getenv(EnvPrefix + "TRAFFIC_MAX_BODY_BYTES"); val != "" {
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Traffic.MaxBodyBytes = i
		}
	}
	envBool("TRAFFIC_TRUST_FORWARDED_PROTO", &cfg.Traffic.TrustForwardedProto)
	envString("TRAFFIC_USER_ID_HEADER", &cfg.Traffic.UserIDHeader)
	envInt("TRAFFIC_ASYNC_BUFFER", &cfg.Traffic.AsyncBuffer)
	envDuration("TRAFFIC_WRITE_TIMEOUT", &cfg.Traffic.WriteTimeout)

	// Sink overrides
	envString("SINK_BACKEND", &cfg.Sink.Backend)
	envString("SINK_FILE_ROOT", &cfg.Sink.File.Root)
	envString("SINK_FILE_LOG_DIR", &cfg.Sink.File.LogDir)
	envString("SINK_REDIS_CONNECTION", &cfg.Sink.Redis.Connection)
	envString("SINK_REDIS_KEY", &cfg.Sink.Redis.Key)
	envString("SINK_REDIS_USERNAME", &cfg.Sink.Redis.Username)
	envString("SINK_REDIS_PASSWORD", &cfg.Sink.Redis.Password)
	envInt("SINK_REDIS_DB", &cfg.Sink.Redis.DB)
	envString("SINK_REDIS_ROTATE_SCHEDULE", &cfg.Sink.Redis.RotateSchedule)
	envString("SINK_GCS_LOG_BUCKET", &cfg.Sink.GCS.LogBucket)
	envString("SINK_GCS_KEY_FILE_PATH", &cfg.Sink.GCS.KeyFilePath)
	envBool("SINK_GCS_WATCH_KEY_FILE", &cfg.Sink.GCS.WatchKeyFile)
	envString("SINK_SQLITE_PATH", &cfg.Sink.SQLite.Path)
	envString("SINK_SQLITE_DRIVER", &cfg.Sink.SQLite.Driver)

	// Publisher overrides
	envString("PUBLISHER_DISPATCHER", &cfg.Publisher.Dispatcher)
	envList("PUBLISHER_KAFKA_BROKERS", &cfg.Publisher.Kafka.Brokers)
	envString("PUBLISHER_KAFKA_CLIENT_ID", &cfg.Publisher.Kafka.ClientID)
	envString("PUBLISHER_KAFKA_REQUIRED_ACKS", &cfg.Publisher.Kafka.RequiredAcks)
	envString("PUBLISHER_MQTT_BROKER", &cfg.Publisher.MQTT.Broker)
	envString("PUBLISHER_MQTT_CLIENT_ID", &cfg.Publisher.MQTT.ClientID)
	envString("PUBLISHER_MQTT_USERNAME", &cfg.Publisher.MQTT.Username)
	envString("PUBLISHER_MQTT_PASSWORD", &cfg.Publisher.MQTT.Password)
	envInt("PUBLISHER_MQTT_QOS", &cfg.Publisher.MQTT.QoS)

	// Server overrides
	envString("SERVER_LISTEN_ADDRESS", &cfg.Server.ListenAddress)
	envString("SERVER_ADMIN_ADDRESS", &cfg.Server.AdminAddress)
	envString("SERVER_UPSTREAM_URL", &cfg.Server.UpstreamURL)
	envDuration("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled)
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
}

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

// envList parses a comma-separated list, dropping empty items.
func envList(name string, dst *[]string) {
	val := os.Getenv(EnvPrefix + name)
	if val == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
