package config

import (
	"strings"
	"time"
)

// Default values for configuration fields.
const (
	// Traffic defaults
	DefaultTrafficTopic        = "http-traffic-logs"
	DefaultTrafficMaxBodyBytes = int64(1048576) // 1MB
	DefaultTrafficWriteTimeout = 5 * time.Second

	// Sink defaults
	DefaultSinkBackend        = "file"
	DefaultFileRoot           = "./storage"
	DefaultFileLogDir         = "http-traffic"
	DefaultRedisConnection    = "127.0.0.1:6379"
	DefaultRedisKey           = "http-traffic"
	DefaultGCSBucket          = "ucraft-http-traffic-logs"
	DefaultGCSWatchKeyFile    = true
	DefaultSQLitePath         = "data/traffic.db"
	DefaultSQLiteDriver       = "sqlite"
	DefaultSQLiteMaxOpenConns = 10
	DefaultSQLiteWALMode      = true
	DefaultSQLiteBusyTimeout  = 5 * time.Second

	// Publisher defaults
	DefaultDispatcher         = "kafka"
	DefaultKafkaBroker        = "127.0.0.1:9092"
	DefaultKafkaClientID      = "trafficlogger"
	DefaultKafkaBatchTimeout  = 10 * time.Millisecond
	DefaultKafkaRequiredAcks  = "none"
	DefaultMQTTBroker         = "tcp://127.0.0.1:1883"
	DefaultMQTTClientID       = "trafficlogger"
	DefaultMQTTConnectTimeout = 10 * time.Second

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultAdminAddress    = "127.0.0.1:9090"
	DefaultUpstreamURL     = "http://127.0.0.1:8000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultTLSMinVersion   = "1.2"
	DefaultTLSReload       = 5 * time.Minute

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultLoggingRedactPII   = true
	DefaultMetricsEnabled     = true
	DefaultPrometheusPath     = "/metrics"
	DefaultMetricsNamespace   = "trafficlogger"
	DefaultTracingEnabled     = false
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampler     = "ratio"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingServiceName = "trafficlogger"
	DefaultTracingInsecure    = true
	DefaultHealthCheckTimeout = 5 * time.Second
)

// Default list values. Use the Default* functions to get a copy.
var (
	defaultRequestMethods  = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}
	defaultHiddenHeaders   = []string{"authorization"}
	defaultHiddenCookies   = []string{":access-token"}
	defaultSensitiveTokens = []string{`"password"`, `"oldPassword"`, `"passwordConfirmation"`}
)

// DefaultRequestMethods returns the methods logged by default. HEAD, CONNECT,
// OPTIONS and TRACE are excluded.
func DefaultRequestMethods() []string {
	return append([]string(nil), defaultRequestMethods...)
}

// Default returns a configuration with every default applied, including the
// boolean defaults ApplyDefaults cannot infer from zero values. The loader
// decodes YAML on top of it, so keys absent from the file keep these values.
func Default() *Config {
	cfg := &Config{}
	cfg.Sink.GCS.WatchKeyFile = DefaultGCSWatchKeyFile
	cfg.Sink.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values and normalises
// request methods and sensitive tokens.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	applyTrafficDefaults(&cfg.Traffic)
	applySinkDefaults(&cfg.Sink)
	applyPublisherDefaults(&cfg.Publisher)
	applyServerDefaults(&cfg.Server)
	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTrafficDefaults(cfg *TrafficConfig) {
	if len(cfg.RequestMethods) == 0 {
		cfg.RequestMethods = DefaultRequestMethods()
	}
	for i, m := range cfg.RequestMethods {
		cfg.RequestMethods[i] = strings.ToUpper(strings.TrimSpace(m))
	}
	if cfg.DestinationKafkaTopic == "" {
		cfg.DestinationKafkaTopic = DefaultTrafficTopic
	}
	if len(cfg.HiddenHeaders) == 0 {
		cfg.HiddenHeaders = append([]string(nil), defaultHiddenHeaders...)
	}
	if len(cfg.HiddenCookies) == 0 {
		cfg.HiddenCookies = append([]string(nil), defaultHiddenCookies...)
	}
	if len(cfg.SensitiveTokens) == 0 {
		cfg.SensitiveTokens = append([]string(nil), defaultSensitiveTokens...)
	}
	for i, token := range cfg.SensitiveTokens {
		cfg.SensitiveTokens[i] = QuoteToken(token)
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultTrafficMaxBodyBytes
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultTrafficWriteTimeout
	}
}

// QuoteToken wraps a bare JSON key in double quotes. Already quoted and
// empty tokens are returned unchanged.
func QuoteToken(token string) string {
	token = strings.TrimSpace(token)
	if token == "" || (len(token) >= 2 && strings.HasPrefix(token, `"`) && strings.HasSuffix(token, `"`)) {
		return token
	}
	return `"` + token + `"`
}

func applySinkDefaults(cfg *SinkConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultSinkBackend
	}

	if cfg.File.Root == "" {
		cfg.File.Root = DefaultFileRoot
	}
	if cfg.File.LogDir == "" {
		cfg.File.LogDir = DefaultFileLogDir
	}

	if cfg.Redis.Connection == "" {
		cfg.Redis.Connection = DefaultRedisConnection
	}
	if cfg.Redis.Key == "" {
		cfg.Redis.Key = DefaultRedisKey
	}

	if cfg.GCS.LogBucket == "" {
		cfg.GCS.LogBucket = DefaultGCSBucket
	}

	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.Driver == "" {
		cfg.SQLite.Driver = DefaultSQLiteDriver
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}

func applyPublisherDefaults(cfg *PublisherConfig) {
	if cfg.Dispatcher == "" {
		cfg.Dispatcher = DefaultDispatcher
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = DefaultKafkaClientID
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}
	if cfg.Kafka.RequiredAcks == "" {
		cfg.Kafka.RequiredAcks = DefaultKafkaRequiredAcks
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = DefaultMQTTBroker
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = DefaultMQTTClientID
	}
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = DefaultMQTTConnectTimeout
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.AdminAddress == "" {
		cfg.AdminAddress = DefaultAdminAddress
	}
	if cfg.UpstreamURL == "" {
		cfg.UpstreamURL = DefaultUpstreamURL
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.TLS.MinVersion == "" {
		cfg.TLS.MinVersion = DefaultTLSMinVersion
	}
	if cfg.TLS.ReloadInterval == 0 {
		cfg.TLS.ReloadInterval = DefaultTLSReload
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}

	if cfg.Tracing.Endpoint == "" {
		cfg.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}

	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
