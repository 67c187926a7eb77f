package config

// ConfigBuilder provides a fluent API for building Config instances in tests.
// It starts with default values and allows selective overrides.
type ConfigBuilder struct {
	cfg *Config
}

// NewTestConfig creates a new ConfigBuilder with logging enabled and the
// defaults applied. The resulting configuration is valid.
func NewTestConfig() *ConfigBuilder {
	cfg := Default()
	cfg.Traffic.Enabled = true
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return b.cfg
}

// WithListenAddress sets the proxy listen address.
func (b *ConfigBuilder) WithListenAddress(addr string) *ConfigBuilder {
	b.cfg.Server.ListenAddress = addr
	return b
}

// WithRequestMethods sets the logged methods.
func (b *ConfigBuilder) WithRequestMethods(methods ...string) *ConfigBuilder {
	b.cfg.Traffic.RequestMethods = methods
	return b
}

// WithFileSink selects the file backend.
func (b *ConfigBuilder) WithFileSink(root, logDir string) *ConfigBuilder {
	b.cfg.Sink.Backend = "file"
	b.cfg.Sink.File = FileSinkConfig{Root: root, LogDir: logDir}
	return b
}

// WithRedisSink selects the hash-store backend.
func (b *ConfigBuilder) WithRedisSink(addr, key string) *ConfigBuilder {
	b.cfg.Sink.Backend = "redis"
	b.cfg.Sink.Redis.Connection = addr
	b.cfg.Sink.Redis.Key = key
	return b
}

// WithGCSSink selects the object-storage backend.
func (b *ConfigBuilder) WithGCSSink(bucket, keyFile string) *ConfigBuilder {
	b.cfg.Sink.Backend = "gcs"
	b.cfg.Sink.GCS.LogBucket = bucket
	b.cfg.Sink.GCS.KeyFilePath = keyFile
	return b
}

// WithDispatcher selects the event dispatcher.
func (b *ConfigBuilder) WithDispatcher(name string) *ConfigBuilder {
	b.cfg.Publisher.Dispatcher = name
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}
