package sink

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"ucraft/trafficlogger/pkg/traffic"
)

// RedisConfig contains configuration for the hash-store backend.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	Addr string

	Username string
	Password string
	DB       int

	// Key is the top-level hash every record is written into.
	Key string

	// RotateSchedule is an optional cron expression; on each tick the hash
	// key switches to {Key}:{YYYY-MM-DD}.
	RotateSchedule string
}

// RedisSink writes each dump as one field of a shared Redis hash. HSET is
// atomic per field, so concurrent writers never clobber each other.
type RedisSink struct {
	client  *redis.Client
	rotator *KeyRotator
	logger  *slog.Logger
}

// NewRedisSink connects to Redis and verifies the connection with PING.
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, traffic.NewStorageError("redis", "connect", err)
	}

	rotator, err := NewKeyRotator(cfg.Key, cfg.RotateSchedule)
	if err != nil {
		_ = client.Close()
		return nil, traffic.NewStorageError("redis", "schedule", err)
	}
	rotator.Start()

	logger := slog.Default().With("component", "traffic.sink.redis")
	logger.Info("redis sink initialized",
		"addr", cfg.Addr,
		"key", rotator.Current(),
		"rotate_schedule", cfg.RotateSchedule,
	)

	return &RedisSink{
		client:  client,
		rotator: rotator,
		logger:  logger,
	}, nil
}

// Name implements traffic.Sink.
func (s *RedisSink) Name() string { return "redis" }

// Store writes the payload under field entry.ID and returns "{key}:{id}".
func (s *RedisSink) Store(ctx context.Context, entry traffic.Entry) (string, error) {
	key := s.rotator.Current()
	if err := s.client.HSet(ctx, key, entry.ID, entry.Payload).Err(); err != nil {
		return "", traffic.NewStorageError("redis", "store", err)
	}

	s.logger.Debug("dump written", "record_id", entry.ID, "key", key)
	return key + ":" + entry.ID, nil
}

// Ping implements traffic.Pinger.
func (s *RedisSink) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return traffic.NewStorageError("redis", "ping", err)
	}
	return nil
}

// Close stops key rotation and closes the client.
func (s *RedisSink) Close() error {
	s.rotator.Stop()
	if err := s.client.Close(); err != nil {
		return traffic.NewStorageError("redis", "close", err)
	}
	return nil
}
