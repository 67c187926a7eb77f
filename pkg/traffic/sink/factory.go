package sink

import (
	"context"
	"errors"
	"fmt"

	"ucraft/trafficlogger/pkg/config"
	"ucraft/trafficlogger/pkg/traffic"
)

var errSinkClosed = errors.New("sink is closed")

// New creates the sink selected by cfg.Backend.
func New(ctx context.Context, cfg *config.SinkConfig) (traffic.Sink, error) {
	var (
		s   traffic.Sink
		err error
	)

	switch cfg.Backend {
	case "file":
		s, err = NewOSFileSink(cfg.File.Root, cfg.File.LogDir)
	case "redis":
		s, err = NewRedisSink(ctx, RedisConfig{
			Addr:           cfg.Redis.Connection,
			Username:       cfg.Redis.Username,
			Password:       cfg.Redis.Password,
			DB:             cfg.Redis.DB,
			Key:            cfg.Redis.Key,
			RotateSchedule: cfg.Redis.RotateSchedule,
		})
	case "gcs":
		s, err = NewGCSSink(ctx, GCSConfig{
			Bucket:       cfg.GCS.LogBucket,
			KeyFilePath:  cfg.GCS.KeyFilePath,
			WatchKeyFile: cfg.GCS.WatchKeyFile,
		})
	case "sqlite":
		s, err = NewSQLiteSink(&SQLiteConfig{
			Path:         cfg.SQLite.Path,
			Driver:       cfg.SQLite.Driver,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
	case "memory":
		s = NewMemorySink()
	case "none":
		s = Discard{}
	default:
		err = fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}

	// A failed constructor leaves a typed nil in s
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Inline reports whether the backend embeds dumps in published messages
// instead of storing them.
func Inline(backend string) bool {
	return backend == "none"
}
