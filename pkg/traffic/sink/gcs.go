package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"ucraft/trafficlogger/pkg/traffic"
)

// ObjectDateLayout is the date prefix of object names.
const ObjectDateLayout = "2006-01-02"

// Bucket is the subset of object storage the gcs backend needs.
type Bucket interface {
	// WriteObject creates or replaces the named object.
	WriteObject(ctx context.Context, name, contentType string, data []byte) error

	// Close releases the underlying client.
	Close() error
}

// BucketOpener builds a Bucket, typically from freshly read credentials.
type BucketOpener func(ctx context.Context) (Bucket, error)

// GCSConfig contains configuration for the object-storage backend.
type GCSConfig struct {
	Bucket       string
	KeyFilePath  string
	WatchKeyFile bool
}

// GCSSink writes each dump as the object {date}/{id}.json.
type GCSSink struct {
	open    BucketOpener
	watcher *KeyFileWatcher

	mu     sync.RWMutex
	bucket *bucketRef
	logger *slog.Logger
}

// bucketRef counts the writes in flight on a client so a replaced client is
// closed only after they finish.
type bucketRef struct {
	Bucket
	inflight sync.WaitGroup
}

// release waits for in-flight writes and closes the client.
func (r *bucketRef) release() error {
	r.inflight.Wait()
	return r.Close()
}

// NewGCSSink opens a Cloud Storage client from the service account key file.
// When WatchKeyFile is set the client is rebuilt whenever the key changes.
func NewGCSSink(ctx context.Context, cfg GCSConfig) (*GCSSink, error) {
	open := func(ctx context.Context) (Bucket, error) {
		client, err := storage.NewClient(ctx, option.WithCredentialsFile(cfg.KeyFilePath))
		if err != nil {
			return nil, err
		}
		return &gcsBucket{client: client, handle: client.Bucket(cfg.Bucket)}, nil
	}

	s, err := NewBucketSink(ctx, open)
	if err != nil {
		return nil, err
	}

	if cfg.WatchKeyFile {
		// Reloads outlive the constructor's context
		reloadCtx := context.WithoutCancel(ctx)
		watcher, err := NewKeyFileWatcher(cfg.KeyFilePath, func() {
			if err := s.Reload(reloadCtx); err != nil {
				s.logger.Error("failed to reload storage credentials", "error", err)
			}
		})
		if err != nil {
			_ = s.Close()
			return nil, traffic.NewStorageError("gcs", "watch", err)
		}
		s.watcher = watcher
	}

	s.logger.Info("gcs sink initialized",
		"bucket", cfg.Bucket,
		"watch_key_file", cfg.WatchKeyFile,
	)
	return s, nil
}

// NewBucketSink creates an object-storage sink over any Bucket.
func NewBucketSink(ctx context.Context, open BucketOpener) (*GCSSink, error) {
	bucket, err := open(ctx)
	if err != nil {
		return nil, traffic.NewStorageError("gcs", "open", err)
	}
	return &GCSSink{
		open:   open,
		bucket: &bucketRef{Bucket: bucket},
		logger: slog.Default().With("component", "traffic.sink.gcs"),
	}, nil
}

// Name implements traffic.Sink.
func (s *GCSSink) Name() string { return "gcs" }

// Store uploads the payload and returns the object name.
func (s *GCSSink) Store(ctx context.Context, entry traffic.Entry) (string, error) {
	name := ObjectName(entry)

	s.mu.RLock()
	bucket := s.bucket
	if bucket != nil {
		bucket.inflight.Add(1)
	}
	s.mu.RUnlock()

	if bucket == nil {
		return "", traffic.NewStorageError("gcs", "store", errSinkClosed)
	}
	defer bucket.inflight.Done()
	if err := bucket.WriteObject(ctx, name, "application/json", entry.Payload); err != nil {
		return "", traffic.NewStorageError("gcs", "store", err)
	}

	s.logger.Debug("dump uploaded", "record_id", entry.ID, "object", name)
	return name, nil
}

// Reload reopens the bucket and swaps it in. New writes use the new client
// at once; the previous client is closed after its in-flight writes finish.
// A failed reopen keeps the previous client.
func (s *GCSSink) Reload(ctx context.Context) error {
	bucket, err := s.open(ctx)
	if err != nil {
		return traffic.NewStorageError("gcs", "reload", err)
	}

	s.mu.Lock()
	previous := s.bucket
	if previous == nil {
		s.mu.Unlock()
		_ = bucket.Close()
		return traffic.NewStorageError("gcs", "reload", errSinkClosed)
	}
	s.bucket = &bucketRef{Bucket: bucket}
	s.mu.Unlock()

	if err := previous.release(); err != nil {
		s.logger.Warn("failed to close previous storage client", "error", err)
	}
	s.logger.Info("storage credentials reloaded")
	return nil
}

// Close stops the key watcher, waits for in-flight writes and closes the
// client.
func (s *GCSSink) Close() error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}

	s.mu.Lock()
	bucket := s.bucket
	s.bucket = nil
	s.mu.Unlock()

	if bucket == nil {
		return nil
	}
	if err := bucket.release(); err != nil {
		return traffic.NewStorageError("gcs", "close", err)
	}
	return nil
}

// ObjectName returns the object an entry is stored under.
func ObjectName(entry traffic.Entry) string {
	return fmt.Sprintf("%s/%s.json", entry.CreatedAt.UTC().Format(ObjectDateLayout), entry.ID)
}

// gcsBucket adapts a Cloud Storage bucket handle to Bucket.
type gcsBucket struct {
	client *storage.Client
	handle *storage.BucketHandle
}

func (b *gcsBucket) WriteObject(ctx context.Context, name, contentType string, data []byte) error {
	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (b *gcsBucket) Close() error {
	return b.client.Close()
}
