package sink

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"ucraft/trafficlogger/pkg/traffic"
)

// FileSink writes each dump to {logDir}/{id}.json on a billy filesystem.
type FileSink struct {
	fs     billy.Filesystem
	logDir string
	logger *slog.Logger
}

// NewFileSink creates a file sink writing below logDir on fs.
func NewFileSink(fs billy.Filesystem, logDir string) (*FileSink, error) {
	logDir = strings.Trim(path.Clean("/"+logDir), "/")
	if logDir == "" {
		return nil, traffic.NewStorageError("file", "open", errors.New("log directory is required"))
	}
	if err := fs.MkdirAll(logDir, 0o755); err != nil {
		return nil, traffic.NewStorageError("file", "mkdir", err)
	}
	return &FileSink{
		fs:     fs,
		logDir: logDir,
		logger: slog.Default().With("component", "traffic.sink.file"),
	}, nil
}

// NewOSFileSink creates a file sink rooted at a directory on the local disk.
func NewOSFileSink(root, logDir string) (*FileSink, error) {
	return NewFileSink(osfs.New(root), logDir)
}

// Name implements traffic.Sink.
func (s *FileSink) Name() string { return "file" }

// Store writes the payload and returns its path relative to the filesystem root.
func (s *FileSink) Store(ctx context.Context, entry traffic.Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", traffic.NewStorageError("file", "store", err)
	}

	p := s.pathFor(entry.ID)
	if err := util.WriteFile(s.fs, p, entry.Payload, 0o644); err != nil {
		return "", traffic.NewStorageError("file", "store", err)
	}

	s.logger.Debug("dump written", "record_id", entry.ID, "path", p)
	return p, nil
}

// Read returns the stored payload for a record.
func (s *FileSink) Read(id string) ([]byte, error) {
	data, err := util.ReadFile(s.fs, s.pathFor(id))
	if err != nil {
		return nil, traffic.NewStorageError("file", "read", err)
	}
	return data, nil
}

// List returns the identifiers of every stored dump, sorted.
func (s *FileSink) List() ([]string, error) {
	infos, err := s.fs.ReadDir(s.logDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, traffic.NewStorageError("file", "list", err)
	}

	ids := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements traffic.Sink.
func (s *FileSink) Close() error { return nil }

func (s *FileSink) pathFor(id string) string {
	return path.Join(s.logDir, id+".json")
}
