package sink

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultKeyReloadDelay debounces bursts of events from a single key rotation.
const DefaultKeyReloadDelay = 100 * time.Millisecond

// KeyFileWatcher calls onChange after the credentials file is written,
// created or swapped. The parent directory is watched so atomic renames and
// mounted-secret symlink swaps are seen.
type KeyFileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	delay    time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	doneCh chan struct{}
}

// NewKeyFileWatcher starts watching path.
func NewKeyFileWatcher(path string, onChange func()) (*KeyFileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	path = filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &KeyFileWatcher{
		path:     path,
		watcher:  watcher,
		onChange: onChange,
		delay:    DefaultKeyReloadDelay,
		logger:   slog.Default().With("component", "traffic.sink.keywatch"),
		doneCh:   make(chan struct{}),
	}
	go w.loop()

	w.logger.Info("watching credentials file", "path", path)
	return w, nil
}

func (w *KeyFileWatcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("credentials file event", "path", event.Name, "op", event.Op.String())
			w.trigger()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("credentials watcher error", "error", err)
		}
	}
}

func (w *KeyFileWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	// Kubernetes secret volumes swap the ..data symlink
	return name == w.path || filepath.Base(name) == "..data"
}

func (w *KeyFileWatcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.onChange)
}

// Close stops watching. Pending reloads are cancelled.
func (w *KeyFileWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.doneCh
	return err
}
