package sink

import (
	"context"
	"sort"
	"sync"

	"ucraft/trafficlogger/pkg/traffic"
)

// MemorySink keeps dumps in an in-process map.
// This implementation is intended for testing and local runs only.
type MemorySink struct {
	entries map[string]traffic.Entry
	mu      sync.RWMutex
	failErr error
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		entries: make(map[string]traffic.Entry),
	}
}

// Name implements traffic.Sink.
func (s *MemorySink) Name() string { return "memory" }

// Store keeps a copy of the entry and returns its identifier.
func (s *MemorySink) Store(ctx context.Context, entry traffic.Entry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failErr != nil {
		return "", traffic.NewStorageError("memory", "store", s.failErr)
	}

	// Copy the payload to avoid aliasing the caller's buffer
	entry.Payload = append([]byte(nil), entry.Payload...)
	s.entries[entry.ID] = entry

	return entry.ID, nil
}

// FailWith makes every subsequent Store fail with err. Pass nil to recover.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Get returns the entry stored under id.
func (s *MemorySink) Get(id string) (traffic.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	return entry, ok
}

// Entries returns every stored entry ordered by creation time.
func (s *MemorySink) Entries() []traffic.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]traffic.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Size returns the number of stored entries.
func (s *MemorySink) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries.
func (s *MemorySink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]traffic.Entry)
}

// Close implements traffic.Sink.
func (s *MemorySink) Close() error { return nil }

// Discard is the sink used when no backend is configured. Nothing is
// persisted; the publisher embeds the dump in the message instead.
type Discard struct{}

// Name implements traffic.Sink.
func (Discard) Name() string { return "none" }

// Store returns an empty location token.
func (Discard) Store(context.Context, traffic.Entry) (string, error) { return "", nil }

// Close implements traffic.Sink.
func (Discard) Close() error { return nil }
