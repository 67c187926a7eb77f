package sink

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// KeyRotator tracks the current hash key for the redis backend. Without a
// schedule the key is fixed; with one, every tick moves writes to a new
// dated container so a single hash never grows without bound.
type KeyRotator struct {
	base     string
	schedule string
	now      func() time.Time

	cron    *cron.Cron
	mu      sync.RWMutex
	current string
	running bool
	logger  *slog.Logger
}

// NewKeyRotator creates a rotator for base. An empty schedule disables rotation.
func NewKeyRotator(base, schedule string) (*KeyRotator, error) {
	r := &KeyRotator{
		base:     base,
		schedule: schedule,
		now:      time.Now,
		current:  base,
		logger:   slog.Default().With("component", "traffic.sink.rotator"),
	}

	if schedule == "" {
		return r, nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(schedule, r.Rotate); err != nil {
		return nil, fmt.Errorf("failed to schedule key rotation: %w", err)
	}

	// Start on a dated key right away
	r.current = r.keyFor(r.now())
	return r, nil
}

// Start begins scheduled rotation. It is a no-op without a schedule.
func (r *KeyRotator) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cron == nil || r.running {
		return
	}
	r.cron.Start()
	r.running = true
}

// Stop stops scheduled rotation and waits for a running tick to finish.
func (r *KeyRotator) Stop() {
	r.mu.Lock()
	if r.cron == nil || !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	<-r.cron.Stop().Done()
}

// Rotate switches to the key for the current date.
func (r *KeyRotator) Rotate() {
	if r.schedule == "" {
		return
	}

	key := r.keyFor(r.now())

	r.mu.Lock()
	previous := r.current
	r.current = key
	r.mu.Unlock()

	if previous != key {
		r.logger.Info("hash key rotated", "previous", previous, "current", key)
	}
}

// Current returns the key new writes go to.
func (r *KeyRotator) Current() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// NextRun returns the next scheduled rotation, or nil without a schedule.
func (r *KeyRotator) NextRun() *time.Time {
	if r.cron == nil {
		return nil
	}
	entries := r.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (r *KeyRotator) keyFor(t time.Time) string {
	return r.base + ":" + t.UTC().Format("2006-01-02")
}
