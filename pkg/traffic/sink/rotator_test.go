package sink

import (
	"testing"
	"time"
)

func TestKeyRotator_NoSchedule(t *testing.T) {
	r, err := NewKeyRotator("traffic", "")
	if err != nil {
		t.Fatalf("NewKeyRotator() error = %v", err)
	}

	r.Start()
	defer r.Stop()

	if got := r.Current(); got != "traffic" {
		t.Errorf("Current() = %q, want %q", got, "traffic")
	}

	r.Rotate()
	if got := r.Current(); got != "traffic" {
		t.Errorf("Current() after Rotate() = %q, want %q", got, "traffic")
	}
	if r.NextRun() != nil {
		t.Error("NextRun() without schedule should be nil")
	}
}

func TestKeyRotator_Rotate(t *testing.T) {
	r, err := NewKeyRotator("traffic", "0 0 * * *")
	if err != nil {
		t.Fatalf("NewKeyRotator() error = %v", err)
	}

	days := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC), "traffic:2024-01-31"},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "traffic:2024-02-01"},
		{time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC), "traffic:2024-12-31"},
		// Local times are converted to UTC first
		{time.Date(2025, 1, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600)), "traffic:2025-01-01"},
		{time.Date(2025, 1, 1, 0, 30, 0, 0, time.FixedZone("CET", 3600)), "traffic:2024-12-31"},
	}

	for _, d := range days {
		now := d.now
		r.now = func() time.Time { return now }
		r.Rotate()
		if got := r.Current(); got != d.want {
			t.Errorf("Current() at %v = %q, want %q", d.now, got, d.want)
		}
	}
}

func TestKeyRotator_StartStop(t *testing.T) {
	r, err := NewKeyRotator("traffic", "*/5 * * * *")
	if err != nil {
		t.Fatalf("NewKeyRotator() error = %v", err)
	}

	r.Start()
	next := r.NextRun()
	if next == nil {
		t.Fatal("NextRun() = nil after Start()")
	}
	if !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	r.Stop()
	// Stopping twice is safe
	r.Stop()
}

func TestKeyRotator_InvalidSchedule(t *testing.T) {
	if _, err := NewKeyRotator("traffic", "not a cron"); err == nil {
		t.Error("NewKeyRotator() expected error, got nil")
	}
}
