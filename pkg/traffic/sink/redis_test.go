package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"ucraft/trafficlogger/pkg/traffic"
)

func newTestRedisSink(t *testing.T, key, schedule string) (*RedisSink, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	s, err := NewRedisSink(context.Background(), RedisConfig{
		Addr:           mr.Addr(),
		Key:            key,
		RotateSchedule: schedule,
	})
	if err != nil {
		t.Fatalf("NewRedisSink() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedisSink_Store(t *testing.T) {
	s, mr := newTestRedisSink(t, "http-traffic", "")

	payload := `{"uuid":"rec-1","method":"POST"}`
	locator, err := s.Store(context.Background(), traffic.Entry{ID: "rec-1", Payload: []byte(payload)})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if locator != "http-traffic:rec-1" {
		t.Errorf("Store() = %q, want %q", locator, "http-traffic:rec-1")
	}
	if got := mr.HGet("http-traffic", "rec-1"); got != payload {
		t.Errorf("HGET = %q, want %q", got, payload)
	}
}

func TestRedisSink_ConcurrentFieldsShareKey(t *testing.T) {
	s, mr := newTestRedisSink(t, "traffic", "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("rec-%d", i)
			if _, err := s.Store(context.Background(), traffic.Entry{ID: id, Payload: []byte(id)}); err != nil {
				t.Errorf("Store(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	keys, err := mr.HKeys("traffic")
	if err != nil {
		t.Fatalf("HKeys() error = %v", err)
	}
	if len(keys) != 20 {
		t.Errorf("hash has %d fields, want 20", len(keys))
	}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("rec-%d", i)
		if got := mr.HGet("traffic", id); got != id {
			t.Errorf("HGET %s = %q, want %q", id, got, id)
		}
	}
}

func TestRedisSink_RotatedKey(t *testing.T) {
	s, mr := newTestRedisSink(t, "traffic", "0 0 * * *")

	key := s.rotator.Current()
	if !strings.HasPrefix(key, "traffic:") || len(key) != len("traffic:2006-01-02") {
		t.Errorf("current key = %q, want traffic:YYYY-MM-DD", key)
	}

	locator, err := s.Store(context.Background(), traffic.Entry{ID: "r", Payload: []byte("{}")})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if locator != key+":r" {
		t.Errorf("Store() = %q, want %q", locator, key+":r")
	}
	if mr.HGet(key, "r") != "{}" {
		t.Errorf("payload not written under %q", key)
	}
}

func TestRedisSink_Ping(t *testing.T) {
	s, mr := newTestRedisSink(t, "traffic", "")

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	mr.Close()
	if err := s.Ping(context.Background()); err == nil {
		t.Error("Ping() after server shutdown expected error, got nil")
	}
}

func TestRedisSink_StoreFailure(t *testing.T) {
	s, mr := newTestRedisSink(t, "traffic", "")
	mr.SetError("READONLY You can't write against a read only replica")

	_, err := s.Store(context.Background(), traffic.Entry{ID: "x", Payload: []byte("{}")})
	var storageErr *traffic.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Store() error = %v, want StorageError", err)
	}
	if storageErr.Backend != "redis" || storageErr.Operation != "store" {
		t.Errorf("StorageError = %+v, want backend redis, operation store", storageErr)
	}
}

func TestNewRedisSink_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisSink(context.Background(), RedisConfig{Addr: addr, Key: "traffic"})
	if err == nil {
		t.Fatal("NewRedisSink() expected error, got nil")
	}
}

func TestNewRedisSink_InvalidSchedule(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := NewRedisSink(context.Background(), RedisConfig{Addr: mr.Addr(), Key: "traffic", RotateSchedule: "daily"})
	if err == nil {
		t.Fatal("NewRedisSink() expected error for invalid schedule, got nil")
	}
}
