package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"ucraft/trafficlogger/pkg/traffic"
)

func TestFileSink_Store(t *testing.T) {
	fs := memfs.New()
	s, err := NewFileSink(fs, "http-traffic")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	payload := []byte(`{"uuid":"abc","method":"GET"}`)
	locator, err := s.Store(context.Background(), traffic.Entry{ID: "abc", CreatedAt: time.Now(), Payload: payload})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if locator != "http-traffic/abc.json" {
		t.Errorf("Store() = %q, want %q", locator, "http-traffic/abc.json")
	}

	got, err := util.ReadFile(fs, locator)
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("stored payload = %s, want %s", got, payload)
	}
}

func TestFileSink_LogDirNormalised(t *testing.T) {
	tests := []struct {
		logDir string
		want   string
	}{
		{"http-traffic", "http-traffic/x.json"},
		{"/http-traffic/", "http-traffic/x.json"},
		{"logs/./http", "logs/http/x.json"},
		{"logs/../traffic", "traffic/x.json"},
	}

	for _, tt := range tests {
		s, err := NewFileSink(memfs.New(), tt.logDir)
		if err != nil {
			t.Fatalf("NewFileSink(%q) error = %v", tt.logDir, err)
		}
		got, err := s.Store(context.Background(), traffic.Entry{ID: "x", Payload: []byte("{}")})
		if err != nil {
			t.Fatalf("Store() error = %v", err)
		}
		if got != tt.want {
			t.Errorf("Store() with log dir %q = %q, want %q", tt.logDir, got, tt.want)
		}
	}
}

func TestFileSink_EmptyLogDir(t *testing.T) {
	for _, dir := range []string{"", "/", "."} {
		if _, err := NewFileSink(memfs.New(), dir); err == nil {
			t.Errorf("NewFileSink(%q) expected error, got nil", dir)
		}
	}
}

func TestFileSink_ReadAndList(t *testing.T) {
	s, err := NewFileSink(memfs.New(), "logs")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}
	ctx := context.Background()

	ids, err := s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() on empty dir = %v, want empty", ids)
	}

	for _, id := range []string{"c", "a", "b"} {
		if _, err := s.Store(ctx, traffic.Entry{ID: id, Payload: []byte(`{"uuid":"` + id + `"}`)}); err != nil {
			t.Fatalf("Store(%s) error = %v", id, err)
		}
	}

	ids, err = s.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("List() = %v, want [a b c]", ids)
	}

	data, err := s.Read("b")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(data) != `{"uuid":"b"}` {
		t.Errorf("Read() = %s, want {\"uuid\":\"b\"}", data)
	}

	_, err = s.Read("missing")
	var storageErr *traffic.StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("Read(missing) error = %v, want StorageError", err)
	}
	if storageErr.Operation != "read" {
		t.Errorf("Operation = %q, want %q", storageErr.Operation, "read")
	}
}

func TestFileSink_CancelledContext(t *testing.T) {
	s, err := NewFileSink(memfs.New(), "logs")
	if err != nil {
		t.Fatalf("NewFileSink() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Store(ctx, traffic.Entry{ID: "x", Payload: []byte("{}")})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Store() error = %v, want context.Canceled", err)
	}
}

func TestOSFileSink(t *testing.T) {
	root := t.TempDir()
	s, err := NewOSFileSink(root, "http-traffic")
	if err != nil {
		t.Fatalf("NewOSFileSink() error = %v", err)
	}

	locator, err := s.Store(context.Background(), traffic.Entry{ID: "disk", Payload: []byte(`{"a":1}`)})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(locator)))
	if err != nil {
		t.Fatalf("failed to read file from disk: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("file content = %s, want {\"a\":1}", data)
	}
}
