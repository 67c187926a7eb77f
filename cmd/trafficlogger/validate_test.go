package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ucraft/trafficlogger/pkg/cli"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestRunValidate(t *testing.T) {
	valid := writeConfig(t, `
traffic:
  enabled: true
  request_methods: [GET, POST]
sink:
  backend: memory
publisher:
  dispatcher: log
server:
  upstream_url: http://127.0.0.1:3000
`)
	invalid := writeConfig(t, `
sink:
  backend: gcs
publisher:
  dispatcher: carrier-pigeon
`)
	malformed := writeConfig(t, "traffic: [\n")

	tests := []struct {
		name     string
		path     string
		wantErr  bool
		contains []string
	}{
		{"valid file", valid, false, []string{"✓ Configuration valid", "Sink:            memory", "-> http://127.0.0.1:3000"}},
		{"defaults", "", false, []string{"(defaults)"}},
		{"invalid file", invalid, true, []string{"✗ Configuration invalid", "publisher.dispatcher", "sink.gcs.key_file_path"}},
		{"malformed file", malformed, true, []string{"failed to parse"}},
		{"missing file", filepath.Join(t.TempDir(), "absent.yaml"), true, []string{"failed to read"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := runValidate(&buf, tt.path, cli.FormatText)
			if (err != nil) != tt.wantErr {
				t.Fatalf("runValidate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && cli.ExitCode(err) != cli.ExitConfig {
				t.Errorf("ExitCode() = %d, want %d", cli.ExitCode(err), cli.ExitConfig)
			}
			for _, want := range tt.contains {
				if !strings.Contains(buf.String(), want) {
					t.Errorf("output missing %q:\n%s", want, buf.String())
				}
			}
		})
	}
}

func TestRunValidate_JSON(t *testing.T) {
	path := writeConfig(t, `
publisher:
  dispatcher: carrier-pigeon
`)

	var buf bytes.Buffer
	_ = runValidate(&buf, path, cli.FormatJSON)

	var result validateResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if result.Valid {
		t.Error("Valid = true for an unknown dispatcher")
	}
	if len(result.Errors) == 0 {
		t.Error("no errors reported")
	}
}
