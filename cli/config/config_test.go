package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `pool:
  size: 4
  transport: process
  worker_path: ./bin/crucible-worker
  memory_size: 67108864
  start_timeout: 45s

limits:
  max_buffer_length: 1000000
  max_image_size: 4000000
  max_matrix_size: 1024

tuner:
  size: 128
  candidates: [64, 96, 128]

handshake:
  wait: poll
  poll_interval: 500us

shm:
  dir: /dev/shm

storage:
  dataset: crucible
  backend: s3
  path: my-bucket/prefix
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true

adapter:
  type: webhook
  url: https://hooks.example.com/crucible
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Pool
	if cfg.Pool.Size != 4 {
		t.Errorf("expected pool.size=4, got %d", cfg.Pool.Size)
	}
	assertEqual(t, "pool.transport", cfg.Pool.Transport, "process")
	assertEqual(t, "pool.worker_path", cfg.Pool.WorkerPath, "./bin/crucible-worker")
	if cfg.Pool.MemorySize != 64<<20 {
		t.Errorf("expected pool.memory_size=64MiB, got %d", cfg.Pool.MemorySize)
	}
	if cfg.Pool.StartTimeout.Duration != 45*time.Second {
		t.Errorf("expected pool.start_timeout=45s, got %v", cfg.Pool.StartTimeout.Duration)
	}

	// Limits
	if cfg.Limits.MaxBufferLength != 1_000_000 || cfg.Limits.MaxImageSize != 4_000_000 || cfg.Limits.MaxMatrixSize != 1024 {
		t.Errorf("unexpected limits: %+v", cfg.Limits)
	}

	// Tuner
	if cfg.Tuner.Size != 128 || !slices.Equal(cfg.Tuner.Candidates, []int{64, 96, 128}) {
		t.Errorf("unexpected tuner: %+v", cfg.Tuner)
	}

	// Handshake
	assertEqual(t, "handshake.wait", cfg.Handshake.Wait, "poll")
	if cfg.Handshake.PollInterval.Duration != 500*time.Microsecond {
		t.Errorf("expected poll_interval=500us, got %v", cfg.Handshake.PollInterval.Duration)
	}
	assertEqual(t, "shm.dir", cfg.Shm.Dir, "/dev/shm")

	// Storage
	assertEqual(t, "storage.dataset", cfg.Storage.Dataset, "crucible")
	assertEqual(t, "storage.backend", cfg.Storage.Backend, "s3")
	assertEqual(t, "storage.path", cfg.Storage.Path, "my-bucket/prefix")
	assertEqual(t, "storage.region", cfg.Storage.Region, "us-east-1")
	assertEqual(t, "storage.endpoint", cfg.Storage.Endpoint, "https://example.com")
	if !cfg.Storage.S3PathStyle {
		t.Error("expected storage.s3_path_style=true")
	}

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/crucible")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected retries=3, got %v", cfg.Adapter.Retries)
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pool.Transport != "" || cfg.Pool.Size != 0 {
		t.Errorf("expected zero pool config, got %+v", cfg.Pool)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/crucible.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want not found", err)
	}
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil, "inline")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Pool.Size != 0 || cfg.Pool.Transport != "" {
		t.Errorf("Parse(nil) = %+v, want zero config", cfg.Pool)
	}
}

func TestParse_ErrorNamesSource(t *testing.T) {
	_, err := Parse([]byte("pool: [1"), "inline.yaml")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "inline.yaml") {
		t.Errorf("error = %v, want source name", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_TRANSPORT", "process")
	t.Setenv("TEST_WORKER", "")

	yaml := `pool:
  transport: ${TEST_TRANSPORT}
  worker_path: ${TEST_WORKER:-/usr/local/bin/crucible-worker}
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "pool.transport", cfg.Pool.Transport, "process")
	assertEqual(t, "pool.worker_path", cfg.Pool.WorkerPath, "/usr/local/bin/crucible-worker")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `pool:
  size: 2
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `storage:
  backend: fs
  path: ./data
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown transport", "pool:\n  transport: grpc\n", "pool.transport"},
		{"negative size", "pool:\n  size: -1\n", "pool.size"},
		{"unknown wait backend", "handshake:\n  wait: spin\n", "handshake.wait"},
		{"zero candidate", "tuner:\n  candidates: [128, 0]\n", "tuner.candidates"},
		{"unknown storage backend", "storage:\n  backend: gcs\n", "storage.backend"},
		{"unknown adapter", "adapter:\n  type: kafka\n", "adapter.type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.yaml))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_WhitespaceOnlyConfig(t *testing.T) {
	path := writeTemp(t, "   \n  \n  \n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for whitespace-only config: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	// retries: 0 should parse as *int(0), not nil.
	yaml := `adapter:
  type: webhook
  url: https://example.com
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be non-nil (*int(0)), got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestLoad_RetriesOmittedIsNil(t *testing.T) {
	yaml := `adapter:
  type: webhook
  url: https://example.com
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected retries to be nil, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `adapter:
  timeout: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	yaml := `handshake:
  wait: poll
  poll_interval: ""
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Handshake.PollInterval.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Handshake.PollInterval.Duration)
	}
}

func TestLoad_RedisAdapterConfig(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: crucible:bench
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "redis://localhost:6379/0")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "crucible:bench")
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "crucible.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
