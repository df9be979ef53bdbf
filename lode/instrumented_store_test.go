package lode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pithecene-io/crucible/bench"
	"github.com/pithecene-io/crucible/metrics"
)

type fakeStore struct {
	err    error
	writes int
	closed bool
}

func (s *fakeStore) WriteReport(_ context.Context, _ *bench.Report) error {
	s.writes++
	return s.err
}

func (s *fakeStore) Close() error {
	s.closed = true
	return nil
}

func TestInstrumentedStore_CountsWrites(t *testing.T) {
	inner := &fakeStore{}
	collector := metrics.NewCollector("pool-1", 1, "inprocess", "fs")
	store := NewInstrumentedStore(inner, collector)

	r := testReport("r-1", time.Now())
	for range 2 {
		if err := store.WriteReport(t.Context(), r); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
	}
	inner.err = errors.New("boom")
	if err := store.WriteReport(t.Context(), r); err == nil {
		t.Fatal("expected inner error to propagate")
	}

	snap := collector.Snapshot()
	if snap.LodeWriteSuccess != 2 {
		t.Errorf("LodeWriteSuccess = %d, want 2", snap.LodeWriteSuccess)
	}
	if snap.LodeWriteFailure != 1 {
		t.Errorf("LodeWriteFailure = %d, want 1", snap.LodeWriteFailure)
	}
	if inner.writes != 3 {
		t.Errorf("inner writes = %d, want 3", inner.writes)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !inner.closed {
		t.Error("Close should reach the inner store")
	}
}

func TestInstrumentedStore_NilCollector(t *testing.T) {
	store := NewInstrumentedStore(&fakeStore{}, nil)
	if err := store.WriteReport(t.Context(), testReport("r-1", time.Now())); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}
}

func TestMatchesPartitionValue(t *testing.T) {
	tests := []struct {
		path  string
		key   string
		value string
		want  bool
	}{
		{"crucible/day=2026-10-18/report_id=r-1/data.jsonl", "report_id", "r-1", true},
		{"crucible/day=2026-10-18/report_id=r-10/data.jsonl", "report_id", "r-1", false},
		{"crucible/day=2026-10-18/report_id=r-1/data.jsonl", "day", "2026-10-18", true},
		{"crucible/day=2026-10-18/report_id=r-1/data.jsonl", "day", "2026-10-1", false},
		{"", "day", "2026-10-18", false},
	}
	for _, tt := range tests {
		if got := matchesPartitionValue(tt.path, tt.key, tt.value); got != tt.want {
			t.Errorf("matchesPartitionValue(%q, %q, %q) = %v, want %v", tt.path, tt.key, tt.value, got, tt.want)
		}
	}
}

func TestDeriveDay(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	got := DeriveDay(time.Date(2026, 10, 19, 3, 0, 0, 0, loc))
	if got != "2026-10-18" {
		t.Errorf("DeriveDay = %q, want 2026-10-18", got)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		path, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/prefix", "bucket", "prefix"},
		{"bucket/a/b", "bucket", "a/b"},
	}
	for _, tt := range tests {
		bucket, prefix := ParseS3Path(tt.path)
		if bucket != tt.bucket || prefix != tt.prefix {
			t.Errorf("ParseS3Path(%q) = (%q, %q), want (%q, %q)", tt.path, bucket, prefix, tt.bucket, tt.prefix)
		}
	}
	cfg := S3Config{}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty bucket")
	}
}

func TestS3Config_ClientOptions(t *testing.T) {
	var o s3.Options
	S3Config{Bucket: "b", Endpoint: "http://minio:9000", UsePathStyle: true}.clientOptions(&o)
	if o.BaseEndpoint == nil || *o.BaseEndpoint != "http://minio:9000" {
		t.Errorf("BaseEndpoint = %v, want http://minio:9000", o.BaseEndpoint)
	}
	if !o.UsePathStyle {
		t.Error("expected path-style addressing")
	}

	var plain s3.Options
	S3Config{Bucket: "b"}.clientOptions(&plain)
	if plain.BaseEndpoint != nil || plain.UsePathStyle {
		t.Errorf("unexpected overrides: endpoint=%v pathStyle=%v", plain.BaseEndpoint, plain.UsePathStyle)
	}
}

func TestNewReadDatasetS3_RequiresBucket(t *testing.T) {
	if _, err := NewReadDatasetS3(t.Context(), "crucible", S3Config{}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
