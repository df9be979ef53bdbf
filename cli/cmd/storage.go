package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/crucible/cli/config"
	"github.com/pithecene-io/crucible/lode"
)

// storageChoice holds parsed report storage configuration.
type storageChoice struct {
	dataset   string
	backend   string // "fs", "s3" or "" (storage off)
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

func (s storageChoice) enabled() bool { return s.backend != "" }

// location renders where reports land, for logs and events.
func (s storageChoice) location() string {
	switch s.backend {
	case "s3":
		return "s3://" + s.path + "/" + s.dataset
	case "fs":
		return "file://" + s.path + "/" + s.dataset
	default:
		return ""
	}
}

func (s storageChoice) s3Config() lode.S3Config {
	bucket, prefix := lode.ParseS3Path(s.path)
	return lode.S3Config{
		Bucket:       bucket,
		Prefix:       prefix,
		Region:       s.region,
		Endpoint:     s.endpoint,
		UsePathStyle: s.pathStyle,
	}
}

func parseStorageConfig(c *cli.Context, cfg *config.Config) storageChoice {
	return storageChoice{
		dataset:   resolveString(c, "storage-dataset", configVal(cfg, func(c *config.Config) string { return c.Storage.Dataset })),
		backend:   resolveString(c, "storage-backend", configVal(cfg, func(c *config.Config) string { return c.Storage.Backend })),
		path:      resolveString(c, "storage-path", configVal(cfg, func(c *config.Config) string { return c.Storage.Path })),
		region:    resolveString(c, "storage-region", configVal(cfg, func(c *config.Config) string { return c.Storage.Region })),
		endpoint:  resolveString(c, "storage-endpoint", configVal(cfg, func(c *config.Config) string { return c.Storage.Endpoint })),
		pathStyle: resolveBool(c, "storage-s3-path-style", configVal(cfg, func(c *config.Config) bool { return c.Storage.S3PathStyle })),
	}
}

// validateStorageConfig checks a storage choice before any work starts.
// A missing fs directory is an error rather than something to create.
func validateStorageConfig(s storageChoice) error {
	switch s.backend {
	case "":
		if s.path != "" {
			return errors.New("--storage-path requires --storage-backend")
		}
		return nil
	case "fs":
		if s.path == "" {
			return errors.New("fs backend requires --storage-path")
		}
		info, err := os.Stat(s.path)
		if err != nil {
			return fmt.Errorf("storage path %s: %w", s.path, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("storage path %s is not a directory", s.path)
		}
		return nil
	case "s3":
		cfg := s.s3Config()
		return cfg.Validate()
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", s.backend)
	}
}

// buildReportStore opens the write side of report storage.
func buildReportStore(ctx context.Context, s storageChoice) (*lode.ReportClient, error) {
	cfg := lode.Config{Dataset: s.dataset}
	switch s.backend {
	case "fs":
		return lode.NewReportClient(cfg, s.path)
	case "s3":
		return lode.NewReportS3Client(ctx, cfg, s.s3Config())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (must be fs or s3)", s.backend)
	}
}

// buildReadDataset opens the read side of report storage.
func buildReadDataset(ctx context.Context, s storageChoice) (lodelibrary.Dataset, error) {
	switch s.backend {
	case "fs":
		return lode.NewReadDatasetFS(s.dataset, s.path)
	case "s3":
		return lode.NewReadDatasetS3(ctx, s.dataset, s.s3Config())
	default:
		return nil, fmt.Errorf("unsupported storage backend: %q (must be fs or s3)", s.backend)
	}
}
