package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// S3Config locates the report dataset in a bucket. Credentials come from
// the AWS default chain.
type S3Config struct {
	Bucket string
	Prefix string
	// Region overrides the region from the AWS chain.
	Region string
	// Endpoint targets an S3-compatible provider such as MinIO or R2.
	Endpoint     string
	UsePathStyle bool
}

// Validate reports a missing bucket.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// ParseS3Path splits "bucket/prefix" at the first slash.
func ParseS3Path(path string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(path, "/")
	return bucket, prefix
}

// NewReportS3Client creates a report client over S3.
func NewReportS3Client(ctx context.Context, cfg Config, s3cfg S3Config) (*ReportClient, error) {
	factory, err := s3cfg.factory(ctx)
	if err != nil {
		return nil, err
	}
	return NewReportClientWithFactory(cfg, factory)
}

// factory resolves AWS config once and returns a store factory sharing
// one S3 client.
func (c S3Config) factory(ctx context.Context) (lode.StoreFactory, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	var loadOpts []func(*config.LoadOptions) error
	if c.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(c.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, WrapInitError(fmt.Errorf("load AWS config: %w", err), c.Bucket)
	}

	client := s3.NewFromConfig(awsCfg, c.clientOptions)
	storeCfg := lodes3.Config{Bucket: c.Bucket, Prefix: c.Prefix}
	return func() (lode.Store, error) {
		return lodes3.New(client, storeCfg)
	}, nil
}

func (c S3Config) clientOptions(o *s3.Options) {
	if c.Endpoint != "" {
		o.BaseEndpoint = &c.Endpoint
	}
	o.UsePathStyle = c.UsePathStyle
}
