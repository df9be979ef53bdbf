package lode

import (
	"context"
	"errors"
	"fmt"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/crucible/bench"
)

// ReportClient is a Lode-backed ReportStore.
// Uses Lode's HiveLayout with partition keys: day/report_id.
type ReportClient struct {
	dataset lode.Dataset
	config  Config
}

// NewReportClient creates a report client with filesystem storage.
// The root parameter is the base directory for Hive-partitioned storage.
func NewReportClient(cfg Config, root string) (*ReportClient, error) {
	return NewReportClientWithFactory(cfg, lode.NewFSFactory(root))
}

// NewReportClientWithFactory creates a report client with a custom store
// factory. Use lode.NewMemoryFactory() for testing.
func NewReportClientWithFactory(cfg Config, factory lode.StoreFactory) (*ReportClient, error) {
	ds, err := newDataset(cfg.dataset(), factory)
	if err != nil {
		return nil, WrapInitError(err, cfg.dataset())
	}
	return &ReportClient{dataset: ds, config: cfg}, nil
}

// newDataset opens the dataset with the layout and codec shared by the
// write and read paths.
func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// WriteReport writes the report record and its case records as one snapshot.
// The day partition is derived from the report start time.
func (c *ReportClient) WriteReport(ctx context.Context, r *bench.Report) error {
	if r == nil {
		return errors.New("report is nil")
	}
	if r.ID == "" {
		return errors.New("report id is empty")
	}

	day := DeriveDay(r.StartedAt)
	records := make([]any, 0, len(r.Cases)+1)

	record, err := toReportRecordMap(r, day)
	if err != nil {
		return err
	}
	records = append(records, record)
	for _, cr := range r.Cases {
		record, err := toCaseRecordMap(r, cr, day)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	if _, err := c.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return WrapWriteError(err, fmt.Sprintf("%s/day=%s/report_id=%s", c.config.dataset(), day, r.ID))
	}
	return nil
}

// Dataset returns the underlying dataset for reads.
func (c *ReportClient) Dataset() lode.Dataset {
	return c.dataset
}

// Close releases client resources.
func (c *ReportClient) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

// Verify ReportClient implements ReportStore.
var _ ReportStore = (*ReportClient)(nil)
