// Package lode persists benchmark reports to a Lode dataset.
//
// Reports are written as JSONL records under a Hive layout partitioned by
// day and report_id. Each write is one snapshot holding a report record
// followed by one record per case. See CONTRACT_METRICS.md for the stored
// metrics fields.
package lode

import (
	"context"
	"time"

	"github.com/pithecene-io/crucible/bench"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "crucible"

// Partition keys, outermost first.
var partitionKeys = []string{"day", "report_id"}

// DeriveDay computes the partition day from a report start time.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(startTime time.Time) string {
	return startTime.UTC().Format("2006-01-02")
}

// Config holds report store configuration.
type Config struct {
	// Dataset is the Lode dataset ID. Empty means DefaultDataset.
	Dataset string
}

func (c Config) dataset() string {
	if c.Dataset == "" {
		return DefaultDataset
	}
	return c.Dataset
}

// ReportStore persists benchmark reports.
type ReportStore interface {
	// WriteReport stores r as one snapshot.
	WriteReport(ctx context.Context, r *bench.Report) error

	// Close releases store resources.
	Close() error
}
