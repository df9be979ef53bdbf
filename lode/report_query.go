package lode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/crucible/bench"
)

// ErrNoReportFound is returned when no report record matches the query.
var ErrNoReportFound = errors.New("no benchmark report found")

// Query filters stored reports. Empty fields match everything.
type Query struct {
	Day      string
	ReportID string
}

// Summary is the listing view of one stored report.
type Summary struct {
	ID        string    `json:"report_id"`
	Day       string    `json:"day"`
	StartedAt time.Time `json:"started_at"`
	Transport string    `json:"transport"`
	PoolSize  int       `json:"pool_size"`
	CaseCount int       `json:"case_count"`
	Failed    bool      `json:"failed"`
}

// QueryLatestReport finds and reads the most recent report matching q.
// Returns ErrNoReportFound if none exist.
func QueryLatestReport(ctx context.Context, ds lode.Dataset, q Query) (*bench.Report, error) {
	var found *bench.Report
	err := walkReports(ctx, ds, q, func(record map[string]any) (bool, error) {
		r, err := fromReportRecord(record)
		if err != nil {
			return false, err
		}
		found = r
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoReportFound
	}
	return found, nil
}

// ListReports returns summaries of the reports matching q, latest first.
func ListReports(ctx context.Context, ds lode.Dataset, q Query) ([]Summary, error) {
	var out []Summary
	err := walkReports(ctx, ds, q, func(record map[string]any) (bool, error) {
		r, err := fromReportRecord(record)
		if err != nil {
			return false, err
		}
		out = append(out, Summary{
			ID:        r.ID,
			Day:       toString(record["day"]),
			StartedAt: r.StartedAt,
			Transport: r.Transport,
			PoolSize:  r.PoolSize,
			CaseCount: len(r.Cases),
			Failed:    r.Failed(),
		})
		return true, nil
	})
	return out, err
}

// walkReports calls fn for each report record matching q, latest snapshot
// first, until fn returns false.
func walkReports(ctx context.Context, ds lode.Dataset, q Query, fn func(map[string]any) (bool, error)) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, fmt.Sprintf("%s/snapshots", ds.ID()))
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		// Manifest paths are a coarse pre-filter; record fields decide.
		if !snapshotMatchesFilter(snap, "day", q.Day) || !snapshotMatchesFilter(snap, "report_id", q.ReportID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindReport {
				continue
			}
			if q.Day != "" && toString(record["day"]) != q.Day {
				continue
			}
			if q.ReportID != "" && toString(record["report_id"]) != q.ReportID {
				continue
			}
			more, err := fn(record)
			if err != nil || !more {
				return err
			}
		}
	}
	return nil
}
