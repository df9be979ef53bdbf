package lode

import (
	"encoding/json"
	"fmt"

	"github.com/pithecene-io/crucible/bench"
)

// Record kinds stored in the dataset.
const (
	RecordKindReport = "bench_report"
	RecordKindCase   = "bench_case"
)

// toReportRecordMap converts a report to a map for Lode storage.
// Lode HiveLayout requires records as map[string]any; the report's json
// tags define the field names so the record reads back into bench.Report.
func toReportRecordMap(r *bench.Report, day string) (map[string]any, error) {
	m, err := toMap(r)
	if err != nil {
		return nil, err
	}
	m["record_kind"] = RecordKindReport
	m["day"] = day
	m["case_count"] = len(r.Cases)
	m["failed"] = r.Failed()
	return m, nil
}

// toCaseRecordMap flattens one case result under its report's partitions.
func toCaseRecordMap(r *bench.Report, c bench.CaseResult, day string) (map[string]any, error) {
	m, err := toMap(c)
	if err != nil {
		return nil, err
	}
	m["record_kind"] = RecordKindCase
	m["report_id"] = r.ID
	m["day"] = day
	m["transport"] = r.Transport
	m["pool_size"] = r.PoolSize
	return m, nil
}

// fromReportRecord rebuilds a report from a stored report record.
func fromReportRecord(record map[string]any) (*bench.Report, error) {
	if record["record_kind"] != RecordKindReport {
		return nil, fmt.Errorf("record kind %v is not %s", record["record_kind"], RecordKindReport)
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report record: %w", err)
	}
	var r bench.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report record: %w", err)
	}
	return &r, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return m, nil
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
