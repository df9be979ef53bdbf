package bench

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pithecene-io/crucible/metrics"
	"github.com/pithecene-io/crucible/types"
)

// Report is the result of one suite run.
// All fields use json tags matching the stored record layout.
type Report struct {
	ID          string    `json:"report_id"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	PoolSize    int       `json:"pool_size"`
	Transport   string    `json:"transport"`
	// Threshold is the Strassen threshold reported by the last warmup.
	Threshold int `json:"threshold"`
	// Thresholds holds every warmup's threshold, one per worker.
	Thresholds []int        `json:"thresholds,omitempty"`
	Runs       int          `json:"runs"`
	Cases      []CaseResult `json:"cases"`

	Metrics *metrics.Snapshot `json:"metrics,omitempty"`
}

// CaseResult aggregates the runs of one case.
type CaseResult struct {
	Name          string          `json:"name"`
	Kind          Kind            `json:"kind"`
	Variant       Variant         `json:"variant"`
	Size          int             `json:"size"`
	Iterations    int             `json:"iterations,omitempty"`
	Runs          int             `json:"runs"`
	MeanMs        float64         `json:"mean_ms"`
	MinMs         float64         `json:"min_ms"`
	MaxMs         float64         `json:"max_ms"`
	AlgorithmUsed types.Algorithm `json:"algorithm_used,omitempty"`
	// Result is the last run's value (fibonacci result, stream sum).
	Result float64 `json:"result,omitempty"`
	// Error is set when a run failed; timings cover the runs before it.
	Error string `json:"error,omitempty"`
}

// Failed reports whether any case failed.
func (r *Report) Failed() bool {
	for _, c := range r.Cases {
		if c.Error != "" {
			return true
		}
	}
	return false
}

// Duration returns the wall time of the suite.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Comparison is the module-vs-reference ratio for one kind and size.
type Comparison struct {
	Kind     Kind    `json:"kind"`
	Size     int     `json:"size"`
	ModuleMs float64 `json:"module_ms"`
	RefMs    float64 `json:"ref_ms"`
	// Speedup is RefMs / ModuleMs.
	Speedup float64 `json:"speedup"`
}

// Comparisons pairs each reference case with the fastest successful module
// case of the same kind and size.
func (r *Report) Comparisons() []Comparison {
	type key struct {
		kind Kind
		size int
	}
	best := make(map[key]float64)
	for _, c := range r.Cases {
		if c.Variant != VariantModule || c.Error != "" || c.Runs == 0 {
			continue
		}
		k := key{c.Kind, c.Size}
		if cur, ok := best[k]; !ok || c.MeanMs < cur {
			best[k] = c.MeanMs
		}
	}

	var out []Comparison
	for _, c := range r.Cases {
		if c.Variant != VariantRef || c.Error != "" || c.Runs == 0 {
			continue
		}
		moduleMs, ok := best[key{c.Kind, c.Size}]
		if !ok {
			continue
		}
		cmp := Comparison{Kind: c.Kind, Size: c.Size, ModuleMs: moduleMs, RefMs: c.MeanMs}
		if moduleMs > 0 {
			cmp.Speedup = c.MeanMs / moduleMs
		}
		out = append(out, cmp)
	}
	return out
}

// WriteReport writes the report as JSON to the specified path.
// If path is "-", writes to stdout.
func WriteReport(report *Report, path string) error {
	if path == "" {
		return errors.New("report path must not be empty")
	}
	if path == "-" {
		if err := writeReportTo(report, os.Stdout); err != nil {
			return fmt.Errorf("failed to write report to stdout: %w", err)
		}
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	return nil
}

// writeReportTo writes report JSON to any writer.
func writeReportTo(report *Report, w io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
