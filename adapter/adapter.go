// Package adapter defines the notification boundary for finished benchmark
// suites.
//
// Adapters publish a BenchCompletedEvent to a downstream system once a
// report is written. The CLI owns adapter lifecycle; users provide
// configuration only.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/pithecene-io/crucible/bench"
	"github.com/pithecene-io/crucible/types"
)

// EventTypeBenchCompleted is the event_type of every published event.
const EventTypeBenchCompleted = "bench_completed"

// Outcomes.
const (
	OutcomeSuccess = "success"
	// OutcomePartial means at least one case failed.
	OutcomePartial = "partial"
)

// BenchCompletedEvent is the payload published when a suite finishes.
type BenchCompletedEvent struct {
	Version     string `json:"version"`
	EventType   string `json:"event_type"` // always "bench_completed"
	ReportID    string `json:"report_id"`
	Day         string `json:"day"`
	Outcome     string `json:"outcome"`
	Transport   string `json:"transport"`
	PoolSize    int    `json:"pool_size"`
	Threshold   int    `json:"threshold"`
	CaseCount   int    `json:"case_count"`
	FailedCases int    `json:"failed_cases"`
	// StoragePath locates the stored report; empty when storage is off.
	StoragePath string `json:"storage_path,omitempty"`
	Timestamp   string `json:"timestamp"` // ISO 8601
	DurationMs  int64  `json:"duration_ms"`
}

// NewBenchCompletedEvent summarizes r. day is the storage partition day.
func NewBenchCompletedEvent(r *bench.Report, day, storagePath string) *BenchCompletedEvent {
	e := &BenchCompletedEvent{
		Version:     types.Version,
		EventType:   EventTypeBenchCompleted,
		ReportID:    r.ID,
		Day:         day,
		Outcome:     OutcomeSuccess,
		Transport:   r.Transport,
		PoolSize:    r.PoolSize,
		Threshold:   r.Threshold,
		CaseCount:   len(r.Cases),
		StoragePath: storagePath,
		Timestamp:   r.CompletedAt.UTC().Format(time.RFC3339),
		DurationMs:  r.Duration().Milliseconds(),
	}
	for _, c := range r.Cases {
		if c.Error != "" {
			e.FailedCases++
		}
	}
	if e.FailedCases > 0 {
		e.Outcome = OutcomePartial
	}
	return e
}

// Adapter publishes bench completion events to a downstream system.
type Adapter interface {
	// Publish sends a completion event to the downstream system.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *BenchCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// BaseBackoff is the delay before the first retry; it doubles per retry.
var BaseBackoff = 500 * time.Millisecond

// Retry calls attempt up to 1+retries times with exponential backoff
// between calls. It stops early when attempt succeeds, ctx ends, or
// permanent reports the error as non-retriable. name prefixes errors.
func Retry(ctx context.Context, name string, retries int, attempt func(context.Context) error, permanent func(error) bool) error {
	var lastErr error
	attempts := 1 + retries

	for i := range attempts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: context canceled: %w", name, err)
		}

		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * BaseBackoff
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: context canceled during backoff: %w", name, ctx.Err())
			case <-time.After(backoff):
			}
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			return nil
		}
		if permanent != nil && permanent(lastErr) {
			return fmt.Errorf("%s: non-retriable error: %w", name, lastErr)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
