package lode

import (
	"context"

	"github.com/pithecene-io/crucible/bench"
	"github.com/pithecene-io/crucible/metrics"
)

// InstrumentedStore wraps a ReportStore and records write metrics
// per CONTRACT_METRICS.md. Each WriteReport call increments
// lode_write_success or lode_write_failure on the metrics collector.
type InstrumentedStore struct {
	inner     ReportStore
	collector *metrics.Collector
}

// NewInstrumentedStore wraps a store with metrics instrumentation.
func NewInstrumentedStore(inner ReportStore, collector *metrics.Collector) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, collector: collector}
}

// WriteReport delegates to the inner store and records success or failure.
func (s *InstrumentedStore) WriteReport(ctx context.Context, r *bench.Report) error {
	err := s.inner.WriteReport(ctx, r)
	if err != nil {
		s.collector.IncLodeWriteFailure()
	} else {
		s.collector.IncLodeWriteSuccess()
	}
	return err
}

// Close delegates to the inner store.
func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

// Verify InstrumentedStore implements ReportStore.
var _ ReportStore = (*InstrumentedStore)(nil)
