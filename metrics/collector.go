// Package metrics provides pool metrics collection per CONTRACT_METRICS.md.
//
// The Collector accumulates counters over the lifetime of a pool. It is a
// leaf package with no internal dependencies. Worker indexes are plain ints
// so this package stays free of the pool types.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all contract-required metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Dispatch
	RequestsDispatched int64         `json:"requests_dispatched"`
	DispatchedByWorker map[int]int64 `json:"dispatched_by_worker"`

	// Intake
	ResponsesResolved int64 `json:"responses_resolved"`
	ErrorResponses    int64 `json:"error_responses"`
	InvalidDropped    int64 `json:"invalid_dropped"`
	UnmatchedDropped  int64 `json:"unmatched_dropped"`
	AbandonedWaits    int64 `json:"abandoned_waits"`

	// Workers
	WorkerStartSuccess int64 `json:"worker_start_success"`
	WorkerStartFailure int64 `json:"worker_start_failure"`
	TransportFaults    int64 `json:"transport_faults"`

	// Lode / Storage
	LodeWriteSuccess int64 `json:"lode_write_success"`
	LodeWriteFailure int64 `json:"lode_write_failure"`

	// Dimensions (informational, set at construction)
	PoolID         string `json:"pool_id"`
	PoolSize       int    `json:"pool_size"`
	Transport      string `json:"transport"`
	StorageBackend string `json:"storage_backend,omitempty"`
}

// Collector accumulates metrics for one pool.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	// Dispatch
	requestsDispatched int64
	dispatchedByWorker map[int]int64

	// Intake
	responsesResolved int64
	errorResponses    int64
	invalidDropped    int64
	unmatchedDropped  int64
	abandonedWaits    int64

	// Workers
	workerStartSuccess int64
	workerStartFailure int64
	transportFaults    int64

	// Lode / Storage
	lodeWriteSuccess int64
	lodeWriteFailure int64

	// Dimensions
	poolID         string
	poolSize       int
	transport      string
	storageBackend string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend is optional and empty when reports are not stored.
func NewCollector(poolID string, poolSize int, transport, storageBackend string) *Collector {
	return &Collector{
		dispatchedByWorker: make(map[int]int64),
		poolID:             poolID,
		poolSize:           poolSize,
		transport:          transport,
		storageBackend:     storageBackend,
	}
}

// --- Dispatch ---

// IncDispatched records a request posted to worker.
func (c *Collector) IncDispatched(worker int) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.requestsDispatched++
	c.dispatchedByWorker[worker]++
	c.mu.Unlock()
}

// --- Intake ---

// IncResolved records a pending call resolved with a success response.
func (c *Collector) IncResolved() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.responsesResolved++
	c.mu.Unlock()
}

// IncErrorResponse records a pending call rejected by an error response.
func (c *Collector) IncErrorResponse() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.errorResponses++
	c.mu.Unlock()
}

// IncInvalidDropped records an inbound frame that failed decoding or
// validation and was dropped.
func (c *Collector) IncInvalidDropped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.invalidDropped++
	c.mu.Unlock()
}

// IncUnmatchedDropped records a valid response with no pending call.
func (c *Collector) IncUnmatchedDropped() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.unmatchedDropped++
	c.mu.Unlock()
}

// IncAbandoned records a caller that stopped waiting before its response.
func (c *Collector) IncAbandoned() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.abandonedWaits++
	c.mu.Unlock()
}

// --- Workers ---

// IncWorkerStartSuccess records a worker that started and answered ping.
func (c *Collector) IncWorkerStartSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workerStartSuccess++
	c.mu.Unlock()
}

// IncWorkerStartFailure records a worker that failed to start or answer.
func (c *Collector) IncWorkerStartFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.workerStartFailure++
	c.mu.Unlock()
}

// IncTransportFault records a worker transport failure.
func (c *Collector) IncTransportFault() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transportFaults++
	c.mu.Unlock()
}

// --- Lode / Storage ---
// Lode counters are per-call: one report write is one success or failure.

// IncLodeWriteSuccess records a successful Lode write operation (per-call).
func (c *Collector) IncLodeWriteSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lodeWriteSuccess++
	c.mu.Unlock()
}

// IncLodeWriteFailure records a failed Lode write operation (per-call).
func (c *Collector) IncLodeWriteFailure() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.lodeWriteFailure++
	c.mu.Unlock()
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
// The returned Snapshot is safe to read concurrently; the Collector can
// continue to be mutated independently.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byWorker := make(map[int]int64, len(c.dispatchedByWorker))
	for k, v := range c.dispatchedByWorker {
		byWorker[k] = v
	}

	return Snapshot{
		RequestsDispatched: c.requestsDispatched,
		DispatchedByWorker: byWorker,

		ResponsesResolved: c.responsesResolved,
		ErrorResponses:    c.errorResponses,
		InvalidDropped:    c.invalidDropped,
		UnmatchedDropped:  c.unmatchedDropped,
		AbandonedWaits:    c.abandonedWaits,

		WorkerStartSuccess: c.workerStartSuccess,
		WorkerStartFailure: c.workerStartFailure,
		TransportFaults:    c.transportFaults,

		LodeWriteSuccess: c.lodeWriteSuccess,
		LodeWriteFailure: c.lodeWriteFailure,

		PoolID:         c.poolID,
		PoolSize:       c.poolSize,
		Transport:      c.transport,
		StorageBackend: c.storageBackend,
	}
}
