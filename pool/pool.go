// Package pool dispatches requests to a fixed set of workers and correlates
// their responses back to callers per CONTRACT_PROTOCOL.md.
//
// Each worker has a private pending table keyed by request id and a reader
// goroutine that resolves entries as response frames arrive. Requests are
// assigned round-robin, independent of load.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pithecene-io/crucible/ipc"
	"github.com/pithecene-io/crucible/log"
	"github.com/pithecene-io/crucible/metrics"
	"github.com/pithecene-io/crucible/types"
)

// MaxWorkers caps DefaultSize.
const MaxWorkers = 8

// DefaultSize returns the number of workers to use by default:
// min(NumCPU, MaxWorkers), at least 1.
func DefaultSize() int {
	return max(1, min(runtime.NumCPU(), MaxWorkers))
}

// Sentinel errors.
var (
	// ErrNotInitialized is returned by Request before Init or after Terminate.
	ErrNotInitialized = errors.New("worker pool is not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("worker pool is already initialized")
)

// ResponseError carries the message of an error response.
type ResponseError struct {
	RequestID string
	Message   string
}

func (e *ResponseError) Error() string {
	return e.Message
}

// TransportError reports a worker-level failure that rejected a pending call.
type TransportError struct {
	Worker    int
	RequestID string
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("worker %d transport failure: %v", e.Worker, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Worker is the controller's handle on one worker.
type Worker interface {
	// In receives request frames.
	In() io.Writer
	// Out yields response frames.
	Out() io.Reader
	// Terminate stops the worker.
	Terminate() error
	// Done delivers the worker's exit error (nil on clean exit) once and is
	// then closed.
	Done() <-chan error
}

// Factory starts worker index.
type Factory func(ctx context.Context, index int) (Worker, error)

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

// WithMetrics sets the metrics collector.
func WithMetrics(c *metrics.Collector) Option {
	return func(p *Pool) { p.metrics = c }
}

// WithID sets the pool id used in logs and metrics.
func WithID(id string) Option {
	return func(p *Pool) { p.id = id }
}

// Pool is a fixed-size worker pool.
type Pool struct {
	size    int
	id      string
	logger  *log.Logger
	metrics *metrics.Collector

	mu           sync.Mutex
	entries      []*entry
	next         int
	initializing bool
}

// New creates a pool of size workers. Nothing starts until Init.
// A size below 1 uses DefaultSize.
func New(size int, opts ...Option) *Pool {
	if size < 1 {
		size = DefaultSize()
	}
	p := &Pool{size: size, id: uuid.NewString()}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = metrics.NewCollector(p.id, p.size, "", "")
	}
	return p
}

// Size returns the configured number of workers.
func (p *Pool) Size() int { return p.size }

// ID returns the pool id.
func (p *Pool) ID() string { return p.id }

// Stats returns a snapshot of the pool metrics.
func (p *Pool) Stats() metrics.Snapshot {
	return p.metrics.Snapshot()
}

// Metrics returns the collector the pool records into. Callers may record
// their own counters, such as report writes, on it.
func (p *Pool) Metrics() *metrics.Collector { return p.metrics }

// Init starts every worker and waits until each has answered a ping.
// ctx bounds startup. On failure, all started workers are terminated.
func (p *Pool) Init(ctx context.Context, factory Factory) error {
	p.mu.Lock()
	if p.entries != nil || p.initializing {
		p.mu.Unlock()
		return ErrAlreadyInitialized
	}
	p.initializing = true
	p.mu.Unlock()

	entries := make([]*entry, p.size)
	g, gctx := errgroup.WithContext(ctx)
	for i := range p.size {
		g.Go(func() error {
			w, err := factory(gctx, i)
			if err != nil {
				p.metrics.IncWorkerStartFailure()
				return fmt.Errorf("start worker %d: %w", i, err)
			}
			e := newEntry(i, w)
			entries[i] = e
			go p.readLoop(e)

			resp, err := p.post(gctx, e, types.NewRequest(types.MessageTypePing, uuid.NewString()))
			if err != nil {
				p.metrics.IncWorkerStartFailure()
				return fmt.Errorf("worker %d did not become ready: %w", i, err)
			}
			if resp.Type != types.MessageTypeReady {
				p.metrics.IncWorkerStartFailure()
				return fmt.Errorf("worker %d answered ping with %q", i, resp.Type)
			}
			p.metrics.IncWorkerStartSuccess()
			return nil
		})
	}

	err := g.Wait()

	p.mu.Lock()
	p.initializing = false
	if err == nil {
		p.entries = entries
		p.next = 0
	}
	p.mu.Unlock()

	if err != nil {
		for _, e := range entries {
			if e != nil {
				_ = e.terminate()
			}
		}
		return err
	}

	p.logger.Info("worker pool ready", map[string]any{"pool_id": p.id, "size": p.size})
	return nil
}

// Request posts req to the next worker in round-robin order and waits for
// its response.
//
// An error response yields *ResponseError; a worker failure yields
// *TransportError. Cancelling ctx abandons the wait only: the worker still
// runs the request and its late response is dropped.
func (p *Pool) Request(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	p.mu.Lock()
	if len(p.entries) == 0 {
		p.mu.Unlock()
		return nil, ErrNotInitialized
	}
	e := p.entries[p.next]
	p.next = (p.next + 1) % len(p.entries)
	p.mu.Unlock()

	return p.post(ctx, e, req)
}

// Terminate stops every worker. Calls still pending are not rejected; their
// callers wait until their own ctx ends. Later Requests fail with
// ErrNotInitialized.
func (p *Pool) Terminate() error {
	p.mu.Lock()
	entries := p.entries
	p.entries = nil
	p.next = 0
	p.mu.Unlock()

	var errs []error
	for _, e := range entries {
		if err := e.terminate(); err != nil {
			errs = append(errs, fmt.Errorf("terminate worker %d: %w", e.index, err))
		}
	}
	if len(entries) > 0 {
		p.logger.Info("worker pool terminated", map[string]any{"pool_id": p.id})
	}
	return errors.Join(errs...)
}

func (p *Pool) post(ctx context.Context, e *entry, req *types.Request) (*types.Response, error) {
	ch, err := e.register(req.RequestID)
	if err != nil {
		return nil, err
	}

	err = e.enc.WriteFrame(req)
	if ipc.IsUnwritten(err) {
		// nothing reached the worker; only this call fails
		e.remove(req.RequestID, ch)
		return nil, fmt.Errorf("encode request %s: %w", req.RequestID, err)
	}
	p.metrics.IncDispatched(e.index)
	if err != nil {
		p.fault(e, fmt.Errorf("write request: %w", err))
	}

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-ctx.Done():
		e.remove(req.RequestID, ch)
		p.metrics.IncAbandoned()
		return nil, ctx.Err()
	}
}

// readLoop resolves pending calls from the worker's response frames until
// the transport fails.
func (p *Pool) readLoop(e *entry) {
	dec := ipc.NewFrameDecoder(e.worker.Out())
	for {
		payload, err := dec.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			p.fault(e, exitCause(e.worker, err))
			return
		}
		p.intake(e, payload)
	}
}

func (p *Pool) intake(e *entry, payload []byte) {
	env, err := ipc.ProbeEnvelope(payload)
	if err != nil || !types.ValidateResponse(env) {
		p.metrics.IncInvalidDropped()
		p.logger.Debug("invalid response dropped", map[string]any{"worker": e.index})
		return
	}
	resp, err := ipc.DecodeResponse(payload)
	if err != nil {
		p.metrics.IncInvalidDropped()
		p.logger.Debug("undecodable response dropped", map[string]any{"worker": e.index, "error": err.Error()})
		return
	}

	ch, ok := e.take(resp.RequestID)
	if !ok {
		p.metrics.IncUnmatchedDropped()
		p.logger.Debug("unmatched response dropped", map[string]any{
			"worker":     e.index,
			"request_id": resp.RequestID,
		})
		return
	}

	if resp.Type == types.MessageTypeError {
		p.metrics.IncErrorResponse()
		ch <- result{err: &ResponseError{RequestID: resp.RequestID, Message: resp.Message}}
		return
	}
	p.metrics.IncResolved()
	ch <- result{resp: resp}
}

// fault rejects every pending call of e. Only the first fault counts, and
// faults after Terminate are ignored.
func (p *Pool) fault(e *entry, cause error) {
	pending, ok := e.fail(cause)
	if !ok {
		return
	}
	p.metrics.IncTransportFault()
	p.logger.Error("worker transport failed", map[string]any{
		"worker":  e.index,
		"error":   cause.Error(),
		"pending": len(pending),
	})
	for id, ch := range pending {
		ch <- result{err: &TransportError{Worker: e.index, RequestID: id, Err: cause}}
	}
}

// exitCause adds the worker's exit error to err when it is already known.
func exitCause(w Worker, err error) error {
	select {
	case exitErr, ok := <-w.Done():
		if ok && exitErr != nil {
			return fmt.Errorf("%w (worker exited: %v)", err, exitErr)
		}
	default:
	}
	return err
}
