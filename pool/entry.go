package pool

import (
	"sync"

	"github.com/pithecene-io/crucible/ipc"
	"github.com/pithecene-io/crucible/types"
)

type result struct {
	resp *types.Response
	err  error
}

// entry is one worker and its pending table.
type entry struct {
	index  int
	worker Worker
	enc    *ipc.FrameEncoder

	mu         sync.Mutex
	pending    map[string]chan result
	failed     error
	terminated bool
}

func newEntry(index int, w Worker) *entry {
	return &entry{
		index:   index,
		worker:  w,
		enc:     ipc.NewFrameEncoder(w.In()),
		pending: make(map[string]chan result),
	}
}

// register adds a pending call for id. A reused id replaces the earlier
// entry, whose caller then waits until its ctx ends.
func (e *entry) register(id string) (chan result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed != nil {
		return nil, &TransportError{Worker: e.index, RequestID: id, Err: e.failed}
	}
	ch := make(chan result, 1)
	e.pending[id] = ch
	return ch, nil
}

// take removes and returns the pending call for id.
func (e *entry) take(id string) (chan result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ch, ok := e.pending[id]
	if ok {
		delete(e.pending, id)
	}
	return ch, ok
}

// remove drops the pending call for id if it is still ch.
func (e *entry) remove(id string, ch chan result) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cur, ok := e.pending[id]; ok && cur == ch {
		delete(e.pending, id)
	}
}

// fail marks the entry failed and hands back its pending calls. It reports
// false when the entry already failed or was terminated.
func (e *entry) fail(cause error) (map[string]chan result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed != nil || e.terminated {
		return nil, false
	}
	e.failed = cause
	pending := e.pending
	e.pending = make(map[string]chan result)
	return pending, true
}

func (e *entry) terminate() error {
	e.mu.Lock()
	e.terminated = true
	e.mu.Unlock()
	return e.worker.Terminate()
}
