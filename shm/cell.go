package shm

import (
	"context"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ControlCellSize is the size of a control cell in bytes.
const ControlCellSize = 4

// Cell is the completion flag of a shared buffer.
//
// The requester calls Reset before dispatching, the worker calls Signal after
// its last write to the data window, and the requester observes completion
// with Wait. The cell never transitions back to 0 on its own.
type Cell struct {
	word   *uint32
	waiter Waiter
}

// NewCell wraps the first four bytes of b as a control cell.
// b must be 4-byte aligned.
func NewCell(b []byte, waiter Waiter) (*Cell, error) {
	if len(b) < ControlCellSize {
		return nil, fmt.Errorf("%w: control cell needs %d bytes, have %d", ErrOutOfBounds, ControlCellSize, len(b))
	}
	p := unsafe.Pointer(unsafe.SliceData(b))
	if uintptr(p)%ControlCellSize != 0 {
		return nil, fmt.Errorf("%w: control cell at %#x", ErrMisaligned, uintptr(p))
	}
	if waiter == nil {
		waiter = DefaultWaiter()
	}
	return &Cell{word: (*uint32)(p), waiter: waiter}, nil
}

// Reset stores 0.
func (c *Cell) Reset() {
	atomic.StoreUint32(c.word, 0)
}

// Signal stores 1 and wakes any waiters.
func (c *Cell) Signal() {
	atomic.StoreUint32(c.word, 1)
	c.waiter.Wake(c.word)
}

// Load returns the current value.
func (c *Cell) Load() uint32 {
	return atomic.LoadUint32(c.word)
}

// Done reports whether the cell has been signalled.
func (c *Cell) Done() bool {
	return c.Load() != 0
}

// Wait blocks until the cell is signalled or ctx is done.
func (c *Cell) Wait(ctx context.Context) error {
	if c.Done() {
		return nil
	}
	return c.waiter.Wait(ctx, c.word)
}
