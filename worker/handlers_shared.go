package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/shm"
	"github.com/pithecene-io/crucible/types"
)

func sharedHandlers() handlerGroup {
	return handlerGroup{
		name: "shared",
		handlers: map[types.MessageType]HandlerFunc{
			types.MessageTypeSharedMemoryInit:    handleSharedMemoryInit,
			types.MessageTypeSharedMemoryProcess: handleSharedMemoryProcess,
			types.MessageTypeSharedBufferProcess: handleSharedBufferProcess,
		},
	}
}

func (c *Context) sharedLimitError() error {
	return fmt.Errorf("Shared buffer length exceeds limit (%d).", c.limits.MaxBufferLength)
}

func (c *Context) arrayLimitError() error {
	return fmt.Errorf("Array length exceeds limit (%d).", c.limits.MaxBufferLength)
}

var (
	errImageLimit      = errors.New("Image size exceeds limit.")
	errImageDimensions = errors.New("Image dimensions must not be negative.")
)

// window resolves a request's shared ref. Only the declared window is ever
// returned, never the whole region.
func (c *Context) window(ref *types.SharedRef, field string) ([]byte, error) {
	if ref == nil || ref.IsZero() {
		return nil, fmt.Errorf("missing %s", field)
	}
	b, err := c.registry.Resolve(*ref)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return b, nil
}

func (c *Context) float64s(ref *types.SharedRef, field string, n int) ([]float64, error) {
	b, err := c.window(ref, field)
	if err != nil {
		return nil, err
	}
	v, err := shm.Float64s(b, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func (c *Context) float32s(ref *types.SharedRef, field string, n int) ([]float32, error) {
	b, err := c.window(ref, field)
	if err != nil {
		return nil, err
	}
	v, err := shm.Float32s(b, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func (c *Context) uint32s(ref *types.SharedRef, field string, n int) ([]uint32, error) {
	b, err := c.window(ref, field)
	if err != nil {
		return nil, err
	}
	v, err := shm.Uint32s(b, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func (c *Context) bytes(ref *types.SharedRef, field string, n int) ([]byte, error) {
	b, err := c.window(ref, field)
	if err != nil {
		return nil, err
	}
	v, err := shm.Bytes(b, n)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

// signal marks the request's control cell complete. Serve calls it for every
// request that names a cell, after the handler returns and before the
// response is written.
func (c *Context) signal(req *types.Request) {
	if req.Control == nil {
		return
	}
	b, err := c.window(req.Control, "control")
	if err == nil {
		var cell *shm.Cell
		if cell, err = shm.NewCell(b, c.waiter); err == nil {
			cell.Signal()
			return
		}
	}
	c.logger.Warn("control cell not signalled", map[string]any{
		"type":       string(req.Type),
		"request_id": req.RequestID,
		"error":      err.Error(),
	})
}

// --- persistent arena ---

func handleSharedMemoryInit(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	resp := reply(req)
	m := wc.module
	if req.Length > wc.limits.MaxBufferLength || !(wc.sharedMemory || m.Shareable()) {
		resp.Available = false
		return resp, nil
	}
	if req.Length <= 0 {
		return nil, fmt.Errorf("length must be positive, got %d", req.Length)
	}

	if wc.arena != nil && wc.arena.Length != req.Length {
		if err := m.FreeU32(wc.arena.Ptr, wc.arena.Length); err != nil {
			return nil, fmt.Errorf("free arena: %w", err)
		}
		wc.arena = nil
	}
	if wc.arena == nil {
		ptr := m.AllocU32(req.Length)
		if ptr == 0 {
			return nil, fmt.Errorf("%w: arena of %d uint32", compute.ErrAllocFailed, req.Length)
		}
		wc.arena = &Arena{Ptr: ptr, Length: req.Length}
		wc.logger.Debug("arena allocated", map[string]any{"ptr": ptr, "length": req.Length})
	}

	ref, err := m.Memory().Ref(0, m.Memory().Len())
	if err != nil {
		return nil, err
	}
	resp.Available = true
	resp.Memory = &ref
	resp.Ptr = wc.arena.Ptr
	resp.Length = wc.arena.Length
	return resp, nil
}

func handleSharedMemoryProcess(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.sharedLimitError()
	}

	start := time.Now()
	if err := wc.module.ProcessSharedBufferPtr(req.Ptr, req.Length); err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	resp := reply(req)
	resp.DurationMs = durationMs(elapsed)
	return resp, nil
}

func handleSharedBufferProcess(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.sharedLimitError()
	}
	data, err := wc.uint32s(req.Buffer, "buffer", req.Length)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	wc.module.ProcessSharedBuffer(data)
	elapsed := time.Since(start)

	resp := reply(req)
	resp.DurationMs = durationMs(elapsed)
	return resp, nil
}
