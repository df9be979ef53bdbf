package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/crucible/ipc"
	"github.com/pithecene-io/crucible/types"
)

// invalidMessage is the error text for frames that fail validation.
const invalidMessage = "Invalid worker message"

// Serve processes request frames from in until EOF, writing one response
// frame per request to out. Requests are handled strictly in arrival order.
//
// Serve returns nil on a clean EOF, the frame error on a fatal framing
// fault, or ctx.Err() if ctx ends between requests.
func Serve(ctx context.Context, in io.Reader, out io.Writer, opts ...Option) (err error) {
	wc := NewContext(opts...)
	defer func() {
		err = errors.Join(err, wc.Close())
	}()
	return wc.Serve(ctx, in, out)
}

// Serve runs the request loop over an existing context. The context is not
// closed on return.
func (c *Context) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	dec := ipc.NewFrameDecoder(in)
	enc := ipc.NewFrameEncoder(out)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := dec.ReadFrame()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		resp := c.Handle(ctx, payload)
		err = enc.WriteFrame(resp)
		if ipc.IsUnwritten(err) {
			err = enc.WriteFrame(types.NewErrorResponse(resp.RequestID, err.Error()))
		}
		if err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}

// Handle turns one request payload into exactly one response. A control
// cell named by the payload is signalled on every path, including requests
// that fail validation.
func (c *Context) Handle(ctx context.Context, payload []byte) *types.Response {
	env, err := ipc.ProbeEnvelope(payload)
	if err != nil || !types.ValidateRequest(env) {
		id := types.RequestIDOf(env)
		c.logger.Debug("invalid request dropped", map[string]any{"request_id": id})
		c.signalRaw(payload, id)
		return types.NewErrorResponse(id, invalidMessage)
	}

	req, err := ipc.DecodeRequest(payload)
	if err != nil {
		id := types.RequestIDOf(env)
		c.signalRaw(payload, id)
		return types.NewErrorResponse(id, err.Error())
	}
	return c.dispatch(ctx, req)
}

// signalRaw signals the control cell of a payload that did not decode as a
// valid request.
func (c *Context) signalRaw(payload []byte, id string) {
	var probe struct {
		Control *types.SharedRef `msgpack:"control"`
	}
	if msgpack.Unmarshal(payload, &probe) != nil || probe.Control == nil {
		return
	}
	c.signal(&types.Request{RequestID: id, Control: probe.Control})
}

// dispatch runs the handler for an accepted request.
func (c *Context) dispatch(ctx context.Context, req *types.Request) (resp *types.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp = types.NewErrorResponse(req.RequestID, fmt.Sprint(r))
		}
		c.signal(req)
		if resp.Type == types.MessageTypeError {
			c.logger.Warn("request failed", map[string]any{
				"type":       string(req.Type),
				"request_id": req.RequestID,
				"error":      resp.Message,
			})
			return
		}
		c.logger.Debug("request handled", map[string]any{
			"type":        string(req.Type),
			"request_id":  req.RequestID,
			"duration_ms": float64(time.Since(start).Microseconds()) / 1000,
		})
	}()

	if err := c.ensureReady(ctx); err != nil {
		return types.NewErrorResponse(req.RequestID, err.Error())
	}

	h, ok := c.handlers[req.Type]
	if !ok {
		return types.NewErrorResponse(req.RequestID, fmt.Sprintf("Unhandled message type: %s", req.Type))
	}
	resp, err := h(ctx, c, req)
	if err != nil {
		return types.NewErrorResponse(req.RequestID, err.Error())
	}
	return resp
}
