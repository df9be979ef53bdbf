package worker

import (
	"context"

	"github.com/pithecene-io/crucible/types"
)

func opsHandlers() handlerGroup {
	return handlerGroup{
		name: "ops",
		handlers: map[types.MessageType]HandlerFunc{
			types.MessageTypePing:           handlePing,
			types.MessageTypeSumArray:       handleSumArray,
			types.MessageTypeSumArrayShared: handleSumArrayShared,
			types.MessageTypeDotProduct:     handleDotProduct,
			types.MessageTypeSumF32:         handleSumF32,
			types.MessageTypeGrayscale:      handleGrayscale,
			types.MessageTypeBoxBlur:        handleBoxBlur,
			types.MessageTypeFFTDemo:        handleFFTDemo,
			types.MessageTypeGenerateSignal: handleGenerateSignal,
		},
	}
}

// handlePing answers once the module is loaded; dispatch loads it first.
func handlePing(_ context.Context, _ *Context, req *types.Request) (*types.Response, error) {
	return reply(req), nil
}

// --- arrays ---

func handleSumArray(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if len(req.Data) > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	resp := reply(req)
	resp.Result = float64(wc.module.SumU32(req.Data))
	return resp, nil
}

func handleSumArrayShared(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	data, err := wc.uint32s(req.Buffer, "buffer", req.Length)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.Result = float64(wc.module.SumU32(data))
	return resp, nil
}

func handleDotProduct(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	a, err := wc.float32s(req.ABuffer, "aBuffer", req.Length)
	if err != nil {
		return nil, err
	}
	b, err := wc.float32s(req.BBuffer, "bBuffer", req.Length)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.Result = float64(wc.module.DotProduct(a, b))
	return resp, nil
}

func handleSumF32(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	data, err := wc.float32s(req.Buffer, "buffer", req.Length)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.Result = float64(wc.module.SumF32(data))
	return resp, nil
}

// --- images ---

func handleGrayscale(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxImageSize {
		return nil, errImageLimit
	}
	pixels, err := wc.bytes(req.Buffer, "buffer", req.Length)
	if err != nil {
		return nil, err
	}
	wc.module.Grayscale(pixels)
	return reply(req), nil
}

func handleBoxBlur(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Width < 0 || req.Height < 0 {
		return nil, errImageDimensions
	}
	// divide instead of multiplying so huge dimensions cannot wrap
	if req.Width > 0 && req.Height > wc.limits.MaxImageSize/4/req.Width {
		return nil, errImageLimit
	}
	size := req.Width * req.Height * 4
	pixels, err := wc.bytes(req.Buffer, "buffer", size)
	if err != nil {
		return nil, err
	}
	if err := wc.module.BoxBlur(pixels, req.Width, req.Height, req.Radius); err != nil {
		return nil, err
	}
	return reply(req), nil
}

// --- signal processing ---

func handleFFTDemo(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Size > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	in, err := wc.float64s(req.InputBuffer, "inputBuffer", req.Size)
	if err != nil {
		return nil, err
	}
	out, err := wc.float64s(req.OutputBuffer, "outputBuffer", req.Size)
	if err != nil {
		return nil, err
	}
	wc.module.FFTDemo(in, out)
	return reply(req), nil
}

func handleGenerateSignal(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Size > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	buf, err := wc.float64s(req.Buffer, "buffer", req.Size)
	if err != nil {
		return nil, err
	}
	wc.module.GenerateSignal(buf, req.Freq1, req.Freq2, req.Freq3)
	return reply(req), nil
}
