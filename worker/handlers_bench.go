package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/crucible/compute"
	"github.com/pithecene-io/crucible/kernels"
	"github.com/pithecene-io/crucible/types"
)

// Warmup workload sizes.
const (
	warmupFibN          = 28
	warmupMatrixN       = 30
	warmupSortLength    = 500
	warmupSharedLength  = 50
	warmupPointerMatrix = 16
)

func benchHandlers() handlerGroup {
	return handlerGroup{
		name: "bench",
		handlers: map[types.MessageType]HandlerFunc{
			types.MessageTypeWarmup:                 handleWarmup,
			types.MessageTypeFibonacci:              handleFibonacci,
			types.MessageTypeFibonacciIter:          handleFibonacciIter,
			types.MessageTypeFibonacciBatch:         handleFibonacciBatch,
			types.MessageTypeFibonacciBatchRef:      handleFibonacciBatchRef,
			types.MessageTypeFibonacciIterBatch:     handleFibonacciIterBatch,
			types.MessageTypeMatrixMultiply:         handleMatrixMultiply,
			types.MessageTypeMatrixMultiplyRef:      handleMatrixMultiplyRef,
			types.MessageTypeMatrixMultiplyStrassen: handleMatrixMultiplyStrassen,
			types.MessageTypeMatrixMultiplyRefBench: handleMatrixMultiplyRefBench,
			types.MessageTypeMatrixMultiplyBench:    handleMatrixMultiplyBench,
			types.MessageTypeQuicksort:              handleQuicksort,
			types.MessageTypeQuicksortRef:           handleQuicksortRef,
			types.MessageTypeQuicksortRefBench:      handleQuicksortRefBench,
			types.MessageTypeQuicksortBench:         handleQuicksortBench,
		},
	}
}

func durationMs(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// --- warmup ---

func handleWarmup(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if err := wc.warmKernels(); err != nil {
		wc.logger.Warn("warmup partial failure", map[string]any{"error": err.Error()})
	}
	resp := reply(req)
	resp.Threshold = wc.tuner.Tune(wc.module)
	return resp, nil
}

// warmKernels runs a small instance of every kernel family.
func (c *Context) warmKernels() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("warmup panicked: %v", r)
		}
	}()
	m := c.module

	m.Fibonacci(warmupFibN)
	kernels.FibonacciRef(warmupFibN)

	n := warmupMatrixN
	a := ones(n * n)
	b := ones(n * n)
	out := make([]float64, n*n)
	m.MatrixMultiply(a, b, out, n)
	kernels.MatrixMultiplyRef(a, b, out, n)

	arr := make([]float64, warmupSortLength)
	kernels.NewLCG(kernels.SeedWarmup).Fill(arr)
	m.Quicksort(append([]float64(nil), arr...))
	kernels.QuicksortRef(append([]float64(nil), arr...))

	shared := make([]uint32, warmupSharedLength)
	for i := range shared {
		shared[i] = 10
	}
	m.ProcessSharedBuffer(shared)

	return c.warmPointerKernels()
}

func (c *Context) warmPointerKernels() (err error) {
	m := c.module
	size := warmupPointerMatrix * warmupPointerMatrix
	ptrs, err := allocF64s(m, 3, size)
	defer func() { err = errors.Join(err, freeF64s(m, ptrs, size)) }()
	if err != nil {
		return err
	}

	av, err := m.F64View(ptrs[0], size)
	if err != nil {
		return err
	}
	bv, err := m.F64View(ptrs[1], size)
	if err != nil {
		return err
	}
	kernels.NewLCG(kernels.SeedWarmupPointer).FillPair(av, bv)

	if err := m.MatrixMultiplyPtr(ptrs[0], ptrs[1], ptrs[2], warmupPointerMatrix); err != nil {
		return err
	}
	return m.QuicksortPtr(ptrs[2], size)
}

func ones(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = 1
	}
	return s
}

// allocF64s allocates count module buffers of n float64. On failure the
// buffers allocated so far are returned for the caller to free.
func allocF64s(m *compute.Module, count, n int) ([]uint32, error) {
	ptrs := make([]uint32, 0, count)
	for range count {
		p := m.AllocF64(n)
		if p == 0 {
			return ptrs, fmt.Errorf("%w: %d float64", compute.ErrAllocFailed, n)
		}
		ptrs = append(ptrs, p)
	}
	return ptrs, nil
}

func freeF64s(m *compute.Module, ptrs []uint32, n int) error {
	var errs []error
	for _, p := range ptrs {
		if err := m.FreeF64(p, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- fibonacci ---

func fibArg(req *types.Request) (uint32, error) {
	if req.N < 0 {
		return 0, fmt.Errorf("n must be non-negative, got %d", req.N)
	}
	return uint32(req.N), nil
}

func handleFibonacci(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	n, err := fibArg(req)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.Result = float64(wc.module.Fibonacci(n))
	return resp, nil
}

func handleFibonacciIter(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	n, err := fibArg(req)
	if err != nil {
		return nil, err
	}
	resp := reply(req)
	resp.ResultBig = wc.module.FibonacciIter(n)
	return resp, nil
}

func handleFibonacciBatch(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	n, err := fibArg(req)
	if err != nil {
		return nil, err
	}
	var result uint32
	for range req.Iterations {
		result = wc.module.Fibonacci(n)
	}
	resp := reply(req)
	resp.Result = float64(result)
	resp.Iterations = req.Iterations
	return resp, nil
}

func handleFibonacciBatchRef(_ context.Context, _ *Context, req *types.Request) (*types.Response, error) {
	if _, err := fibArg(req); err != nil {
		return nil, err
	}
	var result float64
	for range req.Iterations {
		result = kernels.FibonacciRef(req.N)
	}
	resp := reply(req)
	resp.Result = result
	resp.Iterations = req.Iterations
	return resp, nil
}

// handleFibonacciIterBatch times the reference iterative fibonacci, which is
// exact only up to n = 93.
func handleFibonacciIterBatch(_ context.Context, _ *Context, req *types.Request) (*types.Response, error) {
	if _, err := fibArg(req); err != nil {
		return nil, err
	}
	if req.N > kernels.MaxFibonacciIterRef {
		return nil, fmt.Errorf("n must be at most %d, got %d", kernels.MaxFibonacciIterRef, req.N)
	}
	var result uint64
	for range req.Iterations {
		result, _ = kernels.FibonacciIterRef(req.N)
	}
	resp := reply(req)
	resp.ResultBig = result
	resp.Iterations = req.Iterations
	return resp, nil
}

// --- shared matrix and sort ---

// matrixViews resolves the three n×n operand windows of a matrix request.
func (c *Context) matrixViews(req *types.Request) (a, b, out []float64, err error) {
	n := req.N
	if n <= 0 {
		return nil, nil, nil, errors.New("Matrix size must be greater than zero.")
	}
	if n > c.limits.MaxMatrixSize {
		return nil, nil, nil, fmt.Errorf("Matrix size exceeds limit (%d).", c.limits.MaxMatrixSize)
	}
	if a, err = c.float64s(req.ABuffer, "aBuffer", n*n); err != nil {
		return nil, nil, nil, err
	}
	if b, err = c.float64s(req.BBuffer, "bBuffer", n*n); err != nil {
		return nil, nil, nil, err
	}
	if out, err = c.float64s(req.CBuffer, "cBuffer", n*n); err != nil {
		return nil, nil, nil, err
	}
	return a, b, out, nil
}

func handleMatrixMultiply(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	a, b, out, err := wc.matrixViews(req)
	if err != nil {
		return nil, err
	}
	wc.module.MatrixMultiply(a, b, out, req.N)
	return reply(req), nil
}

func handleMatrixMultiplyRef(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	a, b, out, err := wc.matrixViews(req)
	if err != nil {
		return nil, err
	}
	kernels.MatrixMultiplyRef(a, b, out, req.N)
	return reply(req), nil
}

func handleMatrixMultiplyStrassen(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	a, b, out, err := wc.matrixViews(req)
	if err != nil {
		return nil, err
	}
	wc.module.MatrixMultiplyStrassen(a, b, out, req.N)
	return reply(req), nil
}

func (c *Context) sortView(req *types.Request) ([]float64, error) {
	if req.Length > c.limits.MaxBufferLength {
		return nil, c.arrayLimitError()
	}
	return c.float64s(req.Buffer, "buffer", req.Length)
}

func handleQuicksort(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	data, err := wc.sortView(req)
	if err != nil {
		return nil, err
	}
	wc.module.Quicksort(data)
	return reply(req), nil
}

func handleQuicksortRef(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	data, err := wc.sortView(req)
	if err != nil {
		return nil, err
	}
	kernels.QuicksortRef(data)
	return reply(req), nil
}

// --- benchmarks ---

// benchMatrixSize clamps n to the matrix limit.
func (c *Context) benchMatrixSize(n int) (int, error) {
	n = min(n, c.limits.MaxMatrixSize)
	if n <= 0 {
		return 0, errors.New("Matrix size must be greater than zero.")
	}
	return n, nil
}

func handleMatrixMultiplyRefBench(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	n, err := wc.benchMatrixSize(req.N)
	if err != nil {
		return nil, err
	}
	size := n * n
	a := make([]float64, size)
	b := make([]float64, size)
	out := make([]float64, size)
	kernels.NewLCG(kernels.SeedFor(kernels.SeedMatrixRef, n)).FillPair(a, b)

	start := time.Now()
	kernels.MatrixMultiplyRef(a, b, out, n)
	elapsed := time.Since(start)

	resp := reply(req)
	resp.DurationMs = durationMs(elapsed)
	return resp, nil
}

// selectAlgorithm picks Strassen only when requested and applicable.
func selectAlgorithm(requested types.Algorithm, n, threshold int) types.Algorithm {
	if requested == types.AlgorithmStrassen && n >= threshold && kernels.IsPowerOfTwo(n) {
		return types.AlgorithmStrassen
	}
	return types.AlgorithmNaive
}

func handleMatrixMultiplyBench(_ context.Context, wc *Context, req *types.Request) (resp *types.Response, err error) {
	n, err := wc.benchMatrixSize(req.N)
	if err != nil {
		return nil, err
	}
	m := wc.module
	size := n * n
	ptrs, err := allocF64s(m, 3, size)
	defer func() {
		if freeErr := freeF64s(m, ptrs, size); freeErr != nil {
			wc.logger.Warn("benchmark buffers not freed", map[string]any{"error": freeErr.Error()})
		}
	}()
	if err != nil {
		return nil, err
	}

	av, err := m.F64View(ptrs[0], size)
	if err != nil {
		return nil, err
	}
	bv, err := m.F64View(ptrs[1], size)
	if err != nil {
		return nil, err
	}
	kernels.NewLCG(kernels.SeedFor(kernels.SeedMatrixModule, n)).FillPair(av, bv)

	algorithm := selectAlgorithm(req.Algorithm, n, m.StrassenThreshold())
	start := time.Now()
	if algorithm == types.AlgorithmStrassen {
		err = m.MatrixMultiplyStrassenPtr(ptrs[0], ptrs[1], ptrs[2], n)
	} else {
		err = m.MatrixMultiplyPtr(ptrs[0], ptrs[1], ptrs[2], n)
	}
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	resp = reply(req)
	resp.DurationMs = durationMs(elapsed)
	resp.AlgorithmUsed = algorithm
	return resp, nil
}

func handleQuicksortRefBench(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	if req.Length < 0 {
		return nil, fmt.Errorf("length must be non-negative, got %d", req.Length)
	}
	arr := make([]float64, req.Length)
	kernels.NewLCG(kernels.SeedFor(kernels.SeedQuicksortRef, req.Length)).Fill(arr)

	start := time.Now()
	kernels.QuicksortRef(arr)
	elapsed := time.Since(start)

	resp := reply(req)
	resp.DurationMs = durationMs(elapsed)
	return resp, nil
}

func handleQuicksortBench(_ context.Context, wc *Context, req *types.Request) (*types.Response, error) {
	if req.Length > wc.limits.MaxBufferLength {
		return nil, wc.arrayLimitError()
	}
	if req.Length <= 0 {
		return nil, fmt.Errorf("length must be positive, got %d", req.Length)
	}
	m := wc.module
	ptrs, err := allocF64s(m, 1, req.Length)
	defer func() {
		if freeErr := freeF64s(m, ptrs, req.Length); freeErr != nil {
			wc.logger.Warn("benchmark buffer not freed", map[string]any{"error": freeErr.Error()})
		}
	}()
	if err != nil {
		return nil, err
	}

	view, err := m.F64View(ptrs[0], req.Length)
	if err != nil {
		return nil, err
	}
	kernels.NewLCG(kernels.SeedFor(kernels.SeedQuicksortMod, req.Length)).Fill(view)

	start := time.Now()
	err = m.QuicksortPtr(ptrs[0], req.Length)
	elapsed := time.Since(start)
	if err != nil {
		return nil, err
	}

	resp := reply(req)
	resp.DurationMs = durationMs(elapsed)
	return resp, nil
}
