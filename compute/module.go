// Package compute adapts the kernels into a compute module: a set of
// synchronous functions plus a linear memory that pointer-based variants
// address by offset.
//
// Linear memory is a shared memory region, so a requester can read results
// written through pointer variants without copying. Pointers are byte
// offsets into that region; 0 is never a valid allocation.
package compute

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pithecene-io/crucible/kernels"
	"github.com/pithecene-io/crucible/shm"
)

// Sentinel errors.
var (
	// ErrAllocFailed is returned when linear memory is exhausted.
	ErrAllocFailed = errors.New("compute: alloc failed")
	// ErrOutOfBounds is returned when a pointer range leaves linear memory.
	ErrOutOfBounds = errors.New("compute: pointer out of bounds")
	// ErrBadFree is returned when freeing a pointer that was not allocated
	// with the given length.
	ErrBadFree = errors.New("compute: invalid free")
)

// Module is a loaded compute module. Kernel calls are synchronous.
// Allocation is safe for concurrent use; a worker nonetheless drives one
// module from a single goroutine.
type Module struct {
	memory    *shm.Region
	mem       []byte
	alloc     *allocator
	threshold atomic.Int64
}

func newModule(memory *shm.Region) *Module {
	m := &Module{
		memory: memory,
		mem:    memory.Bytes(),
		alloc:  newAllocator(uint32(min(memory.Len(), math.MaxUint32))),
	}
	m.threshold.Store(kernels.StrassenThresholdDefault)
	return m
}

// Memory returns the region backing linear memory.
func (m *Module) Memory() *shm.Region { return m.memory }

// Shareable reports whether linear memory can be mapped by another process.
// Anonymous memory is only shareable with requesters in the same process.
func (m *Module) Shareable() bool { return m.memory.FileBacked() }

// MemoryInUse returns the number of allocated bytes.
func (m *Module) MemoryInUse() uint64 { return m.alloc.bytesInUse() }

// --- Allocation ---

// AllocF64 allocates n float64 elements. Returns 0 on failure.
func (m *Module) AllocF64(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return m.alloc.alloc(uint64(n) * 8)
}

// FreeF64 frees an AllocF64 block of n elements.
func (m *Module) FreeF64(ptr uint32, n int) error {
	if n <= 0 {
		return nil
	}
	return m.alloc.release(ptr, uint64(n)*8)
}

// AllocU32 allocates n uint32 elements. Returns 0 on failure.
func (m *Module) AllocU32(n int) uint32 {
	if n <= 0 {
		return 0
	}
	return m.alloc.alloc(uint64(n) * 4)
}

// FreeU32 frees an AllocU32 block of n elements.
func (m *Module) FreeU32(ptr uint32, n int) error {
	if n <= 0 {
		return nil
	}
	return m.alloc.release(ptr, uint64(n)*4)
}

// F64View returns the n float64 elements at ptr.
func (m *Module) F64View(ptr uint32, n int) ([]float64, error) {
	b, err := m.window(ptr, n, 8)
	if err != nil {
		return nil, err
	}
	return shm.Float64s(b, n)
}

// U32View returns the n uint32 elements at ptr.
func (m *Module) U32View(ptr uint32, n int) ([]uint32, error) {
	b, err := m.window(ptr, n, 4)
	if err != nil {
		return nil, err
	}
	return shm.Uint32s(b, n)
}

func (m *Module) window(ptr uint32, n, elem int) ([]byte, error) {
	if ptr == 0 {
		return nil, fmt.Errorf("%w: null pointer", ErrOutOfBounds)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: negative length %d", ErrOutOfBounds, n)
	}
	end := uint64(ptr) + uint64(n)*uint64(elem)
	if end > uint64(len(m.mem)) {
		return nil, fmt.Errorf("%w: [%d,%d) of %d bytes", ErrOutOfBounds, ptr, end, len(m.mem))
	}
	return m.mem[ptr:end:end], nil
}

// --- Tuned parameter state ---

// SetStrassenThreshold sets the Strassen crossover, clamped to
// [kernels.StrassenThresholdMin, kernels.StrassenThresholdMax], and returns
// the stored value.
func (m *Module) SetStrassenThreshold(v int) int {
	v = kernels.ClampStrassenThreshold(v)
	m.threshold.Store(int64(v))
	return v
}

// StrassenThreshold returns the active Strassen crossover.
func (m *Module) StrassenThreshold() int {
	return int(m.threshold.Load())
}

// --- Scalar kernels ---

// Fibonacci is the recursive fibonacci kernel.
func (m *Module) Fibonacci(n uint32) uint32 { return kernels.Fibonacci(n) }

// FibonacciIter is the iterative fibonacci kernel.
func (m *Module) FibonacciIter(n uint32) uint64 { return kernels.FibonacciIter(n) }

// ProcessSharedBuffer maps every element to its fibonacci number in place.
func (m *Module) ProcessSharedBuffer(data []uint32) { kernels.ProcessSharedBuffer(data) }

// SumU32 sums data.
func (m *Module) SumU32(data []uint32) uint32 { return kernels.SumU32(data) }

// SumF32 sums data.
func (m *Module) SumF32(data []float32) float32 { return kernels.SumF32(data) }

// DotProduct returns a·b.
func (m *Module) DotProduct(a, b []float32) float32 { return kernels.DotProduct(a, b) }

// Grayscale converts RGBA data in place.
func (m *Module) Grayscale(rgba []byte) { kernels.Grayscale(rgba) }

// BoxBlur blurs RGBA data in place.
func (m *Module) BoxBlur(rgba []byte, width, height, radius int) error {
	return kernels.BoxBlur(rgba, width, height, radius)
}

// FFTDemo writes DFT magnitudes of in to out.
func (m *Module) FFTDemo(in, out []float64) { kernels.FFTDemo(in, out) }

// GenerateSignal fills buf with a three-tone signal.
func (m *Module) GenerateSignal(buf []float64, f1, f2, f3 float64) {
	kernels.GenerateSignal(buf, f1, f2, f3)
}

// MatrixMultiply computes c = a·b.
func (m *Module) MatrixMultiply(a, b, c []float64, n int) { kernels.MatrixMultiply(a, b, c, n) }

// MatrixMultiplyStrassen computes c = a·b with the active threshold.
func (m *Module) MatrixMultiplyStrassen(a, b, c []float64, n int) {
	kernels.MatrixMultiplyStrassen(a, b, c, n, m.StrassenThreshold())
}

// Quicksort sorts data in place.
func (m *Module) Quicksort(data []float64) { kernels.Quicksort(data) }

// --- Pointer kernels ---

// ProcessSharedBufferPtr runs ProcessSharedBuffer over n uint32 at ptr.
func (m *Module) ProcessSharedBufferPtr(ptr uint32, n int) error {
	data, err := m.U32View(ptr, n)
	if err != nil {
		return err
	}
	kernels.ProcessSharedBuffer(data)
	return nil
}

// MatrixMultiplyPtr runs MatrixMultiply over n×n matrices at a, b and c.
func (m *Module) MatrixMultiplyPtr(a, b, c uint32, n int) error {
	av, bv, cv, err := m.matrixViews(a, b, c, n)
	if err != nil {
		return err
	}
	kernels.MatrixMultiply(av, bv, cv, n)
	return nil
}

// MatrixMultiplyStrassenPtr runs MatrixMultiplyStrassen over n×n matrices
// at a, b and c.
func (m *Module) MatrixMultiplyStrassenPtr(a, b, c uint32, n int) error {
	av, bv, cv, err := m.matrixViews(a, b, c, n)
	if err != nil {
		return err
	}
	kernels.MatrixMultiplyStrassen(av, bv, cv, n, m.StrassenThreshold())
	return nil
}

// QuicksortPtr sorts n float64 at ptr.
func (m *Module) QuicksortPtr(ptr uint32, n int) error {
	data, err := m.F64View(ptr, n)
	if err != nil {
		return err
	}
	kernels.Quicksort(data)
	return nil
}

func (m *Module) matrixViews(a, b, c uint32, n int) (av, bv, cv []float64, err error) {
	if n < 0 {
		return nil, nil, nil, fmt.Errorf("invalid matrix dimension %d", n)
	}
	size := n * n
	if av, err = m.F64View(a, size); err != nil {
		return nil, nil, nil, err
	}
	if bv, err = m.F64View(b, size); err != nil {
		return nil, nil, nil, err
	}
	if cv, err = m.F64View(c, size); err != nil {
		return nil, nil, nil, err
	}
	return av, bv, cv, nil
}
