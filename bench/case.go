// Package bench runs benchmark cases through a worker pool and aggregates
// the timings into a Report.
//
// Each case pairs a module kernel with its reference counterpart at one
// size. Benchmark handlers time themselves inside the worker; fibonacci
// batches and streamed sums are timed around the round trip.
package bench

import (
	"fmt"
	"slices"

	"github.com/pithecene-io/crucible/types"
)

// Kind is a benchmark family.
type Kind string

// Benchmark families.
const (
	KindFibonacci Kind = "fibonacci"
	KindQuicksort Kind = "quicksort"
	KindMatrix    Kind = "matrix"
	KindStreamSum Kind = "stream_sum"
)

// Variant selects the implementation under test.
type Variant string

// Variants.
const (
	VariantModule Variant = "module"
	VariantRef    Variant = "ref"
)

// Default case parameters.
const (
	DefaultRuns           = 3
	DefaultFibN           = 30
	DefaultFibIterations  = 50
	DefaultStreamTotal    = 500_000
	DefaultStreamChunk    = 50_000
	DefaultStreamFill     = 20
	DefaultQuicksortSize  = 100_000
	DefaultMatrixSize     = 256
	maxFibonacciN         = 93
	maxFibonacciIteration = 1_000_000
)

// Case is one benchmark.
type Case struct {
	Name    string
	Kind    Kind
	Variant Variant
	// Size is n for fibonacci and matrix, the element count otherwise.
	Size int
	// Iterations is the fibonacci batch count.
	Iterations int
	// Chunk is the stream sum chunk length.
	Chunk int
	// Algorithm is the requested matrix algorithm.
	Algorithm types.Algorithm
}

// Validate checks case parameters before any request is sent.
func (c Case) Validate() error {
	if c.Size <= 0 {
		return fmt.Errorf("case %s: size must be positive, got %d", c.Name, c.Size)
	}
	switch c.Variant {
	case VariantModule, VariantRef:
	default:
		return fmt.Errorf("case %s: unknown variant %q", c.Name, c.Variant)
	}
	switch c.Kind {
	case KindFibonacci:
		if c.Size > maxFibonacciN {
			return fmt.Errorf("case %s: fibonacci n must be <= %d", c.Name, maxFibonacciN)
		}
		if c.Iterations <= 0 || c.Iterations > maxFibonacciIteration {
			return fmt.Errorf("case %s: iterations must be in [1, %d]", c.Name, maxFibonacciIteration)
		}
	case KindQuicksort:
	case KindMatrix:
		switch c.Algorithm {
		case "", types.AlgorithmNaive, types.AlgorithmStrassen:
		default:
			return fmt.Errorf("case %s: unknown algorithm %q", c.Name, c.Algorithm)
		}
	case KindStreamSum:
		if c.Chunk <= 0 {
			return fmt.Errorf("case %s: chunk must be positive, got %d", c.Name, c.Chunk)
		}
	default:
		return fmt.Errorf("case %s: unknown kind %q", c.Name, c.Kind)
	}
	return nil
}

// request builds the request for one run of c. Stream sums have no single
// request and return nil.
func (c Case) request(id string) *types.Request {
	var t types.MessageType
	switch c.Kind {
	case KindFibonacci:
		t = types.MessageTypeFibonacciBatch
		if c.Variant == VariantRef {
			t = types.MessageTypeFibonacciBatchRef
		}
	case KindQuicksort:
		t = types.MessageTypeQuicksortBench
		if c.Variant == VariantRef {
			t = types.MessageTypeQuicksortRefBench
		}
	case KindMatrix:
		t = types.MessageTypeMatrixMultiplyBench
		if c.Variant == VariantRef {
			t = types.MessageTypeMatrixMultiplyRefBench
		}
	default:
		return nil
	}

	req := types.NewRequest(t, id)
	switch c.Kind {
	case KindFibonacci:
		req.N = c.Size
		req.Iterations = c.Iterations
	case KindQuicksort:
		req.Length = c.Size
	case KindMatrix:
		req.N = c.Size
		if c.Variant == VariantModule {
			req.Algorithm = c.Algorithm
		}
	}
	return req
}

// Sizes holds the per-family sizes used by DefaultCases. A zero or empty
// field skips that family.
type Sizes struct {
	Fibonacci  int
	Quicksort  []int
	Matrix     []int
	StreamSum  int
	Iterations int
	Chunk      int
}

// DefaultSizes returns the sizes of the standard suite.
func DefaultSizes() Sizes {
	return Sizes{
		Fibonacci:  DefaultFibN,
		Quicksort:  []int{DefaultQuicksortSize},
		Matrix:     []int{DefaultMatrixSize},
		StreamSum:  DefaultStreamTotal,
		Iterations: DefaultFibIterations,
		Chunk:      DefaultStreamChunk,
	}
}

// DefaultCases expands sizes into module and reference cases. Matrix sizes
// get a naive and a strassen module case; strassen falls back to naive in
// the worker when n is not a power of two or is below the threshold.
func DefaultCases(s Sizes) []Case {
	var cases []Case
	if s.Fibonacci > 0 {
		iterations := s.Iterations
		if iterations <= 0 {
			iterations = DefaultFibIterations
		}
		for _, v := range []Variant{VariantModule, VariantRef} {
			cases = append(cases, Case{
				Name:       fmt.Sprintf("fibonacci/%s/n=%d", v, s.Fibonacci),
				Kind:       KindFibonacci,
				Variant:    v,
				Size:       s.Fibonacci,
				Iterations: iterations,
			})
		}
	}
	for _, n := range sorted(s.Quicksort) {
		for _, v := range []Variant{VariantModule, VariantRef} {
			cases = append(cases, Case{
				Name:    fmt.Sprintf("quicksort/%s/len=%d", v, n),
				Kind:    KindQuicksort,
				Variant: v,
				Size:    n,
			})
		}
	}
	for _, n := range sorted(s.Matrix) {
		for _, alg := range []types.Algorithm{types.AlgorithmNaive, types.AlgorithmStrassen} {
			cases = append(cases, Case{
				Name:      fmt.Sprintf("matrix/%s/%s/n=%d", VariantModule, alg, n),
				Kind:      KindMatrix,
				Variant:   VariantModule,
				Size:      n,
				Algorithm: alg,
			})
		}
		cases = append(cases, Case{
			Name:    fmt.Sprintf("matrix/%s/n=%d", VariantRef, n),
			Kind:    KindMatrix,
			Variant: VariantRef,
			Size:    n,
		})
	}
	if s.StreamSum > 0 {
		chunk := s.Chunk
		if chunk <= 0 {
			chunk = DefaultStreamChunk
		}
		cases = append(cases, Case{
			Name:    fmt.Sprintf("stream_sum/len=%d/chunk=%d", s.StreamSum, chunk),
			Kind:    KindStreamSum,
			Variant: VariantModule,
			Size:    s.StreamSum,
			Chunk:   chunk,
		})
	}
	return cases
}

func sorted(vs []int) []int {
	out := slices.Clone(vs)
	slices.Sort(out)
	return slices.Compact(out)
}
