// Package kernels implements the CPU-bound compute functions executed by
// workers: fibonacci, reductions, image and signal transforms, matrix
// multiplication and sorting.
//
// Kernels operate in place on caller-owned slices and never retain them.
// The compute package exposes them over linear memory; the *Ref variants
// are straightforward reference implementations used for comparison
// benchmarks.
package kernels

// Fibonacci returns the n-th fibonacci number by naive recursion, with
// uint32 wrapping arithmetic.
func Fibonacci(n uint32) uint32 {
	if n < 2 {
		return n
	}
	return Fibonacci(n-1) + Fibonacci(n-2)
}

// FibonacciIter returns the n-th fibonacci number iteratively, wrapping at
// 64 bits.
func FibonacciIter(n uint32) uint64 {
	if n == 0 {
		return 0
	}
	a, b := uint64(0), uint64(1)
	for i := uint32(1); i < n; i++ {
		a, b = b, a+b
	}
	return b
}

func fibonacciIter32(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	a, b := uint32(0), uint32(1)
	for i := uint32(1); i < n; i++ {
		a, b = b, a+b
	}
	return b
}

// ProcessSharedBuffer replaces every element v with the v-th fibonacci
// number (uint32 wrapping).
func ProcessSharedBuffer(data []uint32) {
	for i, v := range data {
		data[i] = fibonacciIter32(v)
	}
}

// SumU32 returns the wrapping sum of data.
func SumU32(data []uint32) uint32 {
	var sum uint32
	for _, v := range data {
		sum += v
	}
	return sum
}

// SumF32 sums data with four independent accumulators.
func SumF32(data []float32) float32 {
	var s0, s1, s2, s3 float32
	n := len(data) &^ 3
	for i := 0; i < n; i += 4 {
		s0 += data[i]
		s1 += data[i+1]
		s2 += data[i+2]
		s3 += data[i+3]
	}
	total := s0 + s1 + s2 + s3
	for _, v := range data[n:] {
		total += v
	}
	return total
}

// DotProduct returns the dot product of a and b over their common length.
func DotProduct(a, b []float32) float32 {
	n := min(len(a), len(b))
	a, b = a[:n], b[:n]

	var s0, s1, s2, s3 float32
	m := n &^ 3
	for i := 0; i < m; i += 4 {
		s0 += a[i] * b[i]
		s1 += a[i+1] * b[i+1]
		s2 += a[i+2] * b[i+2]
		s3 += a[i+3] * b[i+3]
	}
	total := s0 + s1 + s2 + s3
	for i := m; i < n; i++ {
		total += a[i] * b[i]
	}
	return total
}
