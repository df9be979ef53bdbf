package kernels

// Reference implementations. They trade speed for the most literal form of
// each algorithm and serve as the baseline side of comparison benchmarks.

// MaxFibonacciIterRef is the largest n whose fibonacci number fits in a
// uint64.
const MaxFibonacciIterRef = 93

// FibonacciIterRef is the iterative fibonacci with an explicit temporary.
// ok is false when n exceeds MaxFibonacciIterRef.
func FibonacciIterRef(n int) (fib uint64, ok bool) {
	if n < 0 || n > MaxFibonacciIterRef {
		return 0, false
	}
	if n == 0 {
		return 0, true
	}
	var a, b uint64 = 0, 1
	for i := 1; i < n; i++ {
		temp := a + b
		a = b
		b = temp
	}
	return b, true
}

// FibonacciRef is the recursive fibonacci over float64.
func FibonacciRef(n int) float64 {
	if n <= 1 {
		return float64(n)
	}
	return FibonacciRef(n-1) + FibonacciRef(n-2)
}

// MatrixMultiplyRef is the textbook triple loop.
func MatrixMultiplyRef(a, b, c []float64, n int) {
	for i := range n {
		for j := range n {
			var sum float64
			for k := range n {
				sum += a[i*n+k] * b[k*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

// QuicksortRef is the recursive Lomuto quicksort.
func QuicksortRef(data []float64) {
	quicksortRef(data, 0, len(data)-1)
}

func quicksortRef(data []float64, lo, hi int) {
	if lo < hi {
		p := partition(data, lo, hi)
		quicksortRef(data, lo, p-1)
		quicksortRef(data, p+1, hi)
	}
}
