package kernels

import (
	"math"
	"slices"
	"testing"
)

func TestFibonacci(t *testing.T) {
	tests := []struct {
		n    uint32
		want uint32
	}{
		{0, 0}, {1, 1}, {2, 1}, {10, 55}, {20, 6765},
	}
	for _, tt := range tests {
		if got := Fibonacci(tt.n); got != tt.want {
			t.Errorf("Fibonacci(%d) = %d, want %d", tt.n, got, tt.want)
		}
		if got := FibonacciIter(tt.n); got != uint64(tt.want) {
			t.Errorf("FibonacciIter(%d) = %d, want %d", tt.n, got, tt.want)
		}
		if got := FibonacciRef(int(tt.n)); got != float64(tt.want) {
			t.Errorf("FibonacciRef(%d) = %v, want %d", tt.n, got, tt.want)
		}
	}

	if got := FibonacciIter(90); got != 2880067194370816120 {
		t.Errorf("FibonacciIter(90) = %d", got)
	}
}

func TestFibonacciIterRef(t *testing.T) {
	tests := []struct {
		n      int
		want   uint64
		wantOK bool
	}{
		{0, 0, true},
		{1, 1, true},
		{12, 144, true},
		{90, 2880067194370816120, true},
		{93, 12200160415121876738, true},
		{94, 0, false},
		{-1, 0, false},
	}
	for _, tt := range tests {
		got, ok := FibonacciIterRef(tt.n)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("FibonacciIterRef(%d) = %d, %v, want %d, %v", tt.n, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestProcessSharedBuffer(t *testing.T) {
	data := []uint32{0, 1, 2, 10, 20, 50}
	ProcessSharedBuffer(data)
	// fib(50) = 12586269025 wraps to 12586269025 mod 2^32.
	want := []uint32{0, 1, 1, 55, 6765, uint32(12586269025 % (1 << 32))}
	if !slices.Equal(data, want) {
		t.Errorf("ProcessSharedBuffer = %v, want %v", data, want)
	}
}

func TestSums(t *testing.T) {
	if got := SumU32([]uint32{1, 2, 3, math.MaxUint32}); got != 5 {
		t.Errorf("SumU32 wrap = %d, want 5", got)
	}
	f := []float32{1, 2, 3, 4, 5, 6, 7}
	if got := SumF32(f); got != 28 {
		t.Errorf("SumF32 = %v, want 28", got)
	}
	if got := DotProduct(f, []float32{1, 1, 1, 1, 1, 1, 1, 1, 1}); got != 28 {
		t.Errorf("DotProduct = %v, want 28", got)
	}
	if got := DotProduct(nil, f); got != 0 {
		t.Errorf("DotProduct(nil) = %v, want 0", got)
	}
}

func TestGrayscale(t *testing.T) {
	px := []byte{255, 0, 0, 128, 0, 255, 0, 7, 9}
	Grayscale(px)
	if px[0] != 76 || px[1] != 76 || px[2] != 76 || px[3] != 128 {
		t.Errorf("red pixel = %v", px[:4])
	}
	if px[4] != 149 || px[7] != 7 {
		t.Errorf("green pixel = %v", px[4:8])
	}
	if px[8] != 9 {
		t.Error("trailing partial pixel must be untouched")
	}
}

func TestBoxBlur(t *testing.T) {
	// 3x1 image: black, white, black.
	img := []byte{
		0, 0, 0, 255,
		255, 255, 255, 200,
		0, 0, 0, 255,
	}
	if err := BoxBlur(img, 3, 1, 1); err != nil {
		t.Fatalf("BoxBlur failed: %v", err)
	}
	// Edges average two pixels, centre averages three.
	if img[0] != 127 || img[4] != 85 || img[8] != 127 {
		t.Errorf("blurred = %v", img)
	}
	if img[7] != 200 {
		t.Errorf("alpha changed: %d", img[7])
	}

	if err := BoxBlur(img, 4, 4, 1); err == nil {
		t.Error("expected error for undersized buffer")
	}
}

func TestFFTDemo(t *testing.T) {
	in := []float64{1, 1, 1, 1}
	out := make([]float64, 4)
	FFTDemo(in, out)
	if math.Abs(out[0]-4) > 1e-9 {
		t.Errorf("DC bin = %v, want 4", out[0])
	}
	for k := 1; k < 4; k++ {
		if out[k] > 1e-9 {
			t.Errorf("bin %d = %v, want 0", k, out[k])
		}
	}
}

func TestGenerateSignal(t *testing.T) {
	buf := make([]float64, 8)
	GenerateSignal(buf, 1, 2, 3)
	if buf[0] != 0 {
		t.Errorf("buf[0] = %v, want 0", buf[0])
	}
	// t = 0.25: sin(π/2) + 0.5 sin(π) + 0.3 sin(3π/2) = 1 - 0.3
	if math.Abs(buf[2]-0.7) > 1e-9 {
		t.Errorf("buf[2] = %v, want 0.7", buf[2])
	}
}

func randomMatrices(n int, seed uint32) (a, b []float64) {
	a = make([]float64, n*n)
	b = make([]float64, n*n)
	NewLCG(seed).FillPair(a, b)
	return a, b
}

func assertClose(t *testing.T, got, want []float64) {
	t.Helper()
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-6 {
			t.Fatalf("element %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestMatrixMultiply_VariantsAgree(t *testing.T) {
	for _, n := range []int{1, 3, 64, 128} {
		a, b := randomMatrices(n, SeedFor(SeedMatrixRef, n))
		want := make([]float64, n*n)
		MatrixMultiplyRef(a, b, want, n)

		got := make([]float64, n*n)
		MatrixMultiply(a, b, got, n)
		assertClose(t, got, want)

		clear(got)
		MatrixMultiplyStrassen(a, b, got, n, StrassenThresholdMin)
		assertClose(t, got, want)
	}
}

func TestMatrixMultiply_Blocked(t *testing.T) {
	n := 70
	a, b := randomMatrices(n, 1)
	want := make([]float64, n*n)
	MatrixMultiplyRef(a, b, want, n)

	got := make([]float64, n*n)
	multiplyBlocked(a, b, got, n, blockSize)
	assertClose(t, got, want)
}

func TestStrassen_DeepRecursion(t *testing.T) {
	n := 256
	a, b := randomMatrices(n, SeedTuner)
	want := make([]float64, n*n)
	MatrixMultiply(a, b, want, n)

	got := make([]float64, n*n)
	// A threshold below the clamp floor forces two levels with workspace reuse.
	ws := &workspace{buf: make([]float64, workspaceRequired(n, 64))}
	strassen(a, b, got, n, ws, 64)
	assertClose(t, got, want)
	if ws.offset != 0 {
		t.Errorf("workspace not released: offset %d", ws.offset)
	}
}

func TestClampStrassenThreshold(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 64}, {64, 64}, {200, 200}, {512, 512}, {4096, 512},
	}
	for _, tt := range tests {
		if got := ClampStrassenThreshold(tt.in); got != tt.want {
			t.Errorf("ClampStrassenThreshold(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 64, 1024} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false", n)
		}
	}
	for _, n := range []int{0, -4, 3, 100, 1500} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true", n)
		}
	}
}

func TestQuicksort(t *testing.T) {
	tests := [][]float64{
		nil,
		{1},
		{5, 2, 8, 1, 9},
		{3, 3, 3, 1, 1},
		{9, 8, 7, 6, 5, 4, 3, 2, 1},
	}
	for _, in := range tests {
		a := slices.Clone(in)
		b := slices.Clone(in)
		Quicksort(a)
		QuicksortRef(b)
		want := slices.Clone(in)
		slices.Sort(want)
		if !slices.Equal(a, want) {
			t.Errorf("Quicksort(%v) = %v", in, a)
		}
		if !slices.Equal(b, want) {
			t.Errorf("QuicksortRef(%v) = %v", in, b)
		}
	}
}

func TestLCG_Deterministic(t *testing.T) {
	a := make([]float64, 100)
	b := make([]float64, 100)
	NewLCG(SeedFor(SeedQuicksortRef, 100)).Fill(a)
	NewLCG(SeedFor(SeedQuicksortRef, 100)).Fill(b)
	if !slices.Equal(a, b) {
		t.Error("same seed must produce the same sequence")
	}

	c := make([]float64, 100)
	NewLCG(SeedFor(SeedQuicksortRef, 101)).Fill(c)
	if slices.Equal(a, c) {
		t.Error("different sizes must not collide")
	}

	for _, v := range a {
		if v < 0 || v >= 1 {
			t.Fatalf("value %v outside [0,1)", v)
		}
	}
}

func TestLCG_FirstValue(t *testing.T) {
	// state = 0*1664525 + 1013904223
	if got := NewLCG(0).Next(); got != 1013904223.0/4294967296.0 {
		t.Errorf("Next() = %v", got)
	}
}
