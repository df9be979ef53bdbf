package kernels

// Strassen threshold bounds and default.
const (
	StrassenThresholdMin     = 64
	StrassenThresholdMax     = 512
	StrassenThresholdDefault = 128
)

// Blocked multiplication parameters: matrices larger than blockThreshold
// are multiplied in blockSize tiles.
const (
	blockSize      = 32
	blockThreshold = 512
)

// ClampStrassenThreshold clamps v to [StrassenThresholdMin, StrassenThresholdMax].
func ClampStrassenThreshold(v int) int {
	return min(max(v, StrassenThresholdMin), StrassenThresholdMax)
}

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// MatrixMultiply computes c = a·b for row-major n×n matrices, switching to a
// cache-blocked loop above 512.
func MatrixMultiply(a, b, c []float64, n int) {
	if n <= 0 {
		return
	}
	if n <= blockThreshold {
		multiplyNaive(a, b, c, n)
		return
	}
	multiplyBlocked(a, b, c, n, blockSize)
}

// MatrixMultiplyStrassen computes c = a·b with Strassen's algorithm,
// recursing while the dimension exceeds threshold. Non power-of-two
// dimensions and dimensions at or below threshold use MatrixMultiply.
func MatrixMultiplyStrassen(a, b, c []float64, n, threshold int) {
	if n <= 0 {
		return
	}
	if n <= threshold || !IsPowerOfTwo(n) {
		MatrixMultiply(a, b, c, n)
		return
	}
	ws := &workspace{buf: make([]float64, workspaceRequired(n, threshold))}
	strassen(a, b, c, n, ws, threshold)
}

func multiplyNaive(a, b, c []float64, n int) {
	for i := range n {
		row := a[i*n : i*n+n]
		for j := range n {
			var sum float64
			for k, aik := range row {
				sum += aik * b[k*n+j]
			}
			c[i*n+j] = sum
		}
	}
}

func multiplyBlocked(a, b, c []float64, n, bs int) {
	clear(c[:n*n])
	for ii := 0; ii < n; ii += bs {
		iMax := min(ii+bs, n)
		for kk := 0; kk < n; kk += bs {
			kMax := min(kk+bs, n)
			for jj := 0; jj < n; jj += bs {
				jMax := min(jj+bs, n)
				for i := ii; i < iMax; i++ {
					row := c[i*n : i*n+n]
					for k := kk; k < kMax; k++ {
						aik := a[i*n+k]
						col := b[k*n : k*n+n]
						for j := jj; j < jMax; j++ {
							row[j] += aik * col[j]
						}
					}
				}
			}
		}
	}
}

// workspace is a bump allocator for Strassen temporaries. Each recursion
// level takes 17 half-size blocks and releases them on return.
type workspace struct {
	buf    []float64
	offset int
}

func (w *workspace) alloc(n int) []float64 {
	s := w.buf[w.offset : w.offset+n : w.offset+n]
	w.offset += n
	return s
}

func workspaceRequired(n, threshold int) int {
	if n <= threshold {
		return 0
	}
	half := n / 2
	return 17*half*half + workspaceRequired(half, threshold)
}

func strassen(a, b, c []float64, n int, ws *workspace, threshold int) {
	if n <= threshold {
		multiplyNaive(a, b, c, n)
		return
	}

	mark := ws.offset
	defer func() { ws.offset = mark }()

	half := n / 2
	size := half * half

	a11, a12, a21, a22 := ws.alloc(size), ws.alloc(size), ws.alloc(size), ws.alloc(size)
	b11, b12, b21, b22 := ws.alloc(size), ws.alloc(size), ws.alloc(size), ws.alloc(size)
	for i := range half {
		for j := range half {
			idx := i*half + j
			a11[idx] = a[i*n+j]
			a12[idx] = a[i*n+j+half]
			a21[idx] = a[(i+half)*n+j]
			a22[idx] = a[(i+half)*n+j+half]
			b11[idx] = b[i*n+j]
			b12[idx] = b[i*n+j+half]
			b21[idx] = b[(i+half)*n+j]
			b22[idx] = b[(i+half)*n+j+half]
		}
	}

	m1, m2, m3, m4 := ws.alloc(size), ws.alloc(size), ws.alloc(size), ws.alloc(size)
	m5, m6, m7 := ws.alloc(size), ws.alloc(size), ws.alloc(size)
	t1, t2 := ws.alloc(size), ws.alloc(size)

	// M1 = (A11 + A22)(B11 + B22)
	add(a11, a22, t1)
	add(b11, b22, t2)
	strassen(t1, t2, m1, half, ws, threshold)
	// M2 = (A21 + A22)B11
	add(a21, a22, t1)
	strassen(t1, b11, m2, half, ws, threshold)
	// M3 = A11(B12 - B22)
	sub(b12, b22, t1)
	strassen(a11, t1, m3, half, ws, threshold)
	// M4 = A22(B21 - B11)
	sub(b21, b11, t1)
	strassen(a22, t1, m4, half, ws, threshold)
	// M5 = (A11 + A12)B22
	add(a11, a12, t1)
	strassen(t1, b22, m5, half, ws, threshold)
	// M6 = (A21 - A11)(B11 + B12)
	sub(a21, a11, t1)
	add(b11, b12, t2)
	strassen(t1, t2, m6, half, ws, threshold)
	// M7 = (A12 - A22)(B21 + B22)
	sub(a12, a22, t1)
	add(b21, b22, t2)
	strassen(t1, t2, m7, half, ws, threshold)

	for i := range half {
		for j := range half {
			idx := i*half + j
			c[i*n+j] = m1[idx] + m4[idx] - m5[idx] + m7[idx]
			c[i*n+j+half] = m3[idx] + m5[idx]
			c[(i+half)*n+j] = m2[idx] + m4[idx]
			c[(i+half)*n+j+half] = m1[idx] - m2[idx] + m3[idx] + m6[idx]
		}
	}
}

func add(a, b, c []float64) {
	for i := range c {
		c[i] = a[i] + b[i]
	}
}

func sub(a, b, c []float64) {
	for i := range c {
		c[i] = a[i] - b[i]
	}
}
