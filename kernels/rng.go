package kernels

// Benchmark seeds. Each benchmark family XORs its seed with the problem size
// so repeated runs at one size see identical data.
const (
	SeedMatrixRef     uint32 = 0xa5a5a5a5
	SeedMatrixModule  uint32 = 0x1f2e3d4c
	SeedQuicksortRef  uint32 = 0x6d2b79f5
	SeedQuicksortMod  uint32 = 0xdeadbeef
	SeedTuner         uint32 = 0x9e3779b9
	SeedWarmup        uint32 = 0xfeedbabe
	SeedWarmupPointer uint32 = 0x12345678
)

// LCG is a 32-bit linear congruential generator (Numerical Recipes
// constants) producing floats in [0, 1).
type LCG struct {
	state uint32
}

// NewLCG returns a generator seeded with seed.
func NewLCG(seed uint32) *LCG {
	return &LCG{state: seed}
}

// SeedFor derives the seed of a benchmark family for problem size n.
func SeedFor(base uint32, n int) uint32 {
	return base ^ uint32(n)
}

// Next advances the generator and returns a value in [0, 1).
func (g *LCG) Next() float64 {
	g.state = g.state*1664525 + 1013904223
	return float64(g.state) / (1 << 32)
}

// Fill writes successive values into dst.
func (g *LCG) Fill(dst []float64) {
	for i := range dst {
		dst[i] = g.Next()
	}
}

// FillPair interleaves successive values into a and b (a[0], b[0], a[1], ...),
// the order matrix benchmarks consume them in.
func (g *LCG) FillPair(a, b []float64) {
	for i := range a {
		a[i] = g.Next()
		b[i] = g.Next()
	}
}
