package kernels

import "math"

// FFTDemo writes the magnitude of the real (cosine) part of the naive DFT of
// in to out: out[k] = |Σ in[t]·cos(2πkt/n)|. out must be at least len(in).
func FFTDemo(in, out []float64) {
	n := len(in)
	out = out[:n]
	for k := range n {
		var sum float64
		for t, v := range in {
			angle := 2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += v * math.Cos(angle)
		}
		out[k] = math.Abs(sum)
	}
}

// GenerateSignal fills buf with sin(2πf1t) + 0.5·sin(2πf2t) + 0.3·sin(2πf3t)
// sampled at t = i/len(buf).
func GenerateSignal(buf []float64, f1, f2, f3 float64) {
	n := float64(len(buf))
	for i := range buf {
		t := float64(i) / n
		buf[i] = math.Sin(2*math.Pi*f1*t) +
			0.5*math.Sin(2*math.Pi*f2*t) +
			0.3*math.Sin(2*math.Pi*f3*t)
	}
}
