package kernels

// Quicksort sorts data ascending in place with an iterative Lomuto
// partition quicksort.
func Quicksort(data []float64) {
	if len(data) <= 1 {
		return
	}
	type span struct{ lo, hi int }
	stack := []span{{0, len(data) - 1}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if s.lo >= s.hi {
			continue
		}
		p := partition(data, s.lo, s.hi)
		if p > 0 {
			stack = append(stack, span{s.lo, p - 1})
		}
		stack = append(stack, span{p + 1, s.hi})
	}
}

func partition(data []float64, lo, hi int) int {
	pivot := data[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if data[j] <= pivot {
			data[i], data[j] = data[j], data[i]
			i++
		}
	}
	data[i], data[hi] = data[hi], data[i]
	return i
}
