package trajectory

import "sort"

// despike applies a running median of width window to values. The ends are
// padded by repeating the first and last value so a short annual series is
// not pulled toward zero. window must be odd; 1 or less returns a copy.
func despike(values []float64, window int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if window <= 1 || n == 0 {
		copy(out, values)
		return out
	}

	half := window / 2
	buf := make([]float64, window)
	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			} else if idx >= n {
				idx = n - 1
			}
			buf[j+half] = values[idx]
		}
		sorted := append([]float64(nil), buf...)
		sort.Float64s(sorted)
		out[i] = sorted[half]
	}
	return out
}
