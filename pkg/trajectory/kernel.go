package trajectory

import (
	"math"
	"sort"
)

// kernelCost is the Gaussian-kernel segment cost used for change point
// search. With K the Gram matrix of exp(-γ(x_i - x_j)²), the cost of
// signal[s:e] is (e - s) - ΣK[s:e, s:e] / (e - s). Block sums come from a
// 2-D prefix sum so each cost is O(1).
type kernelCost struct {
	n      int
	gamma  float64
	prefix [][]float64 // prefix[i][j] = ΣK[0:i, 0:j]
}

func newKernelCost(signal []float64) *kernelCost {
	n := len(signal)
	c := &kernelCost{n: n, gamma: medianGamma(signal)}

	c.prefix = make([][]float64, n+1)
	for i := range c.prefix {
		c.prefix[i] = make([]float64, n+1)
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= n; j++ {
			d := signal[i-1] - signal[j-1]
			k := math.Exp(-c.gamma * d * d)
			c.prefix[i][j] = k + c.prefix[i-1][j] + c.prefix[i][j-1] - c.prefix[i-1][j-1]
		}
	}
	return c
}

// medianGamma is the inverse median of the non-zero pairwise squared
// distances, or 1 when the signal is constant
func medianGamma(signal []float64) float64 {
	var dists []float64
	for i := 0; i < len(signal); i++ {
		for j := i + 1; j < len(signal); j++ {
			d := signal[i] - signal[j]
			if d*d > 0 {
				dists = append(dists, d*d)
			}
		}
	}
	if len(dists) == 0 {
		return 1
	}
	sort.Float64s(dists)
	med := dists[len(dists)/2]
	if med == 0 {
		return 1
	}
	return 1 / med
}

func (c *kernelCost) cost(start, end int) float64 {
	if start < 0 || end > c.n || start >= end {
		return math.Inf(1)
	}
	length := float64(end - start)
	block := c.prefix[end][end] - c.prefix[start][end] - c.prefix[end][start] + c.prefix[start][start]
	return length - block/length
}
