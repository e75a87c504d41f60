package trajectory

import "math"

// pelt finds the penalized optimal partition of a signal with the pruned
// exact linear time search. Segments are at least minSize samples long and
// candidate breakpoints are taken every jump samples.
type pelt struct {
	cost    *kernelCost
	minSize int
	jump    int
}

func newPelt(signal []float64, minSize, jump int) *pelt {
	if minSize < 1 {
		minSize = 1
	}
	if jump < 1 {
		jump = 1
	}
	return &pelt{cost: newKernelCost(signal), minSize: minSize, jump: jump}
}

// breakpoints returns the sorted segment end indices of the optimal
// partition for penalty. The last element is always the signal length.
func (p *pelt) breakpoints(penalty float64) []int {
	n := p.cost.n
	if n == 0 {
		return nil
	}

	// best[t] is the optimal cost of signal[0:t] and last[t] the start of its
	// final segment
	best := make([]float64, n+1)
	last := make([]int, n+1)
	solved := make([]bool, n+1)
	for i := range best {
		best[i] = math.Inf(1)
	}
	best[0] = 0
	solved[0] = true

	var candidates []int
	for k := 0; k < n; k += p.jump {
		if k >= p.minSize {
			candidates = append(candidates, k)
		}
	}
	candidates = append(candidates, n)

	var admissible []int
	for _, end := range candidates {
		admissible = append(admissible, (end-p.minSize)/p.jump*p.jump)

		type trial struct {
			start int
			total float64
		}
		var trials []trial
		for _, start := range admissible {
			if start < 0 || !solved[start] {
				continue
			}
			trials = append(trials, trial{start, best[start] + p.cost.cost(start, end) + penalty})
		}
		if len(trials) == 0 {
			continue
		}

		opt := trials[0]
		for _, tr := range trials[1:] {
			if tr.total < opt.total {
				opt = tr
			}
		}
		best[end] = opt.total
		last[end] = opt.start
		solved[end] = true

		admissible = admissible[:0]
		for _, tr := range trials {
			if tr.total <= opt.total+penalty {
				admissible = append(admissible, tr.start)
			}
		}
	}

	if !solved[n] {
		return []int{n}
	}
	var bkps []int
	for t := n; t > 0; t = last[t] {
		bkps = append(bkps, t)
	}
	for i, j := 0, len(bkps)-1; i < j; i, j = i+1, j-1 {
		bkps[i], bkps[j] = bkps[j], bkps[i]
	}
	return bkps
}
