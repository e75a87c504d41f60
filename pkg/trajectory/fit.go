package trajectory

import (
	"fmt"
	"math"
)

// FitOptions controls FitVertices
type FitOptions struct {
	// DespikeWindow is the odd running-median width applied before the
	// change point search; 1 or less disables despiking
	DespikeWindow int
	// MinSegmentYears is the shortest run of samples between breakpoints
	MinSegmentYears int
	// Penalty is the per-segment cost; higher values give fewer vertices
	Penalty float64
	// MaxSegments, when positive, caps the number of regimes (runs between
	// change points) by doubling the penalty until the partition fits
	MaxSegments int
}

// Validate checks the options once at setup
func (o FitOptions) Validate() error {
	if o.DespikeWindow > 1 && o.DespikeWindow%2 == 0 {
		return fmt.Errorf("despike window must be odd, got %d", o.DespikeWindow)
	}
	if o.MinSegmentYears < 1 {
		return fmt.Errorf("minimum segment length must be at least 1 year, got %d", o.MinSegmentYears)
	}
	if !(o.Penalty > 0) {
		return fmt.Errorf("penalty must be positive, got %v", o.Penalty)
	}
	if o.MaxSegments < 0 {
		return fmt.Errorf("max segments must not be negative, got %d", o.MaxSegments)
	}
	return nil
}

// maxPenaltyDoublings bounds the search for a partition within MaxSegments
const maxPenaltyDoublings = 32

// FitVertices builds a trajectory from an annual series. The series is
// despiked, split at the change points found by a penalized kernel search,
// and a vertex is placed on each side of every change point plus at both
// ends. Vertex values come from the despiked series.
func FitVertices(years []int, values []float64, opts FitOptions) (Trajectory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(years) != len(values) {
		return nil, fmt.Errorf("%w: %d years but %d values", ErrInvalidTrajectory, len(years), len(values))
	}
	if len(years) < 2 {
		return nil, fmt.Errorf("%w: %d annual values, need at least 2", ErrInvalidTrajectory, len(years))
	}
	for i := range years {
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, fmt.Errorf("%w: year %d has value %v", ErrInvalidTrajectory, years[i], values[i])
		}
		if i > 0 && years[i] <= years[i-1] {
			return nil, fmt.Errorf("%w: year %d follows %d", ErrInvalidTrajectory, years[i], years[i-1])
		}
	}

	smoothed := despike(values, opts.DespikeWindow)
	detector := newPelt(smoothed, opts.MinSegmentYears, 1)

	penalty := opts.Penalty
	bkps := detector.breakpoints(penalty)
	for i := 0; opts.MaxSegments > 0 && len(bkps) > opts.MaxSegments && i < maxPenaltyDoublings; i++ {
		penalty *= 2
		bkps = detector.breakpoints(penalty)
	}

	n := len(values)
	indices := []int{0}
	add := func(i int) {
		if i > indices[len(indices)-1] {
			indices = append(indices, i)
		}
	}
	for _, b := range bkps {
		if b >= n {
			continue
		}
		add(b - 1)
		add(b)
	}
	add(n - 1)

	t := make(Trajectory, len(indices))
	for i, idx := range indices {
		t[i] = Vertex{Year: years[idx], Value: smoothed[idx]}
	}
	return t, nil
}
