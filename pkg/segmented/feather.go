package segmented

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidFeatherWindow is matched by InvalidFeatherWindowError
var ErrInvalidFeatherWindow = errors.New("invalid feather window")

// InvalidFeatherWindowError reports inverted feather bounds, or bounds
// outside the combined coverage of the two segment sets. It is a
// configuration error.
type InvalidFeatherWindowError struct {
	Start  float64
	End    float64
	Reason string
}

func (e *InvalidFeatherWindowError) Error() string {
	return fmt.Sprintf("feather window [%.4f, %.4f): %s", e.Start, e.End, e.Reason)
}

func (e *InvalidFeatherWindowError) Is(target error) bool { return target == ErrInvalidFeatherWindow }

// FeatherWindow is the [Start, End) interval over which predictions move
// linearly from the earlier segment set to the later one
type FeatherWindow struct {
	Start float64
	End   float64
}

// Validate checks the window bounds on their own
func (w FeatherWindow) Validate() error {
	if math.IsNaN(w.Start) || math.IsNaN(w.End) || math.IsInf(w.Start, 0) || math.IsInf(w.End, 0) {
		return &InvalidFeatherWindowError{Start: w.Start, End: w.End, Reason: "bounds must be finite"}
	}
	if !(w.Start < w.End) {
		return &InvalidFeatherWindowError{Start: w.Start, End: w.End, Reason: "start must be before end"}
	}
	return nil
}

// Weight returns the share of the later set at t: 0 before the window, 1 at
// or after its end, linear in between
func (w FeatherWindow) Weight(t float64) float64 {
	switch {
	case t < w.Start:
		return 0
	case t >= w.End:
		return 1
	default:
		return (t - w.Start) / (w.End - w.Start)
	}
}

// ValidateCoverage checks the window against the union of both sets' coverage
func (w FeatherWindow) ValidateCoverage(a, b SegmentSet) error {
	if err := w.Validate(); err != nil {
		return err
	}
	start, end, ok := unionCoverage(a, b)
	if !ok {
		return &InvalidFeatherWindowError{Start: w.Start, End: w.End, Reason: "both segment sets are empty"}
	}
	if w.Start < start || w.End > end {
		return &InvalidFeatherWindowError{
			Start:  w.Start,
			End:    w.End,
			Reason: fmt.Sprintf("outside segment coverage [%.4f, %.4f]", start, end),
		}
	}
	return nil
}

func unionCoverage(a, b SegmentSet) (start, end float64, ok bool) {
	aStart, aEnd, aOK := a.Coverage()
	bStart, bEnd, bOK := b.Coverage()
	switch {
	case aOK && bOK:
		return math.Min(aStart, bStart), math.Max(aEnd, bEnd), true
	case aOK:
		return aStart, aEnd, true
	case bOK:
		return bStart, bEnd, true
	default:
		return 0, 0, false
	}
}

// PredictFeathered evaluates the blend of two segment sets at t. Before the
// window only a is used and from its end on only b; inside it the result is
// (1-w)·a + w·b with w rising linearly from 0.
//
// Inside the window, when only one set has an active segment its value is
// used alone. The second result is false when no segment applies.
func PredictFeathered(a, b SegmentSet, t float64, w FeatherWindow, fillGaps bool) (float64, bool, error) {
	if err := w.ValidateCoverage(a, b); err != nil {
		return math.NaN(), false, err
	}
	v, ok := blend(a, b, t, w, fillGaps)
	return v, ok, nil
}

// SyntheticFeathered evaluates the blend at every date after validating the
// window once
func SyntheticFeathered(a, b SegmentSet, dates []float64, w FeatherWindow, fillGaps bool) ([]float64, []bool, error) {
	if err := w.ValidateCoverage(a, b); err != nil {
		return nil, nil, err
	}
	values := make([]float64, len(dates))
	ok := make([]bool, len(dates))
	for i, t := range dates {
		values[i], ok[i] = blend(a, b, t, w, fillGaps)
	}
	return values, ok, nil
}

func blend(a, b SegmentSet, t float64, w FeatherWindow, fillGaps bool) (float64, bool) {
	weight := w.Weight(t)
	switch weight {
	case 0:
		return Predict(a, t, fillGaps)
	case 1:
		return Predict(b, t, fillGaps)
	}

	va, okA := Predict(a, t, fillGaps)
	vb, okB := Predict(b, t, fillGaps)
	switch {
	case okA && okB:
		return (1-weight)*va + weight*vb, true
	case okA:
		return va, true
	case okB:
		return vb, true
	default:
		return math.NaN(), false
	}
}
