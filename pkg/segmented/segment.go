// Package segmented evaluates piecewise harmonic models: sets of
// time-bounded segments, each carrying its own harmonic fit, and the linear
// cross-fade ("feathering") of two independently fit sets.
package segmented

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/chrissnell/pixeltrend/pkg/harmonic"
)

// ErrInvalidSegment is returned for a segment with an empty or unordered interval
var ErrInvalidSegment = errors.New("invalid segment")

// Segment is one harmonic model valid over [Start, End). Break is the date
// the change that closed the segment was detected; a Break that is not after
// End means none was recorded.
type Segment struct {
	Start float64
	End   float64
	Break float64
	Model harmonic.Model
}

// NewSegment builds a segment from a model carrying a validity interval
func NewSegment(m harmonic.Model, brk float64) (Segment, error) {
	iv, ok := m.Validity()
	if !ok {
		return Segment{}, fmt.Errorf("%w: band %s model has no validity interval", ErrInvalidSegment, m.Band())
	}
	return Segment{Start: iv.Start, End: iv.End, Break: brk, Model: m}, nil
}

// Contains reports whether t lies in [Start, End)
func (s Segment) Contains(t float64) bool {
	return t >= s.Start && t < s.End
}

// HasBreak reports whether a break date after End was recorded
func (s Segment) HasBreak() bool {
	return s.Break > s.End
}

func (s Segment) validate() error {
	if math.IsNaN(s.Start) || math.IsNaN(s.End) || !(s.Start < s.End) {
		return fmt.Errorf("%w: [%.4f, %.4f)", ErrInvalidSegment, s.Start, s.End)
	}
	return nil
}

// SegmentSet is an ordered segmentation of one pixel from a single fitting
// run. Segments may overlap. ID records the run the set came from.
type SegmentSet struct {
	ID       string
	segments []Segment
}

// NewSegmentSet validates and orders segments by start date. An empty id is
// replaced by a random one.
func NewSegmentSet(id string, segments ...Segment) (SegmentSet, error) {
	if id == "" {
		id = uuid.NewString()
	}
	segs := make([]Segment, len(segments))
	copy(segs, segments)
	for _, s := range segs {
		if err := s.validate(); err != nil {
			return SegmentSet{}, fmt.Errorf("segment set %s: %w", id, err)
		}
	}
	sort.SliceStable(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	return SegmentSet{ID: id, segments: segs}, nil
}

// Len returns the number of segments
func (s SegmentSet) Len() int { return len(s.segments) }

// Segments returns a copy of the segments in start order
func (s SegmentSet) Segments() []Segment {
	return append([]Segment(nil), s.segments...)
}

// Coverage returns the earliest start and latest end of the set
func (s SegmentSet) Coverage() (start, end float64, ok bool) {
	if len(s.segments) == 0 {
		return 0, 0, false
	}
	start, end = s.segments[0].Start, s.segments[0].End
	for _, seg := range s.segments[1:] {
		end = math.Max(end, seg.End)
	}
	return start, end, true
}

// SelectActiveSegment returns the segment containing t. When several
// overlap, the one that started last wins.
//
// With fillGaps, a date that falls between segments is served by the
// preceding segment (the one with the latest End not after t), carried
// forward until that segment's Break when it recorded one. Without a match
// the second result is false; gaps are expected and are not errors.
// Non-finite dates never match.
func SelectActiveSegment(set SegmentSet, t float64, fillGaps bool) (Segment, bool) {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return Segment{}, false
	}
	segs := set.segments
	// segments[0:n] start at or before t
	n := sort.Search(len(segs), func(i int) bool { return segs[i].Start > t })

	for i := n - 1; i >= 0; i-- {
		if segs[i].Contains(t) {
			return segs[i], true
		}
	}
	if !fillGaps {
		return Segment{}, false
	}

	best := -1
	for i := 0; i < n; i++ {
		if segs[i].End > t {
			continue
		}
		if best < 0 || segs[i].End >= segs[best].End {
			best = i
		}
	}
	if best < 0 {
		return Segment{}, false
	}
	if prev := segs[best]; prev.HasBreak() && t >= prev.Break {
		return Segment{}, false
	}
	return segs[best], true
}

// Predict evaluates the active segment's model at t
func Predict(set SegmentSet, t float64, fillGaps bool) (float64, bool) {
	seg, ok := SelectActiveSegment(set, t, fillGaps)
	if !ok {
		return math.NaN(), false
	}
	return seg.Model.Predict(t), true
}

// Synthetic evaluates set at every date. ok[i] is false where no segment applies.
func Synthetic(set SegmentSet, dates []float64, fillGaps bool) (values []float64, ok []bool) {
	values = make([]float64, len(dates))
	ok = make([]bool, len(dates))
	for i, t := range dates {
		values[i], ok[i] = Predict(set, t, fillGaps)
	}
	return values, ok
}
