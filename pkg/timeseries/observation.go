package timeseries

import (
	"math"
	"sort"
	"time"
)

// Observation is one dated sample of a pixel. Time is a fractional year
// (2015.5 is roughly July 2nd, 2015). A band that is absent from Bands, or
// holds NaN, is missing for this observation.
type Observation struct {
	Time  float64
	Bands map[Band]float64
}

// NewObservation builds an observation from a wall-clock timestamp
func NewObservation(t time.Time, bands map[Band]float64) Observation {
	return Observation{
		Time:  FractionalYear(t),
		Bands: bands,
	}
}

// Value returns the band value and whether it is present
func (o Observation) Value(b Band) (float64, bool) {
	v, ok := o.Bands[b]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Series is the ordered observation stream of a single pixel
type Series []Observation

// Valid returns the indices, times and values of every observation where b
// is present
func (s Series) Valid(b Band) (idx []int, times, values []float64) {
	for i, o := range s {
		v, ok := o.Value(b)
		if !ok {
			continue
		}
		idx = append(idx, i)
		times = append(times, o.Time)
		values = append(values, v)
	}
	return idx, times, values
}

// Bands returns every band that has at least one value, in lexical order
func (s Series) Bands() []Band {
	seen := make(map[Band]struct{})
	for _, o := range s {
		for b := range o.Bands {
			if _, ok := o.Value(b); ok {
				seen[b] = struct{}{}
			}
		}
	}
	bands := make([]Band, 0, len(seen))
	for b := range seen {
		bands = append(bands, b)
	}
	SortBands(bands)
	return bands
}

// Sorted reports whether observation times never decrease. Duplicate
// timestamps are allowed.
func (s Series) Sorted() bool {
	return sort.SliceIsSorted(s, func(i, j int) bool { return s[i].Time < s[j].Time })
}

// SortByTime returns a copy of s ordered by time, keeping the input order of
// duplicate timestamps
func (s Series) SortByTime() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out
}

// Span returns the first and last observation time
func (s Series) Span() (first, last float64, ok bool) {
	if len(s) == 0 {
		return 0, 0, false
	}
	first, last = s[0].Time, s[0].Time
	for _, o := range s[1:] {
		first = math.Min(first, o.Time)
		last = math.Max(last, o.Time)
	}
	return first, last, true
}
