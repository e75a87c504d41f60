// Package recordformat encodes per-pixel output records as JSON lines or a
// MessagePack stream.
package recordformat

import (
	"math"
	"sort"
)

// Record is the flat output of one pixel. Values holds every numeric
// product keyed by name (ndvi_intercept, ndvi_pred_2015-07-01, nbr_loss1_mag,
// ...). Non-finite values are never stored, so a missing product is an
// absent key. Labels holds the few categorical products such as event speed.
type Record struct {
	RunID  string             `json:"run_id,omitempty"`
	X      int                `json:"x"`
	Y      int                `json:"y"`
	NoData bool               `json:"nodata"`
	Error  string             `json:"error,omitempty"`
	Values map[string]float64 `json:"values,omitempty"`
	Labels map[string]string  `json:"labels,omitempty"`
}

// NewRecord returns an empty record for the pixel at (x, y)
func NewRecord(x, y int) *Record {
	return &Record{X: x, Y: y, Values: make(map[string]float64)}
}

// NoDataRecord returns the record emitted for a pixel that failed
func NoDataRecord(x, y int, err error) *Record {
	r := &Record{X: x, Y: y, NoData: true}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Set stores v under key unless it is NaN or infinite
func (r *Record) Set(key string, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if r.Values == nil {
		r.Values = make(map[string]float64)
	}
	r.Values[key] = v
}

// Label stores a categorical value; empty values are skipped
func (r *Record) Label(key, v string) {
	if v == "" {
		return
	}
	if r.Labels == nil {
		r.Labels = make(map[string]string)
	}
	r.Labels[key] = v
}

// Get returns the value stored under key
func (r *Record) Get(key string) (float64, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// Keys returns the value keys in lexical order
func (r *Record) Keys() []string {
	keys := make([]string, 0, len(r.Values))
	for k := range r.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
