package timeseries

// indexInputs lists the reflectance pair (a, b) of each normalized
// difference index, computed as (a - b) / (a + b)
var indexInputs = map[Band][2]Band{
	NDVI: {NIR, Red},
	NBR:  {NIR, SWIR2},
	NDMI: {NIR, SWIR1},
}

// NormalizedDifference returns (a - b) / (a + b). A zero denominator yields
// ok == false instead of a division by zero.
func NormalizedDifference(a, b float64) (float64, bool) {
	den := a + b
	if den == 0 {
		return 0, false
	}
	return (a - b) / den, true
}

// Derivable reports whether idx can be computed from reflectance bands
func Derivable(idx Band) bool {
	_, ok := indexInputs[idx]
	return ok
}

// WithIndices returns a copy of s where each requested normalized difference
// index is filled in from its reflectance inputs on observations that lack
// it. Observations already carrying the index keep their value.
func (s Series) WithIndices(indices ...Band) Series {
	out := make(Series, len(s))
	for i, o := range s {
		bands := make(map[Band]float64, len(o.Bands)+len(indices))
		for b, v := range o.Bands {
			bands[b] = v
		}
		for _, idx := range indices {
			if _, ok := o.Value(idx); ok {
				continue
			}
			pair, ok := indexInputs[idx]
			if !ok {
				continue
			}
			a, okA := o.Value(pair[0])
			b, okB := o.Value(pair[1])
			if !okA || !okB {
				continue
			}
			if v, ok := NormalizedDifference(a, b); ok {
				bands[idx] = v
			}
		}
		out[i] = Observation{Time: o.Time, Bands: bands}
	}
	return out
}
