// Package harmonic fits multi-frequency seasonal models to per-pixel band
// time series and evaluates them.
//
// The fitted expression, with t in fractional years and t0 the integral fit
// origin, is
//
//	value(t) = intercept + slope·(t - t0) + Σk cos_k·cos(2πk(t - t0)) + sin_k·sin(2πk(t - t0))
//
// Because t0 is a whole year the harmonic terms are identical to the ones
// evaluated on absolute time; subtracting it only keeps the arguments small.
package harmonic

import (
	"fmt"
	"math"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

// Coefficients are the fitted terms of a model. Cos and Sin are aligned
// with the model's frequencies. Slope is zero for models fit without detrend.
type Coefficients struct {
	Intercept float64
	Slope     float64
	Cos       []float64
	Sin       []float64
}

// Interval is a half-open [Start, End) validity range in fractional years
type Interval struct {
	Start float64
	End   float64
}

// Contains reports whether t lies in [Start, End)
func (iv Interval) Contains(t float64) bool {
	return t >= iv.Start && t < iv.End
}

// Model is a fitted harmonic model for one band. Models are values and are
// never modified after construction; accessors return copies.
type Model struct {
	band     timeseries.Band
	freqs    []int
	detrend  bool
	origin   float64
	coef     Coefficients
	validity *Interval
}

// NewModel assembles a model from known coefficients. origin is truncated
// to a whole year.
func NewModel(band timeseries.Band, freqs []int, detrend bool, origin float64, coef Coefficients) (Model, error) {
	if err := ValidateFrequencies(freqs); err != nil {
		return Model{}, err
	}
	if len(coef.Cos) != len(freqs) || len(coef.Sin) != len(freqs) {
		return Model{}, fmt.Errorf("band %s: %d frequencies but %d cos and %d sin terms",
			band, len(freqs), len(coef.Cos), len(coef.Sin))
	}
	if !detrend && coef.Slope != 0 {
		return Model{}, fmt.Errorf("band %s: slope %.4g given for a model without detrend", band, coef.Slope)
	}
	return Model{
		band:    band,
		freqs:   append([]int(nil), freqs...),
		detrend: detrend,
		origin:  math.Floor(origin),
		coef: Coefficients{
			Intercept: coef.Intercept,
			Slope:     coef.Slope,
			Cos:       append([]float64(nil), coef.Cos...),
			Sin:       append([]float64(nil), coef.Sin...),
		},
	}, nil
}

// WithValidity returns a copy of m restricted to [start, end)
func (m Model) WithValidity(start, end float64) (Model, error) {
	if !(start < end) {
		return Model{}, fmt.Errorf("band %s: validity start %.4f is not before end %.4f", m.band, start, end)
	}
	m.validity = &Interval{Start: start, End: end}
	return m, nil
}

func (m Model) Band() timeseries.Band { return m.band }
func (m Model) Detrended() bool       { return m.detrend }
func (m Model) Origin() float64       { return m.origin }

// Frequencies returns the model's frequencies in cycles per year
func (m Model) Frequencies() []int {
	return append([]int(nil), m.freqs...)
}

// Validity returns the model's validity interval, if one was set
func (m Model) Validity() (Interval, bool) {
	if m.validity == nil {
		return Interval{}, false
	}
	return *m.validity, true
}

// Coefficients returns a copy of the fitted terms
func (m Model) Coefficients() Coefficients {
	return Coefficients{
		Intercept: m.coef.Intercept,
		Slope:     m.coef.Slope,
		Cos:       append([]float64(nil), m.coef.Cos...),
		Sin:       append([]float64(nil), m.coef.Sin...),
	}
}

// Term returns the cosine and sine coefficients for frequency k
func (m Model) Term(k int) (cos, sin float64, ok bool) {
	for i, f := range m.freqs {
		if f == k {
			return m.coef.Cos[i], m.coef.Sin[i], true
		}
	}
	return 0, 0, false
}

// Values flattens the coefficients as intercept, slope, cos_k1, sin_k1, ...
// The slope slot is always present, so the length is 2 + 2·len(frequencies).
func (m Model) Values() []float64 {
	vals := make([]float64, 0, 2+2*len(m.freqs))
	vals = append(vals, m.coef.Intercept, m.coef.Slope)
	for i := range m.freqs {
		vals = append(vals, m.coef.Cos[i], m.coef.Sin[i])
	}
	return vals
}

// Names returns the coefficient names aligned with Values
func (m Model) Names() []string {
	names := make([]string, 0, 2+2*len(m.freqs))
	names = append(names, "intercept", "slope")
	for _, k := range m.freqs {
		names = append(names, fmt.Sprintf("cos%d", k), fmt.Sprintf("sin%d", k))
	}
	return names
}

// Predict evaluates the model at fractional year t. Dates outside the
// validity interval are extrapolated.
func (m Model) Predict(t float64) float64 {
	dt := t - m.origin
	v := m.coef.Intercept
	if m.detrend {
		v += m.coef.Slope * dt
	}
	for i, k := range m.freqs {
		w := 2 * math.Pi * float64(k) * dt
		v += m.coef.Cos[i]*math.Cos(w) + m.coef.Sin[i]*math.Sin(w)
	}
	return v
}

// ValidateFrequencies checks that freqs is a non-empty, strictly increasing
// set of positive integers
func ValidateFrequencies(freqs []int) error {
	if len(freqs) == 0 {
		return fmt.Errorf("%w: no frequencies", ErrInvalidFrequencies)
	}
	for i, k := range freqs {
		if k <= 0 {
			return fmt.Errorf("%w: frequency %d is not positive", ErrInvalidFrequencies, k)
		}
		if i > 0 && k <= freqs[i-1] {
			return fmt.Errorf("%w: %v is not strictly increasing", ErrInvalidFrequencies, freqs)
		}
	}
	return nil
}

// Unknowns returns the number of free parameters of a fit
func Unknowns(nFreqs int, detrend bool) int {
	n := 1 + 2*nFreqs
	if detrend {
		n++
	}
	return n
}

// RequiredSamples returns the minimum number of usable samples for a fit:
// 2 + 2·nFreqs, plus one more when detrending. That is one more than the
// number of free parameters, leaving a residual degree of freedom.
func RequiredSamples(nFreqs int, detrend bool) int {
	return Unknowns(nFreqs, detrend) + 1
}
