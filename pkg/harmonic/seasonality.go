package harmonic

import "math"

// SeasonalFrequency is the frequency the seasonality metrics are derived from
const SeasonalFrequency = 2

// aucSteps is the number of daily trapezoids used to integrate one year
const aucSteps = 365

// Seasonality summarizes the SeasonalFrequency component of a model
type Seasonality struct {
	// Amplitude is sqrt(cos² + sin²) of the seasonal term
	Amplitude float64
	// Phase is atan2(sin, cos) / 2π, normalized to [0, 1)
	Phase float64
	// PeakDay is the first day of year, in [1, 365], at which the seasonal
	// term reaches its maximum
	PeakDay int
	// AUC integrates the non-negative part of the full fitted curve over one
	// year, in value·years
	AUC float64
}

// CheckSeasonality returns an UnsupportedFrequencyError unless freqs
// contains SeasonalFrequency. Callers run it once when configuring a batch.
func CheckSeasonality(freqs []int) error {
	for _, k := range freqs {
		if k == SeasonalFrequency {
			return nil
		}
	}
	return &UnsupportedFrequencyError{Frequency: SeasonalFrequency, Frequencies: append([]int(nil), freqs...)}
}

// DeriveSeasonality computes phase, amplitude, peak day and area under the
// curve from the model's seasonal term
func DeriveSeasonality(m Model) (Seasonality, error) {
	c, s, ok := m.Term(SeasonalFrequency)
	if !ok {
		return Seasonality{}, &UnsupportedFrequencyError{Frequency: SeasonalFrequency, Frequencies: m.Frequencies()}
	}

	phase := math.Atan2(s, c) / (2 * math.Pi)
	if phase < 0 {
		phase++
	}
	if phase >= 1 {
		phase = 0
	}

	// c·cos(2πkt) + s·sin(2πkt) = A·cos(2πkt - 2π·phase) peaks at t = phase/k,
	// the first of k peaks in each year
	peakFrac := phase / SeasonalFrequency
	peakDay := int(math.Floor(peakFrac*365)) + 1
	if peakDay > 365 {
		peakDay = 365
	}

	return Seasonality{
		Amplitude: math.Hypot(c, s),
		Phase:     phase,
		PeakDay:   peakDay,
		AUC:       areaUnderCurve(m, referenceYear(m)),
	}, nil
}

// referenceYear is the first whole year of the model's validity, or its
// fit origin when no validity interval is set
func referenceYear(m Model) float64 {
	if iv, ok := m.Validity(); ok {
		return math.Floor(iv.Start)
	}
	return m.origin
}

func areaUnderCurve(m Model, year float64) float64 {
	h := 1.0 / aucSteps
	prev := math.Max(m.Predict(year), 0)
	var area float64
	for i := 1; i <= aucSteps; i++ {
		cur := math.Max(m.Predict(year+float64(i)*h), 0)
		area += (prev + cur) * h / 2
		prev = cur
	}
	return area
}
