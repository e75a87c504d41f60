package harmonic

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

func mustModel(t *testing.T, band timeseries.Band, freqs []int, detrend bool, origin float64, coef Coefficients) Model {
	t.Helper()
	m, err := NewModel(band, freqs, detrend, origin, coef)
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	return m
}

// synthesize samples generating models at irregular times over three years
func synthesize(models ...Model) timeseries.Series {
	var s timeseries.Series
	for i := 0; i < 80; i++ {
		tm := 2000 + float64(i)*0.037 + 0.004*math.Sin(float64(i))
		bands := make(map[timeseries.Band]float64, len(models))
		for _, m := range models {
			bands[m.Band()] = m.Predict(tm)
		}
		s = append(s, timeseries.Observation{Time: tm, Bands: bands})
	}
	return s
}

func TestFitRecoversCoefficients(t *testing.T) {
	tests := []struct {
		name    string
		freqs   []int
		detrend bool
		coef    Coefficients
	}{
		{
			name:  "single frequency",
			freqs: []int{1},
			coef:  Coefficients{Intercept: 0.45, Cos: []float64{-0.12}, Sin: []float64{0.08}},
		},
		{
			name:    "three frequencies with trend",
			freqs:   []int{1, 2, 3},
			detrend: true,
			coef: Coefficients{
				Intercept: 0.3,
				Slope:     0.02,
				Cos:       []float64{0.1, -0.05, 0.01},
				Sin:       []float64{0.2, 0.03, -0.02},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := mustModel(t, timeseries.NDVI, tt.freqs, tt.detrend, 2000, tt.coef)
			series := synthesize(want)

			res, err := Fit(series, []timeseries.Band{timeseries.NDVI}, Options{Frequencies: tt.freqs, Detrend: tt.detrend})
			if err != nil {
				t.Fatalf("Fit: %v", err)
			}

			got := res.Models[timeseries.NDVI]
			if got.Origin() != 2000 {
				t.Errorf("origin = %v, expected 2000", got.Origin())
			}
			wantVals, gotVals := want.Values(), got.Values()
			if len(gotVals) != 2+2*len(tt.freqs) {
				t.Fatalf("expected %d coefficients, got %d", 2+2*len(tt.freqs), len(gotVals))
			}
			for i := range wantVals {
				if math.Abs(wantVals[i]-gotVals[i]) > 1e-9 {
					t.Errorf("%s = %.12f, expected %.12f", got.Names()[i], gotVals[i], wantVals[i])
				}
			}

			fitted := res.Fitted[timeseries.NDVI]
			for i, o := range series {
				if math.Abs(fitted[i]-o.Bands[timeseries.NDVI]) > 1e-9 {
					t.Errorf("fitted[%d] = %.12f, expected %.12f", i, fitted[i], o.Bands[timeseries.NDVI])
				}
			}

			stats := res.Stats[timeseries.NDVI]
			if stats.Samples != len(series) || stats.RMSE > 1e-9 || math.Abs(stats.RSquared-1) > 1e-9 {
				t.Errorf("unexpected stats %+v", stats)
			}
		})
	}
}

func TestFitIsDeterministic(t *testing.T) {
	m := mustModel(t, timeseries.NBR, []int{1, 2}, true, 2000, Coefficients{
		Intercept: 0.5, Slope: -0.01, Cos: []float64{0.1, 0.2}, Sin: []float64{-0.3, 0.05},
	})
	series := synthesize(m)
	opts := Options{Frequencies: []int{1, 2}, Detrend: true}

	a, err := Fit(series, []timeseries.Band{timeseries.NBR}, opts)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	b, err := Fit(series, []timeseries.Band{timeseries.NBR}, opts)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	if !reflect.DeepEqual(a.Models[timeseries.NBR].Values(), b.Models[timeseries.NBR].Values()) {
		t.Error("repeated fits produced different coefficients")
	}
}

func TestFitSharedAndSeparateMasks(t *testing.T) {
	ndvi := mustModel(t, timeseries.NDVI, []int{1}, false, 2000, Coefficients{Intercept: 0.6, Cos: []float64{0.1}, Sin: []float64{0.1}})
	nbr := mustModel(t, timeseries.NBR, []int{1}, false, 2000, Coefficients{Intercept: 0.3, Cos: []float64{-0.2}, Sin: []float64{0}})
	tcw := mustModel(t, timeseries.TCW, []int{1}, false, 2000, Coefficients{Intercept: -0.1, Cos: []float64{0.05}, Sin: []float64{0.02}})
	series := synthesize(ndvi, nbr, tcw)

	// knock out every third tcw sample so it needs its own factorization
	for i := range series {
		if i%3 == 0 {
			delete(series[i].Bands, timeseries.TCW)
		}
	}

	res, err := Fit(series, []timeseries.Band{timeseries.NDVI, timeseries.NBR, timeseries.TCW}, Options{Frequencies: []int{1}})
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}

	for _, want := range []Model{ndvi, nbr, tcw} {
		got, ok := res.Models[want.Band()]
		if !ok {
			t.Fatalf("no model for %s", want.Band())
		}
		for i, v := range want.Values() {
			if math.Abs(v-got.Values()[i]) > 1e-9 {
				t.Errorf("%s %s = %.12f, expected %.12f", want.Band(), got.Names()[i], got.Values()[i], v)
			}
		}
	}
	if res.Stats[timeseries.TCW].Samples >= res.Stats[timeseries.NDVI].Samples {
		t.Errorf("tcw should have fewer samples than ndvi: %+v vs %+v", res.Stats[timeseries.TCW], res.Stats[timeseries.NDVI])
	}
}

func TestFitInsufficientData(t *testing.T) {
	var series timeseries.Series
	for i := 0; i < 6; i++ {
		series = append(series, timeseries.Observation{
			Time:  2000 + float64(i)*0.1,
			Bands: map[timeseries.Band]float64{timeseries.NDVI: 0.5, timeseries.NBR: 0.2},
		})
	}
	for i := 0; i < 20; i++ {
		series = append(series, timeseries.Observation{
			Time:  2001 + float64(i)*0.05,
			Bands: map[timeseries.Band]float64{timeseries.NBR: 0.2 + 0.01*float64(i%4)},
		})
	}

	// two frequencies plus trend: 6 unknowns, 7 samples required
	res, err := Fit(series, []timeseries.Band{timeseries.NDVI, timeseries.NBR}, Options{Frequencies: []int{1, 2}, Detrend: true})
	if !errors.Is(err, ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	var ide *InsufficientDataError
	if !errors.As(err, &ide) {
		t.Fatalf("expected *InsufficientDataError, got %T", err)
	}
	if ide.Band != timeseries.NDVI || ide.Have != 6 || ide.Need != 7 {
		t.Errorf("unexpected error detail %+v", ide)
	}

	if _, ok := res.Models[timeseries.NBR]; !ok {
		t.Error("nbr should still be fit when ndvi fails")
	}
	if _, ok := res.Models[timeseries.NDVI]; ok {
		t.Error("ndvi should not have a model")
	}
}

func TestFitSingular(t *testing.T) {
	var series timeseries.Series
	for i := 0; i < 12; i++ {
		series = append(series, timeseries.Observation{
			Time:  2005.25,
			Bands: map[timeseries.Band]float64{timeseries.NDVI: 0.4 + 0.01*float64(i)},
		})
	}

	_, _, err := FitBand(series, timeseries.NDVI, Options{Frequencies: []int{1}})
	if !errors.Is(err, ErrSingularFit) {
		t.Fatalf("expected ErrSingularFit, got %v", err)
	}
}

func TestFitRejectsBadFrequencies(t *testing.T) {
	for _, freqs := range [][]int{nil, {0}, {2, 1}, {1, 1}} {
		if _, err := Fit(nil, []timeseries.Band{timeseries.NDVI}, Options{Frequencies: freqs}); !errors.Is(err, ErrInvalidFrequencies) {
			t.Errorf("frequencies %v: expected ErrInvalidFrequencies, got %v", freqs, err)
		}
	}
}

func TestPredictDetrended(t *testing.T) {
	m := mustModel(t, timeseries.NDVI, []int{1}, true, 2000.7, Coefficients{
		Intercept: 1, Slope: 0.5, Cos: []float64{0}, Sin: []float64{0},
	})
	if m.Origin() != 2000 {
		t.Fatalf("origin not truncated: %v", m.Origin())
	}
	if !m.Detrended() {
		t.Error("expected a detrended model")
	}
	if got := m.Predict(2004); math.Abs(got-3) > 1e-12 {
		t.Errorf("Predict(2004) = %v, expected 3", got)
	}
	if got := m.Predict(1990); math.Abs(got+4) > 1e-12 {
		t.Errorf("Predict(1990) = %v, expected -4", got)
	}
}

func TestNewModelValidation(t *testing.T) {
	if _, err := NewModel(timeseries.NDVI, []int{1, 2}, false, 2000, Coefficients{Cos: []float64{1}, Sin: []float64{1}}); err == nil {
		t.Error("expected error for mismatched term count")
	}
	if _, err := NewModel(timeseries.NDVI, []int{1}, false, 2000, Coefficients{Slope: 1, Cos: []float64{1}, Sin: []float64{1}}); err == nil {
		t.Error("expected error for slope without detrend")
	}

	m := mustModel(t, timeseries.NDVI, []int{1}, false, 2000, Coefficients{Cos: []float64{1}, Sin: []float64{1}})
	if _, err := m.WithValidity(2005, 2005); err == nil {
		t.Error("expected error for empty validity")
	}
	v, err := m.WithValidity(2001, 2005)
	if err != nil {
		t.Fatalf("WithValidity: %v", err)
	}
	if _, ok := m.Validity(); ok {
		t.Error("WithValidity modified the receiver")
	}
	if iv, ok := v.Validity(); !ok || !iv.Contains(2001) || iv.Contains(2005) {
		t.Errorf("unexpected validity %+v", iv)
	}
}

func TestDeriveSeasonality(t *testing.T) {
	tests := []struct {
		name      string
		cos, sin  float64
		amplitude float64
		phase     float64
		peakDay   int
	}{
		{"cosine only", 0.3, 0, 0.3, 0, 1},
		{"sine only", 0, 0.2, 0.2, 0.25, 46},
		{"negative cosine", -0.5, 0, 0.5, 0.5, 92},
		{"third quadrant", -0.3, -0.4, 0.5, 0.5 + math.Atan2(0.4, 0.3)/(2*math.Pi), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustModel(t, timeseries.NDVI, []int{1, 2}, false, 2000, Coefficients{
				Intercept: 0.5, Cos: []float64{0.1, tt.cos}, Sin: []float64{0.05, tt.sin},
			})
			s, err := DeriveSeasonality(m)
			if err != nil {
				t.Fatalf("DeriveSeasonality: %v", err)
			}
			if math.Abs(s.Amplitude-tt.amplitude) > 1e-12 {
				t.Errorf("amplitude = %v, expected %v", s.Amplitude, tt.amplitude)
			}
			if math.Abs(s.Phase-tt.phase) > 1e-12 {
				t.Errorf("phase = %v, expected %v", s.Phase, tt.phase)
			}
			if s.Phase < 0 || s.Phase >= 1 {
				t.Errorf("phase %v outside [0,1)", s.Phase)
			}
			if tt.peakDay != 0 && s.PeakDay != tt.peakDay {
				t.Errorf("peak day = %d, expected %d", s.PeakDay, tt.peakDay)
			}
			if s.PeakDay < 1 || s.PeakDay > 365 {
				t.Errorf("peak day %d outside [1,365]", s.PeakDay)
			}
		})
	}
}

func TestAreaUnderCurve(t *testing.T) {
	tests := []struct {
		name      string
		intercept float64
		expected  float64
	}{
		{"positive constant", 2, 2},
		{"negative constant", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := mustModel(t, timeseries.NDVI, []int{2}, false, 2000, Coefficients{
				Intercept: tt.intercept, Cos: []float64{0}, Sin: []float64{0},
			})
			s, err := DeriveSeasonality(m)
			if err != nil {
				t.Fatalf("DeriveSeasonality: %v", err)
			}
			if math.Abs(s.AUC-tt.expected) > 1e-9 {
				t.Errorf("AUC = %v, expected %v", s.AUC, tt.expected)
			}
		})
	}

	// a zero-mean sinusoid only contributes its positive half
	m := mustModel(t, timeseries.NDVI, []int{2}, false, 2000, Coefficients{Cos: []float64{1}, Sin: []float64{0}})
	s, err := DeriveSeasonality(m)
	if err != nil {
		t.Fatalf("DeriveSeasonality: %v", err)
	}
	if math.Abs(s.AUC-1/math.Pi) > 5e-4 {
		t.Errorf("AUC = %v, expected %v", s.AUC, 1/math.Pi)
	}
}

func TestDeriveSeasonalityUnsupported(t *testing.T) {
	m := mustModel(t, timeseries.NDVI, []int{1, 3}, false, 2000, Coefficients{Cos: []float64{1, 1}, Sin: []float64{1, 1}})
	if _, err := DeriveSeasonality(m); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Errorf("expected ErrUnsupportedFrequency, got %v", err)
	}
	if err := CheckSeasonality([]int{1, 3}); !errors.Is(err, ErrUnsupportedFrequency) {
		t.Errorf("expected ErrUnsupportedFrequency from CheckSeasonality, got %v", err)
	}
	if err := CheckSeasonality([]int{1, 2}); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
