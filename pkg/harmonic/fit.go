package harmonic

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

// Options configures a harmonic fit
type Options struct {
	// Frequencies in cycles per year, strictly increasing
	Frequencies []int
	// Detrend adds a linear time term to the model
	Detrend bool
}

// Validate checks the options once, before any pixel is fit
func (o Options) Validate() error {
	return ValidateFrequencies(o.Frequencies)
}

// FitStats describes how well a band's model matches its samples
type FitStats struct {
	Samples  int
	RMSE     float64
	RSquared float64
}

// FitResult holds the models fit for each requested band. Fitted holds the
// model evaluated at every observation time of the series, including
// observations where the band itself was missing.
type FitResult struct {
	Models map[timeseries.Band]Model
	Fitted map[timeseries.Band][]float64
	Stats  map[timeseries.Band]FitStats
}

// Fit fits one model per band by ordinary least squares. Bands whose usable
// samples fall on the same observations share one QR factorization.
//
// Bands that cannot be fit are left out of the result and their errors are
// joined into the returned error, so a caller may use the successful bands
// and still inspect each failure with errors.Is / errors.As.
func Fit(series timeseries.Series, bands []timeseries.Band, opts Options) (*FitResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &FitResult{
		Models: make(map[timeseries.Band]Model, len(bands)),
		Fitted: make(map[timeseries.Band][]float64, len(bands)),
		Stats:  make(map[timeseries.Band]FitStats, len(bands)),
	}

	first, _, ok := series.Span()
	if !ok {
		var errs []error
		for _, b := range bands {
			errs = append(errs, &InsufficientDataError{Band: b, Need: RequiredSamples(len(opts.Frequencies), opts.Detrend)})
		}
		return result, errors.Join(errs...)
	}
	origin := math.Floor(first)

	groups, order := groupByMask(series, bands)

	var errs []error
	for _, key := range order {
		g := groups[key]
		models, stats, err := fitGroup(g, opts, origin)
		if err != nil {
			errs = append(errs, err...)
		}
		for b, m := range models {
			result.Models[b] = m
			result.Stats[b] = stats[b]
			fitted := make([]float64, len(series))
			for i, o := range series {
				fitted[i] = m.Predict(o.Time)
			}
			result.Fitted[b] = fitted
		}
	}

	return result, errors.Join(errs...)
}

// FitBand fits a single band and returns its model and statistics
func FitBand(series timeseries.Series, band timeseries.Band, opts Options) (Model, FitStats, error) {
	res, err := Fit(series, []timeseries.Band{band}, opts)
	if err != nil {
		return Model{}, FitStats{}, err
	}
	return res.Models[band], res.Stats[band], nil
}

// maskGroup is a set of bands present on exactly the same observations
type maskGroup struct {
	bands  []timeseries.Band
	times  []float64
	values [][]float64 // values[j] holds the samples of bands[j]
}

func groupByMask(series timeseries.Series, bands []timeseries.Band) (map[string]*maskGroup, []string) {
	groups := make(map[string]*maskGroup)
	var order []string

	for _, b := range bands {
		idx, times, values := series.Valid(b)
		key := maskKey(idx)
		g, ok := groups[key]
		if !ok {
			g = &maskGroup{times: times}
			groups[key] = g
			order = append(order, key)
		}
		g.bands = append(g.bands, b)
		g.values = append(g.values, values)
	}
	return groups, order
}

func maskKey(idx []int) string {
	var sb strings.Builder
	for i, v := range idx {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

// designMatrix builds the n×p regression matrix for the given sample times
func designMatrix(times []float64, opts Options, origin float64) *mat.Dense {
	p := Unknowns(len(opts.Frequencies), opts.Detrend)
	x := mat.NewDense(len(times), p, nil)
	for i, t := range times {
		dt := t - origin
		col := 0
		x.Set(i, col, 1)
		col++
		if opts.Detrend {
			x.Set(i, col, dt)
			col++
		}
		for _, k := range opts.Frequencies {
			w := 2 * math.Pi * float64(k) * dt
			x.Set(i, col, math.Cos(w))
			x.Set(i, col+1, math.Sin(w))
			col += 2
		}
	}
	return x
}

func fitGroup(g *maskGroup, opts Options, origin float64) (map[timeseries.Band]Model, map[timeseries.Band]FitStats, []error) {
	n := len(g.times)
	need := RequiredSamples(len(opts.Frequencies), opts.Detrend)
	p := Unknowns(len(opts.Frequencies), opts.Detrend)

	if n < need {
		errs := make([]error, len(g.bands))
		for j, b := range g.bands {
			errs[j] = &InsufficientDataError{Band: b, Have: n, Need: need}
		}
		return nil, nil, errs
	}

	singular := func(cond float64) []error {
		errs := make([]error, len(g.bands))
		for j, b := range g.bands {
			errs[j] = &SingularFitError{Band: b, Condition: cond}
		}
		return errs
	}

	// Fewer distinct timestamps than unknowns can never give full column rank
	if distinct(g.times) < p {
		return nil, nil, singular(math.Inf(1))
	}

	x := designMatrix(g.times, opts, origin)
	y := mat.NewDense(n, len(g.bands), nil)
	for j := range g.bands {
		y.SetCol(j, g.values[j])
	}

	var qr mat.QR
	qr.Factorize(x)

	var beta mat.Dense
	if err := qr.SolveTo(&beta, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, nil, singular(float64(cond))
		}
		errs := make([]error, len(g.bands))
		for j, b := range g.bands {
			errs[j] = fmt.Errorf("band %s: least squares solve failed: %w", b, err)
		}
		return nil, nil, errs
	}

	models := make(map[timeseries.Band]Model, len(g.bands))
	stats := make(map[timeseries.Band]FitStats, len(g.bands))
	var errs []error

	for j, b := range g.bands {
		coef := unpack(mat.Col(nil, j, &beta), opts)
		if !finite(coef) {
			errs = append(errs, &SingularFitError{Band: b, Condition: math.Inf(1)})
			continue
		}
		m := Model{
			band:    b,
			freqs:   append([]int(nil), opts.Frequencies...),
			detrend: opts.Detrend,
			origin:  origin,
			coef:    coef,
		}
		models[b] = m
		stats[b] = computeStats(m, g.times, g.values[j])
	}
	return models, stats, errs
}

func unpack(beta []float64, opts Options) Coefficients {
	c := Coefficients{
		Cos: make([]float64, len(opts.Frequencies)),
		Sin: make([]float64, len(opts.Frequencies)),
	}
	col := 0
	c.Intercept = beta[col]
	col++
	if opts.Detrend {
		c.Slope = beta[col]
		col++
	}
	for i := range opts.Frequencies {
		c.Cos[i] = beta[col]
		c.Sin[i] = beta[col+1]
		col += 2
	}
	return c
}

func computeStats(m Model, times, values []float64) FitStats {
	n := len(values)
	meanY := stat.Mean(values, nil)

	var ssRes, ssTot float64
	for i, t := range times {
		r := values[i] - m.Predict(t)
		ssRes += r * r
		d := values[i] - meanY
		ssTot += d * d
	}

	rSquared := 1.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}
	return FitStats{
		Samples:  n,
		RMSE:     math.Sqrt(ssRes / float64(n)),
		RSquared: rSquared,
	}
}

func distinct(times []float64) int {
	seen := make(map[float64]struct{}, len(times))
	for _, t := range times {
		seen[t] = struct{}{}
	}
	return len(seen)
}

func finite(c Coefficients) bool {
	check := func(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
	if !check(c.Intercept) || !check(c.Slope) {
		return false
	}
	for i := range c.Cos {
		if !check(c.Cos[i]) || !check(c.Sin[i]) {
			return false
		}
	}
	return true
}
