// Package pixel runs the per-pixel analysis: harmonic fit and seasonality,
// segmented prediction with optional feathering, and loss/gain event
// selection, flattening every product into one output record.
package pixel

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/chrissnell/pixeltrend/pkg/config"
	"github.com/chrissnell/pixeltrend/pkg/harmonic"
	"github.com/chrissnell/pixeltrend/pkg/recordformat"
	"github.com/chrissnell/pixeltrend/pkg/segmented"
	"github.com/chrissnell/pixeltrend/pkg/timeseries"
	"github.com/chrissnell/pixeltrend/pkg/trajectory"
)

// Processor applies one resolved configuration to pixels. It holds no
// mutable state and is safe for concurrent use.
type Processor struct {
	settings *Settings
	logger   *zap.SugaredLogger
}

// NewProcessor resolves cfg once. Configuration errors are returned here,
// before any pixel is processed.
func NewProcessor(cfg *config.ConfigData, logger *zap.SugaredLogger) (*Processor, error) {
	settings, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Processor{settings: settings, logger: logger}, nil
}

// Settings returns the resolved configuration
func (p *Processor) Settings() *Settings {
	return p.settings
}

// Process computes every configured product for px. Products that cannot
// be computed are left out of the record and their errors are joined into
// the returned error, which IsLocal classifies. The record is returned
// together with a local error; NoData is set when it holds no product.
func (p *Processor) Process(ctx context.Context, px Pixel) (*recordformat.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rec := recordformat.NewRecord(px.X, px.Y)
	var errs []error

	if len(px.Series) > 0 {
		errs = append(errs, p.harmonics(rec, px.Series)...)
	}

	for _, bs := range p.settings.Bands {
		if runs, ok := px.Segments[bs.Band]; ok && len(runs) > 0 {
			if err := p.predictions(rec, bs, runs); err != nil {
				errs = append(errs, fmt.Errorf("band %s: %w", bs.Band, err))
			}
		}
		if err := p.changes(rec, bs, px); err != nil {
			errs = append(errs, fmt.Errorf("band %s: %w", bs.Band, err))
		}
	}

	rec.NoData = len(rec.Values) == 0 && len(rec.Labels) == 0
	err := errors.Join(errs...)
	if err != nil {
		rec.Error = err.Error()
		p.logger.Debugw("pixel products missing", "x", px.X, "y", px.Y, "error", err)
	}
	return rec, err
}

func (p *Processor) harmonics(rec *recordformat.Record, series timeseries.Series) []error {
	var derive []timeseries.Band
	for _, bs := range p.settings.Bands {
		if timeseries.Derivable(bs.Band) {
			derive = append(derive, bs.Band)
		}
	}
	if len(derive) > 0 {
		series = series.WithIndices(derive...)
	}

	var errs []error
	for _, group := range p.settings.frequencyGroups() {
		bands := make([]timeseries.Band, len(group))
		for i, bs := range group {
			bands[i] = bs.Band
		}

		res, err := harmonic.Fit(series, bands, harmonic.Options{
			Frequencies: group[0].Frequencies,
			Detrend:     p.settings.Detrend,
		})
		if err != nil {
			errs = append(errs, err)
		}
		if res == nil {
			continue
		}

		for _, b := range bands {
			m, ok := res.Models[b]
			if !ok {
				continue
			}
			names, values := m.Names(), m.Values()
			for i := range names {
				rec.Set(Key(b, names[i]), values[i])
			}
			stats := res.Stats[b]
			rec.Set(Key(b, "rmse"), stats.RMSE)
			rec.Set(Key(b, "r2"), stats.RSquared)
			rec.Set(Key(b, "samples"), float64(stats.Samples))

			if !p.settings.Seasonality {
				continue
			}
			s, err := harmonic.DeriveSeasonality(m)
			if err != nil {
				errs = append(errs, fmt.Errorf("band %s: %w", b, err))
				continue
			}
			rec.Set(Key(b, "amplitude"), s.Amplitude)
			rec.Set(Key(b, "phase"), s.Phase)
			rec.Set(Key(b, "peak_day"), float64(s.PeakDay))
			rec.Set(Key(b, "auc"), s.AUC)
		}
	}
	return errs
}

func (p *Processor) predictions(rec *recordformat.Record, bs BandSettings, runs []SegmentRun) error {
	sets := make([]segmented.SegmentSet, len(runs))
	for i, run := range runs {
		set, err := p.segmentSet(bs.Band, run)
		if err != nil {
			return err
		}
		sets[i] = set
	}

	if p.settings.Feather != nil && len(sets) == 2 {
		w := *p.settings.Feather
		if err := w.ValidateCoverage(sets[0], sets[1]); err != nil {
			return fmt.Errorf("%w: %v", ErrFeatherCoverage, err)
		}
		for _, q := range p.settings.QueryDates {
			v, ok, err := segmented.PredictFeathered(sets[0], sets[1], q.Time, w, p.settings.FillGaps)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrFeatherCoverage, err)
			}
			if ok {
				rec.Set(PredictionKey(bs.Band, q.Label), v)
			}
		}
		return nil
	}

	for _, q := range p.settings.QueryDates {
		if v, ok := segmented.Predict(sets[0], q.Time, p.settings.FillGaps); ok {
			rec.Set(PredictionKey(bs.Band, q.Label), v)
		}
	}
	return nil
}

// segmentSet builds harmonic models from a run's coefficient rows
func (p *Processor) segmentSet(band timeseries.Band, run SegmentRun) (segmented.SegmentSet, error) {
	freqs := p.settings.SegmentFrequencies
	want := 2 + 2*len(freqs)

	segs := make([]segmented.Segment, 0, len(run.Segments))
	for i, spec := range run.Segments {
		c := spec.Coefficients
		if len(c) != want {
			return segmented.SegmentSet{}, fmt.Errorf("%w: run %q segment %d has %d coefficients, want %d",
				segmented.ErrInvalidSegment, run.ID, i, len(c), want)
		}
		coef := harmonic.Coefficients{
			Intercept: c[0],
			Slope:     c[1],
			Cos:       make([]float64, len(freqs)),
			Sin:       make([]float64, len(freqs)),
		}
		for k := range freqs {
			coef.Cos[k] = c[2+2*k]
			coef.Sin[k] = c[3+2*k]
		}

		origin := math.Floor(spec.Start)
		if spec.Origin != nil {
			origin = *spec.Origin
		}
		m, err := harmonic.NewModel(band, freqs, p.settings.SegmentDetrend, origin, coef)
		if err == nil {
			m, err = m.WithValidity(spec.Start, spec.End)
		}
		if err != nil {
			return segmented.SegmentSet{}, fmt.Errorf("%w: run %q segment %d: %v", segmented.ErrInvalidSegment, run.ID, i, err)
		}
		seg, err := segmented.NewSegment(m, spec.Break)
		if err != nil {
			return segmented.SegmentSet{}, err
		}
		segs = append(segs, seg)
	}
	return segmented.NewSegmentSet(run.ID, segs...)
}

func (p *Processor) changes(rec *recordformat.Record, bs BandSettings, px Pixel) error {
	var traj trajectory.Trajectory
	if vertices, ok := px.Vertices[bs.Band]; ok {
		supplied, err := trajectory.NewTrajectory(vertices)
		if err != nil {
			return err
		}
		traj = supplied
	} else {
		annual, has := px.Annual[bs.Band]
		if !has || p.settings.Vertices == nil {
			return nil
		}
		fitted, err := trajectory.FitVertices(annual.Years, annual.Values, *p.settings.Vertices)
		if err != nil {
			return err
		}
		traj = fitted
	}

	events, err := trajectory.ExtractEvents(traj, bs.Improvement)
	if err != nil {
		return err
	}
	ranked := p.settings.Policy.Apply(events)

	sides := []struct {
		kind   trajectory.Kind
		events []trajectory.ChangeEvent
	}{
		{trajectory.Loss, ranked.Loss},
		{trajectory.Gain, ranked.Gain},
	}
	for _, side := range sides {
		rec.Set(Key(bs.Band, string(side.kind)+"_count"), float64(len(side.events)))
		if len(side.events) == 0 {
			continue
		}
		top, err := trajectory.SelectTopK(side.events, p.settings.Rule, p.settings.TopK)
		if err != nil {
			return err
		}
		writeEvents(rec, bs.Band, side.kind, top)
	}
	return nil
}

func writeEvents(rec *recordformat.Record, b timeseries.Band, kind trajectory.Kind, events []trajectory.ChangeEvent) {
	for i, e := range events {
		prefix := fmt.Sprintf("%s%d", kind, i+1)
		rec.Set(Key(b, prefix+"_start"), float64(e.StartYear))
		rec.Set(Key(b, prefix+"_end"), float64(e.EndYear))
		rec.Set(Key(b, prefix+"_dur"), float64(e.Duration))
		rec.Set(Key(b, prefix+"_mag"), e.Magnitude)
		rec.Set(Key(b, prefix+"_slope"), e.Slope)
		rec.Set(Key(b, prefix+"_pre"), e.PreValue)
		rec.Set(Key(b, prefix+"_post"), e.PostValue)
		rec.Label(Key(b, prefix+"_speed"), string(e.Speed))
	}
}

// Key names a band product in output records
func Key(b timeseries.Band, product string) string {
	return string(b) + "_" + product
}

// PredictionKey names the prediction of band b at a query date
func PredictionKey(b timeseries.Band, date string) string {
	return Key(b, "pred_"+date)
}
