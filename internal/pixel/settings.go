package pixel

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chrissnell/pixeltrend/pkg/config"
	"github.com/chrissnell/pixeltrend/pkg/harmonic"
	"github.com/chrissnell/pixeltrend/pkg/segmented"
	"github.com/chrissnell/pixeltrend/pkg/timeseries"
	"github.com/chrissnell/pixeltrend/pkg/trajectory"
)

// BandSettings is the resolved configuration of one band
type BandSettings struct {
	Band        timeseries.Band
	Improvement timeseries.Direction
	Frequencies []int
}

// QueryDate is a prediction date and the label used in record keys
type QueryDate struct {
	Label string
	Time  float64
}

// Settings is the immutable, validated configuration shared by every pixel
// of a batch
type Settings struct {
	Bands []BandSettings

	Detrend     bool
	Seasonality bool

	SegmentFrequencies []int
	SegmentDetrend     bool
	FillGaps           bool
	Feather            *segmented.FeatherWindow
	QueryDates         []QueryDate

	Policy   trajectory.Policy
	Rule     trajectory.Rule
	TopK     int
	Vertices *trajectory.FitOptions
}

// Resolve validates cfg and turns it into Settings. Band directions left
// unset take the registry default. It fails with a
// harmonic.UnsupportedFrequencyError when seasonality is requested for a
// band fit without frequency 2, and with a segmented.InvalidFeatherWindowError
// for an inverted feather window.
func Resolve(cfg *config.ConfigData) (*Settings, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Settings{
		Detrend:            cfg.Harmonic.Detrend,
		Seasonality:        cfg.Harmonic.Seasonality,
		SegmentFrequencies: cfg.Harmonic.Frequencies,
		SegmentDetrend:     cfg.Segments.Detrend,
		FillGaps:           cfg.Segments.FillGaps,
		TopK:               cfg.Change.HowManyToPull,
		Policy: trajectory.Policy{
			Loss: cfg.Change.Thresholds(cfg.Change.Loss),
			Gain: cfg.Change.Thresholds(cfg.Change.Gain),
		},
	}
	if len(cfg.Segments.Frequencies) > 0 {
		s.SegmentFrequencies = cfg.Segments.Frequencies
	}
	s.SegmentFrequencies = append([]int(nil), s.SegmentFrequencies...)

	rule, err := trajectory.ParseRule(cfg.Change.Rule)
	if err != nil {
		return nil, err
	}
	s.Rule = rule

	for _, b := range cfg.Bands {
		band, err := timeseries.ParseBand(b.Name)
		if err != nil {
			return nil, err
		}
		info, _ := timeseries.Lookup(band)
		bs := BandSettings{
			Band:        band,
			Improvement: info.Improvement,
			Frequencies: append([]int(nil), cfg.Harmonic.Frequencies...),
		}
		if b.Improvement != 0 {
			bs.Improvement = timeseries.Direction(b.Improvement)
		}
		if len(b.Frequencies) > 0 {
			bs.Frequencies = append([]int(nil), b.Frequencies...)
		}
		if s.Seasonality {
			if err := harmonic.CheckSeasonality(bs.Frequencies); err != nil {
				return nil, fmt.Errorf("band %s: %w", band, err)
			}
		}
		s.Bands = append(s.Bands, bs)
	}

	if cfg.Segments.Feathered() {
		start, err := fractionalDate(cfg.Segments.FeatherStart)
		if err != nil {
			return nil, err
		}
		end, err := fractionalDate(cfg.Segments.FeatherEnd)
		if err != nil {
			return nil, err
		}
		w := segmented.FeatherWindow{Start: start, End: end}
		if err := w.Validate(); err != nil {
			return nil, err
		}
		s.Feather = &w
	}

	for _, d := range cfg.Segments.QueryDates {
		t, err := fractionalDate(d)
		if err != nil {
			return nil, err
		}
		s.QueryDates = append(s.QueryDates, QueryDate{Label: d, Time: t})
	}

	if cfg.Vertices != nil {
		opts := cfg.Vertices.FitOptions()
		s.Vertices = &opts
	}

	return s, nil
}

// Band returns the settings of b
func (s *Settings) Band(b timeseries.Band) (BandSettings, bool) {
	for _, bs := range s.Bands {
		if bs.Band == b {
			return bs, true
		}
	}
	return BandSettings{}, false
}

// frequencyGroups partitions the configured bands by frequency set, keeping
// configuration order inside each group and across groups
func (s *Settings) frequencyGroups() [][]BandSettings {
	index := make(map[string]int)
	var groups [][]BandSettings
	for _, bs := range s.Bands {
		key := frequencyKey(bs.Frequencies)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], bs)
	}
	return groups
}

func frequencyKey(freqs []int) string {
	parts := make([]string, len(freqs))
	for i, k := range freqs {
		parts[i] = strconv.Itoa(k)
	}
	return strings.Join(parts, ",")
}

func fractionalDate(s string) (float64, error) {
	t, err := config.ParseDate(s)
	if err != nil {
		return 0, err
	}
	return timeseries.FractionalYear(t), nil
}
