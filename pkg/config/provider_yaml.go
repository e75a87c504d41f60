package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YAMLProvider implements ConfigProvider for YAML configuration files
type YAMLProvider struct {
	filename string
	config   *ConfigData
}

// NewYAMLProvider creates a new YAML configuration provider
func NewYAMLProvider(filename string) *YAMLProvider {
	return &YAMLProvider{
		filename: filename,
	}
}

// LoadConfig loads the complete configuration from the YAML file
func (y *YAMLProvider) LoadConfig() (*ConfigData, error) {
	cfgFile, err := os.ReadFile(y.filename)
	if err != nil {
		return nil, err
	}

	config, err := parseYAML(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", y.filename, err)
	}

	y.config = config
	return config, nil
}

func parseYAML(data []byte) (*ConfigData, error) {
	// Load into temporary struct with YAML tags
	var yamlConfig struct {
		Bands    []BandYAML   `yaml:"bands"`
		Harmonic HarmonicYAML `yaml:"harmonic"`
		Segments SegmentsYAML `yaml:"segments,omitempty"`
		Change   ChangeYAML   `yaml:"change"`
		Vertices *VertexYAML  `yaml:"vertices,omitempty"`
		Batch    BatchYAML    `yaml:"batch,omitempty"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return nil, err
	}

	// Convert to our internal format
	config := &ConfigData{
		Bands: make([]BandData, len(yamlConfig.Bands)),
		Harmonic: HarmonicData{
			Frequencies: yamlConfig.Harmonic.Frequencies,
			Detrend:     yamlConfig.Harmonic.Detrend,
			Seasonality: yamlConfig.Harmonic.Seasonality,
		},
		Segments: SegmentsData{
			Frequencies:  yamlConfig.Segments.Frequencies,
			Detrend:      yamlConfig.Segments.Detrend,
			FillGaps:     yamlConfig.Segments.FillGaps,
			FeatherStart: yamlConfig.Segments.FeatherStart,
			FeatherEnd:   yamlConfig.Segments.FeatherEnd,
			QueryDates:   yamlConfig.Segments.QueryDates,
		},
		Change: ChangeData{
			Loss:          ThresholdData(yamlConfig.Change.Loss),
			Gain:          ThresholdData(yamlConfig.Change.Gain),
			Rule:          yamlConfig.Change.Rule,
			HowManyToPull: yamlConfig.Change.HowManyToPull,
			StartYear:     yamlConfig.Change.StartYear,
			EndYear:       yamlConfig.Change.EndYear,
		},
		Batch: BatchData{
			Workers: yamlConfig.Batch.Workers,
			Format:  yamlConfig.Batch.Format,
		},
	}

	for i, band := range yamlConfig.Bands {
		config.Bands[i] = BandData{
			Name:        band.Name,
			Improvement: band.Improvement,
			Frequencies: band.Frequencies,
		}
	}

	if yamlConfig.Vertices != nil {
		config.Vertices = &VertexData{
			DespikeWindow:   yamlConfig.Vertices.DespikeWindow,
			MinSegmentYears: yamlConfig.Vertices.MinSegmentYears,
			Penalty:         yamlConfig.Vertices.Penalty,
			MaxSegments:     yamlConfig.Vertices.MaxSegments,
		}
	}

	return config, nil
}

// GetBands returns the band list
func (y *YAMLProvider) GetBands() ([]BandData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config.Bands, nil
}

// GetSettings returns the full configuration; YAML keeps bands and settings
// in one document
func (y *YAMLProvider) GetSettings() (*ConfigData, error) {
	if y.config == nil {
		if _, err := y.LoadConfig(); err != nil {
			return nil, err
		}
	}
	return y.config, nil
}

// IsReadOnly returns true since YAML files are read-only through this interface
func (y *YAMLProvider) IsReadOnly() bool {
	return true
}

// Close is a no-op for YAML provider
func (y *YAMLProvider) Close() error {
	return nil
}

// YAML-specific structs with yaml tags

type BandYAML struct {
	Name        string `yaml:"name"`
	Improvement int    `yaml:"improvement,omitempty"`
	Frequencies []int  `yaml:"frequencies,omitempty,flow"`
}

type HarmonicYAML struct {
	Frequencies []int `yaml:"frequencies,flow"`
	Detrend     bool  `yaml:"detrend"`
	Seasonality bool  `yaml:"seasonality"`
}

type SegmentsYAML struct {
	Frequencies  []int    `yaml:"frequencies,omitempty,flow"`
	Detrend      bool     `yaml:"detrend,omitempty"`
	FillGaps     bool     `yaml:"fill_gaps,omitempty"`
	FeatherStart string   `yaml:"feather_start,omitempty"`
	FeatherEnd   string   `yaml:"feather_end,omitempty"`
	QueryDates   []string `yaml:"query_dates,omitempty"`
}

type ChangeYAML struct {
	Loss          ThresholdYAML `yaml:"loss"`
	Gain          ThresholdYAML `yaml:"gain"`
	Rule          string        `yaml:"rule"`
	HowManyToPull int           `yaml:"how_many_to_pull"`
	StartYear     int           `yaml:"start_year,omitempty"`
	EndYear       int           `yaml:"end_year,omitempty"`
}

type ThresholdYAML struct {
	Magnitude float64 `yaml:"magnitude"`
	Slope     float64 `yaml:"slope"`
	Duration  float64 `yaml:"duration"`
}

type VertexYAML struct {
	DespikeWindow   int     `yaml:"despike_window"`
	MinSegmentYears int     `yaml:"min_segment_years"`
	Penalty         float64 `yaml:"penalty"`
	MaxSegments     int     `yaml:"max_segments,omitempty"`
}

type BatchYAML struct {
	Workers int    `yaml:"workers,omitempty"`
	Format  string `yaml:"format,omitempty"`
}
