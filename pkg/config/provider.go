package config

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration
	LoadConfig() (*ConfigData, error)

	// Get specific configuration sections
	GetBands() ([]BandData, error)
	GetSettings() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration of a pixeltrend run.
// Bands lists the bands to process; the remaining sections are shared by
// every band unless a band overrides them.
type ConfigData struct {
	Bands    []BandData   `json:"bands"`
	Harmonic HarmonicData `json:"harmonic"`
	Segments SegmentsData `json:"segments,omitempty"`
	Change   ChangeData   `json:"change"`
	Vertices *VertexData  `json:"vertices,omitempty"`
	Batch    BatchData    `json:"batch,omitempty"`
}

// BandData holds per-band settings. Improvement of 0 takes the band's
// registry default; a non-empty Frequencies replaces the harmonic
// frequencies for this band only.
type BandData struct {
	Name        string `json:"name"`
	Improvement int    `json:"improvement,omitempty"`
	Frequencies []int  `json:"frequencies,omitempty"`
}

// HarmonicData configures the per-band harmonic regression
type HarmonicData struct {
	Frequencies []int `json:"frequencies"`
	Detrend     bool  `json:"detrend"`
	Seasonality bool  `json:"seasonality"`
}

// SegmentsData configures prediction from externally fit segmentations.
// Dates are calendar dates (YYYY-MM-DD). FeatherStart and FeatherEnd are
// either both set or both empty.
type SegmentsData struct {
	Frequencies  []int    `json:"frequencies,omitempty"`
	Detrend      bool     `json:"detrend,omitempty"`
	FillGaps     bool     `json:"fill_gaps,omitempty"`
	FeatherStart string   `json:"feather_start,omitempty"`
	FeatherEnd   string   `json:"feather_end,omitempty"`
	QueryDates   []string `json:"query_dates,omitempty"`
}

// ChangeData configures loss and gain event selection
type ChangeData struct {
	Loss          ThresholdData `json:"loss"`
	Gain          ThresholdData `json:"gain"`
	Rule          string        `json:"rule"`
	HowManyToPull int           `json:"how_many_to_pull"`
	StartYear     int           `json:"start_year,omitempty"`
	EndYear       int           `json:"end_year,omitempty"`
}

// ThresholdData holds the retention thresholds of one event direction
type ThresholdData struct {
	Magnitude float64 `json:"magnitude"`
	Slope     float64 `json:"slope"`
	Duration  float64 `json:"duration"`
}

// VertexData enables trajectory fitting from annual values when a pixel
// carries no precomputed vertices
type VertexData struct {
	DespikeWindow   int     `json:"despike_window"`
	MinSegmentYears int     `json:"min_segment_years"`
	Penalty         float64 `json:"penalty"`
	MaxSegments     int     `json:"max_segments,omitempty"`
}

// BatchData holds operational settings for the batch runner
type BatchData struct {
	Workers int    `json:"workers,omitempty"`
	Format  string `json:"format,omitempty"`
}

// Feathered reports whether a feather window is configured
func (s SegmentsData) Feathered() bool {
	return s.FeatherStart != "" || s.FeatherEnd != ""
}
