package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/chrissnell/pixeltrend/pkg/harmonic"
	"github.com/chrissnell/pixeltrend/pkg/recordformat"
	"github.com/chrissnell/pixeltrend/pkg/timeseries"
	"github.com/chrissnell/pixeltrend/pkg/trajectory"
)

// DateLayout is the layout of every calendar date in the configuration
const DateLayout = "2006-01-02"

// ValidationError reports one invalid configuration field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// ParseDate parses a configuration date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not in %s form", s, DateLayout)
	}
	return t, nil
}

// Validate checks the configuration as a whole and returns every problem
// found, joined
func (c *ConfigData) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if len(c.Bands) == 0 {
		add("bands", "at least one band is required")
	}
	seen := make(map[timeseries.Band]bool)
	for i, b := range c.Bands {
		field := fmt.Sprintf("bands[%d]", i)
		band, err := timeseries.ParseBand(b.Name)
		if err != nil {
			add(field+".name", "%v", err)
			continue
		}
		if seen[band] {
			add(field+".name", "band %s listed twice", band)
		}
		seen[band] = true
		if b.Improvement != 0 && !timeseries.Direction(b.Improvement).Valid() {
			add(field+".improvement", "must be 1 or -1, got %d", b.Improvement)
		}
		if len(b.Frequencies) > 0 {
			if err := harmonic.ValidateFrequencies(b.Frequencies); err != nil {
				add(field+".frequencies", "%v", err)
			}
		}
	}

	if err := harmonic.ValidateFrequencies(c.Harmonic.Frequencies); err != nil {
		add("harmonic.frequencies", "%v", err)
	}

	if len(c.Segments.Frequencies) > 0 {
		if err := harmonic.ValidateFrequencies(c.Segments.Frequencies); err != nil {
			add("segments.frequencies", "%v", err)
		}
	}
	if c.Segments.Feathered() {
		if c.Segments.FeatherStart == "" || c.Segments.FeatherEnd == "" {
			add("segments", "feather_start and feather_end must be set together")
		}
		for _, bound := range []struct{ field, value string }{
			{"segments.feather_start", c.Segments.FeatherStart},
			{"segments.feather_end", c.Segments.FeatherEnd},
		} {
			if bound.value == "" {
				continue
			}
			if _, err := ParseDate(bound.value); err != nil {
				add(bound.field, "%v", err)
			}
		}
	}
	for i, d := range c.Segments.QueryDates {
		if _, err := ParseDate(d); err != nil {
			add(fmt.Sprintf("segments.query_dates[%d]", i), "%v", err)
		}
	}

	if _, err := trajectory.ParseRule(c.Change.Rule); err != nil {
		add("change.rule", "%v", err)
	}
	if c.Change.HowManyToPull < 1 {
		add("change.how_many_to_pull", "must be at least 1, got %d", c.Change.HowManyToPull)
	}
	if c.Change.StartYear != 0 && c.Change.EndYear != 0 && c.Change.StartYear > c.Change.EndYear {
		add("change", "start_year %d is after end_year %d", c.Change.StartYear, c.Change.EndYear)
	}

	if c.Vertices != nil {
		if err := c.Vertices.FitOptions().Validate(); err != nil {
			add("vertices", "%v", err)
		}
	}

	if c.Batch.Workers < 0 {
		add("batch.workers", "must not be negative, got %d", c.Batch.Workers)
	}
	if c.Batch.Format != "" {
		if _, err := recordformat.ParseFormat(c.Batch.Format); err != nil {
			add("batch.format", "%v", err)
		}
	}

	return errors.Join(errs...)
}

// FitOptions converts the vertex settings for trajectory.FitVertices
func (v VertexData) FitOptions() trajectory.FitOptions {
	return trajectory.FitOptions{
		DespikeWindow:   v.DespikeWindow,
		MinSegmentYears: v.MinSegmentYears,
		Penalty:         v.Penalty,
		MaxSegments:     v.MaxSegments,
	}
}

// Thresholds converts one direction's thresholds together with the shared
// year window
func (c ChangeData) Thresholds(t ThresholdData) trajectory.Thresholds {
	return trajectory.Thresholds{
		Magnitude: t.Magnitude,
		Slope:     t.Slope,
		Duration:  t.Duration,
		FirstYear: c.StartYear,
		LastYear:  c.EndYear,
	}
}
