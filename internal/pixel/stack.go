package pixel

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
	"github.com/chrissnell/pixeltrend/pkg/trajectory"
)

// Pixel is the full input of one location
type Pixel struct {
	X, Y   int
	Series timeseries.Series
	// Segments holds up to two externally fit segmentation runs per band;
	// the first is the earlier run of a feathered pair
	Segments map[timeseries.Band][]SegmentRun
	// Vertices are precomputed trajectories. Bands without one fall back
	// to Annual when vertex fitting is configured.
	Vertices map[timeseries.Band]trajectory.Trajectory
	Annual   map[timeseries.Band]AnnualSeries
}

// SegmentRun is one segmentation of a band, as coefficients
type SegmentRun struct {
	ID       string
	Segments []SegmentSpec
}

// SegmentSpec is a segment in input form. Coefficients are ordered
// intercept, slope, cos_k, sin_k for each segment frequency k; Origin
// defaults to the whole year of Start.
type SegmentSpec struct {
	Start        float64
	End          float64
	Break        float64
	Origin       *float64
	Coefficients []float64
}

// AnnualSeries is one value per year, used to fit trajectory vertices
type AnnualSeries struct {
	Years  []int
	Values []float64
}

// StackDocument is the JSON form of a pixel stack
type StackDocument struct {
	Pixels []PixelDocument `json:"pixels"`
}

type PixelDocument struct {
	X            int                             `json:"x"`
	Y            int                             `json:"y"`
	Observations []ObservationDocument           `json:"observations,omitempty"`
	Segments     map[string][]SegmentRunDocument `json:"segments,omitempty"`
	Vertices     map[string][]VertexDocument     `json:"vertices,omitempty"`
	Annual       map[string]AnnualSeriesDocument `json:"annual,omitempty"`
}

// ObservationDocument carries either a calendar Date (RFC 3339 or
// YYYY-MM-DD) or a fractional-year Time
type ObservationDocument struct {
	Date  string             `json:"date,omitempty"`
	Time  *float64           `json:"time,omitempty"`
	Bands map[string]float64 `json:"bands"`
}

type SegmentRunDocument struct {
	ID       string            `json:"id,omitempty"`
	Segments []SegmentDocument `json:"segments"`
}

type SegmentDocument struct {
	Start        float64   `json:"start"`
	End          float64   `json:"end"`
	Break        float64   `json:"break,omitempty"`
	Origin       *float64  `json:"origin,omitempty"`
	Coefficients []float64 `json:"coefficients"`
}

type VertexDocument struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

type AnnualSeriesDocument struct {
	Years  []int     `json:"years"`
	Values []float64 `json:"values"`
}

// DecodeStack reads a JSON pixel stack and converts every pixel. A
// malformed document fails as a whole.
func DecodeStack(r io.Reader) ([]Pixel, error) {
	var doc StackDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode pixel stack: %w", err)
	}

	pixels := make([]Pixel, 0, len(doc.Pixels))
	for i, pd := range doc.Pixels {
		px, err := pd.Pixel()
		if err != nil {
			return nil, fmt.Errorf("pixel %d (%d,%d): %w", i, pd.X, pd.Y, err)
		}
		pixels = append(pixels, px)
	}
	return pixels, nil
}

// Pixel converts the document. Observations are sorted by time.
func (d PixelDocument) Pixel() (Pixel, error) {
	px := Pixel{X: d.X, Y: d.Y}

	for i, od := range d.Observations {
		bands := make(map[timeseries.Band]float64, len(od.Bands))
		for name, v := range od.Bands {
			b, err := timeseries.ParseBand(name)
			if err != nil {
				return Pixel{}, fmt.Errorf("observation %d: %w", i, err)
			}
			bands[b] = v
		}
		obs, err := od.observation(bands)
		if err != nil {
			return Pixel{}, fmt.Errorf("observation %d: %w", i, err)
		}
		px.Series = append(px.Series, obs)
	}
	if !px.Series.Sorted() {
		px.Series = px.Series.SortByTime()
	}

	if len(d.Segments) > 0 {
		px.Segments = make(map[timeseries.Band][]SegmentRun, len(d.Segments))
		for name, runs := range d.Segments {
			b, err := timeseries.ParseBand(name)
			if err != nil {
				return Pixel{}, fmt.Errorf("segments: %w", err)
			}
			if len(runs) > 2 {
				return Pixel{}, fmt.Errorf("segments %s: %d runs, at most 2 can be feathered", b, len(runs))
			}
			for _, rd := range runs {
				run := SegmentRun{ID: rd.ID}
				for _, sd := range rd.Segments {
					run.Segments = append(run.Segments, SegmentSpec(sd))
				}
				px.Segments[b] = append(px.Segments[b], run)
			}
		}
	}

	if len(d.Vertices) > 0 {
		px.Vertices = make(map[timeseries.Band]trajectory.Trajectory, len(d.Vertices))
		for name, vds := range d.Vertices {
			b, err := timeseries.ParseBand(name)
			if err != nil {
				return Pixel{}, fmt.Errorf("vertices: %w", err)
			}
			t := make(trajectory.Trajectory, len(vds))
			for i, vd := range vds {
				t[i] = trajectory.Vertex(vd)
			}
			px.Vertices[b] = t
		}
	}

	if len(d.Annual) > 0 {
		px.Annual = make(map[timeseries.Band]AnnualSeries, len(d.Annual))
		for name, ad := range d.Annual {
			b, err := timeseries.ParseBand(name)
			if err != nil {
				return Pixel{}, fmt.Errorf("annual: %w", err)
			}
			px.Annual[b] = AnnualSeries(ad)
		}
	}

	return px, nil
}

func (od ObservationDocument) observation(bands map[timeseries.Band]float64) (timeseries.Observation, error) {
	if od.Time != nil {
		if od.Date != "" {
			return timeseries.Observation{}, fmt.Errorf("both date and time given")
		}
		return timeseries.Observation{Time: *od.Time, Bands: bands}, nil
	}
	if od.Date == "" {
		return timeseries.Observation{}, fmt.Errorf("no date or time")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, od.Date); err == nil {
			return timeseries.NewObservation(t, bands), nil
		}
	}
	return timeseries.Observation{}, fmt.Errorf("unrecognized date %q", od.Date)
}
