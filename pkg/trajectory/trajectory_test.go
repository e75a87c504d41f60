package trajectory

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

func example() Trajectory {
	return Trajectory{{2000, 0.5}, {2005, 0.5}, {2010, 0.2}, {2015, 0.6}}
}

func TestExtractEvents(t *testing.T) {
	events, err := ExtractEvents(example(), timeseries.ImprovesUp)
	if err != nil {
		t.Fatalf("ExtractEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events (flat segment skipped), got %d", len(events))
	}

	loss := events[0]
	if loss.Kind != Loss || loss.StartYear != 2005 || loss.EndYear != 2010 || loss.Duration != 5 {
		t.Errorf("unexpected loss %+v", loss)
	}
	if math.Abs(loss.Magnitude+0.3) > 1e-12 || math.Abs(loss.Slope+0.06) > 1e-12 {
		t.Errorf("loss magnitude/slope = %v/%v, expected -0.3/-0.06", loss.Magnitude, loss.Slope)
	}
	if loss.PreValue != 0.5 || loss.PostValue != 0.2 || loss.Segment != 1 {
		t.Errorf("unexpected loss context %+v", loss)
	}

	gain := events[1]
	if gain.Kind != Gain || math.Abs(gain.Magnitude-0.4) > 1e-12 {
		t.Errorf("unexpected gain %+v", gain)
	}
}

func TestExtractEventsDownwardImprovement(t *testing.T) {
	// a disturbance index rising is a loss
	events, err := ExtractEvents(Trajectory{{2000, 0.1}, {2003, 0.4}, {2008, 0.2}}, timeseries.ImprovesDown)
	if err != nil {
		t.Fatalf("ExtractEvents: %v", err)
	}
	if events[0].Kind != Loss || math.Abs(events[0].Magnitude+0.3) > 1e-12 {
		t.Errorf("rise should be a loss of -0.3, got %+v", events[0])
	}
	if events[1].Kind != Gain || math.Abs(events[1].Magnitude-0.2) > 1e-12 {
		t.Errorf("fall should be a gain of 0.2, got %+v", events[1])
	}
}

func TestExtractEventsInvalid(t *testing.T) {
	tests := []struct {
		name string
		traj Trajectory
		dir  timeseries.Direction
		want error
	}{
		{"single vertex", Trajectory{{2000, 1}}, timeseries.ImprovesUp, ErrInvalidTrajectory},
		{"repeated year", Trajectory{{2000, 1}, {2000, 2}}, timeseries.ImprovesUp, ErrInvalidTrajectory},
		{"decreasing year", Trajectory{{2001, 1}, {2000, 2}}, timeseries.ImprovesUp, ErrInvalidTrajectory},
		{"nan value", Trajectory{{2000, math.NaN()}, {2001, 2}}, timeseries.ImprovesUp, ErrInvalidTrajectory},
		{"zero direction", example(), 0, ErrInvalidDirection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractEvents(tt.traj, tt.dir); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFilterAndRank(t *testing.T) {
	events, err := ExtractEvents(example(), timeseries.ImprovesUp)
	if err != nil {
		t.Fatalf("ExtractEvents: %v", err)
	}

	ranked := FilterAndRank(events, Thresholds{Magnitude: -0.1, Slope: -0.05, Duration: 5})
	if len(ranked.Loss) != 1 || len(ranked.Gain) != 1 {
		t.Fatalf("expected one loss and one gain, got %+v", ranked)
	}
	if ranked.Loss[0].Speed != Slow {
		t.Errorf("5-year loss with duration threshold 5 should be slow, got %q", ranked.Loss[0].Speed)
	}
	if ranked.Gain[0].Speed != SpeedUnclassified {
		t.Errorf("gains are not speed tagged, got %q", ranked.Gain[0].Speed)
	}

	ranked = FilterAndRank(events, Thresholds{Magnitude: -0.1, Slope: -0.05, Duration: 6})
	if ranked.Loss[0].Speed != Fast {
		t.Errorf("5-year loss with duration threshold 6 should be fast, got %q", ranked.Loss[0].Speed)
	}

	top, err := SelectTopK(ranked.Loss, Largest, 1)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	if len(top) != 1 || top[0].StartYear != 2005 || top[0].EndYear != 2010 {
		t.Errorf("unexpected top loss %+v", top)
	}
}

func TestThresholdsRetains(t *testing.T) {
	th := Thresholds{Magnitude: -0.2, Slope: -0.1}
	tests := []struct {
		name     string
		event    ChangeEvent
		retained bool
	}{
		{"large and steep", ChangeEvent{Magnitude: -0.5, Slope: -0.5, EndYear: 2010}, true},
		{"large but gradual", ChangeEvent{Magnitude: -0.3, Slope: -0.03, EndYear: 2010}, true},
		{"small but steep", ChangeEvent{Magnitude: -0.15, Slope: -0.15, EndYear: 2010}, true},
		{"small and gradual", ChangeEvent{Magnitude: -0.15, Slope: -0.05, EndYear: 2010}, false},
		{"exactly at magnitude threshold", ChangeEvent{Magnitude: -0.2, Slope: -0.01, EndYear: 2010}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := th.Retains(tt.event); got != tt.retained {
				t.Errorf("Retains = %v, expected %v", got, tt.retained)
			}
		})
	}

	windowed := Thresholds{FirstYear: 2005, LastYear: 2012}
	if windowed.Retains(ChangeEvent{Magnitude: -1, Slope: -1, EndYear: 2004}) {
		t.Error("event ending before FirstYear retained")
	}
	if windowed.Retains(ChangeEvent{Magnitude: -1, Slope: -1, EndYear: 2013}) {
		t.Error("event ending after LastYear retained")
	}
	if !windowed.Retains(ChangeEvent{Magnitude: -1, Slope: -1, EndYear: 2012}) {
		t.Error("event ending on LastYear dropped")
	}
}

func TestPolicySeparateThresholds(t *testing.T) {
	events := []ChangeEvent{
		{Kind: Loss, StartYear: 2000, EndYear: 2002, Duration: 2, Magnitude: -0.15, Slope: -0.075},
		{Kind: Gain, StartYear: 2002, EndYear: 2006, Duration: 4, Magnitude: 0.15, Slope: 0.0375},
	}
	r := Policy{
		Loss: Thresholds{Magnitude: -0.1, Slope: -0.05},
		Gain: Thresholds{Magnitude: 0.2, Slope: 0.1},
	}.Apply(events)
	if len(r.Loss) != 1 || len(r.Gain) != 0 {
		t.Errorf("expected loss kept and gain dropped, got %+v", r)
	}
}

func rankingEvents() []ChangeEvent {
	return []ChangeEvent{
		{Segment: 0, StartYear: 1990, EndYear: 1992, Duration: 2, Magnitude: -0.2, Slope: -0.1},
		{Segment: 1, StartYear: 1995, EndYear: 2005, Duration: 10, Magnitude: -0.5, Slope: -0.05},
		{Segment: 2, StartYear: 2006, EndYear: 2007, Duration: 1, Magnitude: -0.3, Slope: -0.3},
		{Segment: 3, StartYear: 2008, EndYear: 2012, Duration: 4, Magnitude: -0.2, Slope: -0.05},
	}
}

func TestSelectTopK(t *testing.T) {
	tests := []struct {
		rule     Rule
		expected []int // segments in selection order
	}{
		{Newest, []int{3, 2, 1, 0}},
		{Oldest, []int{0, 1, 2, 3}},
		{Largest, []int{1, 2, 3, 0}},
		{Smallest, []int{3, 0, 2, 1}},
		{Steepest, []int{2, 0, 3, 1}},
		{MostGradual, []int{3, 1, 0, 2}},
		{Shortest, []int{2, 0, 3, 1}},
		{Longest, []int{1, 3, 0, 2}},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			got, err := SelectTopK(rankingEvents(), tt.rule, 10)
			if err != nil {
				t.Fatalf("SelectTopK: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d events, got %d", len(tt.expected), len(got))
			}
			for i, seg := range tt.expected {
				if got[i].Segment != seg {
					t.Errorf("position %d: segment %d, expected %d", i, got[i].Segment, seg)
				}
			}
		})
	}
}

func TestSelectTopKRuleAliases(t *testing.T) {
	tests := []struct {
		rule     Rule
		expected []int
	}{
		{Rule("most_gradual"), []int{3, 1, 0, 2}},
		{Rule("MOST-GRADUAL"), []int{3, 1, 0, 2}},
		{Rule("LARGEST"), []int{1, 2, 3, 0}},
		{Rule("Oldest"), []int{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.rule), func(t *testing.T) {
			got, err := SelectTopK(rankingEvents(), tt.rule, 4)
			if err != nil {
				t.Fatalf("SelectTopK: %v", err)
			}
			for i, seg := range tt.expected {
				if got[i].Segment != seg {
					t.Errorf("position %d: segment %d, expected %d", i, got[i].Segment, seg)
				}
			}
		})
	}
}

func TestSelectTopKLimits(t *testing.T) {
	events := rankingEvents()
	got, err := SelectTopK(events, Largest, 2)
	if err != nil {
		t.Fatalf("SelectTopK: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}
	if events[0].Segment != 0 || events[1].Segment != 1 {
		t.Error("SelectTopK reordered its input")
	}

	got, err = SelectTopK(events[:1], Largest, 3)
	if err != nil || len(got) != 1 {
		t.Errorf("fewer events than k should return them all: %v, %v", got, err)
	}

	if _, err := SelectTopK(events, Largest, 0); err == nil {
		t.Error("expected error for k = 0")
	}
	if _, err := SelectTopK(events, Rule("biggest"), 1); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestSelectTopKTieBreak(t *testing.T) {
	// |0.5 - 0.2| and |0.9 - 0.6| differ in the last bits but must tie
	a := ChangeEvent{Segment: 0, StartYear: 2000, EndYear: 2003, Duration: 3, Magnitude: 0.2 - 0.5}
	b := ChangeEvent{Segment: 1, StartYear: 2004, EndYear: 2008, Duration: 4, Magnitude: 0.6 - 0.9}
	c := ChangeEvent{Segment: 2, StartYear: 2001, EndYear: 2008, Duration: 7, Magnitude: -0.3}

	for run := 0; run < 5; run++ {
		got, err := SelectTopK([]ChangeEvent{a, b, c}, Largest, 3)
		if err != nil {
			t.Fatalf("SelectTopK: %v", err)
		}
		// later end year first, then input order
		if got[0].Segment != 1 || got[1].Segment != 2 || got[2].Segment != 0 {
			t.Fatalf("run %d: unexpected order %d,%d,%d", run, got[0].Segment, got[1].Segment, got[2].Segment)
		}
	}
}

func TestNewTrajectory(t *testing.T) {
	vertices := []Vertex{{2000, 0.8}, {2005, 0.3}}
	traj, err := NewTrajectory(vertices)
	if err != nil {
		t.Fatalf("NewTrajectory: %v", err)
	}
	vertices[0].Value = 0
	if traj[0].Value != 0.8 {
		t.Error("NewTrajectory shares the caller's slice")
	}

	if _, err := NewTrajectory([]Vertex{{2005, 1}, {2000, 2}}); !errors.Is(err, ErrInvalidTrajectory) {
		t.Errorf("expected ErrInvalidTrajectory, got %v", err)
	}
}

func TestParseRule(t *testing.T) {
	for _, name := range []string{"mostGradual", "most_gradual", "MOST-GRADUAL"} {
		r, err := ParseRule(name)
		if err != nil || r != MostGradual {
			t.Errorf("ParseRule(%q) = %v, %v", name, r, err)
		}
	}
	if _, err := ParseRule("fastest"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestValueAt(t *testing.T) {
	tr := example()
	tests := []struct {
		year     float64
		expected float64
	}{
		{1995, 0.5},
		{2007.5, 0.35},
		{2015, 0.6},
		{2020, 0.6},
	}
	for _, tt := range tests {
		if got := tr.ValueAt(tt.year); math.Abs(got-tt.expected) > 1e-12 {
			t.Errorf("ValueAt(%v) = %v, expected %v", tt.year, got, tt.expected)
		}
	}
}
