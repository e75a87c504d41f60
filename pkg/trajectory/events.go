package trajectory

import (
	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

// Kind is the direction of a change event
type Kind string

const (
	Loss Kind = "loss"
	Gain Kind = "gain"
)

// Speed tags retained loss events by their duration
type Speed string

const (
	SpeedUnclassified Speed = ""
	Slow              Speed = "slow"
	Fast              Speed = "fast"
)

// ChangeEvent describes one trajectory segment with a non-zero change.
// Magnitude is sign-adjusted by the band's improvement direction, so losses
// are negative and gains positive whatever the band.
type ChangeEvent struct {
	Kind      Kind
	Segment   int // index of the segment's first vertex
	StartYear int
	EndYear   int
	Duration  int
	Magnitude float64
	Slope     float64
	PreValue  float64
	PostValue float64
	Speed     Speed
}

// ExtractEvents emits one event per trajectory segment whose value
// changes. A segment is a loss when its change, multiplied by the improvement
// direction, is negative and a gain otherwise.
func ExtractEvents(t Trajectory, dir timeseries.Direction) ([]ChangeEvent, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if !dir.Valid() {
		return nil, ErrInvalidDirection
	}

	var events []ChangeEvent
	for i := 1; i < len(t); i++ {
		start, end := t[i-1], t[i]
		delta := end.Value - start.Value
		if delta == 0 {
			continue
		}

		mag := delta * float64(dir)
		kind := Gain
		if mag < 0 {
			kind = Loss
		}
		dur := end.Year - start.Year

		events = append(events, ChangeEvent{
			Kind:      kind,
			Segment:   i - 1,
			StartYear: start.Year,
			EndYear:   end.Year,
			Duration:  dur,
			Magnitude: mag,
			Slope:     mag / float64(dur),
			PreValue:  start.Value,
			PostValue: end.Value,
		})
	}
	return events, nil
}
