package trajectory

import (
	"errors"
	"math"
)

// ErrInvalidDirection is returned for an improvement direction other than +1 or -1
var ErrInvalidDirection = errors.New("improvement direction must be +1 or -1")

// Thresholds is the retention policy for one event direction. Only the
// absolute values of Magnitude and Slope matter, so loss thresholds may be
// written as negative numbers.
type Thresholds struct {
	// Magnitude keeps events with |magnitude| >= |Magnitude|
	Magnitude float64
	// Slope keeps events with |slope| >= |Slope|
	Slope float64
	// Duration splits retained losses into slow (>= Duration) and fast
	// events. It never removes an event.
	Duration float64
	// FirstYear and LastYear, when non-zero, bound the event end year
	FirstYear int
	LastYear  int
}

// Retains reports whether e passes the magnitude test or the slope test.
// Either one is enough.
func (th Thresholds) Retains(e ChangeEvent) bool {
	if th.FirstYear != 0 && e.EndYear < th.FirstYear {
		return false
	}
	if th.LastYear != 0 && e.EndYear > th.LastYear {
		return false
	}
	magOK := math.Abs(e.Magnitude) >= math.Abs(th.Magnitude)
	slopeOK := math.Abs(e.Slope) >= math.Abs(th.Slope)
	return magOK || slopeOK
}

// Ranked holds the retained events of each direction, largest change first
type Ranked struct {
	Loss []ChangeEvent
	Gain []ChangeEvent
}

// Policy pairs the loss and gain thresholds
type Policy struct {
	Loss Thresholds
	Gain Thresholds
}

// FilterAndRank applies th to both directions
func FilterAndRank(events []ChangeEvent, th Thresholds) Ranked {
	return Policy{Loss: th, Gain: th}.Apply(events)
}

// Apply filters events per direction, tags retained losses slow or fast and
// ranks each list by the Largest rule
func (p Policy) Apply(events []ChangeEvent) Ranked {
	var r Ranked
	for _, e := range events {
		switch e.Kind {
		case Loss:
			if !p.Loss.Retains(e) {
				continue
			}
			if float64(e.Duration) >= p.Loss.Duration {
				e.Speed = Slow
			} else {
				e.Speed = Fast
			}
			r.Loss = append(r.Loss, e)
		case Gain:
			if !p.Gain.Retains(e) {
				continue
			}
			e.Speed = SpeedUnclassified
			r.Gain = append(r.Gain, e)
		}
	}
	sortByRule(r.Loss, Largest)
	sortByRule(r.Gain, Largest)
	return r
}
