// Package trajectory extracts loss and gain events from a pixel's fitted
// piecewise-linear trajectory and ranks them.
package trajectory

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTrajectory is returned for trajectories with fewer than two
// vertices, non-increasing years or non-finite values
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// Vertex is a breakpoint of a fitted trajectory
type Vertex struct {
	Year  int
	Value float64
}

// Trajectory is an ordered vertex sequence; consecutive vertices bound one
// linear segment
type Trajectory []Vertex

// NewTrajectory copies and validates vertices
func NewTrajectory(vertices []Vertex) (Trajectory, error) {
	t := make(Trajectory, len(vertices))
	copy(t, vertices)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks that t has at least two vertices with strictly
// increasing years and finite values
func (t Trajectory) Validate() error {
	if len(t) < 2 {
		return fmt.Errorf("%w: %d vertices, need at least 2", ErrInvalidTrajectory, len(t))
	}
	for i, v := range t {
		if math.IsNaN(v.Value) || math.IsInf(v.Value, 0) {
			return fmt.Errorf("%w: vertex %d (%d) has value %v", ErrInvalidTrajectory, i, v.Year, v.Value)
		}
		if i > 0 && v.Year <= t[i-1].Year {
			return fmt.Errorf("%w: year %d follows %d", ErrInvalidTrajectory, v.Year, t[i-1].Year)
		}
	}
	return nil
}

// ValueAt interpolates the trajectory at year. Years outside the vertex
// range are clamped to the nearest end vertex.
func (t Trajectory) ValueAt(year float64) float64 {
	if len(t) == 0 {
		return math.NaN()
	}
	if year <= float64(t[0].Year) {
		return t[0].Value
	}
	for i := 1; i < len(t); i++ {
		y0, y1 := float64(t[i-1].Year), float64(t[i].Year)
		if year <= y1 {
			frac := (year - y0) / (y1 - y0)
			return t[i-1].Value + frac*(t[i].Value-t[i-1].Value)
		}
	}
	return t[len(t)-1].Value
}
