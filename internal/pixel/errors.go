package pixel

import (
	"errors"

	"github.com/chrissnell/pixeltrend/pkg/harmonic"
	"github.com/chrissnell/pixeltrend/pkg/segmented"
	"github.com/chrissnell/pixeltrend/pkg/trajectory"
)

// ErrFeatherCoverage is returned when a pixel's segment sets do not cover
// the configured feather window
var ErrFeatherCoverage = errors.New("feather window outside segment coverage")

// localConditions are the data conditions a single pixel can run into.
// They turn into no-data products for that pixel and never stop a batch.
var localConditions = []error{
	harmonic.ErrInsufficientData,
	harmonic.ErrSingularFit,
	ErrFeatherCoverage,
	segmented.ErrInvalidSegment,
	trajectory.ErrInvalidTrajectory,
}

// IsLocal reports whether err is a per-pixel data condition. A joined error
// is local only when every error in it is.
func IsLocal(err error) bool {
	if err == nil {
		return false
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs := joined.Unwrap()
		for _, e := range errs {
			if !IsLocal(e) {
				return false
			}
		}
		return len(errs) > 0
	}
	for _, target := range localConditions {
		if err == target {
			return true
		}
		if is, ok := err.(interface{ Is(error) bool }); ok && is.Is(target) {
			return true
		}
	}
	return IsLocal(errors.Unwrap(err))
}
