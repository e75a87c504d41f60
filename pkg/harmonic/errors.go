package harmonic

import (
	"errors"
	"fmt"

	"github.com/chrissnell/pixeltrend/pkg/timeseries"
)

var (
	// ErrInsufficientData is matched by InsufficientDataError
	ErrInsufficientData = errors.New("insufficient data")
	// ErrSingularFit is matched by SingularFitError
	ErrSingularFit = errors.New("singular fit")
	// ErrUnsupportedFrequency is matched by UnsupportedFrequencyError
	ErrUnsupportedFrequency = errors.New("unsupported frequency")
	// ErrInvalidFrequencies is returned for an empty, non-positive or unordered frequency set
	ErrInvalidFrequencies = errors.New("invalid frequency set")
)

// InsufficientDataError reports a band with fewer usable samples than the
// fit requires. It is local to one pixel and band.
type InsufficientDataError struct {
	Band timeseries.Band
	Have int
	Need int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("band %s: %d usable samples, need at least %d", e.Band, e.Have, e.Need)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// SingularFitError reports a rank-deficient design matrix, e.g. when every
// sample shares one timestamp
type SingularFitError struct {
	Band      timeseries.Band
	Condition float64
}

func (e *SingularFitError) Error() string {
	return fmt.Sprintf("band %s: design matrix is singular (condition %.3g)", e.Band, e.Condition)
}

func (e *SingularFitError) Is(target error) bool { return target == ErrSingularFit }

// UnsupportedFrequencyError reports a derived product that needs a frequency
// the model was not fit with. It is a configuration error.
type UnsupportedFrequencyError struct {
	Frequency   int
	Frequencies []int
}

func (e *UnsupportedFrequencyError) Error() string {
	return fmt.Sprintf("frequency %d is required but the model uses %v", e.Frequency, e.Frequencies)
}

func (e *UnsupportedFrequencyError) Is(target error) bool { return target == ErrUnsupportedFrequency }
