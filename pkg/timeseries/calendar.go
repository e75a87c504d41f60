package timeseries

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// FractionalYear converts t to a decimal year using the Julian day of
// January 1st as the year origin, so 2020-07-02T00:00Z is 2020 + 183/366.
func FractionalYear(t time.Time) float64 {
	t = t.UTC()
	y := t.Year()
	start := julian.CalendarGregorianToJD(y, 1, 1)
	end := julian.CalendarGregorianToJD(y+1, 1, 1)
	return float64(y) + (julian.TimeToJD(t)-start)/(end-start)
}

// TimeFromFractionalYear is the inverse of FractionalYear
func TimeFromFractionalYear(f float64) time.Time {
	y := int(math.Floor(f))
	start := julian.CalendarGregorianToJD(y, 1, 1)
	end := julian.CalendarGregorianToJD(y+1, 1, 1)
	return julian.JDToTime(start + (f-float64(y))*(end-start)).UTC()
}

// DaysInYear returns 366 for Gregorian leap years and 365 otherwise
func DaysInYear(y int) int {
	if julian.LeapYearGregorian(y) {
		return 366
	}
	return 365
}

// DayOfYear returns the 1-based day of year containing fractional year f
func DayOfYear(f float64) int {
	y := math.Floor(f)
	days := DaysInYear(int(y))
	d := int(math.Floor((f-y)*float64(days))) + 1
	if d > days {
		d = days
	}
	return d
}
