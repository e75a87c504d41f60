package trajectory

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Rule names the criterion used to pick events of one direction
type Rule string

const (
	Newest      Rule = "newest"
	Oldest      Rule = "oldest"
	Largest     Rule = "largest"
	Smallest    Rule = "smallest"
	Steepest    Rule = "steepest"
	MostGradual Rule = "mostGradual"
	Shortest    Rule = "shortest"
	Longest     Rule = "longest"
)

var rules = []Rule{Newest, Oldest, Largest, Smallest, Steepest, MostGradual, Shortest, Longest}

// keyResolution quantizes magnitudes and slopes before comparing them, so
// values that differ only by floating point noise tie
const keyResolution = 1e-9

// ParseRule accepts rule names case-insensitively, with or without
// separators ("mostGradual", "most_gradual", "most-gradual")
func ParseRule(name string) (Rule, error) {
	norm := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(name))
	for _, r := range rules {
		if strings.ToLower(string(r)) == norm {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown selection rule %q", name)
}

// SelectTopK orders a copy of events by rule and returns at most k of them.
// Ties go to the later end year, then to input order.
func SelectTopK(events []ChangeEvent, rule Rule, k int) ([]ChangeEvent, error) {
	rule, err := ParseRule(string(rule))
	if err != nil {
		return nil, err
	}
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	out := append([]ChangeEvent(nil), events...)
	sortByRule(out, rule)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func sortByRule(events []ChangeEvent, rule Rule) {
	sort.SliceStable(events, func(i, j int) bool {
		if c := compare(rule, events[i], events[j]); c != 0 {
			return c < 0
		}
		return events[i].EndYear > events[j].EndYear
	})
}

// compare returns a negative number when a ranks before b under rule
func compare(rule Rule, a, b ChangeEvent) int {
	switch rule {
	case Newest:
		return b.EndYear - a.EndYear
	case Oldest:
		return a.StartYear - b.StartYear
	case Largest:
		return cmpFloat(quantize(b.Magnitude), quantize(a.Magnitude))
	case Smallest:
		return cmpFloat(quantize(a.Magnitude), quantize(b.Magnitude))
	case Steepest:
		return cmpFloat(quantize(b.Slope), quantize(a.Slope))
	case MostGradual:
		return cmpFloat(quantize(a.Slope), quantize(b.Slope))
	case Shortest:
		return a.Duration - b.Duration
	case Longest:
		return b.Duration - a.Duration
	}
	return 0
}

func quantize(v float64) float64 {
	return math.Round(math.Abs(v) / keyResolution)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
