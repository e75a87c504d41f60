// Package timeseries holds the per-pixel observation model shared by the
// harmonic, segmented and trajectory packages.
package timeseries

import (
	"fmt"
	"sort"
	"strings"
)

// Band identifies a reflectance band or spectral index
type Band string

const (
	Blue  Band = "blue"
	Green Band = "green"
	Red   Band = "red"
	NIR   Band = "nir"
	SWIR1 Band = "swir1"
	SWIR2 Band = "swir2"
	NDVI  Band = "ndvi"
	NBR   Band = "nbr"
	NDMI  Band = "ndmi"
	EVI   Band = "evi"
	TCB   Band = "tcb" // tasseled cap brightness
	TCG   Band = "tcg" // tasseled cap greenness
	TCW   Band = "tcw" // tasseled cap wetness
)

// Direction tells whether an increase of a band's value is an ecological
// improvement (+1) or a degradation (-1)
type Direction int

const (
	ImprovesUp   Direction = 1
	ImprovesDown Direction = -1
)

// Valid reports whether d is one of the two allowed signs
func (d Direction) Valid() bool {
	return d == ImprovesUp || d == ImprovesDown
}

func (d Direction) String() string {
	switch d {
	case ImprovesUp:
		return "+1"
	case ImprovesDown:
		return "-1"
	default:
		return fmt.Sprintf("invalid(%d)", int(d))
	}
}

// BandInfo is the static registry entry for a known band
type BandInfo struct {
	Band        Band
	Improvement Direction
	Description string
}

// registry maps every supported band to its default improvement direction.
// Vegetation indices and wetness improve upward; reflectance in the visible
// and shortwave infrared rises when vegetation is removed.
var registry = map[Band]BandInfo{
	Blue:  {Blue, ImprovesDown, "surface reflectance, blue"},
	Green: {Green, ImprovesDown, "surface reflectance, green"},
	Red:   {Red, ImprovesDown, "surface reflectance, red"},
	NIR:   {NIR, ImprovesUp, "surface reflectance, near infrared"},
	SWIR1: {SWIR1, ImprovesDown, "surface reflectance, shortwave infrared 1"},
	SWIR2: {SWIR2, ImprovesDown, "surface reflectance, shortwave infrared 2"},
	NDVI:  {NDVI, ImprovesUp, "normalized difference vegetation index"},
	NBR:   {NBR, ImprovesUp, "normalized burn ratio"},
	NDMI:  {NDMI, ImprovesUp, "normalized difference moisture index"},
	EVI:   {EVI, ImprovesUp, "enhanced vegetation index"},
	TCB:   {TCB, ImprovesDown, "tasseled cap brightness"},
	TCG:   {TCG, ImprovesUp, "tasseled cap greenness"},
	TCW:   {TCW, ImprovesUp, "tasseled cap wetness"},
}

// ParseBand resolves a band name case-insensitively against the registry
func ParseBand(name string) (Band, error) {
	b := Band(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := registry[b]; !ok {
		return "", fmt.Errorf("unknown band %q", name)
	}
	return b, nil
}

// Lookup returns the registry entry for b
func Lookup(b Band) (BandInfo, bool) {
	info, ok := registry[b]
	return info, ok
}

// KnownBands returns every registered band in lexical order
func KnownBands() []Band {
	bands := make([]Band, 0, len(registry))
	for b := range registry {
		bands = append(bands, b)
	}
	SortBands(bands)
	return bands
}

// SortBands orders bands lexically in place
func SortBands(bands []Band) {
	sort.Slice(bands, func(i, j int) bool { return bands[i] < bands[j] })
}
