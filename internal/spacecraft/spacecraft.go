// Package spacecraft ranks reference spacecraft speeds against a travelled
// distance: how long the fastest human-made objects would take to cover it.
package spacecraft

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/NixVir/whereami-web/internal/vecmath"
)

// DefaultTop is the number of comparisons returned when the caller asks for none.
const DefaultTop = 5

// ErrInvalidCatalog is returned for an empty catalog, a non-positive speed or two craft at the same speed.
var ErrInvalidCatalog = errors.New("invalid spacecraft catalog")

// Spacecraft is one reference entry. Speeds are peak heliocentric speeds.
type Spacecraft struct {
	Name     string  `toml:"name" json:"name"`
	SpeedKmS float64 `toml:"speed_km_s" json:"speed_km_s"`
	Year     int     `toml:"year" json:"year"`
	Record   string  `toml:"record" json:"record"`
}

// SpeedKmH returns the speed in km/h.
func (s Spacecraft) SpeedKmH() float64 {
	return s.SpeedKmS * 3600
}

// Unit names the unit a travel time is presented in.
type Unit string

const (
	Days  Unit = "days"
	Years Unit = "years"
)

// Comparison is the travel time of one spacecraft over the distance.
type Comparison struct {
	Spacecraft
	TravelTimeSeconds float64
	TravelTimeYears   float64
	TravelTime        float64 // in TravelTimeUnit
	TravelTimeUnit    Unit
}

var defaultCraft = []Spacecraft{
	{Name: "Parker Solar Probe", SpeedKmS: 163.0, Year: 2021, Record: "Fastest human-made object ever"},
	{Name: "Juno", SpeedKmS: 73.61, Year: 2016, Record: "Fastest Jupiter mission"},
	{Name: "Helios 2", SpeedKmS: 70.22, Year: 1976, Record: "Held speed record for 45 years"},
	{Name: "Helios 1", SpeedKmS: 68.75, Year: 1975, Record: "First to exceed 240,000 km/h"},
	{Name: "New Horizons", SpeedKmS: 58.54, Year: 2015, Record: "Fastest Earth departure velocity"},
	{Name: "Voyager 1", SpeedKmS: 17.0, Year: 1977, Record: "Farthest human-made object"},
	{Name: "Voyager 2", SpeedKmS: 15.4, Year: 1977, Record: "Only spacecraft to visit Uranus and Neptune"},
}

// Comparator holds a reference catalog sorted by descending speed.
// It is read-only after construction.
type Comparator struct {
	craft []Spacecraft
}

// New validates craft and returns a Comparator. The slice is copied.
func New(craft []Spacecraft) (*Comparator, error) {
	if len(craft) == 0 {
		return nil, fmt.Errorf("%w: no spacecraft", ErrInvalidCatalog)
	}
	sorted := make([]Spacecraft, len(craft))
	copy(sorted, craft)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].SpeedKmS > sorted[j].SpeedKmS })

	for i, s := range sorted {
		if s.Name == "" {
			return nil, fmt.Errorf("%w: entry without a name", ErrInvalidCatalog)
		}
		if math.IsNaN(s.SpeedKmS) || math.IsInf(s.SpeedKmS, 0) || s.SpeedKmS <= 0 {
			return nil, fmt.Errorf("%w: %s has speed %v", ErrInvalidCatalog, s.Name, s.SpeedKmS)
		}
		if i > 0 && sorted[i-1].SpeedKmS == s.SpeedKmS {
			return nil, fmt.Errorf("%w: %s and %s share speed %v", ErrInvalidCatalog, sorted[i-1].Name, s.Name, s.SpeedKmS)
		}
	}
	return &Comparator{craft: sorted}, nil
}

// Default returns the built-in comparator.
func Default() *Comparator {
	c, err := New(defaultCraft)
	if err != nil {
		panic(fmt.Sprintf("built-in spacecraft catalog: %v", err))
	}
	return c
}

// Load returns the built-in comparator, or the catalog in path when path is non-empty.
//
//	[[spacecraft]]
//	name = "Parker Solar Probe"
//	speed_km_s = 163.0
//	year = 2021
//	record = "Fastest human-made object ever"
func Load(path string) (*Comparator, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening spacecraft file: %w", err)
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("spacecraft file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a TOML spacecraft catalog.
func Parse(r io.Reader) (*Comparator, error) {
	var doc struct {
		Spacecraft []Spacecraft `toml:"spacecraft"`
	}
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing spacecraft catalog: %w", err)
	}
	return New(doc.Spacecraft)
}

// Spacecraft returns the catalog, fastest first. The returned slice is a copy.
func (c *Comparator) Spacecraft() []Spacecraft {
	out := make([]Spacecraft, len(c.craft))
	copy(out, c.craft)
	return out
}

// Compare returns the travel time over distanceKm for the top fastest craft,
// fastest first. top <= 0 means DefaultTop; the result has min(top, catalog
// size) entries. Travel times under a year are presented in days.
func (c *Comparator) Compare(distanceKm float64, top int) []Comparison {
	if top <= 0 {
		top = DefaultTop
	}
	if top > len(c.craft) {
		top = len(c.craft)
	}
	distanceKm = math.Abs(distanceKm)

	out := make([]Comparison, 0, top)
	for _, s := range c.craft[:top] {
		secs := distanceKm / s.SpeedKmS
		years := secs / vecmath.SecondsPerJulianYear
		cmp := Comparison{
			Spacecraft:        s,
			TravelTimeSeconds: secs,
			TravelTimeYears:   years,
			TravelTime:        years,
			TravelTimeUnit:    Years,
		}
		if years < 1 {
			cmp.TravelTime = secs / 86400
			cmp.TravelTimeUnit = Days
		}
		out = append(out, cmp)
	}
	return out
}
