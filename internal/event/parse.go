package event

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // IANA zones must resolve in minimal containers
)

// DefaultTimeOfDay is used when an input carries a date but no time.
const DefaultTimeOfDay = "12:00:00"

// Input is the raw, unvalidated form of an event as supplied by a caller.
type Input struct {
	Date      string // YYYY-MM-DD
	Time      string // HH:MM or HH:MM:SS, optional
	Timezone  string // IANA name, alias, or ±HH:MM offset; empty means UTC
	Latitude  float64
	Longitude float64
	Address   string
}

// zoneAliases maps common abbreviations and region names to IANA zones.
var zoneAliases = map[string]string{
	"eastern":  "America/New_York",
	"est":      "America/New_York",
	"edt":      "America/New_York",
	"et":       "America/New_York",
	"central":  "America/Chicago",
	"cst":      "America/Chicago",
	"cdt":      "America/Chicago",
	"ct":       "America/Chicago",
	"mountain": "America/Denver",
	"mst":      "America/Denver",
	"mdt":      "America/Denver",
	"mt":       "America/Denver",
	"pacific":  "America/Los_Angeles",
	"pst":      "America/Los_Angeles",
	"pdt":      "America/Los_Angeles",
	"pt":       "America/Los_Angeles",
	"alaska":   "America/Anchorage",
	"akst":     "America/Anchorage",
	"akdt":     "America/Anchorage",
	"hawaii":   "Pacific/Honolulu",
	"hst":      "Pacific/Honolulu",
	"gmt":      "GMT",
	"utc":      "UTC",
	"z":        "UTC",
	"bst":      "Europe/London",
	"cet":      "Europe/Paris",
	"jst":      "Asia/Tokyo",
	"aest":     "Australia/Sydney",
}

// Parse validates in and builds the event it describes.
func Parse(in Input) (SpacetimeEvent, error) {
	date := strings.TrimSpace(in.Date)
	if date == "" {
		return SpacetimeEvent{}, fmt.Errorf("%w: missing date", ErrInvalidEvent)
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return SpacetimeEvent{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", ErrInvalidEvent, in.Date)
	}
	if err := checkYear(d.Year()); err != nil {
		return SpacetimeEvent{}, err
	}

	clock, err := parseTimeOfDay(in.Time)
	if err != nil {
		return SpacetimeEvent{}, err
	}

	loc, err := ResolveZone(in.Timezone)
	if err != nil {
		return SpacetimeEvent{}, err
	}

	t := time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, loc)
	e, err := New(t, in.Latitude, in.Longitude)
	if err != nil {
		return SpacetimeEvent{}, err
	}
	return e.WithAddress(strings.TrimSpace(in.Address)).WithZoneLabel(strings.TrimSpace(in.Timezone)), nil
}

func parseTimeOfDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DefaultTimeOfDay
	}
	for _, layout := range []string{time.TimeOnly, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: time %q: want HH:MM or HH:MM:SS", ErrInvalidEvent, s)
}

// ResolveZone turns a timezone label into a location. It accepts IANA names,
// the aliases in zoneAliases (case-insensitive) and fixed offsets such as
// "+05:30" or "-0800". The empty label is UTC.
func ResolveZone(label string) (*time.Location, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return time.UTC, nil
	}
	if name, ok := zoneAliases[strings.ToLower(label)]; ok {
		label = name
	}
	if label[0] == '+' || label[0] == '-' {
		return parseOffset(label)
	}
	loc, err := time.LoadLocation(label)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidEvent, label)
	}
	return loc, nil
}

func parseOffset(s string) (*time.Location, error) {
	for _, layout := range []string{"-07:00", "-0700", "-07"} {
		if t, err := time.Parse(layout, s); err == nil {
			_, off := t.Zone()
			return time.FixedZone("UTC"+s, off), nil
		}
	}
	return nil, fmt.Errorf("%w: timezone offset %q: want ±HH:MM", ErrInvalidEvent, s)
}
