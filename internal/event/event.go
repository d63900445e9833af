// Package event defines SpacetimeEvent, the validated (instant, place) pair the
// kinematics engine composes velocities for, and the input parsing that
// produces it.
package event

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidEvent is returned for a date outside the supported years, a
// malformed date, time or timezone, or out-of-range coordinates.
var ErrInvalidEvent = errors.New("invalid event")

// Supported calendar years, inclusive.
const (
	MinYear = 1900
	MaxYear = 9999
)

// SpacetimeEvent is an instant and a geographic position. It is immutable:
// fields are set once by New or Parse and only read afterwards.
type SpacetimeEvent struct {
	instant time.Time
	zone    string
	lat     float64
	lon     float64
	address string
}

// New validates and builds an event at instant t (in the caller's zone) and
// geographic latitude/longitude in degrees.
//
// The local calendar year must fall in [MinYear, MaxYear]; the UTC instant
// may spill one year beyond either bound.
func New(t time.Time, latDeg, lonDeg float64) (SpacetimeEvent, error) {
	if t.IsZero() {
		return SpacetimeEvent{}, fmt.Errorf("%w: missing instant", ErrInvalidEvent)
	}
	if err := checkYear(t.Year()); err != nil {
		return SpacetimeEvent{}, err
	}
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return SpacetimeEvent{}, fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidEvent, latDeg)
	}
	if math.IsNaN(lonDeg) || lonDeg < -180 || lonDeg > 180 {
		return SpacetimeEvent{}, fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidEvent, lonDeg)
	}

	zone, _ := t.Zone()
	return SpacetimeEvent{instant: t, zone: zone, lat: latDeg, lon: lonDeg}, nil
}

func checkYear(y int) error {
	if y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: year %d outside [%d, %d]", ErrInvalidEvent, y, MinYear, MaxYear)
	}
	return nil
}

// WithAddress returns a copy of e labelled with a display address.
func (e SpacetimeEvent) WithAddress(address string) SpacetimeEvent {
	e.address = address
	return e
}

// WithZoneLabel returns a copy of e whose zone is reported as label. The instant is unchanged.
func (e SpacetimeEvent) WithZoneLabel(label string) SpacetimeEvent {
	if label != "" {
		e.zone = label
	}
	return e
}

// Time returns the instant in the zone it was given in.
func (e SpacetimeEvent) Time() time.Time { return e.instant }

// UTC returns the instant in UTC.
func (e SpacetimeEvent) UTC() time.Time { return e.instant.UTC() }

// Latitude returns the geographic latitude in degrees, as given.
func (e SpacetimeEvent) Latitude() float64 { return e.lat }

// Longitude returns the geographic longitude in degrees, as given.
func (e SpacetimeEvent) Longitude() float64 { return e.lon }

// Address returns the display address, if any.
func (e SpacetimeEvent) Address() string { return e.address }

// Zone returns the timezone label.
func (e SpacetimeEvent) Zone() string { return e.zone }

// TimezoneOffset returns the UTC offset in effect at the instant, in seconds east of UTC.
func (e SpacetimeEvent) TimezoneOffset() int {
	_, off := e.instant.Zone()
	return off
}

// CalendarDate returns the local date as YYYY-MM-DD.
func (e SpacetimeEvent) CalendarDate() string { return e.instant.Format(time.DateOnly) }

// TimeOfDay returns the local time as HH:MM:SS.
func (e SpacetimeEvent) TimeOfDay() string { return e.instant.Format(time.TimeOnly) }

// Before reports whether e happens strictly before o.
func (e SpacetimeEvent) Before(o SpacetimeEvent) bool { return e.instant.Before(o.instant) }

// Equal reports whether e and o are the same instant at the same place.
func (e SpacetimeEvent) Equal(o SpacetimeEvent) bool {
	return e.instant.Equal(o.instant) && e.lat == o.lat && e.lon == o.lon
}

// String formats the event for logs.
func (e SpacetimeEvent) String() string {
	return fmt.Sprintf("%s @ (%.4f, %.4f)", e.instant.Format(time.RFC3339), e.lat, e.lon)
}
