// Package displacement derives how far an Earth-bound observer moved between
// two composed events.
//
// Two distances are reported and must not be confused:
//
//   - Magnitude is path length: the current CMB-frame speed held over the
//     elapsed time, plus the straight geocentric offset between the two places.
//   - Cosmic separation is an endpoint distance: how far the point reached by
//     integrating velocity from birth to now (trapezoid over the two states)
//     lies from where the birth state's velocity alone would have carried it.
package displacement

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

// ErrInvalidOrdering is returned when the current event precedes the birth
// event and reverse mode was not requested.
var ErrInvalidOrdering = errors.New("current event precedes birth event")

// Options tune Displace.
type Options struct {
	// AllowReverse accepts a current event earlier than the birth event.
	// Elapsed time is then negative and the per-axis vector flips sign.
	AllowReverse bool
}

// Result is the displacement between two events.
type Result struct {
	MagnitudeKm              float64
	MagnitudeLy              float64
	MagnitudeAU              float64
	TimeElapsedYears         float64
	TimeElapsedSeconds       float64
	PerAxisKm                vecmath.Vec3
	CosmicSeparationKm       float64
	CosmicSeparationLy       float64
	GeocentricDisplacementKm float64
	Reversed                 bool
}

// Displace computes the displacement from birth to current.
func Displace(birth, current compose.ComposedState, opts Options) (Result, error) {
	reversed := current.Event.Before(birth.Event)
	if reversed && !opts.AllowReverse {
		return Result{}, fmt.Errorf("%w: birth %s, current %s", ErrInvalidOrdering,
			birth.Event.UTC().Format(time.RFC3339), current.Event.UTC().Format(time.RFC3339))
	}

	bt, ct := birth.Event.UTC(), current.Event.UTC()
	dt := ElapsedSeconds(bt, ct)
	var years float64
	later := current
	if reversed {
		years = -ElapsedYears(ct, bt)
		later = birth
	} else {
		years = ElapsedYears(bt, ct)
	}

	geo := current.GeocentricPositionKm.Sub(birth.GeocentricPositionKm)
	geoKm := geo.Norm()

	magnitude := later.TotalMagnitudeKmS*math.Abs(dt) + geoKm

	// Trapezoid over the two states for the travelled vector.
	mean := birth.Total.Add(current.Total).Scale(0.5)
	perAxis := geo.Add(mean.Scale(dt))

	// Expected endpoint: birth velocity held for dt. Actual endpoint: perAxis.
	separation := perAxis.Sub(birth.Total.Scale(dt)).Norm()

	return Result{
		MagnitudeKm:              magnitude,
		MagnitudeLy:              vecmath.KmToLightYears(magnitude),
		MagnitudeAU:              vecmath.KmToAU(magnitude),
		TimeElapsedYears:         years,
		TimeElapsedSeconds:       dt,
		PerAxisKm:                perAxis,
		CosmicSeparationKm:       separation,
		CosmicSeparationLy:       vecmath.KmToLightYears(separation),
		GeocentricDisplacementKm: geoKm,
		Reversed:                 reversed,
	}, nil
}
