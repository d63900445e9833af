// Package kinematics resolves the two velocity components that depend on the
// event itself: the observer's motion from Earth's rotation and Earth's
// orbital motion around the Sun. All vectors are km/s in the J2000 equatorial
// frame.
package kinematics

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/unit"

	"github.com/NixVir/whereami-web/internal/transform"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

// ErrOutOfRange is returned for a latitude outside ±90° or an instant outside
// the supported calendar years.
var ErrOutOfRange = errors.New("out of range")

// Supported UTC years, inclusive. Local calendar years run 1900-9999; the
// extra year on each side admits their UTC spill-over across timezones.
const (
	MinYear = 1899
	MaxYear = 10000
)

// spinAxis is Earth's rotation axis, the equatorial +Z.
var spinAxis = vecmath.Vec3{Z: 1}

// TropicalYearDays is the mean tropical year in days.
const TropicalYearDays = 365.24219

// sunMeanLongitudeJ2000 is the Sun's geometric mean longitude at J2000.0, degrees.
const sunMeanLongitudeJ2000 = 280.46646

// Earth holds the reference speeds of Earth's spin and orbit.
type Earth struct {
	EquatorialSpeedKmS float64
	OrbitalSpeedKmS    float64
}

// NewEarth returns an Earth with the given equatorial rotation and mean orbital speeds.
func NewEarth(equatorialKmS, orbitalKmS float64) Earth {
	return Earth{EquatorialSpeedKmS: equatorialKmS, OrbitalSpeedKmS: orbitalKmS}
}

func checkLatitude(latDeg float64) error {
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return fmt.Errorf("latitude %v: %w", latDeg, ErrOutOfRange)
	}
	return nil
}

func checkTime(t time.Time) error {
	if y := t.UTC().Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("year %d outside [%d, %d]: %w", y, MinYear, MaxYear, ErrOutOfRange)
	}
	return nil
}

// RotationalSpeed returns the eastward surface speed at latDeg:
// the equatorial speed scaled by cos(latitude).
func (e Earth) RotationalSpeed(latDeg float64) (float64, error) {
	if err := checkLatitude(latDeg); err != nil {
		return 0, err
	}
	return e.EquatorialSpeedKmS * math.Cos(vecmath.Radians(latDeg)), nil
}

// RotationalVelocity returns the observer's velocity from Earth's spin at
// geographic latitude/longitude (degrees) and instant t. The observer's unit
// position is carried into inertial space through the local sidereal angle θ
// and the velocity is the spin axis crossed with it:
//
//	v = v_eq · ẑ × r̂ = v_eq · cos φ · (-sin θ, cos θ, 0)
func (e Earth) RotationalVelocity(latDeg, lonDeg float64, t time.Time) (vecmath.Vec3, error) {
	if err := checkLatitude(latDeg); err != nil {
		return vecmath.Vec3{}, err
	}
	if err := checkTime(t); err != nil {
		return vecmath.Vec3{}, err
	}
	r := transform.RotateZ(vecmath.FromSpherical(0, latDeg, 1), transform.LocalSiderealAngle(t, lonDeg))
	v := spinAxis.Cross(r).Scale(e.EquatorialSpeedKmS)
	return v, nil
}

// OrbitalPhase returns Earth's orbital phase at t as a fraction of the
// tropical year in [0, 1), zero at the mean March equinox.
func OrbitalPhase(t time.Time) float64 {
	return SunMeanLongitude(t).Rad() / (2 * math.Pi)
}

// SunMeanLongitude returns the Sun's geocentric mean ecliptic longitude at t,
// advancing uniformly over the tropical year. It is the true longitude of a
// circular orbit and differs from the real Sun by under 2°.
func SunMeanLongitude(t time.Time) unit.Angle {
	days := transform.DaysSinceJ2000(t)
	return unit.AngleFromDeg(sunMeanLongitudeJ2000 + 360*days/TropicalYearDays).Mod1()
}

// MeanObliquity returns the mean obliquity of the ecliptic at t in radians.
func MeanObliquity(t time.Time) float64 {
	// TT-UT (about a minute) is below the resolution that matters here.
	return nutation.MeanObliquity(transform.JulianDate(t)).Rad()
}

// OrbitalVelocity returns Earth's heliocentric orbital velocity at t under
// the uniform circular approximation (eccentricity ignored). Earth sits
// opposite the Sun, at ecliptic longitude λ☉+180°, and moves toward λ☉-90°:
//
//	v_ecl = v_orb · (sin λ☉, -cos λ☉, 0)
//
// rotated to equatorial by the mean obliquity.
func (e Earth) OrbitalVelocity(t time.Time) (vecmath.Vec3, error) {
	if err := checkTime(t); err != nil {
		return vecmath.Vec3{}, err
	}
	lambda := SunMeanLongitude(t)
	ecl := vecmath.Vec3{
		X: e.OrbitalSpeedKmS * lambda.Sin(),
		Y: -e.OrbitalSpeedKmS * lambda.Cos(),
	}
	return transform.EclipticToEquatorial(ecl, MeanObliquity(t)), nil
}
