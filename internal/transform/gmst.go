package transform

import (
	"math"
	"time"
)

// J2000 is the Julian Date of the J2000.0 epoch (January 1, 2000, 12:00:00 TT).
const J2000 = 2451545.0

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// daysPerJulianCentury is the length of a Julian century in days.
const daysPerJulianCentury = 36525.0

// JulianDate converts a time.Time (any zone, evaluated in UTC) to a Julian Date
// on the proleptic Gregorian calendar. Valid for the whole 1900-9999 range the
// engine accepts.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())
	dayFrac := (float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0) / 24.0

	// January and February count as months 13 and 14 of the previous year.
	if m <= 2 {
		y--
		m += 12
	}

	a := math.Floor(y / 100)
	b := 2 - a + math.Floor(a/4)

	return math.Floor(365.25*(y+4716)) + math.Floor(30.6001*(m+1)) + d + b - 1524.5 + dayFrac
}

// DaysSinceJ2000 returns the (fractional) number of days between J2000.0 and t.
func DaysSinceJ2000(t time.Time) float64 {
	return JulianDate(t) - J2000
}

// JulianCenturies returns Julian centuries since J2000.0.
func JulianCenturies(t time.Time) float64 {
	return DaysSinceJ2000(t) / daysPerJulianCentury
}

// GMST returns Greenwich Mean Sidereal Time in radians, normalized to [0, 2π),
// using the IAU-82 expression (Vallado Eq 3-47):
//
//	θ_GMST = 67310.54841 + (876600h + 8640184.812866)*T + 0.093104*T² - 6.2e-6*T³
//
// with T in Julian centuries of UT1 from J2000.0 and θ in seconds of time.
// UTC stands in for UT1 (|UT1-UTC| < 0.9 s).
func GMST(t time.Time) float64 {
	tUT1 := JulianCenturies(t)

	gmstSec := 67310.54841 +
		(876600.0*3600.0+8640184.812866)*tUT1 +
		0.093104*tUT1*tUT1 -
		6.2e-6*tUT1*tUT1*tUT1

	gmstSec = math.Mod(gmstSec, 86400.0)
	if gmstSec < 0 {
		gmstSec += 86400.0
	}
	return gmstSec / 86400.0 * 2.0 * math.Pi
}

// LocalSiderealAngle returns the local mean sidereal angle (radians, [0, 2π))
// of an observer at east longitude lonDeg: the angle between the vernal equinox
// and the observer's meridian, measured eastward.
func LocalSiderealAngle(t time.Time, lonDeg float64) float64 {
	theta := math.Mod(GMST(t)+lonDeg*math.Pi/180.0, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}
