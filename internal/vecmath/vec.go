// Package vecmath provides the small 3D vector toolkit used by the kinematics
// engine: spherical-to-Cartesian conversion, sums, magnitudes and unit
// conversions between kilometers, astronomical units and light-years.
package vecmath

import "math"

// Physical constants and unit conversions.
const (
	// SpeedOfLightKmS is the speed of light in vacuum (exact, km/s).
	SpeedOfLightKmS = 299792.458

	// SecondsPerJulianYear is the IAU Julian year (365.25 days) in seconds.
	SecondsPerJulianYear = 365.25 * 86400.0

	// KmPerLightYear is the IAU light-year: c times one Julian year (exact).
	KmPerLightYear = SpeedOfLightKmS * SecondsPerJulianYear

	// KmPerAU is the IAU 2012 astronomical unit in kilometers (exact).
	KmPerAU = 149597870.7

	// EarthMoonKm is the mean Earth-Moon distance in kilometers.
	EarthMoonKm = 384400.0
)

// Vec3 is a Cartesian vector. Units are carried by the caller (km or km/s).
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + u.
func (v Vec3) Add(u Vec3) Vec3 {
	return Vec3{X: v.X + u.X, Y: v.Y + u.Y, Z: v.Z + u.Z}
}

// Sub returns v - u.
func (v Vec3) Sub(u Vec3) Vec3 {
	return Vec3{X: v.X - u.X, Y: v.Y - u.Y, Z: v.Z - u.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and u.
func (v Vec3) Dot(u Vec3) float64 {
	return v.X*u.X + v.Y*u.Y + v.Z*u.Z
}

// Cross returns the cross product v × u.
func (v Vec3) Cross(u Vec3) Vec3 {
	return Vec3{
		X: v.Y*u.Z - v.Z*u.Y,
		Y: v.Z*u.X - v.X*u.Z,
		Z: v.X*u.Y - v.Y*u.X,
	}
}

// Norm returns the Euclidean magnitude of v.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// DistanceTo returns the straight-line distance between v and u.
func (v Vec3) DistanceTo(u Vec3) float64 {
	return v.Sub(u).Norm()
}

// Normalized returns the unit vector along v, or the zero vector if v is zero.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// Array returns the components as a fixed-size array, the shape used by the
// JSON report.
func (v Vec3) Array() [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

// FromSpherical converts a direction (right ascension / longitude and
// declination / latitude, both in degrees) and a magnitude to a Cartesian
// vector: X toward (0°, 0°), Y toward (90°, 0°), Z toward +90°.
func FromSpherical(lonDeg, latDeg, magnitude float64) Vec3 {
	lon := Radians(lonDeg)
	lat := Radians(latDeg)
	cosLat := math.Cos(lat)
	return Vec3{
		X: magnitude * cosLat * math.Cos(lon),
		Y: magnitude * cosLat * math.Sin(lon),
		Z: magnitude * math.Sin(lat),
	}
}

// ToSpherical is the inverse of FromSpherical. Longitude is normalized to
// [0, 360). The zero vector maps to (0, 0, 0).
func ToSpherical(v Vec3) (lonDeg, latDeg, magnitude float64) {
	magnitude = v.Norm()
	if magnitude == 0 {
		return 0, 0, 0
	}
	lonDeg = Degrees(math.Atan2(v.Y, v.X))
	if lonDeg < 0 {
		lonDeg += 360
	}
	latDeg = Degrees(math.Asin(v.Z / magnitude))
	return lonDeg, latDeg, magnitude
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// KmToLightYears converts kilometers to light-years.
func KmToLightYears(km float64) float64 {
	return km / KmPerLightYear
}

// KmToAU converts kilometers to astronomical units.
func KmToAU(km float64) float64 {
	return km / KmPerAU
}
