// Package transform provides the time scales and coordinate frame rotations the
// kinematics engine needs.
//
// All velocity vectors are expressed in the J2000 equatorial frame (ICRS-aligned):
// X toward the vernal equinox, Z toward the celestial north pole. Directions
// catalogued in galactic or ecliptic coordinates are rotated into that frame
// here. Geographic positions stay Earth-fixed (ECEF) and are rotated through the
// sidereal angle only when an inertial direction is needed.
//
// Reference: Vallado, "Fundamentals of Astrodynamics and Applications", Ch. 3;
// Hipparcos catalogue vol. 1 §1.5.3 for the galactic rotation matrix.
package transform

import (
	"math"

	"github.com/NixVir/whereami-web/internal/vecmath"
)

// galacticToEquatorial is the transpose of the Hipparcos equatorial->galactic
// matrix A_G. Rows map galactic unit vectors to J2000 equatorial components.
var galacticToEquatorial = [3][3]float64{
	{-0.0548755604162154, 0.4941094278755837, -0.8676661490190047},
	{-0.8734370902348850, -0.4448296299600112, -0.1980763734312015},
	{-0.4838350155487132, 0.7469822444972189, 0.4559837761750669},
}

// GalacticToEquatorial converts galactic longitude/latitude (degrees) to J2000
// right ascension/declination (degrees, RA in [0, 360)).
func GalacticToEquatorial(lDeg, bDeg float64) (raDeg, decDeg float64) {
	g := vecmath.FromSpherical(lDeg, bDeg, 1)
	m := galacticToEquatorial
	eq := vecmath.Vec3{
		X: m[0][0]*g.X + m[0][1]*g.Y + m[0][2]*g.Z,
		Y: m[1][0]*g.X + m[1][1]*g.Y + m[1][2]*g.Z,
		Z: m[2][0]*g.X + m[2][1]*g.Y + m[2][2]*g.Z,
	}
	raDeg, decDeg, _ = vecmath.ToSpherical(eq)
	return raDeg, decDeg
}

// EclipticToEquatorial rotates an ecliptic-frame vector into the equatorial
// frame about the shared X axis by the obliquity eps (radians).
//
//	x_eq = x
//	y_eq = y cos ε - z sin ε
//	z_eq = y sin ε + z cos ε
func EclipticToEquatorial(v vecmath.Vec3, eps float64) vecmath.Vec3 {
	cosE := math.Cos(eps)
	sinE := math.Sin(eps)
	return vecmath.Vec3{
		X: v.X,
		Y: v.Y*cosE - v.Z*sinE,
		Z: v.Y*sinE + v.Z*cosE,
	}
}

// RotateZ rotates v by angle (radians) about the Z axis, counter-clockwise when
// viewed from +Z. Used to carry Earth-fixed vectors into the inertial frame
// through the sidereal angle.
func RotateZ(v vecmath.Vec3, angle float64) vecmath.Vec3 {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return vecmath.Vec3{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
		Z: v.Z,
	}
}
