package transform

import "github.com/NixVir/whereami-web/internal/vecmath"

// NominalEarthRadiusKm is the IUGG mean Earth radius. The engine treats the
// Earth as a sphere for geocentric positions; the ellipsoid correction (<22 km)
// is far below the cosmic terms it is added to.
const NominalEarthRadiusKm = 6371.0088

// GeocentricPosition returns the Earth-fixed (ECEF) position in km of a point on
// the nominal sphere at the given geographic latitude/longitude (degrees).
func GeocentricPosition(latDeg, lonDeg float64) vecmath.Vec3 {
	return vecmath.FromSpherical(lonDeg, latDeg, NominalEarthRadiusKm)
}
