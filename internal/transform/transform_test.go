package transform

import (
	"math"
	"testing"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/NixVir/whereami-web/internal/vecmath"
)

// angleDiff returns the absolute difference between two angles in radians,
// accounting for wraparound at 2π.
func angleDiff(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 2*math.Pi)
	if d > math.Pi {
		d = 2*math.Pi - d
	}
	return d
}

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name     string
		time     time.Time
		expected float64
	}{
		{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 2451545.0},
		{"Unix epoch", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), 2440587.5},
		{"lower bound", time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC), 2415020.5},
		{"upper bound", time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), 5373483.5},
		{"non-UTC zone", time.Date(2000, 1, 1, 7, 0, 0, 0, time.FixedZone("EST", -5*3600)), 2451545.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JulianDate(tt.time)
			if diff := math.Abs(got - tt.expected); diff > 1e-6 {
				t.Errorf("JulianDate(%v) = %.10f, want %.10f (diff=%.2e)", tt.time, got, tt.expected, diff)
			}
		})
	}
}

// TestJulianDateMatchesMeeus cross-checks the calendar conversion against the
// meeus implementation across the supported year range.
func TestJulianDateMatchesMeeus(t *testing.T) {
	for _, year := range []int{1900, 1961, 2000, 2025, 4000, 9999} {
		tm := time.Date(year, 7, 15, 18, 30, 0, 0, time.UTC)
		ours := JulianDate(tm)
		ref := julian.TimeToJD(tm)
		if diff := math.Abs(ours - ref); diff > 1e-6 {
			t.Errorf("year %d: JulianDate = %.8f, meeus = %.8f", year, ours, ref)
		}
	}
}

// TestGMST validates GMST against go-satellite's GSTimeFromDate (same IAU-82
// model) and meeus' mean sidereal time.
func TestGMST(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
	}{
		{"J2000.0 epoch", time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"Vallado example date", time.Date(2004, 4, 6, 7, 51, 28, 0, time.UTC)},
		{"birth example", time.Date(1961, 10, 15, 12, 0, 0, 0, time.UTC)},
		{"current example", time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			our := GMST(tt.time)
			if our < 0 || our >= 2*math.Pi {
				t.Fatalf("GMST out of range: %v", our)
			}

			ref := satellite.GSTimeFromDate(
				tt.time.Year(), int(tt.time.Month()), tt.time.Day(),
				tt.time.Hour(), tt.time.Minute(), tt.time.Second(),
			)
			if diff := angleDiff(our, ref); diff > 1e-8 {
				t.Errorf("GMST = %.12f rad, go-satellite = %.12f rad (diff=%.2e)", our, ref, diff)
			}

			mref := sidereal.Mean(julian.TimeToJD(tt.time)).Rad()
			if diff := angleDiff(our, mref); diff > 1e-6 {
				t.Errorf("GMST = %.12f rad, meeus = %.12f rad (diff=%.2e)", our, mref, diff)
			}
		})
	}
}

func TestLocalSiderealAngle(t *testing.T) {
	tm := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	g := GMST(tm)

	if diff := angleDiff(LocalSiderealAngle(tm, 0), g); diff > 1e-12 {
		t.Errorf("longitude 0 should equal GMST, diff=%.2e", diff)
	}
	if diff := angleDiff(LocalSiderealAngle(tm, 90), g+math.Pi/2); diff > 1e-12 {
		t.Errorf("longitude 90 should lead GMST by π/2, diff=%.2e", diff)
	}
	west := LocalSiderealAngle(tm, -179.9)
	if west < 0 || west >= 2*math.Pi {
		t.Errorf("local sidereal angle not normalized: %v", west)
	}
}

func TestGalacticToEquatorial(t *testing.T) {
	tests := []struct {
		name    string
		l, b    float64
		ra, dec float64
	}{
		{"north galactic pole", 0, 90, 192.8595, 27.1283},
		{"galactic rotation apex", 90, 0, 318.0044, 48.3296},
		{"galactic center", 0, 0, 266.4050, -28.9362},
		{"CMB dipole", 264.021, 48.253, 167.9419, -6.9443},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra, dec := GalacticToEquatorial(tt.l, tt.b)
			if math.Abs(ra-tt.ra) > 1e-3 || math.Abs(dec-tt.dec) > 1e-3 {
				t.Errorf("GalacticToEquatorial(%v, %v) = (%.4f, %.4f), want (%.4f, %.4f)",
					tt.l, tt.b, ra, dec, tt.ra, tt.dec)
			}
		})
	}
}

func TestEclipticToEquatorial(t *testing.T) {
	eps := 23.4392911 * math.Pi / 180

	// The ecliptic pole maps to dec = 90 - ε at RA 270.
	pole := EclipticToEquatorial(vecmath.Vec3{Z: 1}, eps)
	ra, dec, mag := vecmath.ToSpherical(pole)
	if math.Abs(ra-270) > 1e-9 || math.Abs(dec-(90-23.4392911)) > 1e-9 {
		t.Errorf("ecliptic pole = (%.6f, %.6f), want (270, %.6f)", ra, dec, 90-23.4392911)
	}
	if math.Abs(mag-1) > 1e-12 {
		t.Errorf("rotation changed magnitude: %v", mag)
	}

	// The equinox direction is shared by both frames.
	x := EclipticToEquatorial(vecmath.Vec3{X: 5}, eps)
	if x != (vecmath.Vec3{X: 5}) {
		t.Errorf("equinox direction moved: %+v", x)
	}
}

func TestRotateZ(t *testing.T) {
	got := RotateZ(vecmath.Vec3{X: 1, Z: 2}, math.Pi/2)
	if math.Abs(got.X) > 1e-12 || math.Abs(got.Y-1) > 1e-12 || got.Z != 2 {
		t.Errorf("RotateZ(x, π/2) = %+v, want (0, 1, 2)", got)
	}
}

func TestGeocentricPosition(t *testing.T) {
	for _, p := range [][2]float64{{0, 0}, {90, 0}, {-33.87, 151.21}, {40.7128, -74.006}} {
		pos := GeocentricPosition(p[0], p[1])
		if math.Abs(pos.Norm()-NominalEarthRadiusKm) > 1e-9 {
			t.Errorf("GeocentricPosition(%v) magnitude = %.6f km, want %.6f", p, pos.Norm(), NominalEarthRadiusKm)
		}
	}
}
