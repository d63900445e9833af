package catalog

import "fmt"

// Frame names of the built-in catalog.
const (
	CMBFrame            = "cmb_frame"
	GreatAttractor      = "great_attractor"
	VirgoMotion         = "virgo_motion"
	LocalGroup          = "local_group"
	GalacticOscillation = "galactic_oscillation"
	GalacticRotation    = "galactic_rotation"
	SolarSystemLSR      = "solar_system_lsr"
	EarthOrbit          = "earth_orbit"
	EarthRotation       = "earth_rotation"
)

// Reference speeds used by the Earth entries.
const (
	// EarthOrbitalSpeedKmS is Earth's mean heliocentric orbital speed.
	EarthOrbitalSpeedKmS = 29.78

	// EarthEquatorialSpeedKmS is ω⊕ times the WGS-84 equatorial radius.
	EarthEquatorialSpeedKmS = 0.4651
)

// SolarDipole is the Planck 2018 solar-system velocity relative to the CMB:
// 369.82 km/s toward (l, b) = (264.021°, 48.253°), i.e. RA 167.942°, Dec -6.944°.
// The fixed entries of the default catalog sum to this vector. An event's
// total speed differs from it because Earth's orbital and rotational motion
// add to the barycentre dipole: NY on 2025-10-15 composes to about 386.6 km/s.
var SolarDipole = struct {
	RA, Dec, SpeedKmS float64
}{167.9419, -6.9443, 369.82}

// defaultFrames is the built-in table, root to leaf.
//
// Galactic-frame apexes were rotated to J2000 once (l=90° b=0° for rotation,
// the north galactic pole for oscillation). The Great Attractor flow is the
// closure of the chain: the large-scale bulk flow that, added to the better
// constrained local terms, reproduces SolarDipole.
var defaultFrames = []FrameDefinition{
	{
		Name:        CMBFrame,
		Label:       "CMB Rest Frame",
		Kind:        KindRoot,
		Description: "Frame in which the cosmic microwave background is isotropic",
	},
	{
		Name:        GreatAttractor,
		Label:       "Great Attractor",
		Kind:        KindFixed,
		ApexRA:      147.441,
		ApexDec:     -41.543,
		SpeedKmS:    518.88,
		Parent:      CMBFrame,
		Description: "Bulk flow of the local volume toward the Hydra-Centaurus / Shapley region",
	},
	{
		Name:        VirgoMotion,
		Label:       "Virgo Cluster Motion",
		Kind:        KindFixed,
		ApexRA:      186.75,
		ApexDec:     12.72,
		SpeedKmS:    220,
		Parent:      GreatAttractor,
		Description: "Local Group infall toward the Virgo Cluster",
	},
	{
		Name:        LocalGroup,
		Label:       "Local Group Motion",
		Kind:        KindFixed,
		ApexRA:      10.68,
		ApexDec:     41.27,
		SpeedKmS:    100,
		Parent:      VirgoMotion,
		Description: "Milky Way motion toward M31 within the Local Group",
	},
	{
		Name:        GalacticOscillation,
		Label:       "Galactic Oscillation",
		Kind:        KindFixed,
		ApexRA:      192.8595,
		ApexDec:     27.1283,
		SpeedKmS:    7,
		Parent:      LocalGroup,
		Description: "Sun's vertical bobbing through the galactic disk, toward the north galactic pole",
	},
	{
		Name:        GalacticRotation,
		Label:       "Galactic Rotation",
		Kind:        KindFixed,
		ApexRA:      318.0044,
		ApexDec:     48.3296,
		SpeedKmS:    230,
		Parent:      GalacticOscillation,
		Description: "Circular orbit of the Local Standard of Rest around the galactic center",
	},
	{
		Name:        SolarSystemLSR,
		Label:       "Solar System (LSR)",
		Kind:        KindFixed,
		ApexRA:      270,
		ApexDec:     30,
		SpeedKmS:    20,
		Parent:      GalacticRotation,
		Description: "Sun's peculiar motion toward the solar apex relative to the LSR",
	},
	{
		Name:        EarthOrbit,
		Label:       "Earth Orbital Motion",
		Kind:        KindEarthOrbit,
		SpeedKmS:    EarthOrbitalSpeedKmS,
		Parent:      SolarSystemLSR,
		Description: "Revolution around the Sun, uniform circular approximation",
	},
	{
		Name:        EarthRotation,
		Label:       "Earth Rotation",
		Kind:        KindEarthRotation,
		SpeedKmS:    EarthEquatorialSpeedKmS,
		Parent:      EarthOrbit,
		Description: "Eastward motion of the observer from Earth's spin, scaled by cos(latitude)",
	},
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultFrames)
	if err != nil {
		panic(fmt.Sprintf("built-in frame catalog: %v", err))
	}
	return c
}

// Load returns the built-in catalog, or the catalog in path when path is non-empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
