package report

import "github.com/NixVir/whereami-web/internal/vecmath"

// Perspective restates a distance in familiar yardsticks.
type Perspective struct {
	EarthMoonMultiples float64 `json:"earth_moon_multiples"`
	AU                 float64 `json:"au"`
	LightTravelTime    float64 `json:"light_travel_time"`
	LightTravelUnit    string  `json:"light_travel_unit"`
	LightTravelSeconds float64 `json:"light_travel_seconds"`
}

// NewPerspective expresses km as Earth-Moon distances, AU and light travel
// time. The light time uses the largest of days, hours, minutes or seconds
// that keeps the value at or above 1.
func NewPerspective(km float64) Perspective {
	secs := km / vecmath.SpeedOfLightKmS
	p := Perspective{
		EarthMoonMultiples: km / vecmath.EarthMoonKm,
		AU:                 vecmath.KmToAU(km),
		LightTravelSeconds: secs,
	}
	switch {
	case secs >= 86400:
		p.LightTravelTime, p.LightTravelUnit = secs/86400, "days"
	case secs >= 3600:
		p.LightTravelTime, p.LightTravelUnit = secs/3600, "hours"
	case secs >= 60:
		p.LightTravelTime, p.LightTravelUnit = secs/60, "minutes"
	default:
		p.LightTravelTime, p.LightTravelUnit = secs, "seconds"
	}
	return p
}
