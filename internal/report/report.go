// Package report packages composed states, the displacement and the
// spacecraft comparison into the response shape consumed by the HTTP layer,
// the CLI and the visualization.
package report

import (
	"time"

	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/displacement"
	"github.com/NixVir/whereami-web/internal/spacecraft"
	"github.com/NixVir/whereami-web/internal/trajectory"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

// Report is the full result of one calculation.
type Report struct {
	Birth        Event             `json:"birth"`
	Current      Event             `json:"current"`
	Displacement Displacement      `json:"displacement"`
	Speed        Speed             `json:"speed"`
	Perspective  Perspective       `json:"perspective"`
	Spacecraft   []Spacecraft      `json:"spacecraft_comparisons"`
	Trajectory   []TrajectoryPoint `json:"trajectory,omitempty"`
	Notes        []string          `json:"notes"`
}

// Event is one side of the calculation. Latitude and longitude are returned
// exactly as supplied.
type Event struct {
	DateTime              string      `json:"datetime"`
	Date                  string      `json:"date"`
	Time                  string      `json:"time"`
	Timezone              string      `json:"timezone"`
	TimezoneOffsetSeconds int         `json:"timezone_offset_seconds"`
	Latitude              float64     `json:"latitude"`
	Longitude             float64     `json:"longitude"`
	Address               string      `json:"address,omitempty"`
	Components            []Component `json:"velocity_components"`
	TotalVectorKmS        [3]float64  `json:"total_velocity_km_s"`
	TotalMagnitudeKmS     float64     `json:"total_speed_km_s"`
	SumOfMagnitudesKmS    float64     `json:"sum_of_component_speeds_km_s"`
	GeocentricPositionKm  [3]float64  `json:"geocentric_position_km"`
}

// Component is one named velocity contribution.
type Component struct {
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	VectorKmS    [3]float64 `json:"vector_km_s"`
	MagnitudeKmS float64    `json:"magnitude_km_s"`
}

// Displacement mirrors displacement.Result.
type Displacement struct {
	MagnitudeKm              float64    `json:"magnitude_km"`
	MagnitudeLy              float64    `json:"magnitude_ly"`
	MagnitudeAU              float64    `json:"magnitude_au"`
	TimeElapsedYears         float64    `json:"time_elapsed_years"`
	TimeElapsedSeconds       float64    `json:"time_elapsed_seconds"`
	PerAxisKm                [3]float64 `json:"per_axis_km"`
	CosmicSeparationKm       float64    `json:"cosmic_separation_km"`
	CosmicSeparationLy       float64    `json:"cosmic_separation_ly"`
	GeocentricDisplacementKm float64    `json:"geocentric_displacement_km"`
	Reversed                 bool       `json:"reversed"`
}

// Speed is the current event's speed in several units.
type Speed struct {
	KmS         float64 `json:"km_s"`
	KmH         float64 `json:"km_h"`
	FractionOfC float64 `json:"fraction_of_c"`
}

// Spacecraft is one comparison row.
type Spacecraft struct {
	Name            string  `json:"name"`
	SpeedKmS        float64 `json:"speed_km_s"`
	SpeedKmH        float64 `json:"speed_km_h"`
	Year            int     `json:"year"`
	Record          string  `json:"record"`
	TravelTime      float64 `json:"travel_time"`
	TravelTimeUnit  string  `json:"travel_time_unit"`
	TravelTimeYears float64 `json:"travel_time_years"`
}

// TrajectoryPoint is one sampled point of the path.
type TrajectoryPoint struct {
	TYears     float64    `json:"t_years"`
	Time       string     `json:"time"`
	PositionKm [3]float64 `json:"position_km"`
	SpeedKmS   float64    `json:"speed_km_s"`
}

// Approximation notes attached to every report.
var notes = []string{
	"Frame apex directions and speeds are fixed catalog values; secular changes over centuries are not modeled.",
	"Earth's orbit is treated as uniform circular motion; eccentricity is ignored.",
	"Distance travelled holds the current CMB-frame speed over the elapsed time.",
}

// Input collects what Assemble packages.
type Input struct {
	Birth        compose.ComposedState
	Current      compose.ComposedState
	Displacement displacement.Result
	Spacecraft   []spacecraft.Comparison
	Trajectory   []trajectory.Sample
}

// Assemble packages in into a Report. Component order follows the catalog.
func Assemble(in Input) Report {
	r := Report{
		Birth:        newEvent(in.Birth),
		Current:      newEvent(in.Current),
		Displacement: newDisplacement(in.Displacement),
		Speed:        NewSpeed(in.Current.TotalMagnitudeKmS),
		Perspective:  NewPerspective(in.Displacement.MagnitudeKm),
		Spacecraft:   make([]Spacecraft, 0, len(in.Spacecraft)),
		Notes:        append([]string(nil), notes...),
	}
	for _, c := range in.Spacecraft {
		r.Spacecraft = append(r.Spacecraft, Spacecraft{
			Name:            c.Name,
			SpeedKmS:        c.SpeedKmS,
			SpeedKmH:        c.SpeedKmH(),
			Year:            c.Year,
			Record:          c.Record,
			TravelTime:      c.TravelTime,
			TravelTimeUnit:  string(c.TravelTimeUnit),
			TravelTimeYears: c.TravelTimeYears,
		})
	}
	for _, s := range in.Trajectory {
		r.Trajectory = append(r.Trajectory, TrajectoryPoint{
			TYears:     s.TYears,
			Time:       s.Time.Format(time.RFC3339),
			PositionKm: s.PositionKm.Array(),
			SpeedKmS:   s.SpeedKmS,
		})
	}
	return r
}

// NewState packages a single composed state, as served by the live stream.
func NewState(s compose.ComposedState) Event {
	return newEvent(s)
}

func newEvent(s compose.ComposedState) Event {
	e := s.Event
	out := Event{
		DateTime:              e.Time().Format(time.RFC3339),
		Date:                  e.CalendarDate(),
		Time:                  e.TimeOfDay(),
		Timezone:              e.Zone(),
		TimezoneOffsetSeconds: e.TimezoneOffset(),
		Latitude:              e.Latitude(),
		Longitude:             e.Longitude(),
		Address:               e.Address(),
		Components:            make([]Component, 0, len(s.Components)),
		TotalVectorKmS:        s.Total.Array(),
		TotalMagnitudeKmS:     s.TotalMagnitudeKmS,
		SumOfMagnitudesKmS:    s.SumOfMagnitudes(),
		GeocentricPositionKm:  s.GeocentricPositionKm.Array(),
	}
	for _, c := range s.Components {
		out.Components = append(out.Components, Component{
			Name:         c.Name,
			Label:        c.Label,
			VectorKmS:    c.Vector.Array(),
			MagnitudeKmS: c.MagnitudeKmS,
		})
	}
	return out
}

func newDisplacement(d displacement.Result) Displacement {
	return Displacement{
		MagnitudeKm:              d.MagnitudeKm,
		MagnitudeLy:              d.MagnitudeLy,
		MagnitudeAU:              d.MagnitudeAU,
		TimeElapsedYears:         d.TimeElapsedYears,
		TimeElapsedSeconds:       d.TimeElapsedSeconds,
		PerAxisKm:                d.PerAxisKm.Array(),
		CosmicSeparationKm:       d.CosmicSeparationKm,
		CosmicSeparationLy:       d.CosmicSeparationLy,
		GeocentricDisplacementKm: d.GeocentricDisplacementKm,
		Reversed:                 d.Reversed,
	}
}

// NewSpeed expresses a speed in km/s, km/h and as a fraction of c.
func NewSpeed(kmS float64) Speed {
	return Speed{KmS: kmS, KmH: kmS * 3600, FractionOfC: kmS / vecmath.SpeedOfLightKmS}
}
