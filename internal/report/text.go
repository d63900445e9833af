package report

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const ruleWidth = 80

// WriteText renders r as the human-readable report printed by the CLI.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	p := message.NewPrinter(language.English)

	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)
	section := func(title string) {
		p.Fprintf(&b, "%s\n%s\n", title, light)
	}

	p.Fprintf(&b, "%s\nCOSMIC POSITION REPORT\nWhere were you in space and time?\n%s\n\n", heavy, heavy)

	writeEvent := func(title string, e Event) {
		section(title)
		p.Fprintf(&b, "Date/Time:   %s %s (%s)\n", e.Date, e.Time, zoneOrUTC(e.Timezone))
		if e.Address != "" {
			p.Fprintf(&b, "Location:    %s\n", e.Address)
		}
		p.Fprintf(&b, "Coordinates: %.4f°, %.4f°\n\n", e.Latitude, e.Longitude)
	}
	writeEvent("BIRTH", r.Birth)
	writeEvent("CURRENT", r.Current)

	d := r.Displacement
	p.Fprintf(&b, "Elapsed: %.2f years (%.0f seconds)\n\n", d.TimeElapsedYears, d.TimeElapsedSeconds)

	writeVelocities := func(title string, e Event) {
		section(title)
		for _, c := range e.Components {
			writeVector(p, &b, c.Label, c.VectorKmS, c.MagnitudeKmS, "km/s")
		}
		b.WriteString("\n")
		writeVector(p, &b, "TOTAL VELOCITY", e.TotalVectorKmS, e.TotalMagnitudeKmS, "km/s")
		p.Fprintf(&b, "%-30s  (scalar sum of components: %.3f km/s)\n\n", "", e.SumOfMagnitudesKmS)
	}
	writeVelocities("VELOCITIES AT BIRTH (km/s)", r.Birth)
	writeVelocities("VELOCITIES NOW (km/s)", r.Current)

	section("DISPLACEMENT THROUGH SPACE")
	p.Fprintf(&b, "%-30s: [%.3e, %.3e, %.3e] km\n", "Integrated path vector", d.PerAxisKm[0], d.PerAxisKm[1], d.PerAxisKm[2])
	p.Fprintf(&b, "Distance travelled: %.3e km\n", d.MagnitudeKm)
	p.Fprintf(&b, "                    %.3e AU\n", d.MagnitudeAU)
	p.Fprintf(&b, "                    %.6f light-years\n", d.MagnitudeLy)
	p.Fprintf(&b, "Cosmic separation:  %.3e km (%.6f light-years)\n", d.CosmicSeparationKm, d.CosmicSeparationLy)
	if d.GeocentricDisplacementKm > 0 {
		p.Fprintf(&b, "Change of place on Earth: %.1f km\n", d.GeocentricDisplacementKm)
	}
	if d.Reversed {
		b.WriteString("(reverse journey: the current date precedes the birth date)\n")
	}
	b.WriteString("\n")

	section("SPEED")
	p.Fprintf(&b, "Your velocity relative to the CMB: %.2f km/s\n", r.Speed.KmS)
	p.Fprintf(&b, "                                   %.0f km/h\n", r.Speed.KmH)
	p.Fprintf(&b, "                                   %.6f c\n\n", r.Speed.FractionOfC)

	section("PERSPECTIVE")
	p.Fprintf(&b, "In %.2f years you have moved:\n", d.TimeElapsedYears)
	p.Fprintf(&b, "  * %.2f times the Earth-Moon distance\n", r.Perspective.EarthMoonMultiples)
	p.Fprintf(&b, "  * %.4f times the Earth-Sun distance\n", r.Perspective.AU)
	p.Fprintf(&b, "Light would take %.2f %s to travel this distance\n\n", r.Perspective.LightTravelTime, r.Perspective.LightTravelUnit)

	if len(r.Spacecraft) > 0 {
		section("SPACECRAFT TRAVEL TIME COMPARISON")
		b.WriteString("How long would the fastest human spacecraft take to cover this distance?\n\n")
		for i, s := range r.Spacecraft {
			p.Fprintf(&b, "%d. %s\n", i+1, s.Name)
			p.Fprintf(&b, "   Speed: %.2f km/s (%.0f km/h)\n", s.SpeedKmS, s.SpeedKmH)
			p.Fprintf(&b, "   Record: %s (%s)\n", s.Record, strconv.Itoa(s.Year))
			p.Fprintf(&b, "   Travel time: %.2f %s\n\n", s.TravelTime, s.TravelTimeUnit)
		}
	}

	b.WriteString("Notes:\n")
	for _, n := range r.Notes {
		p.Fprintf(&b, "  - %s\n", n)
	}
	b.WriteString(heavy + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeVector(p *message.Printer, b *strings.Builder, name string, v [3]float64, mag float64, units string) {
	p.Fprintf(b, "%-30s: [%10.3f, %10.3f, %10.3f] %s (magnitude: %.3f %s)\n", name, v[0], v[1], v[2], units, mag, units)
}

func zoneOrUTC(z string) string {
	if z == "" {
		return "UTC"
	}
	return z
}
