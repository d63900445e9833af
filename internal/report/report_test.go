package report

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/displacement"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/spacecraft"
	"github.com/NixVir/whereami-web/internal/trajectory"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

func exampleInput(t *testing.T, samples int) Input {
	t.Helper()
	c := compose.New(catalog.Default())

	birth, err := event.Parse(event.Input{
		Date: "1961-10-15", Timezone: "UTC",
		Latitude: 40.7128, Longitude: -74.0060, Address: "New York, NY",
	})
	require.NoError(t, err)
	current, err := event.Parse(event.Input{
		Date: "2025-10-15", Time: "08:00", Timezone: "eastern",
		Latitude: 40.7128, Longitude: -74.0060,
	})
	require.NoError(t, err)

	bs, err := c.Compose(birth)
	require.NoError(t, err)
	cs, err := c.Compose(current)
	require.NoError(t, err)
	d, err := displacement.Displace(bs, cs, displacement.Options{})
	require.NoError(t, err)

	var path []trajectory.Sample
	if samples > 0 {
		s := trajectory.NewSampler(c, 2, slog.New(slog.NewJSONHandler(io.Discard, nil)))
		path, err = s.Sample(context.Background(), birth, current, samples)
		require.NoError(t, err)
	}

	return Input{
		Birth:        bs,
		Current:      cs,
		Displacement: d,
		Spacecraft:   spacecraft.Default().Compare(d.MagnitudeKm, spacecraft.DefaultTop),
		Trajectory:   path,
	}
}

func TestAssemble(t *testing.T) {
	in := exampleInput(t, 0)
	r := Assemble(in)

	// Coordinates are returned verbatim.
	assert.Equal(t, 40.7128, r.Birth.Latitude)
	assert.Equal(t, -74.0060, r.Birth.Longitude)
	assert.Equal(t, "New York, NY", r.Birth.Address)

	assert.Equal(t, "2025-10-15T08:00:00-04:00", r.Current.DateTime)
	assert.Equal(t, "eastern", r.Current.Timezone)
	assert.Equal(t, -4*3600, r.Current.TimezoneOffsetSeconds)
	assert.Equal(t, "12:00:00", r.Birth.Time)

	// Components keep catalog order.
	require.Len(t, r.Birth.Components, len(in.Birth.Components))
	for i, c := range in.Birth.Components {
		assert.Equal(t, c.Name, r.Birth.Components[i].Name)
		assert.Equal(t, c.Vector.Array(), r.Birth.Components[i].VectorKmS)
	}
	assert.Equal(t, catalog.GreatAttractor, r.Current.Components[0].Name)
	assert.Equal(t, catalog.EarthRotation, r.Current.Components[len(r.Current.Components)-1].Name)

	assert.Equal(t, in.Displacement.MagnitudeKm, r.Displacement.MagnitudeKm)
	assert.Equal(t, in.Displacement.CosmicSeparationKm, r.Displacement.CosmicSeparationKm)
	assert.Equal(t, in.Current.TotalMagnitudeKmS, r.Speed.KmS)
	assert.Len(t, r.Spacecraft, spacecraft.DefaultTop)
	assert.Equal(t, "years", r.Spacecraft[0].TravelTimeUnit)
	assert.Empty(t, r.Trajectory)
	assert.NotEmpty(t, r.Notes)
}

func TestAssembleTrajectory(t *testing.T) {
	r := Assemble(exampleInput(t, 9))
	require.Len(t, r.Trajectory, 9)
	assert.Equal(t, 0.0, r.Trajectory[0].TYears)
	assert.Equal(t, "1961-10-15T12:00:00Z", r.Trajectory[0].Time)
}

func TestReportJSONShape(t *testing.T) {
	data, err := json.Marshal(Assemble(exampleInput(t, 0)))
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"birth", "current", "displacement", "speed", "perspective", "spacecraft_comparisons", "notes"} {
		assert.Contains(t, raw, key)
	}
	assert.NotContains(t, raw, "trajectory")

	disp := raw["displacement"].(map[string]any)
	for _, key := range []string{"magnitude_km", "magnitude_ly", "time_elapsed_years", "per_axis_km", "cosmic_separation_km", "cosmic_separation_ly"} {
		assert.Contains(t, disp, key)
	}
}

func TestNewPerspective(t *testing.T) {
	tests := []struct {
		km   float64
		unit string
	}{
		{vecmath.SpeedOfLightKmS * 10, "seconds"},
		{vecmath.SpeedOfLightKmS * 90, "minutes"},
		{vecmath.SpeedOfLightKmS * 7200, "hours"},
		{7.8e11, "days"},
	}
	for _, tt := range tests {
		p := NewPerspective(tt.km)
		assert.Equal(t, tt.unit, p.LightTravelUnit, "km=%v", tt.km)
		assert.GreaterOrEqual(t, p.LightTravelTime, 1.0)
	}

	p := NewPerspective(vecmath.KmPerAU)
	assert.InDelta(t, 1, p.AU, 1e-12)
	assert.InDelta(t, 499.004784, p.LightTravelSeconds, 1e-6)
	assert.InDelta(t, vecmath.KmPerAU/384400.0, p.EarthMoonMultiples, 1e-9)
}

func TestNewSpeed(t *testing.T) {
	s := NewSpeed(369.82)
	assert.InDelta(t, 1331352, s.KmH, 1e-6)
	assert.InDelta(t, 0.0012336, s.FractionOfC, 1e-7)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Assemble(exampleInput(t, 0))))
	out := buf.String()

	for _, want := range []string{
		"COSMIC POSITION REPORT",
		"BIRTH",
		"Location:    New York, NY",
		"Coordinates: 40.7128°, -74.0060°",
		"VELOCITIES AT BIRTH",
		"Great Attractor",
		"Earth Rotation",
		"TOTAL VELOCITY",
		"DISPLACEMENT THROUGH SPACE",
		"light-years",
		"PERSPECTIVE",
		"SPACECRAFT TRAVEL TIME COMPARISON",
		"1. Parker Solar Probe",
		"586,800 km/h",
		"(2021)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q", want)
		}
	}

	// Birth components are listed in catalog order.
	if strings.Index(out, "Great Attractor") > strings.Index(out, "Earth Rotation") {
		t.Error("components out of catalog order")
	}
}

func TestWriteTextReverse(t *testing.T) {
	in := exampleInput(t, 0)
	in.Displacement.Reversed = true
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, Assemble(in)))
	assert.Contains(t, buf.String(), "reverse journey")
}

func TestAssembleCurrentEventTime(t *testing.T) {
	in := exampleInput(t, 0)
	// The current event was 08:00 Eastern (EDT), i.e. 12:00 UTC.
	assert.True(t, in.Current.Event.UTC().Equal(time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)))
}
