package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NixVir/whereami-web/internal/catalog"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCalcJSON(t *testing.T) {
	out, err := run(t, "calc",
		"--birth-date", "1961-10-15",
		"--birth-lat", "40.7128", "--birth-lon", "-74.0060",
		"--current-date", "2025-10-15", "--current-timezone", "UTC",
		"--json",
	)
	require.NoError(t, err, out)

	var rep struct {
		Displacement struct {
			TimeElapsedYears float64 `json:"time_elapsed_years"`
			MagnitudeLy      float64 `json:"magnitude_ly"`
		} `json:"displacement"`
		Spacecraft []struct {
			Name string `json:"name"`
		} `json:"spacecraft_comparisons"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.InDelta(t, 64, rep.Displacement.TimeElapsedYears, 1e-9)
	assert.InDelta(t, 0.0825, rep.Displacement.MagnitudeLy, 1e-3)
	require.NotEmpty(t, rep.Spacecraft)
	assert.Equal(t, "Parker Solar Probe", rep.Spacecraft[0].Name)
}

func TestFrames(t *testing.T) {
	out, err := run(t, "frames")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	assert.Contains(t, out, "earth_rotation")
}

func TestFramesTOMLRoundTrips(t *testing.T) {
	t.Cleanup(func() { framesTOML = false })
	out, err := run(t, "frames", "--toml")
	require.NoError(t, err, out)

	c, err := catalog.Parse(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, catalog.Default().Frames(), c.Frames())
}
