package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/NixVir/whereami-web/internal/engine"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/report"
	"github.com/NixVir/whereami-web/internal/trajectory"
)

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute the displacement between birth and now (or a given moment)",
	Example: `  whereami calc --birth-date 1961-10-15 --birth-place "New York, NY"
  whereami calc --birth-date 1990-06-01 --birth-time 07:30 --birth-timezone pacific \
      --birth-lat 37.7749 --birth-lon -122.4194 --current-date 2025-01-01 --json`,
	Args: cobra.NoArgs,
	RunE: runCalc,
}

type eventFlags struct {
	date, time, zone, place string
	lat, lon                float64
}

var (
	birthFlags, currentFlags eventFlags

	calcReverse bool
	calcSamples int
	calcTop     int
	calcJSON    bool
)

func init() {
	f := calcCmd.Flags()
	for _, ef := range []struct {
		prefix string
		flags  *eventFlags
	}{
		{"birth", &birthFlags},
		{"current", &currentFlags},
	} {
		p := ef.prefix
		f.StringVar(&ef.flags.date, p+"-date", "", p+" date YYYY-MM-DD")
		f.StringVar(&ef.flags.time, p+"-time", "", p+" time HH:MM[:SS] (default 12:00)")
		f.StringVar(&ef.flags.zone, p+"-timezone", "", p+" timezone: IANA name, alias (eastern, pst, ...) or +HH:MM")
		f.StringVar(&ef.flags.place, p+"-place", "", p+" place to geocode, e.g. \"Boulder, CO, USA\"")
		f.Float64Var(&ef.flags.lat, p+"-lat", 0, p+" latitude in degrees")
		f.Float64Var(&ef.flags.lon, p+"-lon", 0, p+" longitude in degrees")
	}
	f.BoolVar(&calcReverse, "reverse", false, "allow a current date before the birth date")
	f.IntVar(&calcSamples, "samples", 0, fmt.Sprintf("trajectory samples to include (0-%d)", trajectory.MaxSamples))
	f.IntVar(&calcTop, "top", 0, "spacecraft to compare (default spacecraft.top)")
	f.BoolVar(&calcJSON, "json", false, "print the report as JSON")
	must(calcCmd.MarkFlagRequired("birth-date"))
}

func runCalc(cmd *cobra.Command, args []string) error {
	logger := newLogger(cfg.Log, os.Stderr)
	eng, _, err := newEngine(logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if !hasLocation(cmd, "birth", birthFlags) {
		return errors.New("either --birth-place or --birth-lat/--birth-lon is required")
	}
	birth, err := resolveEvent(ctx, cmd, eng, "birth", birthFlags)
	if err != nil {
		return err
	}

	req := engine.Request{
		Birth:   birth,
		Reverse: calcReverse,
		Samples: calcSamples,
		Top:     calcTop,
	}
	req.Current = event.Input{Date: currentFlags.date, Time: currentFlags.time, Timezone: currentFlags.zone}
	if hasLocation(cmd, "current", currentFlags) {
		cur, err := resolveEvent(ctx, cmd, eng, "current", currentFlags)
		if err != nil {
			return err
		}
		req.Current = cur
		req.CurrentLocation = &engine.Location{Latitude: cur.Latitude, Longitude: cur.Longitude, Address: cur.Address}
	}

	rep, err := eng.Calculate(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if calcJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return report.WriteText(out, rep)
}

func hasLocation(cmd *cobra.Command, prefix string, ef eventFlags) bool {
	return ef.place != "" || cmd.Flags().Changed(prefix+"-lat") || cmd.Flags().Changed(prefix+"-lon")
}

// resolveEvent builds the event input, geocoding --<prefix>-place when the
// coordinates were not given explicitly.
func resolveEvent(ctx context.Context, cmd *cobra.Command, eng *engine.Engine, prefix string, ef eventFlags) (event.Input, error) {
	in := event.Input{
		Date:      ef.date,
		Time:      ef.time,
		Timezone:  ef.zone,
		Latitude:  ef.lat,
		Longitude: ef.lon,
		Address:   ef.place,
	}
	latSet, lonSet := cmd.Flags().Changed(prefix+"-lat"), cmd.Flags().Changed(prefix+"-lon")
	if latSet != lonSet {
		return in, fmt.Errorf("--%s-lat and --%s-lon must be given together", prefix, prefix)
	}
	if latSet || ef.place == "" {
		return in, nil
	}

	place, err := eng.Resolve(ctx, ef.place)
	if err != nil {
		return in, fmt.Errorf("geocoding %s place %q: %w", prefix, ef.place, err)
	}
	in.Latitude, in.Longitude = place.Latitude, place.Longitude
	if place.Address != "" {
		in.Address = place.Address
	}
	return in, nil
}
