package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	framesJSON bool
	framesTOML bool
)

var framesCmd = &cobra.Command{
	Use:   "frames",
	Short: "List the reference frame catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine(newLogger(cfg.Log, os.Stderr))
		if err != nil {
			return err
		}
		if framesTOML {
			b, err := eng.Catalog().Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		}
		frames := eng.Catalog().Frames()
		if framesJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(frames)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tPARENT\tSPEED (km/s)\tAPEX RA\tAPEX DEC")
		for _, f := range frames {
			parent := f.Parent
			if parent == "" {
				parent = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\n", f.Name, f.Kind, parent, f.SpeedKmS, f.ApexRA, f.ApexDec)
		}
		return tw.Flush()
	},
}

var forcesCmd = &cobra.Command{
	Use:   "forces",
	Short: "Print the reference catalog of forces and motions acting on an observer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := newEngine(newLogger(cfg.Log, os.Stderr))
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, c := range eng.Forces().Categories {
			fmt.Fprintf(out, "%s\n  %s\n", c.Key, c.Description)
			for _, e := range c.Entries {
				fmt.Fprintf(out, "  - %s", e.Name)
				if e.Velocity != "" {
					fmt.Fprintf(out, " (%s)", e.Velocity)
				} else if e.Magnitude != "" {
					fmt.Fprintf(out, " (%s)", e.Magnitude)
				}
				fmt.Fprintf(out, ": %s\n", e.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	framesCmd.Flags().BoolVar(&framesJSON, "json", false, "print the catalog as JSON")
	framesCmd.Flags().BoolVar(&framesTOML, "toml", false, "print the catalog as TOML, in the layout catalog.file accepts")
	framesCmd.MarkFlagsMutuallyExclusive("json", "toml")
}
