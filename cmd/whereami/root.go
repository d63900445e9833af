package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/NixVir/whereami-web/internal/cache"
	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/config"
	"github.com/NixVir/whereami-web/internal/engine"
	"github.com/NixVir/whereami-web/internal/geocode"
	"github.com/NixVir/whereami-web/internal/metrics"
	"github.com/NixVir/whereami-web/internal/spacecraft"
)

var (
	v   = viper.New()
	cfg config.Config
)

var rootCmd = &cobra.Command{
	Use:   "whereami",
	Short: "Where were you in space when you were born?",
	Long: "whereami composes Earth's velocity through the nested cosmic reference frames " +
		"(rotation, orbit, galactic motion, Local Group, Great Attractor, CMB) and reports " +
		"how far you have travelled between two moments.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default .whereami.yaml or .whereami.toml in . or $HOME)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "json", "log format: json or text")
	pf.String("catalog", "", "frame catalog TOML file (default built-in)")
	pf.String("spacecraft", "", "spacecraft table TOML file (default built-in)")

	must(v.BindPFlag("log.level", pf.Lookup("log-level")))
	must(v.BindPFlag("log.format", pf.Lookup("log-format")))
	must(v.BindPFlag("catalog.file", pf.Lookup("catalog")))
	must(v.BindPFlag("spacecraft.file", pf.Lookup("spacecraft")))

	rootCmd.AddCommand(serveCmd, calcCmd, framesCmd, forcesCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	} else {
		v.SetConfigName(".whereami")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		// A missing config file is fine; defaults and env apply.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return fmt.Errorf("reading config file: %w", err)
			}
		}
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// newLogger builds the slog logger selected by lc.
func newLogger(lc config.LogConfig, w io.Writer) *slog.Logger {
	level, err := config.ParseLevel(lc.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(lc.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// newEngine wires the catalog, spacecraft table and geocoder from cfg. The
// returned cache is nil when geocoder.cache_size is 0.
func newEngine(logger *slog.Logger) (*engine.Engine, *cache.PlaceCache, error) {
	frames, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Catalog.File != "" {
		logger.Info("loaded frame catalog", "file", cfg.Catalog.File, "frames", frames.Len())
	}

	craft, err := spacecraft.Load(cfg.Spacecraft.File)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Spacecraft.File != "" {
		logger.Info("loaded spacecraft table", "file", cfg.Spacecraft.File, "count", len(craft.Spacecraft()))
	}

	client := geocode.New(geocode.Config{
		URL:       cfg.Geocoder.URL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
		Retries:   cfg.Geocoder.Retries,
		Backoff:   cfg.Geocoder.Backoff,
		RPS:       cfg.Geocoder.RPS,
		Logger:    logger,
		Observer:  metrics.Geocode{},
	})
	var g engine.Geocoder = client
	var places *cache.PlaceCache
	if cfg.Geocoder.CacheSize > 0 {
		places = cache.New(client, cache.Config{
			TTL:        cfg.Geocoder.CacheTTL,
			MaxEntries: cfg.Geocoder.CacheSize,
		}, logger)
		g = places
	}

	return engine.New(engine.Config{
		Catalog:    frames,
		Spacecraft: craft,
		Geocoder:   g,
		Workers:    cfg.Engine.Workers,
		Top:        cfg.Spacecraft.Top,
		Logger:     logger,
	}), places, nil
}
