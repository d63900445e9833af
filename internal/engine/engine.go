// Package engine wires the frame catalog, velocity composer, spacecraft
// comparator and trajectory sampler into one read-only calculation context
// shared by the HTTP server, the live stream and the CLI.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/displacement"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/forces"
	"github.com/NixVir/whereami-web/internal/geocode"
	"github.com/NixVir/whereami-web/internal/report"
	"github.com/NixVir/whereami-web/internal/spacecraft"
	"github.com/NixVir/whereami-web/internal/trajectory"
)

// ErrNoGeocoder is returned by Resolve when no geocoder is configured.
var ErrNoGeocoder = errors.New("no geocoder configured")

// Geocoder resolves place names. *geocode.Client satisfies it.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (geocode.Place, error)
	GeocodeStructured(ctx context.Context, q geocode.Query) (geocode.Place, error)
}

// Config holds the collaborators of an Engine. Nil fields take the
// built-in defaults.
type Config struct {
	Catalog    *catalog.Catalog
	Spacecraft *spacecraft.Comparator
	Forces     *forces.Catalog
	Geocoder   Geocoder
	Workers    int
	Top        int
	Logger     *slog.Logger
	Now        func() time.Time
}

// Engine performs calculations. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	catalog    *catalog.Catalog
	composer   *compose.Composer
	spacecraft *spacecraft.Comparator
	forces     *forces.Catalog
	sampler    *trajectory.Sampler
	geocoder   Geocoder
	top        int
	logger     *slog.Logger
	now        func() time.Time
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Catalog == nil {
		cfg.Catalog = catalog.Default()
	}
	if cfg.Spacecraft == nil {
		cfg.Spacecraft = spacecraft.Default()
	}
	if cfg.Forces == nil {
		cfg.Forces = forces.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Top <= 0 {
		cfg.Top = spacecraft.DefaultTop
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	composer := compose.New(cfg.Catalog)
	return &Engine{
		catalog:    cfg.Catalog,
		composer:   composer,
		spacecraft: cfg.Spacecraft,
		forces:     cfg.Forces,
		sampler:    trajectory.NewSampler(composer, cfg.Workers, cfg.Logger),
		geocoder:   cfg.Geocoder,
		top:        cfg.Top,
		logger:     cfg.Logger,
		now:        cfg.Now,
	}
}

// Catalog returns the frame catalog.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Forces returns the forces and motions reference catalog.
func (e *Engine) Forces() *forces.Catalog { return e.forces }

// Spacecraft returns the spacecraft comparator.
func (e *Engine) Spacecraft() *spacecraft.Comparator { return e.spacecraft }

// Request describes one calculation.
type Request struct {
	Birth event.Input

	// Current is the later event. An empty Date means now in UTC; a nil
	// Location means the birth coordinates.
	Current         event.Input
	CurrentLocation *Location

	Reverse bool
	Samples int
	Top     int
}

// Location is an explicit position for the current event.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Calculate parses both events, composes their velocities and packages the
// displacement, spacecraft comparison and optional trajectory.
func (e *Engine) Calculate(ctx context.Context, req Request) (report.Report, error) {
	birth, err := event.Parse(req.Birth)
	if err != nil {
		return report.Report{}, fmt.Errorf("birth: %w", err)
	}
	current, err := e.currentEvent(req, birth)
	if err != nil {
		return report.Report{}, fmt.Errorf("current: %w", err)
	}

	bs, err := e.composer.Compose(birth)
	if err != nil {
		return report.Report{}, fmt.Errorf("composing birth: %w", err)
	}
	cs, err := e.composer.Compose(current)
	if err != nil {
		return report.Report{}, fmt.Errorf("composing current: %w", err)
	}

	d, err := displacement.Displace(bs, cs, displacement.Options{AllowReverse: req.Reverse})
	if err != nil {
		return report.Report{}, err
	}

	top := req.Top
	if top <= 0 {
		top = e.top
	}
	path, err := e.sampler.Sample(ctx, birth, current, req.Samples)
	if err != nil {
		return report.Report{}, err
	}

	return report.Assemble(report.Input{
		Birth:        bs,
		Current:      cs,
		Displacement: d,
		Spacecraft:   e.spacecraft.Compare(d.MagnitudeKm, top),
		Trajectory:   path,
	}), nil
}

func (e *Engine) currentEvent(req Request, birth event.SpacetimeEvent) (event.SpacetimeEvent, error) {
	in := req.Current
	if loc := req.CurrentLocation; loc != nil {
		in.Latitude, in.Longitude, in.Address = loc.Latitude, loc.Longitude, loc.Address
	} else {
		in.Latitude, in.Longitude = birth.Latitude(), birth.Longitude()
		if in.Address == "" {
			in.Address = birth.Address()
		}
	}
	if in.Date != "" {
		return event.Parse(in)
	}

	cur, err := event.New(e.now().UTC().Truncate(time.Second), in.Latitude, in.Longitude)
	if err != nil {
		return event.SpacetimeEvent{}, err
	}
	return cur.WithAddress(strings.TrimSpace(in.Address)), nil
}

// StateAt composes the velocity state at instant t and the given position.
func (e *Engine) StateAt(t time.Time, lat, lon float64) (compose.ComposedState, error) {
	ev, err := event.New(t, lat, lon)
	if err != nil {
		return compose.ComposedState{}, err
	}
	return e.composer.Compose(ev)
}

// Now composes the velocity state at the current instant and the given position.
func (e *Engine) Now(lat, lon float64) (compose.ComposedState, error) {
	return e.StateAt(e.now().UTC(), lat, lon)
}

// Resolve looks up a free-text place, trying the structured fallback chain.
func (e *Engine) Resolve(ctx context.Context, place string) (geocode.Place, error) {
	if e.geocoder == nil {
		return geocode.Place{}, ErrNoGeocoder
	}
	p, err := e.geocoder.GeocodeStructured(ctx, geocode.ParseLocation(place))
	if err != nil {
		return geocode.Place{}, err
	}
	e.logger.Debug("resolved place", "query", place, "latitude", p.Latitude, "longitude", p.Longitude)
	return p, nil
}

// Geocode looks up a single free-text query.
func (e *Engine) Geocode(ctx context.Context, query string) (geocode.Place, error) {
	if e.geocoder == nil {
		return geocode.Place{}, ErrNoGeocoder
	}
	return e.geocoder.Geocode(ctx, query)
}
