// Package trajectory samples the path between two events for visualization:
// evenly spaced instants, each composed at a linearly interpolated location,
// with positions integrated by the trapezoid rule from the birth point.
package trajectory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/NixVir/whereami-web/internal/compose"
	"github.com/NixVir/whereami-web/internal/displacement"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

// MaxSamples bounds the number of samples per request.
const MaxSamples = 512

// ErrInvalidSamples is returned for a sample count outside [0, MaxSamples].
var ErrInvalidSamples = errors.New("invalid sample count")

// Sample is one point along the path.
type Sample struct {
	Time       time.Time
	TYears     float64      // calendar years since the birth event
	PositionKm vecmath.Vec3 // starts at the birth geocentric point
	SpeedKmS   float64
}

// Sampler produces trajectories. It is safe for concurrent use.
type Sampler struct {
	composer *compose.Composer
	pool     *WorkerPool
}

// NewSampler returns a Sampler composing with c on a pool of workers.
func NewSampler(c *compose.Composer, workers int, logger *slog.Logger) *Sampler {
	return &Sampler{composer: c, pool: NewWorkerPool(workers, logger)}
}

// Sample returns n samples from birth to current inclusive. n == 0 returns
// nil; n == 1 returns the birth point only.
func (s *Sampler) Sample(ctx context.Context, birth, current event.SpacetimeEvent, n int) ([]Sample, error) {
	if n < 0 || n > MaxSamples {
		return nil, fmt.Errorf("%w: %d outside [0, %d]", ErrInvalidSamples, n, MaxSamples)
	}
	if n == 0 {
		return nil, nil
	}

	events, err := interpolate(birth, current, n)
	if err != nil {
		return nil, err
	}
	states, err := s.pool.ComposeBatch(ctx, s.composer, events)
	if err != nil {
		return nil, err
	}
	return integrate(states), nil
}

// interpolate spaces n instants evenly over [birth, current], with latitude
// and longitude interpolated linearly. Longitude takes the shorter way round,
// so a path across the antimeridian stays near ±180°. Arithmetic is on Unix seconds so long
// spans do not overflow time.Duration.
func interpolate(birth, current event.SpacetimeEvent, n int) ([]event.SpacetimeEvent, error) {
	if n == 1 {
		return []event.SpacetimeEvent{birth}, nil
	}

	t0 := birth.UTC().Unix()
	span := float64(current.UTC().Unix() - t0)
	lat0, lon0 := birth.Latitude(), birth.Longitude()
	dLat := current.Latitude() - lat0
	dLon := math.Mod(current.Longitude()-lon0+540, 360) - 180

	events := make([]event.SpacetimeEvent, n)
	events[0] = birth
	events[n-1] = current
	for i := 1; i < n-1; i++ {
		f := float64(i) / float64(n-1)
		tm := time.Unix(t0+int64(math.Round(f*span)), 0).UTC()
		e, err := event.New(tm, lat0+f*dLat, wrapLongitude(lon0+f*dLon))
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		events[i] = e
	}
	return events, nil
}

// wrapLongitude maps lon into [-180, 180].
func wrapLongitude(lon float64) float64 {
	switch {
	case lon > 180:
		return lon - 360
	case lon < -180:
		return lon + 360
	}
	return lon
}

// integrate accumulates positions: each step adds the mean of its endpoint
// velocities times the step length, plus the change in geocentric position.
// With two samples the final position equals the displacement's per-axis vector.
func integrate(states []compose.ComposedState) []Sample {
	out := make([]Sample, len(states))
	birth := states[0]
	pos := birth.GeocentricPositionKm
	for i, st := range states {
		if i > 0 {
			prev := states[i-1]
			dt := displacement.ElapsedSeconds(prev.Event.UTC(), st.Event.UTC())
			pos = pos.
				Add(prev.Total.Add(st.Total).Scale(0.5 * dt)).
				Add(st.GeocentricPositionKm.Sub(prev.GeocentricPositionKm))
		}
		out[i] = Sample{
			Time:       st.Event.UTC(),
			TYears:     displacement.ElapsedYears(birth.Event.UTC(), st.Event.UTC()),
			PositionKm: pos,
			SpeedKmS:   st.TotalMagnitudeKmS,
		}
	}
	return out
}
