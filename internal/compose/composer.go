// Package compose resolves every catalog frame's velocity for one spacetime
// event and sums them into the observer's velocity relative to the root frame.
package compose

import (
	"fmt"

	"github.com/NixVir/whereami-web/internal/catalog"
	"github.com/NixVir/whereami-web/internal/event"
	"github.com/NixVir/whereami-web/internal/kinematics"
	"github.com/NixVir/whereami-web/internal/transform"
	"github.com/NixVir/whereami-web/internal/vecmath"
)

// VelocityComponent is one frame's contribution to an event's velocity.
type VelocityComponent struct {
	Name         string
	Label        string
	Kind         catalog.Kind
	Vector       vecmath.Vec3 // km/s, J2000 equatorial
	MagnitudeKmS float64
}

// ComposedState is the resolved velocity of one event. Components are in
// catalog order, parent to child; the root frame contributes nothing and is
// not listed.
type ComposedState struct {
	Event                event.SpacetimeEvent
	Components           []VelocityComponent
	Total                vecmath.Vec3
	TotalMagnitudeKmS    float64
	GeocentricPositionKm vecmath.Vec3 // Earth-fixed, nominal sphere
}

// Component returns the component with the given frame name.
func (s ComposedState) Component(name string) (VelocityComponent, bool) {
	for _, c := range s.Components {
		if c.Name == name {
			return c, true
		}
	}
	return VelocityComponent{}, false
}

// SumOfMagnitudes returns the scalar sum of component speeds. By the triangle
// inequality it is never below TotalMagnitudeKmS.
func (s ComposedState) SumOfMagnitudes() float64 {
	var sum float64
	for _, c := range s.Components {
		sum += c.MagnitudeKmS
	}
	return sum
}

// resolved is a catalog entry with its fixed vector precomputed.
type resolved struct {
	def    catalog.FrameDefinition
	vector vecmath.Vec3
}

// Composer composes events against one catalog. It holds no mutable state and
// is safe for concurrent use.
type Composer struct {
	frames []resolved
	earth  kinematics.Earth
}

// New builds a Composer for c. Fixed apex directions are converted to vectors
// once here; the Earth entries supply the reference speeds for kinematics.
func New(c *catalog.Catalog) *Composer {
	comp := &Composer{}
	for _, f := range c.Frames() {
		r := resolved{def: f}
		switch f.Kind {
		case catalog.KindFixed:
			r.vector = vecmath.FromSpherical(f.ApexRA, f.ApexDec, f.SpeedKmS)
		case catalog.KindEarthOrbit:
			comp.earth.OrbitalSpeedKmS = f.SpeedKmS
		case catalog.KindEarthRotation:
			comp.earth.EquatorialSpeedKmS = f.SpeedKmS
		}
		comp.frames = append(comp.frames, r)
	}
	return comp
}

// Compose walks the catalog root to leaf, resolving each frame's vector, and
// sums them by straight 3D addition.
func (c *Composer) Compose(e event.SpacetimeEvent) (ComposedState, error) {
	state := ComposedState{
		Event:                e,
		Components:           make([]VelocityComponent, 0, len(c.frames)),
		GeocentricPositionKm: transform.GeocentricPosition(e.Latitude(), e.Longitude()),
	}

	for _, r := range c.frames {
		var v vecmath.Vec3
		switch r.def.Kind {
		case catalog.KindRoot:
			continue
		case catalog.KindFixed:
			v = r.vector
		case catalog.KindEarthOrbit:
			ov, err := c.earth.OrbitalVelocity(e.UTC())
			if err != nil {
				return ComposedState{}, fmt.Errorf("frame %s: %w", r.def.Name, err)
			}
			v = ov
		case catalog.KindEarthRotation:
			rv, err := c.earth.RotationalVelocity(e.Latitude(), e.Longitude(), e.UTC())
			if err != nil {
				return ComposedState{}, fmt.Errorf("frame %s: %w", r.def.Name, err)
			}
			v = rv
		default:
			return ComposedState{}, fmt.Errorf("frame %s: %w: unhandled kind %q", r.def.Name, catalog.ErrIntegrity, r.def.Kind)
		}

		state.Components = append(state.Components, VelocityComponent{
			Name:         r.def.Name,
			Label:        r.def.Label,
			Kind:         r.def.Kind,
			Vector:       v,
			MagnitudeKmS: v.Norm(),
		})
		state.Total = state.Total.Add(v)
	}

	state.TotalMagnitudeKmS = state.Total.Norm()
	return state, nil
}
