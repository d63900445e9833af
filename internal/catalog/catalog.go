// Package catalog holds the table of nested reference-frame motions the
// velocity composer walks.
//
// Each entry is plain data: a bulk motion with an apex direction (J2000 right
// ascension/declination), a speed, and the name of the larger frame it is
// measured against. Entries form a tree rooted at the CMB rest frame. The two
// Earth entries carry only a speed; their directions depend on the event and
// are resolved by the kinematics package.
//
// A Catalog is immutable after construction and safe for concurrent use.
package catalog

import (
	"errors"
	"fmt"
	"math"
)

// Kind tags how a frame's velocity vector is resolved.
type Kind string

const (
	// KindRoot is the rest frame all others are measured against. It contributes no velocity.
	KindRoot Kind = "root"
	// KindFixed is a catalog-fixed apex direction and speed.
	KindFixed Kind = "fixed"
	// KindEarthOrbit is Earth's heliocentric orbital motion (date dependent).
	KindEarthOrbit Kind = "earth_orbit"
	// KindEarthRotation is the observer's motion from Earth's spin (latitude and time dependent).
	KindEarthRotation Kind = "earth_rotation"
)

var (
	// ErrUnknownFrame is returned when a frame name does not resolve to a catalog entry.
	ErrUnknownFrame = errors.New("unknown frame")

	// ErrIntegrity is returned when a catalog fails its load-time checks.
	ErrIntegrity = errors.New("catalog integrity")
)

// FrameDefinition is one catalog entry.
type FrameDefinition struct {
	Name        string  `toml:"name" json:"name"`
	Label       string  `toml:"label" json:"label"`
	Kind        Kind    `toml:"kind" json:"kind"`
	ApexRA      float64 `toml:"apex_ra" json:"apex_right_ascension"`
	ApexDec     float64 `toml:"apex_dec" json:"apex_declination"`
	SpeedKmS    float64 `toml:"speed_km_s" json:"speed_km_s"`
	Parent      string  `toml:"parent" json:"parent_frame_name,omitempty"`
	Description string  `toml:"description" json:"description,omitempty"`
}

// IsRoot reports whether the entry has no parent frame.
func (f FrameDefinition) IsRoot() bool {
	return f.Parent == ""
}

// Catalog is a validated, ordered set of frame definitions. Order is root to
// leaf: every entry appears after its parent.
type Catalog struct {
	frames []FrameDefinition
	index  map[string]int
}

// New validates defs and builds a Catalog. The slice is copied.
//
// Checks: unique non-empty names, exactly one root, every parent resolves,
// parents precede children (which also rules out cycles), finite non-negative
// speeds, apex coordinates in range, at most one entry per Earth kind.
func New(defs []FrameDefinition) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: catalog is empty", ErrIntegrity)
	}

	c := &Catalog{
		frames: make([]FrameDefinition, len(defs)),
		index:  make(map[string]int, len(defs)),
	}
	copy(c.frames, defs)

	for i, f := range c.frames {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrIntegrity, i)
		}
		if _, dup := c.index[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate frame %q", ErrIntegrity, f.Name)
		}
		c.index[f.Name] = i
	}

	roots := 0
	kinds := make(map[Kind]int)
	for i, f := range c.frames {
		if err := checkEntry(f); err != nil {
			return nil, err
		}
		kinds[f.Kind]++

		if f.IsRoot() {
			roots++
			if f.Kind != KindRoot {
				return nil, fmt.Errorf("%w: frame %q has no parent but kind %q", ErrIntegrity, f.Name, f.Kind)
			}
			continue
		}
		if f.Kind == KindRoot {
			return nil, fmt.Errorf("%w: root-kind frame %q has parent %q", ErrIntegrity, f.Name, f.Parent)
		}
		p, ok := c.index[f.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: frame %q: parent %q: %w", ErrIntegrity, f.Name, f.Parent, ErrUnknownFrame)
		}
		if p >= i {
			// A parent listed at or after its child is either out of order or part of a cycle.
			return nil, fmt.Errorf("%w: frame %q listed before its parent %q", ErrIntegrity, f.Name, f.Parent)
		}
	}

	if roots != 1 {
		return nil, fmt.Errorf("%w: want exactly one root frame, found %d", ErrIntegrity, roots)
	}
	for _, k := range []Kind{KindEarthOrbit, KindEarthRotation} {
		if kinds[k] > 1 {
			return nil, fmt.Errorf("%w: %d frames of kind %q, want at most one", ErrIntegrity, kinds[k], k)
		}
	}

	return c, nil
}

func checkEntry(f FrameDefinition) error {
	switch f.Kind {
	case KindRoot, KindFixed, KindEarthOrbit, KindEarthRotation:
	default:
		return fmt.Errorf("%w: frame %q has unknown kind %q", ErrIntegrity, f.Name, f.Kind)
	}
	if math.IsNaN(f.SpeedKmS) || math.IsInf(f.SpeedKmS, 0) || f.SpeedKmS < 0 {
		return fmt.Errorf("%w: frame %q has invalid speed %v", ErrIntegrity, f.Name, f.SpeedKmS)
	}
	if f.Kind == KindRoot && f.SpeedKmS != 0 {
		return fmt.Errorf("%w: root frame %q must have zero speed", ErrIntegrity, f.Name)
	}
	if f.Kind == KindFixed {
		if math.IsNaN(f.ApexRA) || f.ApexRA < 0 || f.ApexRA >= 360 {
			return fmt.Errorf("%w: frame %q apex RA %v outside [0, 360)", ErrIntegrity, f.Name, f.ApexRA)
		}
		if math.IsNaN(f.ApexDec) || f.ApexDec < -90 || f.ApexDec > 90 {
			return fmt.Errorf("%w: frame %q apex Dec %v outside [-90, 90]", ErrIntegrity, f.Name, f.ApexDec)
		}
	}
	return nil
}

// Frames returns the entries in catalog order (root to leaf). The returned
// slice is a copy.
func (c *Catalog) Frames() []FrameDefinition {
	out := make([]FrameDefinition, len(c.frames))
	copy(out, c.frames)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.frames)
}

// Lookup returns the entry with the given name.
func (c *Catalog) Lookup(name string) (FrameDefinition, error) {
	i, ok := c.index[name]
	if !ok {
		return FrameDefinition{}, fmt.Errorf("%w: %q", ErrUnknownFrame, name)
	}
	return c.frames[i], nil
}

// ByKind returns the first entry of the given kind.
func (c *Catalog) ByKind(k Kind) (FrameDefinition, bool) {
	for _, f := range c.frames {
		if f.Kind == k {
			return f, true
		}
	}
	return FrameDefinition{}, false
}

// IterChain returns the chain of entries from the root down to name.
func (c *Catalog) IterChain(name string) ([]FrameDefinition, error) {
	i, ok := c.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, name)
	}

	var chain []FrameDefinition
	for {
		f := c.frames[i]
		chain = append(chain, f)
		if f.IsRoot() {
			break
		}
		i = c.index[f.Parent]
	}

	// Built leaf-first; flip to root-first.
	for l, r := 0, len(chain)-1; l < r; l, r = l+1, r-1 {
		chain[l], chain[r] = chain[r], chain[l]
	}
	return chain, nil
}
