// Package forces serves the static reference catalog of forces and motions
// acting on a person, from actual contact forces out to cosmological flows.
package forces

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

//go:embed forces.toml
var builtin []byte

// ErrInvalidCatalog is returned when a catalog document fails validation.
var ErrInvalidCatalog = errors.New("invalid forces catalog")

// Entry is one force or motion. Forces carry a Magnitude; motions carry a
// Velocity and a Period.
type Entry struct {
	Name        string `toml:"name" json:"name"`
	Magnitude   string `toml:"magnitude" json:"magnitude,omitempty"`
	Velocity    string `toml:"velocity" json:"velocity,omitempty"`
	Period      string `toml:"period" json:"period,omitempty"`
	Description string `toml:"description" json:"description"`
}

// Category groups entries at one physical scale.
type Category struct {
	Key         string  `toml:"key" json:"key"`
	Description string  `toml:"description" json:"description"`
	Entries     []Entry `toml:"entry" json:"entries"`
}

// Catalog is an ordered list of categories, smallest scale first.
type Catalog struct {
	Categories []Category `toml:"category" json:"categories"`
}

// Lookup returns the category with the given key.
func (c *Catalog) Lookup(key string) (Category, bool) {
	for _, cat := range c.Categories {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Len returns the total number of entries across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Entries)
	}
	return n
}

// Parse decodes and validates a TOML catalog.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing forces catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("%w: no categories", ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		if cat.Key == "" {
			return fmt.Errorf("%w: category %d has no key", ErrInvalidCatalog, i)
		}
		if seen[cat.Key] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidCatalog, cat.Key)
		}
		seen[cat.Key] = true
		if len(cat.Entries) == 0 {
			return fmt.Errorf("%w: category %q is empty", ErrInvalidCatalog, cat.Key)
		}
		for j, e := range cat.Entries {
			if e.Name == "" {
				return fmt.Errorf("%w: category %q entry %d has no name", ErrInvalidCatalog, cat.Key, j)
			}
		}
	}
	return nil
}

var loadDefault = sync.OnceValue(func() *Catalog {
	c, err := Parse(bytes.NewReader(builtin))
	if err != nil {
		panic(fmt.Sprintf("built-in forces catalog: %v", err))
	}
	return c
})

// Default returns the built-in catalog. The result is shared and must not
// be modified.
func Default() *Catalog {
	return loadDefault()
}
