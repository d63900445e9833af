package catalog

import (
	"fmt"
	"io"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// fileFormat is the on-disk TOML layout:
//
//	[[frame]]
//	name = "cmb_frame"
//	kind = "root"
//	...
type fileFormat struct {
	Frames []FrameDefinition `toml:"frame"`
}

// LoadFile reads a TOML catalog from path and validates it.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog file: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a TOML catalog from r and validates it. Unknown keys are rejected.
func Parse(r io.Reader) (*Catalog, error) {
	var ff fileFormat
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&ff); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return New(ff.Frames)
}

// Marshal encodes the catalog in the same TOML layout Parse accepts.
func (c *Catalog) Marshal() ([]byte, error) {
	return toml.Marshal(fileFormat{Frames: c.Frames()})
}
