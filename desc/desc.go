// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package desc implements declarative frame graph
// descriptions, serialized as YAML or TOML.
package desc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Root description object.
type File struct {
	Extent    Extent     `yaml:"extent,omitempty" toml:"extent,omitempty"`
	Config    Config     `yaml:"config,omitempty" toml:"config,omitempty"`
	Resources []Resource `yaml:"resources,omitempty" toml:"resources,omitempty"`
	Views     []View     `yaml:"views,omitempty" toml:"views,omitempty"`
	Externals []External `yaml:"externals,omitempty" toml:"externals,omitempty"`
	Passes    []Pass     `yaml:"passes" toml:"passes"`
}

// Output extent.
type Extent struct {
	Width  int `yaml:"width" toml:"width"`   // Default is 1280.
	Height int `yaml:"height" toml:"height"` // Default is 720.
}

// Renderer configuration.
// Zero values select the renderer's defaults.
type Config struct {
	DoubleBuffered bool  `yaml:"double_buffered,omitempty" toml:"double_buffered,omitempty"`
	ParallelRecord bool  `yaml:"parallel_record,omitempty" toml:"parallel_record,omitempty"`
	MaxBindless    int   `yaml:"max_bindless,omitempty" toml:"max_bindless,omitempty"`
	ParamAlign     int64 `yaml:"param_align,omitempty" toml:"param_align,omitempty"`
	ParamMinSize   int64 `yaml:"param_min_size,omitempty" toml:"param_min_size,omitempty"`
}

// resources' element.
type Resource struct {
	Name string `yaml:"name" toml:"name"`
	// One of KindColor, KindDepth, KindStorage or
	// KindUniform.
	Kind   string `yaml:"kind" toml:"kind"`
	Format string `yaml:"format,omitempty" toml:"format,omitempty"`
	Width  int    `yaml:"width,omitempty" toml:"width,omitempty"`
	Height int    `yaml:"height,omitempty" toml:"height,omitempty"`
	// Width and Height are percentages of the output
	// extent.
	Relative bool  `yaml:"relative,omitempty" toml:"relative,omitempty"`
	Layers   int   `yaml:"layers,omitempty" toml:"layers,omitempty"`   // Default is 1.
	Levels   int   `yaml:"levels,omitempty" toml:"levels,omitempty"`   // Default is 1.
	Samples  int   `yaml:"samples,omitempty" toml:"samples,omitempty"` // Default is 1.
	Size     int64 `yaml:"size,omitempty" toml:"size,omitempty"`       // Buffers only.
	Bindless bool  `yaml:"bindless,omitempty" toml:"bindless,omitempty"`
}

// views' element.
type View struct {
	Name   string `yaml:"name" toml:"name"`
	Parent string `yaml:"parent" toml:"parent"`
	Level  int    `yaml:"level,omitempty" toml:"level,omitempty"`
	Layer  int    `yaml:"layer,omitempty" toml:"layer,omitempty"`
}

// externals' element.
type External struct {
	Name   string `yaml:"name" toml:"name"`
	Format string `yaml:"format" toml:"format"`
}

// passes' element.
type Pass struct {
	Name string `yaml:"name" toml:"name"`
	// One of KindGraphics or KindCompute.
	Kind   string   `yaml:"kind" toml:"kind"`
	Reads  []string `yaml:"reads,omitempty" toml:"reads,omitempty"`
	Writes []Write  `yaml:"writes,omitempty" toml:"writes,omitempty"`
	// Number of vertices that the pass draws.
	// Graphics passes only.
	Draw int `yaml:"draw,omitempty" toml:"draw,omitempty"`
	// Workgroup counts that the pass dispatches.
	// Compute passes only.
	Dispatch []int `yaml:"dispatch,omitempty" toml:"dispatch,omitempty"`
}

// pass.writes' element.
type Write struct {
	Resource string `yaml:"resource" toml:"resource"`
	// One of RoleColor, RoleDepth, RoleResolve or
	// RoleStorage.
	Role  string `yaml:"role" toml:"role"`
	Clear *Clear `yaml:"clear,omitempty" toml:"clear,omitempty"`
}

// write.clear.
type Clear struct {
	Color   []float32 `yaml:"color,omitempty" toml:"color,omitempty"`
	Depth   float32   `yaml:"depth,omitempty" toml:"depth,omitempty"`
	Stencil uint32    `yaml:"stencil,omitempty" toml:"stencil,omitempty"`
}

// resource.kind values.
const (
	KindColor   = "color"
	KindDepth   = "depth"
	KindStorage = "storage"
	KindUniform = "uniform"
)

// pass.kind values.
const (
	KindGraphics = "graphics"
	KindCompute  = "compute"
)

// write.role values.
const (
	RoleColor   = "color"
	RoleDepth   = "depth"
	RoleResolve = "resolve"
	RoleStorage = "storage"
)

// Default output extent.
const (
	DefaultWidth  = 1280
	DefaultHeight = 720
)

// Format is a serialization format.
type Format int

// Serialization formats.
const (
	YAML Format = iota
	TOML
)

func (f Format) String() string {
	switch f {
	case YAML:
		return "yaml"
	case TOML:
		return "toml"
	}
	return "Format(?)"
}

// ErrFormat means that a file's serialization format
// could not be determined.
var ErrFormat = errors.New("desc: unknown format")

// FormatOf returns the serialization format implied by
// the extension of path.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrFormat, filepath.Base(path))
}

// Encode encodes f into w.
func Encode(w io.Writer, f *File, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	case TOML:
		return toml.NewEncoder(w).Encode(f)
	}
	return ErrFormat
}

// Decode decodes r into a new File instance.
// Unknown fields are rejected. The File is not checked.
func Decode(r io.Reader, format Format) (*File, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil {
			if err == io.EOF {
				return nil, newErr("empty description")
			}
			return nil, err
		}
	case TOML:
		dec := toml.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, err
		}
	default:
		return nil, ErrFormat
	}
	return &f, nil
}

// Parse decodes and checks data.
func Parse(data []byte, format Format) (*File, error) {
	f, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads, decodes and checks the file at path.
// The serialization format is given by the file
// extension.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Size returns the output extent, with defaults
// applied.
func (f *File) Size() (width, height int) {
	width, height = f.Extent.Width, f.Extent.Height
	if width == 0 {
		width = DefaultWidth
	}
	if height == 0 {
		height = DefaultHeight
	}
	return
}
