// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"errors"

	"github.com/gviegas/fgraph/driver"
)

// Kind is the kind of a resource.
type Kind int

// Resource kinds.
const (
	ColorTex Kind = iota
	DepthTex
	StorageBuf
	UniformBuf
)

// IsTexture returns whether k is a texture kind.
func (k Kind) IsTexture() bool { return k == ColorTex || k == DepthTex }

func (k Kind) String() string {
	switch k {
	case ColorTex:
		return "color"
	case DepthTex:
		return "depth"
	case StorageBuf:
		return "storage"
	case UniformBuf:
		return "uniform"
	}
	return "Kind(?)"
}

// Desc describes a resource.
//
// When Relative is set, Size.Width and Size.Height
// are percentages of the output extent rather than
// a number of texels. Layers, Levels and Samples
// default to 1. Usage defaults to a kind-specific
// set of flags. ByteSize is only meaningful for
// buffer kinds.
type Desc struct {
	Kind     Kind
	Name     string
	Format   driver.PixelFmt
	Size     driver.Dim3D
	Relative bool
	Layers   int
	Levels   int
	Samples  int
	ByteSize int64
	Usage    driver.Usage
	Bindless bool
}

var (
	errNoFormat   = errors.New("registry: texture format not set")
	errBadFormat  = errors.New("registry: format does not match texture kind")
	errBadSize    = errors.New("registry: invalid texture size")
	errBadPercent = errors.New("registry: invalid output-relative percentage")
	errBadBufSize = errors.New("registry: invalid buffer size")
	errBadCount   = errors.New("registry: invalid layer/level/sample count")
	errBufRel     = errors.New("registry: buffers cannot be output-relative")
	errBufBind    = errors.New("registry: buffers cannot be bindless")
)

// normalize fills in defaults and validates d.
func (d *Desc) normalize() error {
	if !d.Kind.IsTexture() {
		switch {
		case d.Kind != StorageBuf && d.Kind != UniformBuf:
			return errors.New("registry: undefined resource kind")
		case d.ByteSize <= 0:
			return errBadBufSize
		case d.Relative:
			return errBufRel
		case d.Bindless:
			return errBufBind
		}
		if d.Usage == 0 {
			if d.Kind == StorageBuf {
				d.Usage = driver.UShaderRead | driver.UShaderWrite | driver.UCopyDst
			} else {
				d.Usage = driver.UShaderConst
			}
		}
		return nil
	}
	switch {
	case d.Format == driver.FInvalid:
		return errNoFormat
	case d.Format.IsDS() != (d.Kind == DepthTex):
		return errBadFormat
	case d.Size.Width < 1 || d.Size.Height < 1:
		if d.Relative {
			return errBadPercent
		}
		return errBadSize
	}
	for _, p := range [...]*int{&d.Layers, &d.Levels, &d.Samples} {
		switch {
		case *p == 0:
			*p = 1
		case *p < 0:
			return errBadCount
		}
	}
	if d.Usage == 0 {
		d.Usage = driver.URenderTarget | driver.UShaderSample
		if d.Kind == ColorTex {
			d.Usage |= driver.UCopySrc
		}
	}
	if d.Bindless {
		d.Usage |= driver.UShaderSample
	}
	return nil
}

// Extent returns the size of a texture described by d
// given the output extent.
// Output-relative sizes are computed as
// percent * output / 100, and never less than 1.
func (d *Desc) Extent(width, height int) driver.Dim3D {
	if !d.Relative {
		return d.Size
	}
	return driver.Dim3D{
		Width:  max(1, d.Size.Width*width/100),
		Height: max(1, d.Size.Height*height/100),
		Depth:  d.Size.Depth,
	}
}
