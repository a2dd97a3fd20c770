// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package engine runs frame graphs on a GPU, frame
// after frame.
package engine

import (
	"errors"

	"github.com/gviegas/fgraph/engine/internal/shader"
	"github.com/gviegas/fgraph/params"
)

const (
	// The maximum number of frames in flight.
	MaxFrame = 3

	dflMaxBindless  = 4096
	dflParamAlign   = shader.ParamAlign
	dflParamMinSize = params.DefaultMinSize
)

// Config is used to configure a Renderer.
type Config struct {
	// Prefer double-buffering rather than the
	// default triple-buffering.
	//
	// Default is false.
	DoubleBuffered bool

	// Record each pass into its own command buffer,
	// concurrently.
	//
	// Default is false.
	ParallelRecord bool

	// The length of the bindless texture table.
	//
	// Default is 4096.
	MaxBindless int

	// The alignment of parameter ranges, in bytes.
	// Zero means tightly packed ranges.
	// It must be a power of two.
	//
	// Default is 256.
	ParamAlign int64

	// The minimum size of parameter buffers, in bytes.
	//
	// Default is 256.
	ParamMinSize int64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DoubleBuffered: false,
		ParallelRecord: false,
		MaxBindless:    dflMaxBindless,
		ParamAlign:     dflParamAlign,
		ParamMinSize:   dflParamMinSize,
	}
}

// Frames returns the number of frames in flight.
func (c Config) Frames() int {
	if c.DoubleBuffered {
		return 2
	}
	return MaxFrame
}

func (c *Config) validate() error {
	switch {
	case c.MaxBindless < 1:
		return newRendErr("Config.MaxBindless must be at least 1")
	case c.ParamAlign < 0 || c.ParamAlign&(c.ParamAlign-1) != 0:
		return newRendErr("Config.ParamAlign must be zero or a power of two")
	case c.ParamMinSize < 0:
		return newRendErr("Config.ParamMinSize must not be negative")
	}
	return nil
}

func newRendErr(s string) error { return errors.New("renderer: " + s) }
