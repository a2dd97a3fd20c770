// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	c := DefaultConfig()
	assert.False(t, c.DoubleBuffered)
	assert.Equal(t, MaxFrame, c.Frames())
	assert.NoError(t, c.validate())
	c.DoubleBuffered = true
	assert.Equal(t, 2, c.Frames())
	assert.Equal(t, MaxFrame, DefaultConfig().Frames())

	for _, f := range []func(*Config){
		func(c *Config) { c.MaxBindless = 0 },
		func(c *Config) { c.ParamAlign = 48 },
		func(c *Config) { c.ParamAlign = -256 },
		func(c *Config) { c.ParamMinSize = -1 },
	} {
		c := DefaultConfig()
		f(&c)
		assert.Error(t, c.validate())
	}
	c = DefaultConfig()
	c.ParamAlign = 0
	assert.NoError(t, c.validate())
}
