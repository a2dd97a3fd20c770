// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"testing"

	"github.com/gviegas/fgraph/driver"
)

func TestGPUDriver(t *testing.T) {
	g, _ := drv.Open()
	if gpu.Driver() != drv || gpu.Driver() != g.Driver() {
		t.Error("GPU.Driver: unexpected Driver value")
	}
}

func TestPixelFmt(t *testing.T) {
	for _, x := range [...]struct {
		pf   driver.PixelFmt
		ds   bool
		size int
	}{
		{driver.RGBA8Unorm, false, 4},
		{driver.BGRA8SRGB, false, 4},
		{driver.R8Unorm, false, 1},
		{driver.RGBA16Float, false, 8},
		{driver.RGBA32Float, false, 16},
		{driver.D16Unorm, true, 2},
		{driver.D32Float, true, 4},
		{driver.S8Uint, true, 1},
		{driver.D32FloatS8Uint, true, 8},
		{driver.FInvalid, false, 0},
	} {
		if ds := x.pf.IsDS(); ds != x.ds {
			t.Errorf("PixelFmt(%d).IsDS:\nhave %t\nwant %t", x.pf, ds, x.ds)
		}
		if n := x.pf.Size(); n != x.size {
			t.Errorf("PixelFmt(%d).Size:\nhave %d\nwant %d", x.pf, n, x.size)
		}
	}
}

func TestUsage(t *testing.T) {
	for _, u := range [...]driver.Usage{
		driver.UShaderRead,
		driver.UShaderWrite,
		driver.UShaderConst,
		driver.UShaderSample,
		driver.URenderTarget,
		driver.UCopySrc,
		driver.UCopyDst,
	} {
		if driver.UGeneric&u != u {
			t.Errorf("UGeneric does not contain Usage %#x", u)
		}
	}
}
