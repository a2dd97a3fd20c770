// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/driver/nulldrv"
)

func newReg(t *testing.T, slots, bindless int) (*Registry, *nulldrv.GPU) {
	t.Helper()
	gpu := nulldrv.New()
	r, err := New(gpu, Config{Slots: slots, MaxBindless: bindless, Width: 800, Height: 600})
	require.NoError(t, err)
	return r, gpu
}

func colorDesc(name string, relative bool) *Desc {
	d := &Desc{Kind: ColorTex, Name: name, Format: driver.RGBA8Unorm, Relative: relative}
	if relative {
		d.Size = driver.Dim3D{Width: 100, Height: 100}
	} else {
		d.Size = driver.Dim3D{Width: 256, Height: 256}
	}
	return d
}

func TestDescNormalize(t *testing.T) {
	d := colorDesc("c", false)
	require.NoError(t, d.normalize())
	assert.Equal(t, 1, d.Layers)
	assert.Equal(t, 1, d.Levels)
	assert.Equal(t, 1, d.Samples)
	assert.NotZero(t, d.Usage&driver.URenderTarget)

	for _, d := range []*Desc{
		{Kind: ColorTex, Name: "no format", Size: driver.Dim3D{Width: 1, Height: 1}},
		{Kind: ColorTex, Name: "ds format", Format: driver.D16Unorm, Size: driver.Dim3D{Width: 1, Height: 1}},
		{Kind: DepthTex, Name: "color format", Format: driver.RGBA8Unorm, Size: driver.Dim3D{Width: 1, Height: 1}},
		{Kind: ColorTex, Name: "no size", Format: driver.RGBA8Unorm},
		{Kind: ColorTex, Name: "bad levels", Format: driver.RGBA8Unorm, Size: driver.Dim3D{Width: 1, Height: 1}, Levels: -1},
		{Kind: UniformBuf, Name: "no bytes"},
		{Kind: StorageBuf, Name: "relative buf", ByteSize: 64, Relative: true},
		{Kind: StorageBuf, Name: "bindless buf", ByteSize: 64, Bindless: true},
		{Kind: Kind(-1), Name: "kind"},
	} {
		assert.Error(t, d.normalize(), d.Name)
	}
}

func TestDescExtent(t *testing.T) {
	d := Desc{Relative: true, Size: driver.Dim3D{Width: 50, Height: 25}}
	assert.Equal(t, driver.Dim3D{Width: 400, Height: 150}, d.Extent(800, 600))
	assert.Equal(t, driver.Dim3D{Width: 1, Height: 1}, d.Extent(1, 3))

	d = Desc{Size: driver.Dim3D{Width: 64, Height: 32}}
	assert.Equal(t, driver.Dim3D{Width: 64, Height: 32}, d.Extent(800, 600))
}

func TestCreate(t *testing.T) {
	r, gpu := newReg(t, 2, 0)

	h, err := r.Create(colorDesc("color", true))
	require.NoError(t, err)
	assert.True(t, r.Valid(h))
	assert.True(t, r.IsOutputRelative(h))
	size, err := r.Size(h)
	require.NoError(t, err)
	assert.Equal(t, 800, size.Width)
	assert.Equal(t, 600, size.Height)
	_, err = r.View(h)
	assert.NoError(t, err)
	_, err = r.Buffer(h)
	assert.ErrorIs(t, err, ErrBadHandle)

	b, err := r.Create(&Desc{Kind: UniformBuf, Name: "ubo", ByteSize: 100})
	require.NoError(t, err)
	assert.False(t, r.IsOutputRelative(b))
	buf, err := r.Buffer(b)
	require.NoError(t, err)
	assert.True(t, buf.Visible())

	c := gpu.Live()
	assert.Equal(t, 1, c.Images)
	assert.Equal(t, 1, c.Views)
	assert.Equal(t, 1, c.Buffers)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 1, r.Relative())
}

func TestBindlessLimit(t *testing.T) {
	gpu := nulldrv.New()
	n := gpu.Limits().MaxDTexture
	_, err := New(gpu, Config{Slots: 1, MaxBindless: n + 1})
	assert.Error(t, err)
	r, err := New(gpu, Config{Slots: 1, MaxBindless: n})
	require.NoError(t, err)
	r.Free()
	assert.Equal(t, nulldrv.Counts{}, gpu.Live())
}

func TestCreateNoMemory(t *testing.T) {
	r, gpu := newReg(t, 1, 0)
	gpu.FailAfter(0)
	_, err := r.Create(colorDesc("color", false))
	require.Error(t, err)
	assert.True(t, errors.Is(err, driver.ErrNoDeviceMemory))
	assert.Contains(t, err.Error(), "color")
	assert.Zero(t, r.Len())
}

func TestDeferredDestroy(t *testing.T) {
	r, gpu := newReg(t, 2, 0)
	r.BeginFrame(0)
	h, err := r.Create(colorDesc("color", false))
	require.NoError(t, err)
	_, err = r.SubView(h, 0, 0)
	require.NoError(t, err)
	r.Destroy(h)
	assert.False(t, r.Valid(h))

	// Still alive while slot 0 may be in use.
	assert.Equal(t, 1, gpu.Live().Images)
	r.BeginFrame(1)
	assert.Equal(t, 1, gpu.Live().Images)
	r.BeginFrame(0)
	assert.Equal(t, nulldrv.Counts{}, gpu.Live())

	// No-op.
	r.Destroy(h)
}

func TestPruneDangling(t *testing.T) {
	r, _ := newReg(t, 2, 0)
	var hs []Handle
	for _, name := range []string{"a", "b", "c"} {
		h, err := r.Create(colorDesc(name, true))
		require.NoError(t, err)
		hs = append(hs, h)
	}
	fixed, err := r.Create(colorDesc("fixed", false))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Relative())
	assert.Zero(t, r.PruneDangling())

	assert.True(t, r.SetExtent(1024, 768))
	assert.False(t, r.SetExtent(1024, 768))
	assert.Equal(t, 1, r.Epoch())
	r.Destroy(hs[0])
	r.Destroy(hs[2])
	r.Destroy(fixed)
	assert.Equal(t, 3, r.Relative())
	assert.Equal(t, 2, r.PruneDangling())
	assert.Equal(t, 1, r.Relative())
	assert.Zero(t, r.PruneDangling())
	assert.True(t, r.IsOutputRelative(hs[1]))
}

func TestSubView(t *testing.T) {
	r, gpu := newReg(t, 1, 0)
	d := colorDesc("mips", false)
	d.Levels = 4
	h, err := r.Create(d)
	require.NoError(t, err)
	v1, err := r.SubView(h, 2, 0)
	require.NoError(t, err)
	v2, err := r.SubView(h, 2, 0)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	_, err = r.SubView(h, 4, 0)
	assert.Error(t, err)
	assert.Equal(t, 2, gpu.Live().Views)

	nv := v1.(*nulldrv.ImageView)
	assert.Equal(t, 2, nv.Level)
	assert.Equal(t, 1, nv.Levels)
}

func TestFree(t *testing.T) {
	r, gpu := newReg(t, 3, 16)
	for _, name := range []string{"a", "b"} {
		d := colorDesc(name, true)
		d.Bindless = true
		_, err := r.Create(d)
		require.NoError(t, err)
	}
	h, err := r.Create(colorDesc("c", false))
	require.NoError(t, err)
	r.Destroy(h)
	r.Free()
	assert.Equal(t, nulldrv.Counts{}, gpu.Live())
}

func TestRetire(t *testing.T) {
	r, gpu := newReg(t, 2, 0)
	r.BeginFrame(1)
	buf, err := gpu.NewBuffer(64, false, driver.UShaderRead)
	require.NoError(t, err)
	r.Retire(buf)
	r.Retire(nil)
	r.BeginFrame(0)
	assert.Equal(t, 1, gpu.Live().Buffers)
	r.BeginFrame(1)
	assert.Zero(t, gpu.Live().Buffers)
}

func TestFreeRetireOrder(t *testing.T) {
	r, gpu := newReg(t, 3, 0)
	img, err := gpu.NewImage(driver.RGBA8Unorm, driver.Dim3D{Width: 8, Height: 8}, 1, 1, 1, driver.URenderTarget)
	require.NoError(t, err)
	iv, err := img.NewView(driver.IView2D, 0, 1, 0, 1)
	require.NoError(t, err)
	pass, err := gpu.NewRenderPass(
		[]driver.Attachment{{Format: driver.RGBA8Unorm, Samples: 1}},
		[]driver.Subpass{{Color: []int{0}, DS: -1}},
	)
	require.NoError(t, err)
	fb, err := pass.NewFB([]driver.ImageView{iv}, 8, 8, 1)
	require.NoError(t, err)

	// The framebuffer lands in a higher slot than the
	// render pass that it depends on.
	r.BeginFrame(2)
	r.Retire(fb)
	r.BeginFrame(0)
	r.Retire(pass)
	r.Retire(iv)
	r.Retire(img)
	require.NotPanics(t, r.Free)
	assert.Equal(t, nulldrv.Counts{}, gpu.Live())
}
