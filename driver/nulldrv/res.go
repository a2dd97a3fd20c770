// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package nulldrv

import (
	"errors"

	"github.com/gviegas/fgraph/driver"
)

// Buffer implements driver.Buffer.
type Buffer struct {
	gpu       *GPU
	data      []byte
	visible   bool
	destroyed bool
	Usage     driver.Usage
}

// Destroy implements driver.Destroyer.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	b.data = nil
	b.gpu.track(func(c *Counts) { c.Buffers-- })
}

// Destroyed returns whether b was destroyed.
func (b *Buffer) Destroyed() bool { return b.destroyed }

// Visible implements driver.Buffer.
func (b *Buffer) Visible() bool { return b.visible }

// Bytes implements driver.Buffer.
func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

// Cap implements driver.Buffer.
func (b *Buffer) Cap() int64 { return int64(len(b.data)) }

// Image implements driver.Image.
type Image struct {
	gpu       *GPU
	views     int
	destroyed bool
	Format    driver.PixelFmt
	Size      driver.Dim3D
	Layers    int
	Levels    int
	Samples   int
	Usage     driver.Usage
}

// Destroy implements driver.Destroyer.
// It panics if views created from the image are still
// alive.
func (m *Image) Destroy() {
	if m.destroyed {
		return
	}
	if m.views != 0 {
		panic("nulldrv: image destroyed before its views")
	}
	m.destroyed = true
	m.gpu.track(func(c *Counts) { c.Images-- })
}

// Destroyed returns whether m was destroyed.
func (m *Image) Destroyed() bool { return m.destroyed }

// NewView implements driver.Image.
func (m *Image) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	switch {
	case m.destroyed:
		return nil, errors.New("nulldrv: view of destroyed image")
	case layer < 0 || layers < 1 || layer+layers > m.Layers:
		return nil, errors.New("nulldrv: view layer range out of bounds")
	case level < 0 || levels < 1 || level+levels > m.Levels:
		return nil, errors.New("nulldrv: view level range out of bounds")
	}
	m.views++
	m.gpu.track(func(c *Counts) { c.Views++ })
	return &ImageView{img: m, Type: typ, Layer: layer, Layers: layers, Level: level, Levels: levels}, nil
}

// ImageView implements driver.ImageView.
type ImageView struct {
	img       *Image
	destroyed bool
	Type      driver.ViewType
	Layer     int
	Layers    int
	Level     int
	Levels    int
}

// Destroy implements driver.Destroyer.
func (v *ImageView) Destroy() {
	if v.destroyed {
		return
	}
	v.destroyed = true
	v.img.views--
	v.img.gpu.track(func(c *Counts) { c.Views-- })
}

// Destroyed returns whether v was destroyed.
func (v *ImageView) Destroyed() bool { return v.destroyed }

// Image implements driver.ImageView.
func (v *ImageView) Image() driver.Image { return v.img }

// RenderPass implements driver.RenderPass.
type RenderPass struct {
	gpu       *GPU
	fbs       int
	destroyed bool
	Att       []driver.Attachment
	Sub       []driver.Subpass
}

// Destroy implements driver.Destroyer.
func (p *RenderPass) Destroy() {
	if p.destroyed {
		return
	}
	if p.fbs != 0 {
		panic("nulldrv: render pass destroyed before its framebuffers")
	}
	p.destroyed = true
	p.gpu.track(func(c *Counts) { c.RenderPasses-- })
}

// NewFB implements driver.RenderPass.
func (p *RenderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	if len(iv) != len(p.Att) {
		return nil, errors.New("nulldrv: framebuffer view count mismatch")
	}
	for i, v := range iv {
		v, ok := v.(*ImageView)
		if !ok || v.destroyed {
			return nil, errors.New("nulldrv: invalid framebuffer view")
		}
		if v.img.Format != p.Att[i].Format {
			return nil, errors.New("nulldrv: framebuffer view format mismatch")
		}
	}
	p.fbs++
	p.gpu.track(func(c *Counts) { c.Framebufs++ })
	return &Framebuf{pass: p, Views: append([]driver.ImageView(nil), iv...), Width: width, Height: height, Layers: layers}, nil
}

// Framebuf implements driver.Framebuf.
type Framebuf struct {
	pass      *RenderPass
	destroyed bool
	Views     []driver.ImageView
	Width     int
	Height    int
	Layers    int
}

// Destroy implements driver.Destroyer.
func (f *Framebuf) Destroy() {
	if f.destroyed {
		return
	}
	f.destroyed = true
	f.pass.fbs--
	f.pass.gpu.track(func(c *Counts) { c.Framebufs-- })
}

// ShaderCode implements driver.ShaderCode.
type ShaderCode struct {
	gpu       *GPU
	destroyed bool
	Data      []byte
}

// Destroy implements driver.Destroyer.
func (s *ShaderCode) Destroy() {
	if !s.destroyed {
		s.destroyed = true
		s.gpu.track(func(c *Counts) { c.Shaders-- })
	}
}

// Pipeline implements driver.Pipeline.
type Pipeline struct {
	gpu       *GPU
	destroyed bool
	State     any
}

// Destroy implements driver.Destroyer.
func (p *Pipeline) Destroy() {
	if !p.destroyed {
		p.destroyed = true
		p.gpu.track(func(c *Counts) { c.Pipelines-- })
	}
}

// binding identifies a descriptor element of a heap copy.
type binding struct{ cpy, nr, idx int }

// BufRange is a buffer range set in a DescHeap.
type BufRange struct {
	Buf  driver.Buffer
	Off  int64
	Size int64
}

// DescHeap implements driver.DescHeap.
type DescHeap struct {
	gpu       *GPU
	desc      []driver.Descriptor
	n         int
	bufs      map[binding]BufRange
	imgs      map[binding]driver.ImageView
	destroyed bool
}

// Destroy implements driver.Destroyer.
func (h *DescHeap) Destroy() {
	if !h.destroyed {
		h.destroyed = true
		h.bufs, h.imgs = nil, nil
		h.gpu.track(func(c *Counts) { c.Heaps-- })
	}
}

// New implements driver.DescHeap.
func (h *DescHeap) New(n int) error {
	if n < 0 {
		return errors.New("nulldrv: negative heap copy count")
	}
	if n == h.n {
		return nil
	}
	h.n = n
	h.bufs = make(map[binding]BufRange)
	h.imgs = make(map[binding]driver.ImageView)
	return nil
}

func (h *DescHeap) check(cpy, nr, start, n int, types ...driver.DescType) {
	if cpy < 0 || cpy >= h.n {
		panic("nulldrv: heap copy out of bounds")
	}
	for _, d := range h.desc {
		if d.Nr != nr {
			continue
		}
		if start < 0 || start+n > d.Len {
			panic("nulldrv: descriptor range out of bounds")
		}
		for _, t := range types {
			if d.Type == t {
				return
			}
		}
		panic("nulldrv: descriptor type mismatch")
	}
	panic("nulldrv: undefined descriptor")
}

// SetBuffer implements driver.DescHeap.
func (h *DescHeap) SetBuffer(cpy, nr, start int, buf []driver.Buffer, off, size []int64) {
	h.check(cpy, nr, start, len(buf), driver.DBuffer, driver.DConstant, driver.DDynBuffer)
	for i := range buf {
		h.bufs[binding{cpy, nr, start + i}] = BufRange{buf[i], off[i], size[i]}
	}
}

// SetImage implements driver.DescHeap.
func (h *DescHeap) SetImage(cpy, nr, start int, iv []driver.ImageView) {
	h.check(cpy, nr, start, len(iv), driver.DImage, driver.DTexture)
	for i := range iv {
		h.imgs[binding{cpy, nr, start + i}] = iv[i]
	}
}

// Count implements driver.DescHeap.
func (h *DescHeap) Count() int { return h.n }

// Len implements driver.DescHeap.
func (h *DescHeap) Len() int { return len(h.desc) }

// BufferAt returns the buffer range set at a given
// descriptor element.
func (h *DescHeap) BufferAt(cpy, nr, idx int) (BufRange, bool) {
	r, ok := h.bufs[binding{cpy, nr, idx}]
	return r, ok
}

// ImageAt returns the image view set at a given
// descriptor element.
func (h *DescHeap) ImageAt(cpy, nr, idx int) (driver.ImageView, bool) {
	v, ok := h.imgs[binding{cpy, nr, idx}]
	return v, ok && v != nil
}

// DescTable implements driver.DescTable.
type DescTable struct {
	gpu       *GPU
	heaps     []driver.DescHeap
	destroyed bool
}

// Destroy implements driver.Destroyer.
func (t *DescTable) Destroy() {
	if !t.destroyed {
		t.destroyed = true
		t.gpu.track(func(c *Counts) { c.Tables-- })
	}
}

// Len implements driver.DescTable.
func (t *DescTable) Len() int { return len(t.heaps) }

// Heap implements driver.DescTable.
func (t *DescTable) Heap(i int) driver.DescHeap { return t.heaps[i] }
