// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package nulldrv implements a driver that does not
// talk to any device.
// Objects live in host memory, commands are recorded into
// inspectable logs and committed work completes
// immediately. It is meant for tests and dry runs.
//
// Importing the package registers the driver as "null".
package nulldrv

import (
	"errors"
	"sync"

	"github.com/gviegas/fgraph/driver"
)

// Name is the name of the driver.
const Name = "null"

var errInvalid = errors.New("nulldrv: invalid command sequence")

func init() { driver.Register(&Driver{}) }

// Driver implements driver.Driver.
type Driver struct {
	mu  sync.Mutex
	gpu *GPU
}

// Open returns the driver's GPU, creating it if needed.
func (d *Driver) Open() (driver.GPU, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.gpu == nil {
		d.gpu = New()
		d.gpu.drv = d
	}
	return d.gpu, nil
}

// Name returns Name.
func (d *Driver) Name() string { return Name }

// Close discards the driver's GPU.
func (d *Driver) Close() {
	d.mu.Lock()
	d.gpu = nil
	d.mu.Unlock()
}

// Counts contains the number of live objects of each
// type created from a GPU.
type Counts struct {
	Buffers      int
	Images       int
	Views        int
	RenderPasses int
	Framebufs    int
	Shaders      int
	Pipelines    int
	Heaps        int
	Tables       int
	CmdBuffers   int
}

// GPU implements driver.GPU.
type GPU struct {
	drv     *Driver
	mu      sync.Mutex
	live    Counts
	fail    int
	commits int
	limits  driver.Limits
}

// New creates a GPU that is not associated with the
// registered driver.
// Every call returns a distinct GPU with its own
// object counts.
func New() *GPU {
	return &GPU{
		fail: -1,
		limits: driver.Limits{
			MaxImage2D:      16384,
			MaxLayers:       2048,
			MaxDescHeaps:    4,
			MaxDTexture:     1 << 16,
			MaxDBufferRange: 1 << 27,
			MaxColorTargets: 8,
			MaxFBSize:       [2]int{16384, 16384},
			MaxDispatch:     [3]int{65535, 65535, 65535},
		},
	}
}

// FailAfter makes image and buffer creation fail with
// driver.ErrNoDeviceMemory after n further successful
// allocations. A negative n disables failure injection.
func (g *GPU) FailAfter(n int) {
	g.mu.Lock()
	g.fail = n
	g.mu.Unlock()
}

// Live returns the current object counts.
func (g *GPU) Live() Counts {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// Commits returns the number of successful Commit calls.
func (g *GPU) Commits() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commits
}

// track applies f to the live counts.
func (g *GPU) track(f func(*Counts)) {
	g.mu.Lock()
	f(&g.live)
	g.mu.Unlock()
}

// alloc consumes one allocation from the failure budget.
func (g *GPU) alloc() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.fail == 0:
		return driver.ErrNoDeviceMemory
	case g.fail > 0:
		g.fail--
	}
	return nil
}

// Driver implements driver.GPU.
func (g *GPU) Driver() driver.Driver {
	if g.drv == nil {
		return &Driver{gpu: g}
	}
	return g.drv
}

// Commit implements driver.GPU.
// Execution completes in a separate goroutine which
// sends nil on ch.
func (g *GPU) Commit(cb []driver.CmdBuffer, ch chan<- error) error {
	for _, c := range cb {
		c, ok := c.(*CmdBuffer)
		if !ok || c.destroyed || c.recording || c.pending {
			return errInvalid
		}
	}
	for _, c := range cb {
		c := c.(*CmdBuffer)
		c.mu.Lock()
		c.pending = true
		c.mu.Unlock()
	}
	g.mu.Lock()
	g.commits++
	g.mu.Unlock()
	go func() {
		for _, c := range cb {
			c := c.(*CmdBuffer)
			c.mu.Lock()
			c.pending = false
			c.mu.Unlock()
		}
		ch <- nil
	}()
	return nil
}

// NewCmdBuffer implements driver.GPU.
func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) {
	g.track(func(c *Counts) { c.CmdBuffers++ })
	return &CmdBuffer{gpu: g}, nil
}

// NewRenderPass implements driver.GPU.
func (g *GPU) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	if len(sub) == 0 {
		return nil, errors.New("nulldrv: render pass with no subpasses")
	}
	for _, s := range sub {
		for _, i := range s.Color {
			if i < 0 || i >= len(att) {
				return nil, errors.New("nulldrv: color attachment out of bounds")
			}
		}
		if s.DS >= len(att) {
			return nil, errors.New("nulldrv: depth/stencil attachment out of bounds")
		}
	}
	g.track(func(c *Counts) { c.RenderPasses++ })
	return &RenderPass{gpu: g, Att: append([]driver.Attachment(nil), att...), Sub: sub}, nil
}

// NewShaderCode implements driver.GPU.
func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	g.track(func(c *Counts) { c.Shaders++ })
	return &ShaderCode{gpu: g, Data: data}, nil
}

// NewDescHeap implements driver.GPU.
func (g *GPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	g.track(func(c *Counts) { c.Heaps++ })
	return &DescHeap{gpu: g, desc: append([]driver.Descriptor(nil), ds...)}, nil
}

// NewDescTable implements driver.GPU.
func (g *GPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	if len(dh) > g.limits.MaxDescHeaps {
		return nil, errors.New("nulldrv: too many descriptor heaps")
	}
	g.track(func(c *Counts) { c.Tables++ })
	return &DescTable{gpu: g, heaps: append([]driver.DescHeap(nil), dh...)}, nil
}

// NewPipeline implements driver.GPU.
func (g *GPU) NewPipeline(state any) (driver.Pipeline, error) {
	switch s := state.(type) {
	case *driver.GraphState:
		if s.Pass == nil {
			return nil, errors.New("nulldrv: graphics pipeline with no render pass")
		}
	case *driver.CompState:
	default:
		return nil, errors.New("nulldrv: invalid pipeline state")
	}
	g.track(func(c *Counts) { c.Pipelines++ })
	return &Pipeline{gpu: g, State: state}, nil
}

// NewBuffer implements driver.GPU.
func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	if size <= 0 {
		return nil, errors.New("nulldrv: invalid buffer size")
	}
	if err := g.alloc(); err != nil {
		return nil, err
	}
	// Round up to 256 bytes, as a real driver would
	// to satisfy alignment requirements.
	n := (size + 255) &^ 255
	g.track(func(c *Counts) { c.Buffers++ })
	return &Buffer{gpu: g, data: make([]byte, n), visible: visible, Usage: usg}, nil
}

// NewImage implements driver.GPU.
func (g *GPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	switch {
	case pf == driver.FInvalid:
		return nil, errors.New("nulldrv: invalid pixel format")
	case size.Width < 1 || size.Height < 1:
		return nil, errors.New("nulldrv: invalid image size")
	case size.Width > g.limits.MaxImage2D || size.Height > g.limits.MaxImage2D:
		return nil, errors.New("nulldrv: image size too big")
	case layers < 1 || levels < 1 || samples < 1:
		return nil, errors.New("nulldrv: invalid image parameters")
	}
	if err := g.alloc(); err != nil {
		return nil, err
	}
	g.track(func(c *Counts) { c.Images++ })
	return &Image{
		gpu:     g,
		Format:  pf,
		Size:    size,
		Layers:  layers,
		Levels:  levels,
		Samples: samples,
		Usage:   usg,
	}, nil
}

// Limits implements driver.GPU.
func (g *GPU) Limits() driver.Limits { return g.limits }
