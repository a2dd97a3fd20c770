// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package registry owns the physical backing of frame
// graph resources.
//
// A Registry creates images and buffers from resource
// descriptions, tracks which of them are sized relative
// to the output extent and defers destruction until the
// frame slot that last used them comes around again.
// It also owns the bindless texture table.
package registry

import (
	"errors"
	"fmt"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/internal/logx"
	"github.com/gviegas/fgraph/internal/slot"
)

// ErrBadHandle means that a Handle does not identify a
// live resource.
var ErrBadHandle = errors.New("registry: invalid handle")

// Handle identifies a physical resource.
// The zero Handle is never valid.
type Handle struct{ id slot.ID }

// IsZero returns whether h is the zero Handle.
func (h Handle) IsZero() bool { return h.id.IsZero() }

func (h Handle) String() string {
	return fmt.Sprintf("%d:%d", h.id.Index(), h.id.Gen())
}

// Config configures a Registry.
type Config struct {
	// Number of frame slots. Must be at least 1.
	Slots int
	// Length of the bindless texture table.
	// Zero disables the table.
	MaxBindless int
	// Initial output extent.
	Width, Height int
}

type entry struct {
	desc Desc
	size driver.Dim3D
	img  driver.Image
	view driver.ImageView
	sub  map[[2]int]driver.ImageView
	buf  driver.Buffer
}

// destroy queues the entry's driver objects in q, views
// first.
func (e *entry) destroy(q []driver.Destroyer) []driver.Destroyer {
	for _, v := range e.sub {
		q = append(q, v)
	}
	if e.view != nil {
		q = append(q, e.view)
	}
	if e.img != nil {
		q = append(q, e.img)
	}
	if e.buf != nil {
		q = append(q, e.buf)
	}
	return q
}

// Registry manages physical resources.
// It is not safe for concurrent use.
type Registry struct {
	gpu      driver.GPU
	live     slot.Map[entry]
	relative map[Handle]struct{}
	extent   [2]int
	epoch    int
	cur      int
	dead     [][]driver.Destroyer
	bindless *Bindless
}

// New creates a new Registry.
func New(gpu driver.GPU, conf Config) (*Registry, error) {
	if conf.Slots < 1 {
		panic("registry.New: Config.Slots must be at least 1")
	}
	r := &Registry{
		gpu:      gpu,
		relative: make(map[Handle]struct{}),
		extent:   [2]int{max(1, conf.Width), max(1, conf.Height)},
		dead:     make([][]driver.Destroyer, conf.Slots),
	}
	if conf.MaxBindless > 0 {
		if n := gpu.Limits().MaxDTexture; conf.MaxBindless > n {
			return nil, fmt.Errorf("registry: MaxBindless exceeds driver limit of %d textures", n)
		}
		b, err := newBindless(r, conf.MaxBindless, conf.Slots)
		if err != nil {
			return nil, err
		}
		r.bindless = b
	}
	return r, nil
}

// GPU returns the driver.GPU that r uses.
func (r *Registry) GPU() driver.GPU { return r.gpu }

// Slots returns the number of frame slots.
func (r *Registry) Slots() int { return len(r.dead) }

// Bindless returns the bindless texture table.
// It returns nil if the table was disabled.
func (r *Registry) Bindless() *Bindless { return r.bindless }

// Create creates a resource described by desc.
// desc is normalized in place. Device errors are
// wrapped with the resource name and returned as is;
// creation is not retried.
func (r *Registry) Create(desc *Desc) (Handle, error) {
	if err := desc.normalize(); err != nil {
		return Handle{}, fmt.Errorf("%w (%q)", err, desc.Name)
	}
	var e entry
	if desc.Kind.IsTexture() {
		if err := r.newImage(desc, &e); err != nil {
			return Handle{}, fmt.Errorf("registry: %q: %w", desc.Name, err)
		}
	} else {
		visible := desc.Kind == UniformBuf
		buf, err := r.gpu.NewBuffer(desc.ByteSize, visible, desc.Usage)
		if err != nil {
			return Handle{}, fmt.Errorf("registry: %q: %w", desc.Name, err)
		}
		e.buf = buf
	}
	e.desc = *desc
	h := Handle{r.live.Insert(e)}
	if desc.Relative {
		r.relative[h] = struct{}{}
	}
	if desc.Bindless {
		if r.bindless == nil {
			r.Destroy(h)
			return Handle{}, fmt.Errorf("registry: %q: bindless table disabled", desc.Name)
		}
		if _, err := r.bindless.Add(h); err != nil {
			r.Destroy(h)
			return Handle{}, fmt.Errorf("registry: %q: %w", desc.Name, err)
		}
	}
	logx.L().Debug("resource created", "name", desc.Name, "kind", desc.Kind.String(), "handle", h.String())
	return h, nil
}

func (r *Registry) newImage(desc *Desc, e *entry) error {
	lim := r.gpu.Limits()
	size := desc.Extent(r.extent[0], r.extent[1])
	if size.Width > lim.MaxImage2D || size.Height > lim.MaxImage2D || desc.Layers > lim.MaxLayers {
		return errBadSize
	}
	img, err := r.gpu.NewImage(desc.Format, size, desc.Layers, desc.Levels, desc.Samples, desc.Usage)
	if err != nil {
		return err
	}
	var typ driver.ViewType
	switch {
	case desc.Layers > 1 && desc.Samples > 1:
		typ = driver.IView2DMSArray
	case desc.Layers > 1:
		typ = driver.IView2DArray
	case desc.Samples > 1:
		typ = driver.IView2DMS
	default:
		typ = driver.IView2D
	}
	view, err := img.NewView(typ, 0, desc.Layers, 0, desc.Levels)
	if err != nil {
		img.Destroy()
		return err
	}
	e.size = size
	e.img = img
	e.view = view
	return nil
}

// Destroy destroys the resource identified by h.
// The backing objects are released when the current
// frame slot is next begun, so command buffers already
// recorded against them remain valid.
// It is a no-op if h is not live. h is not removed
// from the output-relative set (see PruneDangling).
func (r *Registry) Destroy(h Handle) {
	e, ok := r.live.Remove(h.id)
	if !ok {
		return
	}
	if r.bindless != nil {
		r.bindless.Remove(h)
	}
	r.dead[r.cur] = e.destroy(r.dead[r.cur])
	logx.L().Debug("resource destroyed", "name", e.desc.Name, "handle", h.String())
}

// Retire queues d for destruction in the current frame
// slot, like the backing objects of a destroyed resource.
// It is meant for objects whose lifetime follows the
// resources, such as framebuffers.
func (r *Registry) Retire(d driver.Destroyer) {
	if d != nil {
		r.dead[r.cur] = append(r.dead[r.cur], d)
	}
}

// Valid returns whether h identifies a live resource.
func (r *Registry) Valid(h Handle) bool { return r.live.Has(h.id) }

// IsOutputRelative returns whether h identifies a live
// resource whose size depends on the output extent.
func (r *Registry) IsOutputRelative(h Handle) bool {
	e, ok := r.live.Get(h.id)
	return ok && e.desc.Relative
}

// Desc returns the normalized description of h.
func (r *Registry) Desc(h Handle) (Desc, error) {
	e, ok := r.live.Get(h.id)
	if !ok {
		return Desc{}, ErrBadHandle
	}
	return e.desc, nil
}

// Size returns the texel size of the texture identified
// by h, as computed when it was created.
func (r *Registry) Size(h Handle) (driver.Dim3D, error) {
	e, ok := r.live.Get(h.id)
	if !ok || !e.desc.Kind.IsTexture() {
		return driver.Dim3D{}, ErrBadHandle
	}
	return e.size, nil
}

// Image returns the driver.Image of h.
func (r *Registry) Image(h Handle) (driver.Image, error) {
	e, ok := r.live.Get(h.id)
	if !ok || e.img == nil {
		return nil, ErrBadHandle
	}
	return e.img, nil
}

// View returns a driver.ImageView of the whole
// texture identified by h.
func (r *Registry) View(h Handle) (driver.ImageView, error) {
	e, ok := r.live.Get(h.id)
	if !ok || e.view == nil {
		return nil, ErrBadHandle
	}
	return e.view, nil
}

// SubView returns a driver.ImageView of a single level
// and layer of the texture identified by h.
// The view is created on first use and is owned by r.
func (r *Registry) SubView(h Handle, level, layer int) (driver.ImageView, error) {
	e, ok := r.live.Get(h.id)
	if !ok || e.img == nil {
		return nil, ErrBadHandle
	}
	if level < 0 || level >= e.desc.Levels || layer < 0 || layer >= e.desc.Layers {
		return nil, fmt.Errorf("registry: %q: sub-range %d/%d out of bounds", e.desc.Name, level, layer)
	}
	key := [2]int{level, layer}
	if v, ok := e.sub[key]; ok {
		return v, nil
	}
	typ := driver.IView2D
	if e.desc.Samples > 1 {
		typ = driver.IView2DMS
	}
	v, err := e.img.NewView(typ, layer, 1, level, 1)
	if err != nil {
		return nil, fmt.Errorf("registry: %q: %w", e.desc.Name, err)
	}
	if e.sub == nil {
		e.sub = make(map[[2]int]driver.ImageView)
	}
	e.sub[key] = v
	return v, nil
}

// Buffer returns the driver.Buffer of h.
func (r *Registry) Buffer(h Handle) (driver.Buffer, error) {
	e, ok := r.live.Get(h.id)
	if !ok || e.buf == nil {
		return nil, ErrBadHandle
	}
	return e.buf, nil
}

// Len returns the number of live resources.
func (r *Registry) Len() int { return r.live.Len() }

// Relative returns the number of entries in the
// output-relative set, including dangling ones.
func (r *Registry) Relative() int { return len(r.relative) }

// SetExtent sets the output extent.
// It returns whether the extent changed, in which
// case Epoch is incremented. Existing resources are
// not reallocated.
func (r *Registry) SetExtent(width, height int) bool {
	if width < 1 || height < 1 {
		panic("registry.SetExtent: invalid extent")
	}
	if r.extent == [2]int{width, height} {
		return false
	}
	r.extent = [2]int{width, height}
	r.epoch++
	logx.L().Debug("output extent changed", "width", width, "height", height, "epoch", r.epoch)
	return true
}

// Extent returns the output extent.
func (r *Registry) Extent() (width, height int) { return r.extent[0], r.extent[1] }

// Epoch returns a counter that is incremented by
// every SetExtent call that changes the extent.
func (r *Registry) Epoch() int { return r.epoch }

// PruneDangling removes from the output-relative set
// every handle that is no longer live or no longer
// output-relative. It returns the number of removed
// entries.
func (r *Registry) PruneDangling() int {
	var n int
	for h := range r.relative {
		if !r.IsOutputRelative(h) {
			delete(r.relative, h)
			n++
		}
	}
	if n > 0 {
		logx.L().Debug("dangling output-relative entries pruned", "count", n)
	}
	return n
}

// BeginFrame marks the start of work using the given
// frame slot.
// The caller must ensure that the GPU is done with the
// previous use of slot. Objects destroyed while slot
// was last current are released here.
func (r *Registry) BeginFrame(slot int) {
	if slot < 0 || slot >= len(r.dead) {
		panic("registry.BeginFrame: slot out of bounds")
	}
	q := r.dead[slot]
	for i, d := range q {
		d.Destroy()
		q[i] = nil
	}
	r.dead[slot] = q[:0]
	r.cur = slot
	if r.bindless != nil {
		r.bindless.beginFrame(slot)
	}
}

// Slot returns the current frame slot.
func (r *Registry) Slot() int { return r.cur }

// Free destroys every resource immediately.
// The caller must ensure that the GPU is idle.
// r must not be used afterwards.
func (r *Registry) Free() {
	var hs []Handle
	r.live.All(func(id slot.ID, _ *entry) bool {
		hs = append(hs, Handle{id})
		return true
	})
	for _, h := range hs {
		r.Destroy(h)
	}
	// Oldest slot first, so objects are destroyed in
	// the order they were retired.
	n := len(r.dead)
	for i := range n {
		s := (r.cur + 1 + i) % n
		for _, d := range r.dead[s] {
			d.Destroy()
		}
		r.dead[s] = nil
	}
	clear(r.relative)
	if r.bindless != nil {
		r.bindless.free()
		r.bindless = nil
	}
}
