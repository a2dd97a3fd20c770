// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package registry

import (
	"errors"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/internal/bitvec"
)

// ErrBindlessFull means that the bindless texture table
// has no free indices.
var ErrBindlessFull = errors.New("registry: bindless table is full")

// BindlessNr is the descriptor number of the bindless
// texture array in Bindless.Heap.
const BindlessNr = 0

// Bindless is a table of textures that shaders index
// by integer.
// It is backed by a descriptor heap with a single
// texture array descriptor and one heap copy per
// frame slot. Removed indices are only reused once
// every frame slot that may still refer to them has
// been begun again.
type Bindless struct {
	reg   *Registry
	heap  driver.DescHeap
	max   int
	used  bitvec.V
	owner map[Handle]int
	views []driver.ImageView
	// Indices written since each heap copy was last
	// brought up to date.
	stale [][]int
	// Indices removed while each slot was current.
	recycle [][]int
}

func newBindless(r *Registry, n, slots int) (*Bindless, error) {
	heap, err := r.gpu.NewDescHeap([]driver.Descriptor{{
		Type:   driver.DTexture,
		Stages: driver.SVertex | driver.SFragment | driver.SCompute,
		Nr:     BindlessNr,
		Len:    n,
	}})
	if err != nil {
		return nil, err
	}
	if err := heap.New(slots); err != nil {
		heap.Destroy()
		return nil, err
	}
	return &Bindless{
		reg:     r,
		heap:    heap,
		max:     n,
		owner:   make(map[Handle]int),
		stale:   make([][]int, slots),
		recycle: make([][]int, slots),
	}, nil
}

// Heap returns the descriptor heap backing b.
// Heap copy i is the one to bind in frame slot i.
func (b *Bindless) Heap() driver.DescHeap { return b.heap }

// Cap returns the length of the table.
func (b *Bindless) Cap() int { return b.max }

// Len returns the number of indices in use.
func (b *Bindless) Len() int { return len(b.owner) }

// Add adds the texture identified by h to the table and
// returns its index. If h is already present, its
// current index is returned.
func (b *Bindless) Add(h Handle) (uint32, error) {
	if i, ok := b.owner[h]; ok {
		return uint32(i), nil
	}
	view, err := b.reg.View(h)
	if err != nil {
		return 0, err
	}
	if b.used.Rem() == 0 {
		if b.used.Len() >= b.max {
			return 0, ErrBindlessFull
		}
		b.used.Grow(1)
	}
	i, ok := b.used.Search()
	if !ok || i >= b.max {
		return 0, ErrBindlessFull
	}
	b.used.Set(i)
	b.owner[h] = i
	if i >= len(b.views) {
		b.views = append(b.views, make([]driver.ImageView, i+1-len(b.views))...)
	}
	b.views[i] = view
	cur := b.reg.cur
	b.heap.SetImage(cur, BindlessNr, i, []driver.ImageView{view})
	for s := range b.stale {
		if s != cur {
			b.stale[s] = append(b.stale[s], i)
		}
	}
	return uint32(i), nil
}

// Index returns the index of h in the table.
func (b *Bindless) Index(h Handle) (uint32, bool) {
	i, ok := b.owner[h]
	return uint32(i), ok
}

// Remove removes h from the table.
// It is a no-op if h is not present.
func (b *Bindless) Remove(h Handle) {
	i, ok := b.owner[h]
	if !ok {
		return
	}
	delete(b.owner, h)
	b.views[i] = nil
	cur := b.reg.cur
	b.recycle[cur] = append(b.recycle[cur], i)
}

// beginFrame brings the slot's heap copy up to date
// and recycles the indices removed when the slot was
// last current.
func (b *Bindless) beginFrame(slot int) {
	for _, i := range b.stale[slot] {
		if v := b.views[i]; v != nil {
			b.heap.SetImage(slot, BindlessNr, i, []driver.ImageView{v})
		}
	}
	b.stale[slot] = b.stale[slot][:0]
	for _, i := range b.recycle[slot] {
		b.used.Unset(i)
	}
	b.recycle[slot] = b.recycle[slot][:0]
}

func (b *Bindless) free() {
	b.heap.Destroy()
	*b = Bindless{}
}
