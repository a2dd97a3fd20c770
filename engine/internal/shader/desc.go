// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Descriptor management.
//
// Frame tables contain two heaps, each with one copy
// per frame slot:
//
//	BindlessHeap | texture array owned by the registry
//	ParamHeap    | dynamic constant buffer (frame parameters)
//
// Parameter ranges are selected by the byte offset
// given when the table is bound, so they must be
// aligned to ParamAlign.

package shader

import (
	"errors"

	"github.com/gviegas/fgraph/driver"
)

const (
	BindlessHeap = iota
	ParamHeap

	maxHeap
)

const (
	// ParamNr is the descriptor number of the
	// parameter buffer in ParamHeap.
	ParamNr = 0

	// ParamAlign is the alignment of parameter ranges,
	// in bytes.
	ParamAlign = 256
)

// Sizes of the layouts, in bytes.
const (
	FrameSize    = int64(len(FrameLayout{}) * 4)
	ShadowSize   = int64(len(ShadowLayout{}) * 4)
	DrawableSize = int64(len(DrawableLayout{}) * 4)
	PostSize     = int64(len(PostLayout{}) * 4)
)

func paramDesc(stages driver.Stage) driver.Descriptor {
	return driver.Descriptor{
		Type:   driver.DDynBuffer,
		Stages: stages,
		Nr:     ParamNr,
		Len:    1,
	}
}

// FrameTable manages the descriptor table that every
// pass of a frame binds.
type FrameTable struct {
	dt    driver.DescTable
	param driver.DescHeap
	n     int
}

// NewFrameTable creates a new frame table with n heap
// copies. bindless must be the registry's bindless heap,
// which already has n copies; the table does not take
// ownership of it.
func NewFrameTable(gpu driver.GPU, bindless driver.DescHeap, n int) (*FrameTable, error) {
	if n < 1 {
		panic("frame table with no heap copies")
	}
	if bindless == nil || bindless.Count() != n {
		return nil, errors.New("shader: bindless heap copy count mismatch")
	}
	param, err := gpu.NewDescHeap([]driver.Descriptor{
		paramDesc(driver.SVertex | driver.SFragment | driver.SCompute),
	})
	if err != nil {
		return nil, err
	}
	if err := param.New(n); err != nil {
		param.Destroy()
		return nil, err
	}
	var heaps [maxHeap]driver.DescHeap
	heaps[BindlessHeap] = bindless
	heaps[ParamHeap] = param
	dt, err := gpu.NewDescTable(heaps[:])
	if err != nil {
		param.Destroy()
		return nil, err
	}
	return &FrameTable{dt: dt, param: param, n: n}, nil
}

// Table returns the driver.DescTable.
// It is the Desc field of every pipeline state that
// uses frame parameters.
func (t *FrameTable) Table() driver.DescTable { return t.dt }

// ParamHeap returns the heap whose copies refer to the
// parameter buffers.
func (t *FrameTable) ParamHeap() driver.DescHeap { return t.param }

func (t *FrameTable) validateSlot(slot int) {
	if slot < 0 || slot >= t.n {
		panic("frame table heap copy out of bounds")
	}
}

// SetGraph binds the heap copies of the given frame
// slot for graphics pipelines, with parameters starting
// at off.
// cb must be recording commands.
func (t *FrameTable) SetGraph(cb driver.CmdBuffer, slot int, off int64) {
	t.validateSlot(slot)
	cb.SetDescTableGraph(t.dt, 0, []int{slot, slot})
	cb.SetDescOffsetGraph(t.dt, ParamHeap, []int64{off})
}

// SetComp is like SetGraph, but for compute pipelines.
func (t *FrameTable) SetComp(cb driver.CmdBuffer, slot int, off int64) {
	t.validateSlot(slot)
	cb.SetDescTableComp(t.dt, 0, []int{slot, slot})
	cb.SetDescOffsetComp(t.dt, ParamHeap, []int64{off})
}

// Free destroys the table and its parameter heap.
func (t *FrameTable) Free() {
	t.dt.Destroy()
	t.param.Destroy()
	*t = FrameTable{}
}
