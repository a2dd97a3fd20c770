// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package params implements the per-frame parameter
// buffers that passes use to hand data to shaders.
//
// Parameter structs are appended to a frame slot's
// buffer as opaque byte ranges. The returned offset is
// meant to be bound as a dynamic descriptor offset, so
// many draws can share a single descriptor binding.
// Offsets are stable from the time a range is added
// until the slot is destroyed.
//
// Types passed to AddRange, AddRangeAll and Update must
// be plain data: no pointers, slices, maps, strings or
// interfaces.
package params

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/internal/logx"
)

// ErrBuilt means that a range was added to a frame slot
// that was built and not destroyed since.
var ErrBuilt = errors.New("params: slot already built")

var errRange = errors.New("params: range out of bounds")

const prefix = "params: "

// DefaultMinSize is the default minimum buffer size.
const DefaultMinSize = 256

// Config configures an Allocator.
type Config struct {
	// Number of frame slots. Must be at least 1.
	Slots int
	// Alignment of every range, in bytes.
	// It must be zero or a power of two.
	// Zero means ranges are tightly packed.
	Align int64
	// Minimum buffer size, in bytes.
	// Zero means DefaultMinSize.
	MinSize int64
}

type slotBuf struct {
	data  []byte
	buf   driver.Buffer
	built bool
}

// Allocator manages one parameter buffer per frame slot.
// It is not safe for concurrent use.
type Allocator struct {
	slots   []slotBuf
	align   int64
	minSize int64
	heap    driver.DescHeap
	nr      int
}

// New creates a new Allocator.
func New(conf Config) *Allocator {
	switch {
	case conf.Slots < 1:
		panic(prefix + "Config.Slots must be at least 1")
	case conf.Align < 0 || conf.Align&(conf.Align-1) != 0:
		panic(prefix + "Config.Align must be zero or a power of two")
	}
	minSize := conf.MinSize
	if minSize <= 0 {
		minSize = DefaultMinSize
	}
	return &Allocator{
		slots:   make([]slotBuf, conf.Slots),
		align:   conf.Align,
		minSize: minSize,
	}
}

// Slots returns the number of frame slots.
func (a *Allocator) Slots() int { return len(a.slots) }

func (a *Allocator) slot(i int) *slotBuf {
	if i < 0 || i >= len(a.slots) {
		panic(prefix + "slot out of bounds")
	}
	return &a.slots[i]
}

// cursor returns the offset at which the next range of
// s will be placed.
func (a *Allocator) cursor(s *slotBuf) int64 {
	n := int64(len(s.data))
	if a.align > 0 {
		n = (n + a.align - 1) &^ (a.align - 1)
	}
	return n
}

// bytesOf returns the memory of v as a byte slice.
func bytesOf[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// append places b at offset off of s, growing it as
// needed.
func (s *slotBuf) append(off int64, b []byte) {
	if n := off - int64(len(s.data)); n > 0 {
		s.data = append(s.data, make([]byte, n)...)
	}
	s.data = append(s.data, b...)
}

// AddRange appends the contents of v to the parameter
// buffer of the given frame slot and returns its byte
// offset.
// Every call appends; identical values are not merged.
// It fails with ErrBuilt if slot was built and not
// destroyed since.
func AddRange[T any](a *Allocator, slot int, v *T) (int64, error) {
	s := a.slot(slot)
	if s.built {
		return 0, ErrBuilt
	}
	off := a.cursor(s)
	s.append(off, bytesOf(v))
	return off, nil
}

// AddRangeAll appends the contents of v to the parameter
// buffer of every frame slot and returns its byte
// offset, which is the same in every slot.
// Slots are padded as needed to keep offsets equal.
func AddRangeAll[T any](a *Allocator, v *T) (int64, error) {
	var off int64
	for i := range a.slots {
		s := &a.slots[i]
		if s.built {
			return 0, fmt.Errorf("%w (slot %d)", ErrBuilt, i)
		}
		off = max(off, a.cursor(s))
	}
	b := bytesOf(v)
	for i := range a.slots {
		a.slots[i].append(off, b)
	}
	return off, nil
}

// Update replaces the contents of the range at offset
// off of the given frame slot with v.
// If the slot is built, its buffer is updated as well.
// The caller must ensure that the GPU is not reading
// from the slot's buffer.
func Update[T any](a *Allocator, slot int, off int64, v *T) error {
	s := a.slot(slot)
	b := bytesOf(v)
	if off < 0 || off+int64(len(b)) > int64(len(s.data)) {
		return errRange
	}
	copy(s.data[off:], b)
	if s.built {
		copy(s.buf.Bytes()[off:], b)
	}
	return nil
}

// SetHeap sets the descriptor heap whose copies are
// updated by Build.
// Heap copy i refers to the buffer of frame slot i.
// The nr descriptor must be of type driver.DDynBuffer.
// Passing a nil heap disables heap updates.
func (a *Allocator) SetHeap(heap driver.DescHeap, nr int) {
	a.heap = heap
	a.nr = nr
}

// Build commits the ranges of the given frame slot to
// a host-visible buffer, creating or growing it as
// needed. Ranges cannot be added to the slot until it
// is destroyed.
// It must be called before any pass that uses the slot
// executes.
func (a *Allocator) Build(gpu driver.GPU, slot int) error {
	s := a.slot(slot)
	n := int64(len(s.data))
	if s.buf == nil || s.buf.Cap() < n {
		sz := a.minSize
		if s.buf != nil {
			sz = s.buf.Cap()
		}
		for sz < n {
			sz *= 2
		}
		buf, err := gpu.NewBuffer(sz, true, driver.UShaderRead|driver.UShaderConst)
		if err != nil {
			return fmt.Errorf("%sbuild slot %d: %w", prefix, slot, err)
		}
		if s.buf != nil {
			s.buf.Destroy()
		}
		s.buf = buf
	}
	copy(s.buf.Bytes(), s.data)
	if a.heap != nil {
		a.heap.SetBuffer(slot, a.nr, 0, []driver.Buffer{s.buf}, []int64{0}, []int64{max(n, 1)})
	}
	s.built = true
	logx.L().Debug("params built", "slot", slot, "len", n, "cap", s.buf.Cap())
	return nil
}

// Destroy releases the buffer of the given frame slot
// and discards its ranges.
// The caller must ensure that the GPU is not reading
// from the buffer.
func (a *Allocator) Destroy(slot int) {
	s := a.slot(slot)
	if s.buf != nil {
		s.buf.Destroy()
	}
	*s = slotBuf{data: s.data[:0]}
}

// DestroyAll calls Destroy for every frame slot.
func (a *Allocator) DestroyAll() {
	for i := range a.slots {
		a.Destroy(i)
	}
}

// Buffer returns the buffer of the given frame slot.
// It returns nil if the slot is not built.
func (a *Allocator) Buffer(slot int) driver.Buffer {
	s := a.slot(slot)
	if !s.built {
		return nil
	}
	return s.buf
}

// Len returns the number of bytes in use by the given
// frame slot.
func (a *Allocator) Len(slot int) int64 { return int64(len(a.slot(slot).data)) }

// Built returns whether the given frame slot is built.
func (a *Allocator) Built(slot int) bool { return a.slot(slot).built }
