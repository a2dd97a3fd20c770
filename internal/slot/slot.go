// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package slot implements a generational slot map.
// Handles are small values (an index and a generation)
// rather than pointers, so a handle that outlives its
// entry is detected instead of aliasing a new one.
package slot

import (
	"github.com/gviegas/fgraph/internal/bitvec"
)

// ID identifies an entry of a Map.
// The zero ID is never valid.
type ID struct {
	idx uint32
	gen uint32
}

// Index returns the index component of id.
func (id ID) Index() int { return int(id.idx) }

// Gen returns the generation component of id.
func (id ID) Gen() int { return int(id.gen) }

// IsZero returns whether id is the zero ID.
func (id ID) IsZero() bool { return id.gen == 0 }

// entry is what a Map stores.
// dense is an index into Map.data, or -1 if the
// entry is free.
type entry struct {
	dense int
	gen   uint32
}

// Map stores values of type D.
// Insertion and removal are O(1) and values are kept
// contiguous, so iteration does not visit holes.
type Map[D any] struct {
	ids  []entry
	used bitvec.V
	data []D
	back []uint32
}

// Insert inserts d into m and returns its ID.
func (m *Map[D]) Insert(d D) ID {
	if m.used.Rem() == 0 {
		n := max(1, len(m.ids)/64)
		m.used.Grow(n)
		m.ids = append(m.ids, make([]entry, n*64)...)
	}
	idx, ok := m.used.Search()
	if !ok {
		// Should never happen.
		panic("unexpected failure from bitvec.V.Search")
	}
	m.used.Set(idx)
	e := &m.ids[idx]
	e.gen++
	if e.gen == 0 {
		// Skip the zero generation on wrap around.
		e.gen = 1
	}
	e.dense = len(m.data)
	m.data = append(m.data, d)
	m.back = append(m.back, uint32(idx))
	return ID{uint32(idx), e.gen}
}

// Has returns whether id identifies a live entry of m.
func (m *Map[D]) Has(id ID) bool {
	if id.gen == 0 || int(id.idx) >= len(m.ids) {
		return false
	}
	e := m.ids[id.idx]
	return e.gen == id.gen && m.used.IsSet(int(id.idx))
}

// Get returns a pointer to the value identified by id.
// The pointer is invalidated by the next Insert or Remove.
func (m *Map[D]) Get(id ID) (*D, bool) {
	if !m.Has(id) {
		return nil, false
	}
	return &m.data[m.ids[id.idx].dense], true
}

// Remove removes the value identified by id and returns it.
// It is a no-op if id is not live.
func (m *Map[D]) Remove(id ID) (d D, ok bool) {
	if !m.Has(id) {
		return
	}
	i := m.ids[id.idx].dense
	d = m.data[i]
	last := len(m.data) - 1
	if i < last {
		m.data[i] = m.data[last]
		m.back[i] = m.back[last]
		m.ids[m.back[i]].dense = i
	}
	var zero D
	m.data[last] = zero
	m.data = m.data[:last]
	m.back = m.back[:last]
	m.ids[id.idx].dense = -1
	m.used.Unset(int(id.idx))
	return d, true
}

// Len returns the number of live entries.
func (m *Map[D]) Len() int { return len(m.data) }

// All calls f for every live entry, in unspecified order.
// f must not insert or remove entries.
func (m *Map[D]) All(f func(ID, *D) bool) {
	for i := range m.data {
		idx := m.back[i]
		if !f(ID{idx, m.ids[idx].gen}, &m.data[i]) {
			return
		}
	}
}
