// Copyright 2023 Gustavo C. Viegas. All rights reserved.

// Package bitvec defines a bit vector used to track free
// indices (bindless table entries, slot map entries).
package bitvec

import "math/bits"

const wordBits = 64

// V is a growable bit vector.
// The zero value is an empty vector.
type V struct {
	w   []uint64
	rem int
}

// Len returns the number of bits in the vector.
func (v *V) Len() int { return len(v.w) * wordBits }

// Rem returns the number of unset bits in the vector.
func (v *V) Rem() int { return v.rem }

// Grow appends nwords words of unset bits to the vector.
// It returns the index of the first new bit, which is the
// value of v.Len prior to the call.
// Calling Grow with nwords < 1 has no effect.
func (v *V) Grow(nwords int) (index int) {
	index = v.Len()
	if nwords > 0 {
		v.w = append(v.w, make([]uint64, nwords)...)
		v.rem += nwords * wordBits
	}
	return
}

func split(index int) (int, uint64) { return index / wordBits, 1 << (index % wordBits) }

// Set sets a given bit.
func (v *V) Set(index int) {
	i, b := split(index)
	if v.w[i]&b == 0 {
		v.w[i] |= b
		v.rem--
	}
}

// Unset unsets a given bit.
func (v *V) Unset(index int) {
	i, b := split(index)
	if v.w[i]&b != 0 {
		v.w[i] &^= b
		v.rem++
	}
}

// IsSet checks whether a given bit is set.
func (v *V) IsSet(index int) bool {
	i, b := split(index)
	return v.w[i]&b != 0
}

// Search returns the lowest unset bit.
// It fails only when v.Rem() == 0.
func (v *V) Search() (index int, ok bool) {
	if v.rem == 0 {
		return
	}
	for i, x := range v.w {
		if x != ^uint64(0) {
			return i*wordBits + bits.TrailingZeros64(^x), true
		}
	}
	return
}
