// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"math/rand"
	"testing"
	"time"
	"unsafe"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/linear"
)

func checkSlicesT(x, y []float32, t *testing.T, prefix string) {
	for i := range min(len(x), len(y)) {
		if x[i] != y[i] {
			t.Fatalf("%s: slices differ at index %d\n%v != %v", prefix, i, x[i], y[i])
		}
	}
}

func m4Slice(m *linear.M4) []float32 { return unsafe.Slice((*float32)(unsafe.Pointer(m)), 16) }

func TestFrameLayout(t *testing.T) {
	// [0:16]
	col := linear.V4{12, 34, 56, 78}
	vp := linear.M4{col, col, col, col}

	// [16:32]
	col = linear.V4{-12, -13, -14, -15}
	v := linear.M4{col, col, col, col}

	// [32:48]
	col = linear.V4{21, -43, 41, -87}
	p := linear.M4{col, col, col, col}

	// [48:49]
	tm := 1500 * time.Millisecond

	// [49:50]
	rnd := rand.Float32()

	// [50:56]
	bnd := driver.Viewport{X: 1, Y: 2, Width: 800, Height: 600, Znear: 0.1, Zfar: 100}

	var l FrameLayout
	l.SetVP(&vp)
	l.SetV(&v)
	l.SetP(&p)
	l.SetTime(tm)
	l.SetRand(rnd)
	l.SetBounds(&bnd)

	s := "FrameLayout."

	checkSlicesT(l[0:16], m4Slice(&vp), t, s+"SetVP")
	checkSlicesT(l[16:32], m4Slice(&v), t, s+"SetV")
	checkSlicesT(l[32:48], m4Slice(&p), t, s+"SetP")
	if l[48] != 1.5 {
		t.Fatalf("%sSetTime:\nhave %f\nwant 1.5", s, l[48])
	}
	if l[49] != rnd {
		t.Fatalf("%sSetRand:\nhave %f\nwant %f", s, l[49], rnd)
	}
	if x := [6]float32(l[50:56]); x != [6]float32{1, 2, 800, 600, 0.1, 100} {
		t.Fatalf("%sSetBounds:\nhave %v\nwant %v", s, x, bnd)
	}
}

func TestDrawableLayout(t *testing.T) {
	var w, n linear.M4
	w.Translate(1, 2, 3)
	n.Scale(2, 2, 2)

	var l DrawableLayout
	l.SetWorld(&w)
	l.SetNormal(&n)
	l.SetID(0xfeed)
	l.SetShadowMap(7)

	s := "DrawableLayout."
	checkSlicesT(l[0:16], m4Slice(&w), t, s+"SetWorld")
	checkSlicesT(l[16:32], m4Slice(&n), t, s+"SetNormal")
	if x := *(*uint32)(unsafe.Pointer(&l[32])); x != 0xfeed {
		t.Fatalf("%sSetID:\nhave %#x\nwant 0xfeed", s, x)
	}
	if x := *(*uint32)(unsafe.Pointer(&l[33])); x != 7 {
		t.Fatalf("%sSetShadowMap:\nhave %d\nwant 7", s, x)
	}
}

func TestShadowPostLayout(t *testing.T) {
	var m linear.M4
	m.Ortho(-1, 1, -1, 1, 0, 10)
	var sl ShadowLayout
	sl.SetVP(&m)
	sl.SetBias(0.005, 0.01)
	checkSlicesT(sl[:16], m4Slice(&m), t, "ShadowLayout.SetVP")
	if sl[16] != 0.005 || sl[17] != 0.01 {
		t.Fatalf("ShadowLayout.SetBias:\nhave %v, %v\nwant 0.005, 0.01", sl[16], sl[17])
	}

	var pl PostLayout
	pl.SetSource(42)
	pl.SetExposure(1.25)
	pl.SetGamma(2.2)
	if x := *(*uint32)(unsafe.Pointer(&pl[0])); x != 42 {
		t.Fatalf("PostLayout.SetSource:\nhave %d\nwant 42", x)
	}
	if pl[1] != 1.25 || pl[2] != 2.2 {
		t.Fatalf("PostLayout:\nhave %v\nwant [_ 1.25 2.2 _]", pl)
	}
}

func TestLayoutSize(t *testing.T) {
	for _, x := range [...]struct {
		name string
		have uintptr
		want int64
	}{
		{"FrameLayout", unsafe.Sizeof(FrameLayout{}), FrameSize},
		{"ShadowLayout", unsafe.Sizeof(ShadowLayout{}), ShadowSize},
		{"DrawableLayout", unsafe.Sizeof(DrawableLayout{}), DrawableSize},
		{"PostLayout", unsafe.Sizeof(PostLayout{}), PostSize},
	} {
		if int64(x.have) != x.want {
			t.Fatalf("unsafe.Sizeof(%s):\nhave %d\nwant %d", x.name, x.have, x.want)
		}
		if x.want%16 != 0 {
			t.Fatalf("%s: size is not a multiple of 16", x.name)
		}
	}
}
