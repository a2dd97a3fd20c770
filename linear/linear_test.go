// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func TestV(t *testing.T) {
	var u V3
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	if u.Add(&v, &w); u != (V3{1, 1, 6}) {
		t.Fatalf("V3.Add\nhave %v\nwant [1 1 6]", u)
	}
	if u.Sub(&v, &w); u != (V3{1, 3, 2}) {
		t.Fatalf("V3.Sub\nhave %v\nwant [1 3 2]", u)
	}
	if u.Scale(-1, &v); u != (V3{-1, -2, -4}) {
		t.Fatalf("V3.Scale\nhave %v\nwant [-1 -2 -4]", u)
	}
	if d := v.Dot(&w); d != 6 {
		t.Fatalf("V3.Dot\nhave %v\nwant 6\n", d)
	}
	if l := v.Len(); l != float32(math.Sqrt(21)) {
		t.Fatalf("V3.Len\nhave %v\nwant %v\n", l, math.Sqrt(21))
	}

	v = V3{0, 0, -2}
	w = V3{0, 4, 0}
	if v.Norm(&v); v != (V3{0, 0, -1}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 0 -1]", v)
	}
	if w.Norm(&w); w != (V3{0, 1, 0}) {
		t.Fatalf("V3.Norm\nhave %v\nwant [0 1 0]", w)
	}
	if u.Cross(&v, &w); u != (V3{1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [1 0 0]", u)
	}
	if u.Cross(&w, &v); u != (V3{-1, 0, 0}) {
		t.Fatalf("V3.Cross\nhave %v\nwant [-1 0 0]", u)
	}
}

func TestM(t *testing.T) {
	var l M4
	m := M4{
		{1, 5, 9, 13},
		{2, 6, 10, 14},
		{3, 7, 11, 15},
		{4, 8, 12, 16},
	}
	n := M4{
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
		{1, 0, 0, 0},
	}

	if l.I(); l != (M4{{1}, {0, 1}, {0, 0, 1}, {0, 0, 0, 1}}) {
		t.Fatalf("M4.I\nhave %v", l)
	}
	if l.Mul(&m, &n); l != (M4{m[1], m[2], m[3], m[0]}) {
		t.Fatalf("M4.Mul\nhave %v\nwant [%v %v %v %v]", l, m[1], m[2], m[3], m[0])
	}
	if l.Transpose(&m); l != (M4{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}, {13, 14, 15, 16}}) {
		t.Fatalf("M4.Transpose\nhave %v", l)
	}
	if l.Invert(&n); l != (M4{n[2], n[3], n[0], n[1]}) {
		t.Fatalf("M4.Invert\nhave %v\nwant %v", l, M4{n[2], n[3], n[0], n[1]})
	}
	// Aliasing.
	l = m
	if l.Mul(&l, &n); l != (M4{m[1], m[2], m[3], m[0]}) {
		t.Fatalf("M4.Mul (aliased)\nhave %v", l)
	}
}

func TestTS(t *testing.T) {
	var x, s M4
	x.Translate(-1, -2, -3)
	s.Scale(5, 5, 5)
	x.Mul(&x, &s)
	if x != (M4{{5}, {1: 5}, {2: 5}, {-1, -2, -3, 1}}) {
		t.Fatalf("T*S\nhave %v\nwant %v", x, M4{{5}, {1: 5}, {2: 5}, {-1, -2, -3, 1}})
	}
	v := V4{1, 1, 1, 1}
	v.Mul(&x, &v)
	if v != (V4{4, 3, 2, 1}) {
		t.Fatalf("TS*v\nhave %v\nwant %v", v, V4{4, 3, 2, 1})
	}
}

func near(a, b float32) bool { return math.Abs(float64(a-b)) < 1e-5 }

func TestCamera(t *testing.T) {
	var v M4
	v.LookAt(&V3{0, 0, 5}, &V3{}, &V3{0, 1, 0})
	p := V4{0, 0, 0, 1}
	p.Mul(&v, &p)
	if !near(p[0], 0) || !near(p[1], 0) || !near(p[2], -5) || p[3] != 1 {
		t.Fatalf("M4.LookAt\nhave %v\nwant [0 0 -5 1]", p)
	}

	var proj M4
	proj.Perspective(math.Pi/2, 1, 1, 100)
	for _, x := range [...]struct {
		z, depth float32
	}{
		{-1, 0},
		{-100, 1},
	} {
		p := V4{0, 0, x.z, 1}
		p.Mul(&proj, &p)
		if d := p[2] / p[3]; !near(d, x.depth) {
			t.Fatalf("M4.Perspective: depth at z=%v\nhave %v\nwant %v", x.z, d, x.depth)
		}
	}

	proj.Ortho(-10, 10, -10, 10, 0, 50)
	p = V4{10, -10, -50, 1}
	p.Mul(&proj, &p)
	if !near(p[0], 1) || !near(p[1], -1) || !near(p[2], 1) {
		t.Fatalf("M4.Ortho\nhave %v\nwant [1 -1 1 1]", p)
	}
}
