// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"github.com/chewxy/math32"
)

// Projections map depth to the [0, 1] range and assume
// a right-handed view space looking down -z.

// Perspective sets m to contain a perspective projection.
// yfov is the vertical field of view in radians.
func (m *M4) Perspective(yfov, aspect, znear, zfar float32) {
	f := 1 / math32.Tan(yfov/2)
	d := znear - zfar
	*m = M4{
		{f / aspect},
		{1: f},
		{2: zfar / d, 3: -1},
		{2: znear * zfar / d},
	}
}

// Ortho sets m to contain an orthographic projection.
func (m *M4) Ortho(left, right, bottom, top, znear, zfar float32) {
	w := right - left
	h := top - bottom
	d := znear - zfar
	*m = M4{
		{2 / w},
		{1: 2 / h},
		{2: 1 / d},
		{-(right + left) / w, -(top + bottom) / h, znear / d, 1},
	}
}

// LookAt sets m to contain a view matrix.
func (m *M4) LookAt(eye, center, up *V3) {
	var f, s, u V3
	f.Sub(center, eye)
	f.Norm(&f)
	s.Cross(&f, up)
	s.Norm(&s)
	u.Cross(&s, &f)
	*m = M4{
		{s[0], u[0], -f[0]},
		{s[1], u[1], -f[1]},
		{s[2], u[2], -f[2]},
		{-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1},
	}
}
