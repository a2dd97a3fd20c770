// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"time"
	"unsafe"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/linear"
)

// FrameLayout is the layout of per-frame, global data.
// It is defined as follows:
//
//	[0:16]  | view-projection matrix
//	[16:32] | view matrix
//	[32:48] | projection matrix
//	[48]    | elapsed time in seconds
//	[49]    | normalized random value
//	[50]    | viewport's x
//	[51]    | viewport's y
//	[52]    | viewport's width
//	[53]    | viewport's height
//	[54]    | viewport's near plane
//	[55]    | viewport's far plane
//	[56:64] | (unused)
type FrameLayout [64]float32

// SetVP sets the view-projection matrix.
func (l *FrameLayout) SetVP(m *linear.M4) { copyM4(l[:16], m) }

// SetV sets the view matrix.
func (l *FrameLayout) SetV(m *linear.M4) { copyM4(l[16:32], m) }

// SetP sets the projection matrix.
func (l *FrameLayout) SetP(m *linear.M4) { copyM4(l[32:48], m) }

// SetTime sets the elapsed time.
func (l *FrameLayout) SetTime(d time.Duration) { l[48] = float32(d.Seconds()) }

// SetRand sets the normalized random value.
func (l *FrameLayout) SetRand(rnd float32) { l[49] = rnd }

// SetBounds sets the viewport bounds.
func (l *FrameLayout) SetBounds(b *driver.Viewport) {
	l[50] = b.X
	l[51] = b.Y
	l[52] = b.Width
	l[53] = b.Height
	l[54] = b.Znear
	l[55] = b.Zfar
}

func copyM4(dst []float32, m *linear.M4) {
	copy(dst, unsafe.Slice((*float32)(unsafe.Pointer(m)), 16))
}

func bitsOf(u uint32) float32 { return *(*float32)(unsafe.Pointer(&u)) }

// ShadowLayout is the layout of shadow data.
// It is defined as follows:
//
//	[0:16]  | light's view-projection matrix
//	[16]    | depth bias
//	[17]    | normal bias
//	[18:32] | (unused)
type ShadowLayout [32]float32

// SetVP sets the light's view-projection matrix.
func (l *ShadowLayout) SetVP(m *linear.M4) { copyM4(l[:16], m) }

// SetBias sets the depth and normal biases.
func (l *ShadowLayout) SetBias(depth, normal float32) { l[16], l[17] = depth, normal }

// DrawableLayout is the layout of drawable data.
// It is defined as follows:
//
//	[0:16]  | world matrix
//	[16:32] | normal matrix
//	[32]    | ID
//	[33]    | bindless index of the shadow map
//	[34:64] | (unused)
type DrawableLayout [64]float32

// SetWorld sets the world matrix.
func (l *DrawableLayout) SetWorld(m *linear.M4) { copyM4(l[:16], m) }

// SetNormal sets the normal matrix.
func (l *DrawableLayout) SetNormal(m *linear.M4) { copyM4(l[16:32], m) }

// SetID sets the drawable's ID.
func (l *DrawableLayout) SetID(id uint32) { l[32] = bitsOf(id) }

// SetShadowMap sets the bindless index of the shadow map.
func (l *DrawableLayout) SetShadowMap(idx uint32) { l[33] = bitsOf(idx) }

// PostLayout is the layout of post-processing data.
// It is defined as follows:
//
//	[0] | bindless index of the source texture
//	[1] | exposure
//	[2] | gamma
//	[3] | (unused)
type PostLayout [4]float32

// SetSource sets the bindless index of the source
// texture.
func (l *PostLayout) SetSource(idx uint32) { l[0] = bitsOf(idx) }

// SetExposure sets the exposure.
func (l *PostLayout) SetExposure(e float32) { l[1] = e }

// SetGamma sets the gamma.
func (l *PostLayout) SetGamma(g float32) { l[2] = g }
