// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"time"

	"github.com/chewxy/math32"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/engine/internal/shader"
	"github.com/gviegas/fgraph/graph"
	"github.com/gviegas/fgraph/linear"
	"github.com/gviegas/fgraph/params"
	"github.com/gviegas/fgraph/registry"
)

const (
	// ShadowMapSize is the size of the shadow map of a
	// Standard graph.
	ShadowMapSize = 2048

	// OutputFormat is the pixel format of the output of
	// a Standard graph.
	OutputFormat = driver.BGRA8Unorm

	dflVertexCount = 36
	dflFOV         = math32.Pi / 3
	dflExposure    = 1
	dflGamma       = 2.2
	shadowExtent   = 10
)

// StandardShaders are the shader functions of the
// pipelines of a Standard graph.
type StandardShaders struct {
	ShadowVert driver.ShaderFunc
	MeshVert   driver.ShaderFunc
	MeshFrag   driver.ShaderFunc
	PostVert   driver.ShaderFunc
	PostFrag   driver.ShaderFunc
}

// Standard is a frame graph with three passes:
//
//	Shadow | renders depth from the light into ShadowMap
//	Mesh   | renders Color and Depth, sampling ShadowMap
//	Post   | tone-maps Color into Output
//
// Passes access their parameters and the bindless
// textures through the Renderer's descriptor table.
type Standard struct {
	Graph *graph.Graph

	ShadowMap graph.ResourceID
	Color     graph.ResourceID
	Depth     graph.ResourceID
	Output    graph.ResourceID

	// Camera, light and tone mapping. Changes take
	// effect in the next frame.
	Eye         linear.V3
	Center      linear.V3
	LightDir    linear.V3
	FOV         float32
	Exposure    float32
	VertexCount int

	r     *Renderer
	start time.Time

	shadowIdx uint32
	colorIdx  uint32

	shadowOff int64
	frameOff  int64
	drawOff   int64
	postOff   int64
}

// NewStandard creates a Standard graph and sets it as
// the graph of r, along with a FrameFunc that updates
// its parameters.
// If output is nil, Output is a texture owned by the
// graph. Otherwise, output provides the image views to
// render into, which must have format OutputFormat.
// sh may be nil.
func NewStandard(r *Renderer, sh *StandardShaders, output graph.ExternalFunc) *Standard {
	if sh == nil {
		sh = &StandardShaders{}
	}
	g := graph.New()
	s := &Standard{
		Graph:       g,
		Eye:         linear.V3{0, 2, 6},
		LightDir:    linear.V3{-1, -2, -1},
		FOV:         dflFOV,
		Exposure:    dflExposure,
		VertexCount: dflVertexCount,
		r:           r,
		start:       time.Now(),
	}

	s.ShadowMap = g.CreateResource(registry.Desc{
		Kind:   registry.DepthTex,
		Name:   "ShadowMap",
		Format: driver.D32Float,
		Size:   driver.Dim3D{Width: ShadowMapSize, Height: ShadowMapSize},
	}, bindlessIndex(&s.shadowIdx))
	s.Color = g.CreateResource(registry.Desc{
		Kind:     registry.ColorTex,
		Name:     "Color",
		Format:   driver.RGBA16Float,
		Size:     driver.Dim3D{Width: 100, Height: 100},
		Relative: true,
	}, bindlessIndex(&s.colorIdx))
	s.Depth = g.CreateResource(registry.Desc{
		Kind:     registry.DepthTex,
		Name:     "Depth",
		Format:   driver.D32Float,
		Size:     driver.Dim3D{Width: 100, Height: 100},
		Relative: true,
	}, nil)
	if output != nil {
		s.Output = g.CreateExternal("Output", OutputFormat, output)
	} else {
		s.Output = g.CreateResource(registry.Desc{
			Kind:     registry.ColorTex,
			Name:     "Output",
			Format:   OutputFormat,
			Size:     driver.Dim3D{Width: 100, Height: 100},
			Relative: true,
		}, nil)
	}

	table := r.Table()
	shadow := g.AddPass("Shadow", graph.Graphics).
		Write(s.ShadowMap, graph.Depth, &driver.ClearValue{Depth: 1}).
		SetParams(func(a *params.Allocator) (err error) {
			s.shadowOff, err = params.AddRangeAll(a, &shader.ShadowLayout{})
			return
		}).
		SetExecutor(func(cb driver.CmdBuffer, _ int) {
			s.r.BindGraph(cb, s.shadowOff)
			cb.Draw(s.VertexCount, 1, 0, 0)
		})
	shadow.AddPipeline(&driver.GraphState{
		VertFunc: sh.ShadowVert,
		Desc:     table,
		Topology: driver.TTriangle,
	})

	mesh := g.AddPass("Mesh", graph.Graphics).
		Read(s.ShadowMap).
		Write(s.Color, graph.Color, &driver.ClearValue{Color: [4]float32{0, 0, 0, 1}}).
		Write(s.Depth, graph.Depth, &driver.ClearValue{Depth: 1}).
		SetParams(func(a *params.Allocator) (err error) {
			if s.frameOff, err = params.AddRangeAll(a, &shader.FrameLayout{}); err != nil {
				return
			}
			var d shader.DrawableLayout
			var m linear.M4
			m.I()
			d.SetWorld(&m)
			d.SetNormal(&m)
			d.SetShadowMap(s.shadowIdx)
			s.drawOff, err = params.AddRangeAll(a, &d)
			return
		}).
		SetExecutor(func(cb driver.CmdBuffer, _ int) {
			s.r.BindGraph(cb, s.frameOff)
			cb.Draw(s.VertexCount, 1, 0, 0)
		})
	mesh.AddPipeline(&driver.GraphState{
		VertFunc: sh.MeshVert,
		FragFunc: sh.MeshFrag,
		Desc:     table,
		Topology: driver.TTriangle,
	})

	post := g.AddPass("Post", graph.Graphics).
		Read(s.Color).
		Write(s.Output, graph.Color, nil).
		SetParams(func(a *params.Allocator) (err error) {
			var p shader.PostLayout
			p.SetSource(s.colorIdx)
			p.SetExposure(s.Exposure)
			p.SetGamma(dflGamma)
			s.postOff, err = params.AddRangeAll(a, &p)
			return
		}).
		SetExecutor(func(cb driver.CmdBuffer, _ int) {
			s.r.BindGraph(cb, s.postOff)
			// Full-screen triangle.
			cb.Draw(3, 1, 0, 0)
		})
	post.AddPipeline(&driver.GraphState{
		VertFunc: sh.PostVert,
		FragFunc: sh.PostFrag,
		Desc:     table,
		Topology: driver.TTriangle,
	})

	r.SetGraph(g)
	r.SetFrameFunc(s.update)
	return s
}

// bindlessIndex returns a graph.ReadyFunc that adds
// every new backing of a texture to the bindless table
// and stores its index in idx.
func bindlessIndex(idx *uint32) graph.ReadyFunc {
	return func(h registry.Handle, reg *registry.Registry) (err error) {
		*idx, err = reg.Bindless().Add(h)
		return
	}
}

// ShadowIndex returns the bindless index of the
// current shadow map.
func (s *Standard) ShadowIndex() uint32 { return s.shadowIdx }

// ColorIndex returns the bindless index of the current
// color texture.
func (s *Standard) ColorIndex() uint32 { return s.colorIdx }

// Offsets returns the parameter offsets of the Shadow,
// Mesh (frame and drawable) and Post passes.
func (s *Standard) Offsets() (shadow, frame, drawable, post int64) {
	return s.shadowOff, s.frameOff, s.drawOff, s.postOff
}

// update updates the per-frame parameters of slot.
func (s *Standard) update(a *params.Allocator, slot, _ int) error {
	w, h := s.r.Registry().Extent()
	aspect := float32(w) / float32(h)

	var v, p, vp linear.M4
	v.LookAt(&s.Eye, &s.Center, &linear.V3{0, 1, 0})
	p.Perspective(s.FOV, aspect, 0.1, 100)
	vp.Mul(&p, &v)
	var fl shader.FrameLayout
	fl.SetVP(&vp)
	fl.SetV(&v)
	fl.SetP(&p)
	fl.SetTime(time.Since(s.start))
	fl.SetBounds(&driver.Viewport{Width: float32(w), Height: float32(h), Zfar: 1})
	if err := params.Update(a, slot, s.frameOff, &fl); err != nil {
		return err
	}

	var dir, eye linear.V3
	dir.Norm(&s.LightDir)
	eye.Scale(-shadowExtent, &dir)
	eye.Add(&eye, &s.Center)
	up := linear.V3{0, 1, 0}
	if math32.Abs(dir.Dot(&up)) > 0.99 {
		up = linear.V3{0, 0, 1}
	}
	var lv, lp linear.M4
	lv.LookAt(&eye, &s.Center, &up)
	lp.Ortho(-shadowExtent, shadowExtent, -shadowExtent, shadowExtent, 0, 2*shadowExtent)
	vp.Mul(&lp, &lv)
	var sl shader.ShadowLayout
	sl.SetVP(&vp)
	sl.SetBias(0.005, 0.01)
	if err := params.Update(a, slot, s.shadowOff, &sl); err != nil {
		return err
	}

	var pl shader.PostLayout
	pl.SetSource(s.colorIdx)
	pl.SetExposure(s.Exposure)
	pl.SetGamma(dflGamma)
	return params.Update(a, slot, s.postOff, &pl)
}
