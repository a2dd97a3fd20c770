// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package desc

import (
	"fmt"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/engine"
	"github.com/gviegas/fgraph/graph"
	"github.com/gviegas/fgraph/registry"
)

var kinds = map[string]registry.Kind{
	KindColor:   registry.ColorTex,
	KindDepth:   registry.DepthTex,
	KindStorage: registry.StorageBuf,
	KindUniform: registry.UniformBuf,
}

var roles = map[string]graph.Role{
	RoleColor:   graph.Color,
	RoleDepth:   graph.Depth,
	RoleResolve: graph.Resolve,
	RoleStorage: graph.Storage,
}

// Desc converts r into a registry.Desc.
func (r *Resource) Desc() registry.Desc {
	pf, _ := PixelFmt(r.Format)
	return registry.Desc{
		Kind:     kinds[r.Kind],
		Name:     r.Name,
		Format:   pf,
		Size:     driver.Dim3D{Width: r.Width, Height: r.Height},
		Relative: r.Relative,
		Layers:   r.Layers,
		Levels:   r.Levels,
		Samples:  r.Samples,
		ByteSize: r.Size,
		Bindless: r.Bindless,
	}
}

// Engine returns the engine.Config that c describes.
func (c *Config) Engine() engine.Config {
	conf := engine.DefaultConfig()
	conf.DoubleBuffered = c.DoubleBuffered
	conf.ParallelRecord = c.ParallelRecord
	if c.MaxBindless != 0 {
		conf.MaxBindless = c.MaxBindless
	}
	if c.ParamAlign != 0 {
		conf.ParamAlign = c.ParamAlign
	}
	if c.ParamMinSize != 0 {
		conf.ParamMinSize = c.ParamMinSize
	}
	return conf
}

// Build declares the contents of f in g.
// ext provides the lookup function of every external
// resource, by name.
// It returns the resulting resources, by name.
// f must have been checked.
func (f *File) Build(g *graph.Graph, ext map[string]graph.ExternalFunc) (map[string]graph.ResourceID, error) {
	ids := make(map[string]graph.ResourceID, len(f.Resources)+len(f.Views)+len(f.Externals))
	for i := range f.Resources {
		r := &f.Resources[i]
		ids[r.Name] = g.CreateResource(r.Desc(), nil)
	}
	for _, v := range f.Views {
		ids[v.Name] = g.CreateView(ids[v.Parent], v.Level, v.Layer)
	}
	for _, e := range f.Externals {
		fn := ext[e.Name]
		if fn == nil {
			return nil, fmt.Errorf("desc: no lookup for external %q", e.Name)
		}
		pf, _ := PixelFmt(e.Format)
		ids[e.Name] = g.CreateExternal(e.Name, pf, fn)
	}

	for i := range f.Passes {
		p := &f.Passes[i]
		kind := graph.Graphics
		if p.Kind == KindCompute {
			kind = graph.Compute
		}
		b := g.AddPass(p.Name, kind)
		for _, r := range p.Reads {
			b.Read(ids[r])
		}
		for _, w := range p.Writes {
			var cv *driver.ClearValue
			if c := w.Clear; c != nil {
				cv = &driver.ClearValue{Depth: c.Depth, Stencil: c.Stencil}
				copy(cv.Color[:], c.Color)
			}
			b.Write(ids[w.Resource], roles[w.Role], cv)
		}
		if exec := p.exec(); exec != nil {
			b.SetExecutor(exec)
		}
	}
	return ids, nil
}

// exec returns the graph.ExecFunc of p, or nil if p
// records no commands.
func (p *Pass) exec() graph.ExecFunc {
	switch {
	case p.Draw > 0:
		n := p.Draw
		return func(cb driver.CmdBuffer, _ int) { cb.Draw(n, 1, 0, 0) }
	case len(p.Dispatch) > 0:
		grp := [3]int{1, 1, 1}
		copy(grp[:], p.Dispatch)
		return func(cb driver.CmdBuffer, _ int) { cb.Dispatch(grp[0], grp[1], grp[2]) }
	}
	return nil
}
