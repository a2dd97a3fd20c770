// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package graph implements the frame graph: a
// declarative description of the passes that make up a
// frame and of the resources they read and write.
//
// A Graph is built by declaring resources and passes.
// A Compiler validates it, realizes its resources through
// a registry.Registry and orders its passes so that
// producers run before consumers. The resulting Schedule
// is run once per frame by an Executor.
package graph

import (
	"fmt"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/params"
	"github.com/gviegas/fgraph/registry"
)

// ResourceID identifies a resource of a Graph.
// The zero ResourceID is never valid.
type ResourceID int

func (id ResourceID) index() int { return int(id) - 1 }

// PipelineID identifies a pipeline of a pass.
type PipelineID int

// PassKind is the kind of a pass.
type PassKind int

// Pass kinds.
const (
	// Graphics passes run within a render pass whose
	// attachments are the textures they write.
	Graphics PassKind = iota
	// Compute passes run as compute work.
	Compute
)

func (k PassKind) String() string {
	switch k {
	case Graphics:
		return "graphics"
	case Compute:
		return "compute"
	}
	return "PassKind(?)"
}

// Role is the role of a resource written by a pass.
type Role int

// Roles.
const (
	// Color attachment.
	Color Role = iota
	// Depth/stencil attachment.
	Depth
	// Multisample resolve attachment.
	Resolve
	// Shader write (storage images and buffers).
	Storage
)

func (r Role) String() string {
	switch r {
	case Color:
		return "color"
	case Depth:
		return "depth"
	case Resolve:
		return "resolve"
	case Storage:
		return "storage"
	}
	return "Role(?)"
}

// ReadyFunc is called immediately after the physical
// backing of a resource is (re)allocated.
// It is called again after every reallocation, such as
// the ones caused by changes to the output extent.
type ReadyFunc func(h registry.Handle, reg *registry.Registry) error

// ExternalFunc returns the image view that backs an
// external resource in a given frame.
type ExternalFunc func(frame int) driver.ImageView

// ExecFunc records the commands of a pass.
type ExecFunc func(cb driver.CmdBuffer, frame int)

// ParamsFunc adds the parameter ranges of a pass.
// It is called whenever the parameter buffers are
// rebuilt, before any of them is built.
type ParamsFunc func(a *params.Allocator) error

type resKind int

const (
	resLogical resKind = iota
	resView
	resExternal
)

type resource struct {
	name    string
	kind    resKind
	desc    registry.Desc
	onReady ReadyFunc
	// For views.
	parent       ResourceID
	level, layer int
	// For external resources.
	format driver.PixelFmt
	lookup ExternalFunc
}

type write struct {
	id    ResourceID
	role  Role
	clear *driver.ClearValue
}

type pass struct {
	serial int
	name   string
	kind   PassKind
	reads  []ResourceID
	writes []write
	pipes  []any
	exec   ExecFunc
	params ParamsFunc
}

// Graph is a frame graph.
// It owns its resource and pass declarations; handles
// are indices into them.
type Graph struct {
	res    []resource
	passes []pass
	// Incremented on every change to the graph.
	version int
	serial  int
}

// New creates an empty Graph.
func New() *Graph { return &Graph{} }

func (g *Graph) add(r resource) ResourceID {
	g.res = append(g.res, r)
	g.version++
	return ResourceID(len(g.res))
}

// resource returns the declaration of id, or nil if id
// does not identify a resource of g.
func (g *Graph) resource(id ResourceID) *resource {
	i := id.index()
	if i < 0 || i >= len(g.res) {
		return nil
	}
	return &g.res[i]
}

// CreateResource declares a resource described by desc.
// onReady may be nil.
func (g *Graph) CreateResource(desc registry.Desc, onReady ReadyFunc) ResourceID {
	return g.add(resource{
		name:    desc.Name,
		kind:    resLogical,
		desc:    desc,
		onReady: onReady,
	})
}

// CreateView declares a view of a single mip level and
// array layer of the texture parent.
// The view shares the parent's backing and is
// invalidated along with it.
// It panics if parent is not a texture resource of g.
func (g *Graph) CreateView(parent ResourceID, level, layer int) ResourceID {
	p := g.resource(parent)
	if p == nil || p.kind != resLogical || !p.desc.Kind.IsTexture() {
		panic("graph.CreateView: parent is not a texture resource")
	}
	return g.add(resource{
		name:   fmt.Sprintf("%s[%d:%d]", p.name, level, layer),
		kind:   resView,
		parent: parent,
		level:  level,
		layer:  layer,
	})
}

// CreateExternal declares a texture whose backing is not
// owned by the graph, such as a presentable image.
// External resources can be read without a producer.
func (g *Graph) CreateExternal(name string, pf driver.PixelFmt, lookup ExternalFunc) ResourceID {
	if lookup == nil {
		panic("graph.CreateExternal: nil lookup function")
	}
	return g.add(resource{
		name:   name,
		kind:   resExternal,
		format: pf,
		lookup: lookup,
	})
}

// Name returns the name of the resource identified by id.
func (g *Graph) Name(id ResourceID) string {
	if r := g.resource(id); r != nil {
		return r.name
	}
	return fmt.Sprintf("ResourceID(%d)", id)
}

// Resources returns the number of declared resources.
func (g *Graph) Resources() int { return len(g.res) }

// Passes returns the number of declared passes.
func (g *Graph) Passes() int { return len(g.passes) }

// Version returns a counter that is incremented by
// every change to g.
func (g *Graph) Version() int { return g.version }

// AddPass declares a pass.
// Pass names must be unique; this is checked when the
// graph is compiled.
func (g *Graph) AddPass(name string, kind PassKind) *PassBuilder {
	g.serial++
	g.passes = append(g.passes, pass{serial: g.serial, name: name, kind: kind})
	g.version++
	return &PassBuilder{g: g, serial: g.serial}
}

// RemovePass removes every pass named name.
// It returns whether any pass was removed.
func (g *Graph) RemovePass(name string) bool {
	n := len(g.passes)
	j := 0
	for i := range g.passes {
		if g.passes[i].name != name {
			g.passes[j] = g.passes[i]
			j++
		}
	}
	clear(g.passes[j:])
	g.passes = g.passes[:j]
	if j == n {
		return false
	}
	g.version++
	return true
}

// PassBuilder configures a pass.
// It must not be used after the pass is removed.
type PassBuilder struct {
	g      *Graph
	serial int
}

func (b *PassBuilder) find() *pass {
	for i := range b.g.passes {
		if b.g.passes[i].serial == b.serial {
			return &b.g.passes[i]
		}
	}
	panic("graph.PassBuilder: pass was removed")
}

func (b *PassBuilder) pass() *pass {
	b.g.version++
	return b.find()
}

// Name returns the name of the pass.
func (b *PassBuilder) Name() string { return b.find().name }

// Read declares that the pass reads the resource id.
func (b *PassBuilder) Read(id ResourceID) *PassBuilder {
	p := b.pass()
	p.reads = append(p.reads, id)
	return b
}

// Write declares that the pass writes the resource id
// with the given role.
// clear, if not nil, is the value the attachment is
// cleared to when the pass begins.
func (b *PassBuilder) Write(id ResourceID, role Role, clear *driver.ClearValue) *PassBuilder {
	p := b.pass()
	var cv *driver.ClearValue
	if clear != nil {
		c := *clear
		cv = &c
	}
	p.writes = append(p.writes, write{id, role, cv})
	return b
}

// AddPipeline declares a pipeline used by the pass.
// state must be a *driver.GraphState for graphics passes
// or a *driver.CompState for compute passes. The Pass,
// Subpass and Samples fields of a *driver.GraphState are
// set by the compiler.
// The first pipeline is bound before the pass's ExecFunc
// is called.
func (b *PassBuilder) AddPipeline(state any) PipelineID {
	p := b.pass()
	switch state.(type) {
	case *driver.GraphState:
		if p.kind != Graphics {
			panic("graph.PassBuilder.AddPipeline: graphics state in non-graphics pass")
		}
	case *driver.CompState:
		if p.kind != Compute {
			panic("graph.PassBuilder.AddPipeline: compute state in non-compute pass")
		}
	default:
		panic("graph.PassBuilder.AddPipeline: invalid pipeline state")
	}
	p.pipes = append(p.pipes, state)
	return PipelineID(len(p.pipes) - 1)
}

// SetExecutor sets the function that records the pass's
// commands.
func (b *PassBuilder) SetExecutor(fn ExecFunc) *PassBuilder {
	b.pass().exec = fn
	return b
}

// SetParams sets the function that adds the pass's
// parameter ranges.
func (b *PassBuilder) SetParams(fn ParamsFunc) *PassBuilder {
	b.pass().params = fn
	return b
}
