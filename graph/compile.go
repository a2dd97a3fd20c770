// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"fmt"
	"slices"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/internal/logx"
	"github.com/gviegas/fgraph/registry"
)

// resState is the physical state of a logical resource.
type resState struct {
	h     registry.Handle
	epoch int
}

type fbEntry struct {
	views []driver.ImageView
	fb    driver.Framebuf
}

// passState is the compiled form of a pass.
// It is kept across compilations so that render passes
// and pipelines can be reused.
type passState struct {
	name   string
	kind   PassKind
	exec   ExecFunc
	params ParamsFunc

	// Graphics passes only.
	att    []driver.Attachment
	sub    driver.Subpass
	attRes []ResourceID
	clear  []driver.ClearValue
	rp     driver.RenderPass
	fbs    []fbEntry
	width  int
	height int

	states []any
	pipes  []driver.Pipeline

	trans   []transition
	barrier []driver.Barrier
}

// Compiler compiles graphs into schedules.
// It realizes resources through a registry.Registry and
// keeps them alive across compilations of the same
// graph.
// It is not safe for concurrent use.
type Compiler struct {
	reg    *registry.Registry
	g      *Graph
	res    []resState
	passes map[string]*passState
	gen    int
}

// NewCompiler creates a new Compiler.
func NewCompiler(reg *registry.Registry) *Compiler {
	return &Compiler{
		reg:    reg,
		passes: make(map[string]*passState),
	}
}

// Registry returns the registry.Registry that c uses.
func (c *Compiler) Registry() *registry.Registry { return c.reg }

// Compile validates g, realizes the resources its
// passes use and orders its passes.
//
// Passes that neither read nor write anything are
// discarded. Of the remaining passes, every pass that
// writes a resource runs before the passes that read
// it. Passes with no such relation run in the order in
// which they were added to g.
//
// Resources are only reallocated when first used or,
// for output-relative resources, when the output extent
// of the registry has changed. Compiling a different
// graph releases the resources of the previous one.
func (c *Compiler) Compile(g *Graph) (*Schedule, error) {
	if c.g != g {
		c.release()
		c.g = g
	}

	// Name uniqueness.
	names := make(map[string]struct{}, len(g.passes))
	for i := range g.passes {
		name := g.passes[i].name
		if _, dup := names[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}
		names[name] = struct{}{}
	}

	// Resource realization.
	if n := len(g.res) - len(c.res); n > 0 {
		c.res = append(c.res, make([]resState, n)...)
	}
	for i := range g.passes {
		p := &g.passes[i]
		for _, id := range p.reads {
			if g.resource(id) == nil {
				return nil, fmt.Errorf("%w: pass %q reads %s", ErrUnresolvedInput, p.name, g.Name(id))
			}
			if err := c.realize(id); err != nil {
				return nil, fmt.Errorf("%w (pass %q)", err, p.name)
			}
		}
		for _, w := range p.writes {
			if err := c.realize(w.id); err != nil {
				return nil, fmt.Errorf("%w (pass %q)", err, p.name)
			}
		}
	}

	// Input validation.
	views := make(map[ResourceID][]ResourceID)
	for i := range g.res {
		if g.res[i].kind == resView {
			p := g.res[i].parent
			views[p] = append(views[p], ResourceID(i+1))
		}
	}
	produced := make(map[ResourceID]bool)
	for i := range g.passes {
		for _, w := range g.passes[i].writes {
			produced[w.id] = true
		}
	}
	for i := range g.passes {
		p := &g.passes[i]
		for _, id := range p.reads {
			if !resolved(g, id, produced, views) {
				return nil, fmt.Errorf("%w: pass %q reads %q", ErrUnresolvedInput, p.name, g.Name(id))
			}
		}
	}

	// Dead-pass pruning.
	alive := make([]int, len(g.passes))
	for i := range alive {
		alive[i] = i
	}
	for {
		var dead []int
		for k, i := range alive {
			if len(g.passes[i].reads) == 0 && len(g.passes[i].writes) == 0 {
				dead = append(dead, k)
			}
		}
		if len(dead) == 0 {
			break
		}
		for j := len(dead) - 1; j >= 0; j-- {
			logx.L().Debug("pass pruned", "name", g.passes[alive[dead[j]]].name)
			alive = slices.Delete(alive, dead[j], dead[j]+1)
		}
	}

	// Adjacency.
	readers := make(map[ResourceID][]int)
	for k, i := range alive {
		for _, id := range g.passes[i].reads {
			readers[id] = append(readers[id], k)
		}
	}
	adj := make([][]int, len(alive))
	var sinks []string
	sunk := make(map[ResourceID]bool)
	for k, i := range alive {
		seen := make(map[int]bool)
		for _, w := range g.passes[i].writes {
			read := false
			for _, key := range related(g, w.id, views) {
				for _, r := range readers[key] {
					read = true
					if r == k || seen[r] {
						continue
					}
					seen[r] = true
					adj[k] = append(adj[k], r)
				}
			}
			if !read && !sunk[w.id] {
				sunk[w.id] = true
				sinks = append(sinks, g.Name(w.id))
			}
		}
		slices.Sort(adj[k])
	}

	// Ordering.
	order, cyc, ok := toposort(adj)
	if !ok {
		return nil, cycleError(g.passes[alive[cyc]].name)
	}
	lvl := levels(adj, order)

	s := &Schedule{
		c:       c,
		version: g.version,
		epoch:   c.reg.Epoch(),
		sinks:   sinks,
	}
	pos := make([]int, len(alive))
	for j, k := range order {
		pos[k] = j
	}
	for _, k := range order {
		for _, v := range adj[k] {
			s.edges = append(s.edges, [2]int{pos[k], pos[v]})
		}
	}

	// Render passes, pipelines and synchronization.
	pl := newPlanner(g)
	used := make(map[string]bool, len(order))
	for _, k := range order {
		p := &g.passes[alive[k]]
		ps, err := c.build(p, pl)
		if err != nil {
			return nil, fmt.Errorf("%w (pass %q)", err, p.name)
		}
		s.passes = append(s.passes, ps)
		s.levels = append(s.levels, lvl[k])
		used[p.name] = true
	}
	s.final = pl.finish()
	for name, ps := range c.passes {
		if !used[name] {
			c.retire(ps)
			delete(c.passes, name)
		}
	}

	if n := c.reg.PruneDangling(); n > 0 {
		logx.L().Warn("dangling output-relative resources", "count", n)
	}
	c.gen++
	s.gen = c.gen
	return s, nil
}

// resolved returns whether a read of id is satisfied by
// the set of produced resources.
func resolved(g *Graph, id ResourceID, produced map[ResourceID]bool, views map[ResourceID][]ResourceID) bool {
	r := g.resource(id)
	switch {
	case r.kind == resExternal || produced[id]:
		return true
	case r.kind == resView:
		return produced[r.parent]
	}
	for _, v := range views[id] {
		if produced[v] {
			return true
		}
	}
	return false
}

// related returns the resources whose readers depend on
// a write to id: id itself, its parent if id is a view
// and its views otherwise.
func related(g *Graph, id ResourceID, views map[ResourceID][]ResourceID) []ResourceID {
	r := g.resource(id)
	if r.kind == resView {
		return []ResourceID{id, r.parent}
	}
	return append([]ResourceID{id}, views[id]...)
}

// realize ensures that id is backed by a live resource.
func (c *Compiler) realize(id ResourceID) error {
	r := c.g.resource(id)
	if r == nil {
		return fmt.Errorf("%w: %s", ErrBadResource, c.g.Name(id))
	}
	switch r.kind {
	case resExternal:
		return nil
	case resView:
		if err := c.realize(r.parent); err != nil {
			return err
		}
		h := c.res[r.parent.index()].h
		if _, err := c.reg.SubView(h, r.level, r.layer); err != nil {
			return fmt.Errorf("%w: %w", ErrBadResource, err)
		}
		return nil
	}
	st := &c.res[id.index()]
	if c.reg.Valid(st.h) && (!r.desc.Relative || st.epoch == c.reg.Epoch()) {
		return nil
	}
	if !st.h.IsZero() {
		c.reg.Destroy(st.h)
		st.h = registry.Handle{}
	}
	desc := r.desc
	h, err := c.reg.Create(&desc)
	if err != nil {
		return err
	}
	st.h, st.epoch = h, c.reg.Epoch()
	logx.L().Debug("resource realized", "name", r.name, "handle", h.String(), "relative", desc.Relative)
	if r.onReady != nil {
		if err := r.onReady(h, c.reg); err != nil {
			c.reg.Destroy(h)
			st.h = registry.Handle{}
			return fmt.Errorf("graph: %q: ready callback: %w", r.name, err)
		}
	}
	return nil
}

// Handle returns the physical handle that id currently
// resolves to. Views resolve to their parent's handle.
// It returns false for external resources and for
// resources that were not realized.
func (c *Compiler) Handle(id ResourceID) (registry.Handle, bool) {
	if c.g == nil {
		return registry.Handle{}, false
	}
	r := c.g.resource(id)
	if r == nil || r.kind == resExternal {
		return registry.Handle{}, false
	}
	if r.kind == resView {
		id = r.parent
	}
	if id.index() >= len(c.res) {
		return registry.Handle{}, false
	}
	h := c.res[id.index()].h
	return h, c.reg.Valid(h)
}

// View returns the image view that the texture id
// resolves to in the given frame.
func (c *Compiler) View(id ResourceID, frame int) (driver.ImageView, error) {
	r := c.g.resource(id)
	if r == nil {
		return nil, ErrBadResource
	}
	switch r.kind {
	case resExternal:
		v := r.lookup(frame)
		if v == nil {
			return nil, fmt.Errorf("%w: no image for %q in frame %d", ErrBadResource, r.name, frame)
		}
		return v, nil
	case resView:
		h, _ := c.Handle(r.parent)
		return c.reg.SubView(h, r.level, r.layer)
	}
	h, _ := c.Handle(id)
	return c.reg.View(h)
}

// attachment returns the attachment configuration of a
// texture written by a graphics pass.
func (c *Compiler) attachment(id ResourceID) (driver.PixelFmt, int, driver.Dim3D) {
	r := c.g.resource(id)
	switch r.kind {
	case resExternal:
		w, h := c.reg.Extent()
		return r.format, 1, driver.Dim3D{Width: w, Height: h}
	case resView:
		d := c.g.resource(r.parent).desc
		sz, _ := c.reg.Size(c.res[r.parent.index()].h)
		sz.Width = max(1, sz.Width>>r.level)
		sz.Height = max(1, sz.Height>>r.level)
		return d.Format, max(1, d.Samples), sz
	}
	sz, _ := c.reg.Size(c.res[id.index()].h)
	return r.desc.Format, max(1, r.desc.Samples), sz
}

// build updates the compiled state of p.
// pl must have seen every pass that precedes p.
func (c *Compiler) build(p *pass, pl *planner) (*passState, error) {
	ps := c.passes[p.name]
	if ps == nil {
		ps = &passState{name: p.name}
		c.passes[p.name] = ps
	}
	if ps.kind != p.kind {
		c.retire(ps)
		*ps = passState{name: p.name}
	}
	ps.kind = p.kind
	ps.exec = p.exec
	ps.params = p.params
	c.retireFBs(ps)

	var att []driver.Attachment
	var attRes []ResourceID
	var clearVals []driver.ClearValue
	sub := driver.Subpass{DS: -1}
	width, height := c.reg.Extent()
	for _, w := range p.writes {
		if w.role == Storage {
			continue
		}
		if p.kind != Graphics {
			return nil, fmt.Errorf("%w: %s attachment %q in %s pass", ErrBadResource, w.role, c.g.Name(w.id), p.kind)
		}
		if !pl.isTexture(w.id) {
			return nil, fmt.Errorf("%w: buffer %q used as attachment", ErrBadResource, c.g.Name(w.id))
		}
		pf, samples, size := c.attachment(w.id)
		switch {
		case w.role == Depth && !pf.IsDS():
			return nil, fmt.Errorf("%w: %q is not a depth/stencil format", ErrBadResource, c.g.Name(w.id))
		case w.role != Depth && pf.IsDS():
			return nil, fmt.Errorf("%w: %q is a depth/stencil format", ErrBadResource, c.g.Name(w.id))
		case w.role == Depth && sub.DS >= 0:
			return nil, fmt.Errorf("%w: more than one depth/stencil attachment", ErrBadResource)
		}
		load := driver.LDontCare
		var cv driver.ClearValue
		switch {
		case w.clear != nil:
			load = driver.LClear
			cv = *w.clear
		case pl.written[w.id]:
			load = driver.LLoad
		}
		idx := len(att)
		att = append(att, driver.Attachment{
			Format:  pf,
			Samples: samples,
			Load:    [2]driver.LoadOp{load, load},
			Store:   [2]driver.StoreOp{driver.SStore, driver.SStore},
		})
		attRes = append(attRes, w.id)
		clearVals = append(clearVals, cv)
		switch w.role {
		case Color:
			sub.Color = append(sub.Color, idx)
		case Depth:
			sub.DS = idx
		case Resolve:
			sub.MSR = append(sub.MSR, idx)
		}
		width = min(width, size.Width)
		height = min(height, size.Height)
	}
	if len(sub.Color) > c.reg.GPU().Limits().MaxColorTargets {
		return nil, fmt.Errorf("%w: too many color attachments", ErrBadResource)
	}

	// Planning must follow attachment setup, since the
	// load operations depend on earlier writes only.
	ps.trans, ps.barrier = pl.plan(p)

	rebuilt := false
	if p.kind == Graphics {
		if ps.rp == nil || !slices.Equal(ps.att, att) || !equalSubpass(ps.sub, sub) {
			c.retirePipes(ps)
			if ps.rp != nil {
				c.reg.Retire(ps.rp)
				ps.rp = nil
			}
			rp, err := c.reg.GPU().NewRenderPass(att, []driver.Subpass{sub})
			if err != nil {
				return nil, err
			}
			ps.rp = rp
			rebuilt = true
		}
		ps.att, ps.sub, ps.attRes, ps.clear = att, sub, attRes, clearVals
		ps.width, ps.height = width, height
	}

	if rebuilt || !slices.Equal(ps.states, p.pipes) {
		c.retirePipes(ps)
		for _, st := range p.pipes {
			var pipe driver.Pipeline
			var err error
			switch st := st.(type) {
			case *driver.GraphState:
				s := *st
				s.Pass = ps.rp
				s.Subpass = 0
				if s.Samples == 0 {
					s.Samples = 1
					if len(att) > 0 {
						s.Samples = att[0].Samples
					}
				}
				pipe, err = c.reg.GPU().NewPipeline(&s)
			case *driver.CompState:
				s := *st
				pipe, err = c.reg.GPU().NewPipeline(&s)
			}
			if err != nil {
				c.retirePipes(ps)
				return nil, err
			}
			ps.pipes = append(ps.pipes, pipe)
		}
		ps.states = slices.Clone(p.pipes)
	}
	return ps, nil
}

func equalSubpass(a, b driver.Subpass) bool {
	return a.DS == b.DS && a.Wait == b.Wait && slices.Equal(a.Color, b.Color) && slices.Equal(a.MSR, b.MSR)
}

func (c *Compiler) retireFBs(ps *passState) {
	for _, e := range ps.fbs {
		c.reg.Retire(e.fb)
	}
	ps.fbs = nil
}

func (c *Compiler) retirePipes(ps *passState) {
	for _, p := range ps.pipes {
		c.reg.Retire(p)
	}
	ps.pipes = nil
	ps.states = nil
}

// retire queues every driver object of ps for
// destruction.
func (c *Compiler) retire(ps *passState) {
	c.retireFBs(ps)
	c.retirePipes(ps)
	if ps.rp != nil {
		c.reg.Retire(ps.rp)
		ps.rp = nil
	}
}

// release discards the compiled state of the current
// graph.
func (c *Compiler) release() {
	for name, ps := range c.passes {
		c.retire(ps)
		delete(c.passes, name)
	}
	for i := range c.res {
		c.reg.Destroy(c.res[i].h)
	}
	c.res = c.res[:0]
	c.g = nil
	c.gen++
}

// Free releases every resource and driver object that c
// created. Existing schedules become stale.
// Objects are destroyed through the registry, so the
// usual deferred destruction applies.
func (c *Compiler) Free() { c.release() }

// framebuf returns the framebuffer that ps uses in the
// given frame, creating it if needed.
func (c *Compiler) framebuf(ps *passState, frame int) (driver.Framebuf, error) {
	views := make([]driver.ImageView, len(ps.attRes))
	for i, id := range ps.attRes {
		v, err := c.View(id, frame)
		if err != nil {
			return nil, err
		}
		views[i] = v
	}
	for _, e := range ps.fbs {
		if slices.Equal(e.views, views) {
			return e.fb, nil
		}
	}
	fb, err := ps.rp.NewFB(views, ps.width, ps.height, 1)
	if err != nil {
		return nil, err
	}
	ps.fbs = append(ps.fbs, fbEntry{views, fb})
	return fb, nil
}
