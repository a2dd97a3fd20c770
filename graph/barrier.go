// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"github.com/gviegas/fgraph/driver"
)

// transition is a planned layout transition.
// The image view is resolved when the schedule is
// executed, since external resources may change from
// frame to frame.
type transition struct {
	driver.Barrier
	id     ResourceID
	before driver.Layout
	after  driver.Layout
}

type access struct {
	sync driver.Sync
	acc  driver.Access
}

const writeAccess = driver.AColorWrite | driver.ADSWrite | driver.AResolveWrite |
	driver.ACopyWrite | driver.AShaderWrite | driver.AAnyWrite

func (a access) writes() bool { return a.acc&writeAccess != 0 }

// planner tracks the state of every resource as passes
// are appended to a schedule, and derives the layout
// transitions and barriers each pass needs.
// Every frame starts with all textures in an undefined
// layout: a texture is always written by an earlier
// pass before it is read, unless it is external.
type planner struct {
	g       *Graph
	layout  map[ResourceID]driver.Layout
	last    map[ResourceID]access
	written map[ResourceID]bool
}

func newPlanner(g *Graph) *planner {
	return &planner{
		g:       g,
		layout:  make(map[ResourceID]driver.Layout),
		last:    make(map[ResourceID]access),
		written: make(map[ResourceID]bool),
	}
}

// isTexture returns whether id refers to a texture.
func (pl *planner) isTexture(id ResourceID) bool {
	r := pl.g.resource(id)
	return r.kind != resLogical || r.desc.Kind.IsTexture()
}

// format returns the pixel format of a texture.
func (pl *planner) format(id ResourceID) driver.PixelFmt {
	r := pl.g.resource(id)
	switch r.kind {
	case resView:
		return pl.g.resource(r.parent).desc.Format
	case resExternal:
		return r.format
	}
	return r.desc.Format
}

func shaderSync(kind PassKind) driver.Sync {
	if kind == Compute {
		return driver.SComputeShading
	}
	return driver.SVertexShading | driver.SFragmentShading
}

// readState returns the layout and access scope of a
// texture or buffer read by a pass of the given kind.
func (pl *planner) readState(kind PassKind, id ResourceID) (driver.Layout, access) {
	lay := driver.LShaderRead
	if pl.isTexture(id) && pl.format(id).IsDS() {
		lay = driver.LDSRead
	}
	return lay, access{shaderSync(kind), driver.AShaderRead}
}

// writeState returns the layout and access scope of a
// resource written with the given role.
func (pl *planner) writeState(kind PassKind, w write) (driver.Layout, access) {
	switch w.role {
	case Color:
		return driver.LColorTarget, access{driver.SColorOutput, driver.AColorRead | driver.AColorWrite}
	case Depth:
		return driver.LDSTarget, access{driver.SDSOutput, driver.ADSRead | driver.ADSWrite}
	case Resolve:
		return driver.LResolveDst, access{driver.SResolve, driver.AResolveWrite}
	default:
		return driver.LCommon, access{shaderSync(kind), driver.AShaderRead | driver.AShaderWrite}
	}
}

// use records an access to id and returns the transition
// or barrier it requires, if any.
func (pl *planner) use(id ResourceID, lay driver.Layout, now access) (t *transition, b *driver.Barrier) {
	prev, seen := pl.last[id]
	pl.last[id] = now
	if now.writes() {
		pl.written[id] = true
	}
	if !pl.isTexture(id) {
		if seen && (prev.writes() || now.writes()) {
			return nil, &driver.Barrier{
				SyncBefore:   prev.sync,
				SyncAfter:    now.sync,
				AccessBefore: prev.acc,
				AccessAfter:  now.acc,
			}
		}
		return nil, nil
	}
	cur, ok := pl.layout[id]
	pl.layout[id] = lay
	if !ok && !now.writes() && pl.g.resource(id).kind == resExternal {
		// External inputs are expected to be in the
		// layout of their first use.
		return nil, nil
	}
	if ok && cur == lay && !prev.writes() && !now.writes() {
		return nil, nil
	}
	t = &transition{id: id, before: cur, after: lay}
	if seen {
		t.SyncBefore, t.AccessBefore = prev.sync, prev.acc
	}
	t.SyncAfter, t.AccessAfter = now.sync, now.acc
	return t, nil
}

// plan returns the transitions and barriers that must be
// recorded before p begins.
func (pl *planner) plan(p *pass) (ts []transition, bs []driver.Barrier) {
	add := func(t *transition, b *driver.Barrier) {
		if t != nil {
			ts = append(ts, *t)
		}
		if b != nil {
			bs = append(bs, *b)
		}
	}
outer:
	for _, id := range p.reads {
		for _, w := range p.writes {
			if w.id == id {
				continue outer
			}
		}
		lay, acc := pl.readState(p.kind, id)
		add(pl.use(id, lay, acc))
	}
	for _, w := range p.writes {
		lay, acc := pl.writeState(p.kind, w)
		add(pl.use(w.id, lay, acc))
	}
	return
}

// finish returns the transitions recorded after the
// last pass: external textures written by the graph
// end up in driver.LPresent.
func (pl *planner) finish() (ts []transition) {
	for i := range pl.g.res {
		id := ResourceID(i + 1)
		if pl.g.res[i].kind != resExternal || !pl.written[id] {
			continue
		}
		prev := pl.last[id]
		ts = append(ts, transition{
			Barrier: driver.Barrier{
				SyncBefore:   prev.sync,
				SyncAfter:    driver.SNone,
				AccessBefore: prev.acc,
				AccessAfter:  driver.ANone,
			},
			id:     id,
			before: pl.layout[id],
			after:  driver.LPresent,
		})
	}
	return
}
