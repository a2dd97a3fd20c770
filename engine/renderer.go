// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package engine

import (
	"context"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/engine/internal/shader"
	"github.com/gviegas/fgraph/graph"
	"github.com/gviegas/fgraph/internal/logx"
	"github.com/gviegas/fgraph/params"
	"github.com/gviegas/fgraph/registry"
)

// State is the state of a Renderer.
type State int

// Renderer states.
// A Renderer is Idle between calls to Frame. Within
// Frame, it is Building while the graph is compiled and
// parameters are rebuilt, Ready once a valid schedule
// exists and Executing while commands are recorded.
const (
	Idle State = iota
	Building
	Ready
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Executing:
		return "executing"
	}
	return "State(?)"
}

// FrameFunc is called once per frame, after the frame
// slot is available and before any command is recorded.
// Parameters of the given slot can be updated in place.
type FrameFunc func(a *params.Allocator, slot, frame int) error

// Renderer runs a frame graph.
// It owns the registry of physical resources, the
// parameter allocator and one set of command buffers
// per frame slot.
// It is not safe for concurrent use.
type Renderer struct {
	gpu   driver.GPU
	cfg   Config
	reg   *registry.Registry
	comp  *graph.Compiler
	exec  *graph.Executor
	par   *params.Allocator
	table *shader.FrameTable

	g     *graph.Graph
	sched *graph.Schedule
	fn    FrameFunc

	state State
	slot  int
	frame int
	cb    [MaxFrame][]driver.CmdBuffer
	ch    [MaxFrame]chan error
	busy  [MaxFrame]bool

	resize bool
	width  int
	height int
}

// New creates a new Renderer whose output extent is
// width by height. A nil config means DefaultConfig.
func New(gpu driver.GPU, width, height int, config *Config) (*Renderer, error) {
	if gpu == nil {
		return nil, newRendErr("nil driver.GPU in call to New")
	}
	if width < 1 || height < 1 {
		return nil, newRendErr("invalid output extent")
	}
	cfg := DefaultConfig()
	if config != nil {
		cfg = *config
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.Frames()
	reg, err := registry.New(gpu, registry.Config{
		Slots:       n,
		MaxBindless: cfg.MaxBindless,
		Width:       width,
		Height:      height,
	})
	if err != nil {
		return nil, err
	}
	table, err := shader.NewFrameTable(gpu, reg.Bindless().Heap(), n)
	if err != nil {
		reg.Free()
		return nil, err
	}
	r := &Renderer{
		gpu:   gpu,
		cfg:   cfg,
		reg:   reg,
		comp:  graph.NewCompiler(reg),
		exec:  graph.NewExecutor(),
		table: table,
		par: params.New(params.Config{
			Slots:   n,
			Align:   cfg.ParamAlign,
			MinSize: cfg.ParamMinSize,
		}),
		width:  width,
		height: height,
	}
	r.par.SetHeap(table.ParamHeap(), shader.ParamNr)
	for i := range n {
		cb, err := gpu.NewCmdBuffer()
		if err != nil {
			r.Free()
			return nil, err
		}
		r.cb[i] = []driver.CmdBuffer{cb}
		r.ch[i] = make(chan error, 1)
	}
	logx.L().Info("renderer created", "frames", n, "width", width, "height", height)
	return r, nil
}

// GPU returns the driver.GPU that r uses.
func (r *Renderer) GPU() driver.GPU { return r.gpu }

// Config returns the configuration of r.
func (r *Renderer) Config() Config { return r.cfg }

// Registry returns the registry of physical resources.
func (r *Renderer) Registry() *registry.Registry { return r.reg }

// Params returns the parameter allocator.
func (r *Renderer) Params() *params.Allocator { return r.par }

// Table returns the descriptor table that passes bind
// to access bindless textures and parameters.
func (r *Renderer) Table() driver.DescTable { return r.table.Table() }

// State returns the current state of r.
func (r *Renderer) State() State { return r.state }

// Slot returns the frame slot in use by the current
// frame, or by the next one when r is Idle.
func (r *Renderer) Slot() int { return r.slot }

// Frames returns the number of frames committed so far.
func (r *Renderer) Frames() int { return r.frame }

// Schedule returns the current schedule.
// It is nil before the first frame and after failed
// builds.
func (r *Renderer) Schedule() *graph.Schedule { return r.sched }

// Extent returns the output extent, including a
// pending resize.
func (r *Renderer) Extent() (width, height int) { return r.width, r.height }

// SetGraph sets the graph to run.
// The graph is compiled at the start of the next frame.
func (r *Renderer) SetGraph(g *graph.Graph) {
	r.g = g
	r.sched = nil
}

// SetFrameFunc sets the function called at the start of
// every frame. fn may be nil.
func (r *Renderer) SetFrameFunc(fn FrameFunc) { r.fn = fn }

// BindGraph binds r's descriptor table for graphics
// pipelines, with parameters starting at off.
// It is meant to be called from graph.ExecFuncs.
func (r *Renderer) BindGraph(cb driver.CmdBuffer, off int64) {
	r.table.SetGraph(cb, r.slot, off)
}

// BindComp is like BindGraph, but for compute
// pipelines.
func (r *Renderer) BindComp(cb driver.CmdBuffer, off int64) {
	r.table.SetComp(cb, r.slot, off)
}

// Resize changes the output extent.
// The change takes effect at the start of the next
// frame, after every frame in flight completes.
func (r *Renderer) Resize(width, height int) error {
	if width < 1 || height < 1 {
		return newRendErr("invalid output extent")
	}
	if width == r.width && height == r.height {
		return nil
	}
	r.width, r.height = width, height
	r.resize = true
	return nil
}

// wait waits for the GPU to finish the work committed
// in the given frame slot.
func (r *Renderer) wait(slot int) error {
	if !r.busy[slot] {
		return nil
	}
	r.busy[slot] = false
	return <-r.ch[slot]
}

// waitAll waits for every frame in flight.
func (r *Renderer) waitAll() (err error) {
	for i := range r.cfg.Frames() {
		if e := r.wait(i); e != nil && err == nil {
			err = e
		}
	}
	return
}

// Wait blocks until the GPU is done with every frame
// committed so far.
func (r *Renderer) Wait() error { return r.waitAll() }

// Frame renders a frame.
// It waits for the frame slot to become available,
// rebuilds the schedule if the graph or the output
// extent changed and then records and commits the
// passes of the schedule.
// Upon failure, nothing is committed and r remains
// usable; the failed step is retried in the next call.
func (r *Renderer) Frame() (err error) {
	if r.g == nil {
		return newRendErr("no graph set")
	}
	if r.state != Idle {
		return newRendErr("Frame called while not idle")
	}
	slot := r.slot
	if err = r.wait(slot); err != nil {
		return
	}
	r.reg.BeginFrame(slot)
	defer func() { r.state = Idle }()

	if r.resize {
		if err = r.waitAll(); err != nil {
			return
		}
		r.reg.SetExtent(r.width, r.height)
		r.resize = false
		logx.L().Info("output resized", "width", r.width, "height", r.height)
	}
	if r.sched == nil || r.sched.Stale() {
		r.state = Building
		if err = r.build(); err != nil {
			r.sched = nil
			return
		}
	}
	r.state = Ready
	if r.fn != nil {
		if err = r.fn(r.par, slot, r.frame); err != nil {
			return
		}
	}

	r.state = Executing
	cbs, err := r.record(slot)
	if err != nil {
		return
	}
	if err = r.gpu.Commit(cbs, r.ch[slot]); err != nil {
		return
	}
	r.busy[slot] = true
	r.slot = (slot + 1) % r.cfg.Frames()
	r.frame++
	return nil
}

// build compiles the graph and rebuilds the parameters
// of every frame slot.
func (r *Renderer) build() error {
	if err := r.waitAll(); err != nil {
		return err
	}
	s, err := r.comp.Compile(r.g)
	if err != nil {
		return err
	}
	r.par.DestroyAll()
	if err := s.SetupParams(r.par); err != nil {
		return err
	}
	for i := range r.cfg.Frames() {
		if err := r.par.Build(r.gpu, i); err != nil {
			return err
		}
	}
	r.sched = s
	logx.L().Info("frame graph built", "passes", s.Len(), "epoch", s.Epoch())
	return nil
}

// record records the schedule into the command buffers
// of the given frame slot.
func (r *Renderer) record(slot int) ([]driver.CmdBuffer, error) {
	if !r.cfg.ParallelRecord {
		cb := r.cb[slot][0]
		if err := cb.Begin(); err != nil {
			return nil, err
		}
		if err := r.exec.Execute(cb, r.sched, r.frame); err != nil {
			cb.Reset()
			return nil, err
		}
		if err := cb.End(); err != nil {
			return nil, err
		}
		return r.cb[slot][:1], nil
	}
	n := r.sched.Len()
	for len(r.cb[slot]) < n {
		cb, err := r.gpu.NewCmdBuffer()
		if err != nil {
			return nil, err
		}
		r.cb[slot] = append(r.cb[slot], cb)
	}
	cbs := r.cb[slot][:n]
	if err := r.exec.ExecuteParallel(context.Background(), cbs, r.sched, r.frame); err != nil {
		return nil, err
	}
	return cbs, nil
}

// Free invalidates r and destroys the driver resources
// it created. It waits for every frame in flight.
func (r *Renderer) Free() {
	r.waitAll()
	r.comp.Free()
	r.par.DestroyAll()
	r.table.Free()
	for i := range r.cb {
		for _, cb := range r.cb[i] {
			cb.Destroy()
		}
	}
	r.reg.Free()
	*r = Renderer{}
}
