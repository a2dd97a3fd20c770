// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package nulldrv

import (
	"sync"

	"github.com/gviegas/fgraph/driver"
)

// Op identifies a recorded command.
type Op int

// Recorded commands.
const (
	OpBeginPass Op = iota
	OpEndPass
	OpBeginWork
	OpEndWork
	OpBeginBlit
	OpEndBlit
	OpSetPipeline
	OpSetViewport
	OpSetScissor
	OpSetDescTable
	OpSetDescOffset
	OpDraw
	OpDispatch
	OpCopyBuffer
	OpBarrier
	OpTransition
)

var opNames = [...]string{
	OpBeginPass:     "BeginPass",
	OpEndPass:       "EndPass",
	OpBeginWork:     "BeginWork",
	OpEndWork:       "EndWork",
	OpBeginBlit:     "BeginBlit",
	OpEndBlit:       "EndBlit",
	OpSetPipeline:   "SetPipeline",
	OpSetViewport:   "SetViewport",
	OpSetScissor:    "SetScissor",
	OpSetDescTable:  "SetDescTable",
	OpSetDescOffset: "SetDescOffset",
	OpDraw:          "Draw",
	OpDispatch:      "Dispatch",
	OpCopyBuffer:    "CopyBuffer",
	OpBarrier:       "Barrier",
	OpTransition:    "Transition",
}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "Op(?)"
}

// Cmd is a recorded command.
// Arg holds the command's main argument, if any:
// the pipeline for OpSetPipeline, the render pass for
// OpBeginPass, the transition list for OpTransition,
// the offsets for OpSetDescOffset and so on.
type Cmd struct {
	Op  Op
	Arg any
}

type block int

const (
	noBlock block = iota
	passBlock
	workBlock
	blitBlock
)

// CmdBuffer implements driver.CmdBuffer.
// Commands recorded out of order (e.g., a Draw outside
// of a render pass) make End fail.
type CmdBuffer struct {
	gpu       *GPU
	mu        sync.Mutex
	recording bool
	pending   bool
	destroyed bool
	blk       block
	bad       bool
	log       []Cmd
}

// Destroy implements driver.Destroyer.
func (c *CmdBuffer) Destroy() {
	if !c.destroyed {
		c.destroyed = true
		c.log = nil
		c.gpu.track(func(n *Counts) { n.CmdBuffers-- })
	}
}

// Log returns the commands recorded since the last
// call to Begin.
func (c *CmdBuffer) Log() []Cmd { return c.log }

// Ops returns the Op of every command in Log.
func (c *CmdBuffer) Ops() []Op {
	ops := make([]Op, len(c.log))
	for i := range c.log {
		ops[i] = c.log[i].Op
	}
	return ops
}

// Begin implements driver.CmdBuffer.
func (c *CmdBuffer) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.recording || c.pending || c.destroyed {
		return errInvalid
	}
	c.recording = true
	c.blk = noBlock
	c.bad = false
	c.log = c.log[:0]
	return nil
}

// IsRecording implements driver.CmdBuffer.
func (c *CmdBuffer) IsRecording() bool { return c.recording }

func (c *CmdBuffer) rec(op Op, arg any) {
	if !c.recording {
		c.bad = true
		return
	}
	c.log = append(c.log, Cmd{op, arg})
}

// enter begins a block of kind b.
func (c *CmdBuffer) enter(b block, op Op, arg any) {
	if c.blk != noBlock {
		c.bad = true
	}
	c.blk = b
	c.rec(op, arg)
}

// leave ends a block of kind b.
func (c *CmdBuffer) leave(b block, op Op) {
	if c.blk != b {
		c.bad = true
	}
	c.blk = noBlock
	c.rec(op, nil)
}

// in records a command that must appear within one of
// the given block kinds.
func (c *CmdBuffer) in(op Op, arg any, bs ...block) {
	ok := false
	for _, b := range bs {
		ok = ok || c.blk == b
	}
	if !ok {
		c.bad = true
	}
	c.rec(op, arg)
}

// BeginPass implements driver.CmdBuffer.
func (c *CmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	if p, ok := pass.(*RenderPass); !ok || p.destroyed {
		c.bad = true
	}
	if f, ok := fb.(*Framebuf); !ok || f.destroyed || f.pass != pass {
		c.bad = true
	}
	c.enter(passBlock, OpBeginPass, pass)
}

// EndPass implements driver.CmdBuffer.
func (c *CmdBuffer) EndPass() { c.leave(passBlock, OpEndPass) }

// BeginWork implements driver.CmdBuffer.
func (c *CmdBuffer) BeginWork(wait bool) { c.enter(workBlock, OpBeginWork, wait) }

// EndWork implements driver.CmdBuffer.
func (c *CmdBuffer) EndWork() { c.leave(workBlock, OpEndWork) }

// BeginBlit implements driver.CmdBuffer.
func (c *CmdBuffer) BeginBlit(wait bool) { c.enter(blitBlock, OpBeginBlit, wait) }

// EndBlit implements driver.CmdBuffer.
func (c *CmdBuffer) EndBlit() { c.leave(blitBlock, OpEndBlit) }

// SetPipeline implements driver.CmdBuffer.
func (c *CmdBuffer) SetPipeline(pl driver.Pipeline) {
	p, ok := pl.(*Pipeline)
	if !ok || p.destroyed {
		c.bad = true
	}
	c.in(OpSetPipeline, pl, passBlock, workBlock)
}

// SetViewport implements driver.CmdBuffer.
func (c *CmdBuffer) SetViewport(vp []driver.Viewport) { c.in(OpSetViewport, vp, passBlock) }

// SetScissor implements driver.CmdBuffer.
func (c *CmdBuffer) SetScissor(sciss []driver.Scissor) { c.in(OpSetScissor, sciss, passBlock) }

// SetDescTableGraph implements driver.CmdBuffer.
func (c *CmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	c.in(OpSetDescTable, heapCopy, passBlock)
}

// SetDescTableComp implements driver.CmdBuffer.
func (c *CmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	c.in(OpSetDescTable, heapCopy, workBlock)
}

// SetDescOffsetGraph implements driver.CmdBuffer.
func (c *CmdBuffer) SetDescOffsetGraph(table driver.DescTable, start int, off []int64) {
	c.in(OpSetDescOffset, off, passBlock)
}

// SetDescOffsetComp implements driver.CmdBuffer.
func (c *CmdBuffer) SetDescOffsetComp(table driver.DescTable, start int, off []int64) {
	c.in(OpSetDescOffset, off, workBlock)
}

// Draw implements driver.CmdBuffer.
func (c *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	c.in(OpDraw, [4]int{vertCount, instCount, baseVert, baseInst}, passBlock)
}

// Dispatch implements driver.CmdBuffer.
func (c *CmdBuffer) Dispatch(grpCountX, grpCountY, grpCountZ int) {
	c.in(OpDispatch, [3]int{grpCountX, grpCountY, grpCountZ}, workBlock)
}

// CopyBuffer implements driver.CmdBuffer.
// The copy is performed immediately.
func (c *CmdBuffer) CopyBuffer(param *driver.BufferCopy) {
	from, ok1 := param.From.(*Buffer)
	to, ok2 := param.To.(*Buffer)
	if !ok1 || !ok2 || param.FromOff+param.Size > from.Cap() || param.ToOff+param.Size > to.Cap() {
		c.bad = true
	} else {
		copy(to.data[param.ToOff:param.ToOff+param.Size], from.data[param.FromOff:])
	}
	c.in(OpCopyBuffer, *param, blitBlock)
}

// Barrier implements driver.CmdBuffer.
func (c *CmdBuffer) Barrier(b []driver.Barrier) { c.in(OpBarrier, b, noBlock) }

// Transition implements driver.CmdBuffer.
func (c *CmdBuffer) Transition(t []driver.Transition) { c.in(OpTransition, t, noBlock) }

// End implements driver.CmdBuffer.
func (c *CmdBuffer) End() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return errInvalid
	}
	c.recording = false
	if c.bad || c.blk != noBlock {
		c.log = c.log[:0]
		c.blk = noBlock
		return errInvalid
	}
	return nil
}

// Reset implements driver.CmdBuffer.
func (c *CmdBuffer) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending {
		return errInvalid
	}
	c.recording = false
	c.blk = noBlock
	c.bad = false
	c.log = c.log[:0]
	return nil
}
