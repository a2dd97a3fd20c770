// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/gviegas/fgraph/driver"
)

// Executor records compiled schedules into command
// buffers.
// It binds the first pipeline of each pass and records
// the synchronization that the compiler planned; every
// other command comes from the passes' ExecFuncs.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor { return &Executor{} }

// Execute records every pass of s, in order, into cb.
// cb must be recording. frame identifies the frame
// being recorded; it is given to ExecFuncs and to the
// lookup functions of external resources.
// It fails with ErrStale if s is stale.
func (e *Executor) Execute(cb driver.CmdBuffer, s *Schedule, frame int) error {
	if err := s.check(); err != nil {
		return err
	}
	if !cb.IsRecording() {
		return errNotRecording
	}
	for _, ps := range s.passes {
		if err := e.record(cb, s, ps, frame); err != nil {
			return err
		}
	}
	return e.transition(cb, s, s.final, frame)
}

// ExecuteParallel records each pass of s into its own
// command buffer. Passes are recorded concurrently, so
// their ExecFuncs must be safe to call from multiple
// goroutines.
// cbs must have one command buffer per pass, not yet
// recording. Upon success, cbs are ready to be committed
// in order, which is the execution order of s.
func (e *Executor) ExecuteParallel(ctx context.Context, cbs []driver.CmdBuffer, s *Schedule, frame int) error {
	if err := s.check(); err != nil {
		return err
	}
	if len(cbs) != len(s.passes) {
		return fmt.Errorf("graph: %d command buffers for %d passes", len(cbs), len(s.passes))
	}
	if len(cbs) == 0 {
		return nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	for i, ps := range s.passes {
		cb := cbs[i]
		last := i == len(s.passes)-1
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := cb.Begin(); err != nil {
				return err
			}
			err := e.record(cb, s, ps, frame)
			if err == nil && last {
				err = e.transition(cb, s, s.final, frame)
			}
			if err != nil {
				cb.Reset()
				return err
			}
			return cb.End()
		})
	}
	if err := eg.Wait(); err != nil {
		for _, cb := range cbs {
			if cb.IsRecording() {
				cb.Reset()
			}
		}
		return err
	}
	return nil
}

func (e *Executor) transition(cb driver.CmdBuffer, s *Schedule, ts []transition, frame int) error {
	if len(ts) == 0 {
		return nil
	}
	dt := make([]driver.Transition, len(ts))
	for i, t := range ts {
		v, err := s.c.View(t.id, frame)
		if err != nil {
			return err
		}
		dt[i] = driver.Transition{
			Barrier:      t.Barrier,
			LayoutBefore: t.before,
			LayoutAfter:  t.after,
			IView:        v,
		}
	}
	cb.Transition(dt)
	return nil
}

func (e *Executor) record(cb driver.CmdBuffer, s *Schedule, ps *passState, frame int) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("graph: pass %q: %w", ps.name, err)
		}
	}()
	if err = e.transition(cb, s, ps.trans, frame); err != nil {
		return
	}
	if len(ps.barrier) > 0 {
		cb.Barrier(ps.barrier)
	}
	switch ps.kind {
	case Graphics:
		fb, err := s.c.framebuf(ps, frame)
		if err != nil {
			return err
		}
		cb.BeginPass(ps.rp, fb, ps.clear)
		cb.SetViewport([]driver.Viewport{{
			Width:  float32(ps.width),
			Height: float32(ps.height),
			Zfar:   1,
		}})
		cb.SetScissor([]driver.Scissor{{Width: ps.width, Height: ps.height}})
		if len(ps.pipes) > 0 {
			cb.SetPipeline(ps.pipes[0])
		}
		if ps.exec != nil {
			ps.exec(cb, frame)
		}
		cb.EndPass()
	case Compute:
		cb.BeginWork(false)
		if len(ps.pipes) > 0 {
			cb.SetPipeline(ps.pipes[0])
		}
		if ps.exec != nil {
			ps.exec(cb, frame)
		}
		cb.EndWork()
	default:
		return errors.New("undefined pass kind")
	}
	return nil
}
