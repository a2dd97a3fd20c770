// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"fmt"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/params"
)

// Schedule is the result of compiling a graph.
// It remains valid until the graph changes, the output
// extent of the registry changes or the graph is
// compiled again.
type Schedule struct {
	c       *Compiler
	gen     int
	version int
	epoch   int
	passes  []*passState
	levels  []int
	sinks   []string
	edges   [][2]int
	final   []transition
}

// Len returns the number of passes in s.
func (s *Schedule) Len() int { return len(s.passes) }

// Passes returns the names of the passes in execution
// order.
func (s *Schedule) Passes() []string {
	names := make([]string, len(s.passes))
	for i, p := range s.passes {
		names[i] = p.name
	}
	return names
}

// Levels returns the dependency level of each pass, in
// execution order. A pass only depends on passes of
// lower levels.
func (s *Schedule) Levels() []int { return append([]int(nil), s.levels...) }

// Sinks returns the names of the resources that are
// written and never read.
func (s *Schedule) Sinks() []string { return append([]string(nil), s.sinks...) }

// Edges returns the dependencies between passes as
// (producer, consumer) name pairs.
func (s *Schedule) Edges() [][2]string {
	e := make([][2]string, len(s.edges))
	for i, x := range s.edges {
		e[i] = [2]string{s.passes[x[0]].name, s.passes[x[1]].name}
	}
	return e
}

// Epoch returns the registry epoch at compile time.
func (s *Schedule) Epoch() int { return s.epoch }

// Stale returns whether s can no longer be executed.
func (s *Schedule) Stale() bool {
	c := s.c
	return s.gen != c.gen || c.g == nil || c.g.version != s.version || c.reg.Epoch() != s.epoch
}

func (s *Schedule) check() error {
	if s.Stale() {
		return ErrStale
	}
	return nil
}

// Pipeline returns the pipeline created for a given
// pass. It returns nil if there is no such pipeline.
func (s *Schedule) Pipeline(pass string, id PipelineID) driver.Pipeline {
	for _, p := range s.passes {
		if p.name == pass {
			if int(id) >= 0 && int(id) < len(p.pipes) {
				return p.pipes[id]
			}
			break
		}
	}
	return nil
}

// RenderPass returns the render pass created for a
// given graphics pass.
func (s *Schedule) RenderPass(pass string) driver.RenderPass {
	for _, p := range s.passes {
		if p.name == pass {
			return p.rp
		}
	}
	return nil
}

// SetupParams calls the ParamsFunc of every pass, in
// execution order.
// a is expected to have been destroyed beforehand, so
// every offset is derived from scratch.
func (s *Schedule) SetupParams(a *params.Allocator) error {
	if err := s.check(); err != nil {
		return err
	}
	for _, p := range s.passes {
		if p.params == nil {
			continue
		}
		if err := p.params(a); err != nil {
			return fmt.Errorf("graph: pass %q: %w", p.name, err)
		}
	}
	return nil
}
