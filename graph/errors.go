// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import "errors"

// Configuration errors, reported by Compiler.Compile.
// They are wrapped with the name of the offending pass.
var (
	ErrDuplicateName   = errors.New("graph: duplicate pass name")
	ErrUnresolvedInput = errors.New("graph: input has no producer")
	ErrCycle           = errors.New("graph: dependency cycle")
	ErrBadResource     = errors.New("graph: invalid resource")
)

// ErrStale means that a Schedule was executed after the
// graph or the output extent changed and before the
// graph was compiled again.
var ErrStale = errors.New("graph: stale schedule")

var errNotRecording = errors.New("graph: command buffer is not recording")
