// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package fgraph is the root of a frame graph renderer core.
//
// A frame is described declaratively as a graph of passes
// and the resources they read and write (package graph).
// The graph is compiled into an execution order whose
// resources are backed by physical GPU objects owned by a
// registry (package registry). Per-draw data is handed to
// shaders through a bindless, N-buffered parameter buffer
// (package params). Package engine ties these together into
// a frame loop that tolerates output resizes, and package
// driver defines the GPU collaborator they are written
// against.
package fgraph
