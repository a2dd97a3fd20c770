// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"fmt"
	"slices"
)

const (
	white = iota
	gray
	black
)

// toposort orders the nodes of adj so that every edge
// goes from an earlier node to a later one.
// adj[i] lists the successors of node i. Nodes without
// a relative ordering keep their index order.
// It returns the index of a node in a cycle if the
// graph is not acyclic.
//
// The search is an iterative depth-first search whose
// reversed post-order is the result. Roots and
// successors are visited from the highest index down,
// so that lower indices end up first once reversed.
func toposort(adj [][]int) (order []int, cycle int, ok bool) {
	n := len(adj)
	color := make([]uint8, n)
	post := make([]int, 0, n)

	type frame struct{ node, next int }
	stack := make([]frame, 0, n)

	for root := n - 1; root >= 0; root-- {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack, frame{root, len(adj[root]) - 1})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < 0 {
				color[top.node] = black
				post = append(post, top.node)
				stack = stack[:len(stack)-1]
				continue
			}
			succ := adj[top.node][top.next]
			top.next--
			switch color[succ] {
			case white:
				color[succ] = gray
				stack = append(stack, frame{succ, len(adj[succ]) - 1})
			case gray:
				return nil, succ, false
			}
		}
	}
	slices.Reverse(post)
	return post, -1, true
}

// levels returns, for each node of adj, the length of
// the longest path that reaches it from a node with no
// predecessors. order must be a topological order of adj.
// Nodes on the same level have no dependency between
// them.
func levels(adj [][]int, order []int) []int {
	lvl := make([]int, len(adj))
	for _, u := range order {
		for _, v := range adj[u] {
			lvl[v] = max(lvl[v], lvl[u]+1)
		}
	}
	return lvl
}

func cycleError(name string) error {
	return fmt.Errorf("%w: pass %q", ErrCycle, name)
}
