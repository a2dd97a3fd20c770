// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gviegas/fgraph/driver/nulldrv"
	"github.com/gviegas/fgraph/graph"
)

func newDotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dot FILE",
		Short: "Print a frame graph in Graphviz DOT format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, free, err := compileFile(nulldrv.New(), args[0])
			if err != nil {
				return err
			}
			defer free()
			writeDot(cmd.OutOrStdout(), c.sched)
			return nil
		},
	}
}

// writeDot writes s as a directed graph whose nodes are
// passes. Passes of the same level share a rank.
func writeDot(w io.Writer, s *graph.Schedule) {
	names := s.Passes()
	levels := s.Levels()
	fmt.Fprintln(w, "digraph fgraph {")
	fmt.Fprintln(w, "\trankdir=LR;")
	fmt.Fprintln(w, "\tnode [shape=box];")
	for _, n := range names {
		fmt.Fprintf(w, "\t%q;\n", n)
	}
	edges := s.Edges()
	slices.SortFunc(edges, func(a, b [2]string) int {
		if c := strings.Compare(a[0], b[0]); c != 0 {
			return c
		}
		return strings.Compare(a[1], b[1])
	})
	for _, e := range edges {
		fmt.Fprintf(w, "\t%q -> %q;\n", e[0], e[1])
	}
	for lvl := 0; ; lvl++ {
		var same []string
		for i, l := range levels {
			if l == lvl {
				same = append(same, fmt.Sprintf("%q", names[i]))
			}
		}
		if len(same) == 0 {
			break
		}
		fmt.Fprintf(w, "\t{ rank=same; %s; }\n", strings.Join(same, "; "))
	}
	fmt.Fprintln(w, "}")
}
