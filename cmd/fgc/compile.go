// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gviegas/fgraph/driver/nulldrv"
	"github.com/gviegas/fgraph/graph"
)

func newCompileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compile FILE",
		Short: "Print the execution order of a frame graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, free, err := compileFile(nulldrv.New(), args[0])
			if err != nil {
				return err
			}
			defer free()
			printSchedule(cmd.OutOrStdout(), c.sched)
			return nil
		},
	}
}

// printSchedule prints the passes of s in execution
// order, along with their levels, followed by the sinks.
func printSchedule(w io.Writer, s *graph.Schedule) {
	p := newPrinter(w)
	names := s.Passes()
	levels := s.Levels()
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for i, n := range names {
		pad := strings.Repeat(" ", width-len(n))
		fmt.Fprintf(w, "%3d  %s%s  %s\n", i, p.pass(n), pad, p.faint(fmt.Sprintf("level %d", levels[i])))
	}
	sinks := make([]string, len(s.Sinks()))
	for i, n := range s.Sinks() {
		sinks[i] = p.sink(n).String()
	}
	fmt.Fprintf(w, "sinks: %s\n", strings.Join(sinks, ", "))
}
