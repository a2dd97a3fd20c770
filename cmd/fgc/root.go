// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"io"
	"log/slog"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/gviegas/fgraph"
	"github.com/gviegas/fgraph/desc"
	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/graph"
	"github.com/gviegas/fgraph/registry"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "fgc",
		Short:        "Frame graph compiler",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if !verbose {
				fgraph.SetLogger(nil)
				return
			}
			h := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug})
			fgraph.SetLogger(slog.New(h))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log compiler and renderer activity")
	root.AddCommand(newCompileCmd(), newDotCmd(), newRunCmd(), newWatchCmd())
	return root
}

// compiled is a description compiled against a
// registry.
type compiled struct {
	file  *desc.File
	ids   map[string]graph.ResourceID
	sched *graph.Schedule
}

// compileFile loads the description at path and
// compiles it with a registry created from gpu.
// External resources have no backing; their lookup
// functions return nil.
func compileFile(gpu driver.GPU, path string) (*compiled, func(), error) {
	f, err := desc.Load(path)
	if err != nil {
		return nil, nil, err
	}
	w, h := f.Size()
	reg, err := registry.New(gpu, registry.Config{
		Slots:       1,
		MaxBindless: f.Config.Engine().MaxBindless,
		Width:       w,
		Height:      h,
	})
	if err != nil {
		return nil, nil, err
	}
	ext := make(map[string]graph.ExternalFunc, len(f.Externals))
	for _, e := range f.Externals {
		ext[e.Name] = func(int) driver.ImageView { return nil }
	}
	g := graph.New()
	ids, err := f.Build(g, ext)
	if err != nil {
		reg.Free()
		return nil, nil, err
	}
	c := graph.NewCompiler(reg)
	free := func() {
		c.Free()
		reg.Free()
	}
	s, err := c.Compile(g)
	if err != nil {
		free()
		return nil, nil, err
	}
	return &compiled{f, ids, s}, free, nil
}

// printer writes styled text.
type printer struct {
	w   io.Writer
	out *termenv.Output
}

func newPrinter(w io.Writer) *printer {
	return &printer{w, termenv.NewOutput(w)}
}

func (p *printer) pass(s string) termenv.Style {
	return p.out.String(s).Bold().Foreground(p.out.Color("4"))
}

func (p *printer) sink(s string) termenv.Style {
	return p.out.String(s).Foreground(p.out.Color("2"))
}

func (p *printer) faint(s string) termenv.Style {
	return p.out.String(s).Faint()
}

func (p *printer) err(s string) termenv.Style {
	return p.out.String(s).Foreground(p.out.Color("1"))
}
