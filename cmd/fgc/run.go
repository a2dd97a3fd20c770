// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gviegas/fgraph/desc"
	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/driver/nulldrv"
	"github.com/gviegas/fgraph/engine"
	"github.com/gviegas/fgraph/graph"
)

// runOpts configures runFile.
type runOpts struct {
	driver   string
	frames   int
	resize   [2]int // Applied halfway through; zero means none.
	parallel bool
}

// runStats is the outcome of runFile.
type runStats struct {
	frames  int
	passes  int
	builds  int
	commits int
	elapsed time.Duration
	live    *nulldrv.Counts // Null driver only.
}

func newRunCmd() *cobra.Command {
	opts := runOpts{driver: nulldrv.Name}
	var resize string
	cmd := &cobra.Command{
		Use:   "run [flags] FILE",
		Short: "Render frames of a frame graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if resize != "" {
				if _, err := fmt.Sscanf(resize, "%dx%d", &opts.resize[0], &opts.resize[1]); err != nil {
					return fmt.Errorf("invalid --resize %q: %w", resize, err)
				}
			}
			f, err := desc.Load(args[0])
			if err != nil {
				return err
			}
			st, err := runFile(f, opts)
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			fmt.Fprintf(p.w, "%s %d frames, %d passes, %d builds, %d commits in %v\n",
				p.sink("rendered"), st.frames, st.passes, st.builds, st.commits, st.elapsed.Round(time.Microsecond))
			if st.live != nil {
				fmt.Fprintf(p.w, "%s %+v\n", p.faint("live objects:"), *st.live)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&opts.frames, "frames", "n", 60, "number of frames to render")
	fl.StringVar(&resize, "resize", "", "resize the output to `WxH` halfway through")
	fl.StringVar(&opts.driver, "driver", opts.driver, "name of the driver to use")
	fl.BoolVar(&opts.parallel, "parallel", false, "record passes concurrently")
	return cmd
}

// runFile renders opts.frames frames of f.
// External resources are backed by images that the
// command creates, one per frame in flight.
func runFile(f *desc.File, opts runOpts) (st runStats, err error) {
	if opts.frames < 1 {
		return st, errors.New("frame count must be at least 1")
	}
	drv, gpu, err := driver.Load(opts.driver)
	if err != nil {
		return st, err
	}
	defer drv.Close()

	conf := f.Config.Engine()
	conf.ParallelRecord = conf.ParallelRecord || opts.parallel
	w, h := f.Size()
	r, err := engine.New(gpu, w, h, &conf)
	if err != nil {
		return st, err
	}

	var objs []driver.Destroyer
	defer func() {
		r.Free()
		for i := len(objs) - 1; i >= 0; i-- {
			objs[i].Destroy()
		}
		if g, ok := gpu.(*nulldrv.GPU); ok {
			live := g.Live()
			st.live = &live
		}
	}()
	ext := make(map[string]graph.ExternalFunc, len(f.Externals))
	for _, e := range f.Externals {
		pf, _ := desc.PixelFmt(e.Format)
		views := make([]driver.ImageView, conf.Frames())
		for i := range views {
			img, err := gpu.NewImage(pf, driver.Dim3D{Width: w, Height: h}, 1, 1, 1, driver.URenderTarget|driver.UCopySrc)
			if err != nil {
				return st, err
			}
			objs = append(objs, img)
			if views[i], err = img.NewView(driver.IView2D, 0, 1, 0, 1); err != nil {
				return st, err
			}
			objs = append(objs, views[i])
		}
		ext[e.Name] = func(frame int) driver.ImageView { return views[frame%len(views)] }
	}

	g := graph.New()
	if _, err = f.Build(g, ext); err != nil {
		return st, err
	}
	r.SetGraph(g)

	start := time.Now()
	var sched *graph.Schedule
	for i := range opts.frames {
		if i == opts.frames/2 && opts.resize != [2]int{} {
			if err = r.Resize(opts.resize[0], opts.resize[1]); err != nil {
				return st, err
			}
		}
		if err = r.Frame(); err != nil {
			return st, fmt.Errorf("frame %d: %w", i, err)
		}
		if s := r.Schedule(); s != sched {
			sched = s
			st.builds++
		}
	}
	if err = r.Wait(); err != nil {
		return st, err
	}
	st.elapsed = time.Since(start)
	st.frames = r.Frames()
	st.passes = sched.Len()
	if g, ok := gpu.(*nulldrv.GPU); ok {
		st.commits = g.Commits()
	}
	return st, nil
}
