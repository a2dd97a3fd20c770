// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/gviegas/fgraph/driver/nulldrv"
)

// Changes closer than this are compiled once.
const settle = 100 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE",
		Short: "Recompile a frame graph whenever its file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return watch(ctx, args[0], cmd.OutOrStdout(), nil)
		},
	}
}

// watch compiles the description at path and prints its
// schedule, then does so again after every change to
// the file, until ctx is done.
// Compilation errors are printed rather than returned.
// If done is not nil, it is called with the outcome of
// every compilation.
func watch(ctx context.Context, path string, w io.Writer, done func(error)) error {
	wt, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer wt.Close()
	// Editors often replace files rather than writing
	// to them, so the directory is watched instead.
	if err := wt.Add(filepath.Dir(path)); err != nil {
		return err
	}
	name := filepath.Clean(path)

	p := newPrinter(w)
	build := func() {
		c, free, err := compileFile(nulldrv.New(), path)
		if err != nil {
			fmt.Fprintln(w, p.err(err.Error()))
		} else {
			printSchedule(w, c.sched)
			free()
		}
		if done != nil {
			done(err)
		}
	}
	build()

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-wt.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(settle)
		case <-timer.C:
			fmt.Fprintln(w, p.faint("--- "+time.Now().Format(time.TimeOnly)))
			build()
		case err, ok := <-wt.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}
