// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package fgraph

import (
	"log/slog"

	"github.com/gviegas/fgraph/internal/logx"
)

// SetLogger configures the logger used by fgraph and all of
// its sub-packages.
// By default nothing is logged. Passing nil restores this
// behavior.
//
// Levels in use:
//   - [slog.LevelDebug]: pruned passes, resource (re)allocation,
//     parameter buffer growth
//   - [slog.LevelInfo]: driver registration, resize handling
//   - [slog.LevelWarn]: dangling output-relative entries, replaced drivers
//
// SetLogger is safe for concurrent use.
func SetLogger(l *slog.Logger) { logx.Set(l) }

// Logger returns the current logger.
func Logger() *slog.Logger { return logx.L() }
