// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Package logx holds the logger shared by every package
// of the module.
package logx

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nop discards all records.
// Enabled returns false so that callers skip formatting.
type nop struct{}

func (nop) Enabled(context.Context, slog.Level) bool  { return false }
func (nop) Handle(context.Context, slog.Record) error { return nil }
func (nop) WithAttrs([]slog.Attr) slog.Handler        { return nop{} }
func (nop) WithGroup(string) slog.Handler             { return nop{} }

var logger atomic.Pointer[slog.Logger]

func init() { Set(nil) }

// Set replaces the shared logger.
// A nil l restores the silent default.
func Set(l *slog.Logger) {
	if l == nil {
		l = slog.New(nop{})
	}
	logger.Store(l)
}

// L returns the shared logger.
func L() *slog.Logger { return logger.Load() }
