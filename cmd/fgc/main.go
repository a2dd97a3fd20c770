// Copyright 2026 Gustavo C. Viegas. All rights reserved.

// Command fgc compiles, inspects and runs frame graph
// descriptions.
//
// Usage:
//
//	fgc compile FILE       print the execution order
//	fgc dot FILE           print the graph in DOT format
//	fgc run [flags] FILE   render frames with a driver
//	fgc watch FILE         recompile FILE on every change
//
// FILE is a YAML (.yaml, .yml) or TOML (.toml) frame
// graph description.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
