// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package desc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gviegas/fgraph/driver"
)

func newErr(reason string) error {
	return errors.New("desc: " + reason)
}

// Pixel format names, as they appear in resource.format
// and external.format. Case is ignored.
var formats = map[string]driver.PixelFmt{
	"rgba8unorm":     driver.RGBA8Unorm,
	"rgba8srgb":      driver.RGBA8SRGB,
	"bgra8unorm":     driver.BGRA8Unorm,
	"bgra8srgb":      driver.BGRA8SRGB,
	"rg8unorm":       driver.RG8Unorm,
	"r8unorm":        driver.R8Unorm,
	"rgba16float":    driver.RGBA16Float,
	"rg16float":      driver.RG16Float,
	"r16float":       driver.R16Float,
	"rgba32float":    driver.RGBA32Float,
	"rg32float":      driver.RG32Float,
	"r32float":       driver.R32Float,
	"d16unorm":       driver.D16Unorm,
	"d32float":       driver.D32Float,
	"s8uint":         driver.S8Uint,
	"d24unorms8uint": driver.D24UnormS8Uint,
	"d32floats8uint": driver.D32FloatS8Uint,
}

// PixelFmt returns the driver.PixelFmt named s.
func PixelFmt(s string) (driver.PixelFmt, bool) {
	pf, ok := formats[strings.ToLower(s)]
	return pf, ok
}

// Check checks that f is a valid description.
// Names must be unique across resources, views and
// externals, and every name that a view or a pass
// refers to must be declared.
func (f *File) Check() error {
	if f.Extent.Width < 0 || f.Extent.Height < 0 {
		return newErr("invalid Extent")
	}
	if f.Config.MaxBindless < 0 || f.Config.ParamAlign < 0 || f.Config.ParamMinSize < 0 {
		return newErr("invalid Config")
	}
	if len(f.Passes) == 0 {
		return newErr("no passes")
	}

	names := make(map[string]string)
	declare := func(name, what string) error {
		if name == "" {
			return newErr("unnamed " + what)
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("desc: %s %q redeclares %s", what, name, prev)
		}
		names[name] = what
		return nil
	}
	for i := range f.Resources {
		r := &f.Resources[i]
		if err := declare(r.Name, "resource"); err != nil {
			return err
		}
		if err := r.Check(); err != nil {
			return err
		}
	}
	for i := range f.Views {
		v := &f.Views[i]
		if err := declare(v.Name, "view"); err != nil {
			return err
		}
		if names[v.Parent] != "resource" {
			return fmt.Errorf("desc: view %q: parent %q is not a resource", v.Name, v.Parent)
		}
		if v.Level < 0 || v.Layer < 0 {
			return fmt.Errorf("desc: view %q: invalid level/layer", v.Name)
		}
	}
	for i := range f.Externals {
		e := &f.Externals[i]
		if err := declare(e.Name, "external"); err != nil {
			return err
		}
		if pf, ok := PixelFmt(e.Format); !ok || pf.IsDS() {
			return fmt.Errorf("desc: external %q: invalid format %q", e.Name, e.Format)
		}
	}

	passes := make(map[string]bool)
	for i := range f.Passes {
		p := &f.Passes[i]
		if p.Name == "" {
			return newErr("unnamed pass")
		}
		if passes[p.Name] {
			return fmt.Errorf("desc: pass %q redeclared", p.Name)
		}
		passes[p.Name] = true
		if err := p.check(names); err != nil {
			return err
		}
	}
	return nil
}

// Check checks that r is a valid resources' element.
func (r *Resource) Check() error {
	bad := func(field string) error {
		return fmt.Errorf("desc: resource %q: invalid %s", r.Name, field)
	}
	switch r.Kind {
	case KindColor, KindDepth:
		pf, ok := PixelFmt(r.Format)
		if !ok || pf.IsDS() != (r.Kind == KindDepth) {
			return bad("Format")
		}
		if r.Width < 1 || r.Height < 1 {
			return bad("Width/Height")
		}
		if r.Layers < 0 || r.Levels < 0 || r.Samples < 0 {
			return bad("Layers/Levels/Samples")
		}
		if r.Size != 0 {
			return bad("Size")
		}
	case KindStorage, KindUniform:
		if r.Size < 1 {
			return bad("Size")
		}
		if r.Format != "" || r.Relative || r.Bindless {
			return fmt.Errorf("desc: resource %q: texture fields set for %s buffer", r.Name, r.Kind)
		}
	default:
		return bad("Kind")
	}
	return nil
}

func (p *Pass) check(names map[string]string) error {
	switch p.Kind {
	case KindGraphics:
		if len(p.Dispatch) != 0 {
			return fmt.Errorf("desc: pass %q: Dispatch set for graphics pass", p.Name)
		}
		if p.Draw < 0 {
			return fmt.Errorf("desc: pass %q: invalid Draw", p.Name)
		}
	case KindCompute:
		if p.Draw != 0 {
			return fmt.Errorf("desc: pass %q: Draw set for compute pass", p.Name)
		}
		if len(p.Dispatch) > 3 {
			return fmt.Errorf("desc: pass %q: invalid Dispatch", p.Name)
		}
		for _, n := range p.Dispatch {
			if n < 1 {
				return fmt.Errorf("desc: pass %q: invalid Dispatch", p.Name)
			}
		}
	default:
		return fmt.Errorf("desc: pass %q: invalid Kind %q", p.Name, p.Kind)
	}
	for _, r := range p.Reads {
		if _, ok := names[r]; !ok {
			return fmt.Errorf("desc: pass %q reads undeclared %q", p.Name, r)
		}
	}
	for _, w := range p.Writes {
		if _, ok := names[w.Resource]; !ok {
			return fmt.Errorf("desc: pass %q writes undeclared %q", p.Name, w.Resource)
		}
		switch w.Role {
		case RoleColor, RoleDepth, RoleResolve, RoleStorage:
		default:
			return fmt.Errorf("desc: pass %q: invalid Role %q", p.Name, w.Role)
		}
		if c := w.Clear; c != nil && len(c.Color) > 4 {
			return fmt.Errorf("desc: pass %q: invalid Clear.Color", p.Name)
		}
	}
	return nil
}
