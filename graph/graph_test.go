// Copyright 2026 Gustavo C. Viegas. All rights reserved.

package graph

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/fgraph/driver"
	"github.com/gviegas/fgraph/driver/nulldrv"
	"github.com/gviegas/fgraph/registry"
)

type env struct {
	gpu *nulldrv.GPU
	reg *registry.Registry
	c   *Compiler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gpu := nulldrv.New()
	reg, err := registry.New(gpu, registry.Config{Slots: 2, MaxBindless: 64, Width: 640, Height: 480})
	require.NoError(t, err)
	return &env{gpu, reg, NewCompiler(reg)}
}

func colorTex(name string) registry.Desc {
	return registry.Desc{
		Kind:     registry.ColorTex,
		Name:     name,
		Format:   driver.RGBA8Unorm,
		Size:     driver.Dim3D{Width: 100, Height: 100},
		Relative: true,
	}
}

func depthTex(name string, relative bool) registry.Desc {
	d := registry.Desc{
		Kind:     registry.DepthTex,
		Name:     name,
		Format:   driver.D32Float,
		Size:     driver.Dim3D{Width: 1024, Height: 1024},
		Relative: relative,
	}
	if relative {
		d.Size = driver.Dim3D{Width: 100, Height: 100}
	}
	return d
}

type scene struct {
	g                               *Graph
	shadowMap, color, depth, output ResourceID
	ran                             *[]string
}

// buildScene declares the Shadow, Mesh and Post passes
// in the given order.
func buildScene(order ...string) *scene {
	g := New()
	var ran []string
	s := &scene{
		g:         g,
		shadowMap: g.CreateResource(depthTex("ShadowMap", false), nil),
		color:     g.CreateResource(colorTex("Color"), nil),
		depth:     g.CreateResource(depthTex("Depth", true), nil),
		output:    g.CreateResource(colorTex("Output"), nil),
		ran:       &ran,
	}
	rec := func(name string) ExecFunc {
		return func(driver.CmdBuffer, int) { *s.ran = append(*s.ran, name) }
	}
	for _, name := range order {
		switch name {
		case "Shadow":
			g.AddPass("Shadow", Graphics).
				Write(s.shadowMap, Depth, &driver.ClearValue{Depth: 1}).
				SetExecutor(rec(name))
		case "Mesh":
			g.AddPass("Mesh", Graphics).
				Read(s.shadowMap).
				Write(s.color, Color, &driver.ClearValue{}).
				Write(s.depth, Depth, &driver.ClearValue{Depth: 1}).
				SetExecutor(rec(name))
		case "Post":
			g.AddPass("Post", Graphics).
				Read(s.color).
				Write(s.output, Color, nil).
				SetExecutor(rec(name))
		case "Orphan":
			g.AddPass("Orphan", Graphics).SetExecutor(rec(name))
		default:
			panic("undefined pass " + name)
		}
	}
	return s
}

func TestScenarioOrder(t *testing.T) {
	e := newEnv(t)
	s := buildScene("Post", "Shadow", "Mesh")
	sched, err := e.c.Compile(s.g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Shadow", "Mesh", "Post"}, sched.Passes())
	assert.Equal(t, []int{0, 1, 2}, sched.Levels())
	assert.ElementsMatch(t, []string{"Depth", "Output"}, sched.Sinks())
	assert.ElementsMatch(t, [][2]string{{"Shadow", "Mesh"}, {"Mesh", "Post"}}, sched.Edges())
}

func TestScenarioOrphan(t *testing.T) {
	e := newEnv(t)
	for _, order := range [][]string{
		{"Shadow", "Mesh", "Post", "Orphan"},
		{"Orphan", "Post", "Shadow", "Mesh"},
		{"Post", "Orphan", "Mesh", "Shadow"},
	} {
		s := buildScene(order...)
		sched, err := e.c.Compile(s.g)
		require.NoError(t, err, "%v", order)
		assert.Equal(t, []string{"Shadow", "Mesh", "Post"}, sched.Passes(), "%v", order)
	}
}

func TestDuplicateName(t *testing.T) {
	e := newEnv(t)
	g := New()
	r := g.CreateResource(colorTex("R"), nil)
	g.AddPass("A", Graphics).Write(r, Color, nil)
	g.AddPass("B", Graphics).Read(r)
	_, err := e.c.Compile(g)
	require.NoError(t, err)

	g.AddPass("A", Compute)
	_, err = e.c.Compile(g)
	require.ErrorIs(t, err, ErrDuplicateName)
	assert.Contains(t, err.Error(), `"A"`)

	assert.True(t, g.RemovePass("A"))
	assert.False(t, g.RemovePass("A"))
	g.AddPass("A", Graphics).Write(r, Color, nil)
	_, err = e.c.Compile(g)
	assert.NoError(t, err)
}

func TestUnresolvedInput(t *testing.T) {
	e := newEnv(t)
	g := New()
	r := g.CreateResource(colorTex("Lonely"), nil)
	out := g.CreateResource(colorTex("Out"), nil)
	g.AddPass("Reader", Graphics).Read(r).Write(out, Color, nil)
	_, err := e.c.Compile(g)
	require.ErrorIs(t, err, ErrUnresolvedInput)
	assert.Contains(t, err.Error(), `"Reader"`)
	assert.Contains(t, err.Error(), `"Lonely"`)

	// External resources need no producer.
	g2 := New()
	ext := g2.CreateExternal("Swapchain", driver.BGRA8Unorm, func(int) driver.ImageView { return nil })
	out = g2.CreateResource(colorTex("Out"), nil)
	g2.AddPass("Reader", Graphics).Read(ext).Write(out, Color, nil)
	_, err = e.c.Compile(g2)
	assert.NoError(t, err)
}

func TestUndeclaredInput(t *testing.T) {
	e := newEnv(t)
	g := New()
	out := g.CreateResource(colorTex("Out"), nil)
	g.AddPass("Post", Graphics).Read(ResourceID(42)).Write(out, Color, nil)
	_, err := e.c.Compile(g)
	require.ErrorIs(t, err, ErrUnresolvedInput)
	assert.NotErrorIs(t, err, ErrBadResource)
	assert.Contains(t, err.Error(), `"Post"`)
}

func TestBadResource(t *testing.T) {
	e := newEnv(t)
	g := New()
	g.AddPass("P", Graphics).Write(ResourceID(42), Color, nil)
	_, err := e.c.Compile(g)
	assert.ErrorIs(t, err, ErrBadResource)

	g = New()
	buf := g.CreateResource(registry.Desc{Kind: registry.StorageBuf, Name: "Buf", ByteSize: 64}, nil)
	g.AddPass("P", Graphics).Write(buf, Color, nil)
	_, err = e.c.Compile(g)
	assert.ErrorIs(t, err, ErrBadResource)

	g = New()
	r := g.CreateResource(colorTex("C"), nil)
	g.AddPass("P", Compute).Write(r, Color, nil)
	_, err = e.c.Compile(g)
	assert.ErrorIs(t, err, ErrBadResource)
}

func TestCycle(t *testing.T) {
	e := newEnv(t)
	g := New()
	a := g.CreateResource(colorTex("A"), nil)
	b := g.CreateResource(colorTex("B"), nil)
	g.AddPass("P", Graphics).Read(b).Write(a, Color, nil)
	g.AddPass("Q", Graphics).Read(a).Write(b, Color, nil)
	_, err := e.c.Compile(g)
	assert.ErrorIs(t, err, ErrCycle)
}

func TestSelfEdge(t *testing.T) {
	e := newEnv(t)
	g := New()
	buf := g.CreateResource(registry.Desc{Kind: registry.StorageBuf, Name: "Particles", ByteSize: 4096}, nil)
	g.AddPass("Init", Compute).Write(buf, Storage, nil)
	g.AddPass("Simulate", Compute).Read(buf).Write(buf, Storage, nil)
	sched, err := e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Init", "Simulate"}, sched.Passes())
	assert.Empty(t, sched.Sinks())
}

func TestTieBreak(t *testing.T) {
	e := newEnv(t)
	g := New()
	names := []string{"E", "B", "D", "A", "C"}
	for _, name := range names {
		r := g.CreateResource(colorTex(name), nil)
		g.AddPass(name, Graphics).Write(r, Color, nil)
	}
	sched, err := e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, names, sched.Passes())
	assert.Equal(t, []int{0, 0, 0, 0, 0}, sched.Levels())

	// A dependency only moves the passes it constrains.
	g = New()
	x := g.CreateResource(colorTex("X"), nil)
	g.AddPass("Consumer", Graphics).Read(x).Write(g.CreateResource(colorTex("Y"), nil), Color, nil)
	g.AddPass("Independent", Graphics).Write(g.CreateResource(colorTex("Z"), nil), Color, nil)
	g.AddPass("Producer", Graphics).Write(x, Color, nil)
	sched, err = e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, []string{"Independent", "Producer", "Consumer"}, sched.Passes())
}

func TestPruneIdempotent(t *testing.T) {
	e := newEnv(t)
	s := buildScene("Orphan", "Shadow", "Mesh", "Post")
	s.g.AddPass("Orphan2", Compute)
	s1, err := e.c.Compile(s.g)
	require.NoError(t, err)
	s2, err := e.c.Compile(s.g)
	require.NoError(t, err)
	assert.Equal(t, s1.Passes(), s2.Passes())
	assert.NotContains(t, s2.Passes(), "Orphan")
	assert.NotContains(t, s2.Passes(), "Orphan2")
	assert.True(t, s1.Stale())
	assert.False(t, s2.Stale())
}

// randomDAG builds a graph where pass i may read the
// outputs of passes j < i, then shuffles the declaration
// order.
func randomDAG(rnd *rand.Rand, n int) (*Graph, map[string][]string) {
	g := New()
	type decl struct {
		name  string
		out   ResourceID
		reads []int
	}
	decls := make([]decl, n)
	deps := make(map[string][]string)
	for i := range decls {
		decls[i].name = fmt.Sprintf("P%d", i)
		decls[i].out = g.CreateResource(colorTex(fmt.Sprintf("R%d", i)), nil)
		for j := range i {
			if rnd.IntN(4) == 0 {
				decls[i].reads = append(decls[i].reads, j)
				deps[decls[i].name] = append(deps[decls[i].name], decls[j].name)
			}
		}
	}
	rnd.Shuffle(n, func(i, j int) { decls[i], decls[j] = decls[j], decls[i] })
	for _, d := range decls {
		p := g.AddPass(d.name, Graphics)
		for _, j := range d.reads {
			p.Read(ResourceID(j + 1))
		}
		p.Write(d.out, Color, nil)
	}
	return g, deps
}

func TestTopologicalOrder(t *testing.T) {
	e := newEnv(t)
	rnd := rand.New(rand.NewPCG(1, 2))
	for range 50 {
		n := 1 + rnd.IntN(24)
		g, deps := randomDAG(rnd, n)
		sched, err := e.c.Compile(g)
		require.NoError(t, err)
		order := sched.Passes()
		require.Len(t, order, n)
		pos := make(map[string]int)
		for i, name := range order {
			pos[name] = i
		}
		for consumer, producers := range deps {
			for _, p := range producers {
				assert.Less(t, pos[p], pos[consumer], "%s must precede %s", p, consumer)
			}
		}
		lv := sched.Levels()
		for _, edge := range sched.Edges() {
			assert.Less(t, lv[pos[edge[0]]], lv[pos[edge[1]]])
		}
	}
}

func TestToposort(t *testing.T) {
	for _, x := range [...]struct {
		adj   [][]int
		order []int
		ok    bool
	}{
		{[][]int{}, []int{}, true},
		{[][]int{{}, {}, {}}, []int{0, 1, 2}, true},
		{[][]int{{}, {2}, {0}}, []int{1, 2, 0}, true},
		{[][]int{{1, 2}, {2}, {}}, []int{0, 1, 2}, true},
		{[][]int{{1}, {0}}, nil, false},
		{[][]int{{1}, {2}, {1}}, nil, false},
	} {
		order, _, ok := toposort(x.adj)
		if ok != x.ok {
			t.Fatalf("toposort(%v): ok\nhave %t\nwant %t", x.adj, ok, x.ok)
		}
		if ok && !slices.Equal(order, x.order) {
			t.Fatalf("toposort(%v):\nhave %v\nwant %v", x.adj, order, x.order)
		}
	}
}

func TestDeepChain(t *testing.T) {
	e := newEnv(t)
	g := New()
	const n = 5000
	ids := make([]ResourceID, n)
	for i := range ids {
		ids[i] = g.CreateResource(registry.Desc{Kind: registry.StorageBuf, Name: fmt.Sprintf("B%d", i), ByteSize: 16}, nil)
	}
	// Declare in reverse so that the search goes deep.
	for i := n - 1; i >= 0; i-- {
		p := g.AddPass(fmt.Sprintf("P%d", i), Compute).Write(ids[i], Storage, nil)
		if i > 0 {
			p.Read(ids[i-1])
		}
	}
	sched, err := e.c.Compile(g)
	require.NoError(t, err)
	order := sched.Passes()
	require.Len(t, order, n)
	assert.Equal(t, "P0", order[0])
	assert.Equal(t, fmt.Sprintf("P%d", n-1), order[n-1])
}

func TestViews(t *testing.T) {
	e := newEnv(t)
	g := New()
	d := colorTex("Bloom")
	d.Levels = 3
	bloom := g.CreateResource(d, nil)
	mip1 := g.CreateView(bloom, 1, 0)
	out := g.CreateResource(colorTex("Out"), nil)
	g.AddPass("Blur", Graphics).Read(bloom).Write(g.CreateResource(colorTex("Tmp"), nil), Color, nil)
	g.AddPass("Down", Graphics).Write(mip1, Color, nil)
	g.AddPass("Composite", Graphics).Read(mip1).Write(out, Color, nil)
	sched, err := e.c.Compile(g)
	require.NoError(t, err)
	pos := make(map[string]int)
	for i, name := range sched.Passes() {
		pos[name] = i
	}
	// Writing a view satisfies reads of the parent too.
	assert.Less(t, pos["Down"], pos["Blur"])
	assert.Less(t, pos["Down"], pos["Composite"])

	h, ok := e.c.Handle(mip1)
	require.True(t, ok)
	ph, _ := e.c.Handle(bloom)
	assert.Equal(t, ph, h)
	v, err := e.c.View(mip1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, v.(*nulldrv.ImageView).Level)

	assert.Panics(t, func() { g.CreateView(mip1, 0, 0) })
}

func TestOnReadyResize(t *testing.T) {
	e := newEnv(t)
	g := New()
	calls := make(map[string]int)
	ready := func(name string) ReadyFunc {
		return func(h registry.Handle, reg *registry.Registry) error {
			calls[name]++
			_, err := reg.Bindless().Add(h)
			return err
		}
	}
	rel := g.CreateResource(colorTex("Relative"), ready("Relative"))
	fixed := g.CreateResource(depthTex("Fixed", false), ready("Fixed"))
	out := g.CreateResource(colorTex("Out"), nil)
	g.AddPass("A", Graphics).Write(rel, Color, nil).Write(fixed, Depth, nil)
	g.AddPass("B", Graphics).Read(rel).Read(fixed).Write(out, Color, nil)

	_, err := e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Relative": 1, "Fixed": 1}, calls)
	relH, _ := e.c.Handle(rel)
	fixedH, _ := e.c.Handle(fixed)
	outH, _ := e.c.Handle(out)

	// Recompiling without changes reallocates nothing.
	_, err = e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Relative": 1, "Fixed": 1}, calls)

	require.True(t, e.reg.SetExtent(1280, 720))
	sched, err := e.c.Compile(g)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Relative": 2, "Fixed": 1}, calls)
	relH2, _ := e.c.Handle(rel)
	fixedH2, _ := e.c.Handle(fixed)
	outH2, _ := e.c.Handle(out)
	assert.NotEqual(t, relH, relH2)
	assert.NotEqual(t, outH, outH2)
	assert.Equal(t, fixedH, fixedH2)
	assert.False(t, e.reg.Valid(relH))
	size, err := e.reg.Size(relH2)
	require.NoError(t, err)
	assert.Equal(t, 1280, size.Width)

	// Dangling entries were pruned by the compilation.
	assert.Equal(t, 2, e.reg.Relative())
	assert.Zero(t, e.reg.PruneDangling())

	// The new texture is in the bindless table.
	_, ok := e.reg.Bindless().Index(relH2)
	assert.True(t, ok)
	assert.False(t, sched.Stale())
}

func TestOnReadyError(t *testing.T) {
	e := newEnv(t)
	g := New()
	fail := true
	r := g.CreateResource(colorTex("R"), func(registry.Handle, *registry.Registry) error {
		if fail {
			return errors.New("no room")
		}
		return nil
	})
	g.AddPass("P", Graphics).Write(r, Color, nil)
	_, err := e.c.Compile(g)
	require.Error(t, err)
	_, ok := e.c.Handle(r)
	assert.False(t, ok)
	fail = false
	_, err = e.c.Compile(g)
	require.NoError(t, err)
	_, ok = e.c.Handle(r)
	assert.True(t, ok)
}

func TestResourceExhaustion(t *testing.T) {
	e := newEnv(t)
	s := buildScene("Shadow", "Mesh", "Post")
	e.gpu.FailAfter(1)
	_, err := e.c.Compile(s.g)
	assert.ErrorIs(t, err, driver.ErrNoDeviceMemory)
}

func TestCompileOtherGraph(t *testing.T) {
	e := newEnv(t)
	s1 := buildScene("Shadow", "Mesh", "Post")
	sched1, err := e.c.Compile(s1.g)
	require.NoError(t, err)
	before := e.reg.Len()
	require.NotZero(t, before)

	s2 := buildScene("Shadow")
	_, err = e.c.Compile(s2.g)
	require.NoError(t, err)
	assert.Equal(t, 1, e.reg.Len())
	assert.True(t, sched1.Stale())

	e.c.Free()
	assert.Zero(t, e.reg.Len())
	for i := range 2 {
		e.reg.BeginFrame(i)
	}
	assert.Zero(t, e.gpu.Live().Images)
	assert.Zero(t, e.gpu.Live().RenderPasses)
}
