// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"fmt"
	"log"

	"github.com/gviegas/fgraph/driver"
)

// Example_dispatch records compute work that writes to
// a storage image and commits it.
func Example_dispatch() {
	dim := driver.Dim3D{Width: 80, Height: 90}
	pfmt := driver.RGBA8Unorm

	// Create the storage image/view (write-only).
	storage, err := gpu.NewImage(pfmt, dim, 1, 1, 1, driver.UCopySrc|driver.UShaderWrite)
	if err != nil {
		log.Fatal(err)
	}
	defer storage.Destroy()
	sview, err := storage.NewView(driver.IView2D, 0, 1, 0, 1)
	if err != nil {
		log.Fatal(err)
	}
	defer sview.Destroy()

	// Create the descriptor heap/table that will
	// contain the storage view.
	dheap, err := gpu.NewDescHeap([]driver.Descriptor{
		{
			Type:   driver.DImage,
			Stages: driver.SCompute,
			Nr:     0,
			Len:    1,
		},
	})
	if err != nil {
		log.Fatal(err)
	}
	defer dheap.Destroy()
	dtab, err := gpu.NewDescTable([]driver.DescHeap{dheap})
	if err != nil {
		log.Fatal(err)
	}
	defer dtab.Destroy()
	if err := dheap.New(1); err != nil {
		log.Fatal(err)
	}
	dheap.SetImage(0, 0, 0, []driver.ImageView{sview})

	// Create the compute pipeline.
	code, err := gpu.NewShaderCode([]byte("checker"))
	if err != nil {
		log.Fatal(err)
	}
	defer code.Destroy()
	pl, err := gpu.NewPipeline(&driver.CompState{
		Func: driver.ShaderFunc{Code: code, Name: "main"},
		Desc: dtab,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer pl.Destroy()

	// Record and commit.
	cb, err := gpu.NewCmdBuffer()
	if err != nil {
		log.Fatal(err)
	}
	defer cb.Destroy()
	if err := cb.Begin(); err != nil {
		log.Fatal(err)
	}
	cb.Transition([]driver.Transition{{
		Barrier: driver.Barrier{
			SyncBefore:   driver.SNone,
			SyncAfter:    driver.SComputeShading,
			AccessBefore: driver.ANone,
			AccessAfter:  driver.AShaderWrite,
		},
		LayoutBefore: driver.LUndefined,
		LayoutAfter:  driver.LCommon,
		IView:        sview,
	}})
	cb.BeginWork(false)
	cb.SetPipeline(pl)
	cb.SetDescTableComp(dtab, 0, []int{0})
	cb.Dispatch(8, 9, 1)
	cb.EndWork()
	if err := cb.End(); err != nil {
		log.Fatal(err)
	}
	ch := make(chan error)
	if err := gpu.Commit([]driver.CmdBuffer{cb}, ch); err != nil {
		log.Fatal(err)
	}
	fmt.Println(<-ch)
	// Output: <nil>
}
