// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver_test

import (
	"errors"
	"testing"

	"github.com/gviegas/fgraph/driver"
)

func TestDrivers(t *testing.T) {
	drivers := driver.Drivers()
	for i := range drivers {
		name := drivers[i].Name()
		for j := range i {
			if name == drivers[j].Name() {
				t.Error("driver.Drivers: Driver.Name is not unique")
			}
		}
	}
	drivers2 := driver.Drivers()
	if len(drivers) != len(drivers2) {
		t.Error("driver.Drivers: length mismatch")
	} else {
		for i := range drivers {
			if drivers[i].Name() != drivers2[i].Name() {
				t.Error("driver.Drivers: Driver.Name mismatch")
			}
		}
	}
}

func TestDriverName(t *testing.T) {
	name := drv.Name()
	if name == "" {
		t.Error("Driver.Name: name is empty")
	}
	drv.Close()
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Close")
	}
	g, err := drv.Open()
	if err != nil {
		t.Fatal("Failed to re-Open drv - cannot continue")
	}
	if drv.Name() != name {
		t.Error("Driver.Name: unexpected name after call to Open")
	}
	gpu = g
}

func TestLoad(t *testing.T) {
	d, g, err := driver.Load("NULL")
	if err != nil {
		t.Fatalf("driver.Load: unexpected error: %v", err)
	}
	if d.Name() != "null" {
		t.Fatalf("driver.Load: Driver.Name\nhave %s\nwant null", d.Name())
	}
	if g == nil {
		t.Fatal("driver.Load: nil GPU")
	}
	if _, _, err := driver.Load("no such driver"); !errors.Is(err, driver.ErrNoDriver) {
		t.Fatalf("driver.Load: error\nhave %v\nwant %v", err, driver.ErrNoDriver)
	}
}
