// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the set of interfaces through
// which the frame graph talks to a GPU.
// Only what the frame graph needs is defined here:
// physical resource creation, pipelines, descriptor
// heaps and command recording with barriers.
package driver

import (
	"errors"
	"strings"
	"sync"

	"github.com/gviegas/fgraph/internal/logx"
)

// Driver is the interface that provides methods for
// loading and unloading an underlying implementation.
type Driver interface {
	// Open initializes the driver.
	// If it succeeds, further calls with the same receiver
	// have no effect and must return the same GPU instance.
	// Callers should assume that Open is not safe for
	// parallel execution.
	Open() (GPU, error)

	// Name returns the name of the driver.
	// It must not cause the driver to be opened.
	Name() string

	// Close deinitializes the driver.
	// Closing a driver that is not open has no effect.
	Close()
}

// ErrNotInstalled means that a platform-specific library
// required for the driver to work is not present in the
// system.
var ErrNotInstalled = errors.New("driver: missing required library")

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoHostMemory means that host memory could not be
// allocated.
var ErrNoHostMemory = errors.New("driver: out of host memory")

// ErrNoDeviceMemory means that device memory could not
// be allocated.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrFatal means that the driver is in an unrecoverable
// state. Upon encountering such an error, the application
// must destroy everything that it created using the
// driver's GPU and then call the Close method.
var ErrFatal = errors.New("driver: fatal error")

// ErrNoDriver means that Load could not find a driver.
var ErrNoDriver = errors.New("driver: driver not found")

// Drivers returns the registered Drivers.
func Drivers() []Driver {
	mu.Lock()
	defer mu.Unlock()
	drv := make([]Driver, len(drivers))
	copy(drv, drivers)
	return drv
}

// Register registers a Driver.
// Driver implementations are expected to call Register
// exactly once, from an init function.
// If a driver with the same name has already been
// registered, it will be replaced by drv.
func Register(drv Driver) {
	mu.Lock()
	defer mu.Unlock()
	for i := range drivers {
		if drivers[i].Name() == drv.Name() {
			drivers[i] = drv
			logx.L().Warn("driver replaced", "name", drv.Name())
			return
		}
	}
	drivers = append(drivers, drv)
	logx.L().Info("driver registered", "name", drv.Name())
}

// Load opens the first registered driver whose name
// contains name. The comparison is case insensitive.
// If name is the empty string, every registered driver
// is considered.
func Load(name string) (Driver, GPU, error) {
	err := ErrNoDriver
	name = strings.ToLower(name)
	for _, d := range Drivers() {
		if !strings.Contains(strings.ToLower(d.Name()), name) {
			continue
		}
		var gpu GPU
		if gpu, err = d.Open(); err != nil {
			continue
		}
		return d, gpu, nil
	}
	return nil, nil, err
}

// Variables used for driver registration.
var (
	mu      sync.Mutex
	drivers = make([]Driver, 0, 1)
)
