// Package config provides a default configuration for the simulated
// accelerator device.
package config

import (
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/core"
)

// DefaultBaseAddr is the MMIO base address of the accelerator on the
// reference platform.
const DefaultBaseAddr uintptr = 0x4113_0000

// DefaultPollCycles is the number of cycles simulated per busy-status read.
const DefaultPollCycles = 1024

// DeviceBuilder can build simulated accelerator devices.
type DeviceBuilder struct {
	engine     sim.Engine
	freq       sim.Freq
	imemSize   uint32
	dmemSize   uint32
	pollCycles uint64
}

// WithEngine sets the engine that drives the device simulation.
func (d DeviceBuilder) WithEngine(engine sim.Engine) DeviceBuilder {
	d.engine = engine
	return d
}

// WithFreq sets the frequency of the device.
func (d DeviceBuilder) WithFreq(freq sim.Freq) DeviceBuilder {
	d.freq = freq
	return d
}

// WithIMemSize sets the instruction memory capacity in bytes.
func (d DeviceBuilder) WithIMemSize(size uint32) DeviceBuilder {
	d.imemSize = size
	return d
}

// WithDMemSize sets the data memory capacity in bytes.
func (d DeviceBuilder) WithDMemSize(size uint32) DeviceBuilder {
	d.dmemSize = size
	return d
}

// WithPollCycles sets how many cycles each busy-status read simulates.
func (d DeviceBuilder) WithPollCycles(cycles uint64) DeviceBuilder {
	if cycles == 0 {
		panic("poll cycles must be positive")
	}
	d.pollCycles = cycles
	return d
}

// Build creates a device. Without an engine the device gets its own serial
// engine.
func (d DeviceBuilder) Build(name string) *Device {
	engine := d.engine
	if engine == nil {
		engine = sim.NewSerialEngine()
	}

	cb := core.NewBuilder().WithEngine(engine)
	if d.freq != 0 {
		cb = cb.WithFreq(d.freq)
	}
	if d.imemSize != 0 {
		cb = cb.WithIMemSize(d.imemSize)
	}
	if d.dmemSize != 0 {
		cb = cb.WithDMemSize(d.dmemSize)
	}

	pollCycles := d.pollCycles
	if pollCycles == 0 {
		pollCycles = DefaultPollCycles
	}

	return &Device{
		name:       name,
		engine:     engine,
		core:       cb.Build(name + ".Core"),
		pollCycles: pollCycles,
	}
}
