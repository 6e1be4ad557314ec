package config

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/core"
)

var errNotInitialized = errors.New("device not initialized")

var _ accel.Device = (*Device)(nil)

// Device is the register-access layer of a simulated accelerator. Polling the
// busy status advances the simulation.
type Device struct {
	name       string
	engine     sim.Engine
	core       *core.Core
	pollCycles uint64

	cfg         accel.Config
	initialized bool
}

// Name returns the name of the device.
func (d *Device) Name() string {
	return d.name
}

// Core returns the simulated core behind the registers.
func (d *Device) Core() *core.Core {
	return d.core
}

// Config returns the configuration the device was initialized with.
func (d *Device) Config() accel.Config {
	return d.cfg
}

// Init binds the device to the accelerator at the configured base address.
func (d *Device) Init(cfg accel.Config) error {
	if cfg.BaseAddr == 0 {
		return errors.New("base address must not be zero")
	}

	d.cfg = cfg
	d.initialized = true

	core.Trace("Device",
		"Behavior", "Init",
		"Device", d.name,
		"BaseAddr", fmt.Sprintf("%#x", cfg.BaseAddr),
	)

	return nil
}

func (d *Device) checkAccess(region accel.Region, offset uint32, n int) error {
	if !d.initialized {
		return errNotInitialized
	}

	if offset%accel.WordSize != 0 || n%accel.WordSize != 0 {
		return fmt.Errorf("%s access at %#x of %d bytes is not word aligned",
			region.Name(), offset, n)
	}

	return nil
}

// IMemWrite writes data to the instruction memory.
func (d *Device) IMemWrite(offset uint32, data []byte) error {
	if err := d.checkAccess(accel.IMem, offset, len(data)); err != nil {
		return err
	}

	return d.core.WriteIMem(offset, data)
}

// DMemWrite writes data to the data memory.
func (d *Device) DMemWrite(offset uint32, data []byte) error {
	if err := d.checkAccess(accel.DMem, offset, len(data)); err != nil {
		return err
	}

	return d.core.WriteDMem(offset, data)
}

// DMemRead fills buf from the data memory.
func (d *Device) DMemRead(offset uint32, buf []byte) error {
	if err := d.checkAccess(accel.DMem, offset, len(buf)); err != nil {
		return err
	}

	data, err := d.core.ReadDMem(offset, len(buf))
	if err != nil {
		return err
	}

	copy(buf, data)

	return nil
}

// IMemSizeBytes returns the instruction memory capacity.
func (d *Device) IMemSizeBytes() (uint32, error) {
	if !d.initialized {
		return 0, errNotInitialized
	}

	return d.core.IMemSize(), nil
}

// DMemSizeBytes returns the data memory capacity.
func (d *Device) DMemSizeBytes() (uint32, error) {
	if !d.initialized {
		return 0, errNotInitialized
	}

	return d.core.DMemSize(), nil
}

// IsBusy advances the simulation by at most the poll budget of cycles and
// then reports the status.
func (d *Device) IsBusy() (bool, error) {
	if !d.initialized {
		return false, errNotInitialized
	}

	if d.core.IsBusy() {
		d.core.RunFor(d.pollCycles)
		if err := d.engine.Run(); err != nil {
			return true, err
		}
	}

	return d.core.IsBusy(), nil
}

// ErrCode reads the error code of the last execution.
func (d *Device) ErrCode() (accel.ErrCode, error) {
	if !d.initialized {
		return 0, errNotInitialized
	}

	return d.core.ErrCode(), nil
}

// Start begins execution at the given instruction memory offset.
func (d *Device) Start(offset uint32) error {
	if err := d.checkAccess(accel.IMem, offset, 0); err != nil {
		return err
	}

	if offset >= d.core.IMemSize() {
		return fmt.Errorf("start address %#x beyond IMEM", offset)
	}

	return d.core.Start(offset)
}
