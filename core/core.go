package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
)

// ErrBusy is returned when the memories or the start command are accessed
// while the core executes.
var ErrBusy = errors.New("core is busy")

// Core is a simulated big-number accelerator core with private instruction
// and data memories. It executes one instruction per cycle.
type Core struct {
	*sim.TickingComponent

	state coreState
	emu   instEmulator

	// budget is the number of cycles the core may still run before it stops
	// ticking.
	budget uint64
}

// IMemSize returns the capacity of the instruction memory in bytes.
func (c *Core) IMemSize() uint32 {
	return c.state.IMemSize
}

// DMemSize returns the capacity of the data memory in bytes.
func (c *Core) DMemSize() uint32 {
	return c.state.DMemSize
}

// IsBusy reports whether the core is executing.
func (c *Core) IsBusy() bool {
	return c.state.Running
}

// ErrCode returns the error code latched by the last execution.
func (c *Core) ErrCode() accel.ErrCode {
	return c.state.ErrCode
}

// NumInsts returns the number of instructions the last execution retired.
func (c *Core) NumInsts() uint64 {
	return c.state.NumInsts
}

// Registers returns a copy of the register file.
func (c *Core) Registers() []uint32 {
	regs := make([]uint32, len(c.state.Registers))
	copy(regs, c.state.Registers)

	return regs
}

func checkRange(region accel.Region, offset uint32, n int, size uint32) error {
	if uint64(offset)+uint64(n) > uint64(size) {
		return fmt.Errorf("%s access [%#x, %#x) beyond %#x bytes",
			region.Name(), offset, uint64(offset)+uint64(n), size)
	}

	return nil
}

// WriteIMem writes data to the instruction memory.
func (c *Core) WriteIMem(offset uint32, data []byte) error {
	if c.state.Running {
		return ErrBusy
	}

	if err := checkRange(accel.IMem, offset, len(data), c.state.IMemSize); err != nil {
		return err
	}

	return c.state.IMem.Write(uint64(offset), data)
}

// WriteDMem writes data to the data memory.
func (c *Core) WriteDMem(offset uint32, data []byte) error {
	if c.state.Running {
		return ErrBusy
	}

	if err := checkRange(accel.DMem, offset, len(data), c.state.DMemSize); err != nil {
		return err
	}

	Trace("Memory",
		"Behavior", "WriteDMem",
		"Core", c.Name(),
		"Addr", offset,
		"Bytes", len(data),
	)

	return c.state.DMem.Write(uint64(offset), data)
}

// ReadDMem reads n bytes from the data memory.
func (c *Core) ReadDMem(offset uint32, n int) ([]byte, error) {
	if c.state.Running {
		return nil, ErrBusy
	}

	if err := checkRange(accel.DMem, offset, n, c.state.DMemSize); err != nil {
		return nil, err
	}

	return c.state.DMem.Read(uint64(offset), uint64(n))
}

// Start begins execution at pc. The core ticks until it executes ECALL or
// faults, unless RunFor limits it.
func (c *Core) Start(pc uint32) error {
	if c.state.Running {
		return ErrBusy
	}

	c.state.reset(pc)
	c.budget = math.MaxUint64
	c.TickLater()

	Trace("Core",
		"Behavior", "Start",
		"Core", c.Name(),
		"PC", pc,
	)

	return nil
}

// RunFor lets a running core execute at most cycles more instructions. The
// core pauses when the budget is used up and resumes on the next RunFor.
func (c *Core) RunFor(cycles uint64) {
	c.budget = cycles
	if c.state.Running && cycles > 0 {
		c.TickLater()
	}
}

// Tick runs one instruction.
func (c *Core) Tick() (madeProgress bool) {
	if !c.state.Running || c.budget == 0 {
		return false
	}

	pc := c.state.PC
	c.emu.RunInst(&c.state)
	c.budget--

	Trace("Inst",
		"Core", c.Name(),
		"Time", float64(c.Engine.CurrentTime()*1e9),
		"PC", pc,
	)

	if !c.state.Running {
		Trace("Core",
			"Behavior", "Done",
			"Core", c.Name(),
			"PC", c.state.PC,
			"ErrCode", c.state.ErrCode.String(),
			"NumInsts", c.state.NumInsts,
		)
	}

	return true
}
