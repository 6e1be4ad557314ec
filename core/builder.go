package core

import (
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
)

// Builder can create new cores.
type Builder struct {
	engine   sim.Engine
	freq     sim.Freq
	imemSize uint32
	dmemSize uint32
}

// NewBuilder creates a builder with 4 KiB of instruction and data memory.
func NewBuilder() Builder {
	return Builder{
		freq:     1 * sim.GHz,
		imemSize: 4 << 10,
		dmemSize: 4 << 10,
	}
}

// WithEngine sets the engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the core.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithIMemSize sets the instruction memory capacity in bytes.
func (b Builder) WithIMemSize(size uint32) Builder {
	if size == 0 || size%accel.WordSize != 0 {
		panic("instruction memory size must be a positive number of words")
	}
	b.imemSize = size
	return b
}

// WithDMemSize sets the data memory capacity in bytes.
func (b Builder) WithDMemSize(size uint32) Builder {
	if size == 0 || size%accel.WordSize != 0 {
		panic("data memory size must be a positive number of words")
	}
	b.dmemSize = size
	return b
}

// Build creates a core.
func (b Builder) Build(name string) *Core {
	c := &Core{}

	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.state = coreState{
		Registers: make([]uint32, numRegs),
		CallStack: make([]uint32, 0, callStackSize),
		IMem:      mem.NewStorage(uint64(b.imemSize)),
		DMem:      mem.NewStorage(uint64(b.dmemSize)),
		IMemSize:  b.imemSize,
		DMemSize:  b.dmemSize,
	}

	return c
}
