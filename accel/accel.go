// Package accel defines the commonly used data structures for the big-number
// accelerator and the register-access layer that drivers talk to.
package accel

import (
	"fmt"
	"strings"
)

// WordSize is the size of one accelerator memory word in bytes.
const WordSize = 4

// Region selects one of the two private memories of the accelerator.
type Region int

const (
	IMem Region = iota
	DMem
)

// Name returns the name of the region.
func (r Region) Name() string {
	switch r {
	case IMem:
		return "IMEM"
	case DMem:
		return "DMEM"
	default:
		panic("invalid region")
	}
}

// ErrCode is the value of the error code register after an execution
// completes. Each set bit reports one fault class.
type ErrCode uint32

const (
	ErrCodeNoError     ErrCode = 0
	ErrCodeBadDataAddr ErrCode = 1 << 0
	ErrCodeBadInsnAddr ErrCode = 1 << 1
	ErrCodeCallStack   ErrCode = 1 << 2
	ErrCodeIllegalInsn ErrCode = 1 << 3
)

var errCodeNames = []struct {
	code ErrCode
	name string
}{
	{ErrCodeBadDataAddr, "BadDataAddr"},
	{ErrCodeBadInsnAddr, "BadInsnAddr"},
	{ErrCodeCallStack, "CallStack"},
	{ErrCodeIllegalInsn, "IllegalInsn"},
}

func (c ErrCode) String() string {
	if c == ErrCodeNoError {
		return "NoError"
	}

	var names []string
	rest := c
	for _, n := range errCodeNames {
		if c&n.code != 0 {
			names = append(names, n.name)
			rest &^= n.code
		}
	}

	if rest != 0 {
		names = append(names, fmt.Sprintf("%#x", uint32(rest)))
	}

	return strings.Join(names, "|")
}

// Config carries the parameters needed to bind a register-access layer to one
// accelerator instance.
type Config struct {
	// BaseAddr is the MMIO base address of the accelerator.
	BaseAddr uintptr
}

// A Device is the register-access layer of one accelerator. It performs the
// actual memory-mapped reads and writes. Offsets are local to the selected
// memory and given in bytes.
type Device interface {
	// Init binds the layer to the accelerator described by the config.
	Init(cfg Config) error

	IMemWrite(offset uint32, data []byte) error
	DMemWrite(offset uint32, data []byte) error

	// DMemRead fills buf with the data memory content starting at offset.
	DMemRead(offset uint32, buf []byte) error

	IMemSizeBytes() (uint32, error)
	DMemSizeBytes() (uint32, error)

	// IsBusy reports whether the accelerator is still executing.
	IsBusy() (bool, error)

	// ErrCode reads the error code register of the last execution.
	ErrCode() (ErrCode, error)

	// Start begins execution at the given instruction memory offset.
	Start(offset uint32) error
}
