package api

import (
	"fmt"
	"math"

	"github.com/sarchlab/otbn/accel"
)

// Ptr is an address in the CPU address space. It usually names a function or
// a data label inside an application image and must be translated before the
// accelerator can use it. The zero Ptr is null.
type Ptr uint64

// HostMemory gives read access to the CPU address space that application
// images are stored in.
type HostMemory interface {
	Read(addr Ptr, n uint64) ([]byte, error)
}

// App describes one application image as four CPU-space addresses. The
// descriptor is owned by whoever produced it and must stay valid while a
// driver has it loaded.
type App struct {
	Name string

	IMemStart, IMemEnd Ptr
	DMemStart, DMemEnd Ptr
}

func (a *App) String() string {
	return fmt.Sprintf("App(%s imem=[%#x,%#x] dmem=[%#x,%#x])",
		a.Name, a.IMemStart, a.IMemEnd, a.DMemStart, a.DMemEnd)
}

// IMemSize returns the size of the instruction image in bytes.
func (a *App) IMemSize() uint64 {
	return uint64(a.IMemEnd - a.IMemStart)
}

// DMemSize returns the size of the data image in bytes.
func (a *App) DMemSize() uint64 {
	return uint64(a.DMemEnd - a.DMemStart)
}

// Validate checks the layout invariants of the image.
func (a *App) Validate() error {
	if a == nil {
		return fail(ResultBadArg, "nil app")
	}

	if a.IMemEnd <= a.IMemStart || a.DMemEnd < a.DMemStart {
		return fail(ResultBadArg, "bad layout %s", a)
	}

	if a.IMemSize()%accel.WordSize != 0 || a.DMemSize()%accel.WordSize != 0 {
		return fail(ResultBadArg, "image size not word aligned %s", a)
	}

	if a.IMemSize() > math.MaxUint32 || a.DMemSize() > math.MaxUint32 {
		return fail(ResultBadArg, "image too large %s", a)
	}

	return nil
}

func (a *App) bounds(region accel.Region) (start, end Ptr) {
	switch region {
	case accel.IMem:
		return a.IMemStart, a.IMemEnd
	case accel.DMem:
		return a.DMemStart, a.DMemEnd
	default:
		panic("invalid region")
	}
}
