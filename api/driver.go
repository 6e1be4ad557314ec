// Package api defines the host-side driver API for the big-number
// accelerator.
package api

import (
	"context"
	"log/slog"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
)

// State is the lifecycle state of a driver.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateLoaded
	StateRunning
)

// Name returns the name of the state.
func (s State) Name() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitialized:
		return "Initialized"
	case StateLoaded:
		return "Loaded"
	case StateRunning:
		return "Running"
	default:
		panic("invalid state")
	}
}

var (
	// HookPosAppLoaded is triggered after an application is loaded. The item
	// is the *App.
	HookPosAppLoaded = &sim.HookPos{Name: "AppLoaded"}

	// HookPosCallStart is triggered after execution starts. The item is the
	// called Ptr.
	HookPosCallStart = &sim.HookPos{Name: "CallStart"}

	// HookPosCallDone is triggered when a wait observes completion. The item
	// is the accel.ErrCode.
	HookPosCallDone = &sim.HookPos{Name: "CallDone"}
)

// Driver controls one accelerator instance. A driver has a single owner;
// calls must not be issued concurrently.
type Driver interface {
	sim.Hookable

	// Name returns the name of the driver.
	Name() string

	// State returns where the driver is in its lifecycle.
	State() State

	// App returns the loaded application, or nil.
	App() *App

	// LoadApp writes the instruction and data images of the application to
	// the accelerator and binds the application to the driver.
	LoadApp(app *App) error

	// Call starts execution at fn, which must point into the instruction
	// image of the loaded application.
	Call(fn Ptr) error

	// WaitForDone blocks until the accelerator is no longer busy and
	// classifies the outcome of the execution.
	WaitForDone() error

	// WaitForDoneContext is WaitForDone that gives up when ctx is done.
	WaitForDoneContext(ctx context.Context) error

	// PollDone checks the busy status once. When the accelerator is idle it
	// returns done and the outcome of the execution.
	PollDone() (done bool, err error)

	// WriteData copies src into the data memory at dest.
	WriteData(dest Ptr, src []byte) error

	// ReadData fills dst from the data memory at src.
	ReadData(dst []byte, src Ptr) error

	// ZeroDataMemory overwrites the whole data memory with zeros, continuing
	// past failed writes.
	ZeroDataMemory() error
}

type driverImpl struct {
	sim.HookableBase

	name string
	dev  accel.Device
	host HostMemory

	app         *App
	appIsLoaded bool

	running bool
	callID  xid.ID
}

func (d *driverImpl) init(dev accel.Device, cfg accel.Config) error {
	if d == nil || dev == nil {
		return fail(ResultBadArg, "init: nil driver or device")
	}

	d.app = nil
	d.appIsLoaded = false
	d.running = false
	d.dev = dev

	if err := dev.Init(cfg); err != nil {
		return fail(ResultError, "init: %w", err)
	}

	return nil
}

// Name returns the name of the driver.
func (d *driverImpl) Name() string {
	return d.name
}

// App returns the loaded application.
func (d *driverImpl) App() *App {
	if !d.appIsLoaded {
		return nil
	}

	return d.app
}

// State returns the lifecycle state.
func (d *driverImpl) State() State {
	switch {
	case d.dev == nil:
		return StateUninitialized
	case d.running:
		return StateRunning
	case d.app != nil && d.appIsLoaded:
		return StateLoaded
	default:
		return StateInitialized
	}
}

// translate converts a CPU-space pointer into an offset in the given memory
// of the bound application. The end address of the region is accepted.
func (d *driverImpl) translate(ptr Ptr, region accel.Region) (uint32, error) {
	if ptr == 0 || d == nil || d.app == nil {
		return 0, fail(ResultBadArg, "translate: null pointer or no app")
	}

	start, end := d.app.bounds(region)
	if ptr < start || ptr > end {
		return 0, fail(ResultBadArg, "translate: %#x outside %s [%#x, %#x]",
			uint64(ptr), region.Name(), uint64(start), uint64(end))
	}

	return uint32(ptr - start), nil
}

func (d *driverImpl) readImage(start Ptr, size uint64) ([]byte, error) {
	data, err := d.host.Read(start, size)
	if err != nil {
		return nil, fail(ResultBadArg, "read image at %#x: %w",
			uint64(start), err)
	}

	if uint64(len(data)) != size {
		return nil, fail(ResultBadArg, "read image at %#x: got %d bytes, want %d",
			uint64(start), len(data), size)
	}

	return data, nil
}

// LoadApp loads the application. The binding to the driver changes only when
// both images are written. A failed write leaves the driver without an
// application since the memories have been partially overwritten.
func (d *driverImpl) LoadApp(app *App) error {
	if d == nil || app == nil || d.host == nil {
		return fail(ResultBadArg, "load app: nil driver, app or host memory")
	}

	if err := app.Validate(); err != nil {
		return err
	}

	imem, err := d.readImage(app.IMemStart, app.IMemSize())
	if err != nil {
		return err
	}

	var dmem []byte
	if app.DMemSize() > 0 {
		dmem, err = d.readImage(app.DMemStart, app.DMemSize())
		if err != nil {
			return err
		}
	}

	d.app = nil
	d.appIsLoaded = false
	d.running = false

	if err := d.dev.IMemWrite(0, imem); err != nil {
		return fail(ResultError, "load app %s: imem write: %w", app.Name, err)
	}

	if len(dmem) > 0 {
		if err := d.dev.DMemWrite(0, dmem); err != nil {
			return fail(ResultError, "load app %s: dmem write: %w", app.Name, err)
		}
	}

	d.app = app
	d.appIsLoaded = true

	slog.Debug("app loaded",
		"driver", d.name,
		"app", app.Name,
		"imem_bytes", len(imem),
		"dmem_bytes", len(dmem),
	)
	d.InvokeHook(sim.HookCtx{Domain: d, Pos: HookPosAppLoaded, Item: app})

	return nil
}

// Call starts the function at fn.
func (d *driverImpl) Call(fn Ptr) error {
	if d == nil || d.app == nil {
		return fail(ResultBadArg, "call: no app bound")
	}

	if !d.appIsLoaded {
		return fail(ResultAppNotLoaded, "call: app %s not loaded", d.app.Name)
	}

	offset, err := d.translate(fn, accel.IMem)
	if err != nil {
		return err
	}

	if err := d.dev.Start(offset); err != nil {
		return fail(ResultError, "call %#x: start: %w", uint64(fn), err)
	}

	d.running = true
	d.callID = xid.New()

	slog.Debug("call started",
		"driver", d.name,
		"call", d.callID.String(),
		"app", d.app.Name,
		"offset", offset,
	)
	d.InvokeHook(sim.HookCtx{Domain: d, Pos: HookPosCallStart, Item: fn})

	return nil
}

// PollDone queries the busy status once.
func (d *driverImpl) PollDone() (done bool, err error) {
	if d == nil {
		return false, fail(ResultBadArg, "poll: nil driver")
	}

	busy, err := d.dev.IsBusy()
	if err != nil {
		return false, fail(ResultError, "poll: busy status: %w", err)
	}

	if busy {
		return false, nil
	}

	code, err := d.dev.ErrCode()
	if err != nil {
		return false, fail(ResultError, "poll: error code: %w", err)
	}

	d.running = false

	slog.Debug("call done",
		"driver", d.name,
		"call", d.callID.String(),
		"err_code", code.String(),
	)
	d.InvokeHook(sim.HookCtx{Domain: d, Pos: HookPosCallDone, Item: code})

	if code != accel.ErrCodeNoError {
		return true, fail(ResultExecutionFailed, "error code %s", code)
	}

	return true, nil
}

// WaitForDone busy-waits without a deadline.
func (d *driverImpl) WaitForDone() error {
	return d.WaitForDoneContext(context.Background())
}

// WaitForDoneContext busy-waits until the accelerator is idle or ctx is done.
func (d *driverImpl) WaitForDoneContext(ctx context.Context) error {
	if d == nil {
		return fail(ResultBadArg, "wait: nil driver")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for {
		if err := ctx.Err(); err != nil {
			return fail(ResultError, "wait: %w", err)
		}

		done, err := d.PollDone()
		if err != nil || done {
			return err
		}
	}
}

// WriteData copies src into the data memory at dest. A nil src is an empty
// write.
func (d *driverImpl) WriteData(dest Ptr, src []byte) error {
	if d == nil || dest == 0 {
		return fail(ResultBadArg, "write data: nil driver or pointer")
	}

	offset, err := d.translate(dest, accel.DMem)
	if err != nil {
		return err
	}

	if err := d.dev.DMemWrite(offset, src); err != nil {
		return fail(ResultError, "write data at %#x: %w", offset, err)
	}

	return nil
}

// ReadData fills dst from the data memory at src.
func (d *driverImpl) ReadData(dst []byte, src Ptr) error {
	if d == nil || dst == nil || src == 0 {
		return fail(ResultBadArg, "read data: nil driver, pointer or buffer")
	}

	offset, err := d.translate(src, accel.DMem)
	if err != nil {
		return err
	}

	if err := d.dev.DMemRead(offset, dst); err != nil {
		return fail(ResultError, "read data at %#x: %w", offset, err)
	}

	return nil
}

// ZeroDataMemory clears the whole physical data memory, whatever application
// is loaded.
func (d *driverImpl) ZeroDataMemory() error {
	if d == nil {
		return fail(ResultBadArg, "zero dmem: nil driver")
	}

	size, err := d.dev.DMemSizeBytes()
	if err != nil {
		return fail(ResultError, "zero dmem: size: %w", err)
	}

	zero := make([]byte, accel.WordSize)
	failed := 0
	for i := uint32(0); i < size/accel.WordSize; i++ {
		// Keep going so that as much memory as possible is cleared.
		if err := d.dev.DMemWrite(i*accel.WordSize, zero); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fail(ResultError, "zero dmem: %d word writes failed", failed)
	}

	return nil
}
