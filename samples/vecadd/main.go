package main

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/api"
	"github.com/sarchlab/otbn/appimage"
	"github.com/sarchlab/otbn/config"
	"github.com/tebeka/atexit"
)

//go:embed vecadd.yaml
var vecAddManifest []byte

const length = 8

type callLogger struct{}

func (callLogger) Func(ctx sim.HookCtx) {
	slog.Info(ctx.Pos.Name, "item", fmt.Sprint(ctx.Item))
}

func toBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*accel.WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*accel.WordSize:], w)
	}
	return buf
}

func vecAdd(driver api.Driver, img *appimage.Image, a, b []uint32) ([]uint32, error) {
	app, err := img.App("vecadd")
	if err != nil {
		return nil, err
	}

	if err := driver.LoadApp(app); err != nil {
		return nil, err
	}

	if err := driver.WriteData(img.MustSymbol("vecadd", "a"), toBytes(a)); err != nil {
		return nil, err
	}
	if err := driver.WriteData(img.MustSymbol("vecadd", "b"), toBytes(b)); err != nil {
		return nil, err
	}

	if err := driver.Call(img.MustSymbol("vecadd", "vecadd")); err != nil {
		return nil, err
	}
	if err := driver.WaitForDone(); err != nil {
		return nil, err
	}

	buf := make([]byte, length*accel.WordSize)
	if err := driver.ReadData(buf, img.MustSymbol("vecadd", "c")); err != nil {
		return nil, err
	}

	c := make([]uint32, length)
	for i := range c {
		c[i] = binary.LittleEndian.Uint32(buf[i*accel.WordSize:])
	}

	return c, driver.ZeroDataMemory()
}

func buildDriver(img *appimage.Image) (api.Driver, error) {
	device := config.DeviceBuilder{}.
		WithFreq(1 * sim.GHz).
		WithIMemSize(1024).
		WithDMemSize(1024).
		Build("Device")

	return api.DriverBuilder{}.
		WithDevice(device).
		WithHostMemory(img).
		WithConfig(accel.Config{BaseAddr: config.DefaultBaseAddr}).
		Build("Driver")
}

func main() {
	m, err := appimage.ParseManifest(vecAddManifest)
	if err != nil {
		panic(err)
	}

	img, err := m.Link()
	if err != nil {
		panic(err)
	}

	driver, err := buildDriver(img)
	if err != nil {
		panic(err)
	}
	driver.AcceptHook(callLogger{})

	a := make([]uint32, length)
	b := make([]uint32, length)
	for i := range a {
		a[i] = uint32(rand.Intn(100))
		b[i] = uint32(rand.Intn(100))
	}

	c, err := vecAdd(driver, img, a, b)
	if err != nil {
		fmt.Println(err)
		atexit.Exit(1)
	}

	fmt.Println(a)
	fmt.Println(b)
	fmt.Println(c)

	atexit.Exit(0)
}
