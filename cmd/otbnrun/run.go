package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/api"
	"github.com/sarchlab/otbn/appimage"
	"github.com/sarchlab/otbn/config"
)

type options struct {
	manifest string
	app      string
	fn       string
	inputs   []string
	outputs  []string
	scrub    bool
	imemSize uint32
	dmemSize uint32
	trace    bool
	styled   bool
}

type input struct {
	label string
	words []uint32
}

type output struct {
	label  string
	nwords int
}

func parseInput(s string) (input, error) {
	label, list, ok := strings.Cut(s, "=")
	if !ok || label == "" || list == "" {
		return input{}, fmt.Errorf("input %q: want label=w0,w1,...", s)
	}

	in := input{label: label}
	for _, tok := range strings.Split(list, ",") {
		w, err := strconv.ParseUint(strings.TrimSpace(tok), 0, 32)
		if err != nil {
			return input{}, fmt.Errorf("input %q: %w", s, err)
		}
		in.words = append(in.words, uint32(w))
	}

	return in, nil
}

func parseOutput(s string) (output, error) {
	label, count, ok := strings.Cut(s, ":")
	if !ok || label == "" {
		return output{}, fmt.Errorf("output %q: want label:nwords", s)
	}

	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return output{}, fmt.Errorf("output %q: invalid word count", s)
	}

	return output{label: label, nwords: n}, nil
}

func wordsToBytes(words []uint32) []byte {
	buf := make([]byte, len(words)*accel.WordSize)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[i*accel.WordSize:], w)
	}

	return buf
}

func run(w io.Writer, opts options) error {
	m, err := appimage.LoadManifest(opts.manifest)
	if err != nil {
		return err
	}

	img, err := m.Link()
	if err != nil {
		return err
	}

	return runImage(w, img, opts)
}

func runImage(w io.Writer, img *appimage.Image, opts options) error {
	app, err := img.App(opts.app)
	if err != nil {
		return err
	}

	fn, err := img.Symbol(opts.app, opts.fn)
	if err != nil {
		return err
	}

	var ins []input
	for _, s := range opts.inputs {
		in, err := parseInput(s)
		if err != nil {
			return err
		}
		ins = append(ins, in)
	}

	var outs []output
	for _, s := range opts.outputs {
		out, err := parseOutput(s)
		if err != nil {
			return err
		}
		outs = append(outs, out)
	}

	if opts.imemSize%accel.WordSize != 0 || opts.dmemSize%accel.WordSize != 0 {
		return fmt.Errorf("memory sizes must be multiples of %d bytes", accel.WordSize)
	}

	device := config.DeviceBuilder{}.
		WithIMemSize(opts.imemSize).
		WithDMemSize(opts.dmemSize).
		Build("Device")

	driver, err := api.DriverBuilder{}.
		WithDevice(device).
		WithHostMemory(img).
		WithConfig(accel.Config{BaseAddr: config.DefaultBaseAddr}).
		Build("Driver")
	if err != nil {
		return err
	}

	if err := driver.LoadApp(app); err != nil {
		return err
	}

	for _, in := range ins {
		ptr, err := img.Symbol(opts.app, in.label)
		if err != nil {
			return err
		}

		if err := driver.WriteData(ptr, wordsToBytes(in.words)); err != nil {
			return fmt.Errorf("write %s: %w", in.label, err)
		}
	}

	if err := driver.Call(fn); err != nil {
		return err
	}

	if err := driver.WaitForDone(); err != nil {
		if api.ResultOf(err) == api.ResultExecutionFailed {
			device.Core().DumpState(w)
		}
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	if opts.styled {
		t.SetStyle(table.StyleLight)
	}
	t.SetTitle(fmt.Sprintf("%s.%s", opts.app, opts.fn))
	t.AppendHeader(table.Row{"Label", "Offset", "Value"})

	for _, out := range outs {
		ptr, err := img.Symbol(opts.app, out.label)
		if err != nil {
			return err
		}

		buf := make([]byte, out.nwords*accel.WordSize)
		if err := driver.ReadData(buf, ptr); err != nil {
			return fmt.Errorf("read %s: %w", out.label, err)
		}

		for i := 0; i < out.nwords; i++ {
			t.AppendRow(table.Row{out.label, i * accel.WordSize,
				binary.LittleEndian.Uint32(buf[i*accel.WordSize:])})
		}
	}

	t.Render()

	if opts.scrub {
		if err := driver.ZeroDataMemory(); err != nil {
			return err
		}
	}

	return nil
}
