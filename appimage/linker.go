package appimage

import (
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/otbn/accel"
	"github.com/sarchlab/otbn/api"
	"github.com/sarchlab/otbn/core"
)

// DataSection is a labeled block of initial data memory content.
type DataSection struct {
	Label string   `yaml:"label"`
	Words []uint32 `yaml:"words"`

	// Zero appends this many zero words after Words.
	Zero int `yaml:"zero"`
}

func (s DataSection) numWords() int {
	return len(s.Words) + s.Zero
}

type linkInput struct {
	name string
	prog core.Program
	data []DataSection
}

// Linker collects applications and places them in one host image. The zero
// value is ready to use and links at DefaultBase.
type Linker struct {
	base   api.Ptr
	inputs []linkInput
}

// NewLinker creates a linker that places the image at base.
func NewLinker(base api.Ptr) *Linker {
	return &Linker{base: base}
}

// AddApp adds an application from an assembled program and its data.
func (l *Linker) AddApp(name string, prog core.Program, data []DataSection) error {
	if name == "" {
		return fmt.Errorf("application without a name")
	}

	for _, in := range l.inputs {
		if in.name == name {
			return fmt.Errorf("duplicate application %q", name)
		}
	}

	if len(prog.Words) == 0 {
		return fmt.Errorf("application %q has no instructions", name)
	}

	for _, s := range data {
		if s.Zero < 0 {
			return fmt.Errorf("application %q: section %q has negative size",
				name, s.Label)
		}
	}

	l.inputs = append(l.inputs, linkInput{name: name, prog: prog, data: data})

	return nil
}

// AddSource assembles src and adds the resulting application.
func (l *Linker) AddSource(name, src string, data []DataSection) error {
	prog, err := core.Assemble(src)
	if err != nil {
		return fmt.Errorf("application %q: %w", name, err)
	}

	return l.AddApp(name, prog, data)
}

// Link lays out every application as its instruction image followed by its
// data image.
func (l *Linker) Link() (*Image, error) {
	base := l.base
	if base == 0 {
		base = DefaultBase
	}

	img := &Image{
		base:    base,
		apps:    make(map[string]*api.App),
		symbols: make(map[string]map[string]api.Ptr),
	}

	for _, in := range l.inputs {
		if err := img.place(in); err != nil {
			return nil, err
		}
	}

	return img, nil
}

func (img *Image) place(in linkInput) error {
	syms := make(map[string]api.Ptr)
	app := &api.App{Name: in.name}

	app.IMemStart = img.End()
	for label, offset := range in.prog.Labels {
		syms[label] = app.IMemStart + api.Ptr(offset)
	}
	img.data = append(img.data, in.prog.Bytes()...)
	app.IMemEnd = img.End()

	app.DMemStart = img.End()
	for _, s := range in.data {
		if s.Label != "" {
			if _, dup := syms[s.Label]; dup {
				return fmt.Errorf("application %q: duplicate symbol %q",
					in.name, s.Label)
			}
			syms[s.Label] = img.End()
		}

		words := make([]byte, s.numWords()*accel.WordSize)
		for i, w := range s.Words {
			binary.LittleEndian.PutUint32(words[i*accel.WordSize:], w)
		}
		img.data = append(img.data, words...)
	}
	app.DMemEnd = img.End()

	img.apps[in.name] = app
	img.symbols[in.name] = syms

	return nil
}
