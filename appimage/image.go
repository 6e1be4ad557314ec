// Package appimage lays accelerator application images out in a host
// address space, the way the firmware build embeds them, and exports the
// application descriptors and symbol pointers the driver consumes.
package appimage

import (
	"fmt"
	"sort"

	"github.com/sarchlab/otbn/api"
)

// DefaultBase is the host address the first image is placed at.
const DefaultBase api.Ptr = 0x2000_0000

// Image is a linked set of application images in host memory.
type Image struct {
	base    api.Ptr
	data    []byte
	apps    map[string]*api.App
	symbols map[string]map[string]api.Ptr
}

// Base returns the host address of the first byte of the image.
func (img *Image) Base() api.Ptr {
	return img.base
}

// End returns the host address one past the last byte of the image.
func (img *Image) End() api.Ptr {
	return img.base + api.Ptr(len(img.data))
}

// Read returns a copy of n bytes at addr.
func (img *Image) Read(addr api.Ptr, n uint64) ([]byte, error) {
	if addr < img.base || uint64(addr-img.base) > uint64(len(img.data)) ||
		n > uint64(len(img.data))-uint64(addr-img.base) {
		return nil, fmt.Errorf("range [%#x, +%d) not in image [%#x, %#x)",
			uint64(addr), n, uint64(img.base), uint64(img.End()))
	}

	offset := uint64(addr - img.base)
	buf := make([]byte, n)
	copy(buf, img.data[offset:offset+n])

	return buf, nil
}

// App returns the descriptor of the named application.
func (img *Image) App(name string) (*api.App, error) {
	app, ok := img.apps[name]
	if !ok {
		return nil, fmt.Errorf("no application %q", name)
	}

	return app, nil
}

// AppNames returns the names of all linked applications in sorted order.
func (img *Image) AppNames() []string {
	names := make([]string, 0, len(img.apps))
	for name := range img.apps {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Symbol returns the host address of a label of an application. Labels in the
// instruction image name functions and labels of data sections name data.
func (img *Image) Symbol(app, symbol string) (api.Ptr, error) {
	syms, ok := img.symbols[app]
	if !ok {
		return 0, fmt.Errorf("no application %q", app)
	}

	ptr, ok := syms[symbol]
	if !ok {
		return 0, fmt.Errorf("no symbol %q in application %q", symbol, app)
	}

	return ptr, nil
}

// MustSymbol is Symbol that panics on unknown symbols.
func (img *Image) MustSymbol(app, symbol string) api.Ptr {
	ptr, err := img.Symbol(app, symbol)
	if err != nil {
		panic(err)
	}

	return ptr
}
