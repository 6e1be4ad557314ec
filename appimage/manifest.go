package appimage

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/otbn/api"
)

// AppSpec describes one application in a manifest. The program is either
// inline assembly or a file relative to the manifest.
type AppSpec struct {
	Name    string        `yaml:"name"`
	Asm     string        `yaml:"asm"`
	AsmFile string        `yaml:"asm_file"`
	Data    []DataSection `yaml:"data"`
}

// Manifest lists the applications of one image.
type Manifest struct {
	Base uint64    `yaml:"base"`
	Apps []AppSpec `yaml:"apps"`

	dir string
}

// ParseManifest decodes a YAML manifest. Relative asm_file entries are
// resolved against the working directory.
func ParseManifest(data []byte) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	if len(m.Apps) == 0 {
		return Manifest{}, fmt.Errorf("parse manifest: no applications")
	}

	return m, nil
}

// LoadManifest reads and decodes the manifest at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	m, err := ParseManifest(data)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: %w", path, err)
	}
	m.dir = filepath.Dir(path)

	return m, nil
}

func (m Manifest) source(spec AppSpec) (string, error) {
	switch {
	case spec.Asm != "" && spec.AsmFile != "":
		return "", fmt.Errorf("application %q: both asm and asm_file given", spec.Name)
	case spec.Asm != "":
		return spec.Asm, nil
	case spec.AsmFile != "":
		path := spec.AsmFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.dir, path)
		}

		src, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("application %q: %w", spec.Name, err)
		}

		return string(src), nil
	default:
		return "", fmt.Errorf("application %q: no program", spec.Name)
	}
}

// Link assembles and links every application of the manifest.
func (m Manifest) Link() (*Image, error) {
	l := NewLinker(api.Ptr(m.Base))

	for _, spec := range m.Apps {
		src, err := m.source(spec)
		if err != nil {
			return nil, err
		}

		if err := l.AddSource(spec.Name, src, spec.Data); err != nil {
			return nil, err
		}
	}

	return l.Link()
}
