package registry

import (
	_ "embed"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/scenes-dev/scenes/internal/errors"
)

//go:embed vocabulary.yaml
var embeddedVocabulary []byte

// Vocabulary is the set of known UI components and external packages.
type Vocabulary struct {
	Components []string `yaml:"components"`
	Packages   []string `yaml:"packages"`

	components map[string]bool
	packages   map[string]bool
}

// DefaultVocabulary returns the embedded vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(embeddedVocabulary)
	if err != nil {
		panic("registry: embedded vocabulary: " + err.Error())
	}
	return v
}

// ParseVocabulary decodes a YAML vocabulary.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, errors.New("S030").Wrap(err)
	}
	v.index()
	return &v, nil
}

// LoadVocabulary returns the default vocabulary with any list present in the
// project file at path replacing the default one. An empty path returns the
// default.
func LoadVocabulary(fsys fs.FS, path string) (*Vocabulary, error) {
	def := DefaultVocabulary()
	if path == "" {
		return def, nil
	}

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, errors.New("S030").
			WithFile(path).
			WithDetail("could not read vocabulary file").
			Wrap(err)
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return nil, errors.FromError(err, "S030").WithFile(path)
	}

	if len(v.Components) == 0 {
		v.Components = def.Components
	}
	if len(v.Packages) == 0 {
		v.Packages = def.Packages
	}
	v.index()
	return v, nil
}

// HasComponent reports whether name is a known UI component.
func (v *Vocabulary) HasComponent(name string) bool {
	return v.components[name]
}

// HasPackage reports whether name is a known external package.
func (v *Vocabulary) HasPackage(name string) bool {
	return v.packages[name]
}

func (v *Vocabulary) index() {
	v.components = make(map[string]bool, len(v.Components))
	for _, c := range v.Components {
		v.components[c] = true
	}
	v.packages = make(map[string]bool, len(v.Packages))
	for _, p := range v.Packages {
		v.packages[p] = true
	}
}
