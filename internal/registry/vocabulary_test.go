package registry

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenes-dev/scenes/internal/errors"
)

func TestDefaultVocabulary(t *testing.T) {
	v := DefaultVocabulary()

	assert.Len(t, v.Components, 22)
	for _, c := range []string{"button", "card", "dropdown-menu", "tooltip"} {
		assert.True(t, v.HasComponent(c), c)
	}
	assert.False(t, v.HasComponent("carousel"))

	assert.True(t, v.HasPackage("lucide-react"))
	assert.True(t, v.HasPackage("recharts"))
	assert.False(t, v.HasPackage("framer-motion"))
}

func TestLoadVocabulary(t *testing.T) {
	fsys := fstest.MapFS{
		"vocab.yaml":    {Data: []byte("packages:\n  - framer-motion\n")},
		"invalid.yaml":  {Data: []byte("components: [button\n")},
		"wrongtype.yml": {Data: []byte("components: 3\n")},
	}

	v, err := LoadVocabulary(fsys, "")
	require.NoError(t, err)
	assert.True(t, v.HasComponent("button"))

	v, err = LoadVocabulary(fsys, "vocab.yaml")
	require.NoError(t, err)
	assert.True(t, v.HasPackage("framer-motion"))
	assert.False(t, v.HasPackage("recharts"), "project list replaces the default")
	assert.True(t, v.HasComponent("button"), "missing list keeps the default")

	_, err = LoadVocabulary(fsys, "invalid.yaml")
	assert.True(t, errors.HasCode(err, "S030"))

	_, err = LoadVocabulary(fsys, "wrongtype.yml")
	assert.True(t, errors.HasCode(err, "S030"))

	_, err = LoadVocabulary(fsys, "missing.yaml")
	assert.True(t, errors.HasCode(err, "S030"))
}
