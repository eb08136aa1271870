package source

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenes-dev/scenes/internal/scene"
)

func TestReader_Read(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx": {Data: []byte("export default function A() {}\n")},
	}
	r, err := New(fsys, scene.DefaultLayout(), 0)
	require.NoError(t, err)

	rec := scene.Record{ID: "auth-01", Category: "auth"}
	assert.True(t, r.Exists(rec))

	content, err := r.Read(rec)
	require.NoError(t, err)
	assert.Equal(t, "export default function A() {}\n", content)
	assert.Equal(t, 1, r.Cached())

	// Served from cache even after the file changes on disk.
	fsys["content/scenes/auth/auth-01.tsx"] = &fstest.MapFile{Data: []byte("changed")}
	content, err = r.Read(rec)
	require.NoError(t, err)
	assert.Equal(t, "export default function A() {}\n", content)

	r.Forget(r.Path(rec))
	content, err = r.Read(rec)
	require.NoError(t, err)
	assert.Equal(t, "changed", content)

	r.Purge()
	assert.Equal(t, 0, r.Cached())
}

func TestReader_Missing(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth": {Mode: fs.ModeDir},
	}
	r, err := New(fsys, scene.DefaultLayout(), 4)
	require.NoError(t, err)

	rec := scene.Record{ID: "auth-02", Category: "auth"}
	assert.False(t, r.Exists(rec))

	_, err = r.Read(rec)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Equal(t, 0, r.Cached())
}

func TestReader_DirectoryIsNotASource(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx/keep": {Data: []byte("")},
	}
	r, err := New(fsys, scene.DefaultLayout(), 4)
	require.NoError(t, err)
	assert.False(t, r.Exists(scene.Record{ID: "auth-01", Category: "auth"}))
}
