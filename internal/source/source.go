// Package source reads scene source files for the checker and the generator.
//
// A single validate-then-generate run reads every source twice; the reader
// keeps recently read files in an LRU cache so the second pass never touches
// the disk. The dev server forgets paths as the watcher reports changes.
package source

import (
	"io/fs"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scenes-dev/scenes/internal/scene"
)

// DefaultCacheSize is the number of files kept in memory.
const DefaultCacheSize = 512

// Reader reads scene sources from a project filesystem.
type Reader struct {
	fsys   fs.FS
	layout scene.Layout
	cache  *lru.Cache[string, string]
}

// New creates a Reader over fsys caching up to size files.
// A size of zero or less uses DefaultCacheSize.
func New(fsys fs.FS, layout scene.Layout, size int) (*Reader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Reader{fsys: fsys, layout: layout, cache: cache}, nil
}

// FS returns the underlying filesystem.
func (r *Reader) FS() fs.FS { return r.fsys }

// Layout returns the path conventions in use.
func (r *Reader) Layout() scene.Layout { return r.layout }

// Path returns the derived source path of rec.
func (r *Reader) Path(rec scene.Record) string {
	return r.layout.SourcePath(rec)
}

// Read returns the full text of rec's source file.
func (r *Reader) Read(rec scene.Record) (string, error) {
	return r.ReadFile(r.Path(rec))
}

// ReadFile returns the text of the file at path, from the cache when present.
func (r *Reader) ReadFile(path string) (string, error) {
	if content, ok := r.cache.Get(path); ok {
		return content, nil
	}
	data, err := fs.ReadFile(r.fsys, path)
	if err != nil {
		return "", err
	}
	content := string(data)
	r.cache.Add(path, content)
	return content, nil
}

// Exists reports whether rec's source file exists as a regular file.
func (r *Reader) Exists(rec scene.Record) bool {
	path := r.Path(rec)
	if r.cache.Contains(path) {
		return true
	}
	info, err := fs.Stat(r.fsys, path)
	return err == nil && info.Mode().IsRegular()
}

// Forget drops path from the cache.
func (r *Reader) Forget(path string) {
	r.cache.Remove(path)
}

// Purge drops every cached file.
func (r *Reader) Purge() {
	r.cache.Purge()
}

// Cached returns the number of cached files.
func (r *Reader) Cached() int {
	return r.cache.Len()
}
