package build

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
	"github.com/scenes-dev/scenes/internal/source"
)

// Artifact describes one written file.
type Artifact struct {
	// Name is the scene id, or "index" for the index.
	Name string `json:"name"`

	// Path is the absolute path of the file.
	Path string `json:"path"`

	// Checksum is the hex sha256 of the file content.
	Checksum string `json:"checksum"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Items is the number of registry items generated.
	Items int

	// Output is the absolute output directory.
	Output string

	// Written lists the per-scene artifacts in manifest order.
	Written []Artifact

	// Index is the aggregate index artifact.
	Index *Artifact
}

// Options configures the builder.
type Options struct {
	// Source reads scene sources. Defaults to a reader over the project root.
	Source *source.Reader

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Builder generates registry artifacts.
type Builder struct {
	config  *config.Config
	options Options
	log     *slog.Logger
}

// WriteError reports a failed artifact write and the artifacts written before it.
type WriteError struct {
	// Written are the scene ids whose artifacts were written.
	Written []string

	// Failed is the scene id, or "index", whose write failed.
	Failed string

	// Err is the underlying S006 error.
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s failed after %d artifact(s) written: %v", e.Failed, len(e.Written), e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Builder{
		config:  cfg,
		options: options,
		log:     log.With("component", "build"),
	}
}

// Build generates one artifact per record plus the index.
func (b *Builder) Build(ctx context.Context, records []scene.Record) (*Result, error) {
	start := time.Now()
	outputDir := b.config.AbsOutputPath()
	result := &Result{Output: outputDir}

	src, err := b.source()
	if err != nil {
		return nil, err
	}
	layout := src.Layout()

	// Read every source before writing anything.
	b.progress("Reading scene sources...")
	items := make([]registry.Item, 0, len(records))
	var unreadable []string
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := src.Read(rec)
		if err != nil {
			b.log.Debug("source unreadable", "scene", rec.ID, "error", err)
			unreadable = append(unreadable, rec.ID+" ("+src.Path(rec)+")")
			continue
		}
		items = append(items, registry.NewItem(rec, layout, content))
	}
	if len(unreadable) > 0 {
		return nil, errors.New("S005").
			WithDetail("no artifacts written; unreadable: " + strings.Join(unreadable, ", ")).
			WithSuggestion("Run scenes validate to see which scene sources are missing")
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, errors.New("S006").WithFile(outputDir).Wrap(err)
	}

	b.progress("Writing registry items...")
	written := make([]string, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		a, err := b.write(outputDir, item.Name, scene.ArtifactName(item.Name), item)
		if err != nil {
			return result, &WriteError{Written: written, Failed: item.Name, Err: err}
		}
		result.Written = append(result.Written, *a)
		written = append(written, item.Name)
	}

	b.progress("Writing index...")
	index := registry.NewIndex(b.config.Registry.Name, b.config.Registry.Homepage, items)
	a, err := b.write(outputDir, "index", registry.IndexName, index)
	if err != nil {
		return result, &WriteError{Written: written, Failed: "index", Err: err}
	}
	result.Index = a
	result.Items = len(items)
	result.Duration = time.Since(start)

	b.log.Debug("build complete", "items", result.Items, "output", outputDir, "duration", result.Duration)
	return result, nil
}

// write encodes v and atomically replaces dir/file with it.
func (b *Builder) write(dir, name, file string, v any) (*Artifact, error) {
	path := filepath.Join(dir, file)

	data, err := registry.Encode(v)
	if err != nil {
		return nil, errors.New("S006").WithFile(path).Wrap(err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return nil, errors.New("S006").WithFile(path).Wrap(err)
	}

	b.log.Debug("wrote artifact", "name", name, "path", path, "bytes", len(data))
	return &Artifact{
		Name:     name,
		Path:     path,
		Checksum: registry.Checksum(data),
		Size:     int64(len(data)),
	}, nil
}

// writeFileAtomic writes data to a temporary file next to path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (b *Builder) source() (*source.Reader, error) {
	if b.options.Source != nil {
		return b.options.Source, nil
	}
	return source.New(b.config.FS(), b.config.Layout(), 0)
}

func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// Clean removes the registry artifacts from the output directory. JSON files
// that are not registry artifacts are left alone. It returns the number of
// files removed.
func (b *Builder) Clean() (int, error) {
	dir := b.config.AbsOutputPath()
	matches, err := doublestar.FilepathGlob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, err
	}

	removed := 0
	fsys := os.DirFS(dir)
	for _, m := range matches {
		name := filepath.Base(m)
		if !ownedArtifact(fsys, name) {
			continue
		}
		if err := os.Remove(m); err != nil {
			return removed, err
		}
		removed++
	}
	b.log.Debug("cleaned output", "dir", dir, "removed", removed)
	return removed, nil
}

// ownedArtifact reports whether name decodes as an artifact this package writes.
func ownedArtifact(fsys fs.FS, name string) bool {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return false
	}
	var head struct {
		Schema string `json:"$schema"`
	}
	if json.Unmarshal(data, &head) != nil {
		return false
	}
	return head.Schema == registry.ItemSchemaURL || head.Schema == registry.IndexSchemaURL
}
