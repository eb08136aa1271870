package dev

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/scenes-dev/scenes/internal/errors"
)

// ChangeType represents the kind of project file that changed.
type ChangeType int

const (
	// ChangeScene is a scene source file.
	ChangeScene ChangeType = iota
	// ChangeManifest is the scene manifest.
	ChangeManifest
	// ChangeVocabulary is the project vocabulary override.
	ChangeVocabulary
	// ChangeOther is any other file under a watched directory.
	ChangeOther
)

// String returns the change type name.
func (t ChangeType) String() string {
	switch t {
	case ChangeScene:
		return "scene"
	case ChangeManifest:
		return "manifest"
	case ChangeVocabulary:
		return "vocabulary"
	default:
		return "other"
	}
}

// Change represents a file change.
type Change struct {
	// Path is relative to the watcher root, slash separated.
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Root is the directory change paths are reported relative to.
	Root string

	// Paths are the files and directories to watch. Directories are watched
	// recursively.
	Paths []string

	// Ignore contains doublestar patterns matched against root-relative paths.
	Ignore []string

	// Debounce is how long to wait for more changes before reporting.
	Debounce time.Duration

	// Classify maps a root-relative path to its change type.
	// Defaults to ChangeOther for everything.
	Classify func(rel string) ChangeType

	// Logger receives watch errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultIgnore contains patterns that are always ignored.
var DefaultIgnore = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.DS_Store",
	"**/*.swp",
	"**/*~",
	"**/.*.tmp-*",
}

// Watcher reports debounced batches of file changes.
type Watcher struct {
	config   WatcherConfig
	log      *slog.Logger
	callback func([]Change)

	// files restricts events from directories that are watched only
	// because a single file inside them was requested.
	files map[string]bool
	dirs  map[string]bool

	mu      sync.Mutex
	running bool
	stop    chan struct{}
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Debounce <= 0 {
		config.Debounce = 100 * time.Millisecond
	}
	if config.Root == "" {
		config.Root = "."
	}
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		config: config,
		log:    log.With("component", "watcher"),
		files:  make(map[string]bool),
		dirs:   make(map[string]bool),
	}
}

// OnChange sets the callback for change batches. Changes in a batch are
// de-duplicated and sorted by path.
func (w *Watcher) OnChange(callback func([]Change)) {
	w.callback = callback
}

// Start watches until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.New("S041").WithDetail("creating file watcher").Wrap(err)
	}
	defer fsw.Close()

	for _, p := range w.config.Paths {
		if err := w.add(fsw, p); err != nil {
			return errors.New("S041").WithFile(p).Wrap(err)
		}
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stop = make(chan struct{})
	stop := w.stop
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending = make(map[string]Change)
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case <-stop:
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			change, ok := w.handle(fsw, event)
			if !ok {
				continue
			}
			pending[change.Path] = change
			if timer == nil {
				timer = time.NewTimer(w.config.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.config.Debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			if len(pending) == 0 {
				continue
			}
			batch := make([]Change, 0, len(pending))
			for _, c := range pending {
				batch = append(batch, c)
			}
			sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
			pending = make(map[string]Change)
			if w.callback != nil {
				w.callback(batch)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running && w.stop != nil {
		close(w.stop)
		w.stop = nil
	}
}

// IsRunning returns whether the watcher is running.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// add registers a path. Missing paths are skipped; a file is watched through
// its parent directory so editors that replace files are still seen.
func (w *Watcher) add(fsw *fsnotify.Watcher, p string) error {
	p = filepath.Clean(p)
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		w.log.Debug("watch path does not exist", "path", p)
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.files[p] = true
		return fsw.Add(filepath.Dir(p))
	}
	return w.addTree(fsw, p)
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && w.shouldIgnore(p) {
			return filepath.SkipDir
		}
		w.dirs[p] = true
		return fsw.Add(p)
	})
}

// handle filters one event and returns the change it represents.
func (w *Watcher) handle(fsw *fsnotify.Watcher, event fsnotify.Event) (Change, bool) {
	if event.Op == fsnotify.Chmod {
		return Change{}, false
	}
	name := filepath.Clean(event.Name)
	if w.shouldIgnore(name) {
		return Change{}, false
	}

	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if w.underWatchedTree(name) {
				if err := w.addTree(fsw, name); err != nil {
					w.log.Warn("watching new directory failed", "path", name, "error", err)
				}
			}
			return Change{}, false
		}
	}

	if !w.files[name] && !w.underWatchedTree(name) {
		return Change{}, false
	}

	rel := w.rel(name)
	typ := ChangeOther
	if w.config.Classify != nil {
		typ = w.config.Classify(rel)
	}
	return Change{Path: rel, Type: typ}, true
}

func (w *Watcher) underWatchedTree(name string) bool {
	return w.dirs[filepath.Dir(name)]
}

func (w *Watcher) rel(name string) string {
	rel, err := filepath.Rel(w.config.Root, name)
	if err != nil {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(rel)
}

// shouldIgnore matches a path against the ignore patterns. Patterns are tried
// against the root-relative path and the base name.
func (w *Watcher) shouldIgnore(name string) bool {
	rel := w.rel(name)
	base := path.Base(rel)
	patterns := append(append([]string{}, DefaultIgnore...), w.config.Ignore...)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			if ok, _ := doublestar.Match(pattern, base); ok {
				return true
			}
		}
	}
	return false
}
