package check

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"path"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/imports"
	"github.com/scenes-dev/scenes/internal/manifest"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
	"github.com/scenes-dev/scenes/internal/source"
)

// Options configures the checker.
type Options struct {
	// Classifier buckets imports. Defaults to imports.Default().
	Classifier *imports.Classifier

	// Vocabulary lists known names. Defaults to the embedded vocabulary.
	Vocabulary *registry.Vocabulary

	// OutputDir is the project-relative directory of generated artifacts.
	// Empty disables the artifacts phase.
	OutputDir string

	// Concurrency bounds the scenes checked in parallel.
	// Defaults to GOMAXPROCS.
	Concurrency int

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Checker runs consistency checks over a manifest.
type Checker struct {
	src  *source.Reader
	opts Options
	log  *slog.Logger
}

// New creates a checker reading sources through src.
func New(src *source.Reader, options Options) *Checker {
	if options.Classifier == nil {
		options.Classifier = imports.Default()
	}
	if options.Vocabulary == nil {
		options.Vocabulary = registry.DefaultVocabulary()
	}
	if options.Concurrency <= 0 {
		options.Concurrency = runtime.GOMAXPROCS(0)
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		src:  src,
		opts: options,
		log:  log.With("component", "check"),
	}
}

// Run checks every record of m.
func (c *Checker) Run(ctx context.Context, m *manifest.Manifest) (*Report, error) {
	artifacts := c.artifactsEnabled()
	report := &Report{
		Scenes: len(m.Records),
		Phases: c.phases(true, artifacts),
	}

	findings, err := c.checkScenes(ctx, m, m.Records, artifacts)
	if err != nil {
		return nil, err
	}
	findings = append(findings, duplicateIDs(m.Records)...)
	findings = append(findings, c.orphans(m)...)

	sortFindings(findings)
	report.Findings = findings

	c.log.Debug("check complete",
		"scenes", report.Scenes,
		"errors", report.Errors(),
		"warnings", report.Warnings())
	return report, nil
}

// RunScene checks the single record id. The orphan phase is skipped. An
// unknown id fails with S010 listing the valid ids.
func (c *Checker) RunScene(ctx context.Context, m *manifest.Manifest, id string) (*Report, error) {
	rec, ok := m.Find(id)
	if !ok {
		where := m.Path
		if where == "" {
			where = "the manifest"
		}
		return nil, errors.New("S010").
			WithDetailf("Scene %q not found in %s", id, where).
			WithSuggestion("Available scenes: " + strings.Join(m.IDs(), ", "))
	}

	artifacts := c.artifactsEnabled()
	findings, err := c.checkScenes(ctx, m, []scene.Record{rec}, artifacts)
	if err != nil {
		return nil, err
	}
	sortFindings(findings)

	return &Report{
		Scenes:   1,
		Phases:   c.phases(false, artifacts),
		Findings: findings,
	}, nil
}

func (c *Checker) phases(orphans, artifacts bool) []Phase {
	var out []Phase
	for _, p := range Phases {
		if p == PhaseOrphans && !orphans {
			continue
		}
		if p == PhaseArtifacts && !artifacts {
			continue
		}
		out = append(out, p)
	}
	return out
}

// artifactsEnabled reports whether generated artifacts exist to be checked.
func (c *Checker) artifactsEnabled() bool {
	if c.opts.OutputDir == "" {
		return false
	}
	info, err := fs.Stat(c.src.FS(), c.opts.OutputDir)
	if err != nil || !info.IsDir() {
		c.log.Info("no generated artifacts, skipping artifact checks", "dir", c.opts.OutputDir)
		return false
	}
	return true
}

// checkScenes runs the per-scene checks concurrently and returns the findings
// in record order.
func (c *Checker) checkScenes(ctx context.Context, m *manifest.Manifest, records []scene.Record, artifacts bool) ([]Finding, error) {
	categories := declaredCategories(m)
	results := make([]*sceneFindings, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = c.checkScene(rec, categories, artifacts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var findings []Finding
	for _, r := range results {
		findings = append(findings, r.findings...)
	}
	return findings, nil
}

func (c *Checker) checkScene(rec scene.Record, categories map[string]bool, artifacts bool) *sceneFindings {
	layout := c.src.Layout()
	srcPath := c.src.Path(rec)
	s := &sceneFindings{id: rec.ID, file: srcPath}

	if categories != nil && !categories[rec.Category] {
		s.add(SeverityError, PhaseSources, "S012",
			"Scene %q uses undeclared category %q", rec.ID, rec.Category)
	}

	content, err := c.src.Read(rec)
	exists := err == nil
	if !exists {
		if stderrors.Is(err, fs.ErrNotExist) {
			s.add(SeverityError, PhaseSources, "S002",
				"Scene %q registered in the manifest but file not found: %s", rec.ID, srcPath)
		} else {
			s.add(SeverityError, PhaseSources, "S002",
				"Scene %q source could not be read: %v", rec.ID, err)
		}
	}

	if artifacts {
		c.checkArtifact(s, rec, content)
	}
	checkVocabulary(s, rec, c.opts.Vocabulary)

	if !exists {
		return s
	}

	cls := c.opts.Classifier
	f := cls.Classify(content)
	c.log.Debug("classified imports",
		"scene", rec.ID,
		"ui", len(f.UI),
		"packages", len(f.Packages),
		"local", len(f.Local))

	checkUIImports(s, rec, f, cls.UIPrefix)
	checkPackages(s, rec, f)
	checkIsolation(s, rec, f, layout, cls.AliasPrefix)
	return s
}

func (c *Checker) checkArtifact(s *sceneFindings, rec scene.Record, content string) {
	itemPath := path.Join(c.opts.OutputDir, scene.ArtifactName(rec.ID))

	item, err := registry.ReadItem(c.src.FS(), itemPath)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			s.add(SeverityError, PhaseArtifacts, "S007",
				"Registry item not found for %q: %s", rec.ID, itemPath)
		} else {
			s.add(SeverityError, PhaseArtifacts, "S007",
				"Registry item for %q is unreadable: %v", rec.ID, err)
		}
		return
	}
	checkItem(s, rec, item, c.src.Layout().InstallPath(rec), content)
}

// orphans reports source files under known category directories that no
// record claims.
func (c *Checker) orphans(m *manifest.Manifest) []Finding {
	layout := c.src.Layout()
	ids := make(map[string]bool, len(m.Records))
	for _, r := range m.Records {
		ids[r.ID] = true
	}

	dirs := make(map[string]bool)
	var categories []string
	for _, cat := range append(m.CategoryIDs(), scene.Categories(m.Records)...) {
		if !dirs[cat] {
			dirs[cat] = true
			categories = append(categories, cat)
		}
	}

	var findings []Finding
	for _, cat := range categories {
		pattern := path.Join(layout.CategoryDir(cat), "*"+layout.Extension)
		matches, err := doublestar.Glob(c.src.FS(), pattern, doublestar.WithFilesOnly())
		if err != nil {
			c.log.Warn("orphan scan failed", "category", cat, "error", err)
			continue
		}
		for _, file := range matches {
			name := path.Base(file)
			if strings.HasPrefix(name, "index") {
				continue
			}
			id := strings.TrimSuffix(name, layout.Extension)
			if ids[id] {
				continue
			}
			findings = append(findings, Finding{
				Severity: SeverityWarning,
				Phase:    PhaseOrphans,
				Code:     "S004",
				Scene:    id,
				File:     file,
				Message:  "File \"" + cat + "/" + name + "\" has no entry in the manifest",
			})
		}
	}
	return findings
}

// duplicateIDs reports every record whose id was already used.
func duplicateIDs(records []scene.Record) []Finding {
	seen := make(map[string]bool, len(records))
	var findings []Finding
	for _, r := range records {
		if seen[r.ID] {
			findings = append(findings, Finding{
				Severity: SeverityError,
				Phase:    PhaseSources,
				Code:     "S012",
				Scene:    r.ID,
				Message:  "Scene id \"" + r.ID + "\" is declared more than once",
			})
		}
		seen[r.ID] = true
	}
	return findings
}

// declaredCategories returns the category ids the manifest declares, or nil
// when it declares none.
func declaredCategories(m *manifest.Manifest) map[string]bool {
	if len(m.Categories) == 0 {
		return nil
	}
	set := make(map[string]bool, len(m.Categories))
	for _, cat := range m.Categories {
		set[cat.ID] = true
	}
	return set
}
