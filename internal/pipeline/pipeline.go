// Package pipeline runs the registry stages for a project: load the
// manifest, check it, and generate artifacts.
//
// Every stage is logged, timed into the pipeline metrics, and wrapped in a
// span. A manifest that cannot be loaded fails fast; nothing downstream runs
// without one.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/scenes-dev/scenes/internal/build"
	"github.com/scenes-dev/scenes/internal/check"
	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/manifest"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/source"
	"github.com/scenes-dev/scenes/internal/telemetry"
)

// Options configures a pipeline.
type Options struct {
	// Metrics records stage outcomes. Nil disables metrics.
	Metrics *telemetry.Metrics

	// Logger receives diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// OnProgress receives generator progress steps.
	OnProgress func(step string)
}

// Pipeline runs registry stages against one project.
type Pipeline struct {
	config  *config.Config
	src     *source.Reader
	metrics *telemetry.Metrics
	log     *slog.Logger
	options Options
}

// Outcome is the result of a validate-then-generate run.
type Outcome struct {
	Manifest *manifest.Manifest
	Report   *check.Report

	// Result is nil when generation was skipped.
	Result *build.Result

	// Skipped reports that validation errors prevented generation.
	Skipped bool
}

// New creates a pipeline for the project described by cfg.
func New(cfg *config.Config, options Options) (*Pipeline, error) {
	src, err := source.New(cfg.FS(), cfg.Layout(), 0)
	if err != nil {
		return nil, err
	}
	log := options.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		config:  cfg,
		src:     src,
		metrics: options.Metrics,
		log:     log,
		options: options,
	}, nil
}

// Config returns the project configuration.
func (p *Pipeline) Config() *config.Config { return p.config }

// Source returns the shared source reader.
func (p *Pipeline) Source() *source.Reader { return p.src }

// Invalidate forgets cached sources so the next run rereads them. With no
// paths every cached file is dropped.
func (p *Pipeline) Invalidate(paths ...string) {
	if len(paths) == 0 {
		p.src.Purge()
		return
	}
	for _, path := range paths {
		p.src.Forget(path)
	}
}

// Load reads and parses the manifest.
func (p *Pipeline) Load(ctx context.Context) (m *manifest.Manifest, err error) {
	path := p.config.ManifestPath()
	_, span := telemetry.StartSpan(ctx, "load", attribute.String("scenes.manifest", path))
	start := time.Now()
	defer func() {
		p.metrics.RecordRun("load", time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	m, err = manifest.Load(p.config.FS(), path)
	if err != nil {
		p.log.Error("manifest load failed", "path", path, "error", err)
		return nil, err
	}

	p.metrics.SetScenes(len(m.Records))
	p.log.Info("manifest loaded",
		"path", path,
		"scenes", len(m.Records),
		"categories", len(m.Categories))
	return m, nil
}

// Vocabulary loads the configured vocabulary.
func (p *Pipeline) Vocabulary() (*registry.Vocabulary, error) {
	return registry.LoadVocabulary(p.config.FS(), p.config.VocabularyPath())
}

// checker builds a checker. Without artifacts the artifacts phase is
// disabled.
func (p *Pipeline) checker(artifacts bool) (*check.Checker, error) {
	vocab, err := p.Vocabulary()
	if err != nil {
		return nil, err
	}
	opts := check.Options{
		Classifier: p.config.Classifier(),
		Vocabulary: vocab,
		Logger:     p.log,
	}
	if artifacts {
		opts.OutputDir = p.config.OutputPath()
	}
	return check.New(p.src, opts), nil
}

// Check runs every check over m.
func (p *Pipeline) Check(ctx context.Context, m *manifest.Manifest) (*check.Report, error) {
	return p.check(ctx, m, true)
}

func (p *Pipeline) check(ctx context.Context, m *manifest.Manifest, artifacts bool) (report *check.Report, err error) {
	ctx, span := telemetry.StartSpan(ctx, "check",
		attribute.Int("scenes.count", len(m.Records)),
		attribute.Bool("scenes.artifacts", artifacts))
	start := time.Now()
	defer func() {
		p.metrics.RecordRun("check", time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	c, err := p.checker(artifacts)
	if err != nil {
		return nil, err
	}
	report, err = c.Run(ctx, m)
	if err != nil {
		return nil, err
	}
	p.record(report)
	return report, nil
}

// CheckScene runs the checks for the single scene id.
func (p *Pipeline) CheckScene(ctx context.Context, m *manifest.Manifest, id string) (report *check.Report, err error) {
	ctx, span := telemetry.StartSpan(ctx, "check_scene", attribute.String("scenes.id", id))
	start := time.Now()
	defer func() {
		p.metrics.RecordRun("check_scene", time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	c, err := p.checker(true)
	if err != nil {
		return nil, err
	}
	report, err = c.RunScene(ctx, m, id)
	if err != nil {
		return nil, err
	}
	p.record(report)
	return report, nil
}

func (p *Pipeline) record(report *check.Report) {
	for _, f := range report.Findings {
		p.metrics.RecordFinding(string(f.Phase), string(f.Severity))
		p.log.Debug("finding",
			"phase", f.Phase,
			"severity", f.Severity,
			"code", f.Code,
			"scene", f.Scene,
			"message", f.Message)
	}
	p.log.Info("check complete",
		"scenes", report.Scenes,
		"errors", report.Errors(),
		"warnings", report.Warnings())
}

// Generate writes the artifacts for every record of m.
func (p *Pipeline) Generate(ctx context.Context, m *manifest.Manifest) (result *build.Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "generate", attribute.Int("scenes.count", len(m.Records)))
	start := time.Now()
	defer func() {
		p.metrics.RecordRun("generate", time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	b := build.New(p.config, build.Options{
		Source:     p.src,
		Logger:     p.log,
		OnProgress: p.options.OnProgress,
	})
	result, err = b.Build(ctx, m.Records)
	if result != nil {
		for _, a := range result.Written {
			p.metrics.RecordArtifact(a.Size)
		}
		if result.Index != nil {
			p.metrics.RecordArtifact(result.Index.Size)
		}
	}
	if err != nil {
		p.log.Error("generate failed", "error", err)
		return result, err
	}

	p.log.Info("generate complete",
		"items", result.Items,
		"output", result.Output,
		"duration", result.Duration)
	return result, nil
}

// Run loads the manifest, checks it, and generates artifacts. Generation is
// skipped when the check found errors, unless force is set. The existing
// artifacts are about to be replaced, so they are not checked.
func (p *Pipeline) Run(ctx context.Context, force bool) (*Outcome, error) {
	m, err := p.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := &Outcome{Manifest: m}

	out.Report, err = p.check(ctx, m, false)
	if err != nil {
		return out, err
	}
	if out.Report.HasErrors() && !force {
		p.log.Warn("validation failed, skipping generation", "errors", out.Report.Errors())
		out.Skipped = true
		return out, nil
	}

	out.Result, err = p.Generate(ctx, m)
	return out, err
}
