package check

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/manifest"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
	"github.com/scenes-dev/scenes/internal/source"
)

func newChecker(t *testing.T, fsys fstest.MapFS, opts Options) *Checker {
	t.Helper()
	src, err := source.New(fsys, scene.DefaultLayout(), 0)
	require.NoError(t, err)
	return New(src, opts)
}

func manifestOf(records ...scene.Record) *manifest.Manifest {
	return &manifest.Manifest{Path: "content/scenes.ts", Records: records}
}

func file(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func count(findings []Finding, sev Severity) int {
	n := 0
	for _, f := range findings {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func TestRun_UndeclaredUIImport(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/dashboard/dashboard-01.tsx": file(`import { Button } from "@/components/ui/button";
import { Card } from "@/components/ui/card";
`),
	}
	rec := scene.Record{ID: "dashboard-01", Category: "dashboard", RegistryDependencies: []string{"button"}, Dependencies: []string{}}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	findings := report.ForScene("dashboard-01")
	require.Equal(t, 1, count(findings, SeverityError), "%v", findings)
	assert.Equal(t, 0, count(findings, SeverityWarning), "%v", findings)

	f := findings[0]
	assert.Equal(t, PhaseUIImports, f.Phase)
	assert.Equal(t, "S003", f.Code)
	assert.Contains(t, f.Message, `"card"`)
	assert.True(t, report.HasErrors())
}

func TestRun_DeclaredUnusedPackage(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/analytics/analytics-01.tsx": file(`import { TrendingUp } from "lucide-react";`),
	}
	rec := scene.Record{ID: "analytics-01", Category: "analytics", Dependencies: []string{"lucide-react", "recharts"}}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	findings := report.ForScene("analytics-01")
	require.Len(t, findings, 1, "%v", findings)
	assert.Equal(t, SeverityWarning, findings[0].Severity)
	assert.Equal(t, PhasePackages, findings[0].Phase)
	assert.Contains(t, findings[0].Message, `"recharts"`)
	assert.False(t, report.HasErrors())
}

func TestRun_OrphanFile(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/pricing/pricing-01.tsx": file("export default function P() {}\n"),
		"content/scenes/pricing/pricing-02.tsx": file("export default function P2() {}\n"),
		"content/scenes/pricing/index.tsx":      file("export {}\n"),
		"content/scenes/pricing/notes.md":       file("# notes\n"),
	}
	rec := scene.Record{ID: "pricing-01", Category: "pricing"}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	assert.Equal(t, 0, report.Errors())
	require.Equal(t, 1, report.Warnings(), "%v", report.Findings)

	f := report.Findings[0]
	assert.Equal(t, PhaseOrphans, f.Phase)
	assert.Equal(t, "pricing-02", f.Scene)
	assert.Equal(t, "content/scenes/pricing/pricing-02.tsx", f.File)
	assert.Equal(t, `File "pricing/pricing-02.tsx" has no entry in the manifest`, f.Message)
}

func TestRun_OrphanScanCoversDeclaredCategories(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx":   file(""),
		"content/scenes/error/error-07.tsx": file(""),
	}
	m := manifestOf(scene.Record{ID: "auth-01", Category: "auth"})
	m.Categories = []scene.Category{{ID: "auth"}, {ID: "error"}}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "error-07", report.Findings[0].Scene)
}

func TestRun_MissingSource(t *testing.T) {
	rec := scene.Record{ID: "auth-02", Category: "auth", RegistryDependencies: []string{"button"}}

	report, err := newChecker(t, fstest.MapFS{}, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	require.Len(t, report.Findings, 1, "%v", report.Findings)
	f := report.Findings[0]
	assert.Equal(t, SeverityError, f.Severity)
	assert.Equal(t, PhaseSources, f.Phase)
	assert.Equal(t, "S002", f.Code)
	assert.Contains(t, f.Message, "content/scenes/auth/auth-02.tsx")
}

func TestRun_MissingSourceStillChecksVocabulary(t *testing.T) {
	rec := scene.Record{
		ID:                   "auth-09",
		Category:             "auth",
		RegistryDependencies: []string{"not-a-component"},
		Dependencies:         []string{"not-a-package"},
	}

	report, err := newChecker(t, fstest.MapFS{}, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Errors())
	assert.Equal(t, 2, report.Warnings())

	var vocab []string
	for _, f := range report.Findings {
		if f.Phase == PhaseVocabulary {
			assert.Equal(t, SeverityWarning, f.Severity)
			vocab = append(vocab, f.Message)
		}
	}
	require.Len(t, vocab, 2)
	assert.Contains(t, strings.Join(vocab, "\n"), "not-a-component")
	assert.Contains(t, strings.Join(vocab, "\n"), "not-a-package")
}

func TestRun_Isolation(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/pricing/pricing-01.tsx": file(`import { Plan } from "./plan";
import { Faq } from "@/content/scenes/pricing/shared/faq";
import { Login } from "@/content/scenes/auth/auth-01";
import { Helper } from "../auth/helpers";
import { cn } from "../../../lib/utils";
import { format } from "@/lib/format";
`),
	}
	rec := scene.Record{ID: "pricing-01", Category: "pricing"}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)

	var msgs []string
	for _, f := range report.Findings {
		assert.Equal(t, PhaseIsolation, f.Phase)
		assert.Equal(t, "S008", f.Code)
		msgs = append(msgs, f.Message)
	}
	assert.ElementsMatch(t, []string{
		`pricing-01: cross-scene import detected: "../auth/helpers"`,
		`pricing-01: cross-scene import detected: "@/content/scenes/auth/auth-01"`,
	}, msgs)
}

func TestRun_Vocabulary(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx": file(`import { Carousel } from "@/components/ui/carousel";
import { motion } from "framer-motion";
`),
	}
	rec := scene.Record{
		ID:                   "auth-01",
		Category:             "auth",
		RegistryDependencies: []string{"carousel"},
		Dependencies:         []string{"framer-motion"},
	}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Errors())
	require.Equal(t, 2, report.Warnings())
	for _, f := range report.Findings {
		assert.Equal(t, PhaseVocabulary, f.Phase)
	}

	vocab, err := registry.ParseVocabulary([]byte("components: [carousel]\npackages: [framer-motion]\n"))
	require.NoError(t, err)
	report, err = newChecker(t, fsys, Options{Vocabulary: vocab}).Run(context.Background(), manifestOf(rec))
	require.NoError(t, err)
	assert.Empty(t, report.Findings)
}

func TestRun_ManifestRecords(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx": file(""),
		"content/scenes/blog/blog-01.tsx": file(""),
	}
	m := manifestOf(
		scene.Record{ID: "auth-01", Category: "auth"},
		scene.Record{ID: "auth-01", Category: "auth"},
		scene.Record{ID: "blog-01", Category: "blog"},
	)
	m.Categories = []scene.Category{{ID: "auth", Label: "Authentication"}}

	report, err := newChecker(t, fsys, Options{}).Run(context.Background(), m)
	require.NoError(t, err)

	var msgs []string
	for _, f := range report.Findings {
		assert.Equal(t, PhaseSources, f.Phase)
		assert.Equal(t, "S012", f.Code)
		msgs = append(msgs, f.Message)
	}
	assert.ElementsMatch(t, []string{
		`Scene id "auth-01" is declared more than once`,
		`Scene "blog-01" uses undeclared category "blog"`,
	}, msgs)
}

func TestRun_Artifacts(t *testing.T) {
	layout := scene.DefaultLayout()
	records := []scene.Record{
		{ID: "a-ok", Category: "misc"},
		{ID: "b-name", Category: "misc"},
		{ID: "c-nofiles", Category: "misc"},
		{ID: "d-path", Category: "misc"},
		{ID: "e-stale", Category: "misc"},
		{ID: "f-missing", Category: "misc"},
	}

	fsys := fstest.MapFS{}
	for _, r := range records {
		fsys[layout.SourcePath(r)] = file("line 1\nline 2\n")
	}

	put := func(id string, item registry.Item) {
		data, err := registry.Encode(item)
		require.NoError(t, err)
		fsys["public/r/"+id+".json"] = &fstest.MapFile{Data: data}
	}
	put("a-ok", registry.NewItem(records[0], layout, "line 1\nline 2\n"))

	renamed := registry.NewItem(records[1], layout, "line 1\nline 2\n")
	renamed.Name = "b-other"
	put("b-name", renamed)

	nofiles := registry.NewItem(records[2], layout, "")
	nofiles.Files = nil
	put("c-nofiles", nofiles)

	moved := registry.NewItem(records[3], layout, "line 1\nline 2\n")
	moved.Files[0].Path = "components/d-path.tsx"
	put("d-path", moved)

	put("e-stale", registry.NewItem(records[4], layout, "line 1\nold 2\nold 3\n"))

	report, err := newChecker(t, fsys, Options{OutputDir: "public/r"}).Run(context.Background(), manifestOf(records...))
	require.NoError(t, err)
	assert.Contains(t, report.Phases, PhaseArtifacts)

	got := make(map[string][]string)
	for _, f := range report.Findings {
		require.Equal(t, PhaseArtifacts, f.Phase, f.Message)
		got[f.Scene] = append(got[f.Scene], string(f.Severity)+" "+f.Message)
	}

	assert.Empty(t, got["a-ok"])
	assert.Equal(t, []string{`error registry item name mismatch for "b-name": expected "b-name", got "b-other"`}, got["b-name"])
	assert.Equal(t, []string{`error registry item for "c-nofiles" has no files`}, got["c-nofiles"])
	assert.Equal(t, []string{`error registry item install path mismatch for "d-path": expected "components/scenes/misc/d-path.tsx", got "components/d-path.tsx"`}, got["d-path"])
	assert.Equal(t, []string{`warning registry item for "e-stale" is stale (+1 -2 lines); regenerate the registry`}, got["e-stale"])
	assert.Equal(t, []string{`error Registry item not found for "f-missing": public/r/f-missing.json`}, got["f-missing"])
}

func TestRun_ArtifactsSkippedWithoutOutputDir(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx": file(""),
	}
	report, err := newChecker(t, fsys, Options{OutputDir: "public/r"}).
		Run(context.Background(), manifestOf(scene.Record{ID: "auth-01", Category: "auth"}))
	require.NoError(t, err)

	assert.NotContains(t, report.Phases, PhaseArtifacts)
	assert.Empty(t, report.Findings)
}

func TestRun_DeterministicAndIdempotent(t *testing.T) {
	fsys := fstest.MapFS{}
	var records []scene.Record
	for i := 20; i > 0; i-- {
		r := scene.Record{
			ID:                   fmt.Sprintf("scene-%02d", i),
			Category:             "misc",
			RegistryDependencies: []string{"badge"},
			Dependencies:         []string{"recharts"},
		}
		records = append(records, r)
		if i%3 != 0 {
			fsys[scene.DefaultLayout().SourcePath(r)] = file(`import { Card } from "@/components/ui/card";`)
		}
	}
	m := manifestOf(records...)
	c := newChecker(t, fsys, Options{Concurrency: 8})

	first, err := c.Run(context.Background(), m)
	require.NoError(t, err)
	second, err := c.Run(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for i := 1; i < len(first.Findings); i++ {
		a, b := first.Findings[i-1], first.Findings[i]
		if a.Phase == b.Phase {
			assert.LessOrEqual(t, a.Scene, b.Scene)
		} else {
			assert.Less(t, a.Phase.order(), b.Phase.order())
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newChecker(t, fstest.MapFS{}, Options{}).
		Run(ctx, manifestOf(scene.Record{ID: "a", Category: "b"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunScene(t *testing.T) {
	fsys := fstest.MapFS{
		"content/scenes/auth/auth-01.tsx": file(`import { Button } from "@/components/ui/button";`),
		"content/scenes/auth/auth-09.tsx": file(""),
	}
	m := manifestOf(
		scene.Record{ID: "auth-01", Category: "auth", RegistryDependencies: []string{"button"}},
		scene.Record{ID: "auth-02", Category: "auth"},
	)
	c := newChecker(t, fsys, Options{})

	report, err := c.RunScene(context.Background(), m, "auth-01")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Scenes)
	assert.NotContains(t, report.Phases, PhaseOrphans)
	assert.Empty(t, report.Findings, "orphans and other scenes are not reported")

	report, err = c.RunScene(context.Background(), m, "auth-02")
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	assert.Equal(t, "S002", report.Findings[0].Code)

	_, err = c.RunScene(context.Background(), m, "auth-03")
	require.Error(t, err)
	se := errors.FromError(err, "")
	assert.Equal(t, "S010", se.Code)
	assert.Equal(t, "Available scenes: auth-01, auth-02", se.Suggestion)
	assert.Contains(t, se.Detail, `"auth-03"`)
}
