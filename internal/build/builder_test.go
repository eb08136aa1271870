package build

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scenes-dev/scenes/internal/config"
	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/registry"
	"github.com/scenes-dev/scenes/internal/scene"
)

var (
	dashboard = scene.Record{
		ID:                   "dashboard-01",
		Category:             "dashboard",
		DisplayName:          "SaaS Dashboard",
		Description:          "Sidebar, charts & tables",
		RegistryDependencies: []string{"card"},
		Dependencies:         []string{"recharts"},
	}
	auth = scene.Record{
		ID:                   "auth-01",
		Category:             "auth",
		DisplayName:          "Split Screen Auth",
		RegistryDependencies: []string{"button"},
	}
)

type sourceFile struct {
	rec     scene.Record
	content string
}

// newProject creates a project root with the given scene sources.
func newProject(t *testing.T, sources ...sourceFile) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.New()
	cfg.SetDir(dir)

	layout := cfg.Layout()
	for _, s := range sources {
		p := filepath.Join(dir, filepath.FromSlash(layout.SourcePath(s.rec)))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(s.content), 0644))
	}
	return cfg
}

func readItem(t *testing.T, cfg *config.Config, name string) *registry.Item {
	t.Helper()
	item, err := registry.ReadItem(os.DirFS(cfg.AbsOutputPath()), name)
	require.NoError(t, err)
	return item
}

func outputFiles(t *testing.T, cfg *config.Config) []string {
	t.Helper()
	entries, err := os.ReadDir(cfg.AbsOutputPath())
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestBuild(t *testing.T) {
	dashSrc := "import { Card } from \"@/components/ui/card\";\n\nexport default function D() {\n  return <Card>&nbsp;</Card>;\n}\n"
	cfg := newProject(t,
		sourceFile{dashboard, dashSrc},
		sourceFile{auth, "export default function A() {}\n"},
	)

	var steps []string
	b := New(cfg, Options{OnProgress: func(step string) { steps = append(steps, step) }})

	result, err := b.Build(context.Background(), []scene.Record{dashboard, auth})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Items)
	assert.Equal(t, []string{"Reading scene sources...", "Writing registry items...", "Writing index..."}, steps)
	require.Len(t, result.Written, 2)
	assert.Equal(t, "dashboard-01", result.Written[0].Name)
	assert.Equal(t, "auth-01", result.Written[1].Name)
	require.NotNil(t, result.Index)
	assert.Equal(t, filepath.Join(cfg.AbsOutputPath(), "index.json"), result.Index.Path)
	assert.ElementsMatch(t, []string{"dashboard-01.json", "auth-01.json", "index.json"}, outputFiles(t, cfg))

	item := readItem(t, cfg, "dashboard-01.json")
	assert.Equal(t, registry.ItemSchemaURL, item.Schema)
	assert.Equal(t, "dashboard-01", item.Name)
	assert.Equal(t, "SaaS Dashboard", item.Title)
	assert.Equal(t, []string{"card"}, item.RegistryDependencies)
	assert.Equal(t, []string{"recharts"}, item.Dependencies)
	assert.Equal(t, []string{"dashboard"}, item.Categories)
	require.Len(t, item.Files, 1)
	assert.Equal(t, "components/scenes/dashboard/dashboard-01.tsx", item.Files[0].Path)
	assert.Equal(t, dashSrc, item.Files[0].Content)

	raw, err := os.ReadFile(result.Written[0].Path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(raw), "}\n"))
	assert.Contains(t, string(raw), "&nbsp;")
	assert.Equal(t, registry.Checksum(raw), result.Written[0].Checksum)
	assert.Equal(t, int64(len(raw)), result.Written[0].Size)

	idx, err := registry.ReadIndex(os.DirFS(cfg.AbsOutputPath()), "index.json")
	require.NoError(t, err)
	assert.Equal(t, "scenes", idx.Name)
	assert.Equal(t, "https://scenes.so", idx.Homepage)
	assert.Equal(t, []string{"dashboard-01", "auth-01"}, idx.Names())
	assert.Equal(t, *item, idx.Items[0])
}

func TestBuild_Empty(t *testing.T) {
	cfg := newProject(t)

	result, err := New(cfg, Options{}).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result.Items)
	assert.Empty(t, result.Written)
	assert.Equal(t, []string{"index.json"}, outputFiles(t, cfg))

	raw, err := os.ReadFile(filepath.Join(cfg.AbsOutputPath(), "index.json"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"items": []`)
}

func TestBuild_Idempotent(t *testing.T) {
	cfg := newProject(t,
		sourceFile{dashboard, "export default function D() {}\n"},
		sourceFile{auth, "export default function A() {}\n"},
	)
	records := []scene.Record{dashboard, auth}

	snapshot := func() map[string]string {
		out := make(map[string]string)
		for _, name := range outputFiles(t, cfg) {
			data, err := os.ReadFile(filepath.Join(cfg.AbsOutputPath(), name))
			require.NoError(t, err)
			out[name] = string(data)
		}
		return out
	}

	_, err := New(cfg, Options{}).Build(context.Background(), records)
	require.NoError(t, err)
	first := snapshot()

	_, err = New(cfg, Options{}).Build(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, first, snapshot())
}

func TestBuild_ItemsMatchRecords(t *testing.T) {
	records := []scene.Record{dashboard, auth}
	cfg := newProject(t, sourceFile{dashboard, "d"}, sourceFile{auth, "a"})

	_, err := New(cfg, Options{}).Build(context.Background(), records)
	require.NoError(t, err)

	idx, err := registry.ReadIndex(os.DirFS(cfg.AbsOutputPath()), "index.json")
	require.NoError(t, err)
	layout := cfg.Layout()
	for _, item := range idx.Items {
		var matches []scene.Record
		for _, r := range records {
			if r.ID == item.Name {
				matches = append(matches, r)
			}
		}
		require.Len(t, matches, 1, item.Name)
		assert.Equal(t, layout.InstallPath(matches[0]), item.Files[0].Path)
	}
}

func TestBuild_MissingSourceWritesNothing(t *testing.T) {
	cfg := newProject(t, sourceFile{dashboard, "d"})

	result, err := New(cfg, Options{}).Build(context.Background(), []scene.Record{dashboard, auth})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, errors.HasCode(err, "S005"))
	assert.Contains(t, err.Error(), "auth-01 (content/scenes/auth/auth-01.tsx)")
	assert.Empty(t, outputFiles(t, cfg))
}

func TestBuild_WriteFailureKeepsEarlierArtifacts(t *testing.T) {
	cfg := newProject(t, sourceFile{dashboard, "d"}, sourceFile{auth, "a"})

	// A non-empty directory where auth-01.json belongs makes its rename fail.
	blocker := filepath.Join(cfg.AbsOutputPath(), "auth-01.json", "keep")
	require.NoError(t, os.MkdirAll(blocker, 0755))

	result, err := New(cfg, Options{}).Build(context.Background(), []scene.Record{dashboard, auth})
	require.Error(t, err)

	var werr *WriteError
	require.True(t, stderrors.As(err, &werr))
	assert.Equal(t, []string{"dashboard-01"}, werr.Written)
	assert.Equal(t, "auth-01", werr.Failed)
	assert.True(t, errors.HasCode(err, "S006"))

	require.NotNil(t, result)
	require.Len(t, result.Written, 1)
	assert.Nil(t, result.Index)

	item := readItem(t, cfg, "dashboard-01.json")
	assert.Equal(t, "d", item.Files[0].Content)

	for _, name := range outputFiles(t, cfg) {
		assert.False(t, strings.HasPrefix(name, "."), "temp file %s left behind", name)
		assert.NotEqual(t, "index.json", name)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	cfg := newProject(t, sourceFile{dashboard, "d"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(cfg, Options{}).Build(ctx, []scene.Record{dashboard})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, outputFiles(t, cfg))
}

func TestBuilder_Clean(t *testing.T) {
	cfg := newProject(t, sourceFile{dashboard, "d"}, sourceFile{auth, "a"})
	b := New(cfg, Options{})

	_, err := b.Build(context.Background(), []scene.Record{dashboard, auth})
	require.NoError(t, err)

	foreign := filepath.Join(cfg.AbsOutputPath(), "styles.json")
	require.NoError(t, os.WriteFile(foreign, []byte(`{"theme":"dark"}`), 0644))

	removed, err := b.Clean()
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
	assert.Equal(t, []string{"styles.json"}, outputFiles(t, cfg))
}

func TestBuilder_CleanMissingDir(t *testing.T) {
	cfg := newProject(t)
	removed, err := New(cfg, Options{}).Clean()
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestWriteError(t *testing.T) {
	inner := errors.New("S006").WithFile("public/r/x.json")
	err := &WriteError{Written: []string{"a", "b"}, Failed: "x", Err: inner}

	assert.Equal(t, "writing x failed after 2 artifact(s) written: S006: Artifact write failed", err.Error())
	assert.ErrorIs(t, err, inner)

	err.Err = errors.New("S006").WithFile("public/r/x.json").Wrap(os.ErrPermission)
	assert.Equal(t, "writing x failed after 2 artifact(s) written: S006: Artifact write failed: permission denied", err.Error())
	assert.ErrorIs(t, err, os.ErrPermission)
}
