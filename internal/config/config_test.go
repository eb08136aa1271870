package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/scenes-dev/scenes/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Dev.Port != DefaultPort {
		t.Errorf("Dev.Port = %d, want %d", cfg.Dev.Port, DefaultPort)
	}
	if cfg.Dev.Host != DefaultHost {
		t.Errorf("Dev.Host = %q, want %q", cfg.Dev.Host, DefaultHost)
	}
	if cfg.Paths.Output != DefaultOutput {
		t.Errorf("Paths.Output = %q, want %q", cfg.Paths.Output, DefaultOutput)
	}
	if cfg.Registry.Name != DefaultRegistryName {
		t.Errorf("Registry.Name = %q, want %q", cfg.Registry.Name, DefaultRegistryName)
	}
	if cfg.Paths.Extension != ".tsx" {
		t.Errorf("Paths.Extension = %q, want .tsx", cfg.Paths.Extension)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Dir() != tmpDir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), tmpDir)
	}
	if cfg.Path() != "" {
		t.Errorf("Path() = %q, want empty", cfg.Path())
	}
	if cfg.ManifestPath() != "content/scenes.ts" {
		t.Errorf("ManifestPath() = %q", cfg.ManifestPath())
	}
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, ConfigFileName)
	configJSON := `{
  "paths": {
    "manifest": "src/scenes.ts",
    "output": "dist/r",
    "extension": "jsx"
  },
  "registry": {
    "name": "acme",
    "installPrefix": "components/blocks"
  },
  "imports": {
    "runtime": ["react", "next", "solid-js"]
  },
  "dev": {
    "port": 8080,
    "debounce": "1s"
  }
}
`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.ManifestPath() != "src/scenes.ts" {
		t.Errorf("ManifestPath() = %q", cfg.ManifestPath())
	}
	if cfg.OutputPath() != "dist/r" {
		t.Errorf("OutputPath() = %q", cfg.OutputPath())
	}
	if cfg.Paths.Extension != ".jsx" {
		t.Errorf("Paths.Extension = %q, want .jsx", cfg.Paths.Extension)
	}
	if cfg.ScenesPath() != "content/scenes" {
		t.Errorf("ScenesPath() = %q, want default", cfg.ScenesPath())
	}
	if cfg.Registry.Name != "acme" {
		t.Errorf("Registry.Name = %q", cfg.Registry.Name)
	}
	if cfg.Registry.Homepage != DefaultHomepage {
		t.Errorf("Registry.Homepage = %q, want default", cfg.Registry.Homepage)
	}
	if cfg.Registry.InstallPrefix != "components/blocks" {
		t.Errorf("Registry.InstallPrefix = %q", cfg.Registry.InstallPrefix)
	}
	if len(cfg.Imports.Runtime) != 3 || cfg.Imports.Runtime[2] != "solid-js" {
		t.Errorf("Imports.Runtime = %v", cfg.Imports.Runtime)
	}
	if cfg.Imports.UIPrefix != "@/components/ui/" {
		t.Errorf("Imports.UIPrefix = %q, want default", cfg.Imports.UIPrefix)
	}
	if cfg.Dev.Port != 8080 {
		t.Errorf("Dev.Port = %d, want 8080", cfg.Dev.Port)
	}
	if cfg.Dev.Debounce != time.Second {
		t.Errorf("Dev.Debounce = %v, want 1s", cfg.Dev.Debounce)
	}
	if cfg.Path() != configPath {
		t.Errorf("Path() = %q, want %q", cfg.Path(), configPath)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("SCENES_PATHS_OUTPUT", "build/registry")
	t.Setenv("SCENES_REGISTRY_HOMEPAGE", "https://example.com")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.OutputPath() != "build/registry" {
		t.Errorf("OutputPath() = %q, want env override", cfg.OutputPath())
	}
	if cfg.Registry.Homepage != "https://example.com" {
		t.Errorf("Registry.Homepage = %q, want env override", cfg.Registry.Homepage)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(tmpDir)
	if !errors.HasCode(err, "S020") {
		t.Fatalf("Load error = %v, want S020", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port too high", func(c *Config) { c.Dev.Port = 70000 }, true},
		{"negative port", func(c *Config) { c.Dev.Port = -1 }, true},
		{"absolute output", func(c *Config) { c.Paths.Output = "/tmp/r" }, true},
		{"escaping manifest", func(c *Config) { c.Paths.Manifest = "../scenes.ts" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveTo_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := New()
	cfg.Name = "gallery"
	cfg.Publish.Bucket = "scenes-registry"

	path := filepath.Join(tmpDir, ConfigFileName)
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if data[len(data)-1] != '\n' {
		t.Error("saved config should end with a newline")
	}

	loaded, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Name != "gallery" || loaded.Publish.Bucket != "scenes-registry" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestSave_NoPath(t *testing.T) {
	if err := New().Save(); err == nil {
		t.Error("Save without a config path should fail")
	}
}

func TestPaths(t *testing.T) {
	cfg := New()
	cfg.SetDir("/project")
	cfg.Paths.Output = "./public//r/"

	if got := cfg.OutputPath(); got != "public/r" {
		t.Errorf("OutputPath() = %q, want public/r", got)
	}
	if got := cfg.AbsOutputPath(); got != filepath.Join("/project", "public", "r") {
		t.Errorf("AbsOutputPath() = %q", got)
	}
	if got := cfg.Abs("/elsewhere"); got != "/elsewhere" {
		t.Errorf("Abs(absolute) = %q", got)
	}
	if got := cfg.VocabularyPath(); got != "" {
		t.Errorf("VocabularyPath() = %q, want empty", got)
	}
	if got := cfg.DevURL(); got != "http://localhost:3100" {
		t.Errorf("DevURL() = %q", got)
	}

	cfg.Dev.Host = "0.0.0.0"
	cfg.Dev.Port = 8080
	if got := cfg.DevAddress(); got != "0.0.0.0:8080" {
		t.Errorf("DevAddress() = %q", got)
	}
}

func TestLayoutAndClassifier(t *testing.T) {
	cfg := New()
	cfg.Paths.Scenes = "src/scenes/"
	cfg.Registry.InstallPrefix = "components/blocks/"

	layout := cfg.Layout()
	if layout.ScenesDir != "src/scenes" || layout.InstallPrefix != "components/blocks" || layout.Extension != ".tsx" {
		t.Errorf("Layout() = %+v", layout)
	}

	cls := cfg.Classifier()
	if cls.UIPrefix != "@/components/ui/" || cls.AliasPrefix != "@/" {
		t.Errorf("Classifier() = %+v", cls)
	}
	if !cls.IsRuntime("next") || cls.IsRuntime("recharts") {
		t.Errorf("Classifier().Runtime = %v", cls.Runtime)
	}
}

func TestFindProjectRoot(t *testing.T) {
	tmpDir := t.TempDir()
	nested := filepath.Join(tmpDir, "content", "scenes")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	root, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if root != nested {
		t.Errorf("without scenes.json root = %q, want start dir %q", root, nested)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, ConfigFileName), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	root, err = FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if root != tmpDir {
		t.Errorf("FindProjectRoot = %q, want %q", root, tmpDir)
	}
}
