package config

import (
	"encoding/json"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/scenes-dev/scenes/internal/errors"
	"github.com/scenes-dev/scenes/internal/imports"
	"github.com/scenes-dev/scenes/internal/scene"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "scenes.json"

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "SCENES"

	// DefaultPort is the default dev server port.
	DefaultPort = 3100

	// DefaultHost is the default dev server host.
	DefaultHost = "localhost"

	// DefaultOutput is the default artifact output directory.
	DefaultOutput = "public/r"

	// DefaultRegistryName is the registry name written into the index artifact.
	DefaultRegistryName = "scenes"

	// DefaultHomepage is the registry homepage written into the index artifact.
	DefaultHomepage = "https://scenes.so"
)

// Config represents the complete scenes.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Paths locates the manifest, scene sources, and artifact output.
	Paths PathsConfig `json:"paths" mapstructure:"paths"`

	// Registry describes the published registry.
	Registry RegistryConfig `json:"registry" mapstructure:"registry"`

	// Imports configures import classification.
	Imports ImportsConfig `json:"imports" mapstructure:"imports"`

	// Vocabulary is an optional YAML file replacing the built-in vocabulary.
	Vocabulary string `json:"vocabulary,omitempty" mapstructure:"vocabulary"`

	// Dev contains dev server configuration.
	Dev DevConfig `json:"dev" mapstructure:"dev"`

	// Publish contains artifact upload configuration.
	Publish PublishConfig `json:"publish" mapstructure:"publish"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// root is the project root all relative paths resolve against.
	root string
}

// PathsConfig contains project-relative paths.
type PathsConfig struct {
	// Manifest is the hand-maintained scene manifest.
	Manifest string `json:"manifest" mapstructure:"manifest"`

	// Scenes is the directory holding <category>/<id><ext> sources.
	Scenes string `json:"scenes" mapstructure:"scenes"`

	// Output is the directory generated artifacts are written to.
	Output string `json:"output" mapstructure:"output"`

	// Extension is the scene source file extension, including the dot.
	Extension string `json:"extension" mapstructure:"extension"`
}

// RegistryConfig describes the published registry.
type RegistryConfig struct {
	// Name is written into the index artifact.
	Name string `json:"name" mapstructure:"name"`

	// Homepage is written into the index artifact.
	Homepage string `json:"homepage" mapstructure:"homepage"`

	// InstallPrefix is the consumer-side directory scenes install into.
	InstallPrefix string `json:"installPrefix" mapstructure:"installPrefix"`
}

// ImportsConfig configures the import classifier.
type ImportsConfig struct {
	// UIPrefix marks imports of shared UI components.
	UIPrefix string `json:"uiPrefix" mapstructure:"uiPrefix"`

	// AliasPrefix marks project-internal imports.
	AliasPrefix string `json:"aliasPrefix" mapstructure:"aliasPrefix"`

	// Runtime lists framework packages that are never dependencies.
	Runtime []string `json:"runtime" mapstructure:"runtime"`
}

// DevConfig contains dev server settings.
type DevConfig struct {
	// Host is the host to bind to.
	Host string `json:"host" mapstructure:"host"`

	// Port is the port to run the dev server on.
	Port int `json:"port" mapstructure:"port"`

	// Debounce is how long to wait for more changes before rebuilding.
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`

	// Ignore contains glob patterns to ignore during watch.
	Ignore []string `json:"ignore,omitempty" mapstructure:"ignore"`
}

// PublishConfig contains artifact upload settings.
type PublishConfig struct {
	// Bucket is the destination S3 bucket.
	Bucket string `json:"bucket,omitempty" mapstructure:"bucket"`

	// Prefix is prepended to every object key.
	Prefix string `json:"prefix,omitempty" mapstructure:"prefix"`

	// Region is the bucket region.
	Region string `json:"region,omitempty" mapstructure:"region"`

	// Endpoint overrides the S3 endpoint (S3-compatible stores).
	Endpoint string `json:"endpoint,omitempty" mapstructure:"endpoint"`

	// CacheControl is set on every uploaded object.
	CacheControl string `json:"cacheControl,omitempty" mapstructure:"cacheControl"`
}

// New creates a new Config with default values rooted at the current directory.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			Manifest:  "content/scenes.ts",
			Scenes:    "content/scenes",
			Output:    DefaultOutput,
			Extension: ".tsx",
		},
		Registry: RegistryConfig{
			Name:          DefaultRegistryName,
			Homepage:      DefaultHomepage,
			InstallPrefix: "components/scenes",
		},
		Imports: ImportsConfig{
			UIPrefix:    "@/components/ui/",
			AliasPrefix: "@/",
			Runtime:     []string{"react", "react-dom", "next"},
		},
		Dev: DevConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Debounce: 150 * time.Millisecond,
			Ignore:   []string{"**/node_modules/**", "**/.git/**", "**/*.swp", "**/*~"},
		},
		Publish: PublishConfig{
			Prefix:       "r/",
			Region:       "us-east-1",
			CacheControl: "public, max-age=300",
		},
		root: ".",
	}
}

// Load reads configuration from the specified directory. A directory without
// scenes.json yields the defaults rooted at dir.
func Load(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return loadViper(viper.New(), dir, "")
	}
	return LoadFile(configPath)
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	return loadViper(v, filepath.Dir(path), path)
}

func loadViper(v *viper.Viper, root, path string) (*Config, error) {
	setDefaults(v, New())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.New("S020").
				WithFile(path).
				WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
				WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New("S020").WithFile(path).Wrap(err)
	}

	cfg.configPath = path
	cfg.root = root
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key with viper so environment overrides apply
// even when scenes.json omits the key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("name", d.Name)
	v.SetDefault("paths.manifest", d.Paths.Manifest)
	v.SetDefault("paths.scenes", d.Paths.Scenes)
	v.SetDefault("paths.output", d.Paths.Output)
	v.SetDefault("paths.extension", d.Paths.Extension)
	v.SetDefault("registry.name", d.Registry.Name)
	v.SetDefault("registry.homepage", d.Registry.Homepage)
	v.SetDefault("registry.installPrefix", d.Registry.InstallPrefix)
	v.SetDefault("imports.uiPrefix", d.Imports.UIPrefix)
	v.SetDefault("imports.aliasPrefix", d.Imports.AliasPrefix)
	v.SetDefault("imports.runtime", d.Imports.Runtime)
	v.SetDefault("vocabulary", d.Vocabulary)
	v.SetDefault("dev.host", d.Dev.Host)
	v.SetDefault("dev.port", d.Dev.Port)
	v.SetDefault("dev.debounce", d.Dev.Debounce.String())
	v.SetDefault("dev.ignore", d.Dev.Ignore)
	v.SetDefault("publish.bucket", d.Publish.Bucket)
	v.SetDefault("publish.prefix", d.Publish.Prefix)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.endpoint", d.Publish.Endpoint)
	v.SetDefault("publish.cacheControl", d.Publish.CacheControl)
}

// Save writes the configuration to the file it was loaded from.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.Newf(errors.CategoryConfig, "no config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo writes the configuration to the specified path.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("S020").Wrap(err)
	}

	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("S020").WithFile(path).Wrap(err)
	}

	c.configPath = path
	c.root = filepath.Dir(path)
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the project root directory.
func (c *Config) Dir() string {
	if c.root == "" {
		return "."
	}
	return c.root
}

// SetDir re-roots the configuration.
func (c *Config) SetDir(dir string) {
	c.root = dir
}

// FS returns the project root as a read-only filesystem.
func (c *Config) FS() fs.FS {
	return os.DirFS(c.Dir())
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	d := New()

	if c.Paths.Manifest == "" {
		c.Paths.Manifest = d.Paths.Manifest
	}
	if c.Paths.Scenes == "" {
		c.Paths.Scenes = d.Paths.Scenes
	}
	if c.Paths.Output == "" {
		c.Paths.Output = d.Paths.Output
	}
	if c.Paths.Extension == "" {
		c.Paths.Extension = d.Paths.Extension
	}
	if !strings.HasPrefix(c.Paths.Extension, ".") {
		c.Paths.Extension = "." + c.Paths.Extension
	}

	if c.Registry.Name == "" {
		c.Registry.Name = d.Registry.Name
	}
	if c.Registry.Homepage == "" {
		c.Registry.Homepage = d.Registry.Homepage
	}
	if c.Registry.InstallPrefix == "" {
		c.Registry.InstallPrefix = d.Registry.InstallPrefix
	}

	if c.Imports.UIPrefix == "" {
		c.Imports.UIPrefix = d.Imports.UIPrefix
	}
	if c.Imports.AliasPrefix == "" {
		c.Imports.AliasPrefix = d.Imports.AliasPrefix
	}
	if c.Imports.Runtime == nil {
		c.Imports.Runtime = d.Imports.Runtime
	}

	if c.Dev.Host == "" {
		c.Dev.Host = DefaultHost
	}
	if c.Dev.Port == 0 {
		c.Dev.Port = DefaultPort
	}
	if c.Dev.Debounce <= 0 {
		c.Dev.Debounce = d.Dev.Debounce
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Dev.Port < 0 || c.Dev.Port > 65535 {
		return errors.New("S022").
			WithDetail("dev.port must be between 0 and 65535")
	}
	for key, p := range map[string]string{
		"paths.manifest": c.Paths.Manifest,
		"paths.scenes":   c.Paths.Scenes,
		"paths.output":   c.Paths.Output,
	} {
		if filepath.IsAbs(p) || strings.HasPrefix(path.Clean(filepath.ToSlash(p)), "../") {
			return errors.New("S022").
				WithDetailf("%s must be relative to the project root, got %q", key, p)
		}
	}
	return nil
}

// rel normalizes a project-relative path to the slash form fs.FS expects.
func rel(p string) string {
	return path.Clean(filepath.ToSlash(p))
}

// ManifestPath returns the manifest path relative to the project root.
func (c *Config) ManifestPath() string {
	return rel(c.Paths.Manifest)
}

// ScenesPath returns the scene source directory relative to the project root.
func (c *Config) ScenesPath() string {
	return rel(c.Paths.Scenes)
}

// OutputPath returns the artifact directory relative to the project root.
func (c *Config) OutputPath() string {
	return rel(c.Paths.Output)
}

// AbsOutputPath returns the absolute artifact directory.
func (c *Config) AbsOutputPath() string {
	return c.Abs(c.Paths.Output)
}

// Abs resolves a project-relative path against the project root.
func (c *Config) Abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), filepath.FromSlash(p))
}

// VocabularyPath returns the vocabulary override path, or "" for the built-in one.
func (c *Config) VocabularyPath() string {
	if c.Vocabulary == "" {
		return ""
	}
	return rel(c.Vocabulary)
}

// Layout returns the scene path conventions.
func (c *Config) Layout() scene.Layout {
	return scene.Layout{
		ScenesDir:     c.ScenesPath(),
		Extension:     c.Paths.Extension,
		InstallPrefix: rel(c.Registry.InstallPrefix),
	}
}

// Classifier returns the import classifier for the configured prefixes.
func (c *Config) Classifier() *imports.Classifier {
	return &imports.Classifier{
		UIPrefix:    c.Imports.UIPrefix,
		AliasPrefix: c.Imports.AliasPrefix,
		Runtime:     c.Imports.Runtime,
	}
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return c.Dev.Host + ":" + strconv.Itoa(c.Dev.Port)
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// scenes.json. When none is found, startDir itself is the root.
func FindProjectRoot(startDir string) (string, error) {
	start, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for dir := start; ; {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return start, nil
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration for the project containing the
// current working directory.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
