// Package config loads and validates the optional .publish.yaml file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the name of the per-project configuration file.
const FileName = ".publish.yaml"

// SupportedVersion is the newest configuration format this build reads.
// Zero is treated as the current format.
const SupportedVersion = 1

// Default values for runner configuration.
const (
	DefaultPython         = "python"
	DefaultMaxOutput      = 1 << 20 // 1 MB
	DefaultArtifacts      = "dist/*"
	DefaultTestRepository = "testpypi"
	DefaultTestIndex      = "https://test.pypi.org/simple/"
	DefaultTestProjectURL = "https://test.pypi.org/project/%s/"
	DefaultProjectURL     = "https://pypi.org/project/%s/"
)

// Config holds the parsed .publish.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int          `yaml:"version"`
	Package      string       `yaml:"package"`    // distribution name; read from pyproject.toml when empty
	RawPython    string       `yaml:"python"`     // interpreter used for every tool
	RawTimeout   string       `yaml:"timeout"`    // per command, e.g. "10m"; empty means no timeout
	RawMaxOutput int          `yaml:"max_output"` // bytes captured per stream
	Requires     []string     `yaml:"requires"`   // python modules that must be importable
	Clean        CleanConfig  `yaml:"clean"`
	Test         TestConfig   `yaml:"test"`
	Build        BuildConfig  `yaml:"build"`
	Check        CheckConfig  `yaml:"check"`
	Upload       UploadConfig `yaml:"upload"`
}

// CleanConfig lists what the clean step removes.
type CleanConfig struct {
	Dirs   []string `yaml:"dirs"`   // relative to the project root; default: build, dist, <name>.egg-info
	Caches []string `yaml:"caches"` // directory names removed anywhere in the tree; default: __pycache__
}

// TestConfig lists the optional test entry points.
type TestConfig struct {
	EntryPoints []EntryPoint `yaml:"entry_points"`
}

// EntryPoint is a test script run with the interpreter when it exists.
type EntryPoint struct {
	File        string   `yaml:"file"`
	Description string   `yaml:"description"`
	Args        []string `yaml:"args"`
}

// BuildConfig controls the packaging tool invocation.
type BuildConfig struct {
	Command []string `yaml:"command"` // default: <python> -m build
	Args    []string `yaml:"args"`    // extra flags (e.g. --sdist)
}

// CheckConfig controls artifact validation.
type CheckConfig struct {
	Command   []string `yaml:"command"`   // default: <python> -m twine check
	Artifacts string   `yaml:"artifacts"` // glob relative to the project root; default: dist/*
}

// UploadConfig controls the upload tool and the registry hints printed after an upload.
type UploadConfig struct {
	Command        []string `yaml:"command"`         // default: <python> -m twine upload
	TestRepository string   `yaml:"test_repository"` // twine repository name of the test registry
	TestIndex      string   `yaml:"test_index"`      // simple index used in the install hint
	TestProjectURL string   `yaml:"test_project_url"`
	ProjectURL     string   `yaml:"project_url"`
}

// Python returns the configured interpreter or the default.
func (c *Config) Python() string {
	if c.RawPython != "" {
		return c.RawPython
	}
	return DefaultPython
}

// Timeout returns the configured per-command timeout. Zero means commands
// run to completion.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// DefaultRequires are the python modules checked when none are configured.
var DefaultRequires = []string{"build", "twine"}

// Requirements returns the configured python modules, falling back to defaults.
func (c *Config) Requirements() []string {
	if c.Requires != nil {
		return c.Requires
	}
	return DefaultRequires
}

// CleanDirs returns the output directories removed before a build.
// The egg-info directory is derived from the distribution name.
func (c *Config) CleanDirs(name string) []string {
	if len(c.Clean.Dirs) > 0 {
		return c.Clean.Dirs
	}
	dirs := []string{"build", "dist"}
	if name != "" {
		dirs = append(dirs, EggInfoDir(name))
	}
	return dirs
}

// CacheDirs returns the cache directory names removed anywhere in the tree.
func (c *Config) CacheDirs() []string {
	if len(c.Clean.Caches) > 0 {
		return c.Clean.Caches
	}
	return []string{"__pycache__"}
}

// DefaultEntryPoints are used when no test entry points are configured.
var DefaultEntryPoints = []EntryPoint{
	{File: "test_examples.py", Description: "Running test suite"},
	{File: "test_install.py", Description: "Running installation tests"},
}

// TestEntryPoints returns the configured test entry points, falling back to defaults.
func (c *Config) TestEntryPoints() []EntryPoint {
	if c.Test.EntryPoints != nil {
		return c.Test.EntryPoints
	}
	return DefaultEntryPoints
}

// BuildCommand returns the argv of the packaging tool.
func (c *Config) BuildCommand() []string {
	argv := c.orDefault(c.Build.Command, "-m", "build")
	return append(argv, c.Build.Args...)
}

// CheckCommand returns the argv prefix of the validation tool. Artifacts are appended by the caller.
func (c *Config) CheckCommand() []string {
	return c.orDefault(c.Check.Command, "-m", "twine", "check")
}

// UploadCommand returns the argv prefix of the upload tool. Artifacts are appended by the caller.
func (c *Config) UploadCommand() []string {
	return c.orDefault(c.Upload.Command, "-m", "twine", "upload")
}

// ArtifactGlob returns the glob matching built distributions.
func (c *Config) ArtifactGlob() string {
	if c.Check.Artifacts != "" {
		return c.Check.Artifacts
	}
	return DefaultArtifacts
}

// TestRepository returns the repository name passed to the upload tool for test uploads.
func (c *Config) TestRepository() string {
	if c.Upload.TestRepository != "" {
		return c.Upload.TestRepository
	}
	return DefaultTestRepository
}

// TestIndex returns the simple index URL of the test registry.
func (c *Config) TestIndex() string {
	if c.Upload.TestIndex != "" {
		return c.Upload.TestIndex
	}
	return DefaultTestIndex
}

// TestProjectURL returns the project page of name on the test registry.
func (c *Config) TestProjectURL(name string) string {
	return projectURL(c.Upload.TestProjectURL, DefaultTestProjectURL, name)
}

// ProjectURL returns the project page of name on the production registry.
func (c *Config) ProjectURL(name string) string {
	return projectURL(c.Upload.ProjectURL, DefaultProjectURL, name)
}

func projectURL(format, fallback, name string) string {
	if format == "" {
		format = fallback
	}
	if !strings.Contains(format, "%s") {
		return format
	}
	return fmt.Sprintf(format, name)
}

// orDefault returns a copy of argv, or <python> followed by args when argv is empty.
func (c *Config) orDefault(argv []string, args ...string) []string {
	if len(argv) > 0 {
		return append([]string(nil), argv...)
	}
	return append([]string{c.Python()}, args...)
}

// EggInfoDir returns the setuptools metadata directory for a distribution name.
func EggInfoDir(name string) string {
	r := strings.NewReplacer("-", "_", ".", "_")
	return r.Replace(name) + ".egg-info"
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config      *Config
	ProjectRoot string // directory holding pyproject.toml, setup.py or .publish.yaml; falls back to dir
	Path        string // config file read, empty when defaults are used
}

// projectMarkers identify a Python project root.
var projectMarkers = []string{FileName, "pyproject.toml", "setup.py", "setup.cfg"}

// Load reads .publish.yaml from the project root.
// The project root is discovered by walking upward from dir looking for a
// project marker. If no .publish.yaml exists, a default Config is returned.
func Load(dir string) (*LoadResult, error) {
	root, err := findProjectRoot(dir)
	if err != nil {
		// Not inside a recognisable project; use dir as root.
		root, err = filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", dir, err)
		}
	}

	path := filepath.Join(root, FileName)
	cfg, err := parseFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, ProjectRoot: root}, nil
		}
		return nil, err
	}
	return &LoadResult{Config: cfg, ProjectRoot: root, Path: path}, nil
}

// LoadFile reads an explicit configuration file. The project root is the
// file's directory.
func LoadFile(path string) (*LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	cfg, err := parseFile(abs)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, ProjectRoot: filepath.Dir(abs), Path: abs}, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if cfg.Version < 0 || cfg.Version > SupportedVersion {
		return nil, fmt.Errorf("%s: unsupported version %d (this build reads version %d)", filepath.Base(path), cfg.Version, SupportedVersion)
	}
	return cfg, nil
}

// findProjectRoot walks upward from dir looking for a project marker.
func findProjectRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, m := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, m)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no python project found")
		}
		dir = parent
	}
}
