package config

import (
	"path/filepath"
	"time"
)

// Config represents the application configuration
type Config struct {
	Project   ProjectConfig   `yaml:"project"`
	Package   string          `yaml:"package"`
	Paths     PathsConfig     `yaml:"paths"`
	Generator GeneratorConfig `yaml:"generator"`
	Builder   BuilderConfig   `yaml:"builder"`
	Stubs     StubsConfig     `yaml:"stubs"`
	Rewrite   RewriteConfig   `yaml:"rewrite"`
	Volatile  []string        `yaml:"volatile,omitempty"`
	CI        CIConfig        `yaml:"ci"`
	Links     LinksConfig     `yaml:"links"`
	Events    EventsConfig    `yaml:"events"`
	History   HistoryConfig   `yaml:"history"`
	Watch     WatchConfig     `yaml:"watch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ProjectConfig describes the documented project itself.
type ProjectConfig struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`
	// Readme, when set, points at a Markdown file whose intro paragraph is
	// folded into the rewritten index stub.
	Readme string `yaml:"readme,omitempty"`
}

// PathsConfig holds the directory layout docgate operates on. All paths are
// relative to the repository root unless absolute.
type PathsConfig struct {
	Staging string `yaml:"staging"` // generated doc sources
	Publish string `yaml:"publish"` // rendered, checked-in HTML
	Data    string `yaml:"data"`    // run reports and history, never gated
}

// GeneratorConfig configures the external stub generator.
type GeneratorConfig struct {
	Command string `yaml:"command"`
	// Options populates SPHINX_APIDOC_OPTIONS for the child process.
	Options  []string `yaml:"options,omitempty"`
	Separate *bool    `yaml:"separate,omitempty"` // one stub per module
	Force    *bool    `yaml:"force,omitempty"`    // overwrite existing stubs
}

// SeparateEnabled reports whether per-module stub files are requested (default true).
func (g GeneratorConfig) SeparateEnabled() bool { return g.Separate == nil || *g.Separate }

// ForceEnabled reports whether stub overwriting is requested (default true).
func (g GeneratorConfig) ForceEnabled() bool { return g.Force == nil || *g.Force }

// BuilderConfig configures the external HTML compiler.
type BuilderConfig struct {
	Command string `yaml:"command"`
	Format  string `yaml:"format,omitempty"` // output builder, html unless overridden
	Strict  *bool  `yaml:"strict,omitempty"` // warnings are fatal
	// Doctrees overrides the doctree cache location; empty means
	// <staging>/build/doctrees.
	Doctrees string `yaml:"doctrees,omitempty"`
}

// StrictEnabled reports whether strict mode is requested (default true).
func (b BuilderConfig) StrictEnabled() bool { return b.Strict == nil || *b.Strict }

// DoctreesDir resolves the doctree cache directory against the staging dir.
func (b BuilderConfig) DoctreesDir(stagingDir string) string {
	if b.Doctrees != "" {
		return b.Doctrees
	}
	return filepath.Join(stagingDir, "build", "doctrees")
}

// StubsConfig names the generated stub files the pipeline manipulates.
type StubsConfig struct {
	// Prune lists stubs deleted after generation. Empty means the standard
	// pair: modules.rst plus the top-level package stub.
	Prune []string `yaml:"prune,omitempty"`
	// IndexSource is the stub promoted to index.rst.
	IndexSource string `yaml:"index_source"`
	// PackageStub is the stub the package rewriter targets.
	PackageStub string `yaml:"package_stub"`
}

// RewriteConfig configures the two rewrite steps.
type RewriteConfig struct {
	// StripOptions lists automodule option names removed from the package
	// stub, without surrounding colons.
	StripOptions    []string `yaml:"strip_options,omitempty"`
	ToctreeMaxdepth int      `yaml:"toctree_maxdepth,omitempty"`
	// IndexCommand and PackageCommand, when non-empty, replace the native
	// rewriters with external argv invocations run in the staging dir.
	IndexCommand   []string `yaml:"index_command,omitempty"`
	PackageCommand []string `yaml:"package_command,omitempty"`
}

// CIConfig controls continuous-integration detection.
type CIConfig struct {
	// Env lists environment variables whose presence switches on CI mode.
	Env []string `yaml:"env,omitempty"`
	// Names lists positional-argument identifiers treated as CI mode.
	Names []string `yaml:"names,omitempty"`
}

// LinksConfig controls post-render link verification.
type LinksConfig struct {
	Check  bool `yaml:"check"`
	Strict bool `yaml:"strict"` // broken links fail the run instead of warning
}

// EventsConfig controls run-event publishing.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// HistoryConfig controls the local run-history store.
type HistoryConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	// Keep bounds the number of retained runs; older rows are pruned.
	Keep int `yaml:"keep,omitempty"`
}

// RecordingEnabled reports whether run history is kept (default true).
func (h HistoryConfig) RecordingEnabled() bool { return h.Enabled == nil || *h.Enabled }

// WatchConfig controls continuous verification mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce,omitempty"` // duration string (default 2s)
	// Interval, when non-empty, schedules periodic full verification runs
	// independent of file events.
	Interval    string `yaml:"interval,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// DebounceDuration returns the parsed debounce window. Validation guarantees
// parseability; a zero value falls back to the default window.
func (w WatchConfig) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(w.Debounce)
	if err != nil || d <= 0 {
		return 2 * time.Second
	}
	return d
}

// IntervalDuration returns the parsed scheduler interval, zero when disabled.
func (w WatchConfig) IntervalDuration() time.Duration {
	if w.Interval == "" {
		return 0
	}
	d, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 0
	}
	return d
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// StagingDir resolves the staging directory against the repository root.
func (c *Config) StagingDir(root string) string { return resolve(root, c.Paths.Staging) }

// PublishDir resolves the published directory against the repository root.
func (c *Config) PublishDir(root string) string { return resolve(root, c.Paths.Publish) }

// DataDir resolves the data directory against the repository root.
func (c *Config) DataDir(root string) string { return resolve(root, c.Paths.Data) }

// PackageDir resolves the scanned package directory against the repository root.
func (c *Config) PackageDir(root string) string { return resolve(root, c.Package) }

// PruneList returns the effective stub prune list, deriving the standard pair
// from the package name when unset.
func (c *Config) PruneList() []string {
	if len(c.Stubs.Prune) > 0 {
		return c.Stubs.Prune
	}
	return []string{"modules.rst", c.Package + ".rst"}
}

func resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
