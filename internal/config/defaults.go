package config

import "fmt"

// Reference layout of the project this tool was first built for. Kept as
// defaults so a bare invocation behaves exactly like the original build script.
const (
	defaultPackage     = "google"
	defaultStagingDir  = "docs_build"
	defaultPublishDir  = "docs/latest"
	defaultDataDir     = ".docgate"
	defaultIndexSource = "google.resumable_media.rst"
	defaultPackageStub = "google.resumable_media.requests.rst"
)

// ConfigDefaultApplier applies defaults for a specific configuration domain.
type ConfigDefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier applies defaults across all configuration domains.
type CompositeDefaultApplier struct {
	appliers []ConfigDefaultApplier
}

// NewDefaultApplier creates a composite default applier with all domain appliers.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []ConfigDefaultApplier{
			&ProjectDefaultApplier{},
			&PathsDefaultApplier{},
			&ToolsDefaultApplier{},
			&StubsDefaultApplier{},
			&GateDefaultApplier{},
			&ServicesDefaultApplier{},
			&WatchDefaultApplier{},
			&LoggingDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// ProjectDefaultApplier handles project identity defaults.
type ProjectDefaultApplier struct{}

func (p *ProjectDefaultApplier) Domain() string { return "project" }

func (p *ProjectDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Package == "" {
		cfg.Package = defaultPackage
	}
	if cfg.Project.Title == "" {
		cfg.Project.Title = cfg.Package
	}
	return nil
}

// PathsDefaultApplier handles directory layout defaults.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Paths.Staging == "" {
		cfg.Paths.Staging = defaultStagingDir
	}
	if cfg.Paths.Publish == "" {
		cfg.Paths.Publish = defaultPublishDir
	}
	if cfg.Paths.Data == "" {
		cfg.Paths.Data = defaultDataDir
	}
	return nil
}

// ToolsDefaultApplier handles generator and builder defaults.
type ToolsDefaultApplier struct{}

func (t *ToolsDefaultApplier) Domain() string { return "tools" }

func (t *ToolsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Generator.Command == "" {
		cfg.Generator.Command = "sphinx-apidoc"
	}
	if len(cfg.Generator.Options) == 0 {
		cfg.Generator.Options = []string{"members", "inherited-members", "show-inheritance", "undoc-members"}
	}
	if cfg.Builder.Command == "" {
		cfg.Builder.Command = "sphinx-build"
	}
	if cfg.Builder.Format == "" {
		cfg.Builder.Format = "html"
	}
	return nil
}

// StubsDefaultApplier handles stub naming and rewrite defaults.
type StubsDefaultApplier struct{}

func (s *StubsDefaultApplier) Domain() string { return "stubs" }

func (s *StubsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Stubs.IndexSource == "" {
		cfg.Stubs.IndexSource = defaultIndexSource
	}
	if cfg.Stubs.PackageStub == "" {
		cfg.Stubs.PackageStub = defaultPackageStub
	}
	if len(cfg.Rewrite.StripOptions) == 0 {
		cfg.Rewrite.StripOptions = []string{"inherited-members"}
	}
	if cfg.Rewrite.ToctreeMaxdepth <= 0 {
		cfg.Rewrite.ToctreeMaxdepth = 4
	}
	return nil
}

// GateDefaultApplier handles volatile-file and CI detection defaults.
type GateDefaultApplier struct{}

func (g *GateDefaultApplier) Domain() string { return "gate" }

func (g *GateDefaultApplier) ApplyDefaults(cfg *Config) error {
	if len(cfg.Volatile) == 0 {
		cfg.Volatile = []string{".buildinfo"}
	}
	if len(cfg.CI.Env) == 0 {
		cfg.CI.Env = []string{"CIRCLECI"}
	}
	if len(cfg.CI.Names) == 0 {
		cfg.CI.Names = []string{"kokoro"}
	}
	return nil
}

// ServicesDefaultApplier handles events and history defaults.
type ServicesDefaultApplier struct{}

func (s *ServicesDefaultApplier) Domain() string { return "services" }

func (s *ServicesDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Events.URL == "" {
		cfg.Events.URL = "nats://127.0.0.1:4222"
	}
	if cfg.Events.Subject == "" {
		cfg.Events.Subject = "docgate.runs"
	}
	if cfg.History.Keep <= 0 {
		cfg.History.Keep = 200
	}
	return nil
}

// WatchDefaultApplier handles continuous-mode defaults.
type WatchDefaultApplier struct{}

func (w *WatchDefaultApplier) Domain() string { return "watch" }

func (w *WatchDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Watch.Debounce == "" {
		cfg.Watch.Debounce = "2s"
	}
	return nil
}

// LoggingDefaultApplier handles log output defaults.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}
