// Package config loads, defaults, and validates the docgate configuration
// file. A missing file is not an error for the standard entry points: the
// zero configuration reproduces the original build script's fixed layout.
package config

import (
	"fmt"
	"log/slog"
	"os"

	dgerrors "git.home.luguber.info/inful/docgate/internal/errors"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config filename looked up in the working directory.
const DefaultPath = "docgate.yaml"

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	if err := NewDefaultApplier().ApplyDefaults(cfg); err != nil {
		// Defaults over a zero value cannot fail; treat it as a programming error.
		panic(fmt.Sprintf("applying defaults to zero config: %v", err))
	}
	return cfg
}

// Load loads configuration from the specified file. The file must exist.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	if err := loadEnvFile(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, dgerrors.ConfigNotFound(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := NewDefaultApplier().ApplyDefaults(&config); err != nil {
		return nil, err
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads the given path, falling back to pure defaults when the
// default path is absent. An explicitly requested path must exist.
func LoadOrDefault(configPath string) (*Config, error) {
	explicit := configPath != ""
	if !explicit {
		configPath = DefaultPath
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, dgerrors.ConfigNotFound(configPath)
		}
		if err := loadEnvFile(); err != nil {
			slog.Debug("no .env file loaded", "error", err)
		}
		return Default(), nil
	}
	return Load(configPath)
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	strict := true
	example := Config{
		Project: ProjectConfig{
			Title:       "google-resumable-media",
			Description: "Utilities for Google Media Downloads and Resumable Uploads",
			Readme:      "README.md",
		},
		Package: "google",
		Paths: PathsConfig{
			Staging: "docs_build",
			Publish: "docs/latest",
			Data:    ".docgate",
		},
		Generator: GeneratorConfig{
			Command: "sphinx-apidoc",
			Options: []string{"members", "inherited-members", "show-inheritance", "undoc-members"},
		},
		Builder: BuilderConfig{
			Command: "sphinx-build",
			Format:  "html",
			Strict:  &strict,
		},
		Stubs: StubsConfig{
			Prune:       []string{"modules.rst", "google.rst"},
			IndexSource: "google.resumable_media.rst",
			PackageStub: "google.resumable_media.requests.rst",
		},
		Rewrite: RewriteConfig{
			StripOptions:    []string{"inherited-members"},
			ToctreeMaxdepth: 4,
		},
		Volatile: []string{".buildinfo"},
		CI: CIConfig{
			Env:   []string{"CIRCLECI"},
			Names: []string{"kokoro"},
		},
		Watch: WatchConfig{
			Debounce: "2s",
		},
		Logging: LoggingConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
