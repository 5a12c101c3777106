package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	validator := newConfigurationValidator(cfg)
	return validator.validate()
}

// configurationValidator coordinates validation across all configuration domains.
type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

// validate performs configuration validation using domain-specific methods.
func (cv *configurationValidator) validate() error {
	if err := cv.validatePackage(); err != nil {
		return err
	}
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateTools(); err != nil {
		return err
	}
	if err := cv.validateStubs(); err != nil {
		return err
	}
	if err := cv.validateWatch(); err != nil {
		return err
	}
	return nil
}

func (cv *configurationValidator) validatePackage() error {
	if cv.config.Package == "" {
		return errors.New("package cannot be empty")
	}
	if filepath.IsAbs(cv.config.Package) {
		return fmt.Errorf("package must be a path relative to the repository root, got %q", cv.config.Package)
	}
	return nil
}

func (cv *configurationValidator) validatePaths() error {
	staging := filepath.Clean(cv.config.Paths.Staging)
	publish := filepath.Clean(cv.config.Paths.Publish)

	if staging == "." || staging == "" {
		return errors.New("paths.staging cannot be the repository root")
	}
	if publish == "." || publish == "" {
		return errors.New("paths.publish cannot be the repository root")
	}
	if staging == publish {
		return fmt.Errorf("paths.staging and paths.publish must differ, both are %q", staging)
	}
	// The data dir holds reports between runs. Placing it inside a gated
	// directory would make every run dirty its own gate.
	data := filepath.Clean(cv.config.Paths.Data)
	for _, gated := range []string{staging, publish} {
		if data == gated || strings.HasPrefix(data, gated+string(filepath.Separator)) {
			return fmt.Errorf("paths.data %q must not live inside gated directory %q", data, gated)
		}
	}
	return nil
}

func (cv *configurationValidator) validateTools() error {
	if cv.config.Generator.Command == "" {
		return errors.New("generator.command cannot be empty")
	}
	if cv.config.Builder.Command == "" {
		return errors.New("builder.command cannot be empty")
	}
	for _, opt := range cv.config.Generator.Options {
		if strings.ContainsAny(opt, ", ") {
			return fmt.Errorf("generator option %q must be a single token (options are comma-joined)", opt)
		}
	}
	return nil
}

func (cv *configurationValidator) validateStubs() error {
	if cv.config.Stubs.IndexSource == "" {
		return errors.New("stubs.index_source cannot be empty")
	}
	if cv.config.Stubs.PackageStub == "" {
		return errors.New("stubs.package_stub cannot be empty")
	}
	for _, name := range append([]string{cv.config.Stubs.IndexSource, cv.config.Stubs.PackageStub}, cv.config.PruneList()...) {
		if strings.Contains(name, "/") || strings.Contains(name, "\\") {
			return fmt.Errorf("stub name %q must be a bare filename inside the staging directory", name)
		}
	}
	for _, opt := range cv.config.Rewrite.StripOptions {
		if strings.Contains(opt, ":") {
			return fmt.Errorf("rewrite.strip_options entry %q must omit the surrounding colons", opt)
		}
	}
	return nil
}

func (cv *configurationValidator) validateWatch() error {
	if cv.config.Watch.Debounce != "" {
		d, err := time.ParseDuration(cv.config.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("watch.debounce %q is not a valid duration: %w", cv.config.Watch.Debounce, err)
		}
		if d <= 0 {
			return fmt.Errorf("watch.debounce must be positive, got %s", d)
		}
	}
	if cv.config.Watch.Interval != "" {
		d, err := time.ParseDuration(cv.config.Watch.Interval)
		if err != nil {
			return fmt.Errorf("watch.interval %q is not a valid duration: %w", cv.config.Watch.Interval, err)
		}
		if d < time.Minute {
			return fmt.Errorf("watch.interval must be at least 1m, got %s", d)
		}
	}
	return nil
}
