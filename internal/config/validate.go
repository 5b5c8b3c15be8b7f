package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errNoProjectOrPackages is returned when neither mode is configured.
	errNoProjectOrPackages = errors.New("config must define a project or a non-empty packages list")
	// errProjectAndPackages is returned when both modes are configured at once.
	errProjectAndPackages = errors.New("use either a single project or a packages monorepo, not both")
	// errManualVersionRequired is returned when version.source=manual lacks a value.
	errManualVersionRequired = errors.New("version.source=manual requires version.manual")
	// errPackageNameRequired is returned for a package entry without a name.
	errPackageNameRequired = errors.New("package name required")
	// errNodeBinaryRequired is returned when node cli-binary mode lacks a binary section.
	errNodeBinaryRequired = errors.New("node.cli-binary requires node.binary")
)

// Validate checks the configuration for structural and semantic violations.
// It is a pure function over the parsed structure; every violation is fatal.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Project == nil && len(cfg.Packages) == 0 {
		return errNoProjectOrPackages
	}

	if cfg.Project != nil && len(cfg.Packages) > 0 {
		return errProjectAndPackages
	}

	if cfg.Version != nil {
		if !cfg.Version.Source.Valid() {
			return fmt.Errorf("unsupported version source %q", cfg.Version.Source)
		}

		if cfg.Version.Source == VersionSourceManual && cfg.Version.Manual == "" {
			return errManualVersionRequired
		}
	}

	if cfg.Project != nil {
		if err := validateUnit(cfg.Project.Name, cfg.Project.Type, cfg.Node); err != nil {
			return err
		}
	}

	for i := range cfg.Packages {
		pkg := &cfg.Packages[i]
		if err := validateUnit(pkg.Name, pkg.Type, pkg.Node); err != nil {
			return err
		}
	}

	return nil
}

// validateUnit applies the per-package rules shared by both configuration modes.
func validateUnit(name string, ecosystem Ecosystem, node *NodeConfig) error {
	if strings.TrimSpace(name) == "" {
		return errPackageNameRequired
	}

	if !ecosystem.Valid() {
		return fmt.Errorf("unsupported ecosystem %q for package %s", ecosystem, name)
	}

	if node != nil && node.Mode == NodeModeCLIBinary && node.Binary == nil {
		return fmt.Errorf("package %s: %w", name, errNodeBinaryRequired)
	}

	return nil
}
