package plan

import (
	"context"
	"errors"

	"github.com/oshokin/shippo/internal/config"
	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/vcs"
)

// ErrNoPackagesSelected is returned when selector filtering leaves an empty plan.
var ErrNoPackagesSelected = errors.New("no packages selected")

// Resolver turns a validated configuration into a concrete execution plan.
type Resolver struct {
	// vcs supplies the latest tag when the version source asks for one.
	vcs vcs.Service
}

// NewResolver returns a Resolver backed by the provided VCS service.
func NewResolver(service vcs.Service) *Resolver {
	return &Resolver{vcs: service}
}

// Build resolves the release version, filters packages by the optional
// selector and collapses every layered option to a concrete value.
// Output preserves the declaration order of the configuration.
func (r *Resolver) Build(ctx context.Context, cfg *config.Config, only, tagOverride string) (*Plan, error) {
	version := r.ResolveVersion(ctx, cfg, tagOverride)

	logger.InfoKV(ctx, "Resolved release version",
		"version", version.Value, "source", string(version.Source))

	var packages []PackagePlan

	if cfg.Project != nil && (only == "" || only == cfg.Project.Name) {
		packages = append(packages, resolveEntry(projectAsEntry(cfg), cfg))
	}

	for i := range cfg.Packages {
		pkg := &cfg.Packages[i]
		if only != "" && only != pkg.Name {
			continue
		}

		packages = append(packages, resolveEntry(pkg, cfg))
	}

	if len(packages) == 0 {
		return nil, ErrNoPackagesSelected
	}

	return &Plan{Version: version.Value, Packages: packages}, nil
}

// ResolveVersion produces exactly one VersionInfo per invocation.
// Precedence: explicit override > configured manual value > latest VCS tag > fallback.
func (r *Resolver) ResolveVersion(ctx context.Context, cfg *config.Config, tagOverride string) VersionInfo {
	if tagOverride != "" {
		return VersionInfo{Value: tagOverride, Source: config.VersionSourceManual}
	}

	versionCfg := cfg.Version
	if versionCfg == nil {
		versionCfg = &config.VersionConfig{Source: config.VersionSourceGit}
	}

	if versionCfg.Source == config.VersionSourceManual {
		value := versionCfg.Manual
		if value == "" {
			value = FallbackVersion
		}

		return VersionInfo{Value: value, Source: config.VersionSourceManual}
	}

	tag, err := r.vcs.LatestTag(ctx)
	if err != nil || tag == "" {
		logger.DebugKV(ctx, "No VCS tag found, using fallback", "fallback", FallbackTag)

		tag = FallbackTag
	}

	return VersionInfo{Value: tag, Source: versionCfg.Source}
}

// projectAsEntry adapts single-project mode to the monorepo entry shape so
// both modes share one cascade path. Global node/python sections act as the
// project's own sub-config.
func projectAsEntry(cfg *config.Config) *config.PackageEntry {
	return &config.PackageEntry{
		Name:   cfg.Project.Name,
		Type:   cfg.Project.Type,
		Path:   cfg.Project.Path,
		Node:   cfg.Node,
		Python: cfg.Python,
	}
}

// resolveEntry collapses one package entry against the global configuration.
// Each overridable option resolves independently: package > global > default.
func resolveEntry(pkg *config.PackageEntry, cfg *config.Config) PackagePlan {
	build := pick(pkg.Build, cfg.Build, config.BuildConfig{})

	targets := build.Targets
	if len(targets) == 0 {
		targets = DefaultTargets()
	}

	return PackagePlan{
		Name:      pkg.Name,
		Ecosystem: pkg.Type,
		Path:      pkg.Path,
		Targets:   targets,
		Package:   resolvePackaging(pick(pkg.Package, cfg.Package, config.PackageConfig{})),
		Sbom:      resolveSbom(pick(pkg.Sbom, cfg.Sbom, config.SbomConfig{})),
		Sign:      resolveSign(pick(pkg.Sign, cfg.Sign, config.SignConfig{})),
		Env:       build.Env,
		Node:      pickPtr(pkg.Node, cfg.Node),
		Python:    pickPtr(pkg.Python, cfg.Python),
	}
}

// resolvePackaging fills field-level defaults of a chosen packaging section.
func resolvePackaging(c config.PackageConfig) PackageSettings {
	formats := c.Formats
	if len(formats) == 0 {
		formats = DefaultFormats()
	}

	template := c.NameTemplate
	if template == "" {
		template = DefaultNameTemplate
	}

	return PackageSettings{
		Formats:      formats,
		NameTemplate: template,
		Include:      c.Include,
		Exclude:      c.Exclude,
	}
}

// resolveSbom fills field-level defaults of a chosen SBOM section.
// SBOM emission defaults to enabled.
func resolveSbom(c config.SbomConfig) SbomSettings {
	enabled := true
	if c.Enabled != nil {
		enabled = *c.Enabled
	}

	format := c.Format
	if format == "" {
		format = DefaultSbomFormat
	}

	mode := c.Mode
	if mode == "" {
		mode = DefaultSbomMode
	}

	return SbomSettings{Enabled: enabled, Format: format, Mode: mode}
}

// resolveSign fills field-level defaults of a chosen signing section.
// Signing defaults to disabled.
func resolveSign(c config.SignConfig) SignSettings {
	enabled := false
	if c.Enabled != nil {
		enabled = *c.Enabled
	}

	method := c.Method
	if method == "" {
		method = DefaultSignMethod
	}

	mode := c.CosignMode
	if mode == "" {
		mode = DefaultCosignMode
	}

	return SignSettings{Enabled: enabled, Method: method, CosignMode: mode}
}

// pick is the three-tier resolve-with-default helper: the package-level value
// wins over the global one, which wins over the compiled-in default.
func pick[T any](pkg, global *T, def T) T {
	if pkg != nil {
		return *pkg
	}

	if global != nil {
		return *global
	}

	return def
}

// pickPtr resolves optional sub-configs that stay nil when absent everywhere.
func pickPtr[T any](pkg, global *T) *T {
	if pkg != nil {
		return pkg
	}

	return global
}
