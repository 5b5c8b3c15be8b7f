package plan

import (
	"strings"

	"github.com/oshokin/shippo/internal/config"
)

// Compiled-in defaults, the last tier of cascade resolution.
const (
	// DefaultNameTemplate names artifacts as name-version-target.
	DefaultNameTemplate = "{name}-{version}-{target}"
	// DefaultSbomFormat is the SBOM document format emitted by default.
	DefaultSbomFormat = "cyclonedx"
	// DefaultSbomMode is the default SBOM generation mode.
	DefaultSbomMode = "auto"
	// DefaultSignMethod is the signer assumed when signing is enabled without one.
	DefaultSignMethod = "cosign"
	// DefaultCosignMode is the default cosign key mode.
	DefaultCosignMode = "keyless"
	// FallbackVersion is used when the manual source has no value.
	FallbackVersion = "0.1.0"
	// FallbackTag is used when no VCS tag can be found.
	FallbackTag = "v0.1.0"
)

// DefaultTargets returns the target list assumed when none is configured.
func DefaultTargets() []string {
	return []string{"native"}
}

// DefaultFormats returns the archive formats produced when none are configured.
func DefaultFormats() []string {
	return []string{"tar.gz", "zip"}
}

// VersionInfo is the single resolved release version for one invocation.
type VersionInfo struct {
	// Value is the version string shared by every package in the plan.
	Value string `json:"value"`
	// Source records how the version was chosen.
	Source config.VersionSource `json:"source"`
}

// PackageSettings are the fully resolved packaging options of one package.
type PackageSettings struct {
	Formats      []string `json:"formats"`
	NameTemplate string   `json:"name_template"`
	Include      []string `json:"include,omitempty"`
	Exclude      []string `json:"exclude,omitempty"`
}

// SbomSettings is the fully resolved SBOM policy of one package.
type SbomSettings struct {
	Enabled bool   `json:"enabled"`
	Format  string `json:"format"`
	Mode    string `json:"mode"`
}

// SignSettings is the fully resolved signing policy of one package.
type SignSettings struct {
	Enabled    bool   `json:"enabled"`
	Method     string `json:"method"`
	CosignMode string `json:"cosign_mode"`
}

// PackagePlan is the fully resolved per-package configuration.
// Every optional field of the source configuration has been collapsed
// to a concrete value by the package > global > default cascade.
type PackagePlan struct {
	Name      string               `json:"name"`
	Ecosystem config.Ecosystem     `json:"ecosystem"`
	Path      string               `json:"path"`
	Targets   []string             `json:"targets"`
	Package   PackageSettings      `json:"packaging"`
	Sbom      SbomSettings         `json:"sbom_policy"`
	Sign      SignSettings         `json:"sign_policy"`
	Env       map[string]string    `json:"env,omitempty"`
	Node      *config.NodeConfig   `json:"node,omitempty"`
	Python    *config.PythonConfig `json:"python,omitempty"`
}

// Plan is the resolved execution plan for one release invocation.
type Plan struct {
	// Version is resolved exactly once and shared by all packages.
	Version string `json:"version"`
	// Packages follow the declaration order of the configuration.
	Packages []PackagePlan `json:"packages"`
}

// NamingTemplate expands the {name}, {version} and {target} placeholders.
func NamingTemplate(template, name, version, target string) string {
	out := strings.ReplaceAll(template, "{name}", name)
	out = strings.ReplaceAll(out, "{version}", version)

	return strings.ReplaceAll(out, "{target}", target)
}
