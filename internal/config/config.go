package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Ecosystem identifies the toolchain a package is built with.
// The set is closed; there is no plugin mechanism.
type Ecosystem string

const (
	// EcosystemRust is a cargo-built package.
	EcosystemRust Ecosystem = "rust"
	// EcosystemGo is a `go build` package.
	EcosystemGo Ecosystem = "go"
	// EcosystemNode is an npm-based package (frontend bundle or cli binary).
	EcosystemNode Ecosystem = "node"
	// EcosystemPython is a python package (wheel or pyinstaller binary).
	EcosystemPython Ecosystem = "python"
)

// Valid reports whether the ecosystem tag is one of the supported kinds.
func (e Ecosystem) Valid() bool {
	switch e {
	case EcosystemRust, EcosystemGo, EcosystemNode, EcosystemPython:
		return true
	default:
		return false
	}
}

// VersionSource selects where the release version comes from.
type VersionSource string

const (
	// VersionSourceTag takes the latest VCS tag.
	VersionSourceTag VersionSource = "tag"
	// VersionSourceManual takes the value configured next to it.
	VersionSourceManual VersionSource = "manual"
	// VersionSourceGit behaves like tag; kept as a separate label
	// so manifests record how the version was chosen.
	VersionSourceGit VersionSource = "git"
)

// Valid reports whether the version source is recognized.
func (s VersionSource) Valid() bool {
	switch s {
	case VersionSourceTag, VersionSourceManual, VersionSourceGit:
		return true
	default:
		return false
	}
}

const (
	// DefaultConfigFilename is the default name of the release configuration file.
	DefaultConfigFilename = ".shippo.yaml"

	// DefaultFilePermissions is the file permission used when writing the configuration.
	DefaultFilePermissions = 0o600

	// NodeModeCLIBinary packages a node project as a standalone executable.
	NodeModeCLIBinary = "cli-binary"
	// NodeModeFrontend packages a node project as a built asset directory.
	NodeModeFrontend = "frontend"
)

// ProjectConfig describes a single-project repository.
type ProjectConfig struct {
	// Name of the project, used for artifact naming and selection.
	Name string `yaml:"name"`
	// Type is the ecosystem tag deciding the build strategy.
	Type Ecosystem `yaml:"type"`
	// Path is the project directory relative to the repository root.
	Path string `yaml:"path"`
}

// VersionConfig selects the release version source.
type VersionConfig struct {
	// Source is one of tag, manual or git.
	Source VersionSource `yaml:"source"`
	// Manual is the explicit version, required when Source is manual.
	Manual string `yaml:"manual,omitempty"`
}

// BuildConfig lists build targets and extra environment for the toolchain.
type BuildConfig struct {
	// Targets are toolchain target triples; "native" means the host platform.
	Targets []string `yaml:"targets,omitempty"`
	// Env is extra environment passed to build commands.
	Env map[string]string `yaml:"env,omitempty"`
}

// PackageConfig controls archive formats and artifact naming.
type PackageConfig struct {
	// Formats are archive formats to produce (tar.gz, zip).
	Formats []string `yaml:"formats,omitempty"`
	// NameTemplate is the artifact filename template with
	// {name}, {version} and {target} placeholders.
	NameTemplate string `yaml:"name_template,omitempty"`
	// Include restricts packaged files to those matching the patterns.
	Include []string `yaml:"include,omitempty"`
	// Exclude drops files matching the patterns.
	Exclude []string `yaml:"exclude,omitempty"`
}

// SbomConfig controls SBOM emission.
type SbomConfig struct {
	// Enabled toggles SBOM generation; nil means the compiled-in default (on).
	Enabled *bool `yaml:"enabled,omitempty"`
	// Format is the SBOM document format.
	Format string `yaml:"format,omitempty"`
	// Mode selects how the SBOM is produced.
	Mode string `yaml:"mode,omitempty"`
}

// SignConfig controls artifact signing.
type SignConfig struct {
	// Enabled toggles signing; nil means the compiled-in default (off).
	Enabled *bool `yaml:"enabled,omitempty"`
	// Method is the external signer to use (gpg, cosign).
	Method string `yaml:"method,omitempty"`
	// CosignMode selects the cosign key mode.
	CosignMode string `yaml:"cosign_mode,omitempty"`
}

// GitHubReleaseConfig points at the repository receiving the release.
type GitHubReleaseConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
}

// ReleaseConfig controls release publication.
type ReleaseConfig struct {
	// Provider is the release destination; only "github" is supported.
	Provider string `yaml:"provider,omitempty"`
	// Draft marks the release as a draft; nil means the default (true).
	Draft *bool `yaml:"draft,omitempty"`
	// Prerelease marks the release as a prerelease; nil means the default (false).
	Prerelease *bool `yaml:"prerelease,omitempty"`
	// GitHub holds provider-specific settings.
	GitHub *GitHubReleaseConfig `yaml:"github,omitempty"`
}

// ChangelogConfig controls release-notes generation.
type ChangelogConfig struct {
	// Mode is "auto" or "conventional".
	Mode string `yaml:"mode,omitempty"`
	// File overrides generation with a prewritten changelog file.
	File string `yaml:"file,omitempty"`
}

// NodeBinaryConfig configures packaging a node project into an executable.
type NodeBinaryConfig struct {
	// Tool is the bundler executable (pkg by default).
	Tool string `yaml:"tool,omitempty"`
	// Entry is the script handed to the bundler.
	Entry string `yaml:"entry,omitempty"`
	// Targets are bundler-specific target identifiers.
	Targets []string `yaml:"targets,omitempty"`
}

// NodeFrontendConfig configures packaging a node project as static assets.
type NodeFrontendConfig struct {
	// BuildDir is the directory produced by the build (dist by default).
	BuildDir string `yaml:"build_dir,omitempty"`
	// BuildCmd overrides `npm run build`.
	BuildCmd string `yaml:"build_cmd,omitempty"`
}

// NodeConfig is the node-specific sub-configuration.
type NodeConfig struct {
	// Mode is cli-binary or frontend.
	Mode string `yaml:"mode,omitempty"`
	// Binary is required when Mode is cli-binary.
	Binary *NodeBinaryConfig `yaml:"binary,omitempty"`
	// Frontend applies when Mode is frontend.
	Frontend *NodeFrontendConfig `yaml:"frontend,omitempty"`
}

// PyInstallerConfig configures pyinstaller-based python builds.
type PyInstallerConfig struct {
	// Mode is onefile or onedir.
	Mode string `yaml:"mode,omitempty"`
	// Entry is the script handed to pyinstaller (main.py by default).
	Entry string `yaml:"entry,omitempty"`
	// HiddenImports are modules pyinstaller cannot discover statically.
	HiddenImports []string `yaml:"hidden_imports,omitempty"`
	// Data are extra data files bundled into the binary.
	Data []string `yaml:"data,omitempty"`
}

// PythonConfig is the python-specific sub-configuration.
type PythonConfig struct {
	// Mode is wheel or pyinstaller.
	Mode string `yaml:"mode,omitempty"`
	// PyInstaller applies when Mode is pyinstaller.
	PyInstaller *PyInstallerConfig `yaml:"pyinstaller,omitempty"`
}

// PackageEntry is one package of a monorepo configuration.
// Every optional section overrides the matching global section.
type PackageEntry struct {
	Name    string         `yaml:"name"`
	Type    Ecosystem      `yaml:"type"`
	Path    string         `yaml:"path,omitempty"`
	Build   *BuildConfig   `yaml:"build,omitempty"`
	Package *PackageConfig `yaml:"package,omitempty"`
	Sbom    *SbomConfig    `yaml:"sbom,omitempty"`
	Sign    *SignConfig    `yaml:"sign,omitempty"`
	Node    *NodeConfig    `yaml:"node,omitempty"`
	Python  *PythonConfig  `yaml:"python,omitempty"`
}

// Config is the raw declarative release configuration.
// Either Project (single-project mode) or Packages (monorepo mode) is set,
// never both. The remaining sections are global defaults that individual
// package entries may override.
type Config struct {
	Project   *ProjectConfig   `yaml:"project,omitempty"`
	Packages  []PackageEntry   `yaml:"packages,omitempty"`
	Node      *NodeConfig      `yaml:"node,omitempty"`
	Python    *PythonConfig    `yaml:"python,omitempty"`
	Version   *VersionConfig   `yaml:"version,omitempty"`
	Build     *BuildConfig     `yaml:"build,omitempty"`
	Package   *PackageConfig   `yaml:"package,omitempty"`
	Sbom      *SbomConfig      `yaml:"sbom,omitempty"`
	Sign      *SignConfig      `yaml:"sign,omitempty"`
	Release   *ReleaseConfig   `yaml:"release,omitempty"`
	Changelog *ChangelogConfig `yaml:"changelog,omitempty"`
}

// Load reads the configuration from the provided path,
// normalizes relative paths and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// normalize fills in structural defaults that do not depend on other layers.
// Cascade resolution of overridable options happens in the plan resolver.
func normalize(cfg *Config) {
	if cfg.Project != nil && cfg.Project.Path == "" {
		cfg.Project.Path = "."
	}

	for i := range cfg.Packages {
		if cfg.Packages[i].Path == "" {
			cfg.Packages[i].Path = "."
		}
	}
}

// Default returns the configuration written by `shippo init`
// when project detection finds nothing to prefill.
func Default() *Config {
	return &Config{
		Build: &BuildConfig{
			Targets: []string{"native"},
		},
	}
}
