package release

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/shippo/internal/builder"
	"github.com/oshokin/shippo/internal/config"
	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/manifest"
	"github.com/oshokin/shippo/internal/pack"
	"github.com/oshokin/shippo/internal/plan"
	"github.com/oshokin/shippo/internal/publish"
	"github.com/oshokin/shippo/internal/vcs"
)

// DefaultOutputDir is where bundles land unless --output says otherwise.
const DefaultOutputDir = "dist"

var (
	// ErrConfigExists means init refuses to overwrite a present configuration.
	ErrConfigExists = errors.New("configuration file already exists")
	// ErrTokenMissing means neither GITHUB_TOKEN nor GH_TOKEN is set.
	ErrTokenMissing = errors.New("no github token in GITHUB_TOKEN or GH_TOKEN")
	// ErrRepoUnknown means the target repository could not be determined
	// from the configuration or the git remote.
	ErrRepoUnknown = errors.New("release repository is not configured and cannot be derived")
)

// Options are the per-invocation knobs shared by all pipeline commands.
type Options struct {
	// ConfigPath is the configuration file; empty means .shippo.yaml.
	ConfigPath string
	// RootDir is the workspace packages are resolved against.
	RootDir string
	// OutputDir receives the release bundle.
	OutputDir string
	// Only restricts the run to a single package by name.
	Only string
	// Tag overrides the resolved release version.
	Tag string
	// DryRun stops the release command before publishing.
	DryRun bool
	// Draft overrides the configured draft flag when non-nil.
	Draft *bool
	// Prerelease forces the prerelease flag on.
	Prerelease bool
	// KeyringPath optionally enables in-process signature verification.
	KeyringPath string
}

// Publisher is the release destination port. The GitHub client implements
// it; tests substitute a recording fake.
type Publisher interface {
	CreateRelease(ctx context.Context, input publish.ReleaseInput) (*publish.Release, error)
	UploadAsset(ctx context.Context, uploadURL, filePath string) error
}

// Service wires the whole pipeline: configuration, plan resolution,
// per-ecosystem builds, packaging, verification and publishing.
type Service struct {
	vcs       vcs.Service
	runner    builder.Runner
	engine    *pack.Engine
	publisher Publisher
}

// Option customizes a Service, mainly for tests.
type Option func(*Service)

// WithVCS replaces the git-backed VCS service.
func WithVCS(service vcs.Service) Option {
	return func(s *Service) {
		s.vcs = service
	}
}

// WithRunner replaces the toolchain command runner.
func WithRunner(runner builder.Runner) Option {
	return func(s *Service) {
		s.runner = runner
	}
}

// WithEngine replaces the packaging engine.
func WithEngine(engine *pack.Engine) Option {
	return func(s *Service) {
		s.engine = engine
	}
}

// WithPublisher replaces the release destination client.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) {
		s.publisher = publisher
	}
}

// New returns a Service backed by real collaborators.
func New(opts ...Option) *Service {
	service := &Service{
		engine: pack.NewEngine(),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service
}

// Init detects projects one level below the root and writes a starter
// configuration. It refuses to overwrite an existing file.
func (s *Service) Init(ctx context.Context, opts Options) error {
	configPath := configPath(opts)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%w: %s", ErrConfigExists, configPath)
	}

	root := rootDir(opts)
	projects := config.Detect(root)

	cfg := config.Default()

	switch len(projects) {
	case 0:
		logger.Warn(ctx, "No projects detected, writing an empty template")
	case 1:
		cfg.Project = &projects[0]
	default:
		for _, project := range projects {
			cfg.Packages = append(cfg.Packages, config.PackageEntry{
				Name: project.Name,
				Type: project.Type,
				Path: project.Path,
			})
		}
	}

	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Configuration written",
		"path", configPath,
		"projects", len(projects))

	return nil
}

// Plan loads the configuration and resolves the execution plan.
func (s *Service) Plan(ctx context.Context, opts Options) (*plan.Plan, error) {
	cfg, err := config.Load(configPath(opts))
	if err != nil {
		return nil, err
	}

	resolver := plan.NewResolver(s.vcsFor(opts))

	return resolver.Build(ctx, cfg, opts.Only, opts.Tag)
}

// Build resolves the plan and builds every (package, target) pair.
func (s *Service) Build(ctx context.Context, opts Options) (*plan.Plan, []pack.BuiltOutput, error) {
	releasePlan, err := s.Plan(ctx, opts)
	if err != nil {
		return nil, nil, err
	}

	packageBuilder := builder.New(rootDir(opts), s.runner)

	var outputs []pack.BuiltOutput

	for i := range releasePlan.Packages {
		pkg := &releasePlan.Packages[i]

		built, err := packageBuilder.Build(ctx, pkg, releasePlan.Version)
		if err != nil {
			return nil, nil, err
		}

		for _, target := range built {
			outputs = append(outputs, pack.BuiltOutput{
				Package:   pkg.Name,
				Target:    target.Target,
				Artifacts: target.Artifacts,
			})
		}
	}

	return releasePlan, outputs, nil
}

// Package builds everything and assembles the release bundle.
func (s *Service) Package(ctx context.Context, opts Options) (*manifest.Manifest, error) {
	releasePlan, outputs, err := s.Build(ctx, opts)
	if err != nil {
		return nil, err
	}

	vcsService := s.vcsFor(opts)

	// Repository metadata is best-effort; a detached workspace still packages.
	repoURL, _ := vcsService.RepoURL(ctx)
	commit, _ := vcsService.CurrentCommit(ctx)

	return s.engine.Package(ctx, releasePlan, outputs, pack.Options{
		BundleDir: outputDir(opts),
		RepoURL:   repoURL,
		Commit:    commit,
		Sign:      true,
	})
}

// Release packages the plan and publishes the bundle, unless DryRun stops
// it after packaging.
func (s *Service) Release(ctx context.Context, opts Options) error {
	bundleManifest, err := s.Package(ctx, opts)
	if err != nil {
		return err
	}

	if opts.DryRun {
		logger.Info(ctx, "Dry run complete, skipping publish")

		return nil
	}

	cfg, err := config.Load(configPath(opts))
	if err != nil {
		return err
	}

	publisher := s.publisher
	if publisher == nil {
		token, err := githubToken()
		if err != nil {
			return err
		}

		publisher = publish.NewGitHub(token)
	}

	owner, repo, err := s.releaseRepo(ctx, cfg, opts)
	if err != nil {
		return err
	}

	tag := bundleManifest.Project.Version

	created, err := publisher.CreateRelease(ctx, publish.ReleaseInput{
		Owner:      owner,
		Repo:       repo,
		TagName:    tag,
		Name:       tag,
		Body:       s.changelogBody(ctx, cfg, opts, tag),
		Draft:      resolveDraft(cfg, opts),
		Prerelease: resolvePrerelease(cfg, opts),
	})
	if err != nil {
		return err
	}

	if err := s.uploadBundle(ctx, publisher, created.UploadURL, outputDir(opts)); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Release published",
		"tag", tag,
		"repo", owner+"/"+repo,
		"url", created.HTMLURL)

	return nil
}

// Verify re-checks the bundle in the output directory against its manifest.
func (s *Service) Verify(ctx context.Context, opts Options) error {
	var verifierOpts []pack.VerifierOption

	if opts.KeyringPath != "" {
		keyring, err := pack.LoadKeyring(opts.KeyringPath)
		if err != nil {
			return err
		}

		verifierOpts = append(verifierOpts, pack.WithKeyring(keyring))
	}

	return pack.NewVerifier(verifierOpts...).Verify(ctx, outputDir(opts))
}

// uploadBundle attaches every regular file of the bundle directory as a
// release asset, in lexical order.
func (s *Service) uploadBundle(ctx context.Context, publisher Publisher, uploadURL, bundleDir string) error {
	entries, err := os.ReadDir(bundleDir)
	if err != nil {
		return fmt.Errorf("read bundle directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		assetPath := filepath.Join(bundleDir, entry.Name())
		if err := publisher.UploadAsset(ctx, uploadURL, assetPath); err != nil {
			return err
		}
	}

	return nil
}

// releaseRepo resolves the destination repository: explicit configuration
// first, then the git remote URL.
func (s *Service) releaseRepo(ctx context.Context, cfg *config.Config, opts Options) (string, string, error) {
	if cfg.Release != nil && cfg.Release.GitHub != nil &&
		cfg.Release.GitHub.Owner != "" && cfg.Release.GitHub.Repo != "" {
		return cfg.Release.GitHub.Owner, cfg.Release.GitHub.Repo, nil
	}

	repoURL, err := s.vcsFor(opts).RepoURL(ctx)
	if err != nil {
		return "", "", ErrRepoUnknown
	}

	owner, repo, err := publish.ParseRepoURL(repoURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s", ErrRepoUnknown, repoURL)
	}

	return owner, repo, nil
}

// changelogBody builds the release notes from the commit range since the
// previous tag, falling back to a minimal body.
func (s *Service) changelogBody(ctx context.Context, cfg *config.Config, opts Options, tag string) string {
	fallback := "Release " + tag

	if cfg.Changelog != nil && cfg.Changelog.File != "" {
		contents, err := os.ReadFile(filepath.Clean(cfg.Changelog.File))
		if err != nil {
			logger.WarnKV(ctx, "Changelog file unreadable, using fallback body",
				"file", cfg.Changelog.File,
				"error", err)

			return fallback
		}

		return string(contents)
	}

	mode := "auto"
	if cfg.Changelog != nil && cfg.Changelog.Mode != "" {
		mode = cfg.Changelog.Mode
	}

	vcsService := s.vcsFor(opts)

	previous, err := vcsService.LatestTag(ctx)
	if err != nil || previous == "" || previous == tag {
		return fallback
	}

	body, err := vcsService.Changelog(ctx, previous, tag, mode)
	if err != nil || body == "" {
		return fallback
	}

	return body
}

// vcsFor returns the injected VCS service or a git one rooted at the workspace.
func (s *Service) vcsFor(opts Options) vcs.Service {
	if s.vcs != nil {
		return s.vcs
	}

	return vcs.NewGit(rootDir(opts))
}

// resolveDraft applies the CLI override, then the configuration, then the
// safe default of publishing drafts.
func resolveDraft(cfg *config.Config, opts Options) bool {
	if opts.Draft != nil {
		return *opts.Draft
	}

	if cfg.Release != nil && cfg.Release.Draft != nil {
		return *cfg.Release.Draft
	}

	return true
}

// resolvePrerelease ORs the CLI flag with the configuration.
func resolvePrerelease(cfg *config.Config, opts Options) bool {
	if opts.Prerelease {
		return true
	}

	return cfg.Release != nil && cfg.Release.Prerelease != nil && *cfg.Release.Prerelease
}

// githubToken reads the API token from the conventional variables.
func githubToken() (string, error) {
	for _, name := range []string{"GITHUB_TOKEN", "GH_TOKEN"} {
		if token := os.Getenv(name); token != "" {
			return token, nil
		}
	}

	return "", ErrTokenMissing
}

func configPath(opts Options) string {
	if opts.ConfigPath != "" {
		return opts.ConfigPath
	}

	return config.DefaultConfigFilename
}

func rootDir(opts Options) string {
	if opts.RootDir != "" {
		return opts.RootDir
	}

	return "."
}

func outputDir(opts Options) string {
	if opts.OutputDir != "" {
		return opts.OutputDir
	}

	return DefaultOutputDir
}
