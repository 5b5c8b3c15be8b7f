package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/shippo/internal/config"
)

// fakeVCS is a canned vcs.Service for resolver tests.
type fakeVCS struct {
	tag string
	err error
}

func (f *fakeVCS) CurrentCommit(context.Context) (string, error) { return "", errors.New("no repo") }
func (f *fakeVCS) RepoURL(context.Context) (string, error)       { return "", errors.New("no repo") }
func (f *fakeVCS) LatestTag(context.Context) (string, error)     { return f.tag, f.err }
func (f *fakeVCS) Changelog(context.Context, string, string, string) (string, error) {
	return "", errors.New("no repo")
}

func boolPtr(v bool) *bool {
	return &v
}

// TestNamingTemplate checks placeholder substitution.
func TestNamingTemplate(t *testing.T) {
	t.Parallel()

	out := NamingTemplate("{name}-{version}-{target}", "app", "1.0", "x86")
	require.Equal(t, "app-1.0-x86", out)
}

// TestResolveVersion_Precedence covers override > manual > tag > fallback.
func TestResolveVersion_Precedence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r := NewResolver(&fakeVCS{tag: "v2.0.0"})

	cfg := &config.Config{
		Version: &config.VersionConfig{Source: config.VersionSourceManual, Manual: "1.5.0"},
	}

	// CLI override beats everything.
	got := r.ResolveVersion(ctx, cfg, "v9.9.9")
	require.Equal(t, "v9.9.9", got.Value)
	require.Equal(t, config.VersionSourceManual, got.Source)

	// Manual value.
	got = r.ResolveVersion(ctx, cfg, "")
	require.Equal(t, "1.5.0", got.Value)

	// Latest VCS tag when source is tag.
	cfg.Version = &config.VersionConfig{Source: config.VersionSourceTag}
	got = r.ResolveVersion(ctx, cfg, "")
	require.Equal(t, "v2.0.0", got.Value)
	require.Equal(t, config.VersionSourceTag, got.Source)

	// Fallback when the VCS has no tags.
	noTags := NewResolver(&fakeVCS{err: errors.New("no tags")})
	got = noTags.ResolveVersion(ctx, cfg, "")
	require.Equal(t, FallbackTag, got.Value)

	// Unset version section defaults to git source.
	got = noTags.ResolveVersion(ctx, &config.Config{}, "")
	require.Equal(t, FallbackTag, got.Value)
	require.Equal(t, config.VersionSourceGit, got.Source)
}

// TestBuild_CascadePrecedence verifies package-level overrides beat globals,
// which beat compiled-in defaults.
func TestBuild_CascadePrecedence(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Build:   &config.BuildConfig{Targets: []string{"native"}},
		Package: &config.PackageConfig{Formats: []string{"zip"}},
		Sign:    &config.SignConfig{Enabled: boolPtr(true), Method: "gpg"},
		Packages: []config.PackageEntry{
			{
				Name:  "api",
				Type:  config.EcosystemGo,
				Path:  "api",
				Build: &config.BuildConfig{Targets: []string{"linux-x64"}},
			},
			{Name: "web", Type: config.EcosystemNode, Path: "web"},
		},
	}

	p, err := NewResolver(&fakeVCS{tag: "v1.0.0"}).Build(context.Background(), cfg, "", "")
	require.NoError(t, err)
	require.Len(t, p.Packages, 2)

	// Package-level target list wins over the global one.
	require.Equal(t, []string{"linux-x64"}, p.Packages[0].Targets)
	// Global tier applies where the package has no override.
	require.Equal(t, []string{"native"}, p.Packages[1].Targets)
	require.Equal(t, []string{"zip"}, p.Packages[0].Package.Formats)

	// Field defaults fill in around the chosen section.
	require.Equal(t, DefaultNameTemplate, p.Packages[0].Package.NameTemplate)
	require.True(t, p.Packages[0].Sign.Enabled)
	require.Equal(t, "gpg", p.Packages[0].Sign.Method)
	require.Equal(t, DefaultCosignMode, p.Packages[0].Sign.CosignMode)

	// Compiled-in defaults when no tier configures an option.
	require.True(t, p.Packages[1].Sbom.Enabled)
	require.Equal(t, DefaultSbomFormat, p.Packages[1].Sbom.Format)
}

// TestBuild_SelectorFiltering covers --only matching and the empty-selection error.
func TestBuild_SelectorFiltering(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Packages: []config.PackageEntry{
			{Name: "alpha", Type: config.EcosystemRust, Path: "alpha"},
			{Name: "foo", Type: config.EcosystemGo, Path: "foo"},
			{Name: "omega", Type: config.EcosystemPython, Path: "omega"},
		},
	}

	r := NewResolver(&fakeVCS{tag: "v1.0.0"})

	p, err := r.Build(context.Background(), cfg, "foo", "")
	require.NoError(t, err)
	require.Len(t, p.Packages, 1)
	require.Equal(t, "foo", p.Packages[0].Name)

	_, err = r.Build(context.Background(), cfg, "missing", "")
	require.ErrorIs(t, err, ErrNoPackagesSelected)
}

// TestBuild_SingleProject resolves single-project mode, including the
// selector mismatch case and global sub-config adoption.
func TestBuild_SingleProject(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Project: &config.ProjectConfig{Name: "demo", Type: config.EcosystemNode, Path: "."},
		Node: &config.NodeConfig{
			Mode:     config.NodeModeFrontend,
			Frontend: &config.NodeFrontendConfig{BuildDir: "out"},
		},
	}

	r := NewResolver(&fakeVCS{tag: "v1.0.0"})

	p, err := r.Build(context.Background(), cfg, "", "")
	require.NoError(t, err)
	require.Len(t, p.Packages, 1)
	require.Equal(t, "demo", p.Packages[0].Name)
	require.NotNil(t, p.Packages[0].Node)
	require.Equal(t, "out", p.Packages[0].Node.Frontend.BuildDir)

	_, err = r.Build(context.Background(), cfg, "other", "")
	require.ErrorIs(t, err, ErrNoPackagesSelected)
}

// TestBuild_DeclarationOrder verifies the plan preserves configuration order.
func TestBuild_DeclarationOrder(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Packages: []config.PackageEntry{
			{Name: "zeta", Type: config.EcosystemGo, Path: "zeta"},
			{Name: "alpha", Type: config.EcosystemGo, Path: "alpha"},
			{Name: "mid", Type: config.EcosystemGo, Path: "mid"},
		},
	}

	p, err := NewResolver(&fakeVCS{tag: "v1.0.0"}).Build(context.Background(), cfg, "", "")
	require.NoError(t, err)

	names := make([]string, 0, len(p.Packages))
	for _, pkg := range p.Packages {
		names = append(names, pkg.Name)
	}

	require.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}
