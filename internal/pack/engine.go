package pack

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/manifest"
	"github.com/oshokin/shippo/internal/plan"
	"github.com/oshokin/shippo/internal/version"
)

// ProvenanceFilename is the build attestation written last into the bundle.
// It is intentionally not listed in the checksum ledger.
const ProvenanceFilename = "provenance.json"

// ErrUnsupportedFormat means a configured archive format has no writer.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// BuiltOutput carries the raw artifacts one builder run produced for a
// single (package, target) pair.
type BuiltOutput struct {
	Package   string
	Target    string
	Artifacts []string
}

// Options control one packaging run.
type Options struct {
	// BundleDir is where archives, the manifest and sidecars are written.
	BundleDir string
	// RepoURL and Commit are recorded in the manifest when known.
	RepoURL string
	Commit  string
	// Sign enables detached signatures for packages whose policy allows it.
	Sign bool
}

// Engine turns build outputs into a verifiable release bundle: archives,
// SBOM documents, signatures, a deterministic manifest, a checksum ledger
// and a provenance attestation.
type Engine struct {
	signer Signer
	probe  ToolProbe
	now    func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithSigner replaces the command-line signer.
func WithSigner(signer Signer) EngineOption {
	return func(e *Engine) {
		e.signer = signer
	}
}

// WithToolProbe replaces the command-line toolchain probe.
func WithToolProbe(probe ToolProbe) EngineOption {
	return func(e *Engine) {
		e.probe = probe
	}
}

// WithClock replaces the manifest timestamp source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an Engine backed by the real command-line tools.
func NewEngine(opts ...EngineOption) *Engine {
	engine := &Engine{
		signer: ExecSigner{},
		probe:  ExecProbe{},
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Package assembles the release bundle for a resolved plan. Every build
// output of a planned package is packaged; plan targets without a build
// output are skipped with a warning. The checksum ledger lists every
// produced file in production order, the manifest itself last.
func (e *Engine) Package(
	ctx context.Context,
	releasePlan *plan.Plan,
	built []BuiltOutput,
	opts Options,
) (*manifest.Manifest, error) {
	if err := os.MkdirAll(opts.BundleDir, 0o750); err != nil {
		return nil, fmt.Errorf("create bundle directory: %w", err)
	}

	release, err := acquireRunMarker(ctx, opts.BundleDir)
	if err != nil {
		return nil, err
	}

	defer release()

	var entries []ledgerEntry

	packages := make([]manifest.Package, 0, len(releasePlan.Packages))

	for i := range releasePlan.Packages {
		pkg := &releasePlan.Packages[i]

		// Every build output of the package gets packaged, even for a
		// target the plan does not list; the builder is the authority on
		// what was actually produced.
		outputs := outputsFor(built, pkg.Name)
		targets := make([]manifest.Target, 0, len(outputs))

		for _, target := range pkg.Targets {
			if findOutput(outputs, pkg.Name, target) == nil {
				logger.WarnKV(ctx, "No build output for target, skipping",
					"package", pkg.Name,
					"target", target)
			}
		}

		for _, output := range outputs {
			entry, err := e.packageTarget(ctx, pkg, output.Target, releasePlan.Version, output.Artifacts, opts, &entries)
			if err != nil {
				return nil, err
			}

			targets = append(targets, entry)
		}

		packages = append(packages, manifest.Package{
			Name:    pkg.Name,
			Type:    pkg.Ecosystem,
			Path:    pkg.Path,
			Targets: targets,
		})
	}

	bundleManifest := &manifest.Manifest{
		ShippoVersion: version.Short(),
		GeneratedAt:   e.now().UTC(),
		Project: manifest.Project{
			RepoURL: manifest.StringPtr(opts.RepoURL),
			Commit:  manifest.StringPtr(opts.Commit),
			Version: releasePlan.Version,
		},
		Packages: packages,
		Tooling:  snapshotTooling(ctx, e.probe),
		BuildEnv: manifest.BuildEnv{
			OS:   runtime.GOOS,
			Arch: runtime.GOARCH,
			CI:   runningInCI(),
		},
	}

	contents, err := bundleManifest.ToJSON()
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(opts.BundleDir, manifest.Filename)
	if err := os.WriteFile(manifestPath, contents, 0o600); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	entries = append(entries, ledgerEntry{sha: hashBytes(contents), filename: manifest.Filename})

	ledgerPath := filepath.Join(opts.BundleDir, LedgerFilename)
	if err := os.WriteFile(ledgerPath, []byte(renderLedger(entries)), 0o600); err != nil {
		return nil, fmt.Errorf("write checksum ledger: %w", err)
	}

	if err := e.writeProvenance(opts.BundleDir, bundleManifest); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Release bundle assembled",
		"bundle_dir", opts.BundleDir,
		"packages", len(packages),
		"files", len(entries))

	return bundleManifest, nil
}

// packageTarget produces the archives, SBOM and signatures for one
// (package, target) pair and appends their ledger entries in order.
func (e *Engine) packageTarget(
	ctx context.Context,
	pkg *plan.PackagePlan,
	target, planVersion string,
	artifacts []string,
	opts Options,
	entries *[]ledgerEntry,
) (manifest.Target, error) {
	base := plan.NamingTemplate(pkg.Package.NameTemplate, pkg.Name, planVersion, target)
	inputs := filterInputs(ctx, artifacts, pkg.Package.Include, pkg.Package.Exclude)

	archived := make([]manifest.Artifact, 0, len(pkg.Package.Formats))

	for _, format := range pkg.Package.Formats {
		archiveName := base + "." + format
		archivePath := filepath.Join(opts.BundleDir, archiveName)

		switch {
		case strings.HasSuffix(format, "tar.gz"):
			if err := writeTarGz(archivePath, inputs); err != nil {
				return manifest.Target{}, err
			}
		case format == "zip":
			if err := writeZip(archivePath, inputs); err != nil {
				return manifest.Target{}, err
			}
		default:
			return manifest.Target{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
		}

		artifact, err := describeBundleFile(opts.BundleDir, archiveName)
		if err != nil {
			return manifest.Target{}, err
		}

		archived = append(archived, artifact)
		*entries = append(*entries, ledgerEntry{sha: artifact.SHA256, filename: artifact.Filename})
	}

	sbomName := base + sbomSuffix
	if err := writeSbomDocument(filepath.Join(opts.BundleDir, sbomName), pkg, planVersion, target); err != nil {
		return manifest.Target{}, err
	}

	sbomArtifact, err := describeBundleFile(opts.BundleDir, sbomName)
	if err != nil {
		return manifest.Target{}, err
	}

	*entries = append(*entries, ledgerEntry{sha: sbomArtifact.SHA256, filename: sbomArtifact.Filename})

	signatures := make([]manifest.Signature, 0)

	if opts.Sign && pkg.Sign.Enabled {
		toSign := append(append(make([]manifest.Artifact, 0, len(archived)+1), archived...), sbomArtifact)

		for _, artifact := range toSign {
			signatureName := e.signArtifact(ctx, opts.BundleDir, artifact.Filename, artifact.SHA256, pkg.Sign)

			signatureFile, err := describeBundleFile(opts.BundleDir, signatureName)
			if err != nil {
				return manifest.Target{}, err
			}

			*entries = append(*entries, ledgerEntry{sha: signatureFile.SHA256, filename: signatureName})
			signatures = append(signatures, manifest.Signature{Filename: signatureName, Method: pkg.Sign.Method})
		}
	}

	return manifest.Target{
		Target:     target,
		Artifacts:  archived,
		Sbom:       &sbomArtifact,
		Signatures: signatures,
	}, nil
}

// writeProvenance records when, from what and under which conditions the
// bundle was produced. Written after the ledger, so it never appears in it.
func (e *Engine) writeProvenance(bundleDir string, m *manifest.Manifest) error {
	document := map[string]any{
		"version":      m.Project.Version,
		"generated_at": m.GeneratedAt,
		"ci":           m.BuildEnv.CI,
	}

	contents, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal provenance: %w", err)
	}

	provenancePath := filepath.Join(bundleDir, ProvenanceFilename)
	if err := os.WriteFile(provenancePath, append(contents, '\n'), 0o600); err != nil {
		return fmt.Errorf("write provenance: %w", err)
	}

	return nil
}

// outputsFor returns the build outputs of one package in build order.
func outputsFor(built []BuiltOutput, packageName string) []BuiltOutput {
	var outputs []BuiltOutput

	for _, output := range built {
		if output.Package == packageName {
			outputs = append(outputs, output)
		}
	}

	return outputs
}

// findOutput returns the build output matching one (package, target) pair.
func findOutput(built []BuiltOutput, packageName, target string) *BuiltOutput {
	for i := range built {
		if built[i].Package == packageName && built[i].Target == target {
			return &built[i]
		}
	}

	return nil
}

// filterInputs applies the include and exclude glob patterns to artifact
// base names. When a filter would leave nothing to archive, the unfiltered
// inputs are kept, otherwise the run would emit empty archives.
func filterInputs(ctx context.Context, inputs, include, exclude []string) []string {
	filtered := make([]string, 0, len(inputs))

	for _, input := range inputs {
		name := filepath.Base(input)

		if len(include) > 0 && !matchAny(include, name) {
			continue
		}

		if matchAny(exclude, name) {
			continue
		}

		filtered = append(filtered, input)
	}

	if len(filtered) == 0 && len(inputs) > 0 {
		logger.WarnKV(ctx, "Include/exclude filters matched nothing, archiving all artifacts",
			"include", include,
			"exclude", exclude)

		return inputs
	}

	return filtered
}

// matchAny reports whether any glob pattern matches the name.
func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if matched, err := path.Match(pattern, name); err == nil && matched {
			return true
		}
	}

	return false
}

// describeBundleFile hashes and sizes a file already written to the bundle.
func describeBundleFile(bundleDir, filename string) (manifest.Artifact, error) {
	fullPath := filepath.Join(bundleDir, filename)

	sha, err := SHA256File(fullPath)
	if err != nil {
		return manifest.Artifact{}, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return manifest.Artifact{}, fmt.Errorf("stat %s: %w", fullPath, err)
	}

	return manifest.Artifact{Filename: filename, Bytes: info.Size(), SHA256: sha}, nil
}

// hashBytes returns the hex-encoded SHA-256 of in-memory contents.
func hashBytes(contents []byte) string {
	sum := sha256.Sum256(contents)

	return hex.EncodeToString(sum[:])
}

// runningInCI checks for the CI environment variable. Presence counts,
// the value does not.
func runningInCI() bool {
	_, present := os.LookupEnv("CI")

	return present
}
