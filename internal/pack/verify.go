package pack

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/manifest"
)

// Verification failures. Each is wrapped with the offending filename.
var (
	ErrArtifactMissing  = errors.New("artifact listed in manifest is missing")
	ErrChecksumMismatch = errors.New("artifact checksum does not match manifest")
	ErrSignatureMissing = errors.New("signature listed in manifest is missing")
)

// SignatureChecker validates one detached signature with an external tool.
type SignatureChecker interface {
	Check(ctx context.Context, artifactPath, signaturePath, method string) error
}

// ExecChecker shells out to gpg or cosign for signature validation.
type ExecChecker struct{}

// Check runs the verification command matching the signing method.
func (ExecChecker) Check(ctx context.Context, artifactPath, signaturePath, method string) error {
	switch method {
	case "gpg":
		return runSignTool(ctx, "gpg", "--verify", signaturePath, artifactPath)
	case "cosign":
		return runSignTool(ctx, "cosign", "verify-blob", "--signature", signaturePath, artifactPath)
	default:
		return fmt.Errorf("%w: %s", errUnknownSignMethod, method)
	}
}

// Verifier re-checks a bundle against its manifest: every listed artifact
// and SBOM must exist with a matching hash, every listed signature must
// exist. Existence and hashes are strict; cryptographic signature validity
// is advisory and only logged, since the verifying host may lack the keys
// the signing host had.
type Verifier struct {
	checker SignatureChecker
	keyring openpgp.EntityList
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithSignatureChecker replaces the external verification tool.
func WithSignatureChecker(checker SignatureChecker) VerifierOption {
	return func(v *Verifier) {
		v.checker = checker
	}
}

// WithKeyring enables in-process OpenPGP verification of gpg signatures.
func WithKeyring(keyring openpgp.EntityList) VerifierOption {
	return func(v *Verifier) {
		v.keyring = keyring
	}
}

// NewVerifier returns a Verifier backed by the command-line tools.
func NewVerifier(opts ...VerifierOption) *Verifier {
	verifier := &Verifier{checker: ExecChecker{}}

	for _, opt := range opts {
		opt(verifier)
	}

	return verifier
}

// LoadKeyring reads an armored or binary OpenPGP public keyring file.
func LoadKeyring(keyringPath string) (openpgp.EntityList, error) {
	contents, err := os.ReadFile(filepath.Clean(keyringPath))
	if err != nil {
		return nil, fmt.Errorf("read keyring: %w", err)
	}

	keyring, armorErr := openpgp.ReadArmoredKeyRing(bytes.NewReader(contents))
	if armorErr == nil {
		return keyring, nil
	}

	keyring, err = openpgp.ReadKeyRing(bytes.NewReader(contents))
	if err != nil {
		return nil, fmt.Errorf("parse keyring %s: %w", keyringPath, err)
	}

	return keyring, nil
}

// Verify checks every file the bundle manifest lists.
func (v *Verifier) Verify(ctx context.Context, bundleDir string) error {
	bundleManifest, err := manifest.Load(filepath.Join(bundleDir, manifest.Filename))
	if err != nil {
		return err
	}

	for _, pkg := range bundleManifest.Packages {
		for _, target := range pkg.Targets {
			for _, artifact := range target.Artifacts {
				if err := verifyArtifact(bundleDir, artifact); err != nil {
					return err
				}
			}

			if target.Sbom != nil {
				if err := verifyArtifact(bundleDir, *target.Sbom); err != nil {
					return err
				}
			}

			for _, signature := range target.Signatures {
				if err := v.verifySignature(ctx, bundleDir, signature); err != nil {
					return err
				}
			}
		}
	}

	logger.InfoKV(ctx, "Bundle verified",
		"bundle_dir", bundleDir,
		"packages", len(bundleManifest.Packages))

	return nil
}

// verifyArtifact checks that the file exists and its hash matches.
func verifyArtifact(bundleDir string, artifact manifest.Artifact) error {
	sha, err := SHA256File(filepath.Join(bundleDir, artifact.Filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrArtifactMissing, artifact.Filename)
		}

		return err
	}

	if sha != artifact.SHA256 {
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, artifact.Filename)
	}

	return nil
}

// verifySignature checks a signature file. A placeholder signature, one
// whose content equals the signed artifact's hex hash, passes as such.
// Real signatures go through the advisory cryptographic checks.
func (v *Verifier) verifySignature(ctx context.Context, bundleDir string, signature manifest.Signature) error {
	signaturePath := filepath.Join(bundleDir, signature.Filename)

	contents, err := os.ReadFile(filepath.Clean(signaturePath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrSignatureMissing, signature.Filename)
		}

		return fmt.Errorf("read signature %s: %w", signature.Filename, err)
	}

	artifactName := strings.TrimSuffix(signature.Filename, ".sig")
	artifactPath := filepath.Join(bundleDir, artifactName)

	artifactSHA, err := SHA256File(artifactPath)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrArtifactMissing, artifactName)
	}

	if strings.TrimSpace(string(contents)) == artifactSHA {
		logger.DebugKV(ctx, "Placeholder signature accepted", "signature", signature.Filename)

		return nil
	}

	if len(v.keyring) > 0 && signature.Method == "gpg" {
		if err := v.checkWithKeyring(artifactPath, contents); err != nil {
			logger.WarnKV(ctx, "In-process signature verification failed",
				"signature", signature.Filename,
				"error", err)
		} else {
			logger.DebugKV(ctx, "Signature verified against keyring", "signature", signature.Filename)

			return nil
		}
	}

	if v.checker != nil {
		if err := v.checker.Check(ctx, artifactPath, signaturePath, signature.Method); err != nil {
			logger.WarnKV(ctx, "External signature verification failed",
				"signature", signature.Filename,
				"method", signature.Method,
				"error", err)
		}
	}

	return nil
}

// checkWithKeyring validates a detached signature against the loaded
// keyring, trying armored form first.
func (v *Verifier) checkWithKeyring(artifactPath string, signature []byte) error {
	artifact, err := os.Open(filepath.Clean(artifactPath))
	if err != nil {
		return fmt.Errorf("open %s: %w", artifactPath, err)
	}

	defer func() {
		_ = artifact.Close()
	}()

	_, armorErr := openpgp.CheckArmoredDetachedSignature(v.keyring, artifact, bytes.NewReader(signature), nil)
	if armorErr == nil {
		return nil
	}

	if _, err := artifact.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", artifactPath, err)
	}

	if _, err := openpgp.CheckDetachedSignature(v.keyring, artifact, bytes.NewReader(signature), nil); err != nil {
		return fmt.Errorf("check signature: %w", err)
	}

	return nil
}
