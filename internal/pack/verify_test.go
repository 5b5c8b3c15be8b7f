package pack

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordingChecker notes every external verification request.
type recordingChecker struct {
	calls *int
}

func (c recordingChecker) Check(context.Context, string, string, string) error {
	if c.calls != nil {
		*c.calls++
	}

	return nil
}

// packagedBundle assembles a signed bundle in a fresh directory.
func packagedBundle(t *testing.T) string {
	t.Helper()

	bundleDir := t.TempDir()

	_, err := fixtureEngine().Package(context.Background(), fixturePlan(), fixtureOutput(t), Options{
		BundleDir: bundleDir,
		Sign:      true,
	})
	require.NoError(t, err)

	return bundleDir
}

// TestVerify_TamperedArtifact detects a modified archive.
func TestVerify_TamperedArtifact(t *testing.T) {
	t.Parallel()

	bundleDir := packagedBundle(t)

	archivePath := filepath.Join(bundleDir, "api-1.2.3-native.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, []byte("tampered"), 0o600))

	err := NewVerifier().Verify(context.Background(), bundleDir)
	require.ErrorIs(t, err, ErrChecksumMismatch)
	require.ErrorContains(t, err, "api-1.2.3-native.tar.gz")
}

// TestVerify_MissingSbom detects a deleted SBOM document.
func TestVerify_MissingSbom(t *testing.T) {
	t.Parallel()

	bundleDir := packagedBundle(t)
	require.NoError(t, os.Remove(filepath.Join(bundleDir, "api-1.2.3-native-sbom.cdx.json")))

	err := NewVerifier().Verify(context.Background(), bundleDir)
	require.ErrorIs(t, err, ErrArtifactMissing)
}

// TestVerify_MissingSignature detects a deleted signature file.
func TestVerify_MissingSignature(t *testing.T) {
	t.Parallel()

	bundleDir := packagedBundle(t)
	require.NoError(t, os.Remove(filepath.Join(bundleDir, "api-1.2.3-native.tar.gz.sig")))

	err := NewVerifier().Verify(context.Background(), bundleDir)
	require.ErrorIs(t, err, ErrSignatureMissing)
	require.ErrorContains(t, err, "api-1.2.3-native.tar.gz.sig")
}

// TestVerify_RealSignatureIsAdvisory passes verification of a signature that
// is not a placeholder, delegating validity to the external checker.
func TestVerify_RealSignatureIsAdvisory(t *testing.T) {
	t.Parallel()

	bundleDir := packagedBundle(t)

	// The manifest records signatures by filename only, so swapping the
	// contents does not trip the checksum pass.
	sigPath := filepath.Join(bundleDir, "api-1.2.3-native.tar.gz.sig")
	require.NoError(t, os.WriteFile(sigPath, []byte("-----BEGIN PGP SIGNATURE-----"), 0o600))

	calls := 0
	verifier := NewVerifier(WithSignatureChecker(recordingChecker{calls: &calls}))

	err := verifier.Verify(context.Background(), bundleDir)
	require.NoError(t, err)
	require.Positive(t, calls)
}

// TestLoadKeyring_Invalid rejects files that are not OpenPGP keyrings.
func TestLoadKeyring_Invalid(t *testing.T) {
	t.Parallel()

	keyringPath := filepath.Join(t.TempDir(), "keys.asc")
	require.NoError(t, os.WriteFile(keyringPath, []byte("not a keyring"), 0o600))

	_, err := LoadKeyring(keyringPath)
	require.Error(t, err)

	_, err = LoadKeyring(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
