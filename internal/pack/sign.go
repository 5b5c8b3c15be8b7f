package pack

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oshokin/shippo/internal/logger"
	"github.com/oshokin/shippo/internal/plan"
)

var (
	errUnknownSignMethod = errors.New("unknown signing method")
	errSignerUnavailable = errors.New("signing tool is not installed")
)

// Signer produces a detached signature for one bundle artifact.
type Signer interface {
	Sign(ctx context.Context, artifactPath, signaturePath string, policy plan.SignSettings) error
}

// ExecSigner shells out to gpg or cosign, whichever the policy names.
type ExecSigner struct{}

// Sign writes a detached signature next to the artifact.
func (ExecSigner) Sign(ctx context.Context, artifactPath, signaturePath string, policy plan.SignSettings) error {
	switch policy.Method {
	case "gpg":
		return runSignTool(ctx, "gpg",
			"--batch", "--yes", "--detach-sign", "-o", signaturePath, artifactPath)
	case "cosign":
		args := []string{"sign-blob", "--yes", "--output-signature", signaturePath}
		if policy.CosignMode == "key" {
			args = append(args, "--key", "cosign.key")
		}

		return runSignTool(ctx, "cosign", append(args, artifactPath)...)
	default:
		return fmt.Errorf("%w: %s", errUnknownSignMethod, policy.Method)
	}
}

// runSignTool executes one signing command, surfacing its output on failure.
func runSignTool(ctx context.Context, tool string, args ...string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%w: %s", errSignerUnavailable, tool)
	}

	cmd := exec.CommandContext(ctx, tool, args...)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s",
			tool, args[0], err, strings.TrimSpace(string(out)))
	}

	return nil
}

// signArtifact signs one artifact, falling back to a placeholder signature
// file holding the artifact's hex SHA-256 when the signer fails. Packaging
// never aborts on signing errors; the signature file is always produced and
// recorded, so a later verify can tell the two cases apart.
func (e *Engine) signArtifact(ctx context.Context, bundleDir, filename, sha string, policy plan.SignSettings) string {
	signatureName := filename + ".sig"
	signaturePath := filepath.Join(bundleDir, signatureName)

	err := e.signer.Sign(ctx, filepath.Join(bundleDir, filename), signaturePath, policy)
	if err != nil {
		logger.WarnKV(ctx, "Signing failed, writing placeholder signature",
			"artifact", filename,
			"method", policy.Method,
			"error", err)

		if writeErr := os.WriteFile(signaturePath, []byte(sha), 0o600); writeErr != nil {
			logger.WarnKV(ctx, "Failed to write placeholder signature",
				"signature", signatureName,
				"error", writeErr)
		}
	}

	return signatureName
}
